package domain

import "time"

// SectionRecord is a course section known to the remote LMS.
type SectionRecord struct {
	ID          string
	DisplayName string
}

// SubmissionRecord is the cached result of a remote submission check for
// one item id. The allow_dropbox/dropbox_locked fields only appear in
// cache documents written by older builds; they still count as disabled.
type SubmissionRecord struct {
	HasSubmission       bool      `json:"has_submission"`
	SubmissionsDisabled bool      `json:"submissions_disabled"`
	AllowDropbox        *bool     `json:"allow_dropbox,omitempty"`
	DropboxLocked       bool      `json:"dropbox_locked,omitempty"`
	CheckedAt           time.Time `json:"checked_at"`
}

// Disabled reports whether the item cannot accept submissions.
func (r SubmissionRecord) Disabled() bool {
	if r.SubmissionsDisabled || r.DropboxLocked {
		return true
	}
	return r.AllowDropbox != nil && !*r.AllowDropbox
}

// FreshAt reports whether the record was checked recently enough to be
// trusted without a remote re-check.
func (r SubmissionRecord) FreshAt(now time.Time, maxAge time.Duration) bool {
	if r.CheckedAt.IsZero() {
		return false
	}
	return now.Sub(r.CheckedAt) <= maxAge
}
