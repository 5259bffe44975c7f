package schoology

import (
	"encoding/json"
	"strconv"
	"time"
)

// ID is a Schoology object identifier. The API is inconsistent about
// returning ids as JSON numbers or strings, so it decodes both.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Section is one course-section enrollment of the configured user.
type Section struct {
	ID           ID     `json:"id"`
	CourseTitle  string `json:"course_title"`
	SectionTitle string `json:"section_title"`
}

// DisplayName combines the course and section titles the way the
// calendar shows them.
func (s Section) DisplayName() string {
	switch {
	case s.CourseTitle == "":
		return s.SectionTitle
	case s.SectionTitle == "":
		return s.CourseTitle
	default:
		return s.CourseTitle + " - " + s.SectionTitle
	}
}

type sectionsResponse struct {
	Section []Section `json:"section"`
}

// Event is one calendar event from the user events endpoint.
type Event struct {
	ID           ID     `json:"id"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	SectionID    ID     `json:"section_id"`
	RealmID      ID     `json:"realm_id"`
	AssignmentID ID     `json:"assignment_id"`
	Start        string `json:"start"`
}

// StartTime parses the event start, which the API emits in several
// shapes (date-time, date, epoch seconds).
func (e Event) StartTime(loc *time.Location) (time.Time, bool) {
	if e.Start == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(e.Start, 10, 64); err == nil {
		return time.Unix(secs, 0).In(loc), true
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, e.Start, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, e.Start); err == nil {
		return t.In(loc), true
	}
	return time.Time{}, false
}

// Different deployments wrap the event list under different keys.
type eventsResponse struct {
	Event  []Event `json:"event"`
	Events []Event `json:"events"`
	Data   []Event `json:"data"`
}

func (r eventsResponse) items() []Event {
	if len(r.Event) > 0 {
		return r.Event
	}
	if len(r.Events) > 0 {
		return r.Events
	}
	return r.Data
}

// SubmissionResult is the outcome of a live submission check.
type SubmissionResult struct {
	HasSubmission       bool
	SubmissionsDisabled bool
}

type submissionResponse struct {
	Revision         []revision `json:"revision"`
	AllowSubmissions *int       `json:"allow_submissions"`
}

type revision struct {
	Draft *int `json:"draft"`
}

// nonDraft reports whether the revision is a real submission. A missing
// draft flag counts as draft, matching the remote default.
func (r revision) nonDraft() bool {
	return r.Draft != nil && *r.Draft == 0
}
