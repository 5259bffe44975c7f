package service

import (
	"regexp"
	"time"

	"schoolcal/internal/domain"
)

// Disposition buckets a feed entry for the annotation pipeline.
type Disposition int

const (
	// DispositionInvalid marks entries with no recognizable LMS item or
	// no start time; they are dropped with a diagnostic.
	DispositionInvalid Disposition = iota
	DispositionTooOld
	DispositionTooNew
	DispositionInWindow
)

// URL shapes, tried in order: the specific assignment/event/assessment
// path, the discussion path, then any Schoology item path as a fallback
// so unknown types can still be stacked.
var (
	assignOrEventRe = regexp.MustCompile(`(?i)https?://[^/\s]*\.schoology\.com/(assignment|event|assessment)/(\d+)(?:[/?#\s]|$)`)
	discussionRe    = regexp.MustCompile(`(?i)https?://[^/\s]*\.schoology\.com/course/\d+/materials/discussion/(?:view/)?(\d+)(?:[/?#\s]|$)`)
	anyItemRe       = regexp.MustCompile(`(?i)https?://[^/\s]*\.schoology\.com/([a-zA-Z_-]+)/(\d+)(?:[/?#\s]|$)`)
)

// Identify recovers (item id, item type) from the entry's free-text
// fields, scanned in priority order. The first pattern match wins.
func Identify(item domain.Item) (string, domain.ItemType, bool) {
	for _, field := range []string{item.URL, item.Description, item.Summary, item.Location} {
		if field == "" {
			continue
		}
		if m := assignOrEventRe.FindStringSubmatch(field); m != nil {
			return m[2], domain.ParseItemType(m[1]), true
		}
		if m := discussionRe.FindStringSubmatch(field); m != nil {
			return m[1], domain.TypeDiscussion, true
		}
		if m := anyItemRe.FindStringSubmatch(field); m != nil {
			typ := domain.ParseItemType(m[1])
			return m[2], typ, true
		}
	}
	return "", domain.TypeUnknown, false
}

// Classify gates an entry by its age relative to now. Entries outside
// [now-back, now+fwd] are dropped from the output feed.
func Classify(item domain.Item, now time.Time, back, fwd time.Duration) Disposition {
	if !item.HasStart() {
		return DispositionInvalid
	}
	start := item.Start
	if now.Sub(start) > back {
		return DispositionTooOld
	}
	if start.Sub(now) > fwd {
		return DispositionTooNew
	}
	return DispositionInWindow
}
