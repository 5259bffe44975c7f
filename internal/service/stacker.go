package service

import (
	"strings"
	"time"

	"schoolcal/internal/domain"
)

// Stacker packs same-day items into consecutive fixed-length slots
// starting at an anchor time-of-day. One Stacker lives for exactly one
// feed-generation request; it is not safe for concurrent use and never
// persisted.
type Stacker struct {
	loc        *time.Location
	anchorHour int
	anchorMin  int
	slot       time.Duration

	cursors map[string]time.Time // local date -> next free local datetime
}

func NewStacker(loc *time.Location, anchorHour, anchorMin int, slot time.Duration) *Stacker {
	return &Stacker{
		loc:        loc,
		anchorHour: anchorHour,
		anchorMin:  anchorMin,
		slot:       slot,
		cursors:    map[string]time.Time{},
	}
}

// Peek returns the next free slot on the given local date without
// consuming it. The first reference to a date seeds its cursor at the
// anchor time. Callers that keep the slot must follow up with Advance;
// the split lets deferred items avoid burning a slot they may not use.
func (s *Stacker) Peek(date time.Time) time.Time {
	key := s.key(date)
	cur, ok := s.cursors[key]
	if !ok {
		d := date.In(s.loc)
		cur = time.Date(d.Year(), d.Month(), d.Day(), s.anchorHour, s.anchorMin, 0, 0, s.loc)
		s.cursors[key] = cur
	}
	return cur
}

// Advance consumes the current slot for the date.
func (s *Stacker) Advance(date time.Time) {
	s.cursors[s.key(date)] = s.Peek(date).Add(s.slot)
}

func (s *Stacker) key(date time.Time) string {
	return date.In(s.loc).Format("2006-01-02")
}

// CourseDueTimes maps course-title substrings to a fixed HH:MM due time,
// used when stacking is disabled. Matching is case-insensitive.
type CourseDueTimes map[string]string

// Lookup returns the due time-of-day for a course title, if any entry's
// key is a substring of it.
func (t CourseDueTimes) Lookup(courseTitle string) (hour, min int, ok bool) {
	lower := strings.ToLower(courseTitle)
	for key, val := range t {
		if !strings.Contains(lower, strings.ToLower(key)) {
			continue
		}
		parsed, err := time.Parse("15:04", val)
		if err != nil {
			continue
		}
		return parsed.Hour(), parsed.Minute(), true
	}
	return 0, 0, false
}

// SetDueTime pins the item to the chosen wall-clock time on its local
// calendar date, emitting a UTC start/end pair one slot apart.
func SetDueTime(item *domain.Item, localStart time.Time, hour, min int, loc *time.Location, slot time.Duration) {
	d := localStart.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, loc)
	item.Start = start.UTC()
	item.End = item.Start.Add(slot)
	item.AllDay = false
}
