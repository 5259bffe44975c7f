package domain

import "time"

type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
	RepeatYearly  Repeat = "yearly"
)

// ParseRepeat normalizes a raw repeat token; anything unrecognized means
// no repetition.
func ParseRepeat(s string) Repeat {
	switch Repeat(s) {
	case RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return Repeat(s)
	default:
		return RepeatNone
	}
}

func (r Repeat) Repeats() bool {
	return r != RepeatNone && r != ""
}

// CustomEvent is a user-authored item definition stored in the user-data
// document. Repeating definitions are expanded on read; only the
// definition itself is persisted.
type CustomEvent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CourseName  string `json:"course_name"`
	Type        string `json:"type"` // "assignment" or "event"
	Date        string `json:"date"` // YYYY-MM-DD
	Time        string `json:"time,omitempty"` // HH:MM, optional
	Repeat      Repeat `json:"repeat"`
}

// StartLocal returns the definition's start as a local datetime. Without
// an explicit time the event starts at midnight local.
func (e CustomEvent) StartLocal(loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", e.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	if e.Time == "" {
		return d, nil
	}
	t, err := time.ParseInLocation("15:04", e.Time, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// SortKey orders definitions by date plus time, treating a missing time
// as end of day so dated-only items sort after timed ones that day.
func (e CustomEvent) SortKey(loc *time.Location) time.Time {
	d, err := time.ParseInLocation("2006-01-02", e.Date, loc)
	if err != nil {
		return time.Time{}
	}
	hh, mm := 23, 59
	if e.Time != "" {
		if t, err := time.ParseInLocation("15:04", e.Time, loc); err == nil {
			hh, mm = t.Hour(), t.Minute()
		}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, loc)
}

// ItemType returns the effective item type; anything that is not an
// assignment is treated as a plain event.
func (e CustomEvent) ItemType() ItemType {
	if ParseItemType(e.Type) == TypeAssignment {
		return TypeAssignment
	}
	return TypeEvent
}
