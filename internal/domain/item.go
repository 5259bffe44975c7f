package domain

import (
	"strings"
	"time"
)

type ItemType string

const (
	TypeAssignment ItemType = "assignment"
	TypeEvent      ItemType = "event"
	TypeAssessment ItemType = "assessment"
	TypeDiscussion ItemType = "discussion"
	TypeUnknown    ItemType = "unknown"
)

// ParseItemType maps a raw type token (from a URL path or a form field)
// onto a known item type.
func ParseItemType(s string) ItemType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "assignment":
		return TypeAssignment
	case "event":
		return TypeEvent
	case "assessment":
		return TypeAssessment
	case "discussion":
		return TypeDiscussion
	default:
		return TypeUnknown
	}
}

// PseudoSectionCustom is the synthetic section id used for user-defined
// custom items. It never resolves against the remote LMS.
const PseudoSectionCustom = "custom"

// Item is one calendar entry flowing through the annotation pipeline,
// recovered from the source feed or expanded from a CustomEvent.
type Item struct {
	ID          string
	Type        ItemType
	Summary     string
	Description string
	Location    string
	URL         string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// HasStart reports whether the entry carries a start time at all.
func (i Item) HasStart() bool {
	return !i.Start.IsZero()
}

// StartIn returns the start time in the given location.
func (i Item) StartIn(loc *time.Location) time.Time {
	return i.Start.In(loc)
}

// ShortCourseName returns the part of a section display name before the
// " - " separator, e.g. "Algebra II - Period 3" -> "Algebra II".
func ShortCourseName(displayName string) string {
	if idx := strings.Index(displayName, " - "); idx >= 0 {
		return displayName[:idx]
	}
	return displayName
}
