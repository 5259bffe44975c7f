package domain

// Status is the resolved submission state of one item occurrence.
type Status string

const (
	StatusDone     Status = "done"
	StatusNotDue   Status = "not_due"  // not submitted, due in the future
	StatusOverdue  Status = "overdue"  // not submitted, due in the past
	StatusDisabled Status = "disabled" // submissions not accepted for this item
	StatusUnknown  Status = "unknown"
)

// Symbol returns the bare status glyph. Type-specific decoration (the
// discussion bubble, the assessment flask) is applied by the decorator,
// not here.
func (s Status) Symbol() string {
	switch s {
	case StatusDone:
		return "✅"
	case StatusNotDue:
		return "⚠️"
	case StatusOverdue:
		return "‼️"
	case StatusDisabled:
		return "-"
	default:
		return "?"
	}
}

func (s Status) IsDone() bool {
	return s == StatusDone
}
