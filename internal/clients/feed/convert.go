package feed

import (
	"time"

	"github.com/emersion/go-ical"

	"schoolcal/internal/domain"
)

// ItemFromComponent extracts the fields the annotation pipeline needs
// from a VEVENT. A missing DTSTART leaves Item.Start zero; the
// classifier treats that as invalid.
func ItemFromComponent(comp *ical.Component, loc *time.Location) domain.Item {
	item := domain.Item{}

	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		item.Summary = prop.Value
	}
	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		item.Description = prop.Value
	}
	if prop := comp.Props.Get(ical.PropLocation); prop != nil {
		item.Location = prop.Value
	}
	if prop := comp.Props.Get(ical.PropURL); prop != nil {
		item.URL = prop.Value
	}

	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		if t, err := prop.DateTime(loc); err == nil {
			item.Start = t
		}
		if prop.Params.Get(ical.ParamValue) == string(ical.ValueDate) {
			item.AllDay = true
		}
	}
	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if t, err := prop.DateTime(loc); err == nil {
			item.End = t
		}
	}

	return item
}

// ApplyToComponent writes the mutated item back onto its component.
// Start/end are emitted as UTC date-times; any DURATION is dropped in
// favor of the explicit pair.
func ApplyToComponent(comp *ical.Component, item domain.Item) {
	comp.Props.SetText(ical.PropSummary, item.Summary)
	comp.Props.SetText(ical.PropDescription, item.Description)
	if item.Location != "" {
		comp.Props.SetText(ical.PropLocation, item.Location)
	}
	if !item.Start.IsZero() {
		comp.Props.SetDateTime(ical.PropDateTimeStart, item.Start.UTC())
	}
	if !item.End.IsZero() {
		comp.Props.SetDateTime(ical.PropDateTimeEnd, item.End.UTC())
	}
	delete(comp.Props, ical.PropDuration)
}

// NewComponent builds a fresh VEVENT for an item that did not come from
// the source feed (custom event occurrences).
func NewComponent(item domain.Item, uid string, now time.Time) *ical.Component {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, uid)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ev.Props.SetText(ical.PropSummary, item.Summary)
	if item.Description != "" {
		ev.Props.SetText(ical.PropDescription, item.Description)
	}
	if item.Location != "" {
		ev.Props.SetText(ical.PropLocation, item.Location)
	}
	if !item.Start.IsZero() {
		ev.Props.SetDateTime(ical.PropDateTimeStart, item.Start.UTC())
	}
	if !item.End.IsZero() {
		ev.Props.SetDateTime(ical.PropDateTimeEnd, item.End.UTC())
	}
	return ev.Component
}
