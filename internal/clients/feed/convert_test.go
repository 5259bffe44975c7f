package feed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"schoolcal/internal/domain"
)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//Schoology//Calendar//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:evt-1\r\n" +
	"DTSTAMP:20250901T000000Z\r\n" +
	"DTSTART:20250905T235900Z\r\n" +
	"DTEND:20250906T000000Z\r\n" +
	"SUMMARY:Essay draft\r\n" +
	"DESCRIPTION:Submit online - Link: https://demo.schoology.com/assignment/555\r\n" +
	"LOCATION:Room 12\r\n" +
	"URL:https://demo.schoology.com/assignment/555\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:evt-2\r\n" +
	"DTSTAMP:20250901T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250910\r\n" +
	"DURATION:P1D\r\n" +
	"SUMMARY:Spirit day\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func decodeSample(t *testing.T) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(strings.NewReader(sampleICS)).Decode()
	if err != nil {
		t.Fatal(err)
	}
	return cal
}

func events(cal *ical.Calendar) []*ical.Component {
	var out []*ical.Component
	for _, child := range cal.Children {
		if child.Name == ical.CompEvent {
			out = append(out, child)
		}
	}
	return out
}

func TestItemFromComponent(t *testing.T) {
	cal := decodeSample(t)
	comps := events(cal)
	if len(comps) != 2 {
		t.Fatalf("got %d events", len(comps))
	}

	item := ItemFromComponent(comps[0], time.UTC)
	if item.Summary != "Essay draft" || item.Location != "Room 12" {
		t.Fatalf("item = %+v", item)
	}
	if item.URL != "https://demo.schoology.com/assignment/555" {
		t.Fatalf("url = %q", item.URL)
	}
	if item.AllDay {
		t.Fatal("timed event flagged all-day")
	}
	want := time.Date(2025, 9, 5, 23, 59, 0, 0, time.UTC)
	if !item.Start.Equal(want) {
		t.Fatalf("start = %v", item.Start)
	}

	allDay := ItemFromComponent(comps[1], time.UTC)
	if !allDay.AllDay {
		t.Fatal("date-valued DTSTART not flagged all-day")
	}
	if got := allDay.Start; got.Hour() != 0 || got.Day() != 10 {
		t.Fatalf("all-day start = %v", got)
	}
}

func TestApplyToComponentDropsDuration(t *testing.T) {
	cal := decodeSample(t)
	comp := events(cal)[1]

	item := ItemFromComponent(comp, time.UTC)
	item.Summary = "🗓 Spirit day"
	item.Start = time.Date(2025, 9, 10, 15, 25, 0, 0, time.UTC)
	item.End = item.Start.Add(50 * time.Minute)
	ApplyToComponent(comp, item)

	if comp.Props.Get(ical.PropDuration) != nil {
		t.Fatal("DURATION not removed")
	}
	out, err := Encode(cal)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("DTSTART:20250910T152500Z")) {
		t.Fatalf("encoded feed missing retimed DTSTART:\n%s", out)
	}
	if !bytes.Contains(out, []byte("DTEND:20250910T161500Z")) {
		t.Fatalf("encoded feed missing DTEND:\n%s", out)
	}
}

func TestNewComponentRoundTrips(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	item := domain.Item{
		Summary:     "🗓 Club meeting",
		Description: "Bring snacks",
		Location:    "Gym",
		Start:       time.Date(2025, 9, 3, 19, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 9, 3, 19, 50, 0, 0, time.UTC),
	}
	comp := NewComponent(item, "cst-abc|20250903T1200", now)

	got := ItemFromComponent(comp, time.UTC)
	if got.Summary != item.Summary || got.Description != item.Description || got.Location != item.Location {
		t.Fatalf("round trip = %+v", got)
	}
	if !got.Start.Equal(item.Start) || !got.End.Equal(item.End) {
		t.Fatalf("times = %v / %v", got.Start, got.End)
	}
}
