package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"schoolcal/internal/clients/schoology"
	"schoolcal/internal/storage"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return store
}

// fakeLMS is a scriptable stand-in for the Schoology client.
type fakeLMS struct {
	configured bool
	userID     string

	sections    []schoology.Section
	sectionsErr error
	events      []schoology.Event
	eventsErr   error

	submission    schoology.SubmissionResult
	submissionErr error

	sectionCalls    int
	eventCalls      int
	submissionCalls int

	eventsStart time.Time
	eventsEnd   time.Time
}

func (f *fakeLMS) IsConfigured() bool { return f.configured }
func (f *fakeLMS) UserID() string     { return f.userID }

func (f *fakeLMS) Sections(ctx context.Context) ([]schoology.Section, error) {
	f.sectionCalls++
	return f.sections, f.sectionsErr
}

func (f *fakeLMS) Events(ctx context.Context, start, end time.Time) ([]schoology.Event, error) {
	f.eventCalls++
	f.eventsStart, f.eventsEnd = start, end
	return f.events, f.eventsErr
}

func (f *fakeLMS) CheckSubmission(ctx context.Context, sectionID, itemID string) (schoology.SubmissionResult, error) {
	f.submissionCalls++
	return f.submission, f.submissionErr
}
