package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"schoolcal/internal/clients/schoology"
	"schoolcal/internal/domain"
	"schoolcal/internal/offline"
	"schoolcal/internal/storage"
)

func statusFixture(t *testing.T, lms *fakeLMS) (*StatusService, *MarksService, *MetadataService) {
	t.Helper()
	store := testStore(t)
	if err := store.UpdateCache(func(d *storage.CacheDocument) {
		d.SectionIDToName = map[string]string{"sec1": "Algebra II - Period 3"}
		d.ItemIDToSection = map[string]string{"123": "sec1", "900": domain.PseudoSectionCustom}
	}); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	metadata := NewMetadataService(store, lms, 60*24*time.Hour, 60*24*time.Hour, testLogger())
	if err := metadata.Load(context.Background(), false); err != nil {
		t.Fatalf("loading metadata: %v", err)
	}
	marks := NewMarksService(store, testLogger())
	status := NewStatusService(marks, metadata, lms, time.Hour, testLogger())
	return status, marks, metadata
}

func TestResolveManualMarkWins(t *testing.T) {
	lms := &fakeLMS{configured: true, userID: "u1"}
	status, marks, metadata := statusFixture(t, lms)

	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	status.now = func() time.Time { return now }
	due := now.Add(24 * time.Hour)

	// A stale "no submission" record must not override the manual mark.
	if err := metadata.PutSubmission("123", domain.SubmissionRecord{
		HasSubmission: false,
		CheckedAt:     now.Add(-48 * time.Hour),
	}); err != nil {
		t.Fatalf("PutSubmission: %v", err)
	}
	if err := marks.Mark("123", domain.OccurrenceToken(due, time.UTC)); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	item := domain.Item{ID: "123", Type: domain.TypeAssignment}
	if got := status.Resolve(context.Background(), item, due, time.UTC); got != domain.StatusDone {
		t.Fatalf("status = %v, want done", got)
	}
	if lms.submissionCalls != 0 {
		t.Errorf("manual mark should short-circuit the API, got %d calls", lms.submissionCalls)
	}
}

func TestResolveUnscopedMarkCoversAllOccurrences(t *testing.T) {
	status, marks, _ := statusFixture(t, &fakeLMS{configured: true, userID: "u1"})
	status.now = func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC) }

	if err := marks.Mark("123", ""); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	item := domain.Item{ID: "123", Type: domain.TypeAssignment}
	due := time.Date(2025, 10, 1, 15, 0, 0, 0, time.UTC)
	if got := status.Resolve(context.Background(), item, due, time.UTC); got != domain.StatusDone {
		t.Fatalf("status = %v, want done", got)
	}
}

func TestResolveFreshCacheSkipsAPI(t *testing.T) {
	lms := &fakeLMS{configured: true, userID: "u1"}
	status, _, metadata := statusFixture(t, lms)

	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	status.now = func() time.Time { return now }

	if err := metadata.PutSubmission("123", domain.SubmissionRecord{
		HasSubmission: false,
		CheckedAt:     now.Add(-30 * time.Minute),
	}); err != nil {
		t.Fatalf("PutSubmission: %v", err)
	}

	item := domain.Item{ID: "123", Type: domain.TypeAssignment}
	due := now.Add(-time.Hour)
	if got := status.Resolve(context.Background(), item, due, time.UTC); got != domain.StatusOverdue {
		t.Fatalf("status = %v, want overdue", got)
	}
	if lms.submissionCalls != 0 {
		t.Errorf("fresh record should not trigger an API call, got %d", lms.submissionCalls)
	}
}

func TestResolveStaleCacheTriggersCheck(t *testing.T) {
	lms := &fakeLMS{
		configured: true,
		userID:     "u1",
		submission: schoology.SubmissionResult{HasSubmission: true},
	}
	status, _, metadata := statusFixture(t, lms)

	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	status.now = func() time.Time { return now }

	if err := metadata.PutSubmission("123", domain.SubmissionRecord{
		HasSubmission: false,
		CheckedAt:     now.Add(-2 * time.Hour),
	}); err != nil {
		t.Fatalf("PutSubmission: %v", err)
	}

	item := domain.Item{ID: "123", Type: domain.TypeAssignment}
	if got := status.Resolve(context.Background(), item, now.Add(time.Hour), time.UTC); got != domain.StatusDone {
		t.Fatalf("status = %v, want done", got)
	}
	if lms.submissionCalls != 1 {
		t.Fatalf("expected exactly one submission check, got %d", lms.submissionCalls)
	}

	rec, ok := metadata.Submission("123")
	if !ok || !rec.HasSubmission {
		t.Error("live result should be cached")
	}
}

func TestResolveDisabledRecord(t *testing.T) {
	status, _, metadata := statusFixture(t, &fakeLMS{configured: true, userID: "u1"})
	status.now = func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC) }

	if err := metadata.PutSubmission("123", domain.SubmissionRecord{
		SubmissionsDisabled: true,
		CheckedAt:           time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("PutSubmission: %v", err)
	}

	// Disabled records never expire into a re-check.
	item := domain.Item{ID: "123", Type: domain.TypeAssignment}
	if got := status.Resolve(context.Background(), item, time.Time{}, time.UTC); got != domain.StatusDisabled {
		t.Fatalf("status = %v, want disabled", got)
	}
}

func TestResolveDiscussionNeverChecked(t *testing.T) {
	lms := &fakeLMS{configured: true, userID: "u1"}
	status, _, _ := statusFixture(t, lms)

	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	status.now = func() time.Time { return now }

	item := domain.Item{ID: "31337", Type: domain.TypeDiscussion}
	if got := status.Resolve(context.Background(), item, now.Add(time.Hour), time.UTC); got != domain.StatusNotDue {
		t.Fatalf("upcoming discussion = %v, want not due", got)
	}
	if got := status.Resolve(context.Background(), item, now.Add(-time.Hour), time.UTC); got != domain.StatusOverdue {
		t.Fatalf("past discussion = %v, want overdue", got)
	}
	if lms.submissionCalls != 0 {
		t.Errorf("discussions must never hit the submission API, got %d calls", lms.submissionCalls)
	}
}

func TestResolveCachedSubmissionBeatsTypeGate(t *testing.T) {
	lms := &fakeLMS{configured: true, userID: "u1"}
	status, _, metadata := statusFixture(t, lms)

	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	status.now = func() time.Time { return now }

	// A discussion can carry a cached submission (e.g. replies synced by
	// an earlier sweep); that record still means done.
	if err := metadata.PutSubmission("31337", domain.SubmissionRecord{
		HasSubmission: true,
		CheckedAt:     now.Add(-48 * time.Hour),
	}); err != nil {
		t.Fatalf("PutSubmission: %v", err)
	}

	item := domain.Item{ID: "31337", Type: domain.TypeDiscussion}
	if got := status.Resolve(context.Background(), item, now.Add(-time.Hour), time.UTC); got != domain.StatusDone {
		t.Fatalf("discussion with cached submission = %v, want done", got)
	}
	if lms.submissionCalls != 0 {
		t.Errorf("cached record should short-circuit the API, got %d calls", lms.submissionCalls)
	}
}

func TestResolveUnknownCases(t *testing.T) {
	lms := &fakeLMS{configured: true, userID: "u1"}
	status, _, _ := statusFixture(t, lms)
	status.now = func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	// Non-assignment, non-discussion types carry no submission state.
	ev := domain.Item{ID: "123", Type: domain.TypeEvent}
	if got := status.Resolve(ctx, ev, time.Time{}, time.UTC); got != domain.StatusUnknown {
		t.Errorf("event status = %v, want unknown", got)
	}

	if lms.submissionCalls != 0 {
		t.Errorf("no submission checks expected, got %d", lms.submissionCalls)
	}
}

func TestResolveUnverifiableItemsFallBackToDueDate(t *testing.T) {
	lms := &fakeLMS{configured: true, userID: "u1"}
	status, _, _ := statusFixture(t, lms)
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	status.now = func() time.Time { return now }
	ctx := context.Background()

	// No section mapping means no way to query; the due date still tells
	// the user whether the item is late.
	orphan := domain.Item{ID: "nope", Type: domain.TypeAssignment}
	if got := status.Resolve(ctx, orphan, now.Add(time.Hour), time.UTC); got != domain.StatusNotDue {
		t.Errorf("upcoming orphan = %v, want not due", got)
	}
	if got := status.Resolve(ctx, orphan, now.Add(-time.Hour), time.UTC); got != domain.StatusOverdue {
		t.Errorf("past orphan = %v, want overdue", got)
	}

	// The custom pseudo-section never resolves remotely.
	custom := domain.Item{ID: "900", Type: domain.TypeAssignment}
	if got := status.Resolve(ctx, custom, now.Add(time.Hour), time.UTC); got != domain.StatusNotDue {
		t.Errorf("custom status = %v, want not due", got)
	}

	if lms.submissionCalls != 0 {
		t.Errorf("no submission checks expected, got %d", lms.submissionCalls)
	}
}

func TestResolveWithoutUserIdentity(t *testing.T) {
	lms := &fakeLMS{configured: true}
	status, marks, _ := statusFixture(t, lms)
	status.now = func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC) }

	if err := marks.Mark("123", ""); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	item := domain.Item{ID: "123", Type: domain.TypeAssignment}
	if got := status.Resolve(context.Background(), item, time.Time{}, time.UTC); got != domain.StatusUnknown {
		t.Fatalf("status without user id = %v, want unknown", got)
	}
}

func TestResolveOfflineIsUnknownAndUncached(t *testing.T) {
	lms := &fakeLMS{
		configured:    true,
		userID:        "u1",
		submissionErr: offline.ErrOffline,
	}
	status, _, metadata := statusFixture(t, lms)
	status.now = func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC) }

	item := domain.Item{ID: "123", Type: domain.TypeAssignment}
	if got := status.Resolve(context.Background(), item, time.Time{}, time.UTC); got != domain.StatusUnknown {
		t.Fatalf("status = %v, want unknown", got)
	}
	if _, ok := metadata.Submission("123"); ok {
		t.Error("failed check must not be cached")
	}
}

func TestResolveAPIErrorIsUnknown(t *testing.T) {
	lms := &fakeLMS{
		configured:    true,
		userID:        "u1",
		submissionErr: errors.New("boom"),
	}
	status, _, _ := statusFixture(t, lms)
	status.now = func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC) }

	item := domain.Item{ID: "123", Type: domain.TypeAssignment}
	if got := status.Resolve(context.Background(), item, time.Time{}, time.UTC); got != domain.StatusUnknown {
		t.Fatalf("status = %v, want unknown", got)
	}
}

func TestMarkOverdue(t *testing.T) {
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	lms := &fakeLMS{
		configured: true,
		userID:     "u1",
		events: []schoology.Event{
			{ID: "1", Type: "assignment", AssignmentID: "a1", Start: "2025-09-08 09:00:00"},
			{ID: "2", Type: "assignment", Start: "2025-09-09 09:00:00"},
			{ID: "3", Type: "assignment", Start: "2025-09-12 09:00:00"}, // future
			{ID: "4", Type: "event", Start: "2025-09-01 09:00:00"},     // not an assignment
		},
	}
	status, marks, _ := statusFixture(t, lms)
	status.now = func() time.Time { return now }

	marked, err := status.MarkOverdue(context.Background(), time.UTC, 60*24*time.Hour)
	if err != nil {
		t.Fatalf("MarkOverdue: %v", err)
	}
	if marked != 2 {
		t.Fatalf("marked = %d, want 2", marked)
	}
	if !marks.HasAnyFor("a1") {
		t.Error("assignment_id a1 should be marked")
	}
	if !marks.HasAnyFor("2") {
		t.Error("item 2 should be marked")
	}
	if marks.HasAnyFor("3") || marks.HasAnyFor("4") {
		t.Error("future and non-assignment items must not be marked")
	}

	// A second sweep finds nothing new.
	marked, err = status.MarkOverdue(context.Background(), time.UTC, 60*24*time.Hour)
	if err != nil {
		t.Fatalf("second MarkOverdue: %v", err)
	}
	if marked != 0 {
		t.Fatalf("second sweep marked = %d, want 0", marked)
	}
}
