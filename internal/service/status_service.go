package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"schoolcal/internal/domain"
	"schoolcal/internal/offline"
)

// StatusService resolves the submission status of a feed item through
// the cascade: manual marks, then the cached record, then a live API
// check, then unknown when nothing can be determined.
type StatusService struct {
	marks    *MarksService
	metadata *MetadataService
	lms      lmsAPI
	log      *logrus.Entry
	maxAge   time.Duration
	now      func() time.Time
}

func NewStatusService(marks *MarksService, metadata *MetadataService, lms lmsAPI, maxAge time.Duration, log *logrus.Entry) *StatusService {
	return &StatusService{
		marks:    marks,
		metadata: metadata,
		lms:      lms,
		log:      log,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Resolve determines the status of one item occurrence. due is the
// item's original local due time, used both for the occurrence token
// and for choosing between not-due and overdue. loc is the display
// timezone.
func (s *StatusService) Resolve(ctx context.Context, item domain.Item, due time.Time, loc *time.Location) domain.Status {
	if s.lms.UserID() == "" {
		return domain.StatusUnknown
	}

	token := domain.OccurrenceToken(due, loc)
	key := domain.ManualMarkKey(item.ID, token)
	if s.marks.IsMarked(key) {
		return domain.StatusDone
	}
	if token != "" && s.marks.IsMarked(item.ID) {
		return domain.StatusDone
	}

	rec, cached := s.metadata.Submission(item.ID)
	if cached && rec.HasSubmission {
		return domain.StatusDone
	}

	// Discussions have no submission endpoint, so beyond cached or
	// manual marks their state is purely the due date.
	if item.Type == domain.TypeDiscussion {
		return s.notDoneStatus(due)
	}
	if item.Type != domain.TypeAssignment {
		return domain.StatusUnknown
	}

	if cached {
		if rec.Disabled() {
			return domain.StatusDisabled
		}
		if rec.FreshAt(s.now(), s.maxAge) {
			return s.notDoneStatus(due)
		}
	}

	// Custom and unmapped items are never remotely verifiable, so the
	// best available answer is the due-date comparison.
	sectionID, ok := s.metadata.SectionFor(item.ID)
	if !ok || sectionID == domain.PseudoSectionCustom {
		return s.notDoneStatus(due)
	}
	if !s.lms.IsConfigured() {
		return domain.StatusUnknown
	}

	result, err := s.lms.CheckSubmission(ctx, sectionID, item.ID)
	if err != nil {
		if offline.IsOffline(err) {
			s.log.Infof("Offline while checking submission for item %s: %v", item.ID, err)
		} else {
			s.log.Warnf("Submission check failed for item %s: %v", item.ID, err)
		}
		return domain.StatusUnknown
	}

	rec = domain.SubmissionRecord{
		HasSubmission:       result.HasSubmission,
		SubmissionsDisabled: result.SubmissionsDisabled,
		CheckedAt:           s.now(),
	}
	if err := s.metadata.PutSubmission(item.ID, rec); err != nil {
		s.log.Warnf("Failed to cache submission record for item %s: %v", item.ID, err)
	}

	if rec.HasSubmission {
		return domain.StatusDone
	}
	if rec.Disabled() {
		return domain.StatusDisabled
	}
	return s.notDoneStatus(due)
}

func (s *StatusService) notDoneStatus(due time.Time) domain.Status {
	if !due.IsZero() && due.Before(s.now()) {
		return domain.StatusOverdue
	}
	return domain.StatusNotDue
}

// MarkOverdue sweeps recent assignments and manually marks every one
// that is already past due, so the feed stops nagging about them.
func (s *StatusService) MarkOverdue(ctx context.Context, loc *time.Location, lookback time.Duration) (int, error) {
	now := s.now()
	events, err := s.lms.Events(ctx, now.Add(-lookback), now)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, ev := range events {
		if ev.Type != "assignment" {
			continue
		}
		start, ok := ev.StartTime(loc)
		if !ok || start.IsZero() || !start.Before(now) {
			continue
		}
		id := string(ev.AssignmentID)
		if id == "" {
			id = string(ev.ID)
		}
		if id == "" || s.marks.HasAnyFor(id) {
			continue
		}
		if err := s.marks.Mark(id, domain.OccurrenceToken(start, loc)); err != nil {
			return marked, err
		}
		marked++
	}
	s.log.Infof("Marked %d overdue assignments as done", marked)
	return marked, nil
}
