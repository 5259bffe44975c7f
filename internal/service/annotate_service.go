package service

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/sirupsen/logrus"

	"schoolcal/internal/clients/feed"
	"schoolcal/internal/domain"
)

// feedSource is the slice of the feed client the annotator consumes.
type feedSource interface {
	Fetch(ctx context.Context, url string) (*ical.Calendar, error)
}

// AnnotateService is the feed orchestrator. It fetches the upstream
// calendar, identifies and classifies each entry, restacks due times,
// resolves submission status, rewrites summaries and descriptions,
// appends custom event occurrences and re-emits the calendar.
type AnnotateService struct {
	feed        feedSource
	metadata    *MetadataService
	status      *StatusService
	marks       *MarksService
	custom      *CustomService
	settings    *SettingsService
	courseTimes CourseDueTimes
	loc         *time.Location
	baseURL     string
	slot        time.Duration
	daysBack    time.Duration
	daysFwd     time.Duration
	now         func() time.Time
	log         *logrus.Entry
}

func NewAnnotateService(
	source feedSource,
	metadata *MetadataService,
	status *StatusService,
	marks *MarksService,
	custom *CustomService,
	settings *SettingsService,
	courseTimes CourseDueTimes,
	loc *time.Location,
	baseURL string,
	slot, daysBack, daysFwd time.Duration,
	log *logrus.Entry,
) *AnnotateService {
	return &AnnotateService{
		feed:        source,
		metadata:    metadata,
		status:      status,
		marks:       marks,
		custom:      custom,
		settings:    settings,
		courseTimes: courseTimes,
		loc:         loc,
		baseURL:     baseURL,
		slot:        slot,
		daysBack:    daysBack,
		daysFwd:     daysFwd,
		now:         time.Now,
		log:         log,
	}
}

// deferredEntry is a feed entry whose section could not be resolved on
// the first pass. It holds everything needed to retry after a forced
// metadata refresh.
type deferredEntry struct {
	comp *ical.Component
	item domain.Item
	due  time.Time // original local start, before restacking
}

// Annotate produces the annotated calendar for one upstream feed URL.
func (s *AnnotateService) Annotate(ctx context.Context, feedURL string) ([]byte, error) {
	cal, err := s.feed.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	if err := s.metadata.Load(ctx, false); err != nil {
		s.log.Warnf("Metadata unavailable, continuing without course names: %v", err)
	}

	now := s.now()
	anchorHour, anchorMin := s.settings.StackStart()
	stacking := s.settings.StackEvents()
	stacker := NewStacker(s.loc, anchorHour, anchorMin, s.slot)

	var kept, others []*ical.Component
	var deferred []deferredEntry
	var tooOld, tooNew, invalid int

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			others = append(others, comp)
			continue
		}

		item := feed.ItemFromComponent(comp, s.loc)
		id, typ, ok := Identify(item)
		if !ok {
			invalid++
			s.log.Warnf("Dropping entry without a recognizable item link: %q", item.Summary)
			continue
		}
		item.ID, item.Type = id, typ

		switch Classify(item, now, s.daysBack, s.daysFwd) {
		case DispositionInvalid:
			invalid++
			s.log.Warnf("Dropping entry %s without a start time: %q", id, item.Summary)
			continue
		case DispositionTooOld:
			tooOld++
			continue
		case DispositionTooNew:
			tooNew++
			continue
		}

		due := item.StartIn(s.loc)

		sectionID, known := s.metadata.SectionFor(id)
		if !known {
			deferred = append(deferred, deferredEntry{comp: comp, item: item, due: due})
			continue
		}
		s.annotate(ctx, comp, item, due, sectionID, stacker, stacking)
		kept = append(kept, comp)
	}

	kept = append(kept, s.customComponents(ctx, stacker, stacking, now)...)
	kept = append(kept, s.resolveDeferred(ctx, deferred, stacker, stacking, now)...)

	s.log.Infof("Annotated feed: %d kept, %d deferred, %d too old, %d too new, %d invalid",
		len(kept), len(deferred), tooOld, tooNew, invalid)

	cal.Children = append(others, kept...)
	out, err := feed.Encode(cal)
	if err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	return out, nil
}

// annotate restacks, statuses and decorates one in-window entry and
// writes it back onto its component. due is the entry's original local
// start; the occurrence token and the overdue cutoff both key off it.
func (s *AnnotateService) annotate(ctx context.Context, comp *ical.Component, item domain.Item, due time.Time, sectionID string, stacker *Stacker, stacking bool) {
	if name, ok := s.metadata.SectionName(sectionID); ok {
		item.Location = domain.ShortCourseName(name)
	}

	if stacking {
		slot := stacker.Peek(due)
		SetDueTime(&item, due, slot.Hour(), slot.Minute(), s.loc, s.slot)
		stacker.Advance(due)
	} else if hour, min, ok := s.courseTimes.Lookup(item.Location); ok {
		SetDueTime(&item, due, hour, min, s.loc, s.slot)
	}

	status := s.status.Resolve(ctx, item, due, s.loc)
	token := domain.OccurrenceToken(due, s.loc)
	RewriteDescription(&item, status, due, token, s.baseURL)
	DecorateSummary(&item, status)
	feed.ApplyToComponent(comp, item)
}

// customComponents expands every custom event definition into VEVENTs,
// sharing the request's stacker so custom items pack in with feed items.
func (s *AnnotateService) customComponents(ctx context.Context, stacker *Stacker, stacking bool, now time.Time) []*ical.Component {
	defs, err := s.custom.List()
	if err != nil {
		s.log.Warnf("Failed to load custom events: %v", err)
		return nil
	}

	var out []*ical.Component
	for _, def := range defs {
		for _, occ := range s.custom.Expand(def) {
			item := domain.Item{
				ID:          def.ID,
				Type:        def.ItemType(),
				Summary:     def.Name,
				Description: def.Description,
				Location:    def.CourseName,
				Start:       occ,
			}

			switch {
			case stacking:
				slot := stacker.Peek(occ)
				SetDueTime(&item, occ, slot.Hour(), slot.Minute(), s.loc, s.slot)
				stacker.Advance(occ)
			case def.Time != "":
				item.End = occ.Add(s.slot)
			default:
				hour, min, ok := s.courseTimes.Lookup(def.CourseName)
				if !ok {
					hour, min = 12, 0
				}
				SetDueTime(&item, occ, hour, min, s.loc, s.slot)
			}

			status := s.status.Resolve(ctx, item, occ, s.loc)
			if item.Type == domain.TypeAssignment {
				token := domain.OccurrenceToken(occ, s.loc)
				RewriteDescription(&item, status, occ, token, s.baseURL)
			} else if !occ.IsZero() {
				item.Description = occ.Format("📅 Mon, Jan 2 at 3:04 PM") + "\n\n" + item.Description
			}
			if !def.Repeat.Repeats() {
				item.Description += fmt.Sprintf("\n\n✏️ Edit: %s/custom?edit=%s", s.baseURL, def.ID)
			}
			item.Description = collapseBlankRuns(item.Description)
			DecorateSummary(&item, status)

			uid := fmt.Sprintf("custom-%s-%s@schoolcal", def.ID, occ.Format("20060102T1504"))
			out = append(out, feed.NewComponent(item, uid, now))
		}
	}
	return out
}

// resolveDeferred handles entries whose item-to-section mapping was
// missing on the first pass. When one of them is still upcoming the
// mapping is likely just stale, so the metadata is force-refreshed once
// and the entries retried; entries that stay unresolved are annotated
// without a course, with status judged on the due date alone.
func (s *AnnotateService) resolveDeferred(ctx context.Context, deferred []deferredEntry, stacker *Stacker, stacking bool, now time.Time) []*ical.Component {
	if len(deferred) == 0 {
		return nil
	}

	if s.shouldRetry(deferred, now) {
		if err := s.metadata.Load(ctx, true); err != nil {
			s.log.Warnf("Forced metadata refresh failed: %v", err)
		}
	}

	var out []*ical.Component
	for _, d := range deferred {
		sectionID, known := s.metadata.SectionFor(d.item.ID)
		if !known {
			s.log.Debugf("No section mapping for item %s, annotating without a course", d.item.ID)
		}
		s.annotate(ctx, d.comp, d.item, d.due, sectionID, stacker, stacking)
		out = append(out, d.comp)
	}
	return out
}

// shouldRetry decides whether a forced refresh is worth the API cost:
// only when at least one unresolved entry is still in the future, since
// past entries never gain mappings.
func (s *AnnotateService) shouldRetry(deferred []deferredEntry, now time.Time) bool {
	for _, d := range deferred {
		if d.item.Start.After(now) {
			return true
		}
	}
	return false
}

// Metrics are the dashboard counts derived from the cached submission
// records and the manual marks.
type Metrics struct {
	Sections    int `json:"sections"`
	Items       int `json:"items"`
	Submitted   int `json:"submitted"`
	Unsubmitted int `json:"unsubmitted"`
	Disabled    int `json:"disabled"`
}

// Metrics summarizes tracked assignments. An item counts as submitted
// when either the LMS recorded a submission or the user manually marked
// any of its occurrences done.
func (s *AnnotateService) Metrics() Metrics {
	sections, items := s.metadata.Counts()
	m := Metrics{Sections: sections, Items: items}
	for id, rec := range s.metadata.Submissions() {
		switch {
		case rec.Disabled():
			m.Disabled++
		case rec.HasSubmission || s.marks.HasAnyFor(id):
			m.Submitted++
		default:
			m.Unsubmitted++
		}
	}
	return m
}
