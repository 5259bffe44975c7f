package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"schoolcal/internal/domain"
	"schoolcal/internal/offline"
	"schoolcal/internal/storage"
)

// MetadataService maintains the section and item lookup maps used to
// resolve course names for feed items, plus the cached per-item
// submission records. The maps live in memory and are persisted to the
// cache document after every rebuild.
type MetadataService struct {
	store    *storage.Store
	lms      lmsAPI
	log      *logrus.Entry
	daysBack time.Duration
	daysFwd  time.Duration
	now      func() time.Time

	group singleflight.Group

	mu           sync.RWMutex
	sectionNames map[string]string
	itemSections map[string]string
	submissions  map[string]domain.SubmissionRecord
}

func NewMetadataService(store *storage.Store, lms lmsAPI, daysBack, daysFwd time.Duration, log *logrus.Entry) *MetadataService {
	return &MetadataService{
		store:        store,
		lms:          lms,
		log:          log,
		daysBack:     daysBack,
		daysFwd:      daysFwd,
		now:          time.Now,
		sectionNames: map[string]string{},
		itemSections: map[string]string{},
		submissions:  map[string]domain.SubmissionRecord{},
	}
}

// Load makes the lookup maps available. Without force it returns as
// soon as usable maps exist, first from memory, then from the persisted
// cache document. With force it always rebuilds from the API. Concurrent
// callers share a single in-flight rebuild.
func (s *MetadataService) Load(ctx context.Context, force bool) error {
	if !force {
		s.mu.RLock()
		ready := len(s.sectionNames) > 0 && len(s.itemSections) > 0
		s.mu.RUnlock()
		if ready {
			return nil
		}

		doc := s.store.LoadCache()
		if doc.HasMaps() {
			s.mu.Lock()
			s.sectionNames = copyStrings(doc.SectionIDToName)
			s.itemSections = copyStrings(doc.ItemIDToSection)
			s.submissions = copyRecords(doc.AssignmentSubmissions)
			s.mu.Unlock()
			return nil
		}
	}

	key := "load"
	if force {
		key = "force"
	}
	_, err, _ := s.group.Do(key, func() (interface{}, error) {
		return nil, s.rebuild(ctx)
	})
	return err
}

func (s *MetadataService) rebuild(ctx context.Context) error {
	if !s.lms.IsConfigured() {
		return fmt.Errorf("schoology API credentials are not configured")
	}

	now := s.now()

	sectionNames := map[string]string{}
	sections, err := s.lms.Sections(ctx)
	if err != nil {
		if !offline.IsOffline(err) {
			return fmt.Errorf("load sections: %w", err)
		}
		s.log.Infof("Offline while loading sections, continuing with cached names: %v", err)
	}
	for _, sec := range sections {
		sectionNames[string(sec.ID)] = sec.DisplayName()
	}

	doc := s.store.LoadCache()
	if len(sectionNames) == 0 {
		sectionNames = copyStrings(doc.SectionIDToName)
	}

	// Incremental window: resume from the previous build's watermark so
	// items mapped in earlier sweeps survive even after they leave the
	// lookback window.
	start := now.Add(-s.daysBack)
	if doc.GeneratedAt.After(start) {
		start = doc.GeneratedAt
	}
	end := now.Add(s.daysFwd)

	itemSections := copyStrings(doc.ItemIDToSection)
	events, err := s.lms.Events(ctx, start, end)
	if err != nil {
		if !offline.IsOffline(err) {
			return fmt.Errorf("load events: %w", err)
		}
		s.log.Infof("Offline while loading events, keeping %d cached item mappings: %v", len(itemSections), err)
	}
	// Only map items onto sections we can name; an unknown section id
	// (or realm id) would produce mappings that never resolve.
	for _, ev := range events {
		sectionID := string(ev.SectionID)
		if sectionID == "" {
			sectionID = string(ev.RealmID)
		}
		if _, known := sectionNames[sectionID]; !known {
			continue
		}
		itemSections[string(ev.ID)] = sectionID
		if ev.Type == "assignment" && ev.AssignmentID != "" {
			itemSections[string(ev.AssignmentID)] = sectionID
		}
	}

	s.mu.Lock()
	s.sectionNames = sectionNames
	s.itemSections = itemSections
	s.submissions = copyRecords(doc.AssignmentSubmissions)
	s.mu.Unlock()

	if err := s.store.UpdateCache(func(d *storage.CacheDocument) {
		d.SectionIDToName = copyStrings(sectionNames)
		d.ItemIDToSection = copyStrings(itemSections)
		d.GeneratedAt = now
	}); err != nil {
		return fmt.Errorf("persist metadata cache: %w", err)
	}

	s.log.Infof("Rebuilt metadata maps: %d sections, %d items", len(sectionNames), len(itemSections))
	return nil
}

// SectionFor returns the section id an item belongs to, if known.
func (s *MetadataService) SectionFor(itemID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.itemSections[itemID]
	return id, ok
}

// SectionName returns the display name of a section, if known.
func (s *MetadataService) SectionName(sectionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.sectionNames[sectionID]
	return name, ok
}

// Submission returns the cached submission record for an item.
func (s *MetadataService) Submission(itemID string) (domain.SubmissionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.submissions[itemID]
	return rec, ok
}

// PutSubmission caches a submission record in memory and persists it.
func (s *MetadataService) PutSubmission(itemID string, rec domain.SubmissionRecord) error {
	s.mu.Lock()
	s.submissions[itemID] = rec
	s.mu.Unlock()

	if err := s.store.UpdateCache(func(d *storage.CacheDocument) {
		d.AssignmentSubmissions[itemID] = rec
	}); err != nil {
		return fmt.Errorf("persist submission record: %w", err)
	}
	return nil
}

// Submissions returns a copy of all cached submission records.
func (s *MetadataService) Submissions() map[string]domain.SubmissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRecords(s.submissions)
}

// Counts reports the size of the lookup maps for the dashboard.
func (s *MetadataService) Counts() (sections, items int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sectionNames), len(s.itemSections)
}

func copyStrings(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyRecords(src map[string]domain.SubmissionRecord) map[string]domain.SubmissionRecord {
	dst := make(map[string]domain.SubmissionRecord, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
