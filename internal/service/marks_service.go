package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"schoolcal/internal/domain"
	"schoolcal/internal/storage"
)

// MarksService owns the manual "done" marks: a persisted set of scoped
// mark keys plus an in-memory mirror for fast lookups during feed
// generation. The mirror only reflects committed writes; a failed
// persist leaves it untouched.
type MarksService struct {
	store *storage.Store
	log   *logrus.Entry

	mu   sync.RWMutex
	done map[string]bool
}

func NewMarksService(store *storage.Store, log *logrus.Entry) *MarksService {
	done := map[string]bool{}
	for key, v := range store.LoadUserData().ManualDone {
		if v {
			done[key] = true
		}
	}
	return &MarksService{store: store, log: log, done: done}
}

// Mark records an item (occurrence) as done. Marking an already-marked
// key is a no-op beyond the persistence write.
func (m *MarksService) Mark(itemID, token string) error {
	key := domain.ManualMarkKey(itemID, domain.NormalizeOccurrenceToken(token))
	if err := m.store.UpdateUserData(func(d *storage.UserData) {
		d.ManualDone[key] = true
	}); err != nil {
		return fmt.Errorf("persist mark: %w", err)
	}

	m.mu.Lock()
	m.done[key] = true
	m.mu.Unlock()

	if token != "" {
		m.log.Infof("Marked item %s (occ=%s) as done", itemID, token)
	} else {
		m.log.Infof("Marked item %s as done", itemID)
	}
	return nil
}

// Unmark removes a manual mark so the real submission status applies
// again. Unmarking an absent key succeeds and just logs that nothing
// changed.
func (m *MarksService) Unmark(itemID, token string) error {
	key := domain.ManualMarkKey(itemID, domain.NormalizeOccurrenceToken(token))

	existed := false
	if err := m.store.UpdateUserData(func(d *storage.UserData) {
		if d.ManualDone[key] {
			existed = true
			delete(d.ManualDone, key)
		}
	}); err != nil {
		return fmt.Errorf("persist unmark: %w", err)
	}

	m.mu.Lock()
	delete(m.done, key)
	m.mu.Unlock()

	if existed {
		m.log.Infof("Unmarked item %s as done", itemID)
	} else {
		m.log.Infof("Item %s (%s) was not marked as done", itemID, orAll(token))
	}
	return nil
}

// IsMarked reports whether the exact scoped key is marked done.
func (m *MarksService) IsMarked(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.done[key]
}

// HasAnyFor reports whether the item has any mark at all, scoped or not.
// The dashboard counts an item submitted if any occurrence was marked.
func (m *MarksService) HasAnyFor(itemID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.done[itemID] {
		return true
	}
	prefix := itemID + "|"
	for key := range m.done {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func orAll(token string) string {
	if token == "" {
		return "all"
	}
	return token
}
