package service

import (
	"fmt"
	"time"

	"schoolcal/internal/storage"
)

// SettingsService exposes the runtime-tunable knobs persisted in the
// cache document's settings object, falling back to the env defaults.
type SettingsService struct {
	store         *storage.Store
	defaultStack  bool
	defaultAnchor string // HH:MM
}

func NewSettingsService(store *storage.Store, defaultStack bool, defaultAnchor string) *SettingsService {
	return &SettingsService{
		store:         store,
		defaultStack:  defaultStack,
		defaultAnchor: defaultAnchor,
	}
}

// StackEvents reports whether global stacking is enabled.
func (s *SettingsService) StackEvents() bool {
	settings := s.store.LoadCache().Settings
	if settings.StackEvents != nil {
		return *settings.StackEvents
	}
	return s.defaultStack
}

// StackStart returns the stacking anchor time-of-day.
func (s *SettingsService) StackStart() (hour, min int) {
	settings := s.store.LoadCache().Settings
	for _, candidate := range []string{settings.StackStartTime, s.defaultAnchor} {
		if candidate == "" {
			continue
		}
		if t, err := time.Parse("15:04", candidate); err == nil {
			return t.Hour(), t.Minute()
		}
	}
	return 8, 25
}

// Update persists new settings values. Nil/empty arguments leave the
// corresponding setting untouched.
func (s *SettingsService) Update(stackEvents *bool, stackStart string) error {
	if stackStart != "" {
		if _, err := time.Parse("15:04", stackStart); err != nil {
			return fmt.Errorf("invalid stack start time %q", stackStart)
		}
	}
	return s.store.UpdateCache(func(doc *storage.CacheDocument) {
		if stackEvents != nil {
			doc.Settings.StackEvents = stackEvents
		}
		if stackStart != "" {
			doc.Settings.StackStartTime = stackStart
		}
	})
}
