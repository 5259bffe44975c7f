package storage

import (
	"time"

	"schoolcal/internal/domain"
)

// CacheDocument is the persisted metadata cache: section names, the
// item->section map, cached submission records, the generation watermark
// and the runtime-tunable settings.
type CacheDocument struct {
	SectionIDToName       map[string]string                  `json:"section_id_to_name"`
	ItemIDToSection       map[string]string                  `json:"item_id_to_section"`
	AssignmentSubmissions map[string]domain.SubmissionRecord `json:"assignment_submissions"`
	GeneratedAt           time.Time                          `json:"generated_at"`
	Settings              Settings                           `json:"settings"`
}

func (d *CacheDocument) init() {
	if d.SectionIDToName == nil {
		d.SectionIDToName = map[string]string{}
	}
	if d.ItemIDToSection == nil {
		d.ItemIDToSection = map[string]string{}
	}
	if d.AssignmentSubmissions == nil {
		d.AssignmentSubmissions = map[string]domain.SubmissionRecord{}
	}
}

// HasMaps reports whether the document contains both metadata maps, the
// condition for the no-network fast path.
func (d *CacheDocument) HasMaps() bool {
	return len(d.SectionIDToName) > 0 && len(d.ItemIDToSection) > 0
}

// Settings are the runtime-configurable knobs stored inside the cache
// document. Nil/empty fields mean "use the configured default".
type Settings struct {
	StackEvents    *bool  `json:"stack_events,omitempty"`
	StackStartTime string `json:"stack_start_time,omitempty"` // HH:MM
}

// UserData is the persisted user-data document: the manual "done" marks
// keyed by scoped mark keys, and the custom event definitions.
type UserData struct {
	ManualDone   map[string]bool      `json:"manual_done"`
	CustomEvents []domain.CustomEvent `json:"custom_events"`
}

func (d *UserData) init() {
	if d.ManualDone == nil {
		d.ManualDone = map[string]bool{}
	}
	if d.CustomEvents == nil {
		d.CustomEvents = []domain.CustomEvent{}
	}
}
