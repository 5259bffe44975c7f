package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"schoolcal/internal/domain"
	"schoolcal/internal/storage"
)

// CustomService manages user-defined calendar events: CRUD against the
// user data document, lazy date rollover for repeating events, and
// occurrence expansion for the feed.
type CustomService struct {
	store   *storage.Store
	log     *logrus.Entry
	loc     *time.Location
	horizon time.Duration
	now     func() time.Time
}

func NewCustomService(store *storage.Store, loc *time.Location, horizon time.Duration, log *logrus.Entry) *CustomService {
	return &CustomService{
		store:   store,
		log:     log,
		loc:     loc,
		horizon: horizon,
		now:     time.Now,
	}
}

// List returns all custom events, rotated so upcoming events come
// first in chronological order and past events trail in reverse
// chronological order. Repeating events whose stored date has passed
// are first rolled forward to their next occurrence and written back.
func (c *CustomService) List() ([]domain.CustomEvent, error) {
	if err := c.rollover(); err != nil {
		return nil, err
	}

	events := append([]domain.CustomEvent(nil), c.store.LoadUserData().CustomEvents...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].SortKey(c.loc).Before(events[j].SortKey(c.loc))
	})

	today := midnight(c.now().In(c.loc))
	var upcoming, past []domain.CustomEvent
	for _, ev := range events {
		if ev.SortKey(c.loc).Before(today) {
			past = append(past, ev)
		} else {
			upcoming = append(upcoming, ev)
		}
	}
	for i := len(past) - 1; i >= 0; i-- {
		upcoming = append(upcoming, past[i])
	}
	return upcoming, nil
}

// Add stores a new event under a fresh id and returns it.
func (c *CustomService) Add(ev domain.CustomEvent) (domain.CustomEvent, error) {
	ev.ID = uuid.NewString()
	normalize(&ev)
	if _, err := ev.StartLocal(c.loc); err != nil {
		return domain.CustomEvent{}, fmt.Errorf("invalid event date: %w", err)
	}
	if err := c.store.UpdateUserData(func(d *storage.UserData) {
		d.CustomEvents = append(d.CustomEvents, ev)
	}); err != nil {
		return domain.CustomEvent{}, fmt.Errorf("persist custom event: %w", err)
	}
	c.log.Infof("Added custom event %q (%s)", ev.Name, ev.ID)
	return ev, nil
}

// Update replaces the event with the matching id, keeping the id.
func (c *CustomService) Update(id string, ev domain.CustomEvent) error {
	normalize(&ev)
	if _, err := ev.StartLocal(c.loc); err != nil {
		return fmt.Errorf("invalid event date: %w", err)
	}
	found := false
	if err := c.store.UpdateUserData(func(d *storage.UserData) {
		for i := range d.CustomEvents {
			if d.CustomEvents[i].ID == id {
				ev.ID = id
				d.CustomEvents[i] = ev
				found = true
				return
			}
		}
	}); err != nil {
		return fmt.Errorf("persist custom event: %w", err)
	}
	if !found {
		return fmt.Errorf("custom event %s not found", id)
	}
	return nil
}

// Delete removes the event with the matching id.
func (c *CustomService) Delete(id string) error {
	found := false
	if err := c.store.UpdateUserData(func(d *storage.UserData) {
		kept := d.CustomEvents[:0]
		for _, ev := range d.CustomEvents {
			if ev.ID == id {
				found = true
				continue
			}
			kept = append(kept, ev)
		}
		d.CustomEvents = kept
	}); err != nil {
		return fmt.Errorf("persist custom events: %w", err)
	}
	if !found {
		return fmt.Errorf("custom event %s not found", id)
	}
	c.log.Infof("Deleted custom event %s", id)
	return nil
}

// Expand returns the local occurrence start times of one event inside
// the repeat horizon. Non-repeating events yield a single occurrence.
func (c *CustomService) Expand(ev domain.CustomEvent) []time.Time {
	start, err := ev.StartLocal(c.loc)
	if err != nil {
		c.log.Warnf("Skipping custom event %q with bad date %q: %v", ev.Name, ev.Date, err)
		return nil
	}
	repeat := domain.ParseRepeat(string(ev.Repeat))
	if !repeat.Repeats() {
		return []time.Time{start}
	}

	limit := c.now().In(c.loc).Add(c.horizon)
	var out []time.Time
	for n := 0; ; n++ {
		cur := occurrenceAt(start, repeat, n)
		if cur.After(limit) {
			break
		}
		out = append(out, cur)
	}
	return out
}

// rollover advances repeating events whose stored date has fallen into
// the past to the first occurrence on or after today, stepping from
// the original date so end-of-month clamping stays anchored.
func (c *CustomService) rollover() error {
	today := midnight(c.now().In(c.loc))
	return c.store.UpdateUserData(func(d *storage.UserData) {
		for i := range d.CustomEvents {
			ev := &d.CustomEvents[i]
			repeat := domain.ParseRepeat(string(ev.Repeat))
			if !repeat.Repeats() {
				continue
			}
			start, err := ev.StartLocal(c.loc)
			if err != nil || !midnight(start).Before(today) {
				continue
			}
			next := start
			for n := 1; midnight(next).Before(today); n++ {
				next = occurrenceAt(start, repeat, n)
			}
			ev.Date = next.Format("2006-01-02")
			c.log.Infof("Rolled custom event %q forward to %s", ev.Name, ev.Date)
		}
	})
}

func normalize(ev *domain.CustomEvent) {
	ev.Type = string(ev.ItemType())
	ev.Repeat = domain.ParseRepeat(string(ev.Repeat))
}

// occurrenceAt is the nth occurrence counted from the definition date.
// Monthly and yearly steps clamp the day to the end of short months, so
// a Jan 31 monthly event lands on Feb 28, not Mar 3. time.AddDate would
// normalize past the month boundary instead.
func occurrenceAt(origin time.Time, repeat domain.Repeat, n int) time.Time {
	switch repeat {
	case domain.RepeatDaily:
		return origin.AddDate(0, 0, n)
	case domain.RepeatWeekly:
		return origin.AddDate(0, 0, 7*n)
	case domain.RepeatMonthly:
		return addMonthsClamped(origin, n)
	case domain.RepeatYearly:
		return addMonthsClamped(origin, 12*n)
	default:
		return origin
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	m += time.Month(months)
	for m > 12 {
		m -= 12
		y++
	}
	for m < 1 {
		m += 12
		y--
	}
	if last := daysInMonth(y, m); d > last {
		d = last
	}
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, t.Location())
}

func daysInMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
