// Package server exposes the HTTP surface: the annotated feed endpoint
// and a small JSON API for marks, custom events, settings and metadata.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"schoolcal/internal/domain"
	"schoolcal/internal/offline"
	"schoolcal/internal/service"
)

type Server struct {
	annotate *service.AnnotateService
	metadata *service.MetadataService
	marks    *service.MarksService
	custom   *service.CustomService
	settings *service.SettingsService
	status   *service.StatusService

	loc      *time.Location
	lookback time.Duration
	log      *logrus.Entry
}

func New(
	annotate *service.AnnotateService,
	metadata *service.MetadataService,
	marks *service.MarksService,
	custom *service.CustomService,
	settings *service.SettingsService,
	status *service.StatusService,
	loc *time.Location,
	lookback time.Duration,
	log *logrus.Entry,
) *Server {
	return &Server{
		annotate: annotate,
		metadata: metadata,
		marks:    marks,
		custom:   custom,
		settings: settings,
		status:   status,
		loc:      loc,
		lookback: lookback,
		log:      log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /fetch", s.handleFetch)
	mux.HandleFunc("GET /api/mark-done/{id}", s.handleMarkDone)
	mux.HandleFunc("GET /api/unmark-done/{id}", s.handleUnmarkDone)
	mux.HandleFunc("POST /api/mark-overdue", s.handleMarkOverdue)
	mux.HandleFunc("POST /api/refresh-item-map", s.handleRefreshItemMap)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/custom", s.handleCustomList)
	mux.HandleFunc("POST /api/custom", s.handleCustomAdd)
	mux.HandleFunc("PUT /api/custom/{id}", s.handleCustomUpdate)
	mux.HandleFunc("DELETE /api/custom/{id}", s.handleCustomDelete)

	mux.HandleFunc("GET /api/settings", s.handleSettingsGet)
	mux.HandleFunc("POST /api/settings", s.handleSettingsSet)

	return mux
}

// handleFetch is the calendar-client-facing endpoint: it proxies the
// upstream feed through the annotation pipeline. Offline failures map
// to 503 so clients keep their last good copy instead of emptying the
// calendar.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	feedURL := r.URL.Query().Get("url")
	if feedURL == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}

	out, err := s.annotate.Annotate(r.Context(), feedURL)
	if err != nil {
		if offline.IsOffline(err) {
			s.log.Infof("Feed fetch while offline: %v", err)
			http.Error(w, "no wifi", http.StatusServiceUnavailable)
			return
		}
		s.log.Errorf("Feed annotation failed: %v", err)
		http.Error(w, "upstream feed error", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Write(out)
}

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.marks.Mark(id, r.URL.Query().Get("occ")); err != nil {
		s.httpError(w, err)
		return
	}
	fmt.Fprintf(w, "✅ Marked %s as done. You can close this tab.", id)
}

func (s *Server) handleUnmarkDone(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.marks.Unmark(id, r.URL.Query().Get("occ")); err != nil {
		s.httpError(w, err)
		return
	}
	fmt.Fprintf(w, "↩️ Unmarked %s. You can close this tab.", id)
}

func (s *Server) handleMarkOverdue(w http.ResponseWriter, r *http.Request) {
	marked, err := s.status.MarkOverdue(r.Context(), s.loc, s.lookback)
	if err != nil {
		s.httpError(w, err)
		return
	}
	s.writeJSON(w, map[string]int{"marked": marked})
}

func (s *Server) handleRefreshItemMap(w http.ResponseWriter, r *http.Request) {
	if err := s.metadata.Load(r.Context(), true); err != nil {
		s.httpError(w, err)
		return
	}
	sections, items := s.metadata.Counts()
	s.writeJSON(w, map[string]int{"sections": sections, "items": items})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.annotate.Metrics())
}

func (s *Server) handleCustomList(w http.ResponseWriter, r *http.Request) {
	events, err := s.custom.List()
	if err != nil {
		s.httpError(w, err)
		return
	}
	s.writeJSON(w, events)
}

func (s *Server) handleCustomAdd(w http.ResponseWriter, r *http.Request) {
	var ev domain.CustomEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	added, err := s.custom.Add(ev)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	s.writeJSON(w, added)
}

func (s *Server) handleCustomUpdate(w http.ResponseWriter, r *http.Request) {
	var ev domain.CustomEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.custom.Update(r.PathValue("id"), ev); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleCustomDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.custom.Delete(r.PathValue("id")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]string{"status": "ok"})
}

type settingsPayload struct {
	StackEvents    *bool  `json:"stack_events,omitempty"`
	StackStartTime string `json:"stack_start_time,omitempty"`
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	stack := s.settings.StackEvents()
	hour, min := s.settings.StackStart()
	s.writeJSON(w, settingsPayload{
		StackEvents:    &stack,
		StackStartTime: fmt.Sprintf("%02d:%02d", hour, min),
	})
}

func (s *Server) handleSettingsSet(w http.ResponseWriter, r *http.Request) {
	var p settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.settings.Update(p.StackEvents, p.StackStartTime); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.handleSettingsGet(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorf("Failed to encode response: %v", err)
	}
}

func (s *Server) httpError(w http.ResponseWriter, err error) {
	if offline.IsOffline(err) {
		http.Error(w, "no wifi", http.StatusServiceUnavailable)
		return
	}
	s.log.Errorf("Request failed: %v", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
