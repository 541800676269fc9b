// Package api serves stored tally runs over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/SoarinFerret/SessionTally/internal/report"
	"github.com/SoarinFerret/SessionTally/internal/state"
)

const requestsPerMinute = 120

type server struct {
	mgr    *state.Manager
	logger zerolog.Logger
}

// NewRouter returns the HTTP handler for the daemon API. gatherer backs
// /metrics; nil uses the default registry.
func NewRouter(mgr *state.Manager, gatherer prometheus.Gatherer, logger zerolog.Logger) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &server{mgr: mgr, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/sources", s.sources)
		r.Get("/reports", s.latest)
		r.Get("/reports/users/{user}", s.user)
	})
	return r
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	st := s.mgr.GetState()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"heartbeat": st.HeartBeat,
	})
}

func (s *server) sources(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.mgr.Sources())
}

func (s *server) latest(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":           run.ID,
		"source":       run.Source,
		"generated_at": run.GeneratedAt,
		"bounds":       run.Bounds,
		"users":        report.Rows(run.Users),
	})
}

func (s *server) user(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "user")
	summary, err := run.User(name)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report.Row{User: name, Summary: summary})
}

func (s *server) lookup(w http.ResponseWriter, r *http.Request) (state.Run, bool) {
	run, err := s.mgr.Latest(r.URL.Query().Get("source"))
	if errors.Is(err, state.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return state.Run{}, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return state.Run{}, false
	}
	return run, true
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("write response")
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
