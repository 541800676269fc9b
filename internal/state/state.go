package state

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SoarinFerret/SessionTally/internal/session"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one stored tally of a source log.
type Run struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	GeneratedAt time.Time       `json:"generated_at"`
	Bounds      *session.Bounds `json:"bounds,omitempty"`
	Lines       int             `json:"lines"`
	Skipped     int             `json:"skipped"`
	Users       session.Report  `json:"users"`
}

// User returns the summary for username.
func (r Run) User(username string) (session.Summary, error) {
	s, ok := r.Users[username]
	if !ok {
		return session.Summary{}, fmt.Errorf("user %s not found in %s", username, r.Source)
	}
	return s, nil
}

// State is the top-level structure stored in the state.json file.
type State struct {
	Runs      map[string]Run `json:"runs"`
	Version   int            `json:"version"`
	HeartBeat time.Time      `json:"-"` // not stored in JSON
}

func (s *State) GetRun(source string) (*Run, error) {
	run, exists := s.Runs[source]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, source)
	}
	return &run, nil
}

// Sources lists stored sources in lexical order.
func (s *State) Sources() []string {
	sources := make([]string, 0, len(s.Runs))
	for src := range s.Runs {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources
}
