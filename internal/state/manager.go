package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/SoarinFerret/SessionTally/internal/tally"
)

const stateVersion = 1

// Manager handles reading and writing state.json safely.
type Manager struct {
	path  string
	mu    sync.Mutex
	state *State
	now   func() time.Time
}

// NewManager loads or initializes a new state manager.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path, now: time.Now}

	if err := m.load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.state = &State{
				Runs:      make(map[string]Run),
				HeartBeat: m.now(),
				Version:   stateVersion,
			}
			if err := m.save(); err != nil {
				return nil, err
			}
			return m, nil
		}
		return nil, err
	}

	return m, nil
}

// load reads the state file into memory.
func (m *Manager) load() error {
	var s State

	// read mtime of file to set heartbeat
	info, err := os.Stat(m.path)
	if err != nil {
		return err
	}
	s.HeartBeat = info.ModTime()

	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.Runs == nil {
		s.Runs = make(map[string]Run)
	}

	m.state = &s
	return nil
}

// save atomically writes the state file to disk.
func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(m.path, data, 0644)
}

// Heartbeat stamps the state file's mtime. The in-memory heartbeat advances
// even when the file cannot be touched.
func (m *Manager) Heartbeat() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.now()
	m.state.HeartBeat = t
	if err := os.Chtimes(m.path, t, t); err != nil {
		return fmt.Errorf("touch state file: %w", err)
	}
	return nil
}

// Record stores res as the latest run of source and persists it.
func (m *Manager) Record(source string, res tally.Result) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := Run{
		ID:          uuid.NewString(),
		Source:      source,
		GeneratedAt: m.now(),
		Bounds:      res.Bounds,
		Lines:       res.Lines,
		Skipped:     res.Skipped,
		Users:       res.Report,
	}
	m.state.Runs[source] = run
	return run, m.save()
}

// Latest returns the stored run for source. An empty source selects the
// first source in lexical order.
func (m *Manager) Latest(source string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if source == "" {
		sources := m.state.Sources()
		if len(sources) == 0 {
			return Run{}, ErrRunNotFound
		}
		source = sources[0]
	}
	run, err := m.state.GetRun(source)
	if err != nil {
		return Run{}, err
	}
	return *run, nil
}

func (m *Manager) Sources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Sources()
}

// Prune drops runs generated before cutoff and returns how many were removed.
func (m *Manager) Prune(cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for src, run := range m.state.Runs {
		if run.GeneratedAt.Before(cutoff) {
			delete(m.state.Runs, src)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, m.save()
}

// GetState returns a copy of the current state.
func (m *Manager) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make(map[string]Run, len(m.state.Runs))
	for k, v := range m.state.Runs {
		runs[k] = v
	}
	return State{Runs: runs, Version: m.state.Version, HeartBeat: m.state.HeartBeat}
}
