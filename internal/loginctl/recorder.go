package loginctl

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/SoarinFerret/SessionTally/internal/log"
	"github.com/SoarinFerret/SessionTally/internal/logline"
	"github.com/SoarinFerret/SessionTally/internal/metrics"
	"github.com/SoarinFerret/SessionTally/internal/session"
)

// Handler receives logind session changes.
type Handler interface {
	HandleLogin(user, sessionID string) error
	HandleLogout(sessionID string) error
	HandleLock(user, sessionID string) error
	HandleUnlock(user, sessionID string) error
	HandleSleep() error
	HandleWake() error
}

type tracked struct {
	user   string
	active bool
}

// Recorder appends Start/End lines for logind sessions to a log file.
type Recorder struct {
	mu       sync.Mutex
	path     string
	parser   logline.Parser
	sessions map[string]*tracked
	now      func() time.Time
	logger   zerolog.Logger
}

func NewRecorder(path string, parser logline.Parser) *Recorder {
	return &Recorder{
		path:     path,
		parser:   parser,
		sessions: make(map[string]*tracked),
		now:      time.Now,
		logger:   xlog.WithComponent("recorder"),
	}
}

// HandleLogin opens sessionID. A known idle session is reopened, which
// happens when logind re-emits SessionNew after wake.
func (r *Recorder) HandleLogin(user, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		s = &tracked{user: user}
		r.sessions[sessionID] = s
	}
	if s.active {
		return nil
	}
	return r.write(s, session.ActionStart)
}

// HandleLogout closes sessionID if it is active and forgets it.
func (r *Recorder) HandleLogout(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session ID %s not found", sessionID)
	}
	delete(r.sessions, sessionID)
	if !s.active {
		return nil
	}
	return r.write(s, session.ActionEnd)
}

func (r *Recorder) HandleLock(user, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session ID %s not found for %s", sessionID, user)
	}
	if !s.active {
		return nil
	}
	return r.write(s, session.ActionEnd)
}

func (r *Recorder) HandleUnlock(user, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		// Sessions opened before the daemon started are first seen here.
		s = &tracked{user: user}
		r.sessions[sessionID] = s
	}
	if s.active {
		return nil
	}
	return r.write(s, session.ActionStart)
}

// HandleSleep closes every active session.
func (r *Recorder) HandleSleep() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if !s.active {
			continue
		}
		if err := r.write(s, session.ActionEnd); err != nil {
			return fmt.Errorf("close session %s: %w", id, err)
		}
	}
	return nil
}

// HandleWake records nothing; sessions restart on unlock or SessionNew.
func (r *Recorder) HandleWake() error {
	return nil
}

// Active reports whether sessionID is currently open.
func (r *Recorder) Active(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return ok && s.active
}

// write must be called with r.mu held.
func (r *Recorder) write(s *tracked, action session.Action) error {
	line := r.parser.Format(session.Event{Time: r.now(), Username: s.user, Action: action})

	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	s.active = action == session.ActionStart
	metrics.RecordedEventsTotal.WithLabelValues(string(action)).Inc()
	r.logger.Debug().Str("user", s.user).Str("action", string(action)).Msg("recorded event")
	return nil
}
