package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/SoarinFerret/SessionTally/internal/state"
)

const (
	ObjectPath    = "/io/github/soarinferret/sessiontally"
	InterfaceName = "io.github.soarinferret.sessiontally.Manager"
	ServiceName   = "io.github.soarinferret.sessiontally"

	ErrNotFound = "io.github.soarinferret.sessiontally.Error.NotFound"
	ErrFailed   = "io.github.soarinferret.sessiontally.Error.Failed"
)

const refreshTimeout = 30 * time.Second

// Refresher re-tallies every source on demand.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// SessionManager is the object exported on the bus.
type SessionManager struct {
	Manager   *state.Manager
	Refresher Refresher
}

// UserSummary is the GetUserSummary payload.
type UserSummary struct {
	User         string    `json:"user"`
	Source       string    `json:"source"`
	GeneratedAt  time.Time `json:"generated_at"`
	Sessions     int       `json:"sessions"`
	TotalSeconds float64   `json:"total_seconds"`
}

func (s *SessionManager) GetStatus() (string, *dbus.Error) {
	st := s.Manager.GetState()
	return fmt.Sprintf("Service is running, %d source(s), last heartbeat %s",
		len(st.Runs), st.HeartBeat.Format(time.RFC3339)), nil
}

func (s *SessionManager) ListSources() ([]string, *dbus.Error) {
	return s.Manager.Sources(), nil
}

// GetReport returns the latest run of source as JSON.
func (s *SessionManager) GetReport(source string) (string, *dbus.Error) {
	run, err := s.Manager.Latest(source)
	if err != nil {
		return "", toDBusError(err)
	}
	data, err := json.Marshal(run)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

// GetUserSummary returns one user's summary from the latest run of source
// as JSON.
func (s *SessionManager) GetUserSummary(source, user string) (string, *dbus.Error) {
	run, err := s.Manager.Latest(source)
	if err != nil {
		return "", toDBusError(err)
	}
	summary, err := run.User(user)
	if err != nil {
		return "", dbus.NewError(ErrNotFound, []interface{}{err.Error()})
	}
	data, err := json.Marshal(UserSummary{
		User:         user,
		Source:       run.Source,
		GeneratedAt:  run.GeneratedAt,
		Sessions:     summary.Sessions,
		TotalSeconds: summary.TotalSeconds,
	})
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

func (s *SessionManager) Refresh() *dbus.Error {
	if s.Refresher == nil {
		return dbus.NewError(ErrFailed, []interface{}{"refresh not available"})
	}
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := s.Refresher.Refresh(ctx); err != nil {
		return dbus.NewError(ErrFailed, []interface{}{err.Error()})
	}
	return nil
}

func toDBusError(err error) *dbus.Error {
	if errors.Is(err, state.ErrRunNotFound) {
		return dbus.NewError(ErrNotFound, []interface{}{err.Error()})
	}
	return dbus.MakeFailedError(err)
}
