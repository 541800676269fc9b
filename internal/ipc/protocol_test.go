package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SoarinFerret/SessionTally/internal/session"
	"github.com/SoarinFerret/SessionTally/internal/state"
	"github.com/SoarinFerret/SessionTally/internal/tally"
)

type refresherFunc func(ctx context.Context) error

func (f refresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

func testManager(t *testing.T) *SessionManager {
	mgr, err := state.NewManager(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	_, err = mgr.Record("a.log", tally.Result{Report: session.Report{
		"alice": {Sessions: 2, TotalSeconds: 10},
	}})
	require.NoError(t, err)
	return &SessionManager{Manager: mgr}
}

func TestGetStatus(t *testing.T) {
	s := testManager(t)
	status, derr := s.GetStatus()
	assert.Nil(t, derr)
	assert.Contains(t, status, "1 source(s)")
}

func TestGetReport(t *testing.T) {
	s := testManager(t)

	out, derr := s.GetReport("")
	require.Nil(t, derr)

	var run state.Run
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "a.log", run.Source)
	assert.Equal(t, 2, run.Users["alice"].Sessions)

	_, derr = s.GetReport("nope.log")
	require.NotNil(t, derr)
	assert.Equal(t, ErrNotFound, derr.Name)
}

func TestGetUserSummary(t *testing.T) {
	s := testManager(t)

	out, derr := s.GetUserSummary("a.log", "alice")
	require.Nil(t, derr)
	var us UserSummary
	require.NoError(t, json.Unmarshal([]byte(out), &us))
	assert.Equal(t, "alice", us.User)
	assert.Equal(t, float64(10), us.TotalSeconds)

	_, derr = s.GetUserSummary("a.log", "bob")
	require.NotNil(t, derr)
	assert.Equal(t, ErrNotFound, derr.Name)
}

func TestRefresh(t *testing.T) {
	s := testManager(t)
	assert.NotNil(t, s.Refresh())

	called := false
	s.Refresher = refresherFunc(func(context.Context) error { called = true; return nil })
	assert.Nil(t, s.Refresh())
	assert.True(t, called)

	s.Refresher = refresherFunc(func(context.Context) error { return errors.New("boom") })
	derr := s.Refresh()
	require.NotNil(t, derr)
	assert.Equal(t, ErrFailed, derr.Name)
}
