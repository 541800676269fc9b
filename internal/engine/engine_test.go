package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/SoarinFerret/SessionTally/internal/config"
	"github.com/SoarinFerret/SessionTally/internal/state"
)

func testEngine(t *testing.T, watch bool, sources ...string) (*Engine, *state.Manager) {
	dir := t.TempDir()
	mgr, err := state.NewManager(filepath.Join(dir, "state.json"))
	require.NoError(t, err)

	cfg := &config.Config{Daemon: config.DaemonConfig{
		Sources:  sources,
		Interval: config.Duration(time.Hour),
		Watch:    &watch,
	}}
	cfg.SetDefault()
	return NewEngine(mgr, cfg), mgr
}

func writeLog(t *testing.T, path, data string) {
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func TestRunOnce_RecordsEachSource(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.log")
	b := filepath.Join(dir, "b.log")
	missing := filepath.Join(dir, "missing.log")
	writeLog(t, a, "2026-01-05 10:00:00 alice Start\n2026-01-05 10:00:10 alice End\n")
	writeLog(t, b, "garbage\n")

	e, mgr := testEngine(t, false, a, b, missing)
	runs, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	run, err := mgr.Latest(a)
	require.NoError(t, err)
	s, err := run.User("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Sessions)
	assert.Equal(t, float64(10), s.TotalSeconds)

	run, err = mgr.Latest(b)
	require.NoError(t, err)
	assert.Empty(t, run.Users)
	assert.Nil(t, run.Bounds)
	assert.Equal(t, 1, run.Skipped)

	_, err = mgr.Latest(missing)
	assert.ErrorIs(t, err, state.ErrRunNotFound)
}

func TestRunOnce_SessionAcrossMidnight(t *testing.T) {
	a := filepath.Join(t.TempDir(), "a.log")
	writeLog(t, a, "2026-01-01 23:50:00 alice Start\n2026-01-02 00:10:00 alice End\n")

	e, mgr := testEngine(t, false, a)
	_, err := e.RunOnce(context.Background())
	require.NoError(t, err)

	run, err := mgr.Latest(a)
	require.NoError(t, err)
	s, err := run.User("alice")
	require.NoError(t, err)
	assert.Equal(t, float64(20*60), s.TotalSeconds)
}

func TestRunOnce_PrunesExpired(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.log")
	writeLog(t, a, "2026-01-05 10:00:00 alice Start\n")

	e, mgr := testEngine(t, false, a)
	_, err := e.RunOnce(context.Background())
	require.NoError(t, err)

	// Drop the source and move the clock past retention.
	e.config.Daemon.Sources = nil
	e.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, err = e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mgr.Sources())
}

func TestRun_RetalliesOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	a := filepath.Join(dir, "a.log")
	writeLog(t, a, "2026-01-05 10:00:00 alice Start\n")

	e, mgr := testEngine(t, true, a)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := mgr.Latest(a)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	f, err := os.OpenFile(a, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("2026-01-05 10:01:00 bob Start\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		run, err := mgr.Latest(a)
		return err == nil && len(run.Users) == 2
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run() didn't return after cancel")
	}
}

func TestRun_StopsWithoutWatcher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e, _ := testEngine(t, true, filepath.Join(t.TempDir(), "missing.log"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, e.Run(ctx))
}
