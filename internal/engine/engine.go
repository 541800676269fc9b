package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/SoarinFerret/SessionTally/internal/config"
	xlog "github.com/SoarinFerret/SessionTally/internal/log"
	"github.com/SoarinFerret/SessionTally/internal/logline"
	"github.com/SoarinFerret/SessionTally/internal/metrics"
	"github.com/SoarinFerret/SessionTally/internal/state"
	"github.com/SoarinFerret/SessionTally/internal/tally"
)

const debounce = 500 * time.Millisecond

// Engine re-tallies the configured sources and stores the results
type Engine struct {
	stateMgr *state.Manager
	config   *config.Config
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEngine creates a new tally engine instance
func NewEngine(stateMgr *state.Manager, cfg *config.Config) *Engine {
	return &Engine{
		stateMgr: stateMgr,
		config:   cfg,
		logger:   xlog.WithComponent("engine"),
		now:      time.Now,
	}
}

// Run tallies immediately, then on every interval tick and on writes to the
// sources. It returns nil once ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(e.config.Daemon.Interval)
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var changed <-chan fsnotify.Event
	var watchErrs <-chan error
	if *e.config.Daemon.Watch {
		watcher, err := e.watch()
		if err != nil {
			e.logger.Warn().Err(err).Msg("file watching disabled, relying on interval")
		} else {
			defer watcher.Close()
			changed = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	e.logger.Info().Strs("sources", e.config.Daemon.Sources).Msg("tally engine started")
	e.tick(ctx)

	// Debounce bursts of writes into a single run.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("tally engine shutting down")
			return nil
		case <-ticker.C:
			e.tick(ctx)
		case ev, ok := <-changed:
			if !ok {
				changed = nil
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				pending = time.After(debounce)
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			e.logger.Error().Err(err).Msg("source watcher error")
		case <-pending:
			pending = nil
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if _, err := e.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Error().Err(err).Msg("tally run failed")
	}
}

// watch registers every source that exists. Sources created later are only
// seen by the interval tick.
func (e *Engine) watch() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, src := range e.config.Daemon.Sources {
		if err := watcher.Add(src); err != nil {
			e.logger.Warn().Err(err).Str("source", src).Msg("cannot watch source")
		}
	}
	if len(watcher.WatchList()) == 0 {
		_ = watcher.Close()
		return nil, errors.New("no source could be watched")
	}
	return watcher, nil
}

// RunOnce tallies every source, records the runs, prunes expired runs and
// updates the heartbeat. Missing sources are skipped.
func (e *Engine) RunOnce(ctx context.Context) ([]state.Run, error) {
	opts := tally.Options{
		Parser:  logline.New(e.config.Daemon.RecordLayout),
		Workers: e.config.Report.Workers,
		Logger:  e.logger,
	}

	var runs []state.Run
	var errs []error
	for _, src := range e.config.Daemon.Sources {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			e.logger.Debug().Str("source", src).Msg("source does not exist yet")
			continue
		}

		res, err := tally.ProcessFile(ctx, src, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("tally %s: %w", src, err))
			continue
		}
		run, err := e.stateMgr.Record(src, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", src, err))
			continue
		}
		metrics.ReportUsers.WithLabelValues(src).Set(float64(len(res.Report)))
		runs = append(runs, run)
	}

	if retention := time.Duration(e.config.Daemon.Retention); retention > 0 {
		if n, err := e.stateMgr.Prune(e.now().Add(-retention)); err != nil {
			errs = append(errs, fmt.Errorf("prune: %w", err))
		} else if n > 0 {
			e.logger.Info().Int("removed", n).Msg("pruned expired runs")
		}
	}

	if err := e.stateMgr.Heartbeat(); err != nil {
		errs = append(errs, err)
	}
	return runs, errors.Join(errs...)
}

// Refresh implements ipc.Refresher.
func (e *Engine) Refresh(ctx context.Context) error {
	_, err := e.RunOnce(ctx)
	return err
}
