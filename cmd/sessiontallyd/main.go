package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sync/errgroup"

	"github.com/SoarinFerret/SessionTally/internal/api"
	"github.com/SoarinFerret/SessionTally/internal/config"
	"github.com/SoarinFerret/SessionTally/internal/engine"
	"github.com/SoarinFerret/SessionTally/internal/ipc"
	xlog "github.com/SoarinFerret/SessionTally/internal/log"
	"github.com/SoarinFerret/SessionTally/internal/loginctl"
	"github.com/SoarinFerret/SessionTally/internal/logline"
	"github.com/SoarinFerret/SessionTally/internal/state"
)

func main() {
	// check for argument to determine config location
	argPath := "/etc/sessiontally/config.toml"
	if len(os.Args) > 1 {
		argPath = os.Args[1]
	}

	cfg, err := config.LoadConfigFromFile(argPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}
	xlog.Configure(xlog.Config{Level: cfg.Log.Level, Service: "sessiontallyd"})
	logger := xlog.WithComponent("main")
	logger.Info().Str("path", argPath).Msg("using config file")

	stateMgr, err := state.NewManager(cfg.Daemon.StatePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize state manager")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tallyEngine := engine.NewEngine(stateMgr, cfg)
	g, ctx := errgroup.WithContext(ctx)

	// Record logind sessions into the log the engine tallies.
	if *cfg.Daemon.Record {
		recorder := loginctl.NewRecorder(cfg.Daemon.RecordPath, logline.New(cfg.Daemon.RecordLayout))
		g.Go(func() error {
			logger.Info().Str("path", cfg.Daemon.RecordPath).Msg("monitoring dbus for session changes")
			if err := loginctl.Watch(ctx, recorder); err != nil {
				logger.Error().Err(err).Msg("logind watcher error")
			}
			return nil
		})
	}

	g.Go(func() error {
		return tallyEngine.Run(ctx)
	})

	g.Go(func() error {
		if err := serveSessionTally(ctx, stateMgr, tallyEngine); err != nil {
			logger.Error().Err(err).Msg("sessiontally service error")
		}
		return nil
	})

	if cfg.Daemon.HTTPAddr != "" {
		g.Go(func() error {
			return serveHTTP(ctx, cfg.Daemon.HTTPAddr, stateMgr)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("shutdown with error")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

func serveSessionTally(ctx context.Context, stateMgr *state.Manager, refresher ipc.Refresher) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer conn.Close()

	reply, err := conn.RequestName(ipc.ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken", ipc.ServiceName)
	}

	sm := &ipc.SessionManager{Manager: stateMgr, Refresher: refresher}
	if err := conn.Export(sm, dbus.ObjectPath(ipc.ObjectPath), ipc.InterfaceName); err != nil {
		return fmt.Errorf("failed to export interface: %w", err)
	}

	<-ctx.Done()
	return nil
}

func serveHTTP(ctx context.Context, addr string, stateMgr *state.Manager) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(stateMgr, nil, xlog.WithComponent("api")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger := xlog.WithComponent("api")
		logger.Info().Str("addr", addr).Msg("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http api: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
