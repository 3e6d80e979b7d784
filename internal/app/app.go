package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/five82/feeder/internal/admin"
	"github.com/five82/feeder/internal/config"
	"github.com/five82/feeder/internal/feedingapi"
	"github.com/five82/feeder/internal/logging"
	"github.com/five82/feeder/internal/metrics"
	"github.com/five82/feeder/internal/prefs"
	"github.com/five82/feeder/internal/reservation"
	"github.com/five82/feeder/internal/ui"
)

var (
	_ admin.Source = (*Engine)(nil)
	_ ui.Engine    = (*Engine)(nil)
)

// Options configure the feeder application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/feeder/prefs.toml
	// Headless runs the engine (and the admin server when configured)
	// without the terminal UI until ctx is cancelled.
	Headless bool
	// LogStderr writes logs to stderr instead of the state directory.
	LogStderr bool
}

// Run boots feeder until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}
	if _, err := prefs.EnsureDeviceID(prefsPath, &userPrefs); err != nil {
		return err
	}

	var logOut io.Writer = os.Stderr
	logPath := ""
	if !opts.LogStderr {
		file, err := logging.OpenFile(cfg.StateDir)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer file.Close()
		logOut = file
		logPath = filepath.Join(cfg.StateDir, logging.FileName)
	}
	logger := logging.SetupDefault(logOut, logging.ParseLevel(cfg.LogLevel))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	client, err := feedingapi.NewClient(cfg.APIBase, feedingapi.Options{
		Token:       cfg.APIToken,
		DeviceID:    userPrefs.DeviceID,
		RequestRate: cfg.RequestRate,
	})
	if err != nil {
		return fmt.Errorf("init feeding client: %w", err)
	}

	engine, err := NewEngine(EngineOptions{
		Remote:   client,
		Store:    reservation.NewFileStore(cfg.SnapshotDir()),
		Logger:   logger,
		Metrics:  collector,
		PollWait: cfg.PollWait,
	})
	if err != nil {
		return err
	}

	logger.Info("feeder starting",
		slog.String("api_base", cfg.APIBase),
		slog.String("state_dir", cfg.StateDir),
		slog.String("device_id", userPrefs.DeviceID),
		slog.Bool("headless", opts.Headless),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(gctx) })

	if cfg.AdminBind != "" {
		g.Go(func() error {
			return admin.Serve(gctx, cfg.AdminBind, admin.NewRouter(engine, registry), logger)
		})
	}

	g.Go(func() error {
		if opts.Headless {
			<-gctx.Done()
			return nil
		}
		// Quitting the UI stops everything else.
		defer cancel()
		return ui.Run(ui.Options{
			Context:   gctx,
			Engine:    engine,
			Prefs:     userPrefs,
			PrefsPath: prefsPath,
			LogPath:   logPath,
		})
	})

	err = g.Wait()
	logger.Info("feeder stopped")
	return err
}
