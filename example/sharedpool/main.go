// Command sharedpool shares one PostgreSQL connection pool between a set of workers through
// sharedptr handles. The pool is closed by its deleter as soon as the last worker is done, and a
// monitor goroutine watches it through a weak handle until it has expired.
//
// Usage:
//
//	go run ./example/sharedpool -config-dir . -adapter pgx
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AntonStoeckl/shared-handles-go/example/sharedpool/config"
	"github.com/AntonStoeckl/shared-handles-go/example/sharedpool/probe"
	"github.com/AntonStoeckl/shared-handles-go/sharedptr"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("sharedpool failed: %v", err)
	}
}

func run() error {
	var (
		configDir = flag.String("config-dir", ".", "Directory containing the optional "+config.FileName)
		adapter   = flag.String("adapter", "", "Database adapter override: pgx, sql or sqlx")
		verbose   = flag.Bool("verbose", false, "Log lifecycle events at debug level")
	)
	flag.Parse()

	cfg, err := config.LoadOptional(*configDir)
	if err != nil {
		return err
	}

	if *adapter != "" {
		cfg.Database.Adapter = *adapter
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}

	tracker := sharedptr.NewTracker()
	owner, err := sharedptr.NewWithDeleter(
		probe.NewPool(db),
		sharedptr.CloseDeleter[probe.Pool](),
		sharedptr.WithLabel(cfg.Database.Label),
		sharedptr.WithLogger(logger),
		sharedptr.WithTraceContext(ctx),
		sharedptr.WithTracker(tracker),
	)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to share database: %w", err)
	}

	logger.Info("sharedpool: starting",
		"adapter", cfg.Database.Adapter,
		"workers", cfg.Run.Workers,
		"probes_per_worker", cfg.Run.ProbesPerWorker,
	)

	runner := probe.Runner{
		Workers:         cfg.Run.Workers,
		ProbesPerWorker: cfg.Run.ProbesPerWorker,
		MonitorInterval: cfg.Run.MonitorInterval,
		Logger:          logger,
	}
	summary := runner.Run(ctx, owner)

	logger.Info("sharedpool: finished",
		"probes", summary.Probes,
		"failures", summary.Failures,
		"monitor_ticks", summary.MonitorTicks,
		"max_observed_uses", summary.MaxObservedUses,
		"expiry_observed", summary.ExpiryObserved,
	)

	report, err := tracker.ReportJSON()
	if err != nil {
		return fmt.Errorf("failed to render tracker report: %w", err)
	}

	fmt.Println(string(report))

	if tracker.Len() > 0 {
		return fmt.Errorf("%d control blocks still alive", tracker.Len())
	}

	return nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (probe.Database, error) {
	switch cfg.Adapter {
	case config.AdapterPGX:
		pool, err := config.NewPGXPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return probe.NewPGXDatabase(pool), nil

	case config.AdapterSQL:
		db, err := config.NewSQLDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return probe.NewSQLDatabase(db), nil

	case config.AdapterSQLX:
		db, err := config.NewSQLXDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return probe.NewSQLXDatabase(db), nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownAdapter, cfg.Adapter)
	}
}
