package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"bom-manager/core/config"
	"bom-manager/core/database"
	"bom-manager/core/logger"
	"bom-manager/core/metrics"
	"bom-manager/core/report"
	"bom-manager/core/scheme"
	"bom-manager/core/storage"
	"bom-manager/core/store"
	"bom-manager/feature/attributes"
	"bom-manager/feature/importer"
	"bom-manager/feature/stock"

	"go.uber.org/zap"
)

// stdin is shared by every prompt of a run.
var stdin = bufio.NewReader(os.Stdin)

// app holds what one command invocation needs.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *store.Store
	sink    report.Sink
	metrics *metrics.Recorder
	start   time.Time
}

// setup loads configuration, opens the store and tags the logger with a
// run id for command.
func setup(ctx context.Context, command string) (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if metricsFile != "" {
		cfg.Metrics.Textfile = metricsFile
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	l, _ = logger.WithRun(l, command)

	sch, err := scheme.LoadFile(cfg.Import.SchemePath)
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	st := store.New(db, sch)
	if err := st.Migrate(ctx); err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     l,
		store:   st,
		sink:    report.Dedupe(report.NewLogSink(l)),
		metrics: metrics.NewRecorder(command),
		start:   time.Now(),
	}, nil
}

// close writes run metrics and flushes the logger.
func (a *app) close() {
	a.metrics.Finish(a.start)
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.log.Warn("failed to write metrics", zap.Error(err))
	}
	_ = a.log.Sync()
}

// decider returns the terminal decider, or the strict one when prompting is
// disabled.
func (a *app) decider() attributes.Decider {
	if nonInteractive {
		return attributes.Strict{}
	}
	return attributes.NewTerminal(stdin, os.Stdout)
}

func (a *app) reconciler() (*attributes.Reconciler, error) {
	policies, err := a.cfg.Reconcile.Policies()
	if err != nil {
		return nil, err
	}
	return attributes.New(policies, a.decider(), a.sink, a.metrics), nil
}

func (a *app) importer() (*importer.Importer, error) {
	formats, err := importer.LoadFormats(a.cfg.Import.FormatsPath)
	if err != nil {
		return nil, err
	}
	rec, err := a.reconciler()
	if err != nil {
		return nil, err
	}
	return importer.New(a.store, formats, rec, a.sink,
		importer.WithMetrics(a.metrics),
		importer.WithHeaderShift(a.cfg.Import.HeaderShift)), nil
}

// engine builds the stock engine, with a publisher when storage is enabled.
func (a *app) engine(ctx context.Context, publish bool) (*stock.Engine, error) {
	opts := []stock.Option{
		stock.WithMetrics(a.metrics),
		stock.WithUnknownShop(a.cfg.Purchase.UnknownShop),
	}
	if publish {
		if !a.cfg.Storage.Enabled {
			return nil, fmt.Errorf("publishing needs storage enabled (STORAGE_ENABLED=true)")
		}
		client, err := storage.NewClient(a.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		pub := storage.NewPublisher(client, a.cfg.Storage.Bucket, a.cfg.Storage.Prefix)
		if err := pub.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, stock.WithPublisher(pub))
	}
	return stock.NewEngine(a.store, a.sink, opts...), nil
}
