package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	electionservice "agora/contexts/governance/election-service"
	"agora/contexts/governance/election-service/adapters/notify"
	postgresadapter "agora/contexts/governance/election-service/adapters/postgres"
	"agora/contexts/governance/election-service/adapters/views"
	workerapp "agora/contexts/governance/election-service/application/workers"
	"agora/contexts/governance/election-service/ports"
	"agora/internal/platform/config"
	"agora/internal/platform/db"
	"agora/internal/platform/httpserver"
	"agora/internal/platform/logging"
	"agora/internal/platform/messaging"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const moduleName = "internal/app/bootstrap"

type APIApp struct {
	server   *httpserver.Server
	database *db.Database
	logger   *slog.Logger
	closeLog func() error
}

type WorkerApp struct {
	database       *db.Database
	outboxRelay    workerapp.OutboxRelay
	notifications  workerapp.NotificationConsumer
	closer         workerapp.ElectionCloser
	relayInterval  time.Duration
	closerInterval time.Duration
	logger         *slog.Logger
	closeLog       func() error
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	baseLogger, closeLog := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	logger := baseLogger.With("service", cfg.ServiceName, "process", "api")

	database, err := openDatabase(cfg)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	module := electionservice.NewModule(dependencies(cfg, database, logger))
	return &APIApp{
		server:   httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort)),
		database: database,
		logger:   logger,
		closeLog: closeLog,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	baseLogger, closeLog := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	logger := baseLogger.With("service", cfg.ServiceName, "process", "worker")

	database, err := openDatabase(cfg)
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	app := newWorkerApp(cfg, database, logger)
	app.closeLog = closeLog
	return app, nil
}

func newWorkerApp(cfg config.Config, database *db.Database, logger *slog.Logger) *WorkerApp {
	deps := dependencies(cfg, database, logger)
	repo := postgresadapter.NewRepository(database.DB, logger)
	bus := messaging.NewBus(256, logger)

	return &WorkerApp{
		database: database,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     deps.Clock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		notifications: workerapp.NotificationConsumer{
			Subscriber:    bus,
			Dedup:         repo,
			Elections:     repo,
			Candidacies:   repo,
			Directory:     repo,
			Notifier:      newNotifier(cfg, logger),
			Clock:         deps.Clock,
			ConsumerGroup: "election-service-notification-cg",
			DedupTTL:      7 * 24 * time.Hour,
			Disabled:      !cfg.EnableNotifications,
			Logger:        logger,
		},
		closer: workerapp.ElectionCloser{
			Lifecycle: electionservice.NewLifecycle(deps),
			BatchSize: cfg.OutboxBatchSize,
			Disabled:  !cfg.EnableAutoClose,
			Logger:    logger,
		},
		relayInterval:  cfg.RelayInterval,
		closerInterval: cfg.CloserInterval,
		logger:         logger,
	}
}

func openDatabase(cfg config.Config) (*db.Database, error) {
	var (
		database *db.Database
		err      error
	)
	switch cfg.DatabaseType {
	case config.DatabaseSQLite:
		database, err = db.ConnectSQLite(cfg.SQLitePath)
	default:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, errors.New("POSTGRES_DSN is required")
		}
		database, err = db.Connect(cfg.PostgresDSN)
	}
	if err != nil {
		return nil, err
	}
	if err := postgresadapter.Migrate(database.DB); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

func dependencies(cfg config.Config, database *db.Database, logger *slog.Logger) electionservice.Dependencies {
	repo := postgresadapter.NewRepository(database.DB, logger)
	return electionservice.Dependencies{
		Elections:   repo,
		Candidacies: repo,
		Votes:       repo,
		Directory:   repo,
		Views: views.WebhookInvalidator{
			URL:    cfg.RevalidateURL,
			Token:  cfg.RevalidateToken,
			Client: &http.Client{Timeout: 5 * time.Second},
			Logger: logger,
		},
		Clock:  postgresadapter.SystemClock{},
		IDGen:  postgresadapter.UUIDGenerator{},
		Logger: logger,
	}
}

func newNotifier(cfg config.Config, logger *slog.Logger) ports.Notifier {
	if cfg.SMTPAddr == "" || cfg.SMTPFrom == "" {
		return notify.LogNotifier{Logger: logger}
	}
	return notify.SMTPNotifier{
		Addr:     cfg.SMTPAddr,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		Logger:   logger,
	}
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", moduleName,
		"layer", "platform",
	)
	return a.server.Start(ctx)
}

func (a *APIApp) Close() error {
	var errs []error
	if a.database != nil {
		errs = append(errs, a.database.Close())
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
	}
	return errors.Join(errs...)
}

// Run starts the notification consumer, then drives the closer and the
// outbox relay on their own tickers until ctx is cancelled.
func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.notifications.Start(ctx); err != nil {
		return err
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", moduleName,
		"layer", "platform",
		"relay_interval", w.relayInterval.String(),
		"closer_interval", w.closerInterval.String(),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return poll(groupCtx, w.logger, "closer", w.closerInterval, w.closer.RunOnce)
	})
	group.Go(func() error {
		return poll(groupCtx, w.logger, "outbox_relay", w.relayInterval, w.outboxRelay.RunOnce)
	})
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.database != nil {
		errs = append(errs, w.database.Close())
	}
	if w.closeLog != nil {
		errs = append(errs, w.closeLog())
	}
	return errors.Join(errs...)
}

// poll runs job immediately and then on every tick until ctx is cancelled.
// A failed round is logged and retried on the next tick.
func poll(
	ctx context.Context,
	logger *slog.Logger,
	name string,
	interval time.Duration,
	job func(context.Context) (int, error),
) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := job(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("worker job failed",
				"event", "bootstrap_worker_job_failed",
				"module", moduleName,
				"layer", "platform",
				"job", name,
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
