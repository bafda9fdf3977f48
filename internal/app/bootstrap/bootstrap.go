package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	votingsystem "tally/contexts/governance/voting-system"
	votingmemory "tally/contexts/governance/voting-system/adapters/memory"
	votingpostgres "tally/contexts/governance/voting-system/adapters/postgres"
	"tally/contexts/governance/voting-system/application/workers"
	"tally/contexts/governance/voting-system/ports"
	"tally/internal/platform/config"
	"tally/internal/platform/db"
	"tally/internal/platform/httpserver"
	"tally/internal/platform/messaging"

	"github.com/ethereum/go-ethereum/common"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 10 * time.Second

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	// embedded runs the worker loop in-process when state lives in memory,
	// since no separate worker can reach it.
	embedded *WorkerApp
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	bus          *messaging.Kafka
	outboxRelay  workers.OutboxRelay
	notifier     workers.NotificationLogger
	scanner      workers.FinalizationScanner
	runNotifier  bool
	runScanner   bool
	pollInterval time.Duration
	logger       *slog.Logger
}

type storage struct {
	repository ports.Repository
	outbox     ports.OutboxRepository
	clock      ports.Clock
	idGen      ports.IDGenerator
	postgres   *db.Postgres
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	module := votingsystem.NewModule(votingsystem.Dependencies{
		Repository: store.repository,
		Clock:      store.clock,
		IDGen:      store.idGen,
		Logger:     logger,
	})

	app := &APIApp{
		server:   httpserver.New(module, store.clock, cfg.SignatureMaxSkew, logger, normalizeAddr(cfg.HTTPPort)),
		postgres: store.postgres,
		logger:   logger,
	}
	if cfg.StorageDriver == config.StorageDriverMemory {
		embedded, err := newWorkerApp(cfg, store, logger)
		if err != nil {
			return nil, err
		}
		app.embedded = embedded
	}
	return app, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if cfg.StorageDriver != config.StorageDriverPostgres {
		return nil, errors.New("worker requires STORAGE_DRIVER=postgres; the memory driver runs workers inside the api process")
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app, err := newWorkerApp(cfg, store, logger)
	if err != nil {
		_ = store.postgres.Close()
		return nil, err
	}
	return app, nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	admin, err := parseAdmin(cfg.AdminAddress)
	if err != nil {
		return storage{}, err
	}

	if cfg.StorageDriver == config.StorageDriverMemory {
		store := votingmemory.NewStore(admin)
		logger.Warn("using in-memory voting storage",
			"event", "bootstrap_memory_storage",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"admin", admin.Hex(),
		)
		return storage{
			repository: store,
			outbox:     store,
			clock:      store,
			idGen:      store,
		}, nil
	}

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return storage{}, errors.New("POSTGRES_DSN is required")
	}
	pg, err := db.Connect(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return storage{}, err
	}
	repo := votingpostgres.NewRepository(pg.DB, logger)
	if err := repo.Migrate(ctx); err != nil {
		_ = pg.Close()
		return storage{}, err
	}
	if err := repo.EnsureOwner(ctx, admin); err != nil {
		_ = pg.Close()
		return storage{}, err
	}
	return storage{
		repository: repo,
		outbox:     repo,
		clock:      votingpostgres.SystemClock{},
		idGen:      votingpostgres.UUIDGenerator{},
		postgres:   pg,
	}, nil
}

func newWorkerApp(cfg config.Config, store storage, logger *slog.Logger) (*WorkerApp, error) {
	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}
	pollInterval := cfg.WorkerPollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &WorkerApp{
		postgres: store.postgres,
		bus:      bus,
		outboxRelay: workers.OutboxRelay{
			Outbox:    store.outbox,
			Publisher: bus,
			Clock:     store.clock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		notifier: workers.NotificationLogger{
			Subscriber:    bus,
			ConsumerGroup: "voting-system-notification-log-cg",
			Logger:        logger,
		},
		scanner: workers.FinalizationScanner{
			Proposals: store.repository,
			Clock:     store.clock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		runNotifier:  cfg.EnableNotificationLogger,
		runScanner:   cfg.EnableFinalizationScanner,
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_workers", a.embedded != nil,
	)

	errs := make(chan error, 2)
	go func() {
		errs <- a.server.Start()
	}()
	if a.embedded != nil {
		go func() {
			errs <- a.embedded.Run(ctx)
		}()
	}

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

func (a *APIApp) Close() error {
	if a.embedded != nil {
		_ = a.embedded.bus.Close()
	}
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.runNotifier {
		if err := w.notifier.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"finalization_scanner", w.runScanner,
		"notification_logger", w.runNotifier,
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("outbox relay cycle failed",
				"event", "bootstrap_outbox_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		if w.runScanner {
			if _, err := w.scanner.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("finalization scan failed",
					"event", "bootstrap_finalization_scan_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.bus != nil {
		_ = w.bus.Close()
	}
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func parseAdmin(raw string) (common.Address, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return common.Address{}, errors.New("VOTING_ADMIN_ADDRESS is required")
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("VOTING_ADMIN_ADDRESS %q is not a hex address", value)
	}
	admin := common.HexToAddress(value)
	if admin == (common.Address{}) {
		return common.Address{}, errors.New("VOTING_ADMIN_ADDRESS must not be the zero address")
	}
	return admin, nil
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
