package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentinelsoc/soc-core/internal/api"
	"github.com/sentinelsoc/soc-core/internal/api/websocket"
	"github.com/sentinelsoc/soc-core/internal/config"
	"github.com/sentinelsoc/soc-core/internal/services"
	"github.com/sentinelsoc/soc-core/internal/storage/postgres"
	"github.com/sentinelsoc/soc-core/pkg/cache"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)
	logger.Info("Starting SOC core", "environment", cfg.Environment)

	// Cache: Valkey when configured, in-process fallback otherwise. Locks
	// and rate limits only span replicas with a real Valkey.
	var valkeyCache cache.Valkey
	if cfg.Cache.Enabled {
		valkeyCache, err = cache.NewValkeySingle(cfg.Cache.Addr, cfg.Cache.DB, cfg.Cache.Password,
			time.Duration(cfg.Cache.TTL)*time.Second)
		if err != nil {
			logger.Warn("Valkey unavailable, falling back to in-process cache", "error", err)
			valkeyCache = cache.NewNoopValkey(logger)
		}
	} else {
		valkeyCache = cache.NewNoopValkey(logger)
	}

	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", "error", err)
	}
	defer db.Close()

	eventStore := postgres.NewEventStore(db)
	ruleStore := postgres.NewRuleStore(db)
	playbookStore := postgres.NewPlaybookStore(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	engine := services.NewAlertEngine(eventStore, ruleStore, logger)

	transport := services.NewStandardTransport(services.SMTPSettings{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, time.Duration(cfg.Alerting.WebhookTimeoutSeconds)*time.Second, logger)

	notifier := services.NewNotifier(transport, hub, cfg.Alerting.QueueSize, cfg.Alerting.Workers, logger)
	notifier.Start(ctx)

	ingestor := services.NewIngestor(eventStore, engine, notifier, hub, logger)
	executor := services.NewPlaybookExecutor(playbookStore, hub, logger)

	scheduler := services.NewScheduler(engine, notifier, valkeyCache,
		time.Duration(cfg.Alerting.CheckIntervalSeconds)*time.Second, logger)
	go scheduler.Run(ctx)

	// When a config file is in play, follow edits to the check interval live.
	if cfg.Source != "" {
		watcher := config.NewConfigWatcher(cfg.Source, logger)
		watcher.RegisterWatcher(func(updated *config.Config) {
			scheduler.SetInterval(time.Duration(updated.Alerting.CheckIntervalSeconds) * time.Second)
		})
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.Warn("Config watcher stopped", "error", err)
			}
		}()
	}

	if cfg.NATS.Enabled {
		intake, err := services.NewNATSIntake(cfg.NATS.URL, cfg.NATS.Subject, ingestor, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", "error", err)
		}
		if err := intake.Start(ctx); err != nil {
			logger.Fatal("Failed to subscribe NATS intake", "error", err)
		}
		defer intake.Close()
	}

	if cfg.Retention.Enabled {
		retention := services.NewRetentionJob(eventStore,
			time.Duration(cfg.Retention.Days)*24*time.Hour,
			time.Duration(cfg.Retention.IntervalHours)*time.Hour, logger)
		go retention.Run(ctx)
	}

	apiServer := api.NewServer(cfg, logger, valkeyCache, api.Stores{
		Events:    eventStore,
		Rules:     ruleStore,
		Playbooks: playbookStore,
	}, api.Services{
		Ingestor: ingestor,
		Engine:   engine,
		Executor: executor,
	}, hub, db)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		logger.Fatal("Server failed", "error", err)
	}

	logger.Info("SOC core shutdown complete")
}
