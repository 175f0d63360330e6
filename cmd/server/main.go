package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladvaleanu/automation-platform-sub000/internal/api"
	"github.com/vladvaleanu/automation-platform-sub000/internal/config"
	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
	"github.com/vladvaleanu/automation-platform-sub000/internal/core/metrics"
	"github.com/vladvaleanu/automation-platform-sub000/internal/database"
	"github.com/vladvaleanu/automation-platform-sub000/internal/database/sqlite"
	"github.com/vladvaleanu/automation-platform-sub000/internal/websocket"
	"github.com/vladvaleanu/automation-platform-sub000/pkg/logger"
	"github.com/vladvaleanu/automation-platform-sub000/pkg/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Infof("Alerting service %s", version.GetFullVersion())

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	// Run migrations
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
			log.Fatal("Failed to run migrations: ", err)
		}
	}

	store := sqlite.NewStore(db)
	ruleRepo := sqlite.NewRuleRepository(db)

	// Create WebSocket hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Metrics
	engineMetrics := metrics.NewEngine(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTP(prometheus.DefaultRegisterer)

	// Alert engine over the durable store, publishing to the hub
	engine := alerting.NewEngine(alerting.Config{
		Workers:              cfg.Alerting.Workers,
		QueueSize:            cfg.Alerting.QueueSize,
		BatchWindow:          time.Duration(cfg.Alerting.BatchWindowSeconds) * time.Second,
		MinAlertsForIncident: cfg.Alerting.MinAlertsForIncident,
		SweepInterval:        time.Duration(cfg.Alerting.SweepIntervalSeconds) * time.Second,
		ImpactTemplate:       cfg.Alerting.ImpactTemplate,
		Sources:              cfg.Alerting.Sources,
	}, store, websocket.NewNotifier(wsHub), engineMetrics, log)

	// Install persisted rules first, then any seed file. Seed rules that
	// collide with persisted IDs are skipped.
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	persisted, err := ruleRepo.GetAll(startCtx)
	if err != nil {
		startCancel()
		log.Fatal("Failed to load persisted alert rules: ", err)
	}
	for _, rule := range persisted {
		if err := engine.AddRule(rule); err != nil {
			log.WithError(err).WithField("rule_id", rule.ID).Warn("Skipping invalid persisted rule")
		}
	}
	if cfg.Alerting.RulesFile != "" {
		seeded, err := alerting.LoadRulesFile(cfg.Alerting.RulesFile)
		if err != nil {
			startCancel()
			log.Fatal("Failed to load rules file: ", err)
		}
		for _, rule := range seeded {
			if _, ok := engine.RuleByID(rule.ID); ok {
				continue
			}
			if err := engine.AddRule(rule); err != nil {
				log.WithError(err).WithField("rule", rule.Name).Warn("Skipping invalid seed rule")
				continue
			}
			if err := ruleRepo.Create(startCtx, rule); err != nil {
				log.WithError(err).WithField("rule", rule.Name).Warn("Failed to persist seed rule")
			}
		}
	}
	startCancel()
	log.Infof("Installed %d alert rules", len(engine.ListRules()))

	// Start the engine workers and the escalation sweep schedule
	engineCtx, engineCancel := context.WithCancel(context.Background())
	defer engineCancel()
	if err := engine.Start(engineCtx); err != nil {
		log.Fatal("Failed to start alert engine: ", err)
	}

	// Initialize router
	router := api.NewRouter(cfg, engine, store, ruleRepo, db, wsHub, httpMetrics, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Infof("Starting alerting service on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown: stop accepting connections, then drain the engine
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	engine.Stop()

	log.Info("Server exited")
}
