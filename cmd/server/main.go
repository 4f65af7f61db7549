package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	assignmenthandler "adoro/internal/assignment/handler"
	"adoro/internal/assignment/metrics"
	assignmentservice "adoro/internal/assignment/service"
	assignmentstore "adoro/internal/assignment/store"
	"adoro/internal/audit"
	"adoro/internal/notify"
	"adoro/internal/platform/config"
	"adoro/internal/platform/httpserver"
	"adoro/internal/platform/logger"
	"adoro/internal/platform/postgres"
	platformredis "adoro/internal/platform/redis"
	"adoro/internal/ratelimit"
	schedulehandler "adoro/internal/schedule/handler"
	scheduleservice "adoro/internal/schedule/service"
	schedulestore "adoro/internal/schedule/store"
	httptransport "adoro/internal/transport/http"
)

// main wires dependencies and owns the server lifecycle. Every backend is
// optional: without DATABASE_URL the stores run in memory, without REDIS_URL
// rate limiting runs in process, without KAFKA_BROKERS auditing is a no-op.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	var (
		records assignmentstore.Store
		catalog schedulestore.Store
	)
	if db != nil {
		if err := applySchemas(db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		records = assignmentstore.NewPostgres(db)
		catalog = schedulestore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		records = assignmentstore.NewInMemory()
		memCatalog := schedulestore.NewInMemory()
		slots := schedulestore.SeedDevCatalog(memCatalog)
		catalog = memCatalog
		log.Warn("DATABASE_URL not set, using in-memory stores", "seeded_slots", len(slots))
	}

	scheduleSvc := scheduleservice.New(catalog, records)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.SMTP.Host != "" {
		smtp, err := notify.NewSMTP(cfg.SMTP, scheduleSvc)
		if err != nil {
			log.Error("smtp configuration invalid", "error", err)
			os.Exit(1)
		}
		notifier = smtp
	} else {
		log.Warn("SMTP not configured, registration mail disabled")
	}

	var publisher audit.Publisher = audit.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafka(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		publisher = kafka
	}

	var limiter ratelimit.Limiter
	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb.Client, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	} else {
		limiter = ratelimit.NewInMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	svc := assignmentservice.New(records, log, assignmentservice.Config{
		Iterations:  cfg.Hashing.Iterations,
		SaltLength:  cfg.Hashing.SaltLength,
		TokenLength: cfg.Hashing.TokenLength,
		LookupKey:   cfg.Hashing.LookupKey,
		BaseURL:     cfg.BaseURL,
	},
		assignmentservice.WithMetrics(metrics.New()),
		assignmentservice.WithNotifier(notifier),
		assignmentservice.WithAuditPublisher(publisher),
		assignmentservice.WithScheduleDirectory(scheduleSvc),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Assignments: assignmenthandler.New(svc, log, assignmenthandler.WithSlotGate(scheduleSvc)),
		Schedule:    schedulehandler.New(scheduleSvc, log),
		Limiter:     limiter,
		Logger:      log,
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func applySchemas(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, schema := range []string{schedulestore.Schema, assignmentstore.Schema} {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return err
		}
	}
	return nil
}
