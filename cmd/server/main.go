package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	claimshandler "claimdesk/internal/claims/handler"
	claimsmetrics "claimdesk/internal/claims/metrics"
	claimsservice "claimdesk/internal/claims/service"
	claimsstore "claimdesk/internal/claims/store"
	"claimdesk/internal/platform/config"
	"claimdesk/internal/platform/httpserver"
	"claimdesk/internal/platform/logger"
	httpmetrics "claimdesk/internal/platform/metrics"
	"claimdesk/internal/platform/postgres"
	redisclient "claimdesk/internal/platform/redis"
	"claimdesk/internal/platform/tracing"
	httptransport "claimdesk/internal/transport/http"
	audit "claimdesk/pkg/platform/audit"
	"claimdesk/pkg/platform/audit/publisher"
	auditkafka "claimdesk/pkg/platform/audit/store/kafka"
	auditmemory "claimdesk/pkg/platform/audit/store/memory"
	auditpostgres "claimdesk/pkg/platform/audit/store/postgres"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("claimdesk exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	shutdownTracing := tracing.Setup(cfg.Tracing, log)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	claimMetrics := claimsmetrics.New()
	var readiness []httptransport.ReadinessCheck

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() { _ = db.Close() }()
		readiness = append(readiness, httptransport.ReadinessCheck{Name: "postgres", Check: db.PingContext})
	}

	claimStore, closeStore, err := buildClaimStore(ctx, cfg, db, log, claimMetrics, &readiness)
	if err != nil {
		return err
	}
	defer closeStore()

	auditPublisher, closeAudit, err := buildAuditPublisher(ctx, cfg, db, log, &readiness)
	if err != nil {
		return err
	}
	defer closeAudit()

	opts := []claimsservice.Option{
		claimsservice.WithLogger(log),
		claimsservice.WithMetrics(claimMetrics),
		claimsservice.WithAuditPublisher(auditPublisher),
	}
	if auditPublisher.Listable() {
		opts = append(opts, claimsservice.WithAuditHistory(auditPublisher))
	}
	svc, err := claimsservice.New(claimStore, opts...)
	if err != nil {
		return fmt.Errorf("build claim service: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        httpmetrics.New(),
		APIPrefix:      cfg.Server.APIPrefix,
		RequestTimeout: cfg.Server.RequestTimeout,
		Readiness:      readiness,
	}, claimshandler.New(svc, log))

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, log, srv, cfg.Server.ShutdownTimeout)
	})

	log.Info("starting claimdesk",
		"addr", cfg.Server.Addr,
		"api_prefix", cfg.Server.APIPrefix,
		"postgres", cfg.Database.URL != "",
		"redis_cache", cfg.Redis.URL != "",
		"kafka_audit", len(cfg.Kafka.Brokers) > 0,
	)
	return g.Wait()
}

// buildClaimStore picks Postgres when a database is configured and the
// in-memory store otherwise. REDIS_URL adds the read-through cache in front.
func buildClaimStore(
	ctx context.Context,
	cfg config.Config,
	db *sql.DB,
	log *slog.Logger,
	m *claimsmetrics.Metrics,
	readiness *[]httptransport.ReadinessCheck,
) (claimsservice.ClaimStore, func(), error) {
	var backend claimsstore.Backend
	if db != nil {
		pg := claimsstore.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		backend = pg
		log.Info("claim store: postgres")
	} else {
		backend = claimsstore.NewInMemory()
		log.Info("claim store: in-memory")
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if rc == nil {
		return backend, func() {}, nil
	}
	*readiness = append(*readiness, httptransport.ReadinessCheck{Name: "redis", Check: rc.Health})
	cache := claimsstore.NewRedisCache(backend, rc.Client,
		claimsstore.WithCacheTTL(cfg.Redis.CacheTTL),
		claimsstore.WithCacheMetrics(m),
		claimsstore.WithCacheLogger(log),
	)
	return cache, func() { _ = rc.Close() }, nil
}

// buildAuditPublisher sends audit events to Kafka when brokers are configured,
// to Postgres when only a database is configured, and keeps them in memory
// otherwise.
func buildAuditPublisher(
	ctx context.Context,
	cfg config.Config,
	db *sql.DB,
	log *slog.Logger,
	readiness *[]httptransport.ReadinessCheck,
) (*publisher.Publisher, func(), error) {
	var (
		sink    audit.Store
		closers []func()
	)
	if len(cfg.Kafka.Brokers) > 0 {
		ks, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return nil, nil, fmt.Errorf("build kafka audit sink: %w", err)
		}
		if err := ks.EnsureTopic(ctx, 3, 1); err != nil {
			ks.Close()
			return nil, nil, err
		}
		closers = append(closers, ks.Close)
		*readiness = append(*readiness, httptransport.ReadinessCheck{Name: "kafka", Check: ks.Ping})
		sink = ks
		log.Info("audit sink: kafka", "topic", cfg.Kafka.AuditTopic)
	} else if db != nil {
		ps := auditpostgres.New(db)
		if err := ps.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		sink = ps
		log.Info("audit sink: postgres")
	} else {
		sink = auditmemory.NewInMemoryStore()
		log.Info("audit sink: in-memory")
	}

	p := publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(cfg.Kafka.AuditBuffer),
		publisher.WithLogger(log),
	)
	closeAll := func() {
		// Drain buffered events before the sink goes away.
		p.Close()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return p, closeAll, nil
}
