// Command server runs the registry enrichment service: HTTP API, national
// registry adapters, profile persistence and the audit pipeline.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"firmus/internal/audit"
	jwttoken "firmus/internal/jwt_token"
	"firmus/internal/platform/config"
	"firmus/internal/platform/httpserver"
	"firmus/internal/platform/kafka"
	"firmus/internal/platform/logger"
	"firmus/internal/platform/postgres"
	"firmus/internal/platform/redis"
	"firmus/internal/registry/adapters"
	"firmus/internal/registry/adapters/ares"
	"firmus/internal/registry/adapters/brreg"
	"firmus/internal/registry/adapters/isir"
	"firmus/internal/registry/adapters/prh"
	"firmus/internal/registry/adapters/sirene"
	"firmus/internal/registry/cache"
	registryhandler "firmus/internal/registry/handler"
	"firmus/internal/registry/metrics"
	"firmus/internal/registry/service"
	"firmus/internal/registry/store"
	httptransport "firmus/internal/transport/http"
	"firmus/pkg/platform/circuit"
	authmw "firmus/pkg/platform/middleware/auth"
)

const auditInboxSize = 256

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, cfg.Postgres.URL); err != nil {
			return err
		}
	}
	db, err := postgres.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	kafkaClient, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	if kafkaClient != nil {
		defer kafkaClient.Close()
		if err := kafkaClient.EnsureTopic(ctx, cfg.Kafka.AuditTopic); err != nil {
			return err
		}
	}

	registry, err := buildRegistry(cfg.Registry, redisClient, log)
	if err != nil {
		return err
	}

	profiles := store.NewPostgres(db.SQL)
	auditPublisher, auditWorker := buildAudit(db, kafkaClient, cfg.Kafka.AuditTopic, log)

	svc := service.New(registry, adapters.MatchPolicy{
		AcceptThreshold:    cfg.Registry.AcceptThreshold,
		AmbiguousThreshold: cfg.Registry.AmbiguousThreshold,
		SearchDelay:        cfg.Registry.SearchDelay,
		MaxCandidates:      cfg.Registry.MaxCandidates,
	}, profiles,
		service.WithAudit(auditPublisher),
		service.WithMetrics(metrics.New()),
		service.WithLogger(log.With("component", "registry_service")),
	)

	var validator authmw.TokenValidator
	if cfg.Server.JWTSigningKey != "" {
		jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "firmus", "firmus-registry")
		validator = jwttoken.NewJWTServiceAdapter(jwtService)
	} else {
		log.Warn("JWT signing key not configured, tenant auth falls back to X-Tenant-ID header")
	}

	handler := registryhandler.New(svc, log.With("component", "registry_handler"))
	router := httptransport.NewRouter(handler, validator, log)
	srv := httpserver.New(cfg.Server.Addr, router)

	if auditWorker != nil {
		go func() {
			if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting registry server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildRegistry constructs every national adapter with its shared HTTP
// client and registers them in precedence order. When Redis is available
// direct lookups are cached.
func buildRegistry(cfg config.RegistryConfig, redisClient *redis.Client, log *slog.Logger) (*adapters.Registry, error) {
	newClient := func(name string) *adapters.Client {
		return adapters.NewClient(cfg.CallTimeout,
			adapters.WithBreaker(circuit.New(name)))
	}

	var cacheStore cache.Store
	if redisClient != nil {
		cacheStore = cache.NewRedisStore(redisClient.Client)
	}
	cached := func(a adapters.Adapter) adapters.Adapter {
		return cache.Wrap(a, cacheStore, cfg.CacheTTL,
			cache.WithLogger(log.With("component", "lookup_cache")))
	}

	all := []adapters.Adapter{
		cached(ares.New(
			ares.WithBaseURL(cfg.ARESBaseURL),
			ares.WithClient(newClient("ares")),
			ares.WithLogger(log.With("adapter", "cz_ares")),
		)),
		cached(brreg.New(
			brreg.WithBaseURL(cfg.BRREGBaseURL),
			brreg.WithClient(newClient("brreg")),
			brreg.WithLogger(log.With("adapter", "no_brreg")),
		)),
		cached(prh.New(
			prh.WithBaseURL(cfg.PRHBaseURL),
			prh.WithClient(newClient("prh")),
			prh.WithLogger(log.With("adapter", "fi_prh")),
		)),
		cached(sirene.New(
			sirene.WithBaseURL(cfg.SireneBaseURL),
			sirene.WithClient(newClient("sirene")),
			sirene.WithLogger(log.With("adapter", "fr_sirene")),
		)),
		// Supplementary insolvency lookups are never cached: a proceeding
		// can open between two enrichments of the same company.
		isir.New(
			isir.WithEndpoint(cfg.ISIRBaseURL),
			isir.WithClient(newClient("isir")),
			isir.WithLogger(log.With("adapter", "cz_isir")),
		),
	}

	registry := adapters.NewRegistry()
	for _, a := range all {
		if err := registry.Register(a); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// buildAudit assembles the audit pipeline: synchronous postgres append,
// asynchronous Kafka delivery when a broker is configured.
func buildAudit(db *postgres.DB, kafkaClient *kafka.Client, topic string, log *slog.Logger) (*audit.Publisher, *audit.Worker) {
	auditStore := audit.NewPostgresStore(db.SQL)
	auditLog := log.With("component", "audit")

	if kafkaClient == nil {
		return audit.NewPublisher(auditStore, audit.WithLogger(auditLog)), nil
	}

	inbox := make(chan audit.Event, auditInboxSize)
	publisher := audit.NewPublisher(auditStore,
		audit.WithLogger(auditLog),
		audit.WithInbox(inbox),
	)
	worker := audit.NewWorker(audit.NewKafkaSink(kafkaClient.Client, topic), inbox, auditLog)
	return publisher, worker
}
