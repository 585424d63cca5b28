package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cmsportal/internal/admin/catalog"
	cataloghandler "cmsportal/internal/admin/catalog/handler"
	auditsvc "cmsportal/internal/audit"
	"cmsportal/internal/autherror"
	"cmsportal/internal/clientstore"
	"cmsportal/internal/cms"
	consenthandler "cmsportal/internal/consent/handler"
	"cmsportal/internal/consent/initiation"
	"cmsportal/internal/consent/lifecycle"
	"cmsportal/internal/consent/notice"
	"cmsportal/internal/consent/submission"
	"cmsportal/internal/identity"
	jwttoken "cmsportal/internal/jwt_token"
	"cmsportal/internal/platform/config"
	"cmsportal/internal/platform/httpserver"
	"cmsportal/internal/platform/logger"
	"cmsportal/internal/platform/metrics"
	platformredis "cmsportal/internal/platform/redis"
	"cmsportal/internal/ratelimit"
	"cmsportal/internal/translate"
	"cmsportal/pkg/platform/audit/publisher"
	kafkasink "cmsportal/pkg/platform/audit/publishers/kafka"
	auditmemory "cmsportal/pkg/platform/audit/store/memory"
	auditpostgres "cmsportal/pkg/platform/audit/store/postgres"
	"cmsportal/pkg/platform/middleware/device"
)

// clientStorage is what both the identity resolver and the notice engine
// need from device-scoped storage.
type clientStorage interface {
	identity.Store
	notice.ReferrerStore
}

// auditStore accepts events and answers the sys-admin audit queries.
type auditStore interface {
	publisher.Store
	auditsvc.Reader
}

// infra holds the long-lived connections so shutdown can release them.
type infra struct {
	redis *platformredis.Client
	db    *sql.DB
	kafka *kafkasink.Publisher
	audit *publisher.Publisher
}

func (i *infra) close(log *slog.Logger) {
	// drain queued audit events before their sinks go away
	if i.audit != nil {
		i.audit.Close()
	}
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Warn("failed to close database", "error", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("failed to close redis", "error", err)
		}
	}
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var deps infra
	defer deps.close(log)

	store := buildClientStorage(cfg, log, &deps)
	recorder, auditReader := buildAudit(cfg, log, m, &deps)

	backend := cms.New(cfg.Backend.BaseURL, cfg.Backend.Timeout,
		cms.WithLogger(log),
		cms.WithMetrics(m),
	)
	resolver := identity.New(store,
		identity.WithLogger(log),
		identity.WithMetrics(m),
	)

	initiator := initiation.New(backend, resolver, initiation.Defaults{
		DataFiduciaryID: cfg.Consent.DataFiduciaryID,
		DurationDays:    cfg.Consent.DurationDays,
		LanguageCode:    cfg.Consent.Language,
		Contact: initiation.Contact{
			Email: cfg.Consent.ContactEmail,
			Phone: cfg.Consent.ContactPhone,
		},
		RedirectURL: cfg.Consent.RedirectURL,
	},
		initiation.WithLogger(log),
		initiation.WithMetrics(m),
		initiation.WithAuditor(recorder),
	)
	submitter := submission.New(backend, cfg.Consent.ContinueAfter,
		submission.WithLogger(log),
		submission.WithMetrics(m),
		submission.WithAuditor(recorder),
	)

	noticeOpts := []notice.Option{
		notice.WithLogger(log),
		notice.WithIdentity(resolver),
		notice.WithInitiations(initiator),
	}
	if tr := buildTranslator(cfg, log, m, &deps); tr != nil {
		noticeOpts = append(noticeOpts, notice.WithTranslator(tr))
	}
	notices := notice.New(backend, submitter, store, noticeOpts...)

	manager := lifecycle.New(backend, resolver, cfg.Consent.DataFiduciaryID,
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(m),
		lifecycle.WithAuditor(recorder),
		lifecycle.WithListLimit(cfg.Consent.ListLimit),
	)

	catalogSvc := catalog.New(backend,
		catalog.WithLogger(log),
		catalog.WithMetrics(m),
		catalog.WithAuditor(recorder),
	)
	validator := jwttoken.NewMiddlewareValidator(
		jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.Admin.Issuer, cfg.Admin.Audience),
	)

	relay, err := autherror.NewRelay(cfg.JWTSigningKey)
	if err != nil {
		log.Error("failed to build auth error relay", "error", err)
		os.Exit(1)
	}

	limiter := buildLimiter(cfg, log, m, &deps)

	router := chi.NewRouter()
	router.Get("/healthz", healthHandler(&deps))
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	consenthandler.New(initiator, notices, manager, log, m, device.Config{
		Secure: cfg.Cookie.Secure,
		MaxAge: cfg.Cookie.MaxAge,
	}, limiter).Register(router)
	cataloghandler.New(catalogSvc, validator, log, m, limiter).Register(router)
	auditsvc.NewHandler(auditReader, validator, log).Register(router)
	autherror.NewHandler(relay, log).Register(router)

	srv := httpserver.New(cfg.Addr, router, log)

	log.Info("starting cms portal", "addr", cfg.Addr, "backend", cfg.Backend.BaseURL)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildLimiter shares buckets through Redis when it is configured. The
// in-memory store is swept in the background for the life of the process.
func buildLimiter(cfg config.Server, log *slog.Logger, m *metrics.Metrics, deps *infra) *ratelimit.Limiter {
	var store ratelimit.Store
	if deps.redis != nil {
		store = ratelimit.NewRedisStore(deps.redis.Client)
	} else {
		mem := ratelimit.NewInMemoryStore()
		go func() {
			ticker := time.NewTicker(cfg.RateLimit.SweepInterval)
			defer ticker.Stop()
			for range ticker.C {
				mem.Sweep()
			}
		}()
		store = mem
	}
	return ratelimit.New(store,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(m),
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
	)
}

// buildClientStorage prefers Redis so every portal instance sees the same
// device values, and falls back to process memory.
func buildClientStorage(cfg config.Server, log *slog.Logger, deps *infra) clientStorage {
	client, err := platformredis.New(context.Background(), cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, using in-memory client storage", "error", err)
		return clientstore.NewInMemory()
	}
	if client == nil {
		log.Info("redis not configured, using in-memory client storage")
		return clientstore.NewInMemory()
	}
	deps.redis = client
	return clientstore.NewRedis(client.Client)
}

// buildAudit stores events in Postgres when configured (memory otherwise) and
// mirrors them to Kafka when brokers are set.
func buildAudit(cfg config.Server, log *slog.Logger, m *metrics.Metrics, deps *infra) (*auditsvc.Recorder, auditsvc.Reader) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store auditStore = auditmemory.NewInMemoryStore()
	if cfg.Database.DSN != "" {
		db, err := sql.Open("pgx", cfg.Database.DSN)
		if err == nil {
			err = db.PingContext(ctx)
		}
		if err == nil {
			pg := auditpostgres.New(db)
			if err = pg.EnsureSchema(ctx); err == nil {
				store = pg
				deps.db = db
			}
		}
		if err != nil {
			log.Warn("postgres audit store unavailable, using memory", "error", err)
			if db != nil {
				_ = db.Close()
			}
		}
	}

	opts := []publisher.Option{
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
		publisher.WithMetrics(m),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafkasink.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err == nil {
			if err = sink.EnsureTopic(ctx); err != nil {
				sink.Close()
			}
		}
		if err != nil {
			log.Warn("kafka audit sink unavailable", "error", err)
		} else {
			deps.kafka = sink
			opts = append(opts, publisher.WithSink("kafka", sink))
		}
	}

	deps.audit = publisher.NewPublisher(store, opts...)
	recorder := auditsvc.NewRecorder(deps.audit,
		auditsvc.WithLogger(log),
		auditsvc.WithMetrics(m),
	)
	return recorder, store
}

// buildTranslator returns nil when no endpoint is configured; notices are
// then shown in their own language only.
func buildTranslator(cfg config.Server, log *slog.Logger, m *metrics.Metrics, deps *infra) *translate.Service {
	if cfg.Translate.URL == "" {
		return nil
	}
	var cache translate.Cache = translate.NewMemoryCache(cfg.Translate.CacheSize, cfg.Translate.CacheTTL)
	if deps.redis != nil {
		cache = translate.Tiered{cache, translate.NewRedisCache(deps.redis.Client, cfg.Translate.CacheTTL)}
	}
	return translate.NewService(
		translate.NewHTTPTranslator(cfg.Translate.URL, cfg.Translate.Timeout),
		translate.WithCache(cache),
		translate.WithLogger(log),
		translate.WithMetrics(m),
	)
}

func healthHandler(deps *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if deps.redis != nil {
			if err := deps.redis.Health(ctx); err != nil {
				http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		if deps.db != nil {
			if err := deps.db.PingContext(ctx); err != nil {
				http.Error(w, "database unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
