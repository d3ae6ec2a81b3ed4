// Package app builds the recruitment portal from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"rnp-recruitment/internal/admin"
	adminhandler "rnp-recruitment/internal/admin/handler"
	applicanthandler "rnp-recruitment/internal/applicant/handler"
	"rnp-recruitment/internal/applicant/screening"
	applicant "rnp-recruitment/internal/applicant/service"
	"rnp-recruitment/internal/assistant"
	assistanthandler "rnp-recruitment/internal/assistant/handler"
	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/auth"
	"rnp-recruitment/internal/exam"
	examhandler "rnp-recruitment/internal/exam/handler"
	httpapi "rnp-recruitment/internal/http"
	"rnp-recruitment/internal/interview"
	interviewhandler "rnp-recruitment/internal/interview/handler"
	"rnp-recruitment/internal/notify"
	"rnp-recruitment/internal/platform/config"
	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/platform/postgres"
	"rnp-recruitment/internal/platform/redis"
	"rnp-recruitment/internal/ratelimit"
	"rnp-recruitment/internal/store"
	"rnp-recruitment/internal/store/backend"
	"rnp-recruitment/internal/sysconfig"
	sysconfighandler "rnp-recruitment/internal/sysconfig/handler"
	"rnp-recruitment/internal/verification"
	verificationhandler "rnp-recruitment/internal/verification/handler"
	"rnp-recruitment/internal/verification/registry"
)

// App is the assembled portal.
type App struct {
	Router http.Handler
	Store  *store.Store
	Admins *admin.Service
	Audit  *audit.Log

	closers []func() error
}

// Close releases connections opened by New in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Core is the storage and audit layer shared by the server and the CLI.
type Core struct {
	Store   *store.Store
	Audit   *audit.Log
	Metrics *metrics.Metrics
	// Redis is set when the redis backend is in use.
	Redis   *redis.Client
	closers []func() error
}

func (c *Core) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenCore connects the configured store backend and the audit sink.
func OpenCore(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*Core, error) {
	core := &Core{Metrics: m}

	be, closeBackend, err := openBackend(ctx, cfg, logger, core)
	if err != nil {
		return nil, err
	}
	if closeBackend != nil {
		core.closers = append(core.closers, closeBackend)
	}
	core.Store = store.New(be, store.WithLogger(logger), store.WithMetrics(m))

	auditOpts := []audit.Option{audit.WithLogger(logger), audit.WithMetrics(m)}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			_ = core.Close()
			return nil, err
		}
		core.closers = append(core.closers, func() error { sink.Close(); return nil })
		auditOpts = append(auditOpts, audit.WithSink(sink))
		logger.Info("audit entries published to kafka", "topic", cfg.Kafka.Topic)
	}
	core.Audit = audit.New(core.Store, auditOpts...)
	return core, nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger, core *Core) (store.Backend, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis store backend")
		core.Redis = client
		return backend.NewRedis(client.Client, cfg.Redis.KeyPrefix), client.Close, nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg := backend.NewPostgres(db, cfg.Postgres.Table)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate store table: %w", err)
		}
		logger.Info("using postgres store backend", "table", cfg.Postgres.Table)
		return pg, db.Close, nil
	default:
		logger.Warn("using in-memory store backend; records are lost on restart")
		return backend.NewMemory(), nil, nil
	}
}

// New wires every service and handler.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	core, err := OpenCore(ctx, cfg, logger, m)
	if err != nil {
		return nil, err
	}
	app := &App{Store: core.Store, Audit: core.Audit, closers: []func() error{core.Close}}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	applicants := applicant.New(core.Store, core.Audit,
		applicant.WithLogger(logger),
		applicant.WithMetrics(m),
		applicant.WithNotifier(notifier),
	)
	verifications := verification.New(core.Store, core.Audit, registry.NewMocks(cfg.Verification.MockLatency),
		verification.WithLogger(logger),
		verification.WithMetrics(m),
		verification.WithTimeout(cfg.Verification.Timeout),
		verification.WithRetry(cfg.Verification.MaxRetries, cfg.Verification.RetryDelay),
	)
	sittings := exam.NewSessions(cfg.Exam.Duration, cfg.Exam.MaxViolations)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sittings.RunSweeper(sweepCtx, time.Minute)
	app.closers = append(app.closers, func() error { stopSweep(); return nil })
	exams := exam.New(core.Store, core.Audit,
		exam.WithLogger(logger),
		exam.WithMetrics(m),
		exam.WithSessions(sittings),
		exam.WithStatusChangeHook(applicants),
	)
	interviews := interview.New(core.Store, core.Audit,
		interview.WithLogger(logger),
		interview.WithMetrics(m),
		interview.WithStatusChangeHook(applicants),
	)
	settings := sysconfig.New(core.Store, core.Audit, sysconfig.WithLogger(logger))
	admins := admin.New(core.Store, core.Audit,
		admin.WithLogger(logger),
		admin.WithCodeIndexKey(cfg.Auth.CodeIndexKey),
		admin.WithSuperAdmin(admin.SuperAdmin{
			Name:  cfg.Auth.SuperAdminName,
			Email: cfg.Auth.SuperAdminEmail,
			Code:  cfg.Auth.SuperAdminCode,
		}),
	)
	app.Admins = admins

	generated, err := admins.EnsureSuperAdmin(ctx)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("bootstrap super admin: %w", err)
	}
	if generated != "" {
		logger.Warn("generated super admin access code; set SUPER_ADMIN_CODE to pin it",
			"email", cfg.Auth.SuperAdminEmail,
			"access_code", generated,
		)
	}

	gemini, err := assistant.NewGemini(ctx, cfg.Assistant.GeminiAPIKey,
		assistant.WithLogger(logger),
		assistant.WithModel(cfg.Assistant.Model),
	)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("create assistant: %w", err)
	}
	app.closers = append(app.closers, gemini.Close)

	analyzer := screening.NewMockAnalyzer()
	if !cfg.Verification.MockLatency {
		analyzer = screening.NewMockAnalyzer(screening.WithLatency(0))
	}

	limiter := ratelimit.New(app.limitStore(core, cfg.Redis.KeyPrefix), logger,
		ratelimit.WithDisabled(!cfg.RateLimit.Enabled),
		ratelimit.WithMetrics(m),
	)

	tokens := auth.NewTokenService(cfg.Auth.JWTSigningKey, cfg.Auth.AdminTokenTTL, cfg.Auth.SessionTokenTTL)
	app.Router = httpapi.NewRouter(httpapi.Deps{
		Tokens:         auth.NewMiddlewareAdapter(tokens),
		Revocations:    admins,
		Logger:         logger,
		Metrics:        m,
		Gatherer:       reg,
		RequestTimeout: requestTimeout(cfg),
		Limiter:        limiter,
		AuthLimit:      ratelimit.Class{Name: "auth", Limit: cfg.RateLimit.AuthPerMinute, Window: time.Minute},
		PublicLimit:    ratelimit.Class{Name: "public", Limit: cfg.RateLimit.PublicPerMinute, Window: time.Minute},
	}, httpapi.Handlers{
		Applicants:    applicanthandler.New(applicants, tokens, analyzer, logger),
		Verifications: verificationhandler.New(verifications, logger),
		Exam:          examhandler.New(exams, logger),
		Interviews:    interviewhandler.New(interviews, logger),
		Admins:        adminhandler.New(admins, tokens, core.Audit, logger),
		Config:        sysconfighandler.New(settings, logger),
		Assistant:     assistanthandler.New(gemini, logger),
	})
	return app, nil
}

// limitStore shares rate limit windows between replicas when redis is
// available. The in-memory store is swept until the app closes.
func (a *App) limitStore(core *Core, prefix string) ratelimit.Store {
	if core.Redis != nil {
		return ratelimit.NewRedisStore(core.Redis.Client, prefix)
	}
	st := ratelimit.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	go st.RunSweeper(ctx, time.Minute, time.Minute)
	a.closers = append(a.closers, func() error { cancel(); return nil })
	return st
}

func newNotifier(cfg config.Config, logger *slog.Logger) (notify.Notifier, error) {
	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if cfg.Discord.BotToken != "" {
		d, err := notify.NewDiscordNotifier(cfg.Discord.BotToken, cfg.Discord.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("create discord notifier: %w", err)
		}
		notifiers = append(notifiers, d)
	}
	return notifiers, nil
}

// requestTimeout covers every retry of a registry check.
func requestTimeout(cfg config.Config) time.Duration {
	v := cfg.Verification
	total := time.Duration(v.MaxRetries+1)*(v.Timeout+v.RetryDelay) + 5*time.Second
	return max(total, httpapi.DefaultRequestTimeout)
}
