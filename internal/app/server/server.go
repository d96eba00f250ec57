package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contractorpay/internal/domain/audit"
	"contractorpay/internal/domain/auth"
	"contractorpay/internal/domain/company"
	"contractorpay/internal/domain/contract"
	"contractorpay/internal/domain/payroll"
	"contractorpay/internal/domain/policy"
	"contractorpay/internal/platform/config"
	"contractorpay/internal/platform/db"
	"contractorpay/internal/platform/metrics"
	"contractorpay/internal/transport/http/api"
	audithandler "contractorpay/internal/transport/http/handlers/audit"
	authhandler "contractorpay/internal/transport/http/handlers/auth"
	companyhandler "contractorpay/internal/transport/http/handlers/company"
	payrecordhandler "contractorpay/internal/transport/http/handlers/payrecords"
	policyhandler "contractorpay/internal/transport/http/handlers/policy"
	providerhandler "contractorpay/internal/transport/http/handlers/providers"
	"contractorpay/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	Pool   *pgxpool.Pool
	Router http.Handler
}

// New connects, migrates and seeds the database and assembles the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	authService := auth.NewService(auth.NewStore(pool), cfg.JWTSecret)
	contractService := contract.NewService(contract.NewStore(pool))
	policyResolver := policy.NewResolver(policy.NewStore(pool))
	payrollService := payroll.NewService(payroll.NewStore(pool), policyResolver, contractService)
	auditService := audit.New(pool)
	collector := metrics.New()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authService).RegisterRoutes(r)
		companyhandler.NewHandler(company.NewStore(pool), auditService).RegisterRoutes(r)
		providerhandler.NewHandler(contractService, auditService).RegisterRoutes(r)
		policyhandler.NewHandler(policyResolver, auditService).RegisterRoutes(r)
		payrecordhandler.NewHandler(payrollService, contractService, auditService, collector).RegisterRoutes(r)
		audithandler.NewHandler(auditService).RegisterRoutes(r)

		if cfg.MetricsEnabled {
			r.With(middleware.RequireRole(auth.RoleAdmin)).Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
				api.Success(w, collector.Snapshot(), middleware.GetRequestID(req.Context()))
			})
		}
	})

	return &App{Config: cfg, Pool: pool, Router: router}, nil
}

func (a *App) Close() {
	a.Pool.Close()
}

func Run() {
	cfg := config.Load()
	app, err := New(context.Background(), cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		return
	}
	defer app.Close()

	slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		slog.Error("server failed", "err", err)
	}
}
