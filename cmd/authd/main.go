package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	authcore "github.com/fintrackr/authcore"
	authmw "github.com/fintrackr/authcore/middleware"
	promexport "github.com/fintrackr/authcore/metrics/export/prometheus"
	"github.com/fintrackr/authcore/store/postgres"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("authd: %v", err)
	}

	ctx := context.Background()

	if cfg.Migrate {
		if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
			log.Fatalf("authd: migrate: %v", err)
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("authd: connect postgres: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()

	engineCfg := engineConfig(cfg)

	builder := authcore.New().
		WithConfig(engineCfg).
		WithStore(postgres.New(pool)).
		WithRedis(redisClient).
		WithNotifier(notifierFor(cfg))
	if cfg.AuditLog {
		builder = builder.WithAuditSink(authcore.NewJSONWriterSink(os.Stdout))
	}

	engine, err := builder.Build()
	if err != nil {
		log.Fatalf("authd: build engine: %v", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router(engine, cfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.ReadTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("authd: listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("authd: serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("authd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("authd: forced shutdown: %v", err)
	}
}

func engineConfig(cfg *config) authcore.Config {
	engineCfg := authcore.DefaultConfig()

	engineCfg.JWT.SigningMethod = cfg.SigningMethod
	if cfg.SigningMethod == "hs256" {
		engineCfg.JWT.PrivateKey = []byte(cfg.JWTSecret)
	} else {
		engineCfg.JWT.PrivateKey = []byte(cfg.JWTPrivateKey)
		engineCfg.JWT.PublicKey = []byte(cfg.JWTPublicKey)
	}
	engineCfg.JWT.AccessTTL = cfg.AccessTTL
	engineCfg.Refresh.TTL = cfg.RefreshTTL
	engineCfg.Lockout.MaxAttempts = cfg.LockoutMaxAttempts
	engineCfg.Lockout.LockDuration = cfg.LockoutDuration
	engineCfg.StepUp.AfterInactivity = cfg.StepUpInactivity
	return engineCfg
}

func router(engine *authcore.Engine, cfg *config) http.Handler {
	h := &handlers{engine: engine}
	metrics := promexport.NewPrometheusExporter(engine)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(authmw.ClientIP())
	r.Use(httprate.LimitByIP(cfg.IPRateLimit, cfg.IPRateWindow))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Credential-bearing endpoints carry the tighter per-IP budget.
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.StrictLimit, cfg.IPRateWindow))
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/login/confirm", h.confirmLogin)
		r.Post("/auth/verify-email", h.verifyEmail)
		r.Post("/auth/verify-email/code", h.verifyEmailCode)
		r.Post("/auth/resend-verification", h.resendVerification)
		r.Post("/auth/password-reset/request", h.requestPasswordReset)
		r.Post("/auth/password-reset/confirm", h.resetPassword)
	})

	r.Post("/auth/refresh", h.refresh)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAccessToken(engine))
		r.Post("/auth/logout", h.logout)
		r.Post("/auth/password", h.changePassword)
		r.Get("/auth/profile", h.profile)
	})

	return r
}
