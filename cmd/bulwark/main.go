package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/authz"
	"github.com/merchantry/bulwark/internal/application/lockout"
	"github.com/merchantry/bulwark/internal/application/ports"
	"github.com/merchantry/bulwark/internal/application/stepup"
	"github.com/merchantry/bulwark/internal/config"
	auditsink "github.com/merchantry/bulwark/internal/infrastructure/audit"
	httprouter "github.com/merchantry/bulwark/internal/infrastructure/http"
	"github.com/merchantry/bulwark/internal/infrastructure/http/handlers"
	"github.com/merchantry/bulwark/internal/infrastructure/http/middleware"
	"github.com/merchantry/bulwark/internal/infrastructure/identity"
	"github.com/merchantry/bulwark/internal/infrastructure/mfa"
	"github.com/merchantry/bulwark/internal/infrastructure/persistence/postgres"
	"github.com/merchantry/bulwark/internal/infrastructure/security"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed; continuing without redis")
			redisClient = nil
		}
	}

	accountStore := postgres.NewAccountStore(pool)
	profileStore := postgres.NewProfileStore(pool)

	// Audit pipeline: queue to redis when available, otherwise deliver
	// inline. The terminal sink is the webhook collector or the log.
	var delivery ports.AuditSink = auditsink.NewLogSink(log)
	if cfg.Audit.WebhookURL != "" {
		opts := []auditsink.HTTPSinkOption{}
		if cfg.Audit.WebhookToken != "" {
			opts = append(opts, auditsink.WithHeader("Authorization", "Bearer "+cfg.Audit.WebhookToken))
		}
		delivery = auditsink.NewHTTPSink(cfg.Audit.WebhookURL, opts...)
	}
	audit := delivery
	var auditWorker *auditsink.Worker
	if redisClient != nil {
		redisOpt, _ := redis.ParseURL(cfg.Redis.URL)
		asynqOpt := asynq.RedisClientOpt{Addr: redisOpt.Addr, Password: redisOpt.Password, DB: redisOpt.DB}
		queueSink := auditsink.NewQueueSink(asynqOpt, delivery, log)
		defer queueSink.Close()
		audit = queueSink
		auditWorker = auditsink.NewWorker(asynqOpt, delivery, log)
		go func() {
			if err := auditWorker.Run(); err != nil {
				log.Warn().Err(err).Msg("audit worker stopped")
			}
		}()
	}

	var mfaState ports.MFAStateStore
	if redisClient != nil {
		mfaState = mfa.NewRedisStore(redisClient)
	} else {
		log.Warn().Msg("redis unavailable; MFA state is per-instance only")
		mfaState = mfa.NewMemoryStore()
	}

	pemBytes, err := cfg.LoadIdentityPublicKey()
	if err != nil {
		log.Fatal().Err(err).Msg("load identity provider public key")
	}
	publicKey, err := identity.LoadRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("parse identity provider public key")
	}
	assertions := identity.NewAssertionVerifier(publicKey, cfg.Identity.Issuer, cfg.Identity.Audience)
	idp := identity.NewHTTPIdentityProvider(cfg.Identity.TokenURL)

	hasher := security.NewArgon2Hasher(security.DefaultArgon2Params())

	lockouts := lockout.NewManager(accountStore, log)
	deriver := authz.NewDeriver()
	evaluator := authz.NewEvaluator(authz.DefaultGrantTable())
	registry := authz.DefaultRegistry()
	guard := stepup.NewGuard(assertions, profileStore, deriver, audit, log,
		stepup.WithPasswordVerifier(hasher),
		stepup.WithMFAState(mfaState),
	)

	sessionLoader := middleware.NewSessionLoader(assertions, mfaState, log)
	gate := middleware.NewGate(registry, evaluator, deriver, profileStore, log)

	ipLimit, err := middleware.NewIPRateLimiter(cfg.RateLimit.RatePerIP)
	if err != nil {
		log.Fatal().Err(err).Msg("create IP rate limiter")
	}
	secureMiddleware := middleware.NewSecure(middleware.SecureOptions(cfg.Secure.IsDevelopment))

	loginHandler := handlers.NewLoginHandler(profileStore, lockouts, idp, hasher, audit, log)
	mfaHandler := handlers.NewMFAHandler(profileStore, mfaState, security.NewTOTPVerifier(), time.Duration(cfg.MFA.VerifiedTTL)*time.Second, log)
	accountHandler := handlers.NewAccountHandler(guard, profileStore, lockouts, hasher, audit, log)
	adminHandler := handlers.NewAdminHandler(lockouts, audit, log)

	healthChecks := []handlers.HealthCheck{
		{Name: "database", Check: pool.Ping},
	}
	components := map[string]string{"audit": "inline", "mfa_state": "memory"}
	if redisClient != nil {
		healthChecks = append(healthChecks, handlers.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
		components["audit"] = "queued"
		components["mfa_state"] = "redis"
	}
	if cfg.Audit.WebhookURL != "" {
		components["audit_delivery"] = "webhook"
	} else {
		components["audit_delivery"] = "log"
	}
	healthHandler := handlers.NewHealthHandler(healthChecks, components)

	router := httprouter.NewRouter(httprouter.RouterConfig{
		LoginHandler:   loginHandler,
		MFAHandler:     mfaHandler,
		AccountHandler: accountHandler,
		AdminHandler:   adminHandler,
		HealthHandler:  healthHandler,
		Session:        sessionLoader.Handler,
		Gate:           gate,
		Log:            log,
		Secure:         secureMiddleware,
		IPRateLimit:    ipLimit,
		Metrics:        true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if auditWorker != nil {
		auditWorker.Shutdown()
	}
	log.Info().Msg("server stopped")
}
