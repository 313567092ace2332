package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/infrastructure/http/handlers"
	"github.com/merchantry/bulwark/internal/infrastructure/http/middleware"
)

type RouterConfig struct {
	LoginHandler   *handlers.LoginHandler
	MFAHandler     *handlers.MFAHandler
	AccountHandler *handlers.AccountHandler
	AdminHandler   *handlers.AdminHandler
	HealthHandler  *handlers.HealthHandler
	Session        func(http.Handler) http.Handler // bearer assertion -> session in context
	Gate           *middleware.Gate                // policy enforcement per resource key
	Log            zerolog.Logger
	Secure         func(http.Handler) http.Handler
	IPRateLimit    func(http.Handler) http.Handler // applied to /auth/login
	Metrics        bool                            // expose /metrics
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(middleware.PrometheusMiddleware)
	}
	if cfg.Secure != nil {
		r.Use(cfg.Secure)
	}
	r.Use(chimid.AllowContentType("application/json"))

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.ServeHTTP)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.IPRateLimit != nil {
				r.Use(cfg.IPRateLimit)
			}
			r.Post("/login", cfg.LoginHandler.Login)
		})
		if cfg.MFAHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(cfg.Session)
				r.Post("/mfa/verify", cfg.MFAHandler.Verify)
			})
		}
	})

	r.Route("/account", func(r chi.Router) {
		r.Use(cfg.Session)
		r.With(cfg.Gate.Protect("account:security")).Get("/security", cfg.AccountHandler.Security)
		r.Group(func(r chi.Router) {
			// The gate requires a session; the step-up guard inside each
			// handler additionally requires recency.
			r.Use(cfg.Gate.Protect("account:sensitive"))
			r.Post("/email", cfg.AccountHandler.ChangeEmail)
			r.Post("/password", cfg.AccountHandler.ChangePassword)
			r.Delete("/", cfg.AccountHandler.Deactivate)
		})
	})

	if cfg.AdminHandler != nil {
		r.Route("/admin/accounts", func(r chi.Router) {
			r.Use(cfg.Session)
			r.Use(cfg.Gate.Protect("admin:accounts"))
			r.Get("/{id}/lockout", cfg.AdminHandler.LockoutStatus)
			r.Post("/{id}/unlock", cfg.AdminHandler.Unlock)
		})
	}

	return r
}

func loggerMiddleware(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimid.GetReqID(r.Context())
			log.Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request")
			next.ServeHTTP(w, r)
		})
	}
}
