package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/authz"
	"github.com/merchantry/bulwark/internal/application/ports"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
)

// LoginPath is where guests are redirected when a protected resource
// requires authentication.
const LoginPath = "/auth/login"

// Gate is the enforcement point composing the policy registry, principal
// deriver, and permission evaluator. One Protect-wrapped middleware guards
// each protected entry point; unregistered keys pass through allow.
type Gate struct {
	registry  *authz.Registry
	evaluator *authz.Evaluator
	deriver   *authz.Deriver
	profiles  ports.ProfileStore
	log       zerolog.Logger
}

func NewGate(registry *authz.Registry, evaluator *authz.Evaluator, deriver *authz.Deriver, profiles ports.ProfileStore, log zerolog.Logger) *Gate {
	return &Gate{registry: registry, evaluator: evaluator, deriver: deriver, profiles: profiles, log: log}
}

// Protect returns middleware enforcing the requirement registered for
// resourceKey. Unregistered keys pass straight through without touching the
// profile store; for registered keys the derived principal is placed in
// context for the handler.
func (g *Gate) Protect(resourceKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, registered := g.registry.Requirement(resourceKey)
			if !registered {
				next.ServeHTTP(w, r)
				return
			}

			sess := SessionFromContext(r.Context())
			var profile *ports.Profile
			if sess != nil {
				var err error
				profile, err = g.profiles.GetProfile(r.Context(), sess.AccountID)
				if err != nil {
					if errors.Is(err, domerrors.ErrAccountNotFound) {
						// Token subject no longer resolves; treat as guest.
						sess = nil
					} else {
						// Fail closed on store faults, never assume a role.
						g.log.Error().Err(err).Str("resource", resourceKey).Msg("profile load failed at enforcement gate")
						writeErr(w, http.StatusServiceUnavailable, "UNAVAILABLE", "temporarily unavailable, try again")
						return
					}
				}
			}
			principal := g.deriver.Derive(sess, profile)

			if !g.evaluator.HasPermission(principal, req) {
				if req.RequireAuth && !principal.Authenticated() {
					g.redirectToLogin(w, r)
					return
				}
				writeErr(w, http.StatusForbidden, "NOT_AUTHORIZED", "you are not authorized to perform this action")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// redirectToLogin signals the authentication redirect, carrying the
// originally intended destination for post-login return.
func (g *Gate) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":       "authentication required",
		"code":        "AUTH_REQUIRED",
		"redirect_to": LoginPath,
		"return_to":   r.URL.RequestURI(),
	})
}
