package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/authz"
	"github.com/merchantry/bulwark/internal/application/ports"
)

// BearerToken extracts the bearer credential from the Authorization header,
// or "" when absent.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// SessionLoader verifies the bearer assertion, consults the server-side MFA
// state, and sets the session in context. Requests without a valid
// credential continue as guests; denial is the enforcement gate's job.
type SessionLoader struct {
	assertions ports.AssertionVerifier
	mfa        ports.MFAStateStore
	log        zerolog.Logger
}

func NewSessionLoader(assertions ports.AssertionVerifier, mfa ports.MFAStateStore, log zerolog.Logger) *SessionLoader {
	return &SessionLoader{assertions: assertions, mfa: mfa, log: log}
}

func (m *SessionLoader) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		assertion, err := m.assertions.Verify(token)
		if err != nil || assertion == nil {
			// Invalid credential degrades to guest rather than erroring;
			// protected resources then deny with AUTH_REQUIRED.
			next.ServeHTTP(w, r)
			return
		}
		sess := &authz.Session{
			AccountID: assertion.Subject,
			Provider:  assertion.Provider,
		}
		if m.mfa != nil {
			verified, err := m.mfa.IsVerified(r.Context(), assertion.Subject.String())
			if err != nil {
				// Fail closed: unreadable MFA state counts as unverified.
				m.log.Warn().Err(err).Str("account_id", assertion.Subject.String()).Msg("mfa state lookup failed")
			}
			sess.MFAVerified = verified
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}
