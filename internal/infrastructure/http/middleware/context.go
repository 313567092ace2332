package middleware

import (
	"context"

	"github.com/merchantry/bulwark/internal/application/authz"
	"github.com/merchantry/bulwark/internal/domain"
)

type contextKey string

const (
	sessionContextKey   contextKey = "session"
	principalContextKey contextKey = "principal"
)

// WithSession injects the authenticated session into the context.
func WithSession(ctx context.Context, sess *authz.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFromContext returns the session from the context, or nil for
// anonymous requests.
func SessionFromContext(ctx context.Context) *authz.Session {
	v := ctx.Value(sessionContextKey)
	if v == nil {
		return nil
	}
	s, _ := v.(*authz.Session)
	return s
}

// WithPrincipal injects the derived principal into the context. Set by the
// enforcement gate so handlers never re-derive.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal placed by the enforcement gate,
// or the guest principal when no gate ran.
func PrincipalFromContext(ctx context.Context) domain.Principal {
	v := ctx.Value(principalContextKey)
	if v == nil {
		return domain.Guest()
	}
	p, ok := v.(domain.Principal)
	if !ok {
		return domain.Guest()
	}
	return p
}
