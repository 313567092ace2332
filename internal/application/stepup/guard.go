package stepup

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/authz"
	"github.com/merchantry/bulwark/internal/application/ports"
	"github.com/merchantry/bulwark/internal/domain"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
)

// Freshness windows per provider. A federated assertion proves recency via
// the provider's own re-auth popup, so its window is tighter; a password
// assertion additionally requires the current password in the request.
const (
	FederatedFreshness = 2 * time.Minute
	PasswordFreshness  = 5 * time.Minute
)

// Request carries everything the guard inspects for one sensitive operation.
type Request struct {
	Token           string
	Resource        string
	CurrentPassword string
	Source          string
	UserAgent       string
}

// Grant is a successful step-up decision.
type Grant struct {
	Principal domain.Principal
	Provider  domain.Provider
}

// Guard gates sensitive operations on proof of recent authentication beyond
// a valid session. Stateless per call except for the best-effort audit
// write; unknown providers are rejected outright.
type Guard struct {
	assertions ports.AssertionVerifier
	profiles   ports.ProfileStore
	passwords  ports.PasswordVerifier
	mfa        ports.MFAStateStore
	deriver    *authz.Deriver
	audit      ports.AuditSink
	log        zerolog.Logger
	now        func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithPasswordVerifier enables verification of the supplied current password
// against the stored hash. Without it only presence is enforced.
func WithPasswordVerifier(v ports.PasswordVerifier) Option {
	return func(g *Guard) { g.passwords = v }
}

// WithMFAState wires the server-side MFA state consulted during principal
// derivation.
func WithMFAState(s ports.MFAStateStore) Option {
	return func(g *Guard) { g.mfa = s }
}

// NewGuard builds a step-up guard.
func NewGuard(assertions ports.AssertionVerifier, profiles ports.ProfileStore, deriver *authz.Deriver, audit ports.AuditSink, log zerolog.Logger, opts ...Option) *Guard {
	g := &Guard{
		assertions: assertions,
		profiles:   profiles,
		deriver:    deriver,
		audit:      audit,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize decides one sensitive operation. Every call, allowed or denied,
// appends a best-effort audit record; a failed audit write never changes
// the decision. Store faults deny (fail closed).
func (g *Guard) Authorize(ctx context.Context, req Request) (*Grant, error) {
	assertion, err := g.assertions.Verify(req.Token)
	if err != nil || assertion == nil {
		g.record(ctx, req, nil, string(CodeAuthRequired))
		return nil, ErrAuthRequired
	}

	if denied := g.checkFreshness(assertion, req); denied != nil {
		g.record(ctx, req, assertion, string(denied.Code))
		return nil, denied
	}

	profile, err := g.profiles.GetProfile(ctx, assertion.Subject)
	if err != nil {
		// Unknown subject and store fault both deny; a token whose subject
		// no longer resolves is not a valid credential.
		if !errors.Is(err, domerrors.ErrAccountNotFound) {
			g.log.Error().Err(err).Str("account_id", assertion.Subject.String()).Msg("profile load failed during step-up")
		}
		g.record(ctx, req, assertion, string(CodeAuthRequired))
		return nil, ErrAuthRequired
	}

	if assertion.Provider == domain.ProviderPassword && g.passwords != nil {
		if !g.passwords.Verify(req.CurrentPassword, profile.PasswordHash) {
			g.record(ctx, req, assertion, string(CodeCurrentPasswordRequired))
			return nil, ErrCurrentPasswordRequired
		}
	}

	sess := &authz.Session{
		AccountID:   assertion.Subject,
		Provider:    assertion.Provider,
		MFAVerified: g.mfaVerified(ctx, assertion.Subject),
	}
	grant := &Grant{
		Principal: g.deriver.Derive(sess, profile),
		Provider:  assertion.Provider,
	}
	g.record(ctx, req, assertion, "allowed")
	return grant, nil
}

// checkFreshness applies the provider policy table. Unknown providers fail
// closed.
func (g *Guard) checkFreshness(assertion *domain.Assertion, req Request) *Error {
	age := assertion.Age(g.now())
	switch assertion.Provider {
	case domain.ProviderFederated:
		if age > FederatedFreshness {
			return ErrFreshAuthRequired
		}
	case domain.ProviderPassword:
		if age > PasswordFreshness {
			return ErrRecentAuthRequired
		}
		if req.CurrentPassword == "" {
			return ErrCurrentPasswordRequired
		}
	default:
		return ErrUnsupportedProvider
	}
	return nil
}

func (g *Guard) mfaVerified(ctx context.Context, id domain.AccountID) bool {
	if g.mfa == nil {
		return false
	}
	ok, err := g.mfa.IsVerified(ctx, id.String())
	if err != nil {
		// Fail closed: an unreadable MFA state counts as unverified.
		g.log.Warn().Err(err).Str("account_id", id.String()).Msg("mfa state lookup failed")
		return false
	}
	return ok
}

// record appends the audit entry for one decision, fire-and-forget.
func (g *Guard) record(ctx context.Context, req Request, assertion *domain.Assertion, outcome string) {
	ev := ports.AuditEvent{
		At:        g.now(),
		Event:     "stepup.authorize",
		Resource:  req.Resource,
		Outcome:   outcome,
		Source:    req.Source,
		UserAgent: req.UserAgent,
	}
	if assertion != nil {
		ev.AccountID = assertion.Subject.String()
		ev.Provider = string(assertion.Provider)
	}
	if g.audit == nil {
		return
	}
	if err := g.audit.Append(ctx, ev); err != nil {
		g.log.Warn().Err(err).Str("resource", req.Resource).Msg("step-up audit append failed")
	}
}
