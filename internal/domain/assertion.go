package domain

import "time"

// Provider identifies the authentication method behind an assertion.
type Provider string

const (
	ProviderPassword  Provider = "password"
	ProviderFederated Provider = "federated"
)

// Assertion is the slice of an identity-provider credential this subsystem
// interprets: who, when it was issued, and how they authenticated. Minting
// and revocation belong to the identity provider.
type Assertion struct {
	Subject  AccountID
	IssuedAt time.Time
	Provider Provider
}

// Age returns how long ago the assertion was issued.
func (a Assertion) Age(now time.Time) time.Duration {
	return now.Sub(a.IssuedAt)
}
