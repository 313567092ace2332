package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/merchantry/bulwark/internal/application/ports"
	"github.com/merchantry/bulwark/internal/domain"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
)

// AssertionVerifier implements ports.AssertionVerifier for RS256 bearer
// tokens minted by the external identity provider. It holds only the
// provider's public key; this service never signs.
type AssertionVerifier struct {
	publicKey *rsa.PublicKey
	issuer    string
	audience  string
}

type assertionClaims struct {
	jwt.RegisteredClaims
	// Provider is how the subject authenticated: "password", "federated".
	Provider string `json:"provider"`
}

func NewAssertionVerifier(publicKey *rsa.PublicKey, issuer, audience string) *AssertionVerifier {
	return &AssertionVerifier{publicKey: publicKey, issuer: issuer, audience: audience}
}

// Verify parses the token and extracts the three fields this subsystem
// interprets: subject, issue time, and provider. Everything else in the
// credential is opaque.
func (v *AssertionVerifier) Verify(tokenString string) (*domain.Assertion, error) {
	token, err := jwt.ParseWithClaims(tokenString, &assertionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.publicKey, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithAudience(v.audience))
	if err != nil {
		return nil, domerrors.ErrAssertionInvalid
	}
	claims, ok := token.Claims.(*assertionClaims)
	if !ok || !token.Valid {
		return nil, domerrors.ErrAssertionInvalid
	}
	if claims.IssuedAt == nil {
		return nil, domerrors.ErrAssertionInvalid
	}
	subject, err := domain.ParseAccountID(claims.Subject)
	if err != nil {
		return nil, domerrors.ErrAssertionInvalid
	}
	return &domain.Assertion{
		Subject:  subject,
		IssuedAt: claims.IssuedAt.Time,
		Provider: domain.Provider(claims.Provider),
	}, nil
}

var _ ports.AssertionVerifier = (*AssertionVerifier)(nil)

// LoadRSAPublicKeyFromPEM parses a PEM-encoded RSA public key.
func LoadRSAPublicKeyFromPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, errors.New("parse RSA public key: " + err.Error())
	}
	return key, nil
}
