package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/merchantry/bulwark/internal/application/ports"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
)

// HTTPIdentityProvider calls the external identity provider's token endpoint
// to verify primary credentials. The provider owns hashing, token minting,
// and revocation; this client only relays the outcome.
type HTTPIdentityProvider struct {
	client   *http.Client
	tokenURL string
}

func NewHTTPIdentityProvider(tokenURL string) *HTTPIdentityProvider {
	return &HTTPIdentityProvider{
		client:   &http.Client{Timeout: 10 * time.Second},
		tokenURL: tokenURL,
	}
}

func (p *HTTPIdentityProvider) Authenticate(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type": "password",
		"email":      email,
		"password":   password,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", err
		}
		return out.AccessToken, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return "", domerrors.ErrInvalidCredentials
	default:
		return "", domerrors.ErrStoreUnavailable
	}
}

var _ ports.IdentityProvider = (*HTTPIdentityProvider)(nil)
