package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/authz"
	"github.com/merchantry/bulwark/internal/domain"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
)

type stubVerifier struct {
	assertions map[string]*domain.Assertion
}

func (v *stubVerifier) Verify(token string) (*domain.Assertion, error) {
	a, ok := v.assertions[token]
	if !ok {
		return nil, domerrors.ErrAssertionInvalid
	}
	return a, nil
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "absent", header: "", want: ""},
		{name: "bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "lowercase scheme", header: "bearer abc", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := BearerToken(r); got != tt.want {
				t.Errorf("BearerToken = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionLoader(t *testing.T) {
	id := domain.NewAccountID(uuid.New())
	verifier := &stubVerifier{assertions: map[string]*domain.Assertion{
		"good": {Subject: id, IssuedAt: time.Now(), Provider: domain.ProviderFederated},
	}}
	loader := NewSessionLoader(verifier, nil, zerolog.Nop())

	capture := func() (http.Handler, **authz.Session) {
		var sess *authz.Session
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess = SessionFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}), &sess
	}

	t.Run("valid token sets session", func(t *testing.T) {
		h, sess := capture()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		loader.Handler(h).ServeHTTP(httptest.NewRecorder(), req)
		if *sess == nil {
			t.Fatal("no session in context")
		}
		if (*sess).AccountID != id {
			t.Errorf("AccountID = %v, want %v", (*sess).AccountID, id)
		}
		if (*sess).Provider != domain.ProviderFederated {
			t.Errorf("Provider = %q", (*sess).Provider)
		}
	})

	t.Run("invalid token degrades to guest", func(t *testing.T) {
		h, sess := capture()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer forged")
		w := httptest.NewRecorder()
		loader.Handler(h).ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d; the loader must not deny", w.Code)
		}
		if *sess != nil {
			t.Fatal("forged token produced a session")
		}
	})

	t.Run("no credential passes through", func(t *testing.T) {
		h, sess := capture()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		loader.Handler(h).ServeHTTP(httptest.NewRecorder(), req)
		if *sess != nil {
			t.Fatal("anonymous request produced a session")
		}
	})
}
