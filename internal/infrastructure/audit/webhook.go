package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/merchantry/bulwark/internal/application/ports"
)

// HTTPSink delivers audit records to an external collector via POST JSON.
type HTTPSink struct {
	client  *http.Client
	url     string
	headers map[string]string
}

// HTTPSinkOption configures HTTPSink.
type HTTPSinkOption func(*HTTPSink)

// WithClient sets the HTTP client (default: 10s timeout).
func WithClient(c *http.Client) HTTPSinkOption {
	return func(s *HTTPSink) { s.client = c }
}

// WithHeader sets a header sent on every request (e.g. Authorization).
func WithHeader(key, value string) HTTPSinkOption {
	return func(s *HTTPSink) {
		if s.headers == nil {
			s.headers = make(map[string]string)
		}
		s.headers[key] = value
	}
}

// NewHTTPSink returns an AuditSink that POSTs each AuditEvent as JSON to url.
func NewHTTPSink(url string, opts ...HTTPSinkOption) *HTTPSink {
	s := &HTTPSink{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSink) Append(ctx context.Context, ev ports.AuditEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &deliveryError{status: resp.StatusCode}
	}
	return nil
}

type deliveryError struct {
	status int
}

func (e *deliveryError) Error() string {
	return "audit collector returned non-2xx status"
}

var _ ports.AuditSink = (*HTTPSink)(nil)
