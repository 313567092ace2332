package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthCheck probes one dependency of the service.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler serves /health: dependency probes plus the mode each
// degradable subsystem is running in. The service stays up without Redis,
// but audit delivery falls back to inline and MFA state becomes
// per-instance; operators read that off the components map.
type HealthHandler struct {
	checks     []HealthCheck
	components map[string]string
}

func NewHealthHandler(checks []HealthCheck, components map[string]string) *HealthHandler {
	return &HealthHandler{checks: checks, components: components}
}

type healthResponse struct {
	Status     string            `json:"status"`
	Checks     map[string]string `json:"checks,omitempty"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allOK := true
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = "down: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !allOK {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:     "unhealthy",
			Checks:     checks,
			Components: h.components,
			Message:    "one or more checks failed",
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:     "ok",
		Checks:     checks,
		Components: h.components,
	})
}
