package ports

import (
	"context"
	"time"
)

// AuditEvent is one security-audit record. Duplicates are tolerable; the
// pipeline is at-least-once.
type AuditEvent struct {
	At        time.Time `json:"at"`
	Event     string    `json:"event"`
	AccountID string    `json:"account_id,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Outcome   string    `json:"outcome"`
	Source    string    `json:"source,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// AuditSink appends audit records best-effort. A sink error must never fail
// the primary decision; callers log and swallow it.
type AuditSink interface {
	Append(ctx context.Context, ev AuditEvent) error
}
