package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/ports"
)

// AuditLog logs a security event with request correlation.
func AuditLog(log zerolog.Logger, r *http.Request, event, accountID string, success bool, errMsg string) {
	ev := log.Info()
	if !success {
		ev = log.Warn()
	}
	ev.
		Str("event", event).
		Str("account_id", accountID).
		Str("ip", getClientIP(r)).
		Str("request_id", middleware.GetReqID(r.Context())).
		Bool("success", success)
	if errMsg != "" {
		ev.Str("error", errMsg)
	}
	ev.Msg("auth_audit")
}

// AuditEmit logs the event and, if sink is non-nil, appends it to the audit
// pipeline. Sink failures never surface to the caller.
func AuditEmit(log zerolog.Logger, r *http.Request, sink ports.AuditSink, event, accountID string, success bool, errMsg string) {
	AuditLog(log, r, event, accountID, success, errMsg)
	if sink == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	if err := sink.Append(r.Context(), ports.AuditEvent{
		At:        time.Now(),
		Event:     event,
		AccountID: accountID,
		Outcome:   outcome,
		Source:    getClientIP(r),
		UserAgent: r.UserAgent(),
		Detail:    errMsg,
	}); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("audit append failed")
	}
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return r.RemoteAddr
}
