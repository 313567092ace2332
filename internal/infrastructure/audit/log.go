package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/ports"
)

// LogSink writes audit records to the structured log. It never fails, which
// makes it the terminal fallback of the audit pipeline.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Append(ctx context.Context, ev ports.AuditEvent) error {
	s.log.Info().
		Str("event", ev.Event).
		Str("account_id", ev.AccountID).
		Str("provider", ev.Provider).
		Str("resource", ev.Resource).
		Str("outcome", ev.Outcome).
		Str("ip", ev.Source).
		Str("user_agent", ev.UserAgent).
		Time("at", ev.At).
		Msg("security_audit")
	return nil
}

var _ ports.AuditSink = (*LogSink)(nil)
