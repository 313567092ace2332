package audit

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/ports"
)

// TypeAppend is the asynq task type for one audit record.
const TypeAppend = "audit:append"

// QueueSink enqueues audit records for asynchronous, at-least-once delivery.
// Enqueue failures fall back to the given sink so a Redis outage degrades to
// synchronous delivery instead of dropping records.
type QueueSink struct {
	client   *asynq.Client
	fallback ports.AuditSink
	log      zerolog.Logger
}

func NewQueueSink(redisOpt asynq.RedisClientOpt, fallback ports.AuditSink, log zerolog.Logger) *QueueSink {
	return &QueueSink{client: asynq.NewClient(redisOpt), fallback: fallback, log: log}
}

func (s *QueueSink) Close() error {
	return s.client.Close()
}

func (s *QueueSink) Append(ctx context.Context, ev ports.AuditEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeAppend, payload, asynq.MaxRetry(5))
	if _, err := s.client.EnqueueContext(ctx, task); err != nil {
		s.log.Warn().Err(err).Str("event", ev.Event).Msg("audit enqueue failed; delivering inline")
		if s.fallback != nil {
			return s.fallback.Append(ctx, ev)
		}
		return err
	}
	return nil
}

var _ ports.AuditSink = (*QueueSink)(nil)

// Worker drains the audit queue into the delivery sink. Asynq retries failed
// deliveries, so duplicates are possible and tolerated downstream.
type Worker struct {
	srv  *asynq.Server
	mux  *asynq.ServeMux
	sink ports.AuditSink
	log  zerolog.Logger
}

// NewWorker creates an asynq server draining audit tasks into sink. Call
// Run() to start.
func NewWorker(redisOpt asynq.RedisClientOpt, sink ports.AuditSink, log zerolog.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		LogLevel:    asynq.InfoLevel,
	})
	mux := asynq.NewServeMux()
	w := &Worker{srv: srv, mux: mux, sink: sink, log: log}
	mux.HandleFunc(TypeAppend, w.handleAppend)
	return w
}

func (w *Worker) handleAppend(ctx context.Context, t *asynq.Task) error {
	var ev ports.AuditEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		w.log.Error().Err(err).Msg("audit task payload invalid")
		return err
	}
	return w.sink.Append(ctx, ev)
}

// Run blocks until shutdown. Use Shutdown for graceful stop.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Shutdown stops the worker.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
