package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and delivers them to the
// sink. It runs in its own goroutine so broker latency never shows up in
// request handling.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

// NewWorker creates a worker draining inbox into sink.
func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run delivers events until ctx is canceled. Delivery failures are logged
// and the worker keeps going; one bad event must not stall the queue.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil && w.logger != nil {
				w.logger.WarnContext(ctx, "audit publish failed",
					"event_id", event.ID,
					"company_id", event.CompanyID,
					"error", err)
			}
		}
	}
}
