package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sink receives events for out-of-process delivery (Kafka). Delivery is
// best-effort.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher captures structured audit events: appended to the store
// synchronously, handed to the sink worker asynchronously. Fail-open on
// both paths.
type Publisher struct {
	store  Store
	inbox  chan<- Event
	logger *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithInbox connects the publisher to a worker's event channel.
func WithInbox(inbox chan<- Event) PublisherOption {
	return func(p *Publisher) { p.inbox = inbox }
}

// WithLogger sets a logger for degradation warnings.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// NewPublisher creates a publisher over the given store.
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records one event. Store or queue failures are logged and
// swallowed; the caller's enrichment result is never affected.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.store != nil {
		if err := p.store.Append(ctx, event); err != nil {
			p.warn(ctx, "audit append failed", err)
		}
	}

	if p.inbox != nil {
		select {
		case p.inbox <- event:
		default:
			// Queue full: drop rather than block an enrichment on the broker.
			p.warn(ctx, "audit queue full, event not published", nil)
		}
	}
}

func (p *Publisher) warn(ctx context.Context, msg string, err error) {
	if p.logger != nil {
		p.logger.WarnContext(ctx, msg, "error", err)
	}
}
