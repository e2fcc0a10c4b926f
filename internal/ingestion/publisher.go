// Package ingestion connects stablecore to NATS JetStream: committed
// operations are published outbound for downstream consumers (indexers,
// liquidation bots, dashboards).
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"stablecore/internal/event"
	"stablecore/internal/observability"
)

// Outbound events are published after the in-memory commit. Subjects follow
// the pattern: stable.core.events.{event_type}
const outboundSubjectPrefix = "stable.core.events"

// PublishedEvent is the outbound wire form wrapping a typed payload.
type PublishedEvent struct {
	EventType      string      `json:"event_type"`
	IdempotencyKey string      `json:"idempotency_key"`
	Payload        interface{} `json:"payload"`
	PublishedAt    time.Time   `json:"published_at"`
}

// OutboundPublisher publishes committed events to JetStream. It implements
// core.EventSink; publish failures are reported to the caller, who treats
// them as non-fatal (the durable store remains the source of truth).
type OutboundPublisher struct {
	js      jetstream.JetStream
	metrics *observability.Metrics
}

func NewOutboundPublisher(js jetstream.JetStream, metrics *observability.Metrics) *OutboundPublisher {
	return &OutboundPublisher{js: js, metrics: metrics}
}

// Publish sends one event to stable.core.events.{event_type} with the
// idempotency key as the JetStream dedup id.
func (p *OutboundPublisher) Publish(ctx context.Context, evt event.Event) error {
	wire := PublishedEvent{
		EventType:      evt.EventType().String(),
		IdempotencyKey: evt.IdempotencyKey(),
		Payload:        evt,
		PublishedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", outboundSubjectPrefix, wire.EventType)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(wire.IdempotencyKey)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(wire.EventType).Inc()
	}
	return nil
}

// EnsureOutboundStream creates the outbound events stream if missing.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "STABLE_CORE_EVENTS",
		Subjects:  []string{outboundSubjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	return nil
}
