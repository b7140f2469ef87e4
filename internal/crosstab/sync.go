// Package crosstab propagates login, logout, token-refresh and
// workspace-switch events to the other open surfaces of the
// same origin. Delivery is best-effort: at-least-once, ordered
// per sender, with stale messages discarded by a short TTL.
package crosstab

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/huzilerz/session-core/infra/pubsub"
	"github.com/huzilerz/session-core/internal/model"
)

// Broadcast topic ; one per origin
const DefaultTopic = "huzilerz.session.events"

// DefaultTTL discards events older than this on receipt.
const DefaultTTL = 5 * time.Second

// Synchronizer. Session event fan-out for one surface.
type Synchronizer struct {
	id    string // sender (surface) identity
	bus   pubsub.Provider
	topic string
	ttl   time.Duration
	clock model.Clock
	logs  *slog.Logger
}

type Option func(s *Synchronizer)

func WithTopic(topic string) Option {
	return func(s *Synchronizer) {
		if topic != "" {
			s.topic = topic
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Synchronizer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(clock model.Clock) Option {
	return func(s *Synchronizer) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(bus pubsub.Provider, logs *slog.Logger, opts ...Option) *Synchronizer {
	if logs == nil {
		logs = slog.Default()
	}
	s := &Synchronizer{
		id:    uuid.NewString(),
		bus:   bus,
		topic: DefaultTopic,
		ttl:   DefaultTTL,
		clock: model.LocalTime,
		logs:  logs,
	}
	for _, option := range opts {
		option(s)
	}
	return s
}

// SenderID of this surface.
func (s *Synchronizer) SenderID() string {
	return s.id
}

// Broadcast publishes [event] to sibling surfaces.
// Sender identity and timestamp are stamped here.
func (s *Synchronizer) Broadcast(ctx context.Context, event Event) error {
	event.SenderID = s.id
	event.SentAt = s.clock.Now().UnixMilli()

	raw, err := json.Marshal(&event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.NewString(), raw)
	msg.SetContext(ctx)

	if err = s.bus.Publish(s.topic, msg); err != nil {
		s.logs.WarnContext(ctx, "crosstab: broadcast failed",
			"event", string(event.Type),
			"error", err,
		)
		return err
	}
	return nil
}

// Run subscribes and applies received events, in receipt
// order, until [ctx] is done. Own messages are skipped ;
// events older than the TTL are discarded, acked, and never
// reach [apply].
func (s *Synchronizer) Run(ctx context.Context, apply func(Event)) error {
	recv, err := s.bus.Subscribe(ctx, s.topic)
	if err != nil {
		return err
	}
	for msg := range recv {
		event := new(Event)
		if err = json.Unmarshal(msg.Payload, event); err != nil {
			s.logs.WarnContext(ctx, "crosstab: undecodable event dropped",
				"message_id", msg.UUID,
				"error", err,
			)
			msg.Ack()
			continue
		}
		switch {
		case event.SenderID == s.id:
			// own echo
		case event.Expire(s.clock.Now(), s.ttl):
			s.logs.DebugContext(ctx, "crosstab: stale event discarded",
				"event", string(event.Type),
				"sent_at", event.SentAt,
			)
		default:
			apply(*event)
		}
		msg.Ack()
	}
	return nil
}
