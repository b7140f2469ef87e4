// Package pubsub is broker access for application code:
// the delivery fabric behind cross-surface session events.
// Delivery semantics are the same for every driver:
// at-least-once, ordered per sender.
package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/huzilerz/session-core/infra/pubsub/factory"
)

// Provider. Broker publish/subscribe access.
type Provider interface {
	// Publish [msg] to [topic].
	Publish(topic string, msg *message.Message) error
	// Subscribe to [topic] ; the channel closes when [ctx] is done.
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	// Close the underlying broker connection(s).
	Close() error
}

type defaultProvider struct {
	pub message.Publisher
	sub message.Subscriber
}

// NewDefaultProvider builds a Provider from driver [fab].
// [group] isolates this process' subscription from siblings,
// so every surface receives its own copy of each event.
func NewDefaultProvider(fab factory.Factory, group string) (Provider, error) {
	pub, err := fab.Publisher()
	if err != nil {
		return nil, err
	}
	sub, err := fab.Subscriber(group)
	if err != nil {
		pub.Close()
		return nil, err
	}
	return &defaultProvider{
		pub: pub,
		sub: sub,
	}, nil
}

func (p *defaultProvider) Publish(topic string, msg *message.Message) error {
	return p.pub.Publish(topic, msg)
}

func (p *defaultProvider) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.sub.Subscribe(ctx, topic)
}

func (p *defaultProvider) Close() error {
	perr := p.pub.Close()
	serr := p.sub.Close()
	if perr != nil {
		return perr
	}
	return serr
}
