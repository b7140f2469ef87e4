package amqp

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/huzilerz/session-core/infra/pubsub/factory"
)

// Broker driver: console surfaces are separate processes
// (possibly separate hosts) joined through one amqp exchange.
type Factory struct {
	url    string
	logger watermill.LoggerAdapter
}

var _ factory.Factory = (*Factory)(nil)

func NewFactory(url string, logger watermill.LoggerAdapter) (*Factory, error) {
	return &Factory{
		url:    url,
		logger: logger,
	}, nil
}

func (f *Factory) Publisher() (message.Publisher, error) {
	cfg := amqp.NewDurablePubSubConfig(f.url, nil)
	cfg.Marshaler = Marshaler{}
	return amqp.NewPublisher(cfg, f.logger)
}

func (f *Factory) Subscriber(group string) (message.Subscriber, error) {
	cfg := amqp.NewDurablePubSubConfig(
		f.url,
		amqp.GenerateQueueNameTopicNameWithSuffix("."+group),
	)
	cfg.Marshaler = Marshaler{}
	return amqp.NewSubscriber(cfg, f.logger)
}
