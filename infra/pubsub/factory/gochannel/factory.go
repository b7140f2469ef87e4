package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/huzilerz/session-core/infra/pubsub/factory"
)

// In-process driver: every console surface runs inside one
// shell process, delivery is a buffered go channel.
type Factory struct {
	bus *gochannel.GoChannel
}

var _ factory.Factory = (*Factory)(nil)

func NewFactory(logger watermill.LoggerAdapter) *Factory {
	return &Factory{
		bus: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 64,
			},
			logger,
		),
	}
}

func (f *Factory) Publisher() (message.Publisher, error) {
	return f.bus, nil
}

// Subscriber ; [group] is meaningless in-process: every
// gochannel subscription already receives its own copy.
func (f *Factory) Subscriber(string) (message.Subscriber, error) {
	return f.bus, nil
}
