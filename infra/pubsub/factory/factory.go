package factory

import (
	"github.com/ThreeDotsLabs/watermill/message"
)

// Factory builds broker driver endpoints.
type Factory interface {
	// Publisher endpoint.
	Publisher() (message.Publisher, error)
	// Subscriber endpoint for consumer [group].
	Subscriber(group string) (message.Subscriber, error)
}
