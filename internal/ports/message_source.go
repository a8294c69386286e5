package ports

import (
	"context"

	"github.com/mikey/link-joiner/internal/core"
)

// MessageHandler receives each inbound message, one at a time
type MessageHandler func(ctx context.Context, msg *core.InboundMessage)

// MessageSource defines the interface for inbound message feeds
type MessageSource interface {
	// Start delivers messages to the handler until ctx is done or Stop is called
	Start(ctx context.Context, handler MessageHandler) error

	// Stop stops the message source
	Stop() error
}
