package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/catalog-search/internal/infrastructure/resilience"
)

const publishSearchEventOp = "nats.search_event_publish"

func classifySearchEventError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, isTransientNATSError)
}

// isTransientNATSError reports broker outages. An oversized event or a bad
// subject is permanent and is not worth another attempt.
func isTransientNATSError(err error) bool {
	return errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrReconnectBufExceeded)
}
