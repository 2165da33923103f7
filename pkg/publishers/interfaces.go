package publishers

import "context"

// Publisher sends exchange events to a downstream sink (SQS, SNS, HTTP, etc).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// closer is implemented by publishers holding connections that outlive a
// single Publish.
type closer interface {
	Close() error
}
