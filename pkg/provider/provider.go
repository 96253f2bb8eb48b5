package provider

import (
	"context"
)

// Client opens filtered block streams against a chain-data provider.
// This abstraction allows for easier testing and alternative transports.
type Client interface {
	// StartStream subscribes to the provider with the given request.
	StartStream(ctx context.Context, req StreamRequest) (Stream, error)

	// Close closes the underlying connection.
	Close()
}

// Stream is an open provider subscription.
type Stream interface {
	// Recv blocks until the next message is available.
	// It returns io.EOF once the provider has ended the stream.
	Recv(ctx context.Context) (Message, error)

	// Close cancels the subscription.
	Close() error
}
