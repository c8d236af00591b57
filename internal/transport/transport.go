// Package transport defines the interface for the daemon's network listeners.
//
// Each listener (the public HTTP surface, the action proxy, gRPC health)
// implements Transport and is supervised by main. Listeners know nothing
// about each other; they only share the components they were built with.
package transport

import "context"

// Transport is the interface that every listener must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "http", "proxy", "grpc").
	Name() string

	// Listen starts accepting connections. It blocks until the context is
	// cancelled or the listener fails.
	Listen(ctx context.Context) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
