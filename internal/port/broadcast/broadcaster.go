// Package broadcast defines the port for sending real-time messages to
// connected editor clients.
package broadcast

import "context"

// Broadcaster delivers messages to connected clients. Connections are opaque
// string identifiers assigned by the transport.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)

	// SendTo sends a typed event to a single connection. Unknown connection
	// IDs are ignored.
	SendTo(ctx context.Context, connID, eventType string, payload any)
}
