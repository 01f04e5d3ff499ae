package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by NextBuffer once the transport has been closed
// and everything queued before the close has been delivered.
var ErrClosed = errors.New("transport closed")

// Transport delivers inbound notification buffers one at a time, in arrival
// order. Each buffer is one frame; nothing is retransmitted.
type Transport interface {
	// NextBuffer blocks until a buffer arrives, the context is done or the
	// transport fails. The returned slice belongs to the caller.
	NextBuffer(ctx context.Context) ([]byte, error)

	// Close stops delivery and unblocks pending NextBuffer calls.
	Close() error
}

// Stats provides transport-level statistics
type Stats struct {
	BuffersReceived uint64 // Buffers handed to the receiver
	BytesReceived   uint64 // Total bytes in those buffers
	ReadErrors      uint64 // Failed or discarded reads
	Connects        uint64 // Peers connected (connection-oriented transports)
	Disconnects     uint64 // Peers lost
}

// StatsProvider is implemented by transports that count their traffic.
type StatsProvider interface {
	Statistics() Stats
}
