package transport

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryTransport is an in-process transport. Producers call Deliver, the
// receiver reads with NextBuffer. It backs the replay tool and tests.
type MemoryTransport struct {
	buffers chan []byte
	done    chan struct{}
	once    sync.Once

	received atomic.Uint64
	bytes    atomic.Uint64
}

// NewMemoryTransport creates a transport queueing up to capacity buffers.
func NewMemoryTransport(capacity int) *MemoryTransport {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryTransport{
		buffers: make(chan []byte, capacity),
		done:    make(chan struct{}),
	}
}

// Deliver queues a copy of buf. It blocks while the queue is full.
func (m *MemoryTransport) Deliver(ctx context.Context, buf []byte) error {
	data := make([]byte, len(buf))
	copy(data, buf)

	select {
	case <-m.done:
		return ErrClosed
	default:
	}

	select {
	case m.buffers <- data:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeliverAll queues every buffer in order.
func (m *MemoryTransport) DeliverAll(ctx context.Context, bufs [][]byte) error {
	for _, buf := range bufs {
		if err := m.Deliver(ctx, buf); err != nil {
			return err
		}
	}
	return nil
}

// NextBuffer implements Transport. Buffers queued before Close are still
// delivered; ErrClosed follows once the queue is empty.
func (m *MemoryTransport) NextBuffer(ctx context.Context) ([]byte, error) {
	select {
	case buf := <-m.buffers:
		m.count(buf)
		return buf, nil
	default:
	}

	select {
	case buf := <-m.buffers:
		m.count(buf)
		return buf, nil
	case <-m.done:
		select {
		case buf := <-m.buffers:
			m.count(buf)
			return buf, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *MemoryTransport) count(buf []byte) {
	m.received.Add(1)
	m.bytes.Add(uint64(len(buf)))
}

// Close implements Transport.
func (m *MemoryTransport) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

// Statistics implements StatsProvider.
func (m *MemoryTransport) Statistics() Stats {
	return Stats{
		BuffersReceived: m.received.Load(),
		BytesReceived:   m.bytes.Load(),
	}
}
