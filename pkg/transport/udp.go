package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// maxDatagramSize bounds a single notification buffer. Camera packets are a
// few hundred bytes; anything near this limit is garbage.
const maxDatagramSize = 2048

// UDPTransport receives one notification buffer per UDP datagram.
type UDPTransport struct {
	conn     *net.UDPConn
	connLock sync.RWMutex

	address     string
	readTimeout time.Duration

	// Statistics
	stats struct {
		buffersReceived atomic.Uint64
		bytesReceived   atomic.Uint64
		readErrors      atomic.Uint64
	}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// UDPTransportConfig configures a UDP transport
type UDPTransportConfig struct {
	Address     string        // "host:port" to listen on
	ReadTimeout time.Duration // How often a blocked read re-checks its context
}

// NewUDPTransport binds a UDP socket on config.Address.
func NewUDPTransport(config UDPTransportConfig) (*UDPTransport, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 500 * time.Millisecond
	}

	addr, err := net.ResolveUDPAddr("udp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %s: %w", config.Address, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", config.Address, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &UDPTransport{
		conn:        conn,
		address:     config.Address,
		readTimeout: config.ReadTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// NextBuffer implements Transport.
func (ut *UDPTransport) NextBuffer(ctx context.Context) ([]byte, error) {
	buffer := make([]byte, maxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ut.ctx.Done():
			return nil, ErrClosed
		default:
		}

		ut.connLock.RLock()
		conn := ut.conn
		ut.connLock.RUnlock()
		if conn == nil {
			return nil, ErrClosed
		}

		// Short deadlines let the loop notice context cancellation.
		if err := conn.SetReadDeadline(time.Now().Add(ut.readTimeout)); err != nil {
			if ut.closed.Load() {
				return nil, ErrClosed
			}
			return nil, err
		}

		n, _, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ut.closed.Load() {
				return nil, ErrClosed
			}
			ut.stats.readErrors.Add(1)
			return nil, err
		}

		ut.stats.buffersReceived.Add(1)
		ut.stats.bytesReceived.Add(uint64(n))

		frame := make([]byte, n)
		copy(frame, buffer[:n])
		return frame, nil
	}
}

// Close implements Transport.
func (ut *UDPTransport) Close() error {
	if !ut.closed.CompareAndSwap(false, true) {
		return nil
	}
	ut.cancel()

	ut.connLock.Lock()
	defer ut.connLock.Unlock()
	if ut.conn != nil {
		err := ut.conn.Close()
		ut.conn = nil
		return err
	}
	return nil
}

// LocalAddr returns the bound address, useful when listening on port 0.
func (ut *UDPTransport) LocalAddr() net.Addr {
	ut.connLock.RLock()
	defer ut.connLock.RUnlock()
	if ut.conn != nil {
		return ut.conn.LocalAddr()
	}
	return nil
}

// Statistics implements StatsProvider.
func (ut *UDPTransport) Statistics() Stats {
	return Stats{
		BuffersReceived: ut.stats.buffersReceived.Load(),
		BytesReceived:   ut.stats.bytesReceived.Load(),
		ReadErrors:      ut.stats.readErrors.Load(),
	}
}
