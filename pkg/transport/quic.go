package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
)

// QUICProtocol is the ALPN name senders must offer.
const QUICProtocol = "imgrecv-quic"

// ErrDisconnected is returned by NextBuffer when the sending peer went away.
// The transport itself stays usable and will accept the next peer.
var ErrDisconnected = errors.New("peer disconnected")

// QUICTransport receives notification buffers as QUIC datagrams. Datagrams
// are unreliable and unordered, which matches the notification channel:
// nothing is retransmitted and every datagram is one frame.
type QUICTransport struct {
	listener  *quic.Listener
	tlsConfig *tls.Config

	events chan quicEvent

	// Statistics
	stats struct {
		buffersReceived atomic.Uint64
		bytesReceived   atomic.Uint64
		readErrors      atomic.Uint64
		connects        atomic.Uint64
		disconnects     atomic.Uint64
	}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

type quicEvent struct {
	buf []byte
	err error
}

// QUICTransportConfig configures a QUIC transport
type QUICTransportConfig struct {
	Address     string        // "host:port" to listen on
	IdleTimeout time.Duration // Drop silent peers after this long
	QueueSize   int           // Datagrams buffered between peers and NextBuffer
	TLSConfig   *tls.Config   // Optional TLS config (if nil, a self-signed cert is generated)
}

// NewQUICTransport starts listening for senders on config.Address.
func NewQUICTransport(config QUICTransportConfig) (*QUICTransport, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = 30 * time.Second
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}

	tlsConfig := config.TLSConfig
	if tlsConfig == nil {
		var err error
		tlsConfig, err = generateTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to generate TLS config: %w", err)
		}
	}

	listener, err := quic.ListenAddr(config.Address, tlsConfig, &quic.Config{
		EnableDatagrams: true,
		MaxIdleTimeout:  config.IdleTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create QUIC listener on %s: %w", config.Address, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	qt := &QUICTransport{
		listener:  listener,
		tlsConfig: tlsConfig,
		events:    make(chan quicEvent, config.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	qt.wg.Add(1)
	go qt.acceptLoop()

	return qt, nil
}

// generateTLSConfig generates a self-signed certificate for QUIC
func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{QUICProtocol},
	}, nil
}

// acceptLoop accepts senders. Every sender's datagrams go through the same
// events channel, which is what serializes delivery into NextBuffer.
func (qt *QUICTransport) acceptLoop() {
	defer qt.wg.Done()

	for {
		conn, err := qt.listener.Accept(qt.ctx)
		if err != nil {
			if qt.closed.Load() || qt.ctx.Err() != nil {
				return
			}
			qt.stats.readErrors.Add(1)
			slog.Warn("QUIC accept failed", "error", err)
			continue
		}

		qt.stats.connects.Add(1)
		slog.Info("QUIC sender connected", "remote", conn.RemoteAddr().String())

		qt.wg.Add(1)
		go qt.readDatagrams(conn)
	}
}

func (qt *QUICTransport) readDatagrams(conn *quic.Conn) {
	defer qt.wg.Done()

	for {
		data, err := conn.ReceiveDatagram(qt.ctx)
		if err != nil {
			if qt.closed.Load() || qt.ctx.Err() != nil {
				conn.CloseWithError(0, "receiver closed")
				return
			}
			qt.stats.disconnects.Add(1)
			slog.Info("QUIC sender disconnected", "remote", conn.RemoteAddr().String(), "error", err)
			qt.push(quicEvent{err: fmt.Errorf("%w: %v", ErrDisconnected, err)})
			return
		}
		qt.push(quicEvent{buf: data})
	}
}

func (qt *QUICTransport) push(ev quicEvent) {
	select {
	case qt.events <- ev:
	case <-qt.ctx.Done():
	}
}

// NextBuffer implements Transport.
func (qt *QUICTransport) NextBuffer(ctx context.Context) ([]byte, error) {
	select {
	case ev := <-qt.events:
		if ev.err != nil {
			return nil, ev.err
		}
		qt.stats.buffersReceived.Add(1)
		qt.stats.bytesReceived.Add(uint64(len(ev.buf)))
		return ev.buf, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-qt.ctx.Done():
		return nil, ErrClosed
	}
}

// Close implements Transport.
func (qt *QUICTransport) Close() error {
	if !qt.closed.CompareAndSwap(false, true) {
		return nil
	}
	qt.cancel()
	err := qt.listener.Close()
	qt.wg.Wait()
	return err
}

// Addr returns the listening address.
func (qt *QUICTransport) Addr() net.Addr {
	return qt.listener.Addr()
}

// Statistics implements StatsProvider.
func (qt *QUICTransport) Statistics() Stats {
	return Stats{
		BuffersReceived: qt.stats.buffersReceived.Load(),
		BytesReceived:   qt.stats.bytesReceived.Load(),
		ReadErrors:      qt.stats.readErrors.Load(),
		Connects:        qt.stats.connects.Load(),
		Disconnects:     qt.stats.disconnects.Load(),
	}
}
