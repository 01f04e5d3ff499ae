package transport

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialQUIC(t *testing.T, ctx context.Context, qt *QUICTransport) *quic.Conn {
	t.Helper()
	conn, err := quic.DialAddr(ctx, qt.Addr().String(), &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{QUICProtocol},
	}, &quic.Config{EnableDatagrams: true})
	require.NoError(t, err)
	return conn
}

func TestQUICTransport_ReceivesDatagrams(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping QUIC loopback test in short mode")
	}

	qt, err := NewQUICTransport(QUICTransportConfig{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	defer qt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialQUIC(t, ctx, qt)
	defer conn.CloseWithError(0, "")

	frame := []byte{0x00, 0x07, 0xDE, 0xAD, 0xBE, 0xEF}

	// Datagrams may be dropped; keep sending until one arrives.
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			if err := conn.SendDatagram(frame); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	got, err := qt.NextBuffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, frame, got)
	assert.Equal(t, uint64(1), qt.Statistics().Connects)
}

func TestQUICTransport_ReportsDisconnect(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping QUIC loopback test in short mode")
	}

	qt, err := NewQUICTransport(QUICTransportConfig{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	defer qt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialQUIC(t, ctx, qt)
	require.NoError(t, conn.CloseWithError(0, "done"))

	for {
		_, err := qt.NextBuffer(ctx)
		if err == nil {
			continue
		}
		assert.ErrorIs(t, err, ErrDisconnected)
		break
	}
	assert.Equal(t, uint64(1), qt.Statistics().Disconnects)
}

func TestQUICTransport_Close(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping QUIC loopback test in short mode")
	}

	qt, err := NewQUICTransport(QUICTransportConfig{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NoError(t, qt.Close())
	assert.NoError(t, qt.Close())

	_, err = qt.NextBuffer(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
