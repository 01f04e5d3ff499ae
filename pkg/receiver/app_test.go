package receiver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/imageReceiver/internal/app_events/receiver"
	"github.com/rescp17/imageReceiver/pkg/concurrency"
	"github.com/rescp17/imageReceiver/pkg/transfer"
	"github.com/rescp17/imageReceiver/pkg/transport"
)

// syncCollector is a collector that may be read while the run loop is active.
type syncCollector struct {
	mu      sync.Mutex
	results []transfer.ReconstructionResult
}

func (c *syncCollector) OnImageReady(result transfer.ReconstructionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

func (c *syncCollector) all() []transfer.ReconstructionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]transfer.ReconstructionResult(nil), c.results...)
}

func testConfig() *transfer.TransferConfig {
	config := transfer.DefaultTransferConfig()
	config.SessionTimeout = 50 * time.Millisecond
	return config
}

func deliver(t *testing.T, mt *transport.MemoryTransport, frames ...[]byte) {
	t.Helper()
	require.NoError(t, mt.DeliverAll(context.Background(), frames))
}

func TestNewAppValidates(t *testing.T) {
	_, err := NewApp(nil, nil)
	assert.Error(t, err)

	config := transfer.DefaultTransferConfig()
	config.SessionTimeout = 0
	_, err = NewApp(transport.NewMemoryTransport(1), config)
	assert.ErrorIs(t, err, transfer.ErrInvalidConfiguration)
}

func TestAppSavesCompletedImage(t *testing.T) {
	mt := transport.NewMemoryTransport(16)
	writer, err := NewImageWriter(t.TempDir())
	require.NoError(t, err)
	c := &syncCollector{}

	app, err := NewApp(mt, testConfig(),
		WithImageWriter(writer),
		WithHandler(c),
		WithOnce(true),
		WithUI(32),
	)
	require.NoError(t, err)

	deliver(t, mt,
		transfer.EncodeSizeHeader(1000),
		transfer.EncodeDataPacket(1, payload(500, 2)),
		transfer.EncodeEndMarker(2, true),
		transfer.EncodeDataPacket(0, payload(500, 1)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Run(ctx))
	app.CloseUI()

	assert.Equal(t, 1, app.Emitted())
	results := c.all()
	require.Len(t, results, 1)
	assert.Equal(t, transfer.OutcomeCompleted, results[0].Outcome)

	var msgs []tea.Msg
	for msg := range app.UIMessages() {
		msgs = append(msgs, msg)
	}
	require.NotEmpty(t, msgs)
	assert.IsType(t, receiver.SessionStartedMsg{}, msgs[0])

	var sawGaps bool
	var ready *receiver.ImageReadyMsg
	for _, msg := range msgs {
		switch m := msg.(type) {
		case receiver.GapsMsg:
			sawGaps = true
			assert.Equal(t, []int{0}, m.Missing)
		case receiver.ImageReadyMsg:
			ready = &m
		}
	}
	assert.True(t, sawGaps)
	require.NotNil(t, ready)
	assert.Equal(t, writer.OutputDir(), filepath.Dir(ready.Path))

	data, err := os.ReadFile(ready.Path)
	require.NoError(t, err)
	assert.Equal(t, append(payload(500, 1), payload(500, 2)...), data)

	stats, ok := app.TransportStats()
	require.True(t, ok)
	assert.Equal(t, uint64(4), stats.BuffersReceived)
	assert.Equal(t, uint64(4), app.Stats().FramesReceived)
}

func TestAppTimeoutFinalizesPartialImage(t *testing.T) {
	mt := transport.NewMemoryTransport(16)
	c := &syncCollector{}
	app, err := NewApp(mt, testConfig(), WithHandler(c), WithOnce(true))
	require.NoError(t, err)

	deliver(t, mt,
		transfer.EncodeSizeHeader(1000),
		transfer.EncodeDataPacket(0, payload(500, 7)),
		transfer.EncodeEndMarker(2, true),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, app.Run(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	results := c.all()
	require.Len(t, results, 1)
	result := results[0]
	assert.Equal(t, transfer.OutcomeTimedOut, result.Outcome)
	assert.Equal(t, []int{1}, result.MissingIndices)
	assert.Equal(t, append(payload(500, 7), payload(500, 0)...), result.Bytes)
}

func TestAppTimerDisarmedAfterCompletion(t *testing.T) {
	mt := transport.NewMemoryTransport(16)
	c := &syncCollector{}
	app, err := NewApp(mt, testConfig(), WithHandler(c))
	require.NoError(t, err)

	deliver(t, mt,
		transfer.EncodeSizeHeader(4),
		transfer.EncodeDataPacket(0, []byte{1, 2, 3, 4}),
		transfer.EncodeEndMarker(1, true),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return len(c.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	// Wait past the timeout; nothing else may be emitted.
	time.Sleep(150 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	results := c.all()
	require.Len(t, results, 1)
	assert.Equal(t, transfer.OutcomeCompleted, results[0].Outcome)
}

func TestAppTransportFailure(t *testing.T) {
	mt := transport.NewMemoryTransport(16)
	c := &syncCollector{}
	app, err := NewApp(mt, testConfig(), WithHandler(c))
	require.NoError(t, err)

	deliver(t, mt,
		transfer.EncodeSizeHeader(1000),
		transfer.EncodeDataPacket(0, payload(500, 1)),
	)
	require.NoError(t, mt.Close())

	err = app.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, transfer.ErrTransportClosed)
	assert.ErrorIs(t, err, transport.ErrClosed)

	results := c.all()
	require.Len(t, results, 1)
	assert.Equal(t, transfer.OutcomeTransportClosed, results[0].Outcome)
	assert.Equal(t, []int{1}, results[0].MissingIndices)
}

func TestAppShutdownFinalizesAndRejectsSecondRun(t *testing.T) {
	mt := transport.NewMemoryTransport(16)
	config := testConfig()
	config.SessionTimeout = time.Minute
	c := &syncCollector{}
	app, err := NewApp(mt, config, WithHandler(c))
	require.NoError(t, err)

	deliver(t, mt,
		transfer.EncodeSizeHeader(1000),
		transfer.EncodeDataPacket(0, payload(500, 1)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		return app.Stats().FramesReceived == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, app.Run(context.Background()), concurrency.ErrBusy)

	cancel()
	require.NoError(t, <-done)

	results := c.all()
	require.Len(t, results, 1)
	assert.Equal(t, transfer.OutcomeShutdown, results[0].Outcome)
	assert.Len(t, results[0].Bytes, 1000)
}

// scriptTransport replays a fixed sequence of buffers and errors, then blocks.
type scriptTransport struct {
	mu    sync.Mutex
	steps []delivery
}

func (s *scriptTransport) NextBuffer(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if len(s.steps) > 0 {
		d := s.steps[0]
		s.steps = s.steps[1:]
		s.mu.Unlock()
		return d.buf, d.err
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptTransport) Close() error { return nil }

func TestAppSurvivesSenderDisconnect(t *testing.T) {
	st := &scriptTransport{steps: []delivery{
		{buf: transfer.EncodeSizeHeader(1000)},
		{buf: transfer.EncodeDataPacket(0, payload(500, 1))},
		{err: transport.ErrDisconnected},
		{buf: transfer.EncodeSizeHeader(4)},
		{buf: transfer.EncodeDataPacket(0, []byte{1, 2, 3, 4})},
		{buf: transfer.EncodeEndMarker(1, true)},
	}}
	c := &syncCollector{}
	app, err := NewApp(st, testConfig(), WithHandler(c))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return len(c.all()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	results := c.all()
	assert.Equal(t, transfer.OutcomeTransportClosed, results[0].Outcome)
	assert.Equal(t, transfer.OutcomeCompleted, results[1].Outcome)
	assert.True(t, bytes.Equal([]byte{1, 2, 3, 4}, results[1].Bytes))
}
