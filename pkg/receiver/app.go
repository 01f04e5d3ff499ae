package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rescp17/imageReceiver/internal/app_events"
	"github.com/rescp17/imageReceiver/internal/app_events/receiver"
	"github.com/rescp17/imageReceiver/internal/util"
	"github.com/rescp17/imageReceiver/pkg/concurrency"
	"github.com/rescp17/imageReceiver/pkg/discovery"
	"github.com/rescp17/imageReceiver/pkg/transfer"
	"github.com/rescp17/imageReceiver/pkg/transport"
)

// App is the main application logic controller for the receiver. It owns the
// run loop: one goroutine reads the transport, the loop itself is the only
// code that touches the session controller.
type App struct {
	guard      *concurrency.ConcurrencyGuard
	transport  transport.Transport
	config     *transfer.TransferConfig
	controller *SessionController

	writer   *ImageWriter
	handlers MultiHandler

	registrar    discovery.Adapter
	announcement *discovery.ServiceInfo

	uiMessages chan tea.Msg
	once       bool

	// results finalized during the current loop iteration, waiting to be
	// reported to the UI
	pending []receiver.ImageReadyMsg
	emitted int
}

// Option configures an App.
type Option func(*App)

// WithImageWriter saves every finalized image through w.
func WithImageWriter(w *ImageWriter) Option {
	return func(a *App) { a.writer = w }
}

// WithHandler adds a consumer of finalized images. Handlers run after the
// image is saved, in the order they were added.
func WithHandler(h ImageHandler) Option {
	return func(a *App) { a.handlers = append(a.handlers, h) }
}

// WithOnce makes Run return after the first finalized image.
func WithOnce(once bool) Option {
	return func(a *App) { a.once = once }
}

// WithUI enables UI messages; read them from UIMessages.
func WithUI(capacity int) Option {
	return func(a *App) { a.uiMessages = make(chan tea.Msg, capacity) }
}

// WithAnnouncement advertises the receiver over registrar while Run is active.
func WithAnnouncement(registrar discovery.Adapter, info discovery.ServiceInfo) Option {
	return func(a *App) {
		a.registrar = registrar
		a.announcement = &info
	}
}

// NewApp creates a receiver reading from t.
func NewApp(t transport.Transport, config *transfer.TransferConfig, opts ...Option) (*App, error) {
	if t == nil {
		return nil, errors.New("transport is required")
	}
	if config == nil {
		config = transfer.DefaultTransferConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		guard:     concurrency.NewConcurrencyGuard(),
		transport: t,
		config:    config,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.controller = NewSessionController(config, ImageHandlerFunc(a.onImageReady))
	return a, nil
}

type delivery struct {
	buf []byte
	err error
}

// Run receives images until ctx is cancelled, the transport fails, or, in
// once mode, the first image is finalized. A session still in flight when Run
// stops is finalized with what has arrived. Run closes the transport on
// return. A second concurrent Run fails with concurrency.ErrBusy.
func (a *App) Run(ctx context.Context) error {
	return a.guard.Execute(func() error {
		return a.run(ctx)
	})
}

func (a *App) run(ctx context.Context) error {
	defer func() {
		if err := a.transport.Close(); err != nil {
			slog.Warn("Failed to close transport", "error", err)
		}
	}()

	if a.announcement != nil && a.registrar != nil {
		a.startRegistration(ctx)
	}

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()

	deliveries := make(chan delivery, a.config.QueueSize)
	go a.readLoop(readCtx, deliveries)

	timer := time.NewTimer(a.config.SessionTimeout)
	timer.Stop()
	defer timer.Stop()
	var timeout <-chan time.Time

	disarm := func() {
		timer.Stop()
		timeout = nil
	}

	for {
		select {
		case <-ctx.Done():
			disarm()
			a.controller.ForceFinalize(transfer.OutcomeShutdown)
			a.flush(ctx)
			slog.Info("Receiver stopped", "images", a.emitted)
			return nil

		case <-timeout:
			timeout = nil
			info := a.controller.Session()
			slog.Warn("Session timed out",
				"session", info.ID,
				"timeout", a.config.SessionTimeout,
				"packets", info.Progress.ReceivedPackets,
				"missing", util.FormatIndices(info.Missing, 20))
			a.controller.ForceFinalize(transfer.OutcomeTimedOut)

		case d := <-deliveries:
			if d.err != nil {
				disarm()
				a.controller.ForceFinalize(transfer.OutcomeTransportClosed)
				if errors.Is(d.err, transport.ErrDisconnected) {
					slog.Warn("Sender disconnected", "error", d.err)
					break
				}
				a.flush(ctx)
				return fmt.Errorf("%w: %w", transfer.ErrTransportClosed, d.err)
			}

			step := a.controller.HandleBuffer(d.buf)
			if step.Started {
				timer.Reset(a.config.SessionTimeout)
				timeout = timer.C
				a.sendUI(ctx, receiver.SessionStartedMsg{
					SessionID:    a.controller.SessionID(),
					DeclaredSize: step.Progress.DeclaredSize,
				})
			}
			if step.Stored {
				a.trySendUI(receiver.ProgressMsg{Progress: step.Progress})
			}
			if step.Missing != nil {
				a.sendUI(ctx, receiver.GapsMsg{SessionID: a.controller.SessionID(), Missing: step.Missing})
			}
			if step.Finalized {
				disarm()
			}
		}

		a.flush(ctx)
		if a.once && a.emitted > 0 {
			slog.Info("Single image received, stopping")
			return nil
		}
	}
}

// readLoop turns blocking NextBuffer calls into deliveries. Errors travel the
// same channel as buffers so they are seen in arrival order.
func (a *App) readLoop(ctx context.Context, out chan<- delivery) {
	for {
		buf, err := a.transport.NextBuffer(ctx)
		if err != nil && ctx.Err() != nil {
			return
		}
		select {
		case out <- delivery{buf: buf, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil && !errors.Is(err, transport.ErrDisconnected) {
			return
		}
	}
}

// onImageReady runs on the loop goroutine, inside the controller's finalize.
func (a *App) onImageReady(result transfer.ReconstructionResult) {
	a.emitted++

	msg := receiver.ImageReadyMsg{Result: result}
	if a.writer != nil {
		saved, err := a.writer.Save(result)
		switch {
		case err == nil:
			msg.Path = saved.Path
		case errors.Is(err, ErrNothingToSave):
			slog.Warn("Nothing to save for session", "session", result.SessionID)
		default:
			a.sendAndLogError("Failed to save image", err)
		}
	}
	a.handlers.OnImageReady(result)
	a.pending = append(a.pending, msg)
}

func (a *App) flush(ctx context.Context) {
	for _, msg := range a.pending {
		if ctx.Err() != nil {
			a.trySendUI(msg)
			continue
		}
		a.sendUI(ctx, msg)
	}
	a.pending = a.pending[:0]
}

// sendUI delivers a message the UI must not miss. It gives up when ctx ends.
func (a *App) sendUI(ctx context.Context, msg tea.Msg) {
	if a.uiMessages == nil {
		return
	}
	select {
	case a.uiMessages <- msg:
	case <-ctx.Done():
	}
}

// trySendUI drops msg when the UI is behind.
func (a *App) trySendUI(msg tea.Msg) {
	if a.uiMessages == nil {
		return
	}
	select {
	case a.uiMessages <- msg:
	default:
	}
}

// sendAndLogError is a helper function to both log an error and send it to the UI.
func (a *App) sendAndLogError(baseMessage string, err error) {
	slog.Error(baseMessage, "error", err)
	a.trySendUI(appevents.ErrorMsg{Err: fmt.Errorf("%s: %w", baseMessage, err)})
}

func (a *App) startRegistration(ctx context.Context) {
	info := *a.announcement
	if info.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			a.sendAndLogError("Could not get hostname", err)
			return
		}
		info.Name = discovery.InstanceName(hostname)
	}
	if info.Text == nil {
		info.Text = map[string]string{}
	}
	if _, ok := info.Text[discovery.TextPacketSize]; !ok {
		info.Text[discovery.TextPacketSize] = strconv.Itoa(a.config.PacketSize)
	}

	go func() {
		// Announcing is best effort; reception works without it.
		if err := a.registrar.Announce(ctx, info); err != nil {
			a.sendAndLogError("Failed to start mDNS announcement", err)
		}
	}()
}

// UIMessages returns the channel UI messages are sent on, or nil when the
// App was built without WithUI.
func (a *App) UIMessages() <-chan tea.Msg {
	return a.uiMessages
}

// CloseUI closes the UI message channel so readers ranging over it stop.
// Call it only after Run has returned.
func (a *App) CloseUI() {
	if a.uiMessages != nil {
		close(a.uiMessages)
	}
}

// Stats returns the controller's counters.
func (a *App) Stats() transfer.StatsSnapshot {
	return a.controller.Stats().Snapshot()
}

// TransportStats returns the transport's counters when it keeps any.
func (a *App) TransportStats() (transport.Stats, bool) {
	sp, ok := a.transport.(transport.StatsProvider)
	if !ok {
		return transport.Stats{}, false
	}
	return sp.Statistics(), true
}

// Emitted returns how many images have been finalized. Call it after Run
// has returned.
func (a *App) Emitted() int { return a.emitted }
