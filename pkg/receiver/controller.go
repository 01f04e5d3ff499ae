package receiver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rescp17/imageReceiver/internal/util"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

// ImageHandler consumes finished images. OnImageReady is called exactly once
// per session, whether it completed or was forced to finalize.
type ImageHandler interface {
	OnImageReady(result transfer.ReconstructionResult)
}

// ImageHandlerFunc adapts a plain function to ImageHandler.
type ImageHandlerFunc func(result transfer.ReconstructionResult)

func (f ImageHandlerFunc) OnImageReady(result transfer.ReconstructionResult) { f(result) }

// Step reports what a single buffer did to the session.
type Step struct {
	Frame transfer.FrameKind

	// Started is set when the buffer opened a new session.
	Started bool
	// Stored is set when a data packet was kept (not a duplicate).
	Stored    bool
	Duplicate bool
	// Finalized is set when the buffer completed the session; Result holds
	// what was emitted.
	Finalized bool
	Result    *transfer.ReconstructionResult
	// Missing is filled after an end marker that left gaps.
	Missing []int

	Progress transfer.Progress
	// Err carries a non-fatal diagnostic for this buffer.
	Err error
}

// SessionController is the receiver state machine. It owns the only session
// and must be driven from a single goroutine.
type SessionController struct {
	config  *transfer.TransferConfig
	session *transfer.Session
	policy  transfer.CompletionPolicy
	handler ImageHandler
	stats   *transfer.Statistics
	now     func() time.Time
}

// NewSessionController creates an idle controller that hands finished images
// to handler.
func NewSessionController(config *transfer.TransferConfig, handler ImageHandler) *SessionController {
	if config == nil {
		config = transfer.DefaultTransferConfig()
	}
	if handler == nil {
		handler = ImageHandlerFunc(func(transfer.ReconstructionResult) {})
	}
	return &SessionController{
		config:  config,
		session: transfer.NewSession(config.PacketSize),
		handler: handler,
		stats:   transfer.NewStatistics(),
		now:     time.Now,
	}
}

// HandleBuffer classifies one inbound buffer and folds it into the session.
// The buffer is fully processed before HandleBuffer returns.
func (c *SessionController) HandleBuffer(buf []byte) Step {
	c.stats.FrameReceived()
	frame := transfer.Classify(buf, c.session.Receiving())
	step := Step{Frame: frame.Kind}

	switch frame.Kind {
	case transfer.FrameSizeHeader:
		c.onSizeHeader(frame, &step)
	case transfer.FrameEndMarker:
		c.onEndMarker(frame, &step)
	case transfer.FrameDataPacket:
		c.onDataPacket(frame, &step)
	default:
		c.stats.MalformedFrame()
		step.Err = fmt.Errorf("%w: %d bytes", transfer.ErrMalformedFrame, len(buf))
		transfer.LogError(c.session.ID, step.Err)
	}

	if c.session.Receiving() {
		step.Progress = c.session.Progress(c.policy)
	}
	return step
}

func (c *SessionController) onSizeHeader(frame transfer.Frame, step *Step) {
	if frame.Size > c.config.MaxImageSize {
		c.stats.IgnoredFrame()
		step.Err = fmt.Errorf("%w: %d > %d", transfer.ErrImageTooLarge, frame.Size, c.config.MaxImageSize)
		transfer.LogError("", step.Err)
		return
	}
	c.begin(frame.Size)
	step.Started = true
}

func (c *SessionController) begin(size uint32) {
	c.session.Begin(size, c.now())
	c.stats.SessionStarted()
	slog.Info("Started receiving image",
		"session", c.session.ID,
		"size", size,
		"sizeHuman", util.FormatSize(int64(size)))
}

func (c *SessionController) onEndMarker(frame transfer.Frame, step *Step) {
	if !c.session.Receiving() {
		c.stats.IgnoredFrame()
		slog.Debug("End marker outside a session, ignoring")
		return
	}

	buf := c.session.Buffer
	buf.OnEndMarker(frame.Count, frame.HasCount)
	slog.Info("End marker received",
		"session", c.session.ID,
		"expectedPackets", buf.ExpectedPacketCount(),
		"explicitCount", frame.HasCount,
		"receivedPackets", buf.Len())

	if c.policy.IsComplete(buf) {
		step.Result = c.finalize(transfer.OutcomeCompleted)
		step.Finalized = true
		return
	}

	step.Missing = c.policy.MissingIndices(buf)
	slog.Warn("Not all packets received, waiting for the rest",
		"session", c.session.ID,
		"missingCount", len(step.Missing),
		"missing", util.FormatIndices(step.Missing, 10))
}

func (c *SessionController) onDataPacket(frame transfer.Frame, step *Step) {
	buf := c.session.Buffer

	if len(frame.Payload) > c.config.MaxPayloadSize {
		c.stats.Oversized()
		c.session.Oversized++
		step.Err = fmt.Errorf("%w: packet %d carries %d bytes", transfer.ErrOversizedPayload, frame.Index, len(frame.Payload))
		transfer.LogError(c.session.ID, step.Err)
	}

	if !buf.OnDataPacket(frame.Index, frame.Payload) {
		c.stats.DuplicatePacket()
		c.session.Duplicates++
		step.Duplicate = true
		slog.Debug("Packet already received, skipping", "session", c.session.ID, "index", frame.Index)
		return
	}
	step.Stored = true

	if expected := buf.ExpectedPacketCount(); expected > 0 && int(frame.Index) >= expected {
		c.stats.OutOfRange()
		step.Err = fmt.Errorf("%w: index %d, expected %d packets", transfer.ErrOutOfRangeIndex, frame.Index, expected)
		transfer.LogError(c.session.ID, step.Err)
	}

	progress := c.session.Progress(c.policy)
	slog.Debug("Packet stored",
		"session", c.session.ID,
		"index", frame.Index,
		"packets", progress.ReceivedPackets,
		"expected", progress.ExpectedPackets,
		"bytes", progress.ReceivedBytes,
		"progress", fmt.Sprintf("%.1f%%", progress.Percentage()))

	if buf.EndMarkerSeen() && c.policy.IsComplete(buf) {
		step.Result = c.finalize(transfer.OutcomeCompleted)
		step.Finalized = true
	}
}

// finalize assembles the session, emits the result and returns to idle.
func (c *SessionController) finalize(outcome transfer.Outcome) *transfer.ReconstructionResult {
	missing := c.policy.MissingIndices(c.session.Buffer)
	c.session.Phase = transfer.PhaseComplete

	result := transfer.Assemble(c.session, missing, outcome, c.now())
	c.stats.SessionFinished(result.Degraded())

	logFields := []any{
		"session", result.SessionID,
		"outcome", outcome.String(),
		"bytes", len(result.Bytes),
		"received", result.ReceivedBytes,
		"packets", result.ReceivedPackets,
		"expected", result.ExpectedPackets,
		"duration", result.Duration(),
	}
	if result.Degraded() {
		logFields = append(logFields, "missing", util.FormatIndices(result.MissingIndices, 20), "sizeMismatch", result.SizeMismatch)
		transfer.LogError(result.SessionID, result.Err(), logFields[2:]...)
	} else {
		slog.Info("Image reception completed", logFields...)
	}

	c.handler.OnImageReady(result)
	c.session.Clear()
	return &result
}

// ForceFinalize ends an in-flight session with whatever has arrived, marked
// with outcome. It does nothing when idle, so a session is never emitted twice.
func (c *SessionController) ForceFinalize(outcome transfer.Outcome) (*transfer.ReconstructionResult, bool) {
	if !c.session.Receiving() {
		return nil, false
	}
	return c.finalize(outcome), true
}

// Supersede starts a new image of size bytes. A session already in flight is
// finalized as superseded first, so its partial data is still reported.
func (c *SessionController) Supersede(size uint32) *transfer.ReconstructionResult {
	var previous *transfer.ReconstructionResult
	if c.session.Receiving() {
		slog.Warn("New image announced before the current one finished, discarding partial session",
			"session", c.session.ID,
			"packets", c.session.Buffer.Len())
		previous = c.finalize(transfer.OutcomeSuperseded)
	}
	c.begin(size)
	return previous
}

// Phase returns the current lifecycle phase.
func (c *SessionController) Phase() transfer.Phase { return c.session.Phase }

// Session snapshots the in-flight session. When idle the snapshot is empty.
func (c *SessionController) Session() transfer.SessionInfo {
	return c.session.Info(c.policy)
}

// SessionID returns the in-flight session's ID, or "" when idle.
func (c *SessionController) SessionID() string { return c.session.ID }

// Progress snapshots the in-flight session.
func (c *SessionController) Progress() transfer.Progress {
	return c.session.Progress(c.policy)
}

// MissingIndices lists gaps of the in-flight session.
func (c *SessionController) MissingIndices() []int {
	return c.policy.MissingIndices(c.session.Buffer)
}

// Stats exposes the controller's counters.
func (c *SessionController) Stats() *transfer.Statistics { return c.stats }
