package transfer

import "time"

// Phase is the lifecycle position of the receiver's single session.
//
// Idle -> Receiving on a size header, Receiving -> Complete on finalize,
// Complete -> Idle straight after the result is emitted.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReceiving
	PhaseComplete
)

// String returns a human-readable string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReceiving:
		return "receiving"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// CanTransitionTo checks if a phase transition is valid
func (p Phase) CanTransitionTo(next Phase) bool {
	switch p {
	case PhaseIdle:
		return next == PhaseReceiving
	case PhaseReceiving:
		return next == PhaseComplete
	case PhaseComplete:
		return next == PhaseIdle
	default:
		return false
	}
}

// Outcome says how a session reached finalize.
type Outcome int

const (
	// OutcomeCompleted: every expected packet arrived after the end marker.
	OutcomeCompleted Outcome = iota
	// OutcomeTimedOut: the session timer fired first.
	OutcomeTimedOut
	// OutcomeTransportClosed: the transport failed or disconnected mid-session.
	OutcomeTransportClosed
	// OutcomeSuperseded: a new image was started before this one finished.
	OutcomeSuperseded
	// OutcomeShutdown: the receiver was stopped mid-session.
	OutcomeShutdown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeTransportClosed:
		return "transport_closed"
	case OutcomeSuperseded:
		return "superseded"
	case OutcomeShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Degraded is true for every forced finalize.
func (o Outcome) Degraded() bool {
	return o != OutcomeCompleted
}

// ReconstructionResult is the one product of a finished session.
type ReconstructionResult struct {
	SessionID string  `json:"session_id"`
	Outcome   Outcome `json:"outcome"`

	// Bytes has exactly DeclaredSize bytes when the size was known.
	Bytes          []byte `json:"-"`
	MissingIndices []int  `json:"missing_indices"`
	SizeMismatch   bool   `json:"size_mismatch"`

	DeclaredSize    uint32 `json:"declared_size"`
	ReceivedBytes   int    `json:"received_bytes"`
	ExpectedPackets int    `json:"expected_packets"`
	ReceivedPackets int    `json:"received_packets"`
	OutOfRange      []int  `json:"out_of_range,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Degraded reports whether the bytes are anything other than an exact copy.
func (r *ReconstructionResult) Degraded() bool {
	return r.Outcome.Degraded() || r.SizeMismatch || len(r.MissingIndices) > 0
}

// Err summarises what went wrong, or nil for a clean image.
func (r *ReconstructionResult) Err() error {
	switch {
	case r.Outcome == OutcomeTransportClosed:
		return ErrTransportClosed
	case len(r.MissingIndices) > 0 || r.Outcome.Degraded():
		return ErrIncompleteTransfer
	case r.SizeMismatch:
		return ErrSizeMismatch
	}
	return nil
}

// Duration is how long the session took from size header to finalize.
func (r *ReconstructionResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Progress is a point-in-time view of an in-flight session.
type Progress struct {
	SessionID       string
	ReceivedPackets int
	ExpectedPackets int
	ReceivedBytes   int
	DeclaredSize    uint32
}

// Percentage estimates completion from bytes received against the declared
// size (0-100).
func (p Progress) Percentage() float64 {
	if p.DeclaredSize == 0 {
		return 0.0
	}
	pct := float64(p.ReceivedBytes) / float64(p.DeclaredSize) * 100.0
	if pct > 100.0 {
		return 100.0
	}
	return pct
}
