package transfer

import (
	"time"

	"github.com/google/uuid"
)

// Session is the one in-flight image transfer. Its buffer is only populated
// while Phase is PhaseReceiving.
type Session struct {
	// ID identifies this transfer in logs and published results
	ID string
	// StartedAt is when the size header arrived
	StartedAt time.Time
	Phase     Phase
	Buffer    *ReassemblyBuffer

	// Diagnostics gathered while receiving
	Duplicates int
	Oversized  int
}

// NewSession creates an idle session whose buffer estimates packet counts
// with packetSize.
func NewSession(packetSize int) *Session {
	return &Session{
		Phase:  PhaseIdle,
		Buffer: NewReassemblyBuffer(packetSize),
	}
}

// Begin moves an idle session to receiving for an image of size bytes.
func (s *Session) Begin(size uint32, now time.Time) {
	s.ID = uuid.New().String()
	s.StartedAt = now
	s.Phase = PhaseReceiving
	s.Duplicates = 0
	s.Oversized = 0
	s.Buffer.OnSizeHeader(size)
}

// Clear returns the session to idle and drops every packet.
func (s *Session) Clear() {
	s.Phase = PhaseIdle
	s.ID = ""
	s.StartedAt = time.Time{}
	s.Duplicates = 0
	s.Oversized = 0
	s.Buffer.Reset()
}

// Receiving reports whether a transfer is in progress.
func (s *Session) Receiving() bool {
	return s.Phase == PhaseReceiving
}

// Progress snapshots the session for reporting.
func (s *Session) Progress(policy CompletionPolicy) Progress {
	return Progress{
		SessionID:       s.ID,
		ReceivedPackets: s.Buffer.Len(),
		ExpectedPackets: policy.EffectiveExpected(s.Buffer),
		ReceivedBytes:   s.Buffer.ReceivedBytes(),
		DeclaredSize:    s.Buffer.DeclaredSize(),
	}
}

// SessionInfo is a copy of the session state that may be handed to other
// goroutines.
type SessionInfo struct {
	ID         string    `json:"id"`
	Phase      Phase     `json:"phase"`
	StartedAt  time.Time `json:"started_at"`
	Progress   Progress  `json:"progress"`
	Missing    []int     `json:"missing"`
	Duplicates int       `json:"duplicates"`
	Oversized  int       `json:"oversized"`
}

// Info snapshots the session.
func (s *Session) Info(policy CompletionPolicy) SessionInfo {
	return SessionInfo{
		ID:         s.ID,
		Phase:      s.Phase,
		StartedAt:  s.StartedAt,
		Progress:   s.Progress(policy),
		Missing:    policy.MissingIndices(s.Buffer),
		Duplicates: s.Duplicates,
		Oversized:  s.Oversized,
	}
}
