package transfer

import (
	"log/slog"
	"time"
)

// Assemble concatenates the session's packets in ascending index order and
// reconciles the result with the declared size: short output is padded with
// zero bytes, long output is truncated. Gaps are not filled in place, only
// the total length is corrected.
//
// missing is attached to the result unchanged; it must be computed before
// calling Assemble.
func Assemble(s *Session, missing []int, outcome Outcome, now time.Time) ReconstructionResult {
	b := s.Buffer
	declared := int(b.DeclaredSize())

	capacity := b.ReceivedBytes()
	if declared > capacity {
		capacity = declared
	}
	data := make([]byte, 0, capacity)

	last := -1
	for _, idx := range b.Indices() {
		if last >= 0 && idx != last+1 {
			slog.Warn("Packet indices not contiguous", "session", s.ID, "from", last, "to", idx)
		}
		payload, _ := b.Payload(uint16(idx))
		data = append(data, payload...)
		last = idx
	}

	actual := len(data)
	mismatch := declared > 0 && actual != declared
	if mismatch {
		slog.Warn("Reconstructed size does not match declared size",
			"session", s.ID,
			"received", actual,
			"declared", declared)
		if actual < declared {
			data = append(data, make([]byte, declared-actual)...)
		} else {
			data = data[:declared]
		}
	}

	if missing == nil {
		missing = []int{}
	}

	var policy CompletionPolicy
	return ReconstructionResult{
		SessionID:       s.ID,
		Outcome:         outcome,
		Bytes:           data,
		MissingIndices:  missing,
		SizeMismatch:    mismatch,
		DeclaredSize:    b.DeclaredSize(),
		ReceivedBytes:   actual,
		ExpectedPackets: policy.EffectiveExpected(b),
		ReceivedPackets: b.Len(),
		OutOfRange:      policy.OutOfRange(b),
		StartedAt:       s.StartedAt,
		FinishedAt:      now,
	}
}
