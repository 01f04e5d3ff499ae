package publish

import (
	"time"

	"github.com/rescp17/imageReceiver/pkg/transfer"
)

// Metadata is the JSON description of a finalized image that goes to NATS and
// into the Redis history. It never carries the image bytes.
type Metadata struct {
	SessionID       string    `json:"session_id"`
	Outcome         string    `json:"outcome"`
	Degraded        bool      `json:"degraded"`
	Size            int       `json:"size"`
	DeclaredSize    uint32    `json:"declared_size"`
	ReceivedBytes   int       `json:"received_bytes"`
	ExpectedPackets int       `json:"expected_packets"`
	ReceivedPackets int       `json:"received_packets"`
	MissingIndices  []int     `json:"missing_indices"`
	OutOfRange      []int     `json:"out_of_range,omitempty"`
	SizeMismatch    bool      `json:"size_mismatch"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationMs      int64     `json:"duration_ms"`
}

// NewMetadata describes result.
func NewMetadata(result transfer.ReconstructionResult) Metadata {
	missing := result.MissingIndices
	if missing == nil {
		missing = []int{}
	}
	return Metadata{
		SessionID:       result.SessionID,
		Outcome:         result.Outcome.String(),
		Degraded:        result.Degraded(),
		Size:            len(result.Bytes),
		DeclaredSize:    result.DeclaredSize,
		ReceivedBytes:   result.ReceivedBytes,
		ExpectedPackets: result.ExpectedPackets,
		ReceivedPackets: result.ReceivedPackets,
		MissingIndices:  missing,
		OutOfRange:      result.OutOfRange,
		SizeMismatch:    result.SizeMismatch,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		DurationMs:      result.Duration().Milliseconds(),
	}
}
