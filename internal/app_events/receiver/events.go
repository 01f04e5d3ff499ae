package receiver

import (
	"github.com/rescp17/imageReceiver/internal/app_events"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

// --- App to UI Messages ---

// SessionStartedMsg is sent when a size header opens a new image.
type SessionStartedMsg struct {
	appevents.UIMessage
	SessionID    string
	DeclaredSize uint32
}

// ProgressMsg is sent after each stored packet. It may be dropped when the
// UI falls behind.
type ProgressMsg struct {
	appevents.UIMessage
	Progress transfer.Progress
}

// GapsMsg is sent when an end marker arrived but packets are still missing.
type GapsMsg struct {
	appevents.UIMessage
	SessionID string
	Missing   []int
}

// ImageReadyMsg is sent once per finalized session.
type ImageReadyMsg struct {
	appevents.UIMessage
	Result transfer.ReconstructionResult
	// Path is where the image was written, empty when nothing was saved.
	Path string
}
