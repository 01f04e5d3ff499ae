package transfer

import (
	"fmt"
	"time"
)

// TransferConfig holds all configuration for image reassembly.
type TransferConfig struct {
	// PacketSize is the nominal payload length the sender uses. It is only
	// used to estimate the packet count when the end marker carries none.
	PacketSize int `json:"packet_size" yaml:"packet_size"`

	// MaxPayloadSize is the largest payload a data packet should carry.
	// Larger payloads are kept but reported.
	MaxPayloadSize int `json:"max_payload_size" yaml:"max_payload_size"`

	// SessionTimeout bounds a session from its size header to finalize.
	SessionTimeout time.Duration `json:"session_timeout" yaml:"-"`

	// QueueSize is the capacity of the channel between the transport reader
	// and the frame-processing loop.
	QueueSize int `json:"queue_size" yaml:"queue_size"`

	// MaxImageSize rejects size headers announcing absurd images.
	MaxImageSize uint32 `json:"max_image_size" yaml:"max_image_size"`
}

const (
	DefaultPacketSize     = 500
	DefaultSessionTimeout = 30 * time.Second
	DefaultQueueSize      = 64
	DefaultMaxImageSize   = 16 * 1024 * 1024 // 16MB, far above any camera frame
)

// DefaultTransferConfig returns a configuration matching the camera firmware.
func DefaultTransferConfig() *TransferConfig {
	return &TransferConfig{
		PacketSize:     DefaultPacketSize,
		MaxPayloadSize: DefaultPacketSize,
		SessionTimeout: DefaultSessionTimeout,
		QueueSize:      DefaultQueueSize,
		MaxImageSize:   DefaultMaxImageSize,
	}
}

// Validate checks if the configuration values are valid
func (tc *TransferConfig) Validate() error {
	if tc.PacketSize <= 0 {
		return fmt.Errorf("%w: packet_size must be positive", ErrInvalidConfiguration)
	}
	if tc.MaxPayloadSize <= 0 {
		return fmt.Errorf("%w: max_payload_size must be positive", ErrInvalidConfiguration)
	}
	if tc.PacketSize > tc.MaxPayloadSize {
		return fmt.Errorf("%w: packet_size cannot be greater than max_payload_size", ErrInvalidConfiguration)
	}
	if tc.SessionTimeout <= 0 {
		return fmt.Errorf("%w: session_timeout must be positive", ErrInvalidConfiguration)
	}
	if tc.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfiguration)
	}
	if tc.MaxImageSize == 0 {
		return fmt.Errorf("%w: max_image_size must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// PacketCountFor estimates how many packets an image of size bytes needs.
func (tc *TransferConfig) PacketCountFor(size uint32) int {
	if size == 0 || tc.PacketSize <= 0 {
		return 0
	}
	return int((uint64(size) + uint64(tc.PacketSize) - 1) / uint64(tc.PacketSize))
}
