package transfer

import (
	"errors"
	"log/slog"
)

var (
	// ErrMalformedFrame: the buffer classified as unknown and was ignored.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrOutOfRangeIndex: a data packet index is at or beyond the expected count.
	ErrOutOfRangeIndex = errors.New("packet index out of range")
	// ErrOversizedPayload: a data packet carries more than MaxPayloadSize bytes.
	ErrOversizedPayload = errors.New("packet payload exceeds max payload size")
	// ErrSizeMismatch: the reconstructed length differs from the declared size.
	ErrSizeMismatch = errors.New("reconstructed size does not match declared size")
	// ErrIncompleteTransfer: a session was finalized with packets missing.
	ErrIncompleteTransfer = errors.New("incomplete transfer")
	// ErrTransportClosed: the transport stopped delivering buffers.
	ErrTransportClosed = errors.New("transport closed")
	// ErrImageTooLarge: a size header announced more than MaxImageSize bytes.
	ErrImageTooLarge = errors.New("declared image size too large")
	// ErrInvalidConfiguration: a TransferConfig failed validation.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ErrorCategory represents the category of an error for handling purposes
type ErrorCategory int

const (
	// ErrorCategoryIgnored errors are dropped where they occur.
	ErrorCategoryIgnored ErrorCategory = iota
	// ErrorCategoryDiagnostic errors are recorded but do not change the session.
	ErrorCategoryDiagnostic
	// ErrorCategoryDegraded errors mean the produced image is not exact.
	ErrorCategoryDegraded
	// ErrorCategoryTerminal errors end the current session early.
	ErrorCategoryTerminal
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryIgnored:
		return "ignored"
	case ErrorCategoryDiagnostic:
		return "diagnostic"
	case ErrorCategoryDegraded:
		return "degraded"
	case ErrorCategoryTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// CategorizeError determines the category of an error. None of them is fatal
// to the receiver; the category only drives logging and reporting.
func CategorizeError(err error) ErrorCategory {
	switch {
	case err == nil:
		return ErrorCategoryIgnored
	case errors.Is(err, ErrMalformedFrame):
		return ErrorCategoryIgnored
	case errors.Is(err, ErrOutOfRangeIndex), errors.Is(err, ErrOversizedPayload), errors.Is(err, ErrImageTooLarge):
		return ErrorCategoryDiagnostic
	case errors.Is(err, ErrSizeMismatch), errors.Is(err, ErrIncompleteTransfer):
		return ErrorCategoryDegraded
	case errors.Is(err, ErrTransportClosed):
		return ErrorCategoryTerminal
	}
	return ErrorCategoryTerminal
}

// LogError logs an error with the session it belongs to, at a level chosen
// from its category.
func LogError(sessionID string, err error, attrs ...any) {
	if err == nil {
		return
	}
	category := CategorizeError(err)
	logFields := append([]any{
		"session", sessionID,
		"error", err,
		"category", category.String(),
	}, attrs...)

	switch category {
	case ErrorCategoryIgnored:
		slog.Debug("Frame ignored", logFields...)
	case ErrorCategoryDiagnostic:
		slog.Warn("Abnormal frame", logFields...)
	case ErrorCategoryDegraded:
		slog.Warn("Image reconstructed with degradation", logFields...)
	default:
		slog.Error("Session ended early", logFields...)
	}
}
