package transfer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCategory
	}{
		{name: "nil", err: nil, expected: ErrorCategoryIgnored},
		{name: "malformed frame", err: ErrMalformedFrame, expected: ErrorCategoryIgnored},
		{name: "wrapped malformed frame", err: fmt.Errorf("%w: 1 bytes", ErrMalformedFrame), expected: ErrorCategoryIgnored},
		{name: "out of range", err: ErrOutOfRangeIndex, expected: ErrorCategoryDiagnostic},
		{name: "oversized payload", err: ErrOversizedPayload, expected: ErrorCategoryDiagnostic},
		{name: "image too large", err: ErrImageTooLarge, expected: ErrorCategoryDiagnostic},
		{name: "size mismatch", err: ErrSizeMismatch, expected: ErrorCategoryDegraded},
		{name: "incomplete", err: fmt.Errorf("session x: %w", ErrIncompleteTransfer), expected: ErrorCategoryDegraded},
		{name: "transport closed", err: ErrTransportClosed, expected: ErrorCategoryTerminal},
		{name: "unknown error", err: errors.New("boom"), expected: ErrorCategoryTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CategorizeError(tt.err))
		})
	}
}

func TestErrorCategory_String(t *testing.T) {
	assert.Equal(t, "ignored", ErrorCategoryIgnored.String())
	assert.Equal(t, "diagnostic", ErrorCategoryDiagnostic.String())
	assert.Equal(t, "degraded", ErrorCategoryDegraded.String())
	assert.Equal(t, "terminal", ErrorCategoryTerminal.String())
	assert.Equal(t, "unknown", ErrorCategory(99).String())
}

func TestLogError_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		LogError("s", nil)
		LogError("s", ErrMalformedFrame)
		LogError("s", ErrOutOfRangeIndex, "index", 3)
		LogError("s", ErrIncompleteTransfer)
		LogError("s", ErrTransportClosed)
	})
}
