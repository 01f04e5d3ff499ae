package receiver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/imageReceiver/pkg/transfer"
)

// jpegBytes is the smallest prefix mimetype recognises as JPEG.
var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

func newTestWriter(t *testing.T) *ImageWriter {
	t.Helper()
	w, err := NewImageWriter(filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	return w
}

func TestImageWriterNamesFilesInSequence(t *testing.T) {
	w := newTestWriter(t)

	first, err := w.Save(transfer.ReconstructionResult{SessionID: "a", Bytes: jpegBytes})
	require.NoError(t, err)
	second, err := w.Save(transfer.ReconstructionResult{SessionID: "b", Bytes: jpegBytes})
	require.NoError(t, err)

	assert.Equal(t, "image_0001_20240506_070809.jpg", filepath.Base(first.Path))
	assert.Equal(t, "image_0002_20240506_070809.jpg", filepath.Base(second.Path))
	assert.Equal(t, "image/jpeg", first.MimeType)
	assert.True(t, first.IsImage)
	assert.Len(t, first.Checksum, 64)

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, data)
}

func TestImageWriterFallsBackForUnknownData(t *testing.T) {
	w := newTestWriter(t)

	saved, err := w.Save(transfer.ReconstructionResult{Bytes: []byte{0x00, 0x01, 0x02, 0x03}})
	require.NoError(t, err)
	assert.False(t, saved.IsImage)
	assert.Equal(t, ".jpg", filepath.Ext(saved.Path))
	assert.Equal(t, 4, saved.Size)
}

func TestImageWriterRejectsEmptyImage(t *testing.T) {
	w := newTestWriter(t)

	_, err := w.Save(transfer.ReconstructionResult{})
	assert.ErrorIs(t, err, ErrNothingToSave)

	entries, err := os.ReadDir(w.OutputDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMultiHandler(t *testing.T) {
	var order []string
	h := MultiHandler{
		ImageHandlerFunc(func(r transfer.ReconstructionResult) { order = append(order, "first:"+r.SessionID) }),
		nil,
		ImageHandlerFunc(func(r transfer.ReconstructionResult) { order = append(order, "second:"+r.SessionID) }),
	}

	h.OnImageReady(transfer.ReconstructionResult{SessionID: "x"})
	assert.Equal(t, []string{"first:x", "second:x"}, order)
}
