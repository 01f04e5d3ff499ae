package receiver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rescp17/imageReceiver/internal/util"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

// fallbackExtension is used when the bytes are not a recognised image. The
// cameras this receiver talks to send JPEG.
const fallbackExtension = ".jpg"

var ErrNothingToSave = errors.New("image has no bytes")

// SavedImage describes a file written by ImageWriter.
type SavedImage struct {
	Path     string `json:"path"`
	MimeType string `json:"mime_type"`
	Checksum string `json:"checksum"`
	Size     int    `json:"size"`
	IsImage  bool   `json:"is_image"`
}

// ImageWriter saves reconstructed images to a directory as
// image_NNNN_<timestamp>.<ext>.
type ImageWriter struct {
	outputDir string
	mu        sync.Mutex
	counter   int
	now       func() time.Time
}

// NewImageWriter creates outputDir if needed.
func NewImageWriter(outputDir string) (*ImageWriter, error) {
	if err := util.EnsureDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}
	return &ImageWriter{
		outputDir: outputDir,
		now:       time.Now,
	}, nil
}

// OutputDir returns the directory images are written to.
func (w *ImageWriter) OutputDir() string { return w.outputDir }

// Save writes result.Bytes to a new file. Degraded results are saved too;
// the log records what was wrong with them.
func (w *ImageWriter) Save(result transfer.ReconstructionResult) (SavedImage, error) {
	if len(result.Bytes) == 0 {
		return SavedImage{}, ErrNothingToSave
	}

	mime := mimetype.Detect(result.Bytes)
	isImage := strings.HasPrefix(mime.String(), "image/")
	ext := mime.Extension()
	if !isImage || ext == "" {
		slog.Warn("Received data is not a recognised image",
			"session", result.SessionID,
			"mimeType", mime.String())
		ext = fallbackExtension
	}

	w.mu.Lock()
	w.counter++
	name := fmt.Sprintf("image_%04d_%s%s", w.counter, w.now().Format("20060102_150405"), ext)
	w.mu.Unlock()

	path := filepath.Join(w.outputDir, name)
	if err := os.WriteFile(path, result.Bytes, 0644); err != nil {
		return SavedImage{}, fmt.Errorf("failed to write image %s: %w", path, err)
	}

	sum := sha256.Sum256(result.Bytes)
	saved := SavedImage{
		Path:     path,
		MimeType: mime.String(),
		Checksum: hex.EncodeToString(sum[:]),
		Size:     len(result.Bytes),
		IsImage:  isImage,
	}
	slog.Info("Image saved",
		"session", result.SessionID,
		"path", saved.Path,
		"size", util.FormatSize(int64(saved.Size)),
		"mimeType", saved.MimeType,
		"sha256", saved.Checksum,
		"outcome", result.Outcome.String())
	return saved, nil
}

// OnImageReady implements ImageHandler.
func (w *ImageWriter) OnImageReady(result transfer.ReconstructionResult) {
	if _, err := w.Save(result); err != nil {
		slog.Error("Failed to save image", "session", result.SessionID, "error", err)
	}
}

// MultiHandler hands every result to each handler in order.
type MultiHandler []ImageHandler

// OnImageReady implements ImageHandler.
func (m MultiHandler) OnImageReady(result transfer.ReconstructionResult) {
	for _, h := range m {
		if h != nil {
			h.OnImageReady(result)
		}
	}
}
