// Package replay feeds a local image through the receiver as if a camera had
// sent it, with optional loss, duplication and reordering. It is how the
// degradation rules are exercised without hardware.
package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/rescp17/imageReceiver/pkg/receiver"
	"github.com/rescp17/imageReceiver/pkg/transfer"
	"github.com/rescp17/imageReceiver/pkg/transport"
)

// Options perturbs the frame sequence a sender would produce.
type Options struct {
	// Drop lists data packet indices that are never sent.
	Drop []int
	// Duplicate lists data packet indices that are sent twice.
	Duplicate []int
	// Shuffle sends data packets in a random order seeded by Seed.
	Shuffle bool
	Seed    uint64
	// NoCount sends a bare end marker so the receiver must estimate.
	NoCount bool
	// DeclaredSize overrides the size header when non-negative.
	DeclaredSize int64
	// LateAfterEnd moves this many trailing data packets after the end marker.
	LateAfterEnd int
}

// DefaultOptions sends the image unmodified.
func DefaultOptions() Options {
	return Options{DeclaredSize: -1}
}

// Frames cuts image into the wire sequence and applies opts.
func Frames(image []byte, packetSize int, opts Options) ([][]byte, error) {
	chunker, err := transfer.NewChunker(bytes.NewReader(image), int64(len(image)), packetSize)
	if err != nil {
		return nil, err
	}
	frames, err := chunker.Frames()
	if err != nil {
		return nil, err
	}

	header := frames[0]
	data := frames[1 : len(frames)-1]
	count := len(data)

	if opts.DeclaredSize >= 0 {
		if opts.DeclaredSize > int64(^uint32(0)) {
			return nil, fmt.Errorf("declared size %d does not fit the size header", opts.DeclaredSize)
		}
		header = transfer.EncodeSizeHeader(uint32(opts.DeclaredSize))
	}

	var packets [][]byte
	for i, packet := range data {
		if slices.Contains(opts.Drop, i) {
			continue
		}
		packets = append(packets, packet)
		if slices.Contains(opts.Duplicate, i) {
			packets = append(packets, packet)
		}
	}

	if opts.Shuffle {
		rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9E3779B97F4A7C15))
		rng.Shuffle(len(packets), func(i, j int) { packets[i], packets[j] = packets[j], packets[i] })
	}

	end := transfer.EncodeEndMarker(uint16(count), !opts.NoCount)

	late := opts.LateAfterEnd
	if late > len(packets) {
		late = len(packets)
	}
	if late < 0 {
		late = 0
	}
	split := len(packets) - late

	out := make([][]byte, 0, len(packets)+2)
	out = append(out, header)
	out = append(out, packets[:split]...)
	out = append(out, end)
	out = append(out, packets[split:]...)
	return out, nil
}

// Report is what the receiver made of a replay.
type Report struct {
	Frames  int
	Results []transfer.ReconstructionResult
	Stats   transfer.StatsSnapshot
	// Identical is set when exactly one image came out and it equals the
	// input byte for byte.
	Identical bool
}

// Run pushes frames through a memory transport into a receiver App and
// collects every finalized image. Extra app options (an image writer, for
// instance) are applied after the replay's own.
func Run(ctx context.Context, original []byte, frames [][]byte, config *transfer.TransferConfig, opts ...receiver.Option) (*Report, error) {
	mt := transport.NewMemoryTransport(len(frames))
	if err := mt.DeliverAll(ctx, frames); err != nil {
		return nil, fmt.Errorf("failed to queue frames: %w", err)
	}
	mt.Close()

	report := &Report{Frames: len(frames)}
	collect := receiver.ImageHandlerFunc(func(result transfer.ReconstructionResult) {
		report.Results = append(report.Results, result)
	})

	app, err := receiver.NewApp(mt, config, append([]receiver.Option{receiver.WithHandler(collect)}, opts...)...)
	if err != nil {
		return nil, err
	}

	// The transport reports closed once every frame was read; that is the
	// normal end of a replay.
	if err := app.Run(ctx); err != nil && !errors.Is(err, transport.ErrClosed) {
		return nil, err
	}

	report.Stats = app.Stats()
	report.Identical = len(report.Results) == 1 && bytes.Equal(report.Results[0].Bytes, original)
	return report, nil
}
