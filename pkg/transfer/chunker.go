package transfer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Chunk is one data packet as a sender would cut it.
type Chunk struct {
	Index  uint16
	Offset int64
	Data   []byte
	IsLast bool
}

// Chunker cuts an image into packets the way the camera firmware does. The
// receiver never needs it; the replay tool and tests use it to produce
// realistic frame sequences.
type Chunker struct {
	reader        io.Reader
	closer        io.Closer
	packetSize    int
	currentIndex  int
	totalByteSize int64
	bytesRead     int64
	buffer        []byte
}

var (
	ErrIsDir         = errors.New("cannot chunk a directory")
	ErrImageTooBig   = errors.New("image needs more packets than the index field can address")
	ErrBadPacketSize = errors.New("packet size must be positive")
)

// maxPackets keeps 0xFFFF free: a data packet with that index would start
// with FF FF and be read as an end marker.
const maxPackets = math.MaxUint16

// NewChunker cuts size bytes read from r into packetSize payloads.
func NewChunker(r io.Reader, size int64, packetSize int) (*Chunker, error) {
	if packetSize <= 0 {
		return nil, ErrBadPacketSize
	}
	if size > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooBig, size)
	}
	if (size+int64(packetSize)-1)/int64(packetSize) > maxPackets {
		return nil, fmt.Errorf("%w: %d bytes at %d per packet", ErrImageTooBig, size, packetSize)
	}
	return &Chunker{
		reader:        r,
		packetSize:    packetSize,
		totalByteSize: size,
		buffer:        make([]byte, packetSize),
	}, nil
}

// NewChunkerFromFile opens path and chunks its whole content.
func NewChunkerFromFile(path string, packetSize int) (*Chunker, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrIsDir
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	c, err := NewChunker(file, info.Size(), packetSize)
	if err != nil {
		file.Close()
		return nil, err
	}
	c.closer = file
	return c, nil
}

// TotalSize returns the image size being chunked.
func (c *Chunker) TotalSize() int64 { return c.totalByteSize }

// Next returns the next packet, or io.EOF once the image is exhausted.
func (c *Chunker) Next() (*Chunk, error) {
	if c.bytesRead >= c.totalByteSize {
		return nil, io.EOF
	}

	want := c.packetSize
	if remaining := c.totalByteSize - c.bytesRead; remaining < int64(want) {
		want = int(remaining)
	}
	n, err := io.ReadFull(c.reader, c.buffer[:want])
	if n == 0 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return nil, err
	}

	offset := c.bytesRead
	c.bytesRead += int64(n)
	index := c.currentIndex
	c.currentIndex++

	// Copy so the caller may keep the chunk after the buffer is reused.
	data := make([]byte, n)
	copy(data, c.buffer[:n])

	return &Chunk{
		Index:  uint16(index),
		Offset: offset,
		Data:   data,
		IsLast: c.bytesRead >= c.totalByteSize || err != nil,
	}, nil
}

// Frames drains the chunker into the full wire sequence: size header, data
// packets in index order, end marker carrying the packet count.
func (c *Chunker) Frames() ([][]byte, error) {
	frames := [][]byte{EncodeSizeHeader(uint32(c.totalByteSize))}
	count := 0
	for {
		chunk, err := c.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read packet %d: %w", count, err)
		}
		frames = append(frames, EncodeDataPacket(chunk.Index, chunk.Data))
		count++
	}
	frames = append(frames, EncodeEndMarker(uint16(count), true))
	return frames, nil
}

// Close releases the underlying file, if any.
func (c *Chunker) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
