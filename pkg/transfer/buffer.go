package transfer

import "sort"

// ReassemblyBuffer collects data packets of one image keyed by packet index.
// It is not safe for concurrent use; the session controller owns it.
type ReassemblyBuffer struct {
	packetSize    int
	packets       map[uint16][]byte
	receivedBytes int
	declaredSize  uint32
	expected      int
	endMarkerSeen bool
}

// NewReassemblyBuffer creates an empty buffer. packetSize is the nominal
// payload length used to derive a packet count from the declared size.
func NewReassemblyBuffer(packetSize int) *ReassemblyBuffer {
	return &ReassemblyBuffer{
		packetSize: packetSize,
		packets:    make(map[uint16][]byte),
	}
}

// OnSizeHeader starts over for a new image of size bytes. Packets of any
// earlier, unfinished image are discarded.
func (b *ReassemblyBuffer) OnSizeHeader(size uint32) {
	b.Reset()
	b.declaredSize = size
}

// OnDataPacket stores payload under index unless that index is already
// present. It reports whether the packet was stored.
func (b *ReassemblyBuffer) OnDataPacket(index uint16, payload []byte) bool {
	if _, exists := b.packets[index]; exists {
		return false
	}
	data := make([]byte, len(payload))
	copy(data, payload)
	b.packets[index] = data
	b.receivedBytes += len(data)
	return true
}

// OnEndMarker records the end of the transmission. An explicit count always
// wins; without one the count is derived from the declared size, once.
func (b *ReassemblyBuffer) OnEndMarker(count uint16, hasCount bool) {
	b.endMarkerSeen = true
	if hasCount {
		b.expected = int(count)
		return
	}
	if b.expected == 0 && b.declaredSize > 0 {
		b.expected = b.estimate()
	}
}

// Reset empties the buffer and forgets the declared size and count.
func (b *ReassemblyBuffer) Reset() {
	b.packets = make(map[uint16][]byte)
	b.receivedBytes = 0
	b.declaredSize = 0
	b.expected = 0
	b.endMarkerSeen = false
}

func (b *ReassemblyBuffer) estimate() int {
	if b.declaredSize == 0 || b.packetSize <= 0 {
		return 0
	}
	return int((uint64(b.declaredSize) + uint64(b.packetSize) - 1) / uint64(b.packetSize))
}

// Len returns the number of distinct packets held.
func (b *ReassemblyBuffer) Len() int { return len(b.packets) }

// DeclaredSize returns the size announced by the size header, 0 if unknown.
func (b *ReassemblyBuffer) DeclaredSize() uint32 { return b.declaredSize }

// ExpectedPacketCount returns the count set by the end marker, 0 if unknown.
func (b *ReassemblyBuffer) ExpectedPacketCount() int { return b.expected }

// EndMarkerSeen reports whether an end marker arrived for this image.
func (b *ReassemblyBuffer) EndMarkerSeen() bool { return b.endMarkerSeen }

// ReceivedBytes returns the summed payload length of all held packets.
func (b *ReassemblyBuffer) ReceivedBytes() int { return b.receivedBytes }

// PacketSize returns the nominal payload length.
func (b *ReassemblyBuffer) PacketSize() int { return b.packetSize }

// Has reports whether index has been received.
func (b *ReassemblyBuffer) Has(index int) bool {
	if index < 0 || index > 0xFFFF {
		return false
	}
	_, ok := b.packets[uint16(index)]
	return ok
}

// Payload returns the stored payload for index.
func (b *ReassemblyBuffer) Payload(index uint16) ([]byte, bool) {
	p, ok := b.packets[index]
	return p, ok
}

// Indices returns all received indices in ascending order.
func (b *ReassemblyBuffer) Indices() []int {
	indices := make([]int, 0, len(b.packets))
	for idx := range b.packets {
		indices = append(indices, int(idx))
	}
	sort.Ints(indices)
	return indices
}
