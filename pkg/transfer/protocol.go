package transfer

import "encoding/binary"

// FrameKind identifies what a single notification buffer carries.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameSizeHeader
	FrameEndMarker
	FrameDataPacket
)

// Wire layout constants. All multi-byte integers are big-endian.
const (
	SizeHeaderLen   = 4
	IndexFieldLen   = 2
	EndMarkerLen    = 2
	EndMarkerCntLen = 4
	EndMarkerByte   = 0xFF
)

func (k FrameKind) String() string {
	switch k {
	case FrameSizeHeader:
		return "size_header"
	case FrameEndMarker:
		return "end_marker"
	case FrameDataPacket:
		return "data_packet"
	default:
		return "unknown"
	}
}

// Frame is the classified view of one inbound buffer. Only the fields
// belonging to Kind are meaningful.
type Frame struct {
	Kind FrameKind

	// SizeHeader
	Size uint32

	// EndMarker
	Count    uint16
	HasCount bool

	// DataPacket
	Index   uint16
	Payload []byte
}

// Classify decides what buf is. receiving tells it whether a session is in
// progress, which is the only way to tell a 4-byte size header apart from a
// data packet carrying a 2-byte payload.
//
// Payload aliases buf; callers that keep it must copy.
func Classify(buf []byte, receiving bool) Frame {
	n := len(buf)
	if n == 0 {
		return Frame{Kind: FrameUnknown}
	}

	if n == SizeHeaderLen && !receiving {
		return Frame{Kind: FrameSizeHeader, Size: binary.BigEndian.Uint32(buf)}
	}

	if n >= EndMarkerLen && buf[0] == EndMarkerByte && buf[1] == EndMarkerByte {
		f := Frame{Kind: FrameEndMarker}
		if n >= EndMarkerCntLen {
			f.Count = binary.BigEndian.Uint16(buf[2:4])
			f.HasCount = true
		}
		return f
	}

	if n >= IndexFieldLen && receiving {
		return Frame{
			Kind:    FrameDataPacket,
			Index:   binary.BigEndian.Uint16(buf[:IndexFieldLen]),
			Payload: buf[IndexFieldLen:],
		}
	}

	return Frame{Kind: FrameUnknown}
}

// EncodeSizeHeader builds the 4-byte header announcing the image size.
func EncodeSizeHeader(size uint32) []byte {
	buf := make([]byte, SizeHeaderLen)
	binary.BigEndian.PutUint32(buf, size)
	return buf
}

// EncodeEndMarker builds an end marker. Older senders omit the count; pass
// withCount=false to produce that 2-byte form.
func EncodeEndMarker(count uint16, withCount bool) []byte {
	if !withCount {
		return []byte{EndMarkerByte, EndMarkerByte}
	}
	buf := []byte{EndMarkerByte, EndMarkerByte, 0, 0}
	binary.BigEndian.PutUint16(buf[2:], count)
	return buf
}

// EncodeDataPacket prefixes payload with its packet index.
func EncodeDataPacket(index uint16, payload []byte) []byte {
	buf := make([]byte, IndexFieldLen+len(payload))
	binary.BigEndian.PutUint16(buf, index)
	copy(buf[IndexFieldLen:], payload)
	return buf
}
