package ffff

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Header is one FFFF header copy. It holds a non-owning view into the
// caller's flash buffer: the caller owns the buffer, and the header and its
// elements alias spans of it.
type Header struct {
	Sentinel       [SentinelLength]byte
	Timestamp      [TimestampLength]byte
	FlashImageName [FlashImageNameLength]byte

	FlashCapacity    uint32
	EraseBlockSize   uint32
	HeaderSize       uint32
	FlashImageLength uint32
	Generation       uint32

	Padding      [PaddingLength]byte
	TailSentinel [SentinelLength]byte

	elements []*Element

	buf     []byte
	offset  int
	verdict Verdict
	report  *TableReport
}

// New creates a header for authoring a fresh image at offset within buf.
// Sentinels and the timestamp are stamped later, by Finalize. The image
// name is truncated to its fixed width.
func New(buf []byte, offset int, name string, capacity, eraseBlockSize, imageLength, generation uint32) (*Header, error) {
	if offset < 0 || offset+HeaderLength > len(buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, HeaderLength, offset, len(buf))
	}
	h := &Header{
		FlashCapacity:    capacity,
		EraseBlockSize:   eraseBlockSize,
		HeaderSize:       HeaderLength,
		FlashImageLength: imageLength,
		Generation:       generation,
		buf:              buf,
		offset:           offset,
	}
	copy(h.FlashImageName[:], name)
	return h, nil
}

// Decode reads a header from buf at offset and classifies it. Structural
// problems are reported through Verdict and Report rather than an error;
// the error return covers only a buffer too small to hold a header.
func Decode(buf []byte, offset int) (*Header, error) {
	if offset < 0 || offset+HeaderLength > len(buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, HeaderLength, offset, len(buf))
	}
	h := &Header{buf: buf, offset: offset}
	r := buf[offset:]

	copy(h.Sentinel[:], r[offSentinel:offSentinel+SentinelLength])
	copy(h.Timestamp[:], r[offTimestamp:offTimestamp+TimestampLength])
	copy(h.FlashImageName[:], r[offFlashImageName:offFlashImageName+FlashImageNameLength])
	h.FlashCapacity = binary.LittleEndian.Uint32(r[offFlashCapacity:])
	h.EraseBlockSize = binary.LittleEndian.Uint32(r[offEraseBlockSize:])
	h.HeaderSize = binary.LittleEndian.Uint32(r[offHeaderSize:])
	h.FlashImageLength = binary.LittleEndian.Uint32(r[offFlashImageLength:])
	h.Generation = binary.LittleEndian.Uint32(r[offGeneration:])
	copy(h.Padding[:], r[offPadding:offPadding+PaddingLength])
	copy(h.TailSentinel[:], r[offTailSentinel:offTailSentinel+SentinelLength])

	// Decode table entries sequentially, stopping at the first unused slot.
	off := offset + offElementTable
	for i := 0; i < MaxElements; i++ {
		e, unused := decodeElement(buf, off, i)
		if unused {
			break
		}
		h.elements = append(h.elements, e)
		off += elementEntryLength
	}

	h.verdict, h.report = h.Validate()
	return h, nil
}

// Encode serializes the header into its buffer. The timestamp is refreshed
// to the current UTC time on every encode; it is never carried over from a
// decoded input.
func (h *Header) Encode() {
	r := h.buf[h.offset:]

	h.Timestamp = [TimestampLength]byte{}
	copy(h.Timestamp[:], time.Now().UTC().Format(TimestampFormat))

	copy(r[offSentinel:], h.Sentinel[:])
	copy(r[offTimestamp:], h.Timestamp[:])
	if h.FlashImageName != ([FlashImageNameLength]byte{}) {
		// An unset name leaves the buffer bytes alone rather than
		// clobbering them with padding.
		copy(r[offFlashImageName:], h.FlashImageName[:])
	}
	binary.LittleEndian.PutUint32(r[offFlashCapacity:], h.FlashCapacity)
	binary.LittleEndian.PutUint32(r[offEraseBlockSize:], h.EraseBlockSize)
	h.HeaderSize = HeaderLength
	binary.LittleEndian.PutUint32(r[offHeaderSize:], h.HeaderSize)
	binary.LittleEndian.PutUint32(r[offFlashImageLength:], h.FlashImageLength)
	binary.LittleEndian.PutUint32(r[offGeneration:], h.Generation)
	copy(r[offTailSentinel:], h.TailSentinel[:])

	off := h.offset + offElementTable
	for _, e := range h.elements {
		off = e.encodeTo(h.buf, off)
	}
}

// AddElement appends one element to the table. The payload bytes, when
// present and the location is explicit, are copied into the flash buffer
// immediately; auto-placed payloads (location zero) are materialized by
// Finalize once a location has been assigned.
func (h *Header) AddElement(typ ElementType, id, generation, location, length uint32, payload []byte) error {
	if len(h.elements) >= MaxElements {
		return ErrTableFull
	}
	e := NewElement(len(h.elements), typ, id, generation, location, length, payload)
	if location != 0 {
		if err := h.materialize(e); err != nil {
			return err
		}
	}
	h.elements = append(h.elements, e)
	return nil
}

// materialize copies the element's blob into the flash buffer at its
// location.
func (h *Header) materialize(e *Element) error {
	if len(e.payload) == 0 {
		return nil
	}
	start := int64(e.Location)
	end := start + int64(len(e.payload))
	if end > int64(len(h.buf)) {
		return fmt.Errorf("%w: element %d payload [%#x, %#x) outside flash buffer", ErrShortBuffer, e.Index, start, end)
	}
	copy(h.buf[start:end], e.payload)
	return nil
}

// Elements returns the live element sequence in table order. Callers must
// not modify the returned slice.
func (h *Header) Elements() []*Element {
	return h.elements
}

// ElementData returns the span of the flash buffer claimed by e, or nil
// when the span falls outside the buffer.
func (h *Header) ElementData(e *Element) []byte {
	start := int64(e.Location)
	end := start + int64(e.Length)
	if start < 0 || end < start || end > int64(len(h.buf)) {
		return nil
	}
	return h.buf[start:end]
}

// Verdict returns the classification recorded by the most recent decode,
// finalize, or Validate call.
func (h *Header) Verdict() Verdict {
	return h.verdict
}

// Report returns the element table report from the most recent validation,
// or nil when validation stopped before the table pass.
func (h *Header) Report() *TableReport {
	return h.report
}

// Equal reports whether two headers are structurally identical: equal
// element tables and byte-identical scalar fields, padding included.
func (h *Header) Equal(other *Header) bool {
	if len(h.elements) != len(other.elements) {
		return false
	}
	for i := range h.elements {
		if !h.elements[i].Equal(other.elements[i]) {
			return false
		}
	}
	return h.Sentinel == other.Sentinel &&
		h.Timestamp == other.Timestamp &&
		h.FlashImageName == other.FlashImageName &&
		h.FlashCapacity == other.FlashCapacity &&
		h.EraseBlockSize == other.EraseBlockSize &&
		h.HeaderSize == other.HeaderSize &&
		h.FlashImageLength == other.FlashImageLength &&
		h.Generation == other.Generation &&
		h.Padding == other.Padding &&
		h.TailSentinel == other.TailSentinel
}

// CopyTimestamp overwrites h's timestamp with other's, in both the struct
// and the encoded buffer. Redundant header copies are stamped one after the
// other; this keeps the pair byte-identical when the clock ticks between
// the two encodes.
func (h *Header) CopyTimestamp(other *Header) {
	h.Timestamp = other.Timestamp
	copy(h.buf[h.offset+offTimestamp:], h.Timestamp[:])
}
