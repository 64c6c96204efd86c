package ffff

import "encoding/binary"

// elementEntryLength is the encoded size of one element table entry:
// five little-endian uint32 fields.
const elementEntryLength = 0x14

// Element entry field offsets.
const (
	eltOffType       = 0x00
	eltOffID         = 0x04
	eltOffGeneration = 0x08
	eltOffLocation   = 0x0c
	eltOffLength     = 0x10
)

// Element describes one entry of the element table: the identity of a
// firmware blob and the span of flash it occupies. The blob itself is
// opaque to this package.
type Element struct {
	// Index is the entry's position in the element table.
	Index int

	Type       ElementType
	ID         uint32
	Generation uint32
	Location   uint32
	Length     uint32

	// payload is a non-owning view of the blob bytes, when known. For
	// authored elements it references the caller's source bytes until
	// they are copied into the flash buffer; for decoded elements it
	// aliases the element's span of the flash buffer.
	payload []byte
}

// NewElement constructs an element from explicit fields. When payload is
// non-nil it becomes the element's blob and overrides length.
func NewElement(index int, typ ElementType, id, generation, location, length uint32, payload []byte) *Element {
	e := &Element{
		Index:      index,
		Type:       typ,
		ID:         id,
		Generation: generation,
		Location:   location,
		Length:     length,
	}
	if payload != nil {
		e.payload = payload
		e.Length = uint32(len(payload))
	}
	return e
}

// decodeElement reads one table entry from buf at the absolute offset off.
// The second return is true when the slot is unused (an end-of-table
// marker); unused slots do not populate the element sequence. The caller
// guarantees the entry lies within buf.
func decodeElement(buf []byte, off, index int) (*Element, bool) {
	e := &Element{
		Index:      index,
		Type:       ElementType(binary.LittleEndian.Uint32(buf[off+eltOffType:])),
		ID:         binary.LittleEndian.Uint32(buf[off+eltOffID:]),
		Generation: binary.LittleEndian.Uint32(buf[off+eltOffGeneration:]),
		Location:   binary.LittleEndian.Uint32(buf[off+eltOffLocation:]),
		Length:     binary.LittleEndian.Uint32(buf[off+eltOffLength:]),
	}
	if e.Type == ElementTypeEnd {
		return nil, true
	}

	// Alias the blob span when it fits inside the buffer. An out-of-range
	// span is caught later by Validate.
	start := int64(e.Location)
	end := start + int64(e.Length)
	if end <= int64(len(buf)) {
		e.payload = buf[start:end]
	}
	return e, false
}

// encodeTo packs the entry into buf at the absolute offset off and returns
// the offset of the next entry.
func (e *Element) encodeTo(buf []byte, off int) int {
	binary.LittleEndian.PutUint32(buf[off+eltOffType:], uint32(e.Type))
	binary.LittleEndian.PutUint32(buf[off+eltOffID:], e.ID)
	binary.LittleEndian.PutUint32(buf[off+eltOffGeneration:], e.Generation)
	binary.LittleEndian.PutUint32(buf[off+eltOffLocation:], e.Location)
	binary.LittleEndian.PutUint32(buf[off+eltOffLength:], e.Length)
	return off + elementEntryLength
}

// Validate reports whether the element's location falls inside
// [minLocation, maxLocation), is aligned to the erase block size, and its
// type is a known one.
func (e *Element) Validate(minLocation, maxLocation, eraseBlockSize uint32) bool {
	inRange := e.Location >= minLocation && e.Location < maxLocation
	aligned := eraseBlockSize != 0 && e.Location%eraseBlockSize == 0
	validType := e.Type <= ElementTypeData
	return inRange && aligned && validType
}

// Equal reports whether two elements carry identical wire fields. The
// table index and blob bytes do not participate.
func (e *Element) Equal(other *Element) bool {
	return e.Type == other.Type &&
		e.ID == other.ID &&
		e.Generation == other.Generation &&
		e.Location == other.Location &&
		e.Length == other.Length
}

// Payload returns the element's blob bytes, or nil when the span is not
// resolvable. The slice aliases the flash buffer; callers must not retain
// it past the buffer's lifetime.
func (e *Element) Payload() []byte {
	return e.payload
}
