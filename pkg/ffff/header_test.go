package ffff

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 0x40000)
	h, err := New(buf, 0, "test flash image", 0x40000, 4096, 0, 7)
	if err != nil {
		t.Fatalf("new header: %v", err)
	}

	payloadA := bytes.Repeat([]byte{0xa5}, 100)
	payloadB := bytes.Repeat([]byte{0x5a}, 256)
	if err := h.AddElement(ElementTypeStage2Firmware, 1, 1, 0x2000, 0, payloadA); err != nil {
		t.Fatalf("add element a: %v", err)
	}
	if err := h.AddElement(ElementTypeData, 2, 1, 0x3000, 0, payloadB); err != nil {
		t.Fatalf("add element b: %v", err)
	}
	if err := h.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if h.Verdict() != HeaderValid {
		t.Fatalf("authored header verdict: got %v want valid", h.Verdict())
	}
	if h.FlashImageLength != 0x4000 {
		t.Fatalf("image length: got %#x want 0x4000", h.FlashImageLength)
	}

	d, err := Decode(buf, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Verdict() != HeaderValid {
		t.Fatalf("decoded header verdict: got %v want valid", d.Verdict())
	}
	if len(d.Elements()) != 2 {
		t.Fatalf("element count: got %d want 2", len(d.Elements()))
	}
	if !h.Equal(d) {
		t.Fatalf("decoded header differs from authored header")
	}

	e0 := d.Elements()[0]
	if e0.Type != ElementTypeStage2Firmware || e0.ID != 1 || e0.Location != 0x2000 || e0.Length != 100 {
		t.Fatalf("element 0 fields: %+v", e0)
	}
	if !bytes.Equal(d.ElementData(e0), payloadA) {
		t.Fatalf("element 0 data mismatch")
	}
	if !bytes.Equal(e0.Payload(), payloadA) {
		t.Fatalf("element 0 payload span mismatch")
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	t.Parallel()

	if _, err := Decode(make([]byte, 100), 0); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("short buffer: got %v want ErrShortBuffer", err)
	}
	if _, err := Decode(make([]byte, 1024), 600); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("offset past end: got %v want ErrShortBuffer", err)
	}
}

func TestEncodeFixedOffsets(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 1<<20)
	h, err := New(buf, 0, "", 0x11223344, 4096, 0, 0x0a0b0c0d)
	if err != nil {
		t.Fatalf("new header: %v", err)
	}
	if err := h.AddElement(ElementTypeStage3Firmware, 0x55667788, 3, 0x11000, 0x200, nil); err != nil {
		t.Fatalf("add element: %v", err)
	}
	if err := h.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if !bytes.Equal(buf[0x0000:0x0010], []byte(Sentinel)) {
		t.Fatalf("leading sentinel bytes: %q", buf[0x0000:0x0010])
	}
	if !bytes.Equal(buf[0x01f0:0x0200], []byte(Sentinel)) {
		t.Fatalf("trailing sentinel bytes: %q", buf[0x01f0:0x0200])
	}
	if buf[0x50] != 0x44 || buf[0x51] != 0x33 || buf[0x52] != 0x22 || buf[0x53] != 0x11 {
		t.Fatalf("flash capacity is not little-endian: %x", buf[0x50:0x54])
	}
	if buf[0x54] != 0x00 || buf[0x55] != 0x10 {
		t.Fatalf("erase block size is not little-endian: %x", buf[0x54:0x58])
	}
	if buf[0x58] != 0x00 || buf[0x59] != 0x02 {
		t.Fatalf("header size: %x", buf[0x58:0x5c])
	}
	if buf[0x60] != 0x0d || buf[0x63] != 0x0a {
		t.Fatalf("generation is not little-endian: %x", buf[0x60:0x64])
	}

	// First element entry at the table offset.
	if buf[0x64] != 0x02 {
		t.Fatalf("element type byte: %x", buf[0x64:0x68])
	}
	if buf[0x68] != 0x88 || buf[0x6b] != 0x55 {
		t.Fatalf("element id is not little-endian: %x", buf[0x68:0x6c])
	}
	if buf[0x70] != 0x00 || buf[0x71] != 0x10 || buf[0x72] != 0x01 {
		t.Fatalf("element location is not little-endian: %x", buf[0x70:0x74])
	}
}

func TestAddElementTableFull(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 1<<20)
	h, err := New(buf, 0, "full", 1<<20, 4096, 0, 1)
	if err != nil {
		t.Fatalf("new header: %v", err)
	}
	for i := 0; i < MaxElements; i++ {
		loc := uint32(0x2000 + i*0x1000)
		if err := h.AddElement(ElementTypeData, uint32(i), 1, loc, 0x100, nil); err != nil {
			t.Fatalf("add element %d: %v", i, err)
		}
	}
	err = h.AddElement(ElementTypeData, 99, 1, 0x80000, 0x100, nil)
	if !errors.Is(err, ErrTableFull) {
		t.Fatalf("overflow add: got %v want ErrTableFull", err)
	}
	if len(h.Elements()) != MaxElements {
		t.Fatalf("table changed by rejected add: %d elements", len(h.Elements()))
	}
}

func TestHeaderEqual(t *testing.T) {
	t.Parallel()

	build := func(buf []byte) *Header {
		h, err := New(buf, 0, "pair", 0x40000, 4096, 0, 3)
		if err != nil {
			t.Fatalf("new header: %v", err)
		}
		if err := h.AddElement(ElementTypeData, 1, 1, 0x2000, 0x100, nil); err != nil {
			t.Fatalf("add element: %v", err)
		}
		if err := h.Finalize(); err != nil {
			t.Fatalf("finalize: %v", err)
		}
		return h
	}

	a := build(make([]byte, 0x40000))
	b := build(make([]byte, 0x40000))
	b.CopyTimestamp(a)
	if !a.Equal(b) {
		t.Fatalf("identical headers compare unequal")
	}

	b.Elements()[0].Generation = 2
	if a.Equal(b) {
		t.Fatalf("headers with differing elements compare equal")
	}

	b.Elements()[0].Generation = 1
	b.Generation = 4
	if a.Equal(b) {
		t.Fatalf("headers with differing generations compare equal")
	}
}
