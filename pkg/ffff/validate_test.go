package ffff

import (
	"slices"
	"testing"
)

// authorHeader builds and finalizes a header over a fresh buffer. The
// verdict is whatever the configuration earns; callers assert it.
func authorHeader(t *testing.T, capacity, eraseBlockSize uint32, add func(h *Header)) (*Header, []byte) {
	t.Helper()

	buf := make([]byte, capacity)
	h, err := New(buf, 0, "fixture", capacity, eraseBlockSize, 0, 1)
	if err != nil {
		t.Fatalf("new header: %v", err)
	}
	if add != nil {
		add(h)
	}
	if err := h.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return h, buf
}

func TestErasedHeader(t *testing.T) {
	t.Parallel()

	for _, fill := range []byte{0x00, 0xff} {
		buf := make([]byte, 4096)
		for i := range buf {
			buf[i] = fill
		}
		h, err := Decode(buf, 0)
		if err != nil {
			t.Fatalf("decode %#x fill: %v", fill, err)
		}
		if h.Verdict() != HeaderErased {
			t.Fatalf("%#x fill verdict: got %v want erased", fill, h.Verdict())
		}
	}
}

func TestSentinelFlip(t *testing.T) {
	t.Parallel()

	for _, off := range []int{0x0000, 0x000f, 0x01f0, 0x01ff} {
		_, buf := authorHeader(t, 0x40000, 4096, nil)
		buf[off] ^= 0xff
		h, err := Decode(buf, 0)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if h.Verdict() != HeaderInvalid {
			t.Fatalf("flipped sentinel byte %#x verdict: got %v want invalid", off, h.Verdict())
		}
	}
}

func TestEraseBlockSizePowerOfTwo(t *testing.T) {
	t.Parallel()

	cases := []struct {
		eraseBlockSize uint32
		want           Verdict
	}{
		{1, HeaderValid},
		{2, HeaderValid},
		{4, HeaderValid},
		{1024, HeaderValid},
		{3, HeaderInvalid},
		{6, HeaderInvalid},
		{1000, HeaderInvalid},
	}
	for _, tc := range cases {
		h, _ := authorHeader(t, 0x40000, tc.eraseBlockSize, nil)
		if h.Verdict() != tc.want {
			t.Fatalf("erase block size %d verdict: got %v want %v", tc.eraseBlockSize, h.Verdict(), tc.want)
		}
	}
}

func TestImageLengthAlignment(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 0x40000)
	h, err := New(buf, 0, "align", 0x40000, 1024, 1500, 1)
	if err != nil {
		t.Fatalf("new header: %v", err)
	}
	if err := h.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if h.Verdict() != HeaderInvalid {
		t.Fatalf("misaligned image length verdict: got %v want invalid", h.Verdict())
	}

	h.FlashImageLength = 2048
	h.Encode()
	if v, _ := h.Validate(); v != HeaderValid {
		t.Fatalf("aligned image length verdict: got %v want valid", v)
	}
}

func TestPaddingMustBeZero(t *testing.T) {
	t.Parallel()

	// A non-zero byte in an unused table slot, with the slot's type still
	// reading as end-of-table.
	_, buf := authorHeader(t, 0x40000, 4096, func(h *Header) {
		if err := h.AddElement(ElementTypeData, 1, 1, 0x2000, 0x100, nil); err != nil {
			t.Fatalf("add element: %v", err)
		}
	})
	buf[offElementTable+elementEntryLength+eltOffID] = 0xaa
	h, err := Decode(buf, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Verdict() != HeaderInvalid {
		t.Fatalf("dirty table slot verdict: got %v want invalid", h.Verdict())
	}

	// A non-zero byte in the padding region before the tail sentinel.
	_, buf = authorHeader(t, 0x40000, 4096, nil)
	buf[offPadding+5] = 0x01
	h, err = Decode(buf, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Verdict() != HeaderInvalid {
		t.Fatalf("dirty padding verdict: got %v want invalid", h.Verdict())
	}
}

func TestCollisionSymmetry(t *testing.T) {
	t.Parallel()

	h, _ := authorHeader(t, 0x10000, 64, func(h *Header) {
		if err := h.AddElement(ElementTypeStage2Firmware, 1, 1, 0x1000, 0x100, nil); err != nil {
			t.Fatalf("add element a: %v", err)
		}
		if err := h.AddElement(ElementTypeData, 2, 1, 0x1080, 0x100, nil); err != nil {
			t.Fatalf("add element b: %v", err)
		}
	})
	if h.Verdict() != HeaderInvalid {
		t.Fatalf("colliding table verdict: got %v want invalid", h.Verdict())
	}
	report := h.Report()
	if report == nil {
		t.Fatalf("missing table report")
	}
	if !slices.Contains(report.Collisions[0], 1) {
		t.Fatalf("element 0 collision list: %v", report.Collisions[0])
	}
	if !slices.Contains(report.Collisions[1], 0) {
		t.Fatalf("element 1 collision list: %v", report.Collisions[1])
	}
	if len(report.Invalid) != 0 {
		t.Fatalf("unexpected invalid elements: %v", report.Invalid)
	}
}

func TestDuplicateDetection(t *testing.T) {
	t.Parallel()

	// Identical (type, id, generation) at disjoint locations must fail the
	// header overall, not just mark the report.
	h, _ := authorHeader(t, 0x10000, 64, func(h *Header) {
		if err := h.AddElement(ElementTypeStage2Firmware, 5, 2, 0x1000, 0x40, nil); err != nil {
			t.Fatalf("add element a: %v", err)
		}
		if err := h.AddElement(ElementTypeStage2Firmware, 5, 2, 0x2000, 0x40, nil); err != nil {
			t.Fatalf("add element b: %v", err)
		}
	})
	if h.Verdict() != HeaderInvalid {
		t.Fatalf("duplicate table verdict: got %v want invalid", h.Verdict())
	}
	report := h.Report()
	if !slices.Contains(report.Duplicates[0], 1) || !slices.Contains(report.Duplicates[1], 0) {
		t.Fatalf("duplicate lists not symmetric: %v / %v", report.Duplicates[0], report.Duplicates[1])
	}

	// Changing any one field of the triple clears the flag.
	h, _ = authorHeader(t, 0x10000, 64, func(h *Header) {
		if err := h.AddElement(ElementTypeStage2Firmware, 5, 2, 0x1000, 0x40, nil); err != nil {
			t.Fatalf("add element a: %v", err)
		}
		if err := h.AddElement(ElementTypeStage2Firmware, 5, 3, 0x2000, 0x40, nil); err != nil {
			t.Fatalf("add element b: %v", err)
		}
	})
	if h.Verdict() != HeaderValid {
		t.Fatalf("distinct generation verdict: got %v want valid", h.Verdict())
	}
}

func TestHeaderRegionGuard(t *testing.T) {
	t.Parallel()

	h, _ := authorHeader(t, 0x10000, 64, func(h *Header) {
		if err := h.AddElement(ElementTypeData, 1, 1, 0x400, 0x40, nil); err != nil {
			t.Fatalf("add element: %v", err)
		}
	})
	if h.Verdict() != HeaderInvalid {
		t.Fatalf("header-region element verdict: got %v want invalid", h.Verdict())
	}
	report := h.Report()
	if !slices.Contains(report.Collisions[0], HeaderCollision) {
		t.Fatalf("collision list missing header marker: %v", report.Collisions[0])
	}
	if !slices.Contains(report.Invalid, 0) {
		t.Fatalf("invalid list missing element 0: %v", report.Invalid)
	}
}
