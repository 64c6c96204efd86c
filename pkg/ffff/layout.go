package ffff

import "fmt"

// Finalize lays out an authored header and flushes it to the flash buffer.
//
// Elements added with location zero are placed contiguously, each on the
// next erase-block boundary after its predecessor, starting from whatever
// location the first element resolved to. A configured image length that
// any element's span would reach aborts the whole authoring run with
// ErrLayoutOverflow; an unset image length grows to exactly fit the final
// element. The sentinels are then stamped, the header encodes, and the
// validator re-runs as a final sniff test, recording its verdict on the
// header.
func (h *Header) Finalize() error {
	if len(h.elements) > 0 {
		cursor := h.elements[0].Location
		for _, e := range h.elements {
			if e.Location == 0 {
				e.Location = cursor
				if err := h.materialize(e); err != nil {
					return err
				}
			}
			if h.FlashImageLength != 0 && e.Location+e.Length >= h.FlashImageLength {
				return fmt.Errorf("%w: element %d span [%#x, %#x) reaches image length %#x",
					ErrLayoutOverflow, e.Index, e.Location, e.Location+e.Length, h.FlashImageLength)
			}
			cursor = nextBoundary(e.Location+e.Length, h.EraseBlockSize)
		}
		if h.FlashImageLength == 0 {
			h.FlashImageLength = cursor
		}
	}

	copy(h.Sentinel[:], Sentinel)
	copy(h.TailSentinel[:], Sentinel)

	h.Encode()
	h.verdict, h.report = h.Validate()
	return nil
}
