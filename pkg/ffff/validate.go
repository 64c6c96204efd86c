package ffff

// TableReport is the structured result of the element table pass. All
// index slices are parallel to the element sequence.
type TableReport struct {
	// Collisions[i] lists the table indices whose byte ranges overlap
	// element i's range. HeaderCollision marks an overlap with the two
	// reserved header blocks.
	Collisions [][]int

	// Duplicates[i] lists the table indices sharing element i's
	// (type, id, generation) identity.
	Duplicates [][]int

	// Invalid lists the indices of elements that failed their own
	// bounds, alignment, or type validation.
	Invalid []int
}

// OK reports whether the table passed: no collisions, no duplicates, and
// no invalid elements.
func (r *TableReport) OK() bool {
	if len(r.Invalid) > 0 {
		return false
	}
	for _, c := range r.Collisions {
		if len(c) > 0 {
			return false
		}
	}
	for _, d := range r.Duplicates {
		if len(d) > 0 {
			return false
		}
	}
	return true
}

// Validate classifies the header region. Checks run in a fixed order and
// stop at the first failure: erasure, sentinels, size rules, zero padding,
// then the element table. Later checks assume the earlier ones passed, so
// the ordering is load-bearing, not cosmetic.
func (h *Header) Validate() (Verdict, *TableReport) {
	span := h.buf[h.offset : h.offset+HeaderLength]

	// A blank region is not malformed; it just has never been written.
	if isConstantFill(span, 0x00) || isConstantFill(span, 0xff) {
		return HeaderErased, nil
	}

	if string(h.Sentinel[:]) != Sentinel || string(h.TailSentinel[:]) != Sentinel {
		return HeaderInvalid, nil
	}

	if !isPowerOfTwo(h.EraseBlockSize) {
		return HeaderInvalid, nil
	}
	if h.FlashImageLength%h.EraseBlockSize != 0 {
		return HeaderInvalid, nil
	}

	// Everything between the last live table entry and the tail sentinel,
	// unused slots included, must be zero.
	unusedStart := offElementTable + len(h.elements)*elementEntryLength
	if !isConstantFill(span[unusedStart:offTailSentinel], 0x00) {
		return HeaderInvalid, nil
	}

	report := h.validateTable()
	if !report.OK() {
		return HeaderInvalid, report
	}
	return HeaderValid, report
}

// validateTable runs the full pairwise element pass. It accumulates every
// finding rather than stopping at the first, so a caller can see all
// conflicting entries in one scan.
func (h *Header) validateTable() *TableReport {
	report := &TableReport{
		Collisions: make([][]int, len(h.elements)),
		Duplicates: make([][]int, len(h.elements)),
	}

	minLocation := 2 * HeaderBlockSize(h.EraseBlockSize)
	maxLocation := h.FlashCapacity

	for i, a := range h.elements {
		if a.Type == ElementTypeEnd {
			break
		}

		if !a.Validate(minLocation, maxLocation, h.EraseBlockSize) {
			report.Invalid = append(report.Invalid, i)
		}
		if a.Location < minLocation {
			report.Collisions[i] = append(report.Collisions[i], HeaderCollision)
		}

		startA := int64(a.Location)
		endA := startA + int64(a.Length) - 1

		for j, b := range h.elements {
			if j == i {
				continue
			}
			if b.Type == ElementTypeEnd {
				break
			}

			startB := int64(b.Location)
			endB := startB + int64(b.Length) - 1
			if endB >= startA && startB <= endA {
				report.Collisions[i] = append(report.Collisions[i], j)
			}

			// At most one live entry may carry a given
			// (type, id, generation) identity.
			if a.Type == b.Type && a.ID == b.ID && a.Generation == b.Generation {
				report.Duplicates[i] = append(report.Duplicates[i], j)
			}
		}
	}
	return report
}
