package ffff

func isPowerOfTwo(x uint32) bool {
	return x != 0 && x&(x-1) == 0
}

// nextBoundary rounds off up to the next multiple of block at or after it.
func nextBoundary(off, block uint32) uint32 {
	if block == 0 {
		return off
	}
	return (off + block - 1) / block * block
}

func isConstantFill(b []byte, fill byte) bool {
	for _, c := range b {
		if c != fill {
			return false
		}
	}
	return true
}
