package ffff

import "errors"

var (
	ErrShortBuffer    = errors.New("ffff: buffer too small")
	ErrTableFull      = errors.New("ffff: element table full")
	ErrLayoutOverflow = errors.New("ffff: element span exceeds image length")
)
