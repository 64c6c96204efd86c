// Package romimage assembles and loads complete FFFF flash images.
//
// A flash image carries two redundant header copies, one in each of the
// first two header blocks, both describing the same element layout. This
// package owns the flash buffer, keeps the two copies in step while
// authoring, and reconciles them when loading.
package romimage

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/samcharles93/ffff/pkg/ffff"
)

var ErrNoHeader = errors.New("romimage: no valid header in image")

// Image is one flash image: a buffer sized to the flash capacity with two
// FFFF header copies aliasing its first two header blocks.
type Image struct {
	data            []byte
	headers         [2]*ffff.Header
	headerBlockSize uint32
	mmapped         bool
}

// New allocates a flash buffer and the two header copies for authoring.
func New(name string, capacity, eraseBlockSize, imageLength, generation uint32) (*Image, error) {
	if eraseBlockSize == 0 {
		return nil, errors.New("romimage: erase block size must be non-zero")
	}
	if capacity == 0 {
		return nil, errors.New("romimage: flash capacity must be non-zero")
	}
	hbs := ffff.HeaderBlockSize(eraseBlockSize)
	if uint64(2*hbs) > uint64(capacity) {
		return nil, fmt.Errorf("romimage: capacity %#x cannot hold two %#x-byte header blocks", capacity, hbs)
	}

	data := make([]byte, capacity)
	im := &Image{data: data, headerBlockSize: hbs}
	for i, off := range []int{0, int(hbs)} {
		h, err := ffff.New(data, off, name, capacity, eraseBlockSize, imageLength, generation)
		if err != nil {
			return nil, err
		}
		im.headers[i] = h
	}
	return im, nil
}

// AddElement adds one element to both header copies. The payload is
// written into the shared buffer once a location is known.
func (im *Image) AddElement(typ ffff.ElementType, id, generation, location, length uint32, payload []byte) error {
	for _, h := range im.headers {
		if err := h.AddElement(typ, id, generation, location, length, payload); err != nil {
			return err
		}
	}
	return nil
}

// Finalize lays out and encodes both header copies. The second copy takes
// the first's timestamp so the pair stays byte-identical.
func (im *Image) Finalize() error {
	for _, h := range im.headers {
		if err := h.Finalize(); err != nil {
			return err
		}
	}
	im.headers[1].CopyTimestamp(im.headers[0])
	return nil
}

// Header returns the preferred header copy: the valid copy with the
// highest generation, or nil when neither copy is valid.
func (im *Image) Header() *ffff.Header {
	var best *ffff.Header
	for _, h := range im.headers {
		if h == nil || h.Verdict() != ffff.HeaderValid {
			continue
		}
		if best == nil || h.Generation > best.Generation {
			best = h
		}
	}
	return best
}

// Headers returns both copies in block order. Either may be nil when the
// image was too short to hold it.
func (im *Image) Headers() [2]*ffff.Header {
	return im.headers
}

// Consistent reports whether both header copies are valid and structurally
// identical.
func (im *Image) Consistent() bool {
	a, b := im.headers[0], im.headers[1]
	return a != nil && b != nil &&
		a.Verdict() == ffff.HeaderValid &&
		b.Verdict() == ffff.HeaderValid &&
		a.Equal(b)
}

// Size returns the number of flash bytes the image consumes: the declared
// image length, but never less than the two header blocks.
func (im *Image) Size() int {
	n := 2 * int(im.headerBlockSize)
	if h := im.Header(); h != nil && int(h.FlashImageLength) > n {
		n = int(h.FlashImageLength)
	}
	return n
}

// WriteFile writes the image bytes out to path.
func (im *Image) WriteFile(path string) error {
	n := im.Size()
	if n > len(im.data) {
		n = len(im.data)
	}
	return os.WriteFile(path, im.data[:n], 0o644)
}

// secondHeaderOffset locates the second header copy in raw image data. The
// first copy's erase block size fixes it when that copy is trustworthy;
// otherwise the power-of-two candidate offsets are probed for the sentinel.
func secondHeaderOffset(data []byte, first *ffff.Header) int {
	if first != nil && first.Verdict() == ffff.HeaderValid {
		return int(ffff.HeaderBlockSize(first.EraseBlockSize))
	}
	for off := ffff.HeaderLength * 2; off <= ffff.MaxHeaderBlockSize; off *= 2 {
		if off+ffff.HeaderLength > len(data) {
			break
		}
		if bytes.Equal(data[off:off+ffff.SentinelLength], []byte(ffff.Sentinel)) {
			return off
		}
	}
	// Fall back to the smallest possible header block.
	return ffff.HeaderLength * 2
}

// parseImageData decodes both header copies out of raw image bytes.
func parseImageData(data []byte, mmapped bool) (*Image, error) {
	im := &Image{data: data, mmapped: mmapped}

	h0, err := ffff.Decode(data, 0)
	if err != nil {
		return nil, err
	}
	im.headers[0] = h0

	off := secondHeaderOffset(data, h0)
	im.headerBlockSize = uint32(off)
	if off+ffff.HeaderLength <= len(data) {
		h1, err := ffff.Decode(data, off)
		if err != nil {
			return nil, err
		}
		im.headers[1] = h1
	}
	return im, nil
}
