package romimage

import (
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/samcharles93/ffff/pkg/ffff"
)

// Open maps a flash image read-only and decodes both header copies.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned image must be closed to release any mapping.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 < ffff.HeaderLength {
		return nil, ffff.ErrShortBuffer
	}
	if size64 > int64(int(^uint(0)>>1)) {
		// cannot index this file safely as []byte on this architecture.
		return nil, ffff.ErrShortBuffer
	}
	size := int(size64)

	data, err := unix.Mmap(
		int(f.Fd()),
		0,
		size,
		unix.PROT_READ,
		unix.MAP_SHARED,
	)
	if err == nil {
		im, parseErr := parseImageData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return im, nil
	}

	// Fallback path that does not require mmap support.
	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseImageData(data, false)
}

// OpenReaderAt loads an image from a random-access reader without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*Image, error) {
	if size < ffff.HeaderLength || size > int64(int(^uint(0)>>1)) {
		return nil, ffff.ErrShortBuffer
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return parseImageData(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Close releases the image buffer and any mmap backing.
func (im *Image) Close() error {
	if im == nil || im.data == nil {
		return nil
	}
	var err error
	if im.mmapped {
		err = unix.Munmap(im.data)
	}
	im.data = nil
	im.headers = [2]*ffff.Header{}
	im.mmapped = false
	return err
}
