// Package ffff implements the Flash Format for Firmware (FFFF) header format.
//
// An FFFF header is a fixed 512-byte structure describing the geometry of a
// flash device and a table of elements, each pointing at a firmware blob
// stored elsewhere on the flash. It describes layout only and never
// interprets the blobs it points at. A complete flash image carries two
// redundant header copies, one in each of the first two header blocks; this
// package validates one header at a time and exposes the equality check the
// caller needs to reconcile the pair.
package ffff

// FFFF global constants must never change.
const (
	// Sentinel is the magic value carried at both ends of every header.
	Sentinel = "FlashFormatForFW"

	SentinelLength       = 16
	TimestampLength      = 16
	FlashImageNameLength = 48

	// HeaderLength is the total size of one encoded header.
	HeaderLength = 512

	// MaxElements is the capacity of the element table.
	MaxElements = 19

	PaddingLength = 16

	// MaxHeaderBlockSize caps the region reserved for one header copy.
	MaxHeaderBlockSize = 64 * 1024

	// TimestampFormat is the on-flash timestamp layout (UTC).
	TimestampFormat = "20060102 150405"
)

// Header field offsets, relative to the start of the header.
const (
	offSentinel         = 0x0000
	offTimestamp        = 0x0010
	offFlashImageName   = 0x0020
	offFlashCapacity    = 0x0050
	offEraseBlockSize   = 0x0054
	offHeaderSize       = 0x0058
	offFlashImageLength = 0x005c
	offGeneration       = 0x0060
	offElementTable     = 0x0064
	offPadding          = 0x01e0
	offTailSentinel     = 0x01f0
)

type ElementType uint32

const (
	// ElementTypeEnd marks the end of the element table; slots at and
	// after it are unused.
	ElementTypeEnd            ElementType = 0x00
	ElementTypeStage2Firmware ElementType = 0x01
	ElementTypeStage3Firmware ElementType = 0x02
	ElementTypeIMSCertificate ElementType = 0x03
	ElementTypeCMSCertificate ElementType = 0x04
	ElementTypeData           ElementType = 0x05
)

func (t ElementType) String() string {
	switch t {
	case ElementTypeEnd:
		return "end of elements"
	case ElementTypeStage2Firmware:
		return "stage 2 firmware"
	case ElementTypeStage3Firmware:
		return "stage 3 firmware"
	case ElementTypeIMSCertificate:
		return "IMS certificate"
	case ElementTypeCMSCertificate:
		return "CMS certificate"
	case ElementTypeData:
		return "data"
	default:
		return "?"
	}
}

// Verdict is the tri-state classification of a header region.
type Verdict int

const (
	// HeaderValid means the header passed every structural check.
	HeaderValid Verdict = iota
	// HeaderErased means the region is uniform 0x00 or 0xff fill; no
	// header has been written there.
	HeaderErased
	// HeaderInvalid means the header is present but malformed.
	HeaderInvalid
)

func (v Verdict) String() string {
	switch v {
	case HeaderValid:
		return "valid"
	case HeaderErased:
		return "erased"
	case HeaderInvalid:
		return "invalid"
	default:
		return "?"
	}
}

// HeaderCollision is the pseudo-index recorded in a collision list when an
// element overlaps the two reserved header blocks rather than another
// element.
const HeaderCollision = -1

// HeaderBlockSize returns the size of the region reserved for one header
// copy: the smallest power-of-two multiple of the erase block size strictly
// greater than the header length, capped at MaxHeaderBlockSize.
func HeaderBlockSize(eraseBlockSize uint32) uint32 {
	if eraseBlockSize == 0 {
		return 0
	}
	size := eraseBlockSize
	for size <= HeaderLength {
		size *= 2
	}
	if size > MaxHeaderBlockSize {
		return MaxHeaderBlockSize
	}
	return size
}
