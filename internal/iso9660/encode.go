// Package iso9660 implements the byte-level primitives and on-disc
// structures of ISO 9660 Level 1: the encoders, the filesystem tree, the
// directory record and path table layouts, and the volume descriptors.
package iso9660

import (
	"encoding/binary"

	"github.com/ccoveille/go-safecast"
)

// SectorSize is the fixed ISO 9660 logical block size.
const SectorSize = 2048

// PutUint16LE writes v little-endian into b[0:2].
func PutUint16LE(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }

// PutUint16BE writes v big-endian into b[0:2].
func PutUint16BE(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }

// PutUint32LE writes v little-endian into b[0:4].
func PutUint32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// PutUint32BE writes v big-endian into b[0:4].
func PutUint32BE(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

// Uint16Both encodes v as little-endian immediately followed by big-endian,
// the ISO 9660 "both-byte-order" 16-bit form.
func Uint16Both(v uint16) []byte {
	b := make([]byte, 4)
	PutUint16LE(b[0:2], v)
	PutUint16BE(b[2:4], v)
	return b
}

// Uint32Both encodes v as little-endian immediately followed by big-endian,
// the ISO 9660 "both-byte-order" 32-bit form.
func Uint32Both(v uint32) []byte {
	b := make([]byte, 8)
	PutUint32LE(b[0:4], v)
	PutUint32BE(b[4:8], v)
	return b
}

// AString returns s padded with spaces (0x20) to length n. It fails with a
// *FieldError if s is longer than n.
func AString(s string, n int) ([]byte, error) {
	if len(s) > n {
		return nil, &FieldError{Field: "a-string", Reason: "too long"}
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b, nil
}

// DString is like AString but restricts the charset to A-Z, 0-9, and
// underscore, returning a *FieldError if s contains anything else.
func DString(s string, n int) ([]byte, error) {
	if len(s) > n {
		return nil, &FieldError{Field: "d-string", Reason: "too long"}
	}
	for _, c := range s {
		if !isDChar(byte(c)) {
			return nil, &FieldError{Field: "d-string", Reason: "disallowed character"}
		}
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b, nil
}

func isDChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

// PadToSector returns the number of zero bytes needed to bring pos up to the
// next SectorSize boundary (0 if pos is already aligned).
func PadToSector(pos int64) int64 {
	rem := pos % SectorSize
	if rem == 0 {
		return 0
	}
	return SectorSize - rem
}

// SectorsForSize returns ceil(size / SectorSize) as a uint32, going through
// safecast so an implausibly large size surfaces as an error rather than
// silently truncating.
func SectorsForSize(size int64) (uint32, error) {
	sectors := (size + SectorSize - 1) / SectorSize
	v, err := safecast.ToUint32(sectors)
	if err != nil {
		return 0, &FieldError{Field: "sectors", Reason: err.Error()}
	}
	return v, nil
}

// FieldError reports a byte-encoder failure: an out-of-range string (too
// long, wrong charset). Integer widths are compile-time certain and cannot
// fail.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Reason }
