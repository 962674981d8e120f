package iso9660

import "time"

// DirFlagDirectory is bit 1 of the Directory Record file-flags byte.
const DirFlagDirectory = 1 << 1

// DirFlagHidden is bit 0 of the Directory Record file-flags byte.
const DirFlagHidden = 1 << 0

// DirectoryRecord is one entry within a directory extent: the "." entry,
// the ".." entry, or a child file/subdirectory.
type DirectoryRecord struct {
	ExtentLBA uint32
	DataLen   uint32
	Flags     byte
	Identifier string // already includes the ";1" suffix for files; "\x00" for self, "\x01" for parent
	RecordTime time.Time
}

// ToBytes renders the record, zero-padding to an even length as required.
func (r *DirectoryRecord) ToBytes() []byte {
	idBytes := []byte(r.Identifier)
	idLen := len(idBytes)

	// 33 fixed bytes up to and including the identifier-length field, plus
	// the identifier itself, plus one pad byte if that total is odd.
	total := 33 + idLen
	if total%2 != 0 {
		total++
	}

	b := make([]byte, total)
	b[0] = byte(total)
	b[1] = 0 // extended attribute length
	copy(b[2:10], Uint32Both(r.ExtentLBA))
	copy(b[10:18], Uint32Both(r.DataLen))
	copy(b[18:25], timeToBytes(r.RecordTime))
	b[25] = r.Flags
	b[26] = 0 // file unit size
	b[27] = 0 // interleave gap
	copy(b[28:32], Uint16Both(1))
	b[32] = byte(idLen)
	copy(b[33:33+idLen], idBytes)
	// any trailing pad byte is already zero from make()
	return b
}

// timeToBytes renders the 7-byte ISO 9660 recording date-time: year-1900,
// month, day, hour, minute, second, GMT offset in 15-minute units.
func timeToBytes(t time.Time) []byte {
	b := make([]byte, 7)
	if t.IsZero() {
		return b
	}
	u := t.UTC()
	b[0] = byte(u.Year() - 1900)
	b[1] = byte(u.Month())
	b[2] = byte(u.Day())
	b[3] = byte(u.Hour())
	b[4] = byte(u.Minute())
	b[5] = byte(u.Second())
	b[6] = 0
	return b
}

// SelfRecord returns the "." record for a directory with the given LBA and
// extent length.
func SelfRecord(lba, dataLen uint32, t time.Time) *DirectoryRecord {
	return &DirectoryRecord{ExtentLBA: lba, DataLen: dataLen, Flags: DirFlagDirectory, Identifier: "\x00", RecordTime: t}
}

// ParentRecord returns the ".." record pointing at the parent directory's
// LBA and extent length.
func ParentRecord(parentLBA, parentDataLen uint32, t time.Time) *DirectoryRecord {
	return &DirectoryRecord{ExtentLBA: parentLBA, DataLen: parentDataLen, Flags: DirFlagDirectory, Identifier: "\x01", RecordTime: t}
}
