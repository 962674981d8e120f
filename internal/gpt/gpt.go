// Package gpt encodes a GUID Partition Table primary header, its backup
// mirror, and partition entries, per the UEFI specification subset this
// module needs: one partition describing an EFI System Partition.
package gpt

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/google/uuid"
)

// SectorSize is the logical sector size GPT structures are expressed in
// (512 bytes, independent of the ISO 9660 2048-byte logical block above
// it).
const SectorSize = 512

// HeaderSize is the on-disc size of a GptHeader prior to reserved padding
// out to a full sector.
const HeaderSize = 92

// EntrySize is the fixed size of one partition entry.
const EntrySize = 128

// NumEntries is the number of partition entries in the array (the UEFI
// spec's conventional 128, even though this module only populates one).
const NumEntries = 128

// EFISystemPartitionGUID is the partition type GUID identifying an EFI
// System Partition.
const EFISystemPartitionGUID = "C12A7328-F81F-11D2-BA4B-00A0C93EC93B"

// Partition describes one GPT partition entry.
type Partition struct {
	TypeGUID   string
	UniqueGUID uuid.UUID
	FirstLBA   uint64
	LastLBA    uint64
	Name       string
}

// Header holds the fields of a GPT header not derivable from context (the
// rest — signature, revision, header size — are constants this package
// fills in).
type Header struct {
	CurrentLBA      uint64
	BackupLBA       uint64
	FirstUsableLBA  uint64
	LastUsableLBA   uint64
	DiskGUID        uuid.UUID
	PartitionEntryLBA uint64
}

// EntryArrayBytes renders the partition array (NumEntries * EntrySize
// bytes, unused entries zeroed).
func EntryArrayBytes(partitions []Partition) []byte {
	out := make([]byte, NumEntries*EntrySize)
	for i, p := range partitions {
		if i >= NumEntries {
			break
		}
		copy(out[i*EntrySize:(i+1)*EntrySize], partitionEntryBytes(p))
	}
	return out
}

func partitionEntryBytes(p Partition) []byte {
	b := make([]byte, EntrySize)
	typeGUID, err := uuid.Parse(p.TypeGUID)
	if err == nil {
		copy(b[0:16], guidBytesMixedEndian(typeGUID))
	}
	copy(b[16:32], guidBytesMixedEndian(p.UniqueGUID))
	binary.LittleEndian.PutUint64(b[32:40], p.FirstLBA)
	binary.LittleEndian.PutUint64(b[40:48], p.LastLBA)
	// attributes left zero
	name := utf16leBytes(p.Name, 36)
	copy(b[56:128], name)
	return b
}

// HeaderBytes renders a full sector-sized (SectorSize bytes) GPT header,
// with header_crc32 and (via entryArrayCRC) the partition-array checksum
// both computed and embedded.
func HeaderBytes(h Header, entryArray []byte) []byte {
	b := make([]byte, SectorSize)
	copy(b[0:8], "EFI PART")
	binary.LittleEndian.PutUint32(b[8:12], 0x00010000)
	binary.LittleEndian.PutUint32(b[12:16], HeaderSize)
	// b[16:20] header_crc32, filled below
	binary.LittleEndian.PutUint64(b[24:32], h.CurrentLBA)
	binary.LittleEndian.PutUint64(b[32:40], h.BackupLBA)
	binary.LittleEndian.PutUint64(b[40:48], h.FirstUsableLBA)
	binary.LittleEndian.PutUint64(b[48:56], h.LastUsableLBA)
	copy(b[56:72], guidBytesMixedEndian(h.DiskGUID))
	binary.LittleEndian.PutUint64(b[72:80], h.PartitionEntryLBA)
	binary.LittleEndian.PutUint32(b[80:84], NumEntries)
	binary.LittleEndian.PutUint32(b[84:88], EntrySize)

	arrayCRC := crc32.ChecksumIEEE(entryArray)
	binary.LittleEndian.PutUint32(b[88:92], arrayCRC)

	headerCRC := crc32.ChecksumIEEE(b[0:HeaderSize])
	binary.LittleEndian.PutUint32(b[16:20], headerCRC)
	return b
}

// guidBytesMixedEndian returns a UUID's 16 bytes in the mixed-endian order
// GPT on-disc structures use (RFC 4122 time_low/time_mid/time_hi_and_version
// fields little-endian, the trailing 8 bytes verbatim) — the same
// transform google/uuid's own byte layout needs for GPT, since uuid.UUID
// stores bytes in RFC 4122 (big-endian) order.
func guidBytesMixedEndian(u uuid.UUID) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:4], binary.BigEndian.Uint32(u[0:4]))
	binary.LittleEndian.PutUint16(b[4:6], binary.BigEndian.Uint16(u[4:6]))
	binary.LittleEndian.PutUint16(b[6:8], binary.BigEndian.Uint16(u[6:8]))
	copy(b[8:16], u[8:16])
	return b
}

func utf16leBytes(s string, maxChars int) []byte {
	out := make([]byte, 0, maxChars*2)
	count := 0
	for _, r := range s {
		if count >= maxChars {
			break
		}
		if r > 0xFFFF {
			r = '?'
		}
		u := make([]byte, 2)
		binary.LittleEndian.PutUint16(u, uint16(r))
		out = append(out, u...)
		count++
	}
	for len(out) < maxChars*2 {
		out = append(out, 0, 0)
	}
	return out
}

// NewRandomGUID returns a random v4 UUID, used for disk and partition
// unique GUIDs.
func NewRandomGUID() (uuid.UUID, error) {
	return uuid.NewRandom()
}
