// Package mbr encodes the 512-byte protective Master Boot Record written
// at offset 0 of a hybrid image, per the UEFI specification's "protective
// MBR" convention.
package mbr

import "encoding/binary"

// ProtectiveType is the MBR partition type byte (0xEE) marking a GPT
// protective partition.
const ProtectiveType = 0xEE

// Bytes renders a 512-byte protective MBR with a single non-bootable
// partition of type 0xEE spanning [startLBA, endLBA].
func Bytes(startLBA, endLBA uint32) []byte {
	b := make([]byte, 512)
	// partition entry 0 begins at byte 446
	entry := b[446:462]
	entry[0] = 0x00 // non-bootable
	entry[4] = ProtectiveType
	binary.LittleEndian.PutUint32(entry[8:12], startLBA)
	binary.LittleEndian.PutUint32(entry[12:16], endLBA-startLBA+1)
	b[510] = 0x55
	b[511] = 0xAA
	return b
}
