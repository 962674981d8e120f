package eltorito

import "encoding/binary"

// BootInfoTableSize is the fixed size of the patched-in boot information
// table, written at byte offset 8 of a BIOS boot image when the caller asks
// for "-boot-info-table"-style patching.
const BootInfoTableSize = 56

// BootInfoTable computes the 56-byte boot information table for a boot
// image already placed at bootLBA with the given content length. content
// must be the full boot image bytes (with the first 64 bytes, at minimum,
// present so the checksum window can start at offset 64); the caller
// patches the result into content[8:64] itself.
func BootInfoTable(pvdLBA, bootLBA, contentLen uint32, content []byte) []byte {
	b := make([]byte, BootInfoTableSize)
	binary.LittleEndian.PutUint32(b[0:4], pvdLBA)
	binary.LittleEndian.PutUint32(b[4:8], bootLBA)
	binary.LittleEndian.PutUint32(b[8:12], contentLen)

	var checksum uint32
	for offset := 64; offset+4 <= len(content) && uint32(offset) < contentLen; offset += 4 {
		checksum += binary.LittleEndian.Uint32(content[offset : offset+4])
	}
	binary.LittleEndian.PutUint32(b[12:16], checksum)
	return b
}
