package gpt

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryArrayBytesSize(t *testing.T) {
	out := EntryArrayBytes(nil)
	assert.Len(t, out, NumEntries*EntrySize)
}

func TestPartitionEntryBytesLayout(t *testing.T) {
	id, err := uuid.Parse("11111111-2222-3333-4444-555555555555")
	require.NoError(t, err)
	p := Partition{
		TypeGUID:   EFISystemPartitionGUID,
		UniqueGUID: id,
		FirstLBA:   34,
		LastLBA:    2833,
		Name:       "EFI",
	}
	out := EntryArrayBytes([]Partition{p})
	entry := out[0:EntrySize]

	assert.Equal(t, uint64(34), binary.LittleEndian.Uint64(entry[32:40]))
	assert.Equal(t, uint64(2833), binary.LittleEndian.Uint64(entry[40:48]))

	// unused entries remain zeroed
	zeroEntry := out[EntrySize : 2*EntrySize]
	for _, b := range zeroEntry {
		assert.Equal(t, byte(0), b)
	}
}

func TestHeaderBytesSignatureAndCRC(t *testing.T) {
	diskGUID := uuid.New()
	h := Header{
		CurrentLBA:        1,
		BackupLBA:         1000,
		FirstUsableLBA:    34,
		LastUsableLBA:     966,
		DiskGUID:          diskGUID,
		PartitionEntryLBA: 2,
	}
	entryArray := EntryArrayBytes(nil)
	b := HeaderBytes(h, entryArray)
	require.Len(t, b, SectorSize)

	assert.Equal(t, "EFI PART", string(b[0:8]))
	assert.Equal(t, uint32(NumEntries), binary.LittleEndian.Uint32(b[80:84]))
	assert.Equal(t, uint32(EntrySize), binary.LittleEndian.Uint32(b[84:88]))

	wantArrayCRC := crc32.ChecksumIEEE(entryArray)
	assert.Equal(t, wantArrayCRC, binary.LittleEndian.Uint32(b[88:92]))

	// header_crc32 is computed with its own field zeroed, then written back;
	// verify by zeroing it again and recomputing.
	headerCRC := binary.LittleEndian.Uint32(b[16:20])
	check := make([]byte, HeaderSize)
	copy(check, b[0:HeaderSize])
	binary.LittleEndian.PutUint32(check[16:20], 0)
	assert.Equal(t, headerCRC, crc32.ChecksumIEEE(check))
}

func TestGUIDMixedEndianRoundTrip(t *testing.T) {
	id := uuid.New()
	mixed := guidBytesMixedEndian(id)
	assert.Len(t, mixed, 16)
	// trailing 8 bytes are untouched by the mixed-endian swap
	assert.Equal(t, id[8:16], mixed[8:16])
}

func TestNewRandomGUID(t *testing.T) {
	g1, err := NewRandomGUID()
	require.NoError(t, err)
	g2, err := NewRandomGUID()
	require.NoError(t, err)
	assert.NotEqual(t, g1, g2)
}
