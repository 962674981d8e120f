package iso9660

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPathTableRootFirst(t *testing.T) {
	tree := NewEmpty()
	require.NoError(t, tree.AddFile("boot/bootx64.efi", nil, 0))
	tree.Root.LBA = 22
	tree.Lookup("boot").LBA = 23

	entries := BuildPathTable(tree.Root, tree.Root.LBA)
	require.Len(t, entries, 2)
	assert.Equal(t, "\x00", entries[0].Identifier)
	assert.Equal(t, uint16(1), entries[0].ParentIndex)
	assert.Equal(t, "BOOT", entries[1].Identifier)
	assert.Equal(t, uint16(1), entries[1].ParentIndex)
}

func TestPathTableBytesRoundTripLengths(t *testing.T) {
	entries := []PathTableEntry{{Identifier: "\x00", LBA: 22, ParentIndex: 1}}
	l := ToLBytes(entries)
	m := ToMBytes(entries)
	assert.Equal(t, len(l), len(m))
	assert.Equal(t, 10, len(l)) // 8 fixed bytes + 1 name byte + 1 pad byte (odd name length)
}
