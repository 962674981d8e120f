package fat32

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSectorsPerFATConverges(t *testing.T) {
	totalSectors := uint32(ImageSize / BytesPerSector)
	n := computeSectorsPerFAT(totalSectors)
	assert.Greater(t, n, uint32(0))

	usable := totalSectors - ReservedSectors - NumFATs*n
	clusters := usable / SectorsPerCluster
	needed := (clusters*4 + BytesPerSector - 1) / BytesPerSector
	assert.Equal(t, needed, n)
}

func TestClusterAllocatorChains(t *testing.T) {
	alloc := newClusterAllocator(100000, 100)
	first := alloc.allocate(3)
	assert.Equal(t, uint32(rootCluster), first)
	assert.Equal(t, first+1, alloc.chain[first])
	assert.Equal(t, first+2, alloc.chain[first+1])
	assert.Equal(t, uint32(fatEOC), alloc.chain[first+2])
	assert.Equal(t, first+3, alloc.next)
}

func TestClustersFor(t *testing.T) {
	assert.Equal(t, 1, clustersFor(0))
	assert.Equal(t, 1, clustersFor(1))
	assert.Equal(t, 1, clustersFor(ClusterBytes))
	assert.Equal(t, 2, clustersFor(ClusterBytes+1))
}

func TestBuildProducesValidBootSector(t *testing.T) {
	content := []byte("hello efi")
	files := []Input{
		{ShortName: "BOOTX64.EFI", Source: bytes.NewReader(content), Size: int64(len(content))},
	}
	res, err := Build(files)
	require.NoError(t, err)
	require.Equal(t, int64(ImageSize), res.Length)

	sec := res.Image[0:512]
	assert.Equal(t, "MSWIN4.1", string(sec[3:11]))
	assert.Equal(t, uint16(BytesPerSector), binary.LittleEndian.Uint16(sec[11:13]))
	assert.Equal(t, byte(SectorsPerCluster), sec[13])
	assert.Equal(t, byte(0x55), sec[510])
	assert.Equal(t, byte(0xAA), sec[511])

	fsInfo := res.Image[BytesPerSector : 2*BytesPerSector]
	assert.Equal(t, uint32(0x41615252), binary.LittleEndian.Uint32(fsInfo[0:4]))
	assert.Equal(t, uint32(0x61417272), binary.LittleEndian.Uint32(fsInfo[484:488]))
}

func TestBuildWritesFileContentAtClusterOffset(t *testing.T) {
	content := []byte("kernel-bytes-here")
	files := []Input{
		{ShortName: "KERNEL.EFI", Source: bytes.NewReader(content), Size: int64(len(content))},
	}
	res, err := Build(files)
	require.NoError(t, err)

	idx := bytes.Index(res.Image, content)
	assert.Greater(t, idx, 0)
}

func TestDirEntryBytesNameAndCluster(t *testing.T) {
	e := dirEntry{name: "BOOTX64.EFI", cluster: 0x00010002, size: 4096}
	b := dirEntryBytes(e)
	require.Len(t, b, 32)
	assert.Equal(t, "BOOTX64 ", string(b[0:8]))
	assert.Equal(t, "EFI", string(b[8:11]))
	assert.Equal(t, byte(0x20), b[11])
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[20:22]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(b[26:28]))
	assert.Equal(t, uint32(4096), binary.LittleEndian.Uint32(b[28:32]))
}

func TestSplit83(t *testing.T) {
	name, ext := split83("BOOTX64.EFI")
	assert.Equal(t, "BOOTX64", name)
	assert.Equal(t, "EFI", ext)

	name, ext = split83("BOOT")
	assert.Equal(t, "BOOT", name)
	assert.Equal(t, "", ext)
}
