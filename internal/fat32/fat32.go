// Package fat32 formats a small FAT32 volume for the EFI System Partition:
// a boot sector, FSInfo sector, two FAT copies, and a root directory
// containing EFI/BOOT/BOOTX64.EFI and EFI/BOOT/KERNEL.EFI.
package fat32

import (
	"encoding/binary"
	"io"

	"github.com/ccoveille/go-safecast"
)

const (
	BytesPerSector    = 512
	SectorsPerCluster = 8
	ReservedSectors   = 32
	NumFATs           = 2
	ClusterBytes      = BytesPerSector * SectorsPerCluster

	// ImageSize is the scratch sink's fixed size: at least 33 MiB and at
	// least 69 sectors of 512 bytes, per the FAT32 ESP Builder procedure.
	ImageSize = 33 * 1024 * 1024

	rootCluster = 2
	fatEOC      = 0x0FFFFFFF
)

// Input names a file to place under EFI/BOOT in the ESP.
type Input struct {
	ShortName string // already an exact 8.3 name, e.g. "BOOTX64.EFI"
	Source    io.ReaderAt
	Size      int64
}

// Result reports the built image and its size, both in bytes and in
// 512-byte sectors (the unit the El Torito boot catalog records). Sectors
// is capped at 0xFFFF, the largest count the catalog's 16-bit field holds.
type Result struct {
	Image   []byte
	Length  int64
	Sectors uint16
}

// Build formats a fresh FAT32 volume containing EFI/BOOT/<files...> and
// returns the finished image bytes.
func Build(files []Input) (*Result, error) {
	totalSectors := uint32(ImageSize / BytesPerSector)
	sectorsPerFAT := computeSectorsPerFAT(totalSectors)

	b := &fsBuilder{
		image:         make([]byte, ImageSize),
		sectorsPerFAT: sectorsPerFAT,
		alloc:         newClusterAllocator(totalSectors, sectorsPerFAT),
	}

	if err := b.layout(files); err != nil {
		return nil, err
	}

	b.writeBootSector(totalSectors)
	b.writeFSInfo()
	b.writeFATs()
	b.writeDirectories()
	if err := b.writeFileContent(files); err != nil {
		return nil, err
	}

	length, err := safecast.ToInt64(len(b.image))
	if err != nil {
		return nil, err
	}
	sectors := uint16(0xFFFF)
	if length/BytesPerSector < 0xFFFF {
		sectors = uint16(length / BytesPerSector)
	}
	return &Result{Image: b.image, Length: length, Sectors: sectors}, nil
}

// computeSectorsPerFAT solves the standard FAT32 sizing formula: FAT size
// depends on cluster count, which depends on how many sectors are left
// over after reserving space for the FATs themselves.
func computeSectorsPerFAT(totalSectors uint32) uint32 {
	sectorsPerFAT := uint32(1)
	for i := 0; i < 8; i++ {
		usable := totalSectors - ReservedSectors - NumFATs*sectorsPerFAT
		clusters := usable / SectorsPerCluster
		next := (clusters*4 + BytesPerSector - 1) / BytesPerSector
		if next == sectorsPerFAT {
			break
		}
		sectorsPerFAT = next
	}
	return sectorsPerFAT
}

type clusterAllocator struct {
	next  uint32
	chain map[uint32]uint32 // cluster -> next cluster (fatEOC for chain end)
	total uint32
}

func newClusterAllocator(totalSectors, sectorsPerFAT uint32) *clusterAllocator {
	dataSectors := totalSectors - ReservedSectors - NumFATs*sectorsPerFAT
	return &clusterAllocator{
		next:  rootCluster,
		chain: make(map[uint32]uint32),
		total: dataSectors / SectorsPerCluster,
	}
}

// allocate reserves n contiguous clusters (at least 1) and returns the
// first cluster of the chain.
func (a *clusterAllocator) allocate(n int) uint32 {
	if n < 1 {
		n = 1
	}
	first := a.next
	cur := first
	for i := 0; i < n-1; i++ {
		nxt := cur + 1
		a.chain[cur] = nxt
		cur = nxt
	}
	a.chain[cur] = fatEOC
	a.next = cur + 1
	return first
}

func clustersFor(size int64) int {
	if size == 0 {
		return 1
	}
	return int((size + ClusterBytes - 1) / ClusterBytes)
}

// dirEntry is one 8.3 directory entry, either a subdirectory (with its own
// entries to recurse into) or a file (with content to copy in later).
type dirEntry struct {
	name    string // exact 8.3, e.g. "BOOTX64.EFI" or "BOOT"
	isDir   bool
	cluster uint32
	size    uint32
	entries []dirEntry // populated for directories
	fileIdx int        // index into the Build caller's files slice, for files
}

// fsBuilder holds everything Build's helper passes need: the output image,
// the cluster allocator, and the directory tree once laid out.
type fsBuilder struct {
	image         []byte
	sectorsPerFAT uint32
	alloc         *clusterAllocator
	root          []dirEntry
}

// layout allocates clusters for the root directory, EFI/, EFI/BOOT/, and
// each file, without writing any bytes yet.
func (b *fsBuilder) layout(files []Input) error {
	b.alloc.allocate(1) // rootCluster, holding the root directory table

	bootEntries := make([]dirEntry, 0, len(files))
	for i, f := range files {
		n := clustersFor(f.Size)
		cl := b.alloc.allocate(n)
		sz, err := safecast.ToUint32(f.Size)
		if err != nil {
			return err
		}
		bootEntries = append(bootEntries, dirEntry{name: f.ShortName, cluster: cl, size: sz, fileIdx: i})
	}

	bootCluster := b.alloc.allocate(1)
	efiCluster := b.alloc.allocate(1)

	efiEntries := []dirEntry{{name: "BOOT", isDir: true, cluster: bootCluster, entries: bootEntries}}
	b.root = []dirEntry{{name: "EFI", isDir: true, cluster: efiCluster, entries: efiEntries}}
	return nil
}

func (b *fsBuilder) writeBootSector(totalSectors uint32) {
	sec := b.image[0:512]
	sec[0], sec[1], sec[2] = 0xEB, 0x58, 0x90 // jmp short + nop
	copy(sec[3:11], "MSWIN4.1")
	binary.LittleEndian.PutUint16(sec[11:13], BytesPerSector)
	sec[13] = SectorsPerCluster
	binary.LittleEndian.PutUint16(sec[14:16], ReservedSectors)
	sec[16] = NumFATs
	binary.LittleEndian.PutUint16(sec[17:19], 0) // root entries: 0 for FAT32
	binary.LittleEndian.PutUint16(sec[19:21], 0) // total sectors 16: 0, use 32
	sec[21] = 0xF8                               // media descriptor
	binary.LittleEndian.PutUint16(sec[22:24], 0) // sectors per FAT16: 0
	binary.LittleEndian.PutUint16(sec[24:26], 0) // sectors per track
	binary.LittleEndian.PutUint16(sec[26:28], 0) // number of heads
	binary.LittleEndian.PutUint32(sec[28:32], 0) // hidden sectors
	binary.LittleEndian.PutUint32(sec[32:36], totalSectors)
	binary.LittleEndian.PutUint32(sec[36:40], b.sectorsPerFAT)
	binary.LittleEndian.PutUint16(sec[40:42], 0) // ext flags
	binary.LittleEndian.PutUint16(sec[42:44], 0) // fs version
	binary.LittleEndian.PutUint32(sec[44:48], rootCluster)
	binary.LittleEndian.PutUint16(sec[48:50], 1) // FSInfo sector
	binary.LittleEndian.PutUint16(sec[50:52], 6) // backup boot sector
	sec[64] = 0x80                               // drive number
	sec[66] = 0x29                               // boot signature
	binary.LittleEndian.PutUint32(sec[67:71], 0xFADEC0DE)
	copy(sec[71:82], padRight("ESP", 11))
	copy(sec[82:90], "FAT32   ")
	sec[510], sec[511] = 0x55, 0xAA

	// the backup boot sector lives at LBA 6, mirroring the primary
	copy(b.image[6*BytesPerSector:7*BytesPerSector], sec)
}

func (b *fsBuilder) writeFSInfo() {
	sec := b.image[1*BytesPerSector : 2*BytesPerSector]
	binary.LittleEndian.PutUint32(sec[0:4], 0x41615252)
	binary.LittleEndian.PutUint32(sec[484:488], 0x61417272)
	used := b.alloc.next - rootCluster
	binary.LittleEndian.PutUint32(sec[488:492], b.alloc.total-used)
	binary.LittleEndian.PutUint32(sec[492:496], b.alloc.next)
	binary.LittleEndian.PutUint16(sec[510:512], 0xAA55)
}

func (b *fsBuilder) writeFATs() {
	fatBytes := b.sectorsPerFAT * BytesPerSector
	fat := make([]byte, fatBytes)
	binary.LittleEndian.PutUint32(fat[0:4], 0x0FFFFFF8)
	binary.LittleEndian.PutUint32(fat[4:8], fatEOC)

	for cluster, next := range b.alloc.chain {
		off := cluster * 4
		if off+4 > uint32(len(fat)) {
			continue
		}
		binary.LittleEndian.PutUint32(fat[off:off+4], next&0x0FFFFFFF)
	}

	fat1Start := uint32(ReservedSectors * BytesPerSector)
	fat2Start := fat1Start + fatBytes
	copy(b.image[fat1Start:fat1Start+fatBytes], fat)
	copy(b.image[fat2Start:fat2Start+fatBytes], fat)
}

func (b *fsBuilder) clusterOffset(cluster uint32) uint32 {
	dataStart := (ReservedSectors + NumFATs*b.sectorsPerFAT) * BytesPerSector
	return dataStart + (cluster-rootCluster)*ClusterBytes
}

// writeDirectories writes the root directory's own table at rootCluster,
// then every subdirectory's table at its own cluster, recursing down.
func (b *fsBuilder) writeDirectories() {
	b.writeDirTable(rootCluster, b.root)
	b.writeSubdirs(b.root)
}

// writeDirTable writes entries into the directory table living at cluster.
func (b *fsBuilder) writeDirTable(cluster uint32, entries []dirEntry) {
	off := b.clusterOffset(cluster)
	buf := b.image[off : off+ClusterBytes]
	pos := 0
	for _, e := range entries {
		copy(buf[pos:pos+32], dirEntryBytes(e))
		pos += 32
	}
}

// writeSubdirs recurses: for every directory entry in entries, write its
// own table (at its own cluster) and recurse into its children.
func (b *fsBuilder) writeSubdirs(entries []dirEntry) {
	for _, e := range entries {
		if !e.isDir {
			continue
		}
		b.writeDirTable(e.cluster, e.entries)
		b.writeSubdirs(e.entries)
	}
}

func (b *fsBuilder) writeFileContent(files []Input) error {
	for _, e := range b.root[0].entries[0].entries { // EFI/BOOT/<files>
		f := files[e.fileIdx]
		off := int64(b.clusterOffset(e.cluster))
		if f.Size == 0 {
			continue
		}
		buf := make([]byte, f.Size)
		if _, err := io.ReadFull(io.NewSectionReader(f.Source, 0, f.Size), buf); err != nil {
			return err
		}
		copy(b.image[off:off+f.Size], buf)
	}
	return nil
}

func dirEntryBytes(e dirEntry) []byte {
	b := make([]byte, 32)
	name, ext := split83(e.name)
	copy(b[0:8], padRight(name, 8))
	copy(b[8:11], padRight(ext, 3))
	if e.isDir {
		b[11] = 0x10
	} else {
		b[11] = 0x20
	}
	binary.LittleEndian.PutUint16(b[20:22], uint16(e.cluster>>16))
	binary.LittleEndian.PutUint16(b[26:28], uint16(e.cluster&0xFFFF))
	binary.LittleEndian.PutUint32(b[28:32], e.size)
	return b
}

func split83(name string) (string, string) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}

func padRight(s string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return string(b)
}
