// Package layout implements the Layout Planner: given a filesystem tree, a
// boot configuration, and a hybrid flag, it allocates logical block
// addresses for every on-disc structure and returns a Plan the Image
// Writer consumes.
package layout

import (
	"time"

	"github.com/fullerene-img/fullerene/internal/iso9660"
)

const (
	sectorSize = iso9660.SectorSize

	// Fixed LBA assignments from the system area onward, independent of
	// tree contents.
	LBASystemAreaStart  = 0
	LBAPVD              = 16
	LBABootRecord       = 17
	LBATerminator       = 18
	LBABootCatalog      = 19
	LBAPathTableL       = 20
	LBAPathTableM       = 21
	LBAFirstFreeNonHybrid = 22

	// ESPStartLBA is the fixed LBA at which the ESP extent begins in
	// hybrid images.
	ESPStartLBA = 34

	// GPTBackupBlocks is the number of trailing logical blocks reserved
	// for the GPT backup header and partition array.
	GPTBackupBlocks = 33

	// minESPSectors512 is the minimum legacy-FAT ESP size, in 512-byte
	// sectors.
	minESPSectors512 = 69
)

// BootTarget describes one boot entry's placement: where its content
// lives (LBA, already-assigned) and how large it is.
type BootTarget struct {
	LBA          uint32
	SectorCount512 uint16
}

// BootConfig mirrors the builder-facing boot configuration: which
// platforms are configured and where their content landed in the tree.
type BootConfig struct {
	HasBIOS bool
	BIOS    BootTarget

	HasUEFI bool
	UEFI    BootTarget
}

// Any reports whether any boot platform is configured.
func (c BootConfig) Any() bool { return c.HasBIOS || c.HasUEFI }

// ESPPlan describes the embedded FAT32 ESP's placement, present only for
// hybrid images with UEFI boot configured.
type ESPPlan struct {
	LBA         uint32
	SizeBytes   int64
	Sectors512  uint16 // native FAT builder length in 512-byte sectors
	ExtentBlocks uint32 // logical blocks occupied in the ISO layout (padded)
}

// Plan is the immutable result of layout: every artifact's (LBA, length).
type Plan struct {
	Hybrid bool
	Now    time.Time

	TotalSectors uint32

	BootCatalogLBA uint32
	LPathTableLBA  uint32
	MPathTableLBA  uint32
	PathTableSize  uint32

	RootLBA      uint32
	RootSize     uint32
	Directories  []*iso9660.Node // depth-first pre-order, root first
	Files        []*iso9660.Node // depth-first order, after all directories

	ESP *ESPPlan
	Boot BootConfig
}

// Compute computes LBA assignments for tree given bootCfg and hybrid. esp,
// if non-nil, carries the already-built ESP's byte length and native
// sector count (the FAT32 ESP Builder runs before the planner finalizes
// file LBAs, since the boot catalog's UEFI entry needs the ESP's extent
// LBA, which is fixed at ESPStartLBA regardless of tree contents).
func Compute(tree *iso9660.Tree, bootCfg BootConfig, hybrid bool, esp *ESPPlan, now time.Time) (*PlanResult, error) {
	root := tree.Root

	PrepareTree(tree)

	lba := uint32(LBAFirstFreeNonHybrid)
	if hybrid {
		lba = ESPStartLBA
		if esp != nil {
			if esp.LBA == 0 {
				esp.LBA = ESPStartLBA
			}
			blocks, err := iso9660.SectorsForSize(esp.SizeBytes)
			if err != nil {
				return nil, err
			}
			if blocks == 0 {
				blocks = 1
			}
			esp.ExtentBlocks = blocks
			lba = esp.LBA + blocks
		}
	}

	dirOrder := assignDirLBAs(root, &lba)
	fileOrder := assignFileLBAs(root, &lba)

	pathEntries := iso9660.BuildPathTable(root, root.LBA)
	lBytes := iso9660.ToLBytes(pathEntries)
	mBytes := iso9660.ToMBytes(pathEntries)
	pathTableSize := len(lBytes)
	if pathTableSize > sectorSize || len(mBytes) > sectorSize {
		return nil, &LayoutError{Reason: "path table exceeds one logical block"}
	}

	total := lba
	if hybrid {
		total += GPTBackupBlocks
	}

	p := &Plan{
		Hybrid:         hybrid,
		Now:            now,
		TotalSectors:   total,
		BootCatalogLBA: LBABootCatalog,
		LPathTableLBA:  LBAPathTableL,
		MPathTableLBA:  LBAPathTableM,
		PathTableSize:  uint32(pathTableSize),
		RootLBA:        root.LBA,
		RootSize:       root.Dir.ExtentSize,
		Directories:    dirOrder,
		Files:          fileOrder,
		ESP:            esp,
		Boot:           bootCfg,
	}
	return &PlanResult{Plan: p, LEntries: pathEntries}, nil
}

// PlanResult bundles the Plan with the path-table entries the writer needs
// (kept separate from Plan so Plan stays a plain data value).
type PlanResult struct {
	Plan     *Plan
	LEntries []iso9660.PathTableEntry
}

// ValidateESPSize checks the ESP minimum before any bytes are written.
func ValidateESPSize(sectors512 uint16) error {
	if sectors512 < minESPSectors512 {
		return &LayoutError{Reason: "ESP size below 69 512-byte-sector minimum"}
	}
	return nil
}

// PrepareTree computes every directory's extent size ahead of LBA
// assignment. Compute calls this itself; it is also exported so a caller
// composing a build pipeline (the builder facade) can run it concurrently
// with unrelated work such as FAT32 ESP construction, since extent size
// depends only on child identifiers and count, never on LBA values.
func PrepareTree(tree *iso9660.Tree) {
	computeDirExtentSizes(tree.Root)
}

func computeDirExtentSizes(node *iso9660.Node) {
	if node.Dir == nil {
		return
	}
	children := iso9660.SortedChildren(node.Dir)
	for _, c := range children {
		computeDirExtentSizes(c)
	}
	records := make([][]byte, 0, len(children)+2)
	records = append(records, iso9660.SelfRecord(0, 0, time.Time{}).ToBytes())
	records = append(records, iso9660.ParentRecord(0, 0, time.Time{}).ToBytes())
	for _, c := range children {
		ident := c.Name
		if c.File != nil {
			ident = iso9660.FileIdentifier(c.Name)
		}
		flags := byte(0)
		if c.Dir != nil {
			flags = iso9660.DirFlagDirectory
		}
		rec := &iso9660ExtentStub{ident: ident, flags: flags}
		records = append(records, rec.toBytes())
	}
	node.Dir.ExtentSize = packedSize(records)
}

// iso9660ExtentStub renders a placeholder directory record (zero LBA/size)
// purely to measure its length; real rendering happens once LBAs are
// final, in the writer package.
type iso9660ExtentStub struct {
	ident string
	flags byte
}

func (s *iso9660ExtentStub) toBytes() []byte {
	r := &iso9660.DirectoryRecord{Identifier: s.ident, Flags: s.flags}
	return r.ToBytes()
}

// packedSize sums record lengths into sectorSize-aligned extents, honoring
// the "no record crosses a sector boundary" rule, and returns the total
// extent size rounded up to a full sector.
func packedSize(records [][]byte) uint32 {
	var pos int64
	for _, r := range records {
		rl := int64(len(r))
		here := pos % sectorSize
		if here+rl > sectorSize {
			pos += sectorSize - here
		}
		pos += rl
	}
	return uint32(pos + iso9660.PadToSector(pos))
}

func assignDirLBAs(root *iso9660.Node, lba *uint32) []*iso9660.Node {
	var order []*iso9660.Node
	var visit func(n *iso9660.Node)
	visit = func(n *iso9660.Node) {
		n.LBA = *lba
		order = append(order, n)
		blocks := n.Dir.ExtentSize / sectorSize
		if blocks == 0 {
			blocks = 1
		}
		*lba += blocks
		for _, c := range iso9660.SortedChildren(n.Dir) {
			if c.Dir != nil {
				visit(c)
			}
		}
	}
	visit(root)
	return order
}

func assignFileLBAs(root *iso9660.Node, lba *uint32) []*iso9660.Node {
	var order []*iso9660.Node
	var visit func(n *iso9660.Node)
	visit = func(n *iso9660.Node) {
		for _, c := range iso9660.SortedChildren(n.Dir) {
			if c.File != nil {
				c.LBA = *lba
				order = append(order, c)
				blocks, _ := iso9660.SectorsForSize(c.File.Size)
				if blocks == 0 {
					blocks = 1
				}
				*lba += blocks
			} else if c.Dir != nil {
				visit(c)
			}
		}
	}
	visit(root)
	return order
}

// LayoutError reports a layout-time validation failure (surfaced by
// callers as InvalidInput).
type LayoutError struct{ Reason string }

func (e *LayoutError) Error() string { return e.Reason }
