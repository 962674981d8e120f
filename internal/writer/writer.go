// Package writer implements the Image Writer: given a Plan and a
// positioned output sink, it materializes every on-disc structure the
// planner allocated.
package writer

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/fullerene-img/fullerene/internal/eltorito"
	"github.com/fullerene-img/fullerene/internal/gpt"
	"github.com/fullerene-img/fullerene/internal/iso9660"
	"github.com/fullerene-img/fullerene/internal/layout"
	"github.com/fullerene-img/fullerene/internal/mbr"
)

// GPTInfo carries the hybrid-only GUID Partition Table placement details
// the builder facade computed (disk and ESP partition GUIDs are random per
// build, so the writer takes them rather than generating its own).
type GPTInfo struct {
	DiskGUID         uuid.UUID
	ESPPartitionGUID uuid.UUID
	ESPFirstLBA512   uint64
	ESPLastLBA512    uint64
}

// Input bundles everything Write needs beyond the Plan itself.
type Input struct {
	Plan     *layout.Plan
	PathL    []iso9660.PathTableEntry
	Catalog  *eltorito.Catalog // nil if no boot configured
	ESPImage []byte            // nil unless Plan.ESP != nil
	GPT      *GPTInfo          // nil unless Plan.Hybrid
}

// Write materializes in.Plan's structures into sink.
func Write(sink io.WriterAt, in *Input) error {
	p := in.Plan

	if err := writeSystemArea(sink, p, in.GPT); err != nil {
		return err
	}
	if err := writePVD(sink, p); err != nil {
		return err
	}
	if p.Boot.Any() {
		rec := &iso9660.BootRecordVolumeDescriptor{BootCatalogLBA: p.BootCatalogLBA}
		if err := writeAt(sink, int64(layout.LBABootRecord)*iso9660.SectorSize, rec.ToBytes()); err != nil {
			return err
		}
	}
	if err := writeAt(sink, int64(layout.LBATerminator)*iso9660.SectorSize, iso9660.TerminatorVolumeDescriptor()); err != nil {
		return err
	}
	if in.Catalog != nil {
		if err := writeAt(sink, int64(p.BootCatalogLBA)*iso9660.SectorSize, in.Catalog.ToBytes()); err != nil {
			return err
		}
	}

	if err := writeAt(sink, int64(p.LPathTableLBA)*iso9660.SectorSize, iso9660.ToLBytes(in.PathL)); err != nil {
		return err
	}
	if err := writeAt(sink, int64(p.MPathTableLBA)*iso9660.SectorSize, iso9660.ToMBytes(in.PathL)); err != nil {
		return err
	}

	if err := writeDirectories(sink, p); err != nil {
		return err
	}
	if err := writeFiles(sink, p); err != nil {
		return err
	}

	if p.ESP != nil && in.ESPImage != nil {
		if err := writeAt(sink, int64(p.ESP.LBA)*iso9660.SectorSize, in.ESPImage); err != nil {
			return err
		}
	}

	if p.Hybrid && in.GPT != nil {
		if err := writeGPTBackup(sink, p, in.GPT); err != nil {
			return err
		}
	}

	return nil
}

func writeAt(sink io.WriterAt, off int64, b []byte) error {
	_, err := sink.WriteAt(b, off)
	return err
}

func writeSystemArea(sink io.WriterAt, p *layout.Plan, g *GPTInfo) error {
	if !p.Hybrid {
		return nil
	}
	lastLBA512 := uint64(p.TotalSectors)*4 - 1
	if err := writeAt(sink, 0, mbr.Bytes(1, uint32(lastLBA512))); err != nil {
		return err
	}

	var partitions []gpt.Partition
	var diskGUID uuid.UUID
	if g != nil {
		diskGUID = g.DiskGUID
		partitions = append(partitions, gpt.Partition{
			TypeGUID:   gpt.EFISystemPartitionGUID,
			UniqueGUID: g.ESPPartitionGUID,
			FirstLBA:   g.ESPFirstLBA512,
			LastLBA:    g.ESPLastLBA512,
			Name:       "EFI System Partition",
		})
	}
	array := gpt.EntryArrayBytes(partitions)

	primary := gpt.HeaderBytes(gpt.Header{
		CurrentLBA:        1,
		BackupLBA:         lastLBA512,
		FirstUsableLBA:    layout.ESPStartLBA * 4,
		LastUsableLBA:     lastLBA512 - layout.GPTBackupBlocks,
		DiskGUID:          diskGUID,
		PartitionEntryLBA: 2,
	}, array)
	if err := writeAt(sink, 512, primary); err != nil {
		return err
	}
	return writeAt(sink, 1024, array)
}

func writeGPTBackup(sink io.WriterAt, p *layout.Plan, g *GPTInfo) error {
	lastLBA512 := uint64(p.TotalSectors)*4 - 1
	backupArrayStart := (uint64(p.TotalSectors) - layout.GPTBackupBlocks) * 4

	partitions := []gpt.Partition{{
		TypeGUID:   gpt.EFISystemPartitionGUID,
		UniqueGUID: g.ESPPartitionGUID,
		FirstLBA:   g.ESPFirstLBA512,
		LastLBA:    g.ESPLastLBA512,
		Name:       "EFI System Partition",
	}}
	array := gpt.EntryArrayBytes(partitions)

	backup := gpt.HeaderBytes(gpt.Header{
		CurrentLBA:        lastLBA512,
		BackupLBA:         1,
		FirstUsableLBA:    layout.ESPStartLBA * 4,
		LastUsableLBA:     lastLBA512 - layout.GPTBackupBlocks,
		DiskGUID:          g.DiskGUID,
		PartitionEntryLBA: backupArrayStart,
	}, array)

	if err := writeAt(sink, int64(backupArrayStart)*gpt.SectorSize, array); err != nil {
		return err
	}
	return writeAt(sink, int64(lastLBA512)*gpt.SectorSize, backup)
}

func writePVD(sink io.WriterAt, p *layout.Plan) error {
	pvd := &iso9660.PrimaryVolumeDescriptor{
		VolumeSpaceSize: p.TotalSectors,
		PathTableSize:   p.PathTableSize,
		LPathTableLBA:   p.LPathTableLBA,
		MPathTableLBA:   p.MPathTableLBA,
		RootRecord:      iso9660.SelfRecord(p.RootLBA, p.RootSize, p.Now),
		CreationTime:    p.Now,
	}
	b, err := pvd.ToBytes()
	if err != nil {
		return err
	}
	return writeAt(sink, int64(layout.LBAPVD)*iso9660.SectorSize, b)
}

func writeDirectories(sink io.WriterAt, p *layout.Plan) error {
	for _, dir := range p.Directories {
		if err := writeOneDirectory(sink, dir, p.Now); err != nil {
			return err
		}
	}
	return nil
}

func writeOneDirectory(sink io.WriterAt, dir *iso9660.Node, now time.Time) error {
	parent := dir.Parent
	if parent == nil {
		parent = dir
	}

	records := [][]byte{
		iso9660.SelfRecord(dir.LBA, dir.Dir.ExtentSize, now).ToBytes(),
		iso9660.ParentRecord(parent.LBA, parent.Dir.ExtentSize, now).ToBytes(),
	}
	for _, c := range iso9660.SortedChildren(dir.Dir) {
		ident := c.Name
		flags := byte(0)
		size := uint32(0)
		if c.Dir != nil {
			flags = iso9660.DirFlagDirectory
			size = c.Dir.ExtentSize
		} else {
			ident = iso9660.FileIdentifier(c.Name)
			size = uint32(c.File.Size)
		}
		if c.Hidden {
			flags |= iso9660.DirFlagHidden
		}
		rec := &iso9660.DirectoryRecord{ExtentLBA: c.LBA, DataLen: size, Flags: flags, Identifier: ident, RecordTime: now}
		records = append(records, rec.ToBytes())
	}

	return writeAt(sink, int64(dir.LBA)*iso9660.SectorSize, packRecords(records))
}

// packRecords lays records out respecting the "no record crosses a sector
// boundary" rule and pads the result to a full sector, mirroring the
// layout planner's own packedSize accounting so actual bytes land exactly
// where extent sizes said they would.
func packRecords(records [][]byte) []byte {
	var out []byte
	var pos int64
	for _, r := range records {
		rl := int64(len(r))
		here := pos % iso9660.SectorSize
		if here+rl > iso9660.SectorSize {
			pad := iso9660.SectorSize - here
			out = append(out, make([]byte, pad)...)
			pos += pad
		}
		out = append(out, r...)
		pos += rl
	}
	out = append(out, make([]byte, iso9660.PadToSector(pos))...)
	return out
}

func writeFiles(sink io.WriterAt, p *layout.Plan) error {
	for _, f := range p.Files {
		if err := writeOneFile(sink, f); err != nil {
			return err
		}
	}
	return nil
}

func writeOneFile(sink io.WriterAt, f *iso9660.Node) error {
	size := f.File.Size
	if size == 0 {
		return nil
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(f.File.Source, 0, size), buf); err != nil {
		return err
	}
	if f.File.PatchBootInfoTable {
		copy(buf[8:64], eltorito.BootInfoTable(f.File.PVDLBA, f.LBA, uint32(size), buf))
	}
	return writeAt(sink, int64(f.LBA)*iso9660.SectorSize, buf)
}
