package fullerene

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/fullerene-img/fullerene/internal/eltorito"
	"github.com/fullerene-img/fullerene/internal/fat32"
	"github.com/fullerene-img/fullerene/internal/gpt"
	"github.com/fullerene-img/fullerene/internal/iso9660"
	"github.com/fullerene-img/fullerene/internal/layout"
	"github.com/fullerene-img/fullerene/internal/writer"
)

// BiosBootInfo describes the legacy BIOS boot target.
type BiosBootInfo struct {
	// BootCatalogLabel is a virtual destination naming the boot catalog.
	// It is used only by BootInfo.HideBootCatalog to find a regular file the
	// caller added at that path; it never affects layout.
	BootCatalogLabel string

	BootImage        Source
	DestinationInISO string

	// PatchBootInfoTable requests the 56-byte El Torito boot information
	// table be patched into the boot image's written extent.
	PatchBootInfoTable bool
}

// UefiBootInfo describes the UEFI boot target.
type UefiBootInfo struct {
	BootImage        Source
	KernelImage      Source
	DestinationInISO string
}

// BootInfo is the builder's full boot configuration. Either or both of
// BIOS/UEFI may be set; nil means that platform is not configured.
type BootInfo struct {
	BIOS *BiosBootInfo
	UEFI *UefiBootInfo

	// HideBootCatalog marks the boot catalog's directory-tree placeholder
	// (named by BIOS.BootCatalogLabel, if the caller also added one as a
	// regular file) with the hidden file flag instead of omitting it.
	HideBootCatalog bool
}

// BuildOptions carries per-build overrides and ambient wiring.
type BuildOptions struct {
	// ESPLBAOverride and ESPSectorsOverride let a caller composing this
	// image inside an outer format pre-compute ESP placement. Nil means
	// use the §4.3 defaults.
	ESPLBAOverride     *uint32
	ESPSectorsOverride *uint16

	Logger logr.Logger
	Now    time.Time
}

// Builder assembles a filesystem tree and boot configuration, then writes
// the finished image to a Sink.
type Builder struct {
	tree   *iso9660.Tree
	boot   BootInfo
	hybrid bool
}

// NewBuilder returns a Builder with an empty root directory and no boot
// configuration.
func NewBuilder() *Builder {
	return &Builder{tree: iso9660.NewEmpty()}
}

// AddFile attaches source at destination (a "/"-separated path), creating
// any missing intermediate directories.
func (b *Builder) AddFile(destination string, source Source) error {
	size, err := source.Size()
	if err != nil {
		return NewError(Other, err, "stat source for %q", destination)
	}
	if err := b.tree.AddFile(destination, source, size); err != nil {
		return wrapTreeError(err)
	}
	return nil
}

// SetBootInfo records the boot configuration to apply at Build time.
func (b *Builder) SetBootInfo(cfg BootInfo) { b.boot = cfg }

// SetIsoHybrid enables or disables hybrid MBR/GPT/FAT32-ESP wrapping.
func (b *Builder) SetIsoHybrid(v bool) { b.hybrid = v }

func wrapTreeError(err error) error {
	switch err.(type) {
	case *iso9660.DuplicateError, *iso9660.FieldError:
		return NewError(InvalidInput, err, "invalid tree entry")
	default:
		return NewError(Other, err, "tree entry")
	}
}

// ensureFileNode looks up dst in the tree, registering src there if it
// is not already present. This lets a boot image also be listed (or not)
// as a plain file under the same destination without the layout ever
// assigning it two LBAs.
func (b *Builder) ensureFileNode(dst string, src Source) (*iso9660.Node, error) {
	if n := b.tree.Lookup(dst); n != nil && n.File != nil {
		return n, nil
	}
	if err := b.AddFile(dst, src); err != nil {
		return nil, err
	}
	return b.tree.Lookup(dst), nil
}

// Build validates the configuration, plans the layout, and writes the
// finished image to sink. Validation errors (bad boot configuration, ESP
// too small, path table overflow) surface before any bytes are written.
func (b *Builder) Build(sink Sink, opts BuildOptions) error {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	logger := opts.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	if b.hybrid && b.boot.UEFI == nil {
		return NewError(InvalidInput, nil, "isohybrid requires a UEFI boot configuration")
	}

	var biosNode, uefiNode *iso9660.Node
	var biosSize, uefiSize int64
	if b.boot.BIOS != nil {
		var err error
		biosSize, err = b.boot.BIOS.BootImage.Size()
		if err != nil {
			return NewError(NotFound, err, "stat BIOS boot image")
		}
		biosNode, err = b.ensureFileNode(b.boot.BIOS.DestinationInISO, b.boot.BIOS.BootImage)
		if err != nil {
			return err
		}
		biosNode.File.PatchBootInfoTable = b.boot.BIOS.PatchBootInfoTable
		biosNode.File.PVDLBA = layout.LBAPVD
	}
	if b.boot.UEFI != nil {
		var err error
		uefiSize, err = b.boot.UEFI.BootImage.Size()
		if err != nil {
			return NewError(NotFound, err, "stat UEFI boot image")
		}
		uefiNode, err = b.ensureFileNode(b.boot.UEFI.DestinationInISO, b.boot.UEFI.BootImage)
		if err != nil {
			return err
		}
	}

	if b.boot.HideBootCatalog && b.boot.BIOS != nil && b.boot.BIOS.BootCatalogLabel != "" {
		if n := b.tree.Lookup(b.boot.BIOS.BootCatalogLabel); n != nil {
			n.Hidden = true
		}
	}

	var espResult *fat32.Result
	needESP := b.hybrid && b.boot.UEFI != nil

	g, _ := errgroup.WithContext(context.Background())
	if needESP {
		g.Go(func() error {
			res, err := buildESP(b.boot.UEFI)
			if err != nil {
				return err
			}
			espResult = res
			return nil
		})
	}
	g.Go(func() error {
		layout.PrepareTree(b.tree)
		return nil
	})
	if err := g.Wait(); err != nil {
		return NewError(InvalidData, err, "ESP construction")
	}

	var espPlan *layout.ESPPlan
	if needESP {
		sectors := espResult.Sectors
		if opts.ESPSectorsOverride != nil {
			sectors = *opts.ESPSectorsOverride
		}
		if err := layout.ValidateESPSize(sectors); err != nil {
			return NewError(InvalidInput, err, "ESP size")
		}
		espPlan = &layout.ESPPlan{SizeBytes: espResult.Length, Sectors512: sectors}
		if opts.ESPLBAOverride != nil {
			espPlan.LBA = *opts.ESPLBAOverride
		}
	}

	bootCfg := layout.BootConfig{HasBIOS: b.boot.BIOS != nil, HasUEFI: b.boot.UEFI != nil}
	planResult, err := layout.Compute(b.tree, bootCfg, b.hybrid, espPlan, now)
	if err != nil {
		return NewError(InvalidInput, err, "layout")
	}
	plan := planResult.Plan
	logger.V(1).Info("layout computed", "totalSectors", plan.TotalSectors, "hybrid", b.hybrid)

	catalog := buildCatalog(plan, b.boot, biosNode, uefiNode, biosSize, uefiSize, espPlan)

	var gptInfo *writer.GPTInfo
	if b.hybrid {
		diskGUID, err := gpt.NewRandomGUID()
		if err != nil {
			return NewError(Other, err, "generate disk GUID")
		}
		espGUID, err := gpt.NewRandomGUID()
		if err != nil {
			return NewError(Other, err, "generate ESP partition GUID")
		}
		espFirst := uint64(plan.ESP.LBA) * 4
		espLast := espFirst + uint64(plan.ESP.ExtentBlocks)*4 - 1
		gptInfo = &writer.GPTInfo{
			DiskGUID:         diskGUID,
			ESPPartitionGUID: espGUID,
			ESPFirstLBA512:   espFirst,
			ESPLastLBA512:    espLast,
		}
	}

	var espImage []byte
	if espResult != nil {
		espImage = espResult.Image
	}

	err = writer.Write(sink, &writer.Input{
		Plan:     plan,
		PathL:    planResult.LEntries,
		Catalog:  catalog,
		ESPImage: espImage,
		GPT:      gptInfo,
	})
	if err != nil {
		return NewError(Other, err, "write image")
	}
	return nil
}

func buildESP(uefi *UefiBootInfo) (*fat32.Result, error) {
	bootSize, err := uefi.BootImage.Size()
	if err != nil {
		return nil, err
	}
	kernelSize, err := uefi.KernelImage.Size()
	if err != nil {
		return nil, err
	}
	return fat32.Build([]fat32.Input{
		{ShortName: "BOOTX64.EFI", Source: uefi.BootImage, Size: bootSize},
		{ShortName: "KERNEL.EFI", Source: uefi.KernelImage, Size: kernelSize},
	})
}

func buildCatalog(plan *layout.Plan, boot BootInfo, biosNode, uefiNode *iso9660.Node, biosSize, uefiSize int64, espPlan *layout.ESPPlan) *eltorito.Catalog {
	if boot.BIOS == nil && boot.UEFI == nil {
		return nil
	}

	var biosEntry, uefiEntry *eltorito.Entry
	if boot.BIOS != nil {
		biosEntry = &eltorito.Entry{
			Platform:    eltorito.PlatformBIOS,
			BootRBA:     biosNode.LBA,
			SectorCount: sectorCount512(biosSize),
		}
	}
	if boot.UEFI != nil {
		e := &eltorito.Entry{Platform: eltorito.PlatformEFI}
		if plan.Hybrid && espPlan != nil {
			e.BootRBA = espPlan.LBA
			e.SectorCount = espPlan.Sectors512
		} else {
			e.BootRBA = uefiNode.LBA
			e.SectorCount = sectorCount512(uefiSize)
		}
		uefiEntry = e
	}

	switch {
	case uefiEntry != nil && biosEntry != nil:
		return &eltorito.Catalog{Initial: *uefiEntry, Secondary: biosEntry}
	case uefiEntry != nil:
		return &eltorito.Catalog{Initial: *uefiEntry}
	default:
		return &eltorito.Catalog{Initial: *biosEntry}
	}
}

func sectorCount512(size int64) uint16 {
	sectors := (size + 511) / 512
	if sectors > 0xFFFF {
		return 0xFFFF
	}
	return uint16(sectors)
}
