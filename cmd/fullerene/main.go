package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fullerene-img/fullerene"
	"github.com/fullerene-img/fullerene/internal/config"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}
	log := cfg.Log

	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	defer done()

	if err := run(ctx, cfg); err != nil {
		log.Error(err, "build failed")
		os.Exit(1)
	}
	log.Info("image written", "output", cfg.Output)
}

func run(ctx context.Context, cfg *config.Config) error {
	b := fullerene.NewBuilder()

	for _, f := range cfg.Files {
		src, err := openSource(f.Source)
		if err != nil {
			return fullerene.NewError(fullerene.NotFound, err, "open %q", f.Source)
		}
		if err := b.AddFile(f.Destination, src); err != nil {
			return err
		}
	}

	boot := fullerene.BootInfo{}
	if cfg.BiosBoot != nil {
		img, err := openSource(cfg.BiosBoot.BootImage)
		if err != nil {
			return fullerene.NewError(fullerene.NotFound, err, "open %q", cfg.BiosBoot.BootImage)
		}
		boot.BIOS = &fullerene.BiosBootInfo{
			BootCatalogLabel:   cfg.BiosBoot.BootCatalog,
			BootImage:          img,
			DestinationInISO:   cfg.BiosBoot.DestinationInISO,
			PatchBootInfoTable: cfg.BiosBoot.PatchBootInfoTable,
		}
	}
	if cfg.UefiBoot != nil {
		bootImg, err := openSource(cfg.UefiBoot.BootImage)
		if err != nil {
			return fullerene.NewError(fullerene.NotFound, err, "open %q", cfg.UefiBoot.BootImage)
		}
		kernelImg, err := openSource(cfg.UefiBoot.KernelImage)
		if err != nil {
			return fullerene.NewError(fullerene.NotFound, err, "open %q", cfg.UefiBoot.KernelImage)
		}
		boot.UEFI = &fullerene.UefiBootInfo{
			BootImage:        bootImg,
			KernelImage:      kernelImg,
			DestinationInISO: cfg.UefiBoot.DestinationInISO,
		}
	}
	b.SetBootInfo(boot)
	b.SetIsoHybrid(cfg.IsIsohybrid)

	out, err := os.Create(cfg.Output)
	if err != nil {
		return fullerene.NewError(fullerene.Other, err, "create %q", cfg.Output)
	}
	defer out.Close()

	sink, err := fullerene.NewFileSink(out)
	if err != nil {
		return err
	}

	return b.Build(sink, fullerene.BuildOptions{Logger: cfg.Log})
}

func openSource(path string) (fullerene.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return fullerene.NewSource(f, info.Size()), nil
}
