package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dargueta/fat16"
	"github.com/dargueta/fat16/disks"
	"github.com/dargueta/fat16/errors"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/dargueta/fat16/file_systems/fat"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"
)

// requireArgs fails unless the command got between `min` and `max` positional
// arguments.
func requireArgs(ctx *cli.Context, min, max int) error {
	n := ctx.Args().Len()
	if n < min || n > max {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("%s: usage: %s %s", ctx.Command.Name, ctx.Command.Name, ctx.Command.ArgsUsage))
	}
	return nil
}

func (r *runner) format(ctx *cli.Context) error {
	sectors := uint32(ctx.Uint("sectors"))
	if slug := ctx.String("preset"); slug != "" {
		preset, err := disks.GetPreset(slug)
		if err != nil {
			return err
		}
		sectors = preset.TotalSectors
	}

	image, err := c.OpenImageFile(ctx.String("image"), sectors)
	if err != nil {
		return err
	}

	options := volumeOptions(ctx)
	options.TotalSectors = sectors
	options.SeedDemoFiles = ctx.Bool("demo")

	volume, err := fat.Format(image, options)
	if err != nil {
		return multierror.Append(err, image.Close()).ErrorOrNil()
	}

	fmt.Fprintf(
		r.stdout,
		"Formatted %s: %d sectors, %d bytes free\n",
		image.Path(),
		volume.Geometry().TotalSectors,
		volume.FreeSpace(),
	)
	return multierror.Append(volume.Unmount(), image.Close()).ErrorOrNil()
}

func (r *runner) cat(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1, 1); err != nil {
		return err
	}
	return withVolume(ctx, func(volume *fat.Volume) error {
		file, err := volume.OpenFile(ctx.Args().First(), fat16.OpenModeRead)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(r.stdout, file)
		return err
	})
}

func (r *runner) touch(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1, 1); err != nil {
		return err
	}
	return withVolume(ctx, func(volume *fat.Volume) error {
		name := ctx.Args().First()
		if volume.Exists(name) {
			return nil
		}
		return volume.Create(name)
	})
}

func (r *runner) remove(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1, 1); err != nil {
		return err
	}
	return withVolume(ctx, func(volume *fat.Volume) error {
		return volume.Delete(ctx.Args().First())
	})
}

func (r *runner) rename(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2, 2); err != nil {
		return err
	}
	return withVolume(ctx, func(volume *fat.Volume) error {
		return volume.Rename(ctx.Args().Get(0), ctx.Args().Get(1))
	})
}

func (r *runner) info(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1, 1); err != nil {
		return err
	}
	return withVolume(ctx, func(volume *fat.Volume) error {
		stat, err := volume.Stat(ctx.Args().First())
		if err != nil {
			return err
		}
		info := stat.(*fat.FileInfo)
		clusters := volume.FAT().ChainLength(info.FirstCluster())

		fmt.Fprintf(r.stdout, "Name:       %s\n", info.Name())
		fmt.Fprintf(r.stdout, "Size:       %d bytes\n", info.Size())
		fmt.Fprintf(r.stdout, "Cluster:    %d (%d in chain)\n", info.FirstCluster(), clusters)
		fmt.Fprintf(r.stdout, "Attributes: 0x%02X\n", info.Attributes())
		fmt.Fprintf(r.stdout, "Modified:   %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(r.stdout, "Slot:       %d\n", info.Slot())
		return nil
	})
}

func (r *runner) fsinfo(ctx *cli.Context) error {
	return withVolume(ctx, func(volume *fat.Volume) error {
		b := volume.BootSector()
		g := volume.Geometry()

		fmt.Fprintf(r.stdout, "OEM name:            %s\n", strings.TrimRight(string(b.OEMName[:]), " "))
		fmt.Fprintf(r.stdout, "File system type:    %s\n", strings.TrimRight(string(b.FileSystemType[:]), " "))
		fmt.Fprintf(r.stdout, "Total sectors:       %d\n", g.TotalSectors)
		fmt.Fprintf(r.stdout, "Sectors per cluster: %d\n", g.SectorsPerCluster)
		fmt.Fprintf(r.stdout, "FAT copies:          %d x %d sectors at %d\n", g.NumFATs, g.SectorsPerFAT, g.FATStart)
		fmt.Fprintf(r.stdout, "Root directory:      %d entries at %d\n", g.RootEntries, g.RootStart)
		fmt.Fprintf(r.stdout, "Data region:         sector %d, %d clusters\n", g.DataStart, g.UsableClusters())
		return nil
	})
}

func (r *runner) diskFree(ctx *cli.Context) error {
	return withVolume(ctx, func(volume *fat.Volume) error {
		total := volume.TotalSpace()
		free := volume.FreeSpace()
		bytesPerCluster := int64(volume.Geometry().BytesPerCluster())

		fmt.Fprintf(r.stdout, "Total: %12d bytes (%d clusters)\n", total, total/bytesPerCluster)
		fmt.Fprintf(r.stdout, "Used:  %12d bytes (%d clusters)\n", total-free, (total-free)/bytesPerCluster)
		fmt.Fprintf(r.stdout, "Free:  %12d bytes (%d clusters)\n", free, free/bytesPerCluster)
		return nil
	})
}

func (r *runner) write(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2, 2); err != nil {
		return err
	}
	if ctx.String("mode") == "" {
		return withVolume(ctx, func(volume *fat.Volume) error {
			return volume.WriteFile(ctx.Args().Get(0), []byte(ctx.Args().Get(1)))
		})
	}

	mode, err := fat16.ParseOpenMode(ctx.String("mode"))
	if err != nil {
		return err
	}
	if !mode.CanWrite() {
		return fat16.ErrBadMode.WithMessage(fmt.Sprintf("can't write with mode %s", mode))
	}
	return withVolume(ctx, func(volume *fat.Volume) error {
		return writeWithMode(volume, ctx.Args().Get(0), ctx.Args().Get(1), mode)
	})
}

func (r *runner) appendText(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2, 2); err != nil {
		return err
	}
	return withVolume(ctx, func(volume *fat.Volume) error {
		return writeWithMode(volume, ctx.Args().Get(0), ctx.Args().Get(1), fat16.OpenModeAppend)
	})
}

func writeWithMode(volume fat16.Volume, name, text string, mode fat16.OpenMode) error {
	file, err := volume.Open(name, mode)
	if err != nil {
		return err
	}
	_, err = file.WriteString(text)
	return multierror.Append(err, file.Close()).ErrorOrNil()
}

func (r *runner) testFiles(ctx *cli.Context) error {
	return withVolume(ctx, func(volume *fat.Volume) error {
		err := volume.WriteFile("README.TXT", []byte(fat.ReadmeText))
		if err != nil {
			return err
		}
		return volume.WriteFile("TEST.TXT", []byte(fat.TestText))
	})
}

func (r *runner) listPresets(ctx *cli.Context) error {
	for _, preset := range disks.Presets() {
		fmt.Fprintf(
			r.stdout,
			"%-8s %10d sectors  %s (%d)\n",
			preset.Slug,
			preset.TotalSectors,
			preset.Name,
			preset.FirstYearAvailable,
		)
	}
	return nil
}
