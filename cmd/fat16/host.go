package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dargueta/fat16/errors"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/dargueta/fat16/file_systems/fat"
	"github.com/dargueta/fat16/utilities/compression"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

func (r *runner) importFile(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1, 2); err != nil {
		return err
	}
	hostPath := ctx.Args().Get(0)
	name := ctx.Args().Get(1)
	if name == "" {
		name = filepath.Base(hostPath)
	}

	data, err := afero.ReadFile(r.hostFs, hostPath)
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}

	return withVolume(ctx, func(volume *fat.Volume) error {
		err := volume.WriteFile(name, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.stdout, "Copied %d bytes from %s to %s\n", len(data), hostPath, name)
		return nil
	})
}

func (r *runner) exportFile(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2, 2); err != nil {
		return err
	}
	name := ctx.Args().Get(0)
	hostPath := ctx.Args().Get(1)

	return withVolume(ctx, func(volume *fat.Volume) error {
		data, err := volume.ReadFile(name)
		if err != nil {
			return err
		}
		err = afero.WriteFile(r.hostFs, hostPath, data, 0o644)
		if err != nil {
			return errors.NewFromError(errors.EIO, err)
		}
		fmt.Fprintf(r.stdout, "Copied %d bytes from %s to %s\n", len(data), name, hostPath)
		return nil
	})
}

// openExistingImage opens the image without creating or resizing it.
func openExistingImage(ctx *cli.Context) (*c.ImageFile, error) {
	path := ctx.String("image")
	if _, err := os.Stat(path); err != nil {
		return nil, errors.NewFromError(errors.ENOENT, err)
	}
	return c.OpenImageFile(path, 0)
}

func (r *runner) snapshot(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1, 1); err != nil {
		return err
	}

	image, err := openExistingImage(ctx)
	if err != nil {
		return err
	}
	defer image.Close()

	output, err := r.hostFs.Create(ctx.Args().First())
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}

	stream := image.Stream()
	_, err = stream.Seek(0, io.SeekStart)
	if err != nil {
		return multierror.Append(err, output.Close()).ErrorOrNil()
	}

	imageSize := int64(image.TotalSectors()) * c.BytesPerSector
	written, err := compression.CompressImage(io.LimitReader(stream, imageSize), output)
	closeErr := output.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	fmt.Fprintf(r.stdout, "Compressed %d bytes to %d bytes.\n", imageSize, written)
	return nil
}

func (r *runner) restore(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1, 1); err != nil {
		return err
	}

	input, err := r.hostFs.Open(ctx.Args().First())
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}
	data, err := compression.DecompressImageToBytes(input)
	input.Close()
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}

	if len(data) == 0 || len(data)%c.BytesPerSector != 0 {
		return errors.NewWithMessage(
			errors.EMEDIUMTYPE,
			fmt.Sprintf("snapshot holds %d bytes, not a whole number of sectors", len(data)),
		)
	}
	source := c.NewMemoryDeviceFromBytes(data)
	if _, err = fat.Load(source, fat.Options{}); err != nil {
		return err
	}

	image, err := c.OpenImageFile(ctx.String("image"), 0)
	if err != nil {
		return err
	}
	defer image.Close()

	err = image.Truncate(int64(len(data)))
	if err != nil {
		return err
	}
	for lba := uint32(0); lba < source.TotalSectors(); lba++ {
		start := int(lba) * c.BytesPerSector
		err = image.WriteSector(c.SectorID(lba), data[start:start+c.BytesPerSector])
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(r.stdout, "Restored %d sectors to %s\n", source.TotalSectors(), image.Path())
	return nil
}
