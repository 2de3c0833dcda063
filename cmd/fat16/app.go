package main

import (
	"flag"
	"io"
	"os"
	"strconv"
	"time"

	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/dargueta/fat16/file_systems/fat"
	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

// runner holds what the commands need besides their flags: the host file
// system for import, export, snapshot and restore, and where output goes.
type runner struct {
	hostFs afero.Fs
	stdout io.Writer
}

func newApp(hostFs afero.Fs, stdout io.Writer) *cli.App {
	r := &runner{hostFs: hostFs, stdout: stdout}

	return &cli.App{
		Name:      "fat16",
		Usage:     "Manage FAT16 disk image files",
		Writer:    stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "image",
				Aliases:  []string{"i"},
				Usage:    "path to the disk image",
				EnvVars:  []string{"FAT16_IMAGE"},
				Required: true,
			},
			&cli.UintFlag{
				Name:    "sectors",
				Usage:   "size of new images, in 512-byte sectors",
				EnvVars: []string{"FAT16_SECTORS"},
				Value:   fat.DefaultTotalSectors,
			},
			&cli.BoolFlag{
				Name:  "fixed-time",
				Usage: "stamp new files with a fixed date instead of the current time",
			},
			&cli.IntFlag{
				Name:  "verbose",
				Usage: "log level, 0-2",
			},
		},
		Before: func(ctx *cli.Context) error {
			if err := flag.Set("logtostderr", "true"); err != nil {
				return err
			}
			return flag.Set("v", strconv.Itoa(ctx.Int("verbose")))
		},
		After: func(ctx *cli.Context) error {
			glog.Flush()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "format",
				Usage: "Create or wipe an image",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "demo",
						Usage: "add README.TXT and TEST.TXT to the new volume",
					},
					&cli.StringFlag{
						Name:  "preset",
						Usage: "size the image like a predefined disk; overrides --sectors",
					},
				},
				Action: r.format,
			},
			{
				Name:   "presets",
				Usage:  "List the predefined disk sizes for format --preset",
				Action: r.listPresets,
			},
			{
				Name:  "ls",
				Usage: "List the files in the root directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "output format: table, csv, or json",
						Value: "table",
					},
				},
				Action: r.list,
			},
			{
				Name:      "cat",
				Usage:     "Print a file",
				ArgsUsage: "NAME",
				Action:    r.cat,
			},
			{
				Name:      "touch",
				Usage:     "Create an empty file if it doesn't exist",
				ArgsUsage: "NAME",
				Action:    r.touch,
			},
			{
				Name:      "rm",
				Usage:     "Delete a file",
				ArgsUsage: "NAME",
				Action:    r.remove,
			},
			{
				Name:      "mv",
				Aliases:   []string{"rename"},
				Usage:     "Rename a file",
				ArgsUsage: "OLD NEW",
				Action:    r.rename,
			},
			{
				Name:      "info",
				Usage:     "Show the directory entry of a file",
				ArgsUsage: "NAME",
				Action:    r.info,
			},
			{
				Name:   "fsinfo",
				Usage:  "Show the layout of the volume",
				Action: r.fsinfo,
			},
			{
				Name:   "df",
				Usage:  "Show used and free space",
				Action: r.diskFree,
			},
			{
				Name:      "write",
				Usage:     "Replace the contents of a file with TEXT",
				ArgsUsage: "NAME TEXT",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name: "mode",
						Usage: "open the file with this mode instead of replacing it: " +
							"w overwrites from the start, a appends",
					},
				},
				Action: r.write,
			},
			{
				Name:      "append",
				Usage:     "Add TEXT to the end of a file",
				ArgsUsage: "NAME TEXT",
				Action:    r.appendText,
			},
			{
				Name:   "testfiles",
				Usage:  "(Re)create README.TXT and TEST.TXT",
				Action: r.testFiles,
			},
			{
				Name:      "import",
				Usage:     "Copy a host file into the image",
				ArgsUsage: "HOSTPATH [NAME]",
				Action:    r.importFile,
			},
			{
				Name:      "export",
				Usage:     "Copy a file out of the image",
				ArgsUsage: "NAME HOSTPATH",
				Action:    r.exportFile,
			},
			{
				Name:      "snapshot",
				Usage:     "Save a compressed copy of the image",
				ArgsUsage: "OUTFILE",
				Action:    r.snapshot,
			},
			{
				Name:      "restore",
				Usage:     "Replace the image with a compressed copy made by snapshot",
				ArgsUsage: "INFILE",
				Action:    r.restore,
			},
		},
	}
}

func volumeOptions(ctx *cli.Context) fat.Options {
	options := fat.Options{SeedDemoFiles: true}
	if !ctx.Bool("fixed-time") {
		options.Clock = time.Now
	}
	return options
}

// openImage opens the image named by --image. A missing or empty image is
// created with --sectors sectors; an existing one keeps its size.
func openImage(ctx *cli.Context) (*c.ImageFile, error) {
	path := ctx.String("image")
	minSectors := uint32(0)

	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		minSectors = uint32(ctx.Uint("sectors"))
	} else if err != nil {
		return nil, err
	}
	return c.OpenImageFile(path, minSectors)
}

// withVolume mounts the image, formatting it if it doesn't hold a volume, runs
// `action`, then unmounts it.
func withVolume(ctx *cli.Context, action func(volume *fat.Volume) error) error {
	image, err := openImage(ctx)
	if err != nil {
		return err
	}

	volume, err := fat.Mount(image, volumeOptions(ctx))
	if err != nil {
		return multierror.Append(err, image.Close()).ErrorOrNil()
	}

	var result *multierror.Error
	if err = action(volume); err != nil {
		result = multierror.Append(result, err)
	}
	if err = volume.Unmount(); err != nil {
		result = multierror.Append(result, err)
	}
	if err = image.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
