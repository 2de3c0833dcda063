package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dargueta/fat16/errors"
	"github.com/dargueta/fat16/file_systems/fat"
	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"
)

// listingRow is one file in the output of `ls`.
type listingRow struct {
	Name     string `csv:"name" json:"name"`
	Size     int64  `csv:"size" json:"size"`
	Cluster  uint16 `csv:"cluster" json:"cluster"`
	Modified string `csv:"modified" json:"modified"`
}

type listingSummary struct {
	Files      []listingRow `json:"files"`
	FreeBytes  int64        `json:"free_bytes"`
	TotalBytes int64        `json:"total_bytes"`
}

func newListingSummary(volume *fat.Volume) listingSummary {
	files := volume.ListFiles()
	summary := listingSummary{
		Files:      make([]listingRow, 0, len(files)),
		FreeBytes:  volume.FreeSpace(),
		TotalBytes: volume.TotalSpace(),
	}
	for _, info := range files {
		summary.Files = append(summary.Files, listingRow{
			Name:     info.Name(),
			Size:     info.Size(),
			Cluster:  uint16(info.FirstCluster()),
			Modified: info.ModTime().Format("2006-01-02 15:04"),
		})
	}
	return summary
}

func (r *runner) list(ctx *cli.Context) error {
	format := ctx.String("format")
	switch format {
	case "table", "csv", "json":
	default:
		return errors.ErrInvalidArgument.WithMessage(fmt.Sprintf("unknown output format %q", format))
	}

	return withVolume(ctx, func(volume *fat.Volume) error {
		summary := newListingSummary(volume)
		switch format {
		case "csv":
			return gocsv.Marshal(summary.Files, r.stdout)
		case "json":
			encoder := json.NewEncoder(r.stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(summary)
		default:
			return writeTable(r.stdout, summary)
		}
	})
}

func writeTable(w io.Writer, summary listingSummary) error {
	table := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(table, "NAME\tSIZE\tCLUSTER\tMODIFIED\t")
	for _, row := range summary.Files {
		fmt.Fprintf(table, "%s\t%d\t%d\t%s\t\n", row.Name, row.Size, row.Cluster, row.Modified)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(
		w,
		"%d file(s), %d of %d bytes free\n",
		len(summary.Files),
		summary.FreeBytes,
		summary.TotalBytes,
	)
	return err
}
