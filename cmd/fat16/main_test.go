package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/dargueta/fat16"
	"github.com/dargueta/fat16/file_systems/fat"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t      *testing.T
	image  string
	hostFs afero.Fs
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:      t,
		image:  filepath.Join(t.TempDir(), "disk.img"),
		hostFs: afero.NewMemMapFs(),
	}
}

// run executes one command against a 16-cluster image and returns what it
// printed.
func (h *harness) run(args ...string) (string, error) {
	stdout := bytes.Buffer{}
	app := newApp(h.hostFs, &stdout)
	fullArgs := append(
		[]string{
			"fat16",
			"--image", h.image,
			"--sectors", strconv.Itoa(int(fat.MinimumSectors(16))),
			"--fixed-time",
		},
		args...,
	)
	err := app.Run(fullArgs)
	return stdout.String(), err
}

func (h *harness) mustRun(args ...string) string {
	output, err := h.run(args...)
	require.NoErrorf(h.t, err, "command failed: %v", args)
	return output
}

func TestNewImageGetsDemoFiles(t *testing.T) {
	h := newHarness(t)
	output := h.mustRun("ls")

	assert.Contains(t, output, "README.TXT")
	assert.Contains(t, output, "TEST.TXT")
	assert.Contains(t, output, fmt.Sprintf("2 file(s), %d of %d bytes free", 14*4096, 16*4096))

	assert.Equal(t, fat.ReadmeText, h.mustRun("cat", "readme.txt"))
}

func TestFormat(t *testing.T) {
	h := newHarness(t)
	h.mustRun("write", "junk.txt", "to be wiped")

	output := h.mustRun("format")
	assert.Contains(t, output, fmt.Sprintf("%d sectors, %d bytes free", fat.MinimumSectors(16), 16*4096))
	assert.Contains(t, h.mustRun("ls"), "0 file(s)")

	h.mustRun("format", "--demo")
	assert.Contains(t, h.mustRun("ls"), "2 file(s)")
}

func TestWriteAppendCat(t *testing.T) {
	h := newHarness(t)
	h.mustRun("format")

	h.mustRun("write", "notes.txt", "first line\n")
	h.mustRun("append", "notes.txt", "second line\n")
	assert.Equal(t, "first line\nsecond line\n", h.mustRun("cat", "NOTES.TXT"))

	h.mustRun("write", "notes.txt", "replaced")
	assert.Equal(t, "replaced", h.mustRun("cat", "notes.txt"))

	// Append creates missing files.
	h.mustRun("append", "new.log", "x")
	assert.Equal(t, "x", h.mustRun("cat", "new.log"))
}

func TestTouchRenameRemove(t *testing.T) {
	h := newHarness(t)
	h.mustRun("format")

	h.mustRun("touch", "empty.dat")
	h.mustRun("touch", "empty.dat")
	h.mustRun("mv", "empty.dat", "moved.dat")

	info := h.mustRun("info", "moved.dat")
	assert.Contains(t, info, "Name:       MOVED.DAT")
	assert.Contains(t, info, "Size:       0 bytes")
	assert.Contains(t, info, "Cluster:    2 (1 in chain)")
	assert.Contains(t, info, "Modified:   2017-04-23 16:00:00")

	h.mustRun("rm", "moved.dat")
	_, err := h.run("info", "moved.dat")
	assert.ErrorIs(t, err, fat16.ErrNotFound)
	_, err = h.run("rm", "moved.dat")
	assert.ErrorIs(t, err, fat16.ErrNotFound)
}

func TestListFormats(t *testing.T) {
	h := newHarness(t)
	h.mustRun("format", "--demo")

	csvOutput := h.mustRun("ls", "--format", "csv")
	lines := strings.Split(strings.TrimSpace(csvOutput), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,size,cluster,modified", lines[0])
	assert.Equal(t, fmt.Sprintf("README.TXT,%d,2,2017-04-23 16:00", len(fat.ReadmeText)), lines[1])
	assert.Equal(t, fmt.Sprintf("TEST.TXT,%d,3,2017-04-23 16:00", len(fat.TestText)), lines[2])

	summary := listingSummary{}
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("ls", "--format", "json")), &summary))
	assert.EqualValues(t, 14*4096, summary.FreeBytes)
	assert.EqualValues(t, 16*4096, summary.TotalBytes)
	require.Len(t, summary.Files, 2)
	assert.Equal(t, "TEST.TXT", summary.Files[1].Name)

	_, err := h.run("ls", "--format", "xml")
	assert.Error(t, err)
}

func TestDiskFree(t *testing.T) {
	h := newHarness(t)
	h.mustRun("format")
	h.mustRun("write", "a.bin", strings.Repeat("a", 5000))

	output := h.mustRun("df")
	assert.Contains(t, output, "(16 clusters)")
	assert.Contains(t, output, fmt.Sprintf("Used:  %12d bytes (2 clusters)", 2*4096))
	assert.Contains(t, output, fmt.Sprintf("Free:  %12d bytes (14 clusters)", 14*4096))
}

func TestFSInfo(t *testing.T) {
	h := newHarness(t)
	output := h.mustRun("fsinfo")
	assert.Contains(t, output, "OEM name:            MYOS")
	assert.Contains(t, output, "File system type:    FAT16")
	assert.Contains(t, output, "FAT copies:          2 x 800 sectors at 1")
	assert.Contains(t, output, "Data region:         sector 1633, 16 clusters")
}

func TestImportExport(t *testing.T) {
	h := newHarness(t)
	h.mustRun("format")

	contents := bytes.Repeat([]byte("0123456789abcdef"), 700)
	require.NoError(t, afero.WriteFile(h.hostFs, "/host/data.bin", contents, 0o644))

	h.mustRun("import", "/host/data.bin")
	h.mustRun("import", "/host/data.bin", "copy.bin")
	h.mustRun("export", "DATA.BIN", "/host/out.bin")

	exported, err := afero.ReadFile(h.hostFs, "/host/out.bin")
	require.NoError(t, err)
	assert.Equal(t, contents, exported)
	assert.Equal(t, string(contents), h.mustRun("cat", "copy.bin"))

	_, err = h.run("import", "/host/missing.bin")
	assert.Error(t, err)
}

func TestSnapshotRestore(t *testing.T) {
	h := newHarness(t)
	h.mustRun("format")
	h.mustRun("write", "keep.txt", "saved in the snapshot")

	assert.Contains(t, h.mustRun("snapshot", "/backup.img.gz"), "Compressed")

	h.mustRun("rm", "keep.txt")
	h.mustRun("write", "later.txt", "not in the snapshot")

	h.mustRun("restore", "/backup.img.gz")
	assert.Equal(t, "saved in the snapshot", h.mustRun("cat", "keep.txt"))
	_, err := h.run("cat", "later.txt")
	assert.ErrorIs(t, err, fat16.ErrNotFound)
}

func TestRestore__RejectsGarbage(t *testing.T) {
	h := newHarness(t)
	h.mustRun("format")
	require.NoError(t, afero.WriteFile(h.hostFs, "/bad.gz", []byte("not compressed"), 0o644))

	_, err := h.run("restore", "/bad.gz")
	assert.Error(t, err)

	// The image is untouched.
	assert.Contains(t, h.mustRun("ls"), "0 file(s)")
}

func TestArgumentCounts(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{{"cat"}, {"rm", "a", "b"}, {"mv", "a"}, {"write", "a"}, {"export", "a"}} {
		_, err := h.run(args...)
		assert.Errorf(t, err, "%v should fail", args)
	}
}

func TestImageFromEnvironment(t *testing.T) {
	h := newHarness(t)
	t.Setenv("FAT16_IMAGE", h.image)
	t.Setenv("FAT16_SECTORS", strconv.Itoa(int(fat.MinimumSectors(4))))

	stdout := bytes.Buffer{}
	app := newApp(h.hostFs, &stdout)
	require.NoError(t, app.Run([]string{"fat16", "--fixed-time", "df"}))
	assert.Contains(t, stdout.String(), "(4 clusters)")
}

func TestFormat__Preset(t *testing.T) {
	h := newHarness(t)
	output := h.mustRun("format", "--preset", "cf32m")
	assert.Contains(t, output, "65536 sectors")

	info, err := os.Stat(h.image)
	require.NoError(t, err)
	assert.EqualValues(t, 65536*512, info.Size())

	_, err = h.run("format", "--preset", "8inch")
	assert.Error(t, err)

	assert.Contains(t, h.mustRun("presets"), "zip100")
}

func TestWrite__Modes(t *testing.T) {
	h := newHarness(t)
	h.mustRun("format")
	h.mustRun("write", "f.txt", "abcdef")

	h.mustRun("write", "--mode", "w", "f.txt", "XY")
	assert.Equal(t, "XYcdef", h.mustRun("cat", "f.txt"))

	h.mustRun("write", "--mode", "append", "f.txt", "!")
	assert.Equal(t, "XYcdef!", h.mustRun("cat", "f.txt"))

	_, err := h.run("write", "--mode", "r", "f.txt", "nope")
	assert.ErrorIs(t, err, fat16.ErrBadMode)
	_, err = h.run("write", "--mode", "x", "f.txt", "nope")
	assert.Error(t, err)
}

func TestVerboseConfiguresGlog(t *testing.T) {
	h := newHarness(t)
	h.mustRun("--verbose", "1", "df")

	assert.Equal(t, "true", flag.Lookup("logtostderr").Value.String())
	assert.Equal(t, "1", flag.Lookup("v").Value.String())
}
