// Command fat16 manages FAT16 disk images: it formats them, lists and edits
// the files in their root directory, and moves files and whole images between
// the image and the host.
package main

import (
	"log"
	"os"

	"github.com/spf13/afero"
)

func main() {
	app := newApp(afero.NewOsFs(), os.Stdout)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}
