package fat

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dargueta/fat16"
)

// Name83 is a file name in the space-padded, upper-case form stored in a
// directory entry: eight bytes of base name followed by three of extension.
type Name83 [11]byte

// Characters that can't appear in a short name, in addition to control
// characters and anything outside of ASCII.
const invalidNameChars = "\"*+,./:;<=>?[\\]| "

// NameTo83 converts a name like "readme.txt" into its stored form. The name is
// split on the last dot; the base is truncated to eight characters and the
// extension to three. Distinct long names can truncate to the same short name.
func NameTo83(name string) (Name83, error) {
	var result Name83
	for i := range result {
		result[i] = ' '
	}

	base, ext := name, ""
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		base, ext = name[:dot], name[dot+1:]
	}

	if base == "" {
		return result, fat16.ErrInvalidName.WithMessage(fmt.Sprintf("%q has no base name", name))
	}
	if len(base) > 8 {
		base = base[:8]
	}
	if len(ext) > 3 {
		ext = ext[:3]
	}

	for _, part := range []string{base, ext} {
		for i := 0; i < len(part); i++ {
			if !isValidNameByte(part[i]) {
				return result, fat16.ErrInvalidName.WithMessage(
					fmt.Sprintf("%q contains invalid character %q", name, part[i]))
			}
		}
	}

	copy(result[:8], strings.ToUpper(base))
	copy(result[8:], strings.ToUpper(ext))
	return result, nil
}

func isValidNameByte(b byte) bool {
	if b < 0x20 || b >= 0x7F {
		return false
	}
	return strings.IndexByte(invalidNameChars, b) < 0
}

// String returns the display form of the name, e.g. "README.TXT". Names with
// no extension are shown without a dot.
func (n Name83) String() string {
	base := string(bytes.TrimRight(n[:8], " "))
	ext := string(bytes.TrimRight(n[8:], " "))
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// Base returns the first eight bytes of the name, including padding.
func (n Name83) Base() [8]byte {
	var base [8]byte
	copy(base[:], n[:8])
	return base
}

// Extension returns the last three bytes of the name, including padding.
func (n Name83) Extension() [3]byte {
	var ext [3]byte
	copy(ext[:], n[8:])
	return ext
}
