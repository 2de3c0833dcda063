//go:build !unix

package common

import "os"

// Advisory locking is only implemented on Unix systems.

func lockFile(file *os.File) error {
	return nil
}

func unlockFile(file *os.File) error {
	return nil
}
