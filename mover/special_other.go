//go:build !linux && !darwin

package mover

import (
	"os"

	"github.com/jamesbehr/rip/filesystem"
	"github.com/pkg/errors"
)

var errUnsupported = errors.New("mover: special files are not supported on this platform")

func mkfifo(dest filesystem.Path, perm os.FileMode) error {
	return errUnsupported
}

func mknod(stat filesystem.Stat, dest filesystem.Path) error {
	return errUnsupported
}

func isFallbackErr(err error) bool {
	return true
}
