//go:build linux || darwin

package mover

import (
	"os"
	"syscall"

	"github.com/jamesbehr/rip/filesystem"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func mkfifo(dest filesystem.Path, perm os.FileMode) error {
	if err := unix.Mkfifo(dest.String(), uint32(perm)); err != nil {
		return &os.PathError{Op: "mkfifo", Path: dest.String(), Err: err}
	}

	// Mkfifo is subject to the umask.
	_ = os.Chmod(dest.String(), perm)

	return nil
}

// mknod creates a node of the same type and device number as stat.
func mknod(stat filesystem.Stat, dest filesystem.Path) error {
	sys, ok := stat.Info.Sys().(*syscall.Stat_t)
	if !ok {
		return errors.Errorf("no device information for %s", stat.Path)
	}

	if err := unix.Mknod(dest.String(), uint32(sys.Mode), int(sys.Rdev)); err != nil {
		return &os.PathError{Op: "mknod", Path: dest.String(), Err: err}
	}

	return nil
}

// isFallbackErr reports whether a failed rename should be retried as a copy.
func isFallbackErr(err error) bool {
	return errors.Is(err, unix.EXDEV) || errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.ENOSYS)
}
