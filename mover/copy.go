package mover

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jamesbehr/rip/filesystem"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// Placeholder is written in place of a special file that could not be
// recreated and that the user agreed to delete.
const Placeholder = "This is a marker for a file that was permanently deleted.  Requiescat in pace.\n"

var (
	makeNode = mknod
	hashDest = hashFile
)

// copyLeaf copies a non-directory object. Anything it creates is added to a.
func (m *Mover) copyLeaf(stat filesystem.Stat, dest filesystem.Path, a *arena) (Outcome, error) {
	if size := stat.Info.Size(); m.BigFileThreshold > 0 && size > m.BigFileThreshold {
		fmt.Fprintf(m.out(), "About to copy a big file (%s is %s)\n", stat.Path, humanize.Bytes(uint64(size)))

		discard, err := m.confirm("Permanently delete this file instead?")
		if err != nil {
			return Relocated, err
		}

		if discard {
			return Discarded, nil
		}

		return Relocated, errors.Wrapf(ErrBigFileDeclined, "%s (%s)", stat.Path, humanize.Bytes(uint64(size)))
	}

	var err error

	switch stat.Kind {
	case filesystem.Regular:
		err = m.copyRegular(stat, dest, a)
	case filesystem.Symlink:
		err = copySymlink(stat, dest, a)
	case filesystem.Fifo:
		if err = mkfifo(dest, stat.Info.Mode().Perm()); err == nil {
			a.add(dest)
		}
	case filesystem.Directory:
		err = errors.Errorf("%s is a directory", stat.Path)
	case filesystem.Other:
		err = m.copySpecial(stat, dest, a)
	}

	if err != nil {
		return Relocated, errors.Wrapf(err, "copying %s %s to %s", stat.Kind, stat.Path, dest)
	}

	return Relocated, nil
}

func (m *Mover) copyRegular(stat filesystem.Stat, dest filesystem.Path, a *arena) error {
	src, err := stat.Path.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	perm := stat.Info.Mode().Perm()

	dst, err := dest.Create(perm | 0200)
	if err != nil {
		return err
	}
	a.add(dest)

	var reader io.Reader = src
	hasher := blake3.New()
	if m.Verify {
		reader = io.TeeReader(src, hasher)
	}

	if _, err := io.Copy(dst, reader); err != nil {
		dst.Close()
		return err
	}

	if err := dst.Close(); err != nil {
		return err
	}

	if m.Verify {
		digest, err := hashDest(dest)
		if err != nil {
			return err
		}

		if !bytes.Equal(digest, hasher.Sum(nil)) {
			return ErrVerifyMismatch
		}
	}

	// Mode preservation is best effort, the umask may have cleared bits.
	_ = os.Chmod(dest.String(), perm)

	return nil
}

func hashFile(p filesystem.Path) ([]byte, error) {
	f, err := p.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

func copySymlink(stat filesystem.Stat, dest filesystem.Path, a *arena) error {
	target, err := stat.Path.Readlink()
	if err != nil {
		return err
	}

	if err := dest.Symlink(target); err != nil {
		return err
	}
	a.add(dest)

	return nil
}

// copySpecial recreates sockets, devices and anything else that is not a
// regular file, directory, symlink or pipe. If that fails the user may
// choose to delete the object, leaving a placeholder file in its place.
func (m *Mover) copySpecial(stat filesystem.Stat, dest filesystem.Path, a *arena) error {
	err := makeNode(stat, dest)
	if err == nil {
		a.add(dest)
		return nil
	}

	fmt.Fprintf(m.out(), "Non-regular file or directory: %s\n", stat.Path)

	discard, promptErr := m.confirm("Permanently delete the file?")
	if promptErr != nil {
		return promptErr
	}

	if !discard {
		return err
	}

	f, createErr := dest.Create(0644)
	if createErr != nil {
		return createErr
	}
	a.add(dest)

	if _, err := f.WriteString(Placeholder); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
