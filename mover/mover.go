package mover

import (
	"io"
	"os"

	"github.com/jamesbehr/rip/filesystem"
	"github.com/jamesbehr/rip/prompt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultBigFileThreshold is the size in bytes above which copying a file
// needs confirmation.
const DefaultBigFileThreshold = 500000000

var (
	ErrBigFileDeclined = errors.New("mover: big file was not copied")
	ErrVerifyMismatch  = errors.New("mover: copied file does not match its source")
	ErrNotRooted       = errors.New("mover: walked entry is not inside the directory being copied")
	ErrSourceRemains   = errors.New("mover: copied but could not remove the source")
)

// Outcome describes what a successful move left at the destination.
type Outcome int

const (
	// Relocated means the destination now holds the object.
	Relocated Outcome = iota

	// Discarded means the user chose to delete the object permanently
	// instead of copying it, so nothing was created at the destination.
	Discarded
)

// Renamer performs the atomic same-filesystem rename that is attempted
// before falling back to a copy.
type Renamer interface {
	Rename(source, dest string) error
}

type OSRenamer struct{}

func (OSRenamer) Rename(source, dest string) error {
	return os.Rename(source, dest)
}

// Mover relocates filesystem objects of any kind.
type Mover struct {
	// Confirm is asked before big files are discarded and before special
	// files that cannot be recreated are replaced by a placeholder.
	Confirm prompt.Func

	// Out receives the messages shown alongside a question.
	Out io.Writer

	// BigFileThreshold is the size above which a copy needs confirmation.
	// Zero disables the check.
	BigFileThreshold int64

	// Verify compares the BLAKE3 digest of each copied regular file with
	// the digest of the data read from its source.
	Verify bool

	Renamer Renamer
}

func New(confirm prompt.Func, out io.Writer) *Mover {
	return &Mover{
		Confirm:          confirm,
		Out:              out,
		BigFileThreshold: DefaultBigFileThreshold,
		Verify:           true,
		Renamer:          OSRenamer{},
	}
}

func (m *Mover) confirm(message string) (bool, error) {
	if m.Confirm == nil {
		return false, nil
	}

	return m.Confirm(message)
}

func (m *Mover) out() io.Writer {
	if m.Out == nil {
		return io.Discard
	}

	return m.Out
}

func (m *Mover) renamer() Renamer {
	if m.Renamer == nil {
		return OSRenamer{}
	}

	return m.Renamer
}

// Move relocates source to dest, which must not exist. A rename is tried
// first; if it fails because source and dest are on different filesystems,
// the object is copied and the source removed afterwards. If the copy fails,
// everything created for dest, including missing parent directories, is
// removed again and source is left as it was.
//
// If a directory was copied but could not be fully removed, the error wraps
// ErrSourceRemains and dest is kept since it holds the only complete copy.
func (m *Mover) Move(source, dest filesystem.Path) (Outcome, error) {
	logger := log.WithFields(log.Fields{"source": source, "dest": dest})

	// rename(2) silently replaces an existing file.
	if exists, err := dest.Exists(); err != nil {
		return Relocated, errors.Wrapf(err, "stat %s", dest)
	} else if exists {
		return Relocated, errors.Wrapf(os.ErrExist, "moving %s to %s", source, dest)
	}

	a := &arena{}

	if err := mkdirParents(dest.Parent(), a); err != nil {
		a.rollback()
		return Relocated, errors.Wrapf(err, "creating %s", dest.Parent())
	}

	err := m.renamer().Rename(source.String(), dest.String())
	if err == nil {
		logger.Debug("renamed")
		return Relocated, nil
	}

	if !isFallbackErr(err) {
		a.rollback()
		return Relocated, errors.Wrapf(err, "moving %s to %s", source, dest)
	}

	logger.WithField("err", err).Debug("rename failed, copying instead")

	stat, err := source.Stat()
	if err != nil {
		a.rollback()
		return Relocated, errors.Wrapf(err, "stat %s", source)
	}

	if stat.Kind == filesystem.Directory {
		if err := m.copyTree(stat, dest, a); err != nil {
			a.rollback()
			return Relocated, err
		}

		if err := source.RemoveAll(); err != nil {
			return Relocated, errors.Wrapf(ErrSourceRemains, "removing %s: %s", source, err)
		}

		logger.Debug("copied directory")
		return Relocated, nil
	}

	outcome, err := m.copyLeaf(stat, dest, a)
	if err != nil {
		a.rollback()
		return outcome, err
	}

	if err := source.Remove(); err != nil {
		a.rollback()
		return outcome, errors.Wrapf(err, "removing %s", source)
	}

	// Nothing was copied, so the parents created for it are not needed.
	if outcome == Discarded {
		a.rollback()
	}

	logger.WithField("outcome", outcome).Debug("copied")
	return outcome, nil
}

// mkdirParents creates dir and any missing ancestors, adding each directory
// it created to a, outermost first.
func mkdirParents(dir filesystem.Path, a *arena) error {
	missing := []filesystem.Path{}
	for p := dir; ; p = p.Parent() {
		exists, err := p.Exists()
		if err != nil {
			return err
		}

		if exists || p.Parent() == p {
			break
		}

		missing = append(missing, p)
	}

	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i].String(), 0755); err != nil {
			if os.IsExist(err) {
				continue
			}

			return err
		}

		a.add(missing[i])
	}

	return nil
}

// CopyEntry copies a single non-directory object from source to dest.
func (m *Mover) CopyEntry(source, dest filesystem.Path) (Outcome, error) {
	stat, err := source.Stat()
	if err != nil {
		return Relocated, errors.Wrapf(err, "stat %s", source)
	}

	a := &arena{}
	outcome, err := m.copyLeaf(stat, dest, a)
	if err != nil {
		a.rollback()
	}

	return outcome, err
}

type pending struct {
	source filesystem.Path
	dest   filesystem.Path
}

type createdDir struct {
	path filesystem.Path
	perm os.FileMode
}

// copyTree copies the directory described by root to dest. It walks with an
// explicit stack, so nesting depth is bounded only by memory, and creates
// each directory before any of its children.
func (m *Mover) copyTree(root filesystem.Stat, dest filesystem.Path, a *arena) error {
	stack := []pending{{source: root.Path, dest: dest}}
	dirs := []createdDir{}

	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		stat := root
		if next.source != root.Path {
			var err error
			if stat, err = next.source.Stat(); err != nil {
				return errors.Wrapf(err, "stat %s", next.source)
			}
		}

		if stat.Kind != filesystem.Directory {
			if _, err := m.copyLeaf(stat, next.dest, a); err != nil {
				return err
			}

			continue
		}

		// Created writable so children can be added, the real mode is
		// applied once the tree is complete.
		if err := os.Mkdir(next.dest.String(), 0700); err != nil {
			return errors.Wrapf(err, "creating directory %s", next.dest)
		}
		a.add(next.dest)
		dirs = append(dirs, createdDir{path: next.dest, perm: stat.Info.Mode().Perm()})

		children, err := next.source.ReadDir()
		if err != nil {
			return errors.Wrapf(err, "reading directory %s", next.source)
		}

		for i := len(children) - 1; i >= 0; i-- {
			child := next.source.Join(children[i].Name())

			rel, ok := child.Rel(root.Path)
			if !ok || rel == "." {
				return errors.Wrapf(ErrNotRooted, "%s in %s", child, root.Path)
			}

			stack = append(stack, pending{source: child, dest: dest.Join(rel)})
		}
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Chmod(dirs[i].path.String(), dirs[i].perm); err != nil {
			log.WithFields(log.Fields{"path": dirs[i].path, "err": err}).Debug("failed to restore directory mode")
		}
	}

	return nil
}

// arena holds every path created during a single move so that a failed
// move can remove them again.
type arena struct {
	created []filesystem.Path
}

func (a *arena) add(p filesystem.Path) {
	a.created = append(a.created, p)
}

// rollback removes created paths newest first, so that directories are
// empty by the time they are removed.
func (a *arena) rollback() {
	for i := len(a.created) - 1; i >= 0; i-- {
		p := a.created[i]
		if err := p.Remove(); err != nil && !os.IsNotExist(err) {
			log.WithFields(log.Fields{"path": p, "err": err}).Debug("failed to roll back")
		}
	}

	a.created = nil
}
