package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the type of a filesystem object as reported by a stat that does
// not follow symlinks.
type Kind int

const (
	Regular Kind = iota
	Directory
	Symlink
	Fifo
	Other
)

func (k Kind) String() string {
	switch k {
	case Regular:
		return "regular file"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	case Fifo:
		return "named pipe"
	default:
		return "special file"
	}
}

func KindOf(mode fs.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return Regular
	case mode.IsDir():
		return Directory
	case mode&fs.ModeSymlink != 0:
		return Symlink
	case mode&fs.ModeNamedPipe != 0:
		return Fifo
	default:
		return Other
	}
}

// Stat is the result of a single link-aware stat of a path.
type Stat struct {
	Path Path
	Kind Kind
	Info os.FileInfo
}

func (p Path) Stat() (Stat, error) {
	info, err := os.Lstat(string(p))
	if err != nil {
		return Stat{}, err
	}

	return Stat{Path: p, Kind: KindOf(info.Mode()), Info: info}, nil
}

// Lookup stats name, relative to dir unless it is absolute, the way the
// kernel resolves it: no lexical clean-up happens before the stat, so
// "link/.." is the parent of the link's target. A trailing symlink is not
// followed. The returned Stat carries the canonical path of the object.
func Lookup(dir Path, name string) (Stat, error) {
	if name == "" {
		return Stat{}, &fs.PathError{Op: "lstat", Path: name, Err: fs.ErrNotExist}
	}

	raw := name
	if !filepath.IsAbs(raw) {
		raw = string(dir) + string(filepath.Separator) + name
	}

	info, err := os.Lstat(raw)
	if err != nil {
		return Stat{}, err
	}

	kind := KindOf(info.Mode())

	var resolved string
	if kind == Symlink {
		// The link keeps its own name, only its directory is resolved.
		i := strings.LastIndex(raw, string(filepath.Separator))
		parent, base := raw[:i], raw[i+1:]
		if parent == "" {
			parent = string(filepath.Separator)
		}

		if parent, err = filepath.EvalSymlinks(parent); err != nil {
			return Stat{}, err
		}

		resolved = filepath.Join(parent, base)
	} else if resolved, err = filepath.EvalSymlinks(raw); err != nil {
		return Stat{}, err
	}

	return Stat{Path: MakePath(resolved), Kind: kind, Info: info}, nil
}
