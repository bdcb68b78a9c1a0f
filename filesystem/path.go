package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type Path string

func MakePath(names ...string) Path {
	p := filepath.Join(names...)

	if !filepath.IsAbs(p) {
		panic("MakePath requires absolute path")
	}

	return Path(p)
}

// Abs resolves name against dir unless it is already absolute. The result is
// cleaned but symlinks are not resolved.
func Abs(dir Path, name string) Path {
	if filepath.IsAbs(name) {
		return MakePath(name)
	}

	return dir.Join(name)
}

func (p Path) Join(names ...string) Path {
	args := []string{string(p)}
	args = append(args, names...)
	return MakePath(args...)
}

func (p Path) Parent() Path {
	return Path(filepath.Dir(string(p)))
}

func (p Path) Base() string {
	return filepath.Base(string(p))
}

// Rel returns the path of p relative to base. It reports false if p is not
// base itself or a descendant of it.
func (p Path) Rel(base Path) (string, bool) {
	rel, err := filepath.Rel(string(base), string(p))
	if err != nil {
		return "", false
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return rel, true
}

func (p Path) MkdirAll(perm os.FileMode) error {
	return os.MkdirAll(string(p), perm)
}

func (p Path) RemoveAll() error {
	return os.RemoveAll(string(p))
}

func (p Path) Remove() error {
	return os.Remove(string(p))
}

func (p Path) WriteFile(data []byte, perm os.FileMode) error {
	return os.WriteFile(string(p), data, perm)
}

func (p Path) Open() (*os.File, error) {
	return os.Open(string(p))
}

func (p Path) Create(perm os.FileMode) (*os.File, error) {
	return os.OpenFile(string(p), os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
}

func (p Path) ReadDir() ([]os.DirEntry, error) {
	return os.ReadDir(string(p))
}

func (p Path) Readlink() (Path, error) {
	target, err := os.Readlink(string(p))
	if err != nil {
		return Path(""), err
	}

	return Path(target), nil
}

func (p Path) Symlink(target Path) error {
	return os.Symlink(string(target), string(p))
}

// Walk calls f for p and everything beneath it with paths relative to p.
// Symlinks are not followed.
func (p Path) Walk(f filepath.WalkFunc) error {
	fsys := os.DirFS(string(p))
	return fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return f(path, nil, err)
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		return f(path, info, err)
	})
}

// Canonical resolves every symlink in p.
func (p Path) Canonical() (Path, error) {
	resolved, err := filepath.EvalSymlinks(string(p))
	if err != nil {
		return Path(""), err
	}

	return MakePath(resolved), nil
}

// Exists reports whether anything is present at p without following a
// trailing symlink, so broken links count as present.
func (p Path) Exists() (bool, error) {
	_, err := os.Lstat(string(p))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (p Path) String() string {
	return string(p)
}
