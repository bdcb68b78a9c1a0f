package graveyard

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jamesbehr/rip/filesystem"
	"github.com/pkg/errors"
)

// MaxAlternates bounds the number of suffixed names tried when resolving a
// conflict.
const MaxAlternates = 1 << 16

// Mapping returns the location of source inside the graveyard at root. The
// whole absolute path of source is mirrored beneath root.
func Mapping(root, source filesystem.Path) filesystem.Path {
	p := source.String()
	p = strings.TrimPrefix(p, filepath.VolumeName(p))
	p = strings.TrimLeft(p, string(filepath.Separator))

	return root.Join(p)
}

// ResolveConflict returns candidate if nothing exists there, otherwise the
// first of candidate~1, candidate~2, ... that is free. Broken symlinks
// occupy their path.
func ResolveConflict(candidate filesystem.Path) (filesystem.Path, error) {
	exists, err := candidate.Exists()
	if err != nil {
		return "", errors.Wrapf(err, "stat %s", candidate)
	}

	if !exists {
		return candidate, nil
	}

	for i := 1; i <= MaxAlternates; i++ {
		alternate := filesystem.Path(fmt.Sprintf("%s~%d", candidate, i))

		exists, err := alternate.Exists()
		if err != nil {
			return "", errors.Wrapf(err, "stat %s", alternate)
		}

		if !exists {
			return alternate, nil
		}
	}

	return "", errors.Wrapf(ErrAlternatesExhausted, "%s", candidate)
}

// Within reports whether p is root or lies beneath it.
func Within(root, p filesystem.Path) bool {
	_, ok := p.Rel(root)
	return ok
}
