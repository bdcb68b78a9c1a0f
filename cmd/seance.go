package cmd

import (
	"fmt"
	"io"

	"github.com/jamesbehr/rip/filesystem"
	"github.com/jamesbehr/rip/graveyard"
)

// seance prints the grave of everything buried from beneath cwd, oldest
// first.
func seance(g *graveyard.Graveyard, cwd filesystem.Path, out io.Writer) error {
	entries, err := g.Seance(g.Grave(cwd))
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fmt.Fprintln(out, entry.Grave)
	}

	return nil
}
