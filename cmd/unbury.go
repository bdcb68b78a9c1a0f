package cmd

import (
	"github.com/jamesbehr/rip/filesystem"
	"github.com/jamesbehr/rip/graveyard"
)

// unbury restores the graves or original paths named by args. Combined with
// --seance it also restores everything buried from beneath cwd.
func unbury(g *graveyard.Graveyard, cwd filesystem.Path, args []string) error {
	selectors := make([]filesystem.Path, len(args))
	for i, arg := range args {
		selectors[i] = filesystem.Abs(cwd, arg)
	}

	return g.Unbury(cwd, selectors, options.Seance)
}
