package cmd

import (
	"github.com/jamesbehr/rip/filesystem"
	"github.com/jamesbehr/rip/graveyard"
)

func bury(g *graveyard.Graveyard, cwd filesystem.Path, targets []string) error {
	return g.Bury(cwd, targets, graveyard.BuryOptions{Inspect: options.Inspect})
}
