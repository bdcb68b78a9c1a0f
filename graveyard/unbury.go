package graveyard

import (
	"github.com/jamesbehr/rip/filesystem"
	"github.com/jamesbehr/rip/mover"
	"github.com/jamesbehr/rip/record"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Unbury restores buried objects to where they came from. Selectors name
// either graves or original locations. With alsoPrefix, everything buried
// from beneath cwd is restored as well. If that selects nothing at all, the
// most recently buried object is restored.
//
// Restoring stops at the first failure. Only the entries that were actually
// restored are removed from the record.
func (g *Graveyard) Unbury(cwd filesystem.Path, selectors []filesystem.Path, alsoPrefix bool) error {
	entries, err := g.Record.Matching(selectors)
	if err != nil {
		return err
	}

	found := len(selectors)

	if alsoPrefix {
		under, err := g.Seance(g.Grave(cwd))
		if err != nil {
			return err
		}

		found += len(under)
		entries = appendUnique(entries, under...)
	}

	if found == 0 {
		last, ok, err := g.Record.Last()
		if err != nil {
			return err
		}

		if !ok {
			return ErrNothingToUnbury
		}

		entries = append(entries, last)
	}

	log.WithField("count", len(entries)).Debug("unburying")

	exhumed := []record.Entry{}
	for _, entry := range entries {
		if err = g.exhume(entry); err != nil {
			break
		}

		exhumed = append(exhumed, entry)
	}

	if rmErr := g.Record.Remove(exhumed); rmErr != nil {
		if err != nil {
			log.WithField("err", rmErr).Warn("failed to update record")
			return err
		}

		return rmErr
	}

	return err
}

func (g *Graveyard) exhume(entry record.Entry) error {
	logger := log.WithFields(log.Fields{"grave": entry.Grave, "original": entry.Original})

	exists, err := entry.Grave.Exists()
	if err != nil {
		return errors.Wrapf(err, "stat %s", entry.Grave)
	}

	if !exists {
		// Removed from the graveyard behind our back, nothing to restore.
		g.printf("%s is no longer in the graveyard\n", entry.Grave)
		logger.Warn("grave is missing, dropping entry")
		return nil
	}

	// Whatever now occupies the original location is left alone.
	dest, err := ResolveConflict(entry.Original)
	if err != nil {
		return err
	}

	outcome, err := g.Mover.Move(entry.Grave, dest)
	if err != nil {
		return errors.WithMessagef(err, "unbury failed: couldn't move %s to %s", entry.Grave, dest)
	}

	if outcome == mover.Discarded {
		g.printf("Deleted %s\n", entry.Grave)
		return nil
	}

	g.printf("Returned %s to %s\n", entry.Grave, dest)
	logger.WithField("dest", dest).Debug("exhumed")
	return nil
}

func appendUnique(entries []record.Entry, more ...record.Entry) []record.Entry {
	seen := map[filesystem.Path]bool{}
	for _, entry := range entries {
		seen[entry.Grave] = true
	}

	for _, entry := range more {
		if !seen[entry.Grave] {
			seen[entry.Grave] = true
			entries = append(entries, entry)
		}
	}

	return entries
}
