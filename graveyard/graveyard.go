package graveyard

import (
	"fmt"
	"io"
	"os"

	"github.com/jamesbehr/rip/filesystem"
	"github.com/jamesbehr/rip/mover"
	"github.com/jamesbehr/rip/prompt"
	"github.com/jamesbehr/rip/record"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNotFound            = errors.New("graveyard: no such file or directory")
	ErrUnrepresentablePath = errors.New("graveyard: path contains a tab or newline")
	ErrAlternatesExhausted = errors.New("graveyard: no free alternate name")
	ErrContainsGraveyard   = errors.New("graveyard: target contains the graveyard")
	ErrNothingToUnbury     = errors.New("graveyard: nothing to unbury")
)

type Graveyard struct {
	// Root is the canonical path of the graveyard directory. Buried objects
	// mirror their original absolute paths beneath it.
	Root filesystem.Path

	// Record lists what is currently buried in Root.
	Record *record.Record

	// Mover relocates objects in and out of Root.
	Mover *mover.Mover

	// Confirm is asked before anything is deleted permanently.
	Confirm prompt.Func

	// Out receives messages for the user.
	Out io.Writer
}

// New returns a Graveyard rooted at root, which must already exist and be
// canonical. The same confirmation function and output are shared with the
// mover.
func New(root filesystem.Path, confirm prompt.Func, out io.Writer) *Graveyard {
	return &Graveyard{
		Root:    root,
		Record:  record.Open(root),
		Mover:   mover.New(confirm, out),
		Confirm: confirm,
		Out:     out,
	}
}

func (g *Graveyard) confirm(message string) (bool, error) {
	if g.Confirm == nil {
		return false, nil
	}

	return g.Confirm(message)
}

func (g *Graveyard) printf(format string, args ...interface{}) {
	if g.Out != nil {
		fmt.Fprintf(g.Out, format, args...)
	}
}

// Grave returns where p would be buried, ignoring conflicts.
func (g *Graveyard) Grave(p filesystem.Path) filesystem.Path {
	return Mapping(g.Root, p)
}

type BuryOptions struct {
	// Inspect prints a summary of each target and asks before burying it.
	Inspect bool
}

// Bury moves each target into the graveyard and records it. Relative
// targets are resolved against cwd. Targets are processed in order and the
// first failure stops the remaining targets from being attempted.
func (g *Graveyard) Bury(cwd filesystem.Path, targets []string, options BuryOptions) error {
	for _, target := range targets {
		if err := g.buryTarget(cwd, target, options); err != nil {
			return err
		}
	}

	return nil
}

func (g *Graveyard) buryTarget(cwd filesystem.Path, target string, options BuryOptions) error {
	if target == "" {
		return errors.Wrapf(ErrNotFound, "cannot remove %s", target)
	}

	// Symlinks are buried as links, so only their parent is resolved.
	stat, err := filesystem.Lookup(cwd, target)
	if os.IsNotExist(err) {
		return errors.Wrapf(ErrNotFound, "cannot remove %s", target)
	} else if err != nil {
		return errors.Wrapf(err, "stat %s", target)
	}

	source := stat.Path

	// Both ends of the move have to fit in a record line.
	if !record.Representable(source) {
		return errors.Wrapf(ErrUnrepresentablePath, "%q", source)
	} else if !record.Representable(g.Grave(source)) {
		return errors.Wrapf(ErrUnrepresentablePath, "%q", g.Grave(source))
	}

	logger := log.WithFields(log.Fields{"target": target, "source": source})

	if options.Inspect {
		bury, err := g.Inspect(target, stat)
		if err != nil {
			return err
		}

		if !bury {
			logger.Debug("kept after inspection")
			return nil
		}
	}

	if Within(g.Root, source) {
		return g.unlink(source)
	}

	if Within(source, g.Root) {
		return errors.Wrapf(ErrContainsGraveyard, "%s contains %s", source, g.Root)
	}

	dest, err := ResolveConflict(g.Grave(source))
	if err != nil {
		return err
	}

	outcome, err := g.Mover.Move(source, dest)
	if errors.Is(err, mover.ErrSourceRemains) {
		// dest is a complete copy, so it stays on record.
		if _, recErr := g.Record.Append(source, dest); recErr != nil {
			logger.WithField("err", recErr).Warn("failed to record partially buried target")
		}

		return errors.WithMessagef(err, "burying %s", target)
	} else if err != nil {
		if !errors.Is(err, os.ErrExist) {
			if rmErr := dest.RemoveAll(); rmErr != nil {
				logger.WithField("err", rmErr).Debug("failed to clean up partial grave")
			}
		}

		return errors.WithMessagef(err, "burying %s", target)
	}

	if outcome == mover.Discarded {
		logger.Debug("deleted instead of buried")
		return nil
	}

	if _, err := g.Record.Append(source, dest); err != nil {
		return errors.WithMessagef(err, "%s was buried at %s but could not be recorded", source, dest)
	}

	logger.WithField("grave", dest).Debug("buried")
	return nil
}

// unlink offers to permanently delete something that is already inside the
// graveyard. Declining skips it without an error.
func (g *Graveyard) unlink(source filesystem.Path) error {
	g.printf("%s is already in the graveyard.\n", source)

	ok, err := g.confirm("Permanently unlink it?")
	if err != nil {
		return err
	}

	if !ok {
		g.printf("Skipping %s\n", source)
		return nil
	}

	if err := source.RemoveAll(); err != nil {
		return errors.Wrapf(err, "unlinking %s", source)
	}

	// Whatever was buried there is gone for good.
	stale, err := g.Record.UnderPrefix(source)
	if err != nil {
		return err
	}

	return g.Record.Remove(stale)
}

// Seance returns the entries buried from beneath prefix, where prefix is a
// path inside the graveyard.
func (g *Graveyard) Seance(prefix filesystem.Path) ([]record.Entry, error) {
	return g.Record.UnderPrefix(prefix)
}

// Decompose permanently deletes the graveyard and its record. Unless force
// is set the user is asked first. It reports whether anything was deleted.
func (g *Graveyard) Decompose(force bool) (bool, error) {
	if !force {
		ok, err := g.confirm("Really unlink the entire graveyard?")
		if err != nil || !ok {
			return false, err
		}
	}

	if err := g.Root.RemoveAll(); err != nil {
		return false, errors.Wrapf(err, "removing graveyard %s", g.Root)
	}

	log.WithField("root", g.Root).Debug("decomposed graveyard")
	return true, nil
}
