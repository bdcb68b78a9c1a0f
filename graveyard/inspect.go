package graveyard

import (
	"bufio"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jamesbehr/rip/filesystem"
	"github.com/pkg/errors"
)

const (
	LinesToInspect = 6
	FilesToInspect = 6
)

// Inspect prints a short summary of the object described by stat and asks
// whether it should be buried. Directories show their total size and first
// few entries, anything else its size and first few lines.
func (g *Graveyard) Inspect(target string, stat filesystem.Stat) (bool, error) {
	if stat.Kind == filesystem.Directory {
		if err := g.inspectDir(target, stat.Path); err != nil {
			return false, err
		}
	} else {
		g.inspectFile(target, stat)
	}

	return g.confirm(fmt.Sprintf("Send %s to the graveyard?", target))
}

func (g *Graveyard) inspectDir(target string, dir filesystem.Path) error {
	var total int64
	err := dir.Walk(func(path string, info os.FileInfo, err error) error {
		// Unreadable entries are left out of the total.
		if err != nil {
			return nil
		}

		total += info.Size()
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "walking %s", dir)
	}

	g.printf("%s: directory, %s including:\n", target, humanize.Bytes(uint64(total)))

	entries, err := dir.ReadDir()
	if err != nil {
		return errors.Wrapf(err, "reading directory %s", dir)
	}

	for i, entry := range entries {
		if i == FilesToInspect {
			break
		}

		g.printf("%s\n", dir.Join(entry.Name()))
	}

	return nil
}

func (g *Graveyard) inspectFile(target string, stat filesystem.Stat) {
	g.printf("%s: file, %s\n", target, humanize.Bytes(uint64(stat.Info.Size())))

	if stat.Kind != filesystem.Regular {
		return
	}

	f, err := stat.Path.Open()
	if err != nil {
		g.printf("Error reading %s\n", stat.Path)
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for i := 0; i < LinesToInspect && scanner.Scan(); i++ {
		g.printf("> %s\n", scanner.Text())
	}
}
