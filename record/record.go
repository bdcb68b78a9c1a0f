package record

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesbehr/rip/filesystem"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	// FileName is the name of the record file inside the graveyard root.
	FileName = ".record"

	Header    = "Time\tOriginal\tDestination"
	Delimiter = "\t"

	timeLayout = time.ANSIC
)

var ErrInvalidEntry = errors.New("record: path cannot be stored in the record")

// Entry maps the original location of a buried object to its grave.
type Entry struct {
	Time     time.Time
	Original filesystem.Path
	Grave    filesystem.Path
}

func (e Entry) line() string {
	return strings.Join([]string{e.Time.Format(timeLayout), e.Original.String(), e.Grave.String()}, Delimiter)
}

func parseLine(line string) (Entry, bool) {
	fields := strings.Split(line, Delimiter)
	if len(fields) != 3 || line == Header {
		return Entry{}, false
	}

	if !filepath.IsAbs(fields[1]) || !filepath.IsAbs(fields[2]) {
		return Entry{}, false
	}

	// An unparseable timestamp still leaves a usable entry.
	ts, _ := time.ParseInLocation(timeLayout, fields[0], time.Local)

	return Entry{
		Time:     ts,
		Original: filesystem.Path(filepath.Clean(fields[1])),
		Grave:    filesystem.Path(filepath.Clean(fields[2])),
	}, true
}

// Representable reports whether p can be written as a field of a record line.
func Representable(p filesystem.Path) bool {
	return !strings.ContainsAny(p.String(), "\t\n\r")
}

// Record is the list of objects currently buried in a graveyard. It holds no
// open file: every operation opens, reads or writes, and closes the backing
// file.
//
// A Record is not safe for use by concurrent processes. Removal rewrites the
// whole file, so an append made by another process between the read and the
// rewrite is lost, and a crash during the rewrite can leave the record
// truncated.
type Record struct {
	fs   afero.Fs
	path string

	// Now returns the timestamp written with each new entry.
	Now func() time.Time
}

func New(fs afero.Fs, root filesystem.Path) *Record {
	return &Record{
		fs:   fs,
		path: filepath.Join(root.String(), FileName),
		Now:  time.Now,
	}
}

// Open returns the record stored in the graveyard at root on the host
// filesystem.
func Open(root filesystem.Path) *Record {
	return New(afero.NewOsFs(), root)
}

func (r *Record) Path() string {
	return r.path
}

// Append adds an entry for a newly buried object.
func (r *Record) Append(original, grave filesystem.Path) (Entry, error) {
	if !Representable(original) || !Representable(grave) {
		return Entry{}, errors.Wrapf(ErrInvalidEntry, "%q -> %q", original, grave)
	}

	entry := Entry{Time: r.Now(), Original: original, Grave: grave}

	f, err := r.fs.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "opening record %s", r.path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Entry{}, errors.Wrapf(err, "stat record %s", r.path)
	}

	var buf bytes.Buffer
	if info.Size() == 0 {
		buf.WriteString(Header + "\n")
	}
	buf.WriteString(entry.line() + "\n")

	if _, err = f.Write(buf.Bytes()); err != nil {
		err = errors.Wrapf(err, "writing record %s", r.path)
	} else if err = f.Sync(); err != nil {
		err = errors.Wrapf(err, "syncing record %s", r.path)
	}

	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = errors.Wrapf(closeErr, "closing record %s", r.path)
	}

	if err != nil {
		return Entry{}, err
	}

	return entry, nil
}

// lines returns every line of the record file. A missing file has no lines.
func (r *Record) lines() ([]string, error) {
	f, err := r.fs.Open(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "opening record %s", r.path)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading record %s", r.path)
	}

	return lines, nil
}

// Entries returns every entry in the order they were appended.
func (r *Record) Entries() ([]Entry, error) {
	lines, err := r.lines()
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, line := range lines {
		if entry, ok := parseLine(line); ok {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// Last returns the most recently appended entry. It reports false if
// nothing is buried.
func (r *Record) Last() (Entry, bool, error) {
	entries, err := r.Entries()
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}

	return entries[len(entries)-1], true, nil
}

// UnderPrefix returns the entries whose grave is prefix or lies beneath it,
// oldest first.
func (r *Record) UnderPrefix(prefix filesystem.Path) ([]Entry, error) {
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}

	matched := []Entry{}
	for _, entry := range entries {
		if _, ok := entry.Grave.Rel(prefix); ok {
			matched = append(matched, entry)
		}
	}

	return matched, nil
}

// Matching resolves selectors to entries. A selector matches the entry whose
// grave it names, or failing that the most recent entry buried from the
// location it names. Selectors that match nothing are skipped.
func (r *Record) Matching(selectors []filesystem.Path) ([]Entry, error) {
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}

	matched := []Entry{}
	seen := map[filesystem.Path]bool{}

	for _, selector := range selectors {
		selector = filesystem.Path(filepath.Clean(selector.String()))

		entry, ok := findGrave(entries, selector)
		if !ok {
			entry, ok = findOriginal(entries, selector)
		}

		if ok && !seen[entry.Grave] {
			seen[entry.Grave] = true
			matched = append(matched, entry)
		}
	}

	return matched, nil
}

func findGrave(entries []Entry, grave filesystem.Path) (Entry, bool) {
	for _, entry := range entries {
		if entry.Grave == grave {
			return entry, true
		}
	}

	return Entry{}, false
}

func findOriginal(entries []Entry, original filesystem.Path) (Entry, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Original == original {
			return entries[i], true
		}
	}

	return Entry{}, false
}

// Remove deletes the entries with the same graves as entries. The remaining
// lines are written to a sibling file which then replaces the record.
func (r *Record) Remove(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	graves := map[filesystem.Path]bool{}
	for _, entry := range entries {
		graves[entry.Grave] = true
	}

	lines, err := r.lines()
	if err != nil || lines == nil {
		return err
	}

	var buf bytes.Buffer
	for _, line := range lines {
		if entry, ok := parseLine(line); ok && graves[entry.Grave] {
			continue
		}

		fmt.Fprintln(&buf, line)
	}

	next := r.path + ".next"
	if err := afero.WriteFile(r.fs, next, buf.Bytes(), 0600); err != nil {
		return errors.Wrapf(err, "writing record %s", next)
	}

	if err := r.fs.Rename(next, r.path); err != nil {
		return errors.Wrapf(err, "renaming %s => %s", next, r.path)
	}

	return nil
}
