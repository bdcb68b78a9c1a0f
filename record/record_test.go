package record

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesbehr/rip/filesystem"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = filesystem.Path("/graveyard")

func memRecord(t *testing.T) (*Record, afero.Fs) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(root.String(), 0700))

	r := New(fs, root)
	clock := time.Date(2024, time.March, 3, 10, 4, 5, 0, time.Local)
	r.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	return r, fs
}

func bury(t *testing.T, r *Record, pairs ...string) {
	for i := 0; i < len(pairs); i += 2 {
		_, err := r.Append(filesystem.Path(pairs[i]), filesystem.Path(pairs[i+1]))
		require.NoError(t, err)
	}
}

func graves(entries []Entry) []filesystem.Path {
	paths := []filesystem.Path{}
	for _, entry := range entries {
		paths = append(paths, entry.Grave)
	}
	return paths
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	r, fs := memRecord(t)

	bury(t, r,
		"/home/user/a.txt", "/graveyard/home/user/a.txt",
		"/home/user/b.txt", "/graveyard/home/user/b.txt",
	)

	data, err := afero.ReadFile(fs, filepath.Join(root.String(), FileName))
	require.NoError(t, err)

	expected := Header + "\n" +
		"Sun Mar  3 10:04:06 2024\t/home/user/a.txt\t/graveyard/home/user/a.txt\n" +
		"Sun Mar  3 10:04:07 2024\t/home/user/b.txt\t/graveyard/home/user/b.txt\n"
	assert.Equal(t, expected, string(data))
}

func TestAppendRejectsDelimiter(t *testing.T) {
	r, fs := memRecord(t)

	_, err := r.Append("/home/user/a\tb", "/graveyard/home/user/a\tb")
	assert.True(t, errors.Is(err, ErrInvalidEntry))

	_, err = r.Append("/home/user/a\nb", "/graveyard/home/user/a\nb")
	assert.True(t, errors.Is(err, ErrInvalidEntry))

	exists, err := afero.Exists(fs, r.Path())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMissingRecord(t *testing.T) {
	r, _ := memRecord(t)

	_, ok, err := r.Last()
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := r.UnderPrefix("/graveyard")
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = r.Matching([]filesystem.Path{"/graveyard/a"})
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, r.Remove([]Entry{{Grave: "/graveyard/a"}}))
}

func TestLast(t *testing.T) {
	r, _ := memRecord(t)

	bury(t, r,
		"/a", "/graveyard/a",
		"/b", "/graveyard/b",
	)

	entry, ok, err := r.Last()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filesystem.Path("/b"), entry.Original)
	assert.Equal(t, filesystem.Path("/graveyard/b"), entry.Grave)
	assert.Equal(t, 2024, entry.Time.Year())
}

func TestEntriesSkipsGarbage(t *testing.T) {
	r, fs := memRecord(t)

	contents := Header + "\n" +
		"not a record line\n" +
		"\n" +
		"Sun Mar  3 10:04:06 2024\t/a\t/graveyard/a\n" +
		"Sun Mar  3 10:04:06 2024\trelative\t/graveyard/b\n" +
		"whenever\t/c\t/graveyard/c\n"
	require.NoError(t, afero.WriteFile(fs, r.Path(), []byte(contents), 0600))

	entries, err := r.Entries()
	require.NoError(t, err)
	assert.Equal(t, []filesystem.Path{"/graveyard/a", "/graveyard/c"}, graves(entries))
	assert.True(t, entries[1].Time.IsZero())

	// Lines that are not entries survive a removal untouched.
	require.NoError(t, r.Remove(entries[:1]))

	data, err := afero.ReadFile(fs, r.Path())
	require.NoError(t, err)
	assert.Equal(t, Header+"\n"+
		"not a record line\n"+
		"\n"+
		"Sun Mar  3 10:04:06 2024\trelative\t/graveyard/b\n"+
		"whenever\t/c\t/graveyard/c\n", string(data))
}

func TestUnderPrefix(t *testing.T) {
	r, _ := memRecord(t)

	bury(t, r,
		"/home/a/1", "/graveyard/home/a/1",
		"/home/b/1", "/graveyard/home/b/1",
		"/home/a/sub/2", "/graveyard/home/a/sub/2",
		"/home/ab/3", "/graveyard/home/ab/3",
		"/home/a", "/graveyard/home/a~1",
	)

	entries, err := r.UnderPrefix("/graveyard/home/a")
	require.NoError(t, err)
	assert.Equal(t, []filesystem.Path{"/graveyard/home/a/1", "/graveyard/home/a/sub/2"}, graves(entries))

	entries, err = r.UnderPrefix("/graveyard")
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestMatching(t *testing.T) {
	r, _ := memRecord(t)

	bury(t, r,
		"/home/a", "/graveyard/home/a",
		"/home/b", "/graveyard/home/b",
		"/home/a", "/graveyard/home/a~1",
	)

	testCases := []struct {
		Name      string
		Selectors []filesystem.Path
		Expected  []filesystem.Path
	}{
		{
			Name:      "grave",
			Selectors: []filesystem.Path{"/graveyard/home/b"},
			Expected:  []filesystem.Path{"/graveyard/home/b"},
		},
		{
			Name:      "original picks most recent",
			Selectors: []filesystem.Path{"/home/a"},
			Expected:  []filesystem.Path{"/graveyard/home/a~1"},
		},
		{
			Name:      "stale selectors skipped",
			Selectors: []filesystem.Path{"/graveyard/gone", "/graveyard/home/a", "/nowhere"},
			Expected:  []filesystem.Path{"/graveyard/home/a"},
		},
		{
			Name:      "duplicates collapse",
			Selectors: []filesystem.Path{"/graveyard/home/b", "/home/b", "/graveyard/home/b/"},
			Expected:  []filesystem.Path{"/graveyard/home/b"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			entries, err := r.Matching(testCase.Selectors)
			require.NoError(t, err)
			assert.Equal(t, testCase.Expected, graves(entries))
		})
	}
}

func TestRemove(t *testing.T) {
	r, fs := memRecord(t)

	bury(t, r,
		"/a", "/graveyard/a",
		"/b", "/graveyard/b",
		"/c", "/graveyard/c",
	)

	require.NoError(t, r.Remove([]Entry{{Grave: "/graveyard/a"}, {Grave: "/graveyard/c"}}))

	entries, err := r.Entries()
	require.NoError(t, err)
	assert.Equal(t, []filesystem.Path{"/graveyard/b"}, graves(entries))

	exists, err := afero.Exists(fs, r.Path()+".next")
	require.NoError(t, err)
	assert.False(t, exists)

	// Appending after a removal continues the same file.
	bury(t, r, "/d", "/graveyard/d")

	entries, err = r.Entries()
	require.NoError(t, err)
	assert.Equal(t, []filesystem.Path{"/graveyard/b", "/graveyard/d"}, graves(entries))
}

func TestOpenUsesHostFilesystem(t *testing.T) {
	dir := filesystem.MakePath(t.TempDir())

	first := Open(dir)
	_, err := first.Append("/a", dir.Join("a"))
	require.NoError(t, err)

	// A second handle, as a new process would open it, sees the entry.
	entry, ok, err := Open(dir).Last()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, dir.Join("a"), entry.Grave)

	info, err := os.Stat(filepath.Join(dir.String(), FileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
