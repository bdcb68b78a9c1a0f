package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesbehr/rip/filesystem"
	"github.com/jamesbehr/rip/graveyard"
	"github.com/jamesbehr/rip/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		Name     string
		Options  ripOptions
		Targets  []string
		Expected error
	}{
		{Name: "bury", Targets: []string{"a"}},
		{Name: "inspect", Options: ripOptions{Inspect: true}, Targets: []string{"a"}},
		{Name: "seance unbury", Options: ripOptions{Seance: true, Unbury: true}},
		{Name: "decompose", Options: ripOptions{Decompose: true, Force: true}},
		{Name: "decompose seance", Options: ripOptions{Decompose: true, Seance: true}, Expected: errDecomposeExclusive},
		{Name: "decompose unbury", Options: ripOptions{Decompose: true, Unbury: true}, Expected: errDecomposeExclusive},
		{Name: "decompose inspect", Options: ripOptions{Decompose: true, Inspect: true}, Expected: errDecomposeExclusive},
		{Name: "decompose targets", Options: ripOptions{Decompose: true}, Targets: []string{"a"}, Expected: errDecomposeExclusive},
		{Name: "inspect unbury", Options: ripOptions{Inspect: true, Unbury: true}, Expected: errInspectBuryOnly},
		{Name: "inspect seance", Options: ripOptions{Inspect: true, Seance: true}, Expected: errInspectBuryOnly},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			assert.Equal(t, testCase.Expected, testCase.Options.validate(testCase.Targets))
		})
	}
}

func TestCommands(t *testing.T) {
	dir, err := os.MkdirTemp(os.TempDir(), "rip_cmd")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	dir, err = filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	tmp := filesystem.MakePath(dir)
	cwd := tmp.Join("data")
	require.NoError(t, cwd.Join("sub").MkdirAll(0755))
	require.NoError(t, cwd.Join("sub/file").WriteFile([]byte("file"), 0644))
	require.NoError(t, tmp.Join("graveyard").MkdirAll(0700))

	out := &bytes.Buffer{}
	g := graveyard.New(tmp.Join("graveyard"), prompt.No, out)

	defer func() { options = ripOptions{} }()

	require.NoError(t, bury(g, cwd, []string{"sub/file"}))

	listing := &bytes.Buffer{}
	require.NoError(t, seance(g, cwd, listing))
	assert.Equal(t, g.Grave(cwd.Join("sub/file")).String()+"\n", listing.String())

	listing.Reset()
	require.NoError(t, seance(g, tmp.Join("elsewhere"), listing))
	assert.Empty(t, listing.String())

	require.NoError(t, unbury(g, cwd.Join("sub"), []string{"file"}))

	data, err := os.ReadFile(cwd.Join("sub/file").String())
	require.NoError(t, err)
	assert.Equal(t, "file", string(data))
}
