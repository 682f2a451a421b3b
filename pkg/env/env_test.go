package env

import (
	"os"
	"strings"
	"testing"

	"github.com/herring-swe/cmake-presets/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// joinPath builds a PATH-like value for the current platform
func joinPath(segments ...string) string {
	return strings.Join(segments, string(os.PathListSeparator))
}

func TestOS(t *testing.T) {
	t.Setenv("CMAKE_PRESETS_PROBE", "probe")

	d := OS()
	assert.Equal(t, "probe", d.Get("CMAKE_PRESETS_PROBE"))
	assert.True(t, d.Has("PATH"))
}

func TestEnviron(t *testing.T) {
	d := Dict{}
	d.Set("FOO", "bar")

	entries := d.Environ()
	require.Len(t, entries, 1)
	assert.Equal(t, "FOO=bar", entries[0])
}

func TestDiffIdempotent(t *testing.T) {
	d := Dict{}
	d.Set("PATH", joinPath("/a", "/b"))
	d.Set("FOO", "1")

	diff := d.Diff(d.Clone(), nil, nil)
	assert.Empty(t, diff)
}

func TestDiffPathAddition(t *testing.T) {
	baseline := Dict{}
	baseline.Set("PATH", joinPath("/a", "/b"))

	current := Dict{}
	current.Set("PATH", joinPath("/a", "/b", "/c"))

	diff := current.Diff(baseline, nil, nil)
	require.True(t, diff.Has("PATH"))
	assert.Equal(t, "/c", diff.Get("PATH"))
}

func TestDiffDeclaredPathVar(t *testing.T) {
	baseline := Dict{}
	baseline.Set("LIB", "/old")

	current := Dict{}
	current.Set("LIB", joinPath("/new", "/old"))

	diff := current.Diff(baseline, nil, utils.MakeSet("LIB"))
	assert.Equal(t, "/new", diff.Get("LIB"))
}

func TestDiffNonPathChangeReplaces(t *testing.T) {
	baseline := Dict{}
	baseline.Set("CC", "gcc")

	current := Dict{}
	current.Set("CC", "gcc-8")

	diff := current.Diff(baseline, nil, nil)
	assert.Equal(t, "gcc-8", diff.Get("CC"))
}

func TestDiffNeverReportsRemovals(t *testing.T) {
	baseline := Dict{}
	baseline.Set("FOO", "1")

	diff := Dict{}.Diff(baseline, nil, nil)
	assert.False(t, diff.Has("FOO"))
	assert.Empty(t, diff)
}

func TestDiffIgnored(t *testing.T) {
	current := Dict{}
	current.Set("SHLVL", "2")
	current.Set("KEPT", "yes")

	diff := current.Diff(Dict{}, utils.MakeSet("SHLVL"), nil)
	assert.False(t, diff.Has("SHLVL"))
	assert.Equal(t, "yes", diff.Get("KEPT"))
}

func TestMerge(t *testing.T) {
	d := Dict{}
	d.Set("KEEP", "mine")
	d.Set("PATH", joinPath("/mine"))

	other := Dict{}
	other.Set("KEEP", "theirs")
	other.Set("NEW", "added")
	other.Set("PATH", joinPath("/theirs", "/mine"))

	d.Merge(other, nil)

	// existing values win, PATH-like values are prepended without duplicates
	assert.Equal(t, "mine", d.Get("KEEP"))
	assert.Equal(t, "added", d.Get("NEW"))
	assert.Equal(t, joinPath("/theirs", "/mine"), d.Get("PATH"))
}

func TestAddPath(t *testing.T) {
	d := Dict{}
	d.PrependPath("PATH", "/a")
	assert.Equal(t, "/a", d.Get("PATH"))

	d.AppendPath("PATH", "/b")
	assert.Equal(t, joinPath("/a", "/b"), d.Get("PATH"))

	// prepending an existing segment moves it to the front
	d.PrependPath("PATH", "/b")
	assert.Equal(t, joinPath("/b", "/a"), d.Get("PATH"))
}

func TestDiffPath(t *testing.T) {
	assert.Equal(t, "/c", DiffPath(joinPath("/a", "/b"), joinPath("/a", "/b", "/c")))
	assert.Equal(t, "", DiffPath(joinPath("/a", "/b"), joinPath("/b", "/a")))
	assert.Equal(t, joinPath("/x", "/y"), DiffPath("", joinPath("/x", "/y")))
}
