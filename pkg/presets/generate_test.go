package presets

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herring-swe/cmake-presets/pkg/toolkit"
)

func shellToolkit(t *testing.T, name, content string) *toolkit.ScriptToolkit {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("runs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name+".sh")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return toolkit.NewShellScriptToolkit(name, name+" environment", path, false, false, false)
}

func TestGenerateFileWritesNewFile(t *testing.T) {
	tk := shellToolkit(t, "proj", "#!/bin/sh\nPROJ_HOME=/opt/proj\nexport PROJ_HOME\n")
	filename := filepath.Join(t.TempDir(), "CMakeUserPresets.json")

	var sb strings.Builder
	report, err := GenerateFile(context.Background(), filename, []toolkit.Toolkit{tk}, Options{Out: &sb})
	require.NoError(t, err)
	assert.Equal(t, []string{"toolkit_proj"}, report.Added)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Failed)
	assert.Contains(t, sb.String(), "toolkit_proj")

	data, err := Load(filename)
	require.NoError(t, err)
	assert.EqualValues(t, SchemaVersion, data["version"])
	preset := FindPreset(data, "toolkit_proj")
	require.NotNil(t, preset)
	environment := preset["environment"].(map[string]any)
	assert.Equal(t, "/opt/proj", environment["PROJ_HOME"])
}

func TestGenerateFileUpdatesExisting(t *testing.T) {
	tk := shellToolkit(t, "proj", "#!/bin/sh\nPROJ_HOME=/opt/proj\nexport PROJ_HOME\n")
	filename := filepath.Join(t.TempDir(), "CMakeUserPresets.json")

	seed := NewDoc()
	AddPreset(seed, map[string]any{"name": "handwritten", "generator": "Ninja"}, Keep)
	AddPreset(seed, map[string]any{"name": "toolkit_proj", "hidden": true, "stale": true}, Keep)
	require.NoError(t, Save(filename, seed))

	_, err := GenerateFile(context.Background(), filename, []toolkit.Toolkit{tk}, Options{})
	require.NoError(t, err)

	data, err := Load(filename)
	require.NoError(t, err)
	// untouched presets survive, generated ones are replaced
	assert.NotNil(t, FindPreset(data, "handwritten"))
	preset := FindPreset(data, "toolkit_proj")
	require.NotNil(t, preset)
	assert.NotContains(t, preset, "stale")
}

func TestGenerateFileUnreadableExisting(t *testing.T) {
	tk := shellToolkit(t, "proj", "#!/bin/sh\n")
	filename := filepath.Join(t.TempDir(), "CMakeUserPresets.json")
	require.NoError(t, os.WriteFile(filename, []byte("not json"), 0o644))

	_, err := GenerateFile(context.Background(), filename, []toolkit.Toolkit{tk}, Options{})
	require.ErrorIs(t, err, ErrRead)

	_, err = GenerateFile(context.Background(), filename, []toolkit.Toolkit{tk}, Options{IgnoreReadError: true})
	require.NoError(t, err)
	_, err = Load(filename)
	require.NoError(t, err)
}

func TestGenerateFileSkipBad(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("runs a POSIX shell")
	}
	good := shellToolkit(t, "good", "#!/bin/sh\n")
	bad := toolkit.NewShellScriptToolkit("bad", "", filepath.Join(t.TempDir(), "missing.sh"), false, false, false)
	filename := filepath.Join(t.TempDir(), "CMakeUserPresets.json")

	_, err := GenerateFile(context.Background(), filename, []toolkit.Toolkit{bad, good}, Options{})
	require.ErrorIs(t, err, toolkit.ErrToolkit)

	report, err := GenerateFile(context.Background(), filename, []toolkit.Toolkit{bad, good}, Options{SkipBad: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"toolkit_bad"}, report.Failed)
	assert.Equal(t, []string{"toolkit_good"}, report.Added)
}

func TestGenerateFileUnsupportedGetsBasePreset(t *testing.T) {
	var tk toolkit.Toolkit
	if runtime.GOOS == "windows" {
		tk = toolkit.NewShellScriptToolkit("other", "", "env.sh", false, false, false)
	} else {
		tk = toolkit.NewBatScriptToolkit("other", "", "env.bat", false, false, false)
	}
	filename := filepath.Join(t.TempDir(), "CMakeUserPresets.json")

	report, err := GenerateFile(context.Background(), filename, []toolkit.Toolkit{tk}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"toolkit_other"}, report.Skipped)

	data, err := Load(filename)
	require.NoError(t, err)
	preset := FindPreset(data, "toolkit_other")
	require.NotNil(t, preset)
	assert.Equal(t, true, preset["hidden"])
	assert.NotContains(t, preset, "environment")
}

func TestGenerateFileStaticPresets(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("runs a POSIX shell")
	}
	tk := shellToolkit(t, "proj", "#!/bin/sh\n")
	filename := filepath.Join(t.TempDir(), "CMakeUserPresets.json")

	static := map[string]any{"name": "default", "generator": "Ninja", "inherits": "toolkit_proj"}
	_, err := GenerateFile(context.Background(), filename, []toolkit.Toolkit{tk}, Options{
		StaticPresets: []map[string]any{static},
	})
	require.NoError(t, err)

	data, err := Load(filename)
	require.NoError(t, err)
	preset := FindPreset(data, "default")
	require.NotNil(t, preset)
	assert.Equal(t, "Ninja", preset["generator"])
}

func TestGenerateFileEmptyFilename(t *testing.T) {
	_, err := GenerateFile(context.Background(), "", nil, Options{})
	require.ErrorIs(t, err, ErrEmptyFilename)
}
