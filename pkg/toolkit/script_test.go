package toolkit

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestScriptToolkitLifecycle(t *testing.T) {
	path := writeScript(t, "env.sh", "#!/bin/sh\n")
	tk := NewShellScriptToolkit("myenv", "project environment", path, false, false, false)

	assert.Equal(t, "toolkit_myenv", tk.Name())
	assert.Equal(t, "Shell script", tk.Family())

	count, err := tk.Scan()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, tk.Select())
	assert.Equal(t, 1, tk.FoundCount())
}

func TestScriptToolkitMissingFile(t *testing.T) {
	tk := NewShellScriptToolkit("gone", "", filepath.Join(t.TempDir(), "missing.sh"), false, false, false)

	count, err := tk.Scan()
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = tk.EnvScript()
	require.ErrorIs(t, err, ErrToolkit)
}

func TestScriptToolkitRequiredVars(t *testing.T) {
	tk := NewBatScriptToolkit("b", "", "x.bat", true, true, true)
	assert.Equal(t, "Bat-file script", tk.Family())
	assert.Equal(t, []string{"CC", "CXX", "FC"}, tk.RequiredVars())
}

func TestScriptToolkitPlatformGating(t *testing.T) {
	shell := NewShellScriptToolkit("s", "", "x.sh", false, false, false)
	bat := NewBatScriptToolkit("b", "", "x.bat", false, false, false)
	if runtime.GOOS == "windows" {
		assert.False(t, shell.Supported())
		assert.True(t, bat.Supported())
	} else {
		assert.True(t, shell.Supported())
		assert.False(t, bat.Supported())
	}
}

func TestScriptToolkitPresetEndToEnd(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("runs a POSIX shell")
	}

	cc := writeScript(t, "fakecc", "#!/bin/sh\n")
	script := writeScript(t, "env.sh",
		"#!/bin/sh\n"+
			"PROJECT_HOME=/opt/project\n"+
			"export PROJECT_HOME\n"+
			"CC="+cc+"\n"+
			"export CC\n"+
			"PATH=/opt/project/bin:$PATH\n"+
			"export PATH\n")

	tk := NewShellScriptToolkit("project", "project environment", script, true, false, false)
	require.NoError(t, tk.Select())

	preset, err := PresetJSON(context.Background(), tk)
	require.NoError(t, err)

	environment, ok := preset["environment"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "/opt/project", environment["PROJECT_HOME"])
	assert.Equal(t, "/opt/project/bin:$penv{PATH}", environment["PATH"])

	cacheVars, ok := preset["cacheVariables"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, cc, cacheVars["CMAKE_C_COMPILER"])
}
