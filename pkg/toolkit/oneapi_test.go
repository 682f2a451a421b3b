package toolkit

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herring-swe/cmake-presets/pkg/version"
)

// fakeOneAPIRoot lays out an installation root with the given versions.
// Versions listed in fortran get ifx and ifort executables.
func fakeOneAPIRoot(t *testing.T, versions []string, fortran []string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test tree uses the Linux layout")
	}
	t.Setenv("ONEAPI_ROOT", "")
	root := t.TempDir()
	for _, ver := range versions {
		for _, comp := range []string{"compiler", "mkl"} {
			envDir := filepath.Join(root, comp, ver, "env")
			require.NoError(t, os.MkdirAll(envDir, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(envDir, "vars.sh"), []byte("#!/bin/sh\n"), 0o755))
		}
	}
	for _, ver := range fortran {
		binDir := filepath.Join(root, "compiler", ver, "linux", "bin")
		require.NoError(t, os.MkdirAll(filepath.Join(binDir, "intel64"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(binDir, "ifx"), []byte(""), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(binDir, "intel64", "ifort"), []byte(""), 0o755))
	}
	return root
}

func TestOneAPIScanFindsVersions(t *testing.T) {
	root := fakeOneAPIRoot(t, []string{"2024.1", "2023.2"}, []string{"2024.1"})
	scanner := OneAPIScanner{RootDir: root}

	products, err := scanner.Scan()
	require.NoError(t, err)
	require.Len(t, products, 2)
	// newest first
	assert.True(t, products[0].Ver.Equal(version.New(2024, 1)))
	assert.True(t, products[1].Ver.Equal(version.New(2023, 2)))

	assert.Contains(t, products[0].Components, "compiler")
	assert.Contains(t, products[0].Components, "mkl")
	assert.NotEmpty(t, products[0].Ifx)
	assert.NotEmpty(t, products[0].Ifort)
	assert.Empty(t, products[1].Ifx)
}

func TestOneAPIScanIgnoresVersionsWithoutScripts(t *testing.T) {
	root := fakeOneAPIRoot(t, []string{"2024.1"}, nil)
	// version directory exists but carries no env script
	require.NoError(t, os.MkdirAll(filepath.Join(root, "compiler", "2022.3"), 0o755))

	products, err := OneAPIScanner{RootDir: root}.Scan()
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Ver.Equal(version.New(2024, 1)))
}

func makeOneAPIToolkit(t *testing.T, root, ver, fortran string, components []string) *OneAPIToolkit {
	t.Helper()
	parsed, err := OneAPIVersion(ver)
	require.NoError(t, err)
	tk, err := NewOneAPIToolkit("", parsed, fortran, components, OneAPIScanner{RootDir: root})
	require.NoError(t, err)
	return tk
}

func TestOneAPIToolkitRejectsBadConfig(t *testing.T) {
	_, err := NewOneAPIToolkit("", version.Version{}, "gfortran", nil, OneAPIScanner{})
	require.ErrorIs(t, err, ErrToolkit)
	_, err = NewOneAPIToolkit("", version.Version{}, FortranNone, []string{"tbb"}, OneAPIScanner{})
	require.ErrorIs(t, err, ErrToolkit)
}

func TestOneAPIToolkitImpliesCompilerForFortran(t *testing.T) {
	tk, err := NewOneAPIToolkit("", version.Version{}, FortranAny, []string{"mkl"}, OneAPIScanner{})
	require.NoError(t, err)
	assert.Equal(t, []string{"compiler", "mkl"}, tk.Components)
	assert.Equal(t, []string{"FC"}, tk.RequiredVars())
}

func TestOneAPIToolkitFilterByVersion(t *testing.T) {
	root := fakeOneAPIRoot(t, []string{"2024.1", "2023.2"}, nil)
	tk := makeOneAPIToolkit(t, root, "2023", FortranNone, nil)

	count, err := tk.Filter()
	require.NoError(t, err)
	require.Equal(t, 1, count)
	assert.True(t, tk.found[0].Ver.Equal(version.New(2023, 2)))
}

func TestOneAPIToolkitFilterByFortran(t *testing.T) {
	root := fakeOneAPIRoot(t, []string{"2024.1", "2023.2"}, []string{"2024.1"})

	tk := makeOneAPIToolkit(t, root, "", FortranIfx, nil)
	count, err := tk.Filter()
	require.NoError(t, err)
	require.Equal(t, 1, count)
	assert.True(t, tk.found[0].Ver.Equal(version.New(2024, 1)))

	tk = makeOneAPIToolkit(t, root, "", FortranNone, nil)
	count, err = tk.Filter()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOneAPIToolkitEnvScript(t *testing.T) {
	root := fakeOneAPIRoot(t, []string{"2024.1"}, []string{"2024.1"})
	tk := makeOneAPIToolkit(t, root, "", FortranAny, nil)
	require.NoError(t, tk.Select())

	script, err := tk.EnvScript()
	require.NoError(t, err)
	assert.Contains(t, script, filepath.Join("compiler", "2024.1", "env", "vars.sh"))
	assert.Contains(t, script, filepath.Join("mkl", "2024.1", "env", "vars.sh"))
	// ifx preferred over ifort
	assert.Contains(t, script, "FC=\""+filepath.Join(root, "compiler", "2024.1", "linux", "bin", "ifx")+"\"")
}

func TestOneAPIToolkitEnvScriptWithoutSelection(t *testing.T) {
	tk := makeOneAPIToolkit(t, t.TempDir(), "", FortranNone, nil)
	_, err := tk.EnvScript()
	require.ErrorIs(t, err, ErrToolkit)
}

func TestOneAPIToolkitNames(t *testing.T) {
	ver, err := OneAPIVersion("2024.1")
	require.NoError(t, err)
	tk, err := NewOneAPIToolkit("", ver, FortranNone, nil, OneAPIScanner{})
	require.NoError(t, err)
	assert.Equal(t, "toolkit_oneapi_2024_1", tk.Name())

	tk, err = NewOneAPIToolkit("", version.Version{}, FortranNone, nil, OneAPIScanner{})
	require.NoError(t, err)
	assert.Equal(t, "toolkit_oneapi_latest", tk.Name())
}
