package presets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPresetAppends(t *testing.T) {
	data := NewDoc()
	AddPreset(data, map[string]any{"name": "a"}, Keep)
	AddPreset(data, map[string]any{"name": "b"}, Keep)

	list := data["configurePresets"].([]any)
	require.Len(t, list, 2)
	assert.NotNil(t, FindPreset(data, "a"))
	assert.NotNil(t, FindPreset(data, "b"))
	assert.Nil(t, FindPreset(data, "c"))
}

func TestAddPresetKeepLeavesExisting(t *testing.T) {
	data := NewDoc()
	AddPreset(data, map[string]any{"name": "a", "hidden": true}, Keep)
	AddPreset(data, map[string]any{"name": "a", "hidden": false}, Keep)

	preset := FindPreset(data, "a")
	require.NotNil(t, preset)
	assert.Equal(t, true, preset["hidden"])
}

func TestAddPresetReplace(t *testing.T) {
	data := NewDoc()
	AddPreset(data, map[string]any{"name": "a", "hidden": true}, Keep)
	AddPreset(data, map[string]any{"name": "a", "hidden": false}, Replace)

	preset := FindPreset(data, "a")
	require.NotNil(t, preset)
	assert.Equal(t, false, preset["hidden"])
}

func TestAddPresetWithoutList(t *testing.T) {
	data := map[string]any{"version": SchemaVersion}
	AddPreset(data, map[string]any{"name": "a"}, Keep)
	assert.NotNil(t, FindPreset(data, "a"))
}

func TestMergePresetsKeepsExistingKeys(t *testing.T) {
	dst := map[string]any{
		"name":      "a",
		"generator": "Ninja",
	}
	MergePresets(dst, map[string]any{
		"name":      "a",
		"generator": "Makefiles",
		"binaryDir": "build",
	})

	assert.Equal(t, "Ninja", dst["generator"])
	assert.Equal(t, "build", dst["binaryDir"])
}

func TestMergePresetsEnvironment(t *testing.T) {
	dst := map[string]any{
		"name": "a",
		"environment": map[string]any{
			"KEEP": "old",
			"PATH": "/first",
		},
	}
	MergePresets(dst, map[string]any{
		"name": "a",
		"environment": map[string]string{
			"KEEP": "new",
			"NEW":  "added",
			"PATH": "/second",
		},
	})

	environment := dst["environment"].(map[string]string)
	assert.Equal(t, "old", environment["KEEP"])
	assert.Equal(t, "added", environment["NEW"])
	// path segments accumulate instead of replacing
	assert.Contains(t, environment["PATH"], "/first")
	assert.Contains(t, environment["PATH"], "/second")
}

func TestMergePresetsCacheVariables(t *testing.T) {
	dst := map[string]any{
		"name": "a",
		"cacheVariables": map[string]any{
			"CMAKE_C_COMPILER": "/usr/bin/cc",
		},
	}
	MergePresets(dst, map[string]any{
		"name": "a",
		"cacheVariables": map[string]any{
			"CMAKE_C_COMPILER":   "/usr/bin/other",
			"CMAKE_CXX_COMPILER": "/usr/bin/c++",
		},
	})

	cacheVars := dst["cacheVariables"].(map[string]any)
	assert.Equal(t, "/usr/bin/cc", cacheVars["CMAKE_C_COMPILER"])
	assert.Equal(t, "/usr/bin/c++", cacheVars["CMAKE_CXX_COMPILER"])
}
