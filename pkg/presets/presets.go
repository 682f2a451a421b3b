// Package presets reads, merges and writes CMake preset documents.
//
// Documents are kept as generic JSON maps so fields this tool does not
// know about survive a read-modify-write cycle of an existing
// CMakeUserPresets.json.
package presets

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/herring-swe/cmake-presets/pkg/env"
	"github.com/herring-swe/cmake-presets/pkg/utils"
)

var ErrRead = errors.New("cannot read preset file")

// SchemaVersion is written to new preset documents
const SchemaVersion = 7

// MergeMode decides what happens when a preset with the same name
// already exists in the document
type MergeMode int

const (
	// Keep leaves the existing preset untouched
	Keep MergeMode = iota
	// Merge folds the new preset into the existing one, existing keys win
	Merge
	// Replace swaps the existing preset out entirely
	Replace
)

// NewDoc returns an empty preset document
func NewDoc() map[string]any {
	return map[string]any{
		"version":          SchemaVersion,
		"configurePresets": []any{},
	}
}

// Load reads a preset document from disk
func Load(filename string) (map[string]any, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, utils.MakeError(ErrRead, "%v", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, utils.MakeError(ErrRead, "%s: %v", filename, err)
	}
	return data, nil
}

// Save writes a preset document with four-space indentation
func Save(filename string, data map[string]any) error {
	raw, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, raw, 0o644)
}

// AddPreset inserts a configure preset into the document, resolving a
// name collision according to mode
func AddPreset(data map[string]any, preset map[string]any, mode MergeMode) {
	list, ok := data["configurePresets"].([]any)
	if !ok {
		data["configurePresets"] = []any{preset}
		return
	}
	name, _ := preset["name"].(string)
	for idx, entry := range list {
		existing, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if existing["name"] == name {
			switch mode {
			case Merge:
				MergePresets(existing, preset)
			case Replace:
				list[idx] = preset
			}
			return
		}
	}
	data["configurePresets"] = append(list, preset)
}

// FindPreset returns the configure preset with the given name, or nil
func FindPreset(data map[string]any, name string) map[string]any {
	list, _ := data["configurePresets"].([]any)
	for _, entry := range list {
		if preset, ok := entry.(map[string]any); ok && preset["name"] == name {
			return preset
		}
	}
	return nil
}

// MergePresets folds src into dst keeping dst on conflict. The
// environment and cacheVariables sections merge key-wise; environment
// PATH entries are prepended segment-wise instead of replaced.
func MergePresets(dst map[string]any, src map[string]any) {
	for key, value := range src {
		if _, exists := dst[key]; !exists {
			dst[key] = value
			continue
		}
		switch key {
		case "environment":
			merged := toEnvDict(dst[key])
			merged.Merge(toEnvDict(value), utils.MakeSet[string]())
			dst[key] = map[string]string(merged)
		case "cacheVariables":
			dstVars := toAnyMap(dst[key])
			for name, v := range toAnyMap(value) {
				if _, exists := dstVars[name]; !exists {
					dstVars[name] = v
				}
			}
			dst[key] = dstVars
		}
	}
}

// toEnvDict accepts both freshly generated map[string]string sections
// and map[string]any read back from JSON
func toEnvDict(value any) env.Dict {
	out := env.Make()
	switch section := value.(type) {
	case map[string]string:
		for name, v := range section {
			out.Set(name, v)
		}
	case env.Dict:
		for name, v := range section {
			out.Set(name, v)
		}
	case map[string]any:
		for name, v := range section {
			if s, ok := v.(string); ok {
				out.Set(name, s)
			}
		}
	}
	return out
}

func toAnyMap(value any) map[string]any {
	switch section := value.(type) {
	case map[string]any:
		return section
	case map[string]string:
		out := make(map[string]any, len(section))
		for name, v := range section {
			out[name] = v
		}
		return out
	}
	return map[string]any{}
}
