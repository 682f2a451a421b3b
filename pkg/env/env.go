// Package env implements the environment dictionary used to capture,
// diff and merge the variables a toolchain setup script introduces.
//
// PATH-like variables (PATH plus whatever a toolkit declares, such as LIB
// or LD_LIBRARY_PATH) are treated as path-separator-joined segment lists:
// diffing emits only new segments and merging prepends instead of
// replacing. Everything else is plain string replacement.
package env

import (
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/herring-swe/cmake-presets/pkg/utils"
)

// Dict maps environment variable names to values. Names are normalized to
// upper case on Windows, where the environment is case-insensitive.
type Dict map[string]string

// canonName normalizes a variable name for the current platform
func canonName(name string) string {
	if runtime.GOOS == "windows" {
		return strings.ToUpper(name)
	}
	return name
}

// Make builds an empty Dict
func Make() Dict {
	return Dict{}
}

// OS snapshots the current process environment
func OS() Dict {
	d := Dict{}
	for _, entry := range os.Environ() {
		if name, value, ok := strings.Cut(entry, "="); ok {
			d.Set(name, value)
		}
	}
	return d
}

func (d Dict) Set(name string, value string) {
	d[canonName(name)] = value
}

func (d Dict) Get(name string) string {
	return d[canonName(name)]
}

func (d Dict) Has(name string) bool {
	_, ok := d[canonName(name)]
	return ok
}

func (d Dict) Clone() Dict {
	clone := make(Dict, len(d))
	for name, value := range d {
		clone[name] = value
	}
	return clone
}

// Environ renders the dict in the NAME=VALUE form expected by os/exec
func (d Dict) Environ() []string {
	entries := make([]string, 0, len(d))
	for name, value := range d {
		entries = append(entries, name+"="+value)
	}
	return entries
}

// splitPath splits a PATH-like value into its non-empty segments
func splitPath(value string) []string {
	parts := strings.Split(strings.Trim(value, string(os.PathListSeparator)), string(os.PathListSeparator))
	return utils.Filter(parts, func(p string) bool { return p != "" })
}

// DiffPath returns the segments of current that are not present in
// baseline, joined with the platform path separator. The comparison is a
// set difference; the segments keep current's order.
func DiffPath(baseline string, current string) string {
	have := utils.MakeSet(splitPath(baseline)...)
	added := utils.Filter(splitPath(current), func(p string) bool { return !have.Contains(p) })
	return strings.Join(added, string(os.PathListSeparator))
}

// Diff compares this (post-script) environment against a baseline and
// returns only what the script introduced: variables added, and for
// changed variables either the new path segments (PATH-like) or the new
// value outright. Variables present only in the baseline are logged and
// dropped: a preset must never strip variables from the user's ambient
// environment.
func (d Dict) Diff(baseline Dict, ignore utils.Set[string], pathvars utils.Set[string]) Dict {
	vars := utils.MakeSet[string]()
	vars.Add(utils.Keys(d)...)
	vars.Add(utils.Keys(baseline)...)

	result := Dict{}
	for _, name := range utils.SortedItems(vars) {
		if ignore.Contains(name) {
			continue
		}

		current, inCurrent := d[name]
		base, inBase := baseline[name]

		switch {
		case inCurrent && inBase:
			if current == base {
				continue
			}
			if pathvars.Contains(name) || name == canonName("PATH") {
				diff := DiffPath(base, current)
				result[name] = diff
				slog.Debug("env: difference on path variable", "name", name, "value", diff)
			} else {
				result[name] = current
				slog.Warn("env: unhandled difference on variable, replacing", "name", name)
			}
		case inCurrent:
			result[name] = current
			slog.Debug("env: added new environment variable", "name", name, "value", current)
		default:
			slog.Warn("env: ignored removal of environment variable", "name", name, "value", base)
		}
	}
	return result
}

// Merge folds another environment into this one. Existing variables win,
// except PATH-like ones which are prepended with the other's segments.
func (d Dict) Merge(other Dict, pathvars utils.Set[string]) {
	for name, value := range other {
		switch {
		case !d.Has(name):
			d.Set(name, value)
		case pathvars.Contains(name) || name == canonName("PATH"):
			d.PrependPath(name, splitPath(value)...)
		}
	}
}

// AddPath appends or prepends segments to a PATH-like variable, removing
// the segments from their old position when already present
func (d Dict) AddPath(name string, append bool, values ...string) {
	var parts []string
	if d.Has(name) {
		incoming := utils.MakeSet(values...)
		parts = utils.Filter(splitPath(d.Get(name)), func(p string) bool { return !incoming.Contains(p) })
	}

	if append {
		parts = concat(parts, values)
	} else {
		parts = concat(values, parts)
	}
	d.Set(name, strings.Join(parts, string(os.PathListSeparator)))
}

// PrependPath puts segments at the front of a PATH-like variable
func (d Dict) PrependPath(name string, values ...string) {
	d.AddPath(name, false, values...)
}

// AppendPath puts segments at the back of a PATH-like variable
func (d Dict) AppendPath(name string, values ...string) {
	d.AddPath(name, true, values...)
}

func concat(a []string, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
