// Package toolkit implements discovery of installed compiler toolchains
// and turns a selected installation into a CMake configure preset.
//
// Every toolchain family (GCC, MSVC, Intel oneAPI, user scripts) follows
// the same lifecycle: Scan caches the raw installations found on the
// machine, Filter applies the configured version specification and
// capability requirements, Select keeps the single best candidate, and the
// preset environment is resolved lazily (and memoized) when the preset
// JSON is first requested. Toolkits compose into a Chain whose members'
// environments are layered left to right.
package toolkit

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/herring-swe/cmake-presets/pkg/env"
	"github.com/herring-swe/cmake-presets/pkg/utils"
)

var (
	// ErrScan means a family scanner could not complete its discovery
	// pass. Finding nothing is not a scan error.
	ErrScan = errors.New("scan error")
	// ErrToolkit wraps any expected toolkit-level failure
	ErrToolkit = errors.New("toolkit error")
)

// CommandRunner executes an external command and returns its standard
// output. Scanners take it as a value so tests can substitute canned
// responses for compiler and installer queries.
type CommandRunner func(name string, args ...string) ([]byte, error)

// RunCommand is the CommandRunner used outside of tests
func RunCommand(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// scanState tracks the lifecycle position of a toolkit
type scanState int

const (
	stateUnscanned scanState = iota
	stateScanned
	stateFiltered
	stateSelected
)

// envState memoizes a toolkit's resolved environment
type envState struct {
	resolved bool
	result   env.Dict
}

// Toolkit is a toolchain family configuration bound to the shared
// scan/filter/select lifecycle. The set of implementations is closed:
// GCCToolkit, MSVCToolkit, OneAPIToolkit, ScriptToolkit and Chain.
type Toolkit interface {
	// Name returns the preset name, always prefixed "toolkit_"
	Name() string
	// Family returns the human readable toolchain family name
	Family() string
	// Supported reports whether the family works on this platform
	Supported() bool
	// InstanceSupported reports whether this particular configuration
	// works on this platform
	InstanceSupported() bool
	// RequiredVars lists environment variables that must resolve in the
	// final environment; failure to resolve one is fatal for the toolkit
	RequiredVars() []string

	// Scan caches the raw installations found on the machine. Repeat
	// calls return the cached count.
	Scan() (int, error)
	// Filter narrows the scan results by version spec and capabilities,
	// scanning first when needed
	Filter() (int, error)
	// Select keeps only the single best candidate, filtering first when
	// needed. Nested multi-version collections are narrowed too.
	Select() error
	// FoundCount returns the number of candidates after the most recent
	// lifecycle step
	FoundCount() int
	// PrintResults writes the current candidates in human readable form
	PrintResults(w io.Writer, detailed bool)

	// PathVars lists PATH-like variables beyond PATH itself
	PathVars() utils.Set[string]
	// IgnoreVars lists variables dropped from captured environments
	IgnoreVars() utils.Set[string]
	// EnvScript returns the vendor environment setup script to execute,
	// or the empty string when the toolkit sets its environment directly
	EnvScript() (string, error)
	// PostEnv manually adds variables after the script diff
	PostEnv(e env.Dict)
	// CacheVars returns the CMake cache variables for the preset
	CacheVars(e env.Dict) (map[string]any, error)
	// BaseJSON returns the preset skeleton, valid on every platform
	BaseJSON() map[string]any

	envState() *envState
}

// chainMember is implemented by toolkits whose platform support depends
// on what runs before them in a chain
type chainMember interface {
	supportedInChain(prev []Toolkit) bool
}

// base carries the identity and memoization shared by all toolkits
type base struct {
	name     string
	required []string
	state    scanState
	env      envState
}

func newBase(name string, required []string) base {
	return base{name: "toolkit_" + name, required: required}
}

func (b *base) Name() string {
	return b.name
}

func (b *base) RequiredVars() []string {
	return b.required
}

func (b *base) envState() *envState {
	return &b.env
}

func (b *base) PathVars() utils.Set[string] {
	return utils.MakeSet[string]()
}

func (b *base) IgnoreVars() utils.Set[string] {
	return utils.MakeSet[string]()
}

func (b *base) PostEnv(env.Dict) {}

func (b *base) EnvScript() (string, error) {
	return "", nil
}

func (b *base) BaseJSON() map[string]any {
	return map[string]any{
		"name":   b.name,
		"hidden": true,
	}
}

// CacheVars resolves the conventional CC/CXX/FC variables into their
// CMake counterparts
func (b *base) CacheVars(e env.Dict) (map[string]any, error) {
	return compilerCacheVars(e, b.required)
}

// compilerCacheVars maps CC, CXX and FC to CMAKE_*_COMPILER cache
// variables. Relative values are resolved against the environment's own
// PATH; paths are normalized to forward slashes. A variable listed in
// required that cannot be resolved is a fatal toolkit error.
func compilerCacheVars(e env.Dict, required []string) (map[string]any, error) {
	mapping := []struct {
		name     string
		desc     string
		cacheVar string
	}{
		{"CC", "C compiler", "CMAKE_C_COMPILER"},
		{"CXX", "C++ compiler", "CMAKE_CXX_COMPILER"},
		{"FC", "Fortran compiler", "CMAKE_Fortran_COMPILER"},
	}

	vars := map[string]any{}
	for _, m := range mapping {
		value, err := resolveExe(m.name, m.desc, e, required)
		if err != nil {
			return nil, err
		}
		if value != "" {
			vars[m.cacheVar] = filepath.ToSlash(value)
		}
	}
	return vars, nil
}

// resolveExe resolves an executable referenced by an environment variable
// to an absolute path, searching the environment's PATH when needed
func resolveExe(name string, desc string, e env.Dict, required []string) (string, error) {
	value := e.Get(name)
	if value != "" && !filepath.IsAbs(value) && e.Has("PATH") {
		value = lookPath(value, e.Get("PATH"))
	}
	if value == "" {
		for _, req := range required {
			if req == name {
				return "", utils.MakeError(ErrToolkit, "could not resolve %s", desc)
			}
		}
	}
	return value, nil
}

// lookPath searches a PATH-like value for an executable, independent of
// the process's own PATH
func lookPath(file string, pathList string) string {
	names := []string{file}
	if runtime.GOOS == "windows" && filepath.Ext(file) == "" {
		names = []string{file + ".exe", file + ".bat", file + ".cmd"}
	}

	for _, dir := range strings.Split(pathList, string(filepath.ListSeparator)) {
		if dir == "" {
			continue
		}
		for _, name := range names {
			fn := filepath.Join(dir, name)
			if info, err := os.Stat(fn); err == nil && !info.IsDir() {
				if runtime.GOOS == "windows" || utils.IsExecutable(info.Mode()) {
					return fn
				}
			}
		}
	}
	return ""
}

// ResolveEnvironment computes the environment a toolkit contributes on
// top of the given baseline: the setup script is executed under the
// baseline and the resulting delta is kept, then PostEnv additions are
// applied. The result is memoized per toolkit instance; later calls
// return the first result regardless of baseline. Chains resolve their
// members sequentially instead (see Chain).
func ResolveEnvironment(ctx context.Context, tk Toolkit, baseline env.Dict) (env.Dict, error) {
	if chain, ok := tk.(*Chain); ok {
		return chain.resolveMembers(ctx)
	}
	return resolveScriptEnv(ctx, tk, baseline)
}

func resolveScriptEnv(ctx context.Context, tk Toolkit, baseline env.Dict) (env.Dict, error) {
	state := tk.envState()
	if state.resolved {
		return state.result, nil
	}

	script, err := tk.EnvScript()
	if err != nil {
		return nil, err
	}

	result := env.Make()
	if script != "" {
		ignore := tk.IgnoreVars()
		if runtime.GOOS == "linux" {
			ignore.Add("_", "SHLVL")
		}
		pathvars := tk.PathVars()

		post, err := env.ExecuteScript(ctx, script, baseline)
		if err != nil {
			return nil, utils.MakeError(ErrToolkit, "failed to run environment script for %s: %v", tk.Name(), err)
		}
		result = post.Diff(baseline, ignore, pathvars)
	}
	tk.PostEnv(result)

	state.result = result
	state.resolved = true
	return result, nil
}

// PresetJSON assembles the complete configure-preset entry for a
// selected toolkit: the base skeleton, the resolved environment (with
// PATH-like entries referencing the parent environment through the
// $penv{} placeholder) and the CMake cache variables.
func PresetJSON(ctx context.Context, tk Toolkit) (map[string]any, error) {
	preset := tk.BaseJSON()

	resolved, err := ResolveEnvironment(ctx, tk, env.OS())
	if err != nil {
		return nil, err
	}

	if len(resolved) > 0 {
		out := resolved.Clone()
		pathvars := tk.PathVars()
		for _, name := range utils.Keys(out) {
			if name == "PATH" || pathvars.Contains(name) {
				out.AppendPath(name, "$penv{"+name+"}")
			}
		}
		preset["environment"] = map[string]string(out)
	}

	cacheVars, err := tk.CacheVars(resolved)
	if err != nil {
		return nil, err
	}
	if len(cacheVars) > 0 {
		preset["cacheVariables"] = cacheVars
	}
	return preset, nil
}
