package toolkit

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/herring-swe/cmake-presets/pkg/utils"
	"github.com/herring-swe/cmake-presets/pkg/version"
)

// OneAPIComponents are the toolkit components recognized by the
// scanner, in the order their environment scripts are sourced
var OneAPIComponents = []string{"compiler", "mkl"}

// Fortran compiler selection modes for oneAPI
const (
	FortranNone  = ""      // no Fortran compiler required
	FortranAny   = "any"   // prefer ifx, fall back to ifort
	FortranIfx   = "ifx"   // require the LLVM-based ifx
	FortranIfort = "ifort" // require the classic ifort
)

type oneAPILayout struct {
	osDir     string
	scriptExt string
	exeExt    string
}

func platformLayout() oneAPILayout {
	if runtime.GOOS == "windows" {
		return oneAPILayout{osDir: "windows", scriptExt: ".bat", exeExt: ".exe"}
	}
	return oneAPILayout{osDir: "linux", scriptExt: ".sh", exeExt: ""}
}

// OneAPI is one installed Intel oneAPI version under a root directory
type OneAPI struct {
	Dir string // root directory holding the per-component trees
	Ver version.Version
	// Components maps a component name to its environment script
	Components map[string]string
	Ifort      string // classic Fortran compiler path, or empty
	Ifx        string // LLVM Fortran compiler path, or empty
}

func (o OneAPI) String() string {
	names := utils.Keys(o.Components)
	sort.Strings(names)
	return fmt.Sprintf("oneAPI %s (%s) in %s", o.Ver.String(), strings.Join(names, ", "), o.Dir)
}

// OneAPIScanner discovers Intel oneAPI installations under the
// conventional and configured root directories
type OneAPIScanner struct {
	// RootDir is searched in addition to ONEAPI_ROOT and the platform
	// default locations
	RootDir string
}

func (s OneAPIScanner) roots() []string {
	var roots []string
	if s.RootDir != "" {
		roots = append(roots, s.RootDir)
	}
	if fromEnv := os.Getenv("ONEAPI_ROOT"); fromEnv != "" {
		roots = append(roots, fromEnv)
	}
	if runtime.GOOS == "windows" {
		programFiles := os.Getenv("ProgramFiles(x86)")
		if programFiles == "" {
			programFiles = `C:\Program Files (x86)`
		}
		roots = append(roots, filepath.Join(programFiles, "Intel", "oneAPI"))
	} else {
		roots = append(roots, "/opt/intel/oneapi")
		if home, err := os.UserHomeDir(); err == nil {
			roots = append(roots, filepath.Join(home, "intel", "oneapi"))
		}
	}
	return roots
}

// Scan inspects every root for versioned component installations. A
// version is accepted when at least one component provides an
// environment script. Results are sorted newest first.
func (s OneAPIScanner) Scan() ([]OneAPI, error) {
	layout := platformLayout()

	var products []OneAPI
	for _, root := range utils.ExpandDirs(s.roots()) {
		for _, ver := range s.versionsUnder(root) {
			product := s.scanVersion(root, ver, layout)
			if product != nil {
				products = append(products, *product)
			}
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[j].Ver.Less(products[i].Ver)
	})
	return products, nil
}

// versionsUnder collects the distinct version subdirectories across all
// known component trees of a root
func (s OneAPIScanner) versionsUnder(root string) []version.Version {
	var versions []version.Version
	for _, comp := range OneAPIComponents {
		entries, err := os.ReadDir(filepath.Join(root, comp))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			ver := version.MakeSafe(entry.Name())
			if !ver.Specified() {
				continue
			}
			known := false
			for _, have := range versions {
				if have.Equal(ver) {
					known = true
					break
				}
			}
			if !known {
				versions = append(versions, ver)
			}
		}
	}
	return versions
}

func (s OneAPIScanner) scanVersion(root string, ver version.Version, layout oneAPILayout) *OneAPI {
	product := OneAPI{Dir: root, Ver: ver, Components: map[string]string{}}

	for _, comp := range OneAPIComponents {
		compDir := filepath.Join(root, comp, ver.String())
		vars := filepath.Join(compDir, "env", "vars"+layout.scriptExt)
		if info, err := os.Stat(vars); err != nil || info.IsDir() {
			continue
		}
		product.Components[comp] = vars

		if comp == "compiler" {
			binDir := filepath.Join(compDir, layout.osDir, "bin")
			ifort := filepath.Join(binDir, "intel64", "ifort"+layout.exeExt)
			if info, err := os.Stat(ifort); err == nil && !info.IsDir() {
				product.Ifort = ifort
			}
			ifx := filepath.Join(binDir, "ifx"+layout.exeExt)
			if info, err := os.Stat(ifx); err == nil && !info.IsDir() {
				product.Ifx = ifx
			}
		}
	}

	if len(product.Components) == 0 {
		slog.Debug("no usable components", "root", root, "version", ver.String())
		return nil
	}
	return &product
}

// OneAPIToolkit selects an Intel oneAPI installation and derives its
// preset environment from the component vars scripts. On Windows a
// Visual Studio environment must be established earlier in the chain.
type OneAPIToolkit struct {
	base
	Ver        version.Version
	Fortran    string // one of the Fortran* modes
	Components []string
	Scanner    OneAPIScanner

	scanned []OneAPI
	found   []OneAPI
}

// OneAPIVersion parses a oneAPI version filter of one to three
// components
func OneAPIVersion(text string) (version.Version, error) {
	if text == "" {
		return version.Version{}, nil
	}
	return version.MakeBounded(text, 1, 3)
}

// NewOneAPIToolkit builds a oneAPI toolkit. Components may be "all" or
// a subset of the known component names; the compiler component is
// implied when a Fortran compiler is requested. Name defaults to
// oneapi_<version> or oneapi_latest.
func NewOneAPIToolkit(name string, ver version.Version, fortran string, components []string, scanner OneAPIScanner) (*OneAPIToolkit, error) {
	switch fortran {
	case FortranNone, FortranAny, FortranIfx, FortranIfort:
	default:
		return nil, utils.MakeError(ErrToolkit, "unknown fortran mode %q", fortran)
	}

	if len(components) == 0 || (len(components) == 1 && components[0] == "all") {
		components = append([]string{}, OneAPIComponents...)
	} else {
		known := utils.MakeSet(OneAPIComponents...)
		for _, comp := range components {
			if !known.Contains(comp) {
				return nil, utils.MakeError(ErrToolkit, "unknown component %q", comp)
			}
		}
	}
	if fortran != FortranNone && !utils.MakeSet(components...).Contains("compiler") {
		components = append([]string{"compiler"}, components...)
	}

	if name == "" {
		if ver.Specified() {
			name = "oneapi_" + ver.Underscore()
		} else {
			name = "oneapi_latest"
		}
	}
	var required []string
	if fortran != FortranNone {
		required = append(required, "FC")
	}
	return &OneAPIToolkit{
		base:       newBase(name, required),
		Ver:        ver,
		Fortran:    fortran,
		Components: components,
		Scanner:    scanner,
	}, nil
}

func (t *OneAPIToolkit) Family() string {
	return "Intel oneAPI"
}

func (t *OneAPIToolkit) Supported() bool {
	return runtime.GOOS == "linux" || runtime.GOOS == "windows"
}

// InstanceSupported reports standalone support: on Windows the vars
// scripts assume a Visual Studio developer environment, so a oneAPI
// toolkit only works as a chain member after an MSVC toolkit
func (t *OneAPIToolkit) InstanceSupported() bool {
	if runtime.GOOS == "windows" {
		slog.Debug("oneAPI on Windows requires a Visual Studio toolkit earlier in the chain")
		return false
	}
	return t.Supported()
}

func (t *OneAPIToolkit) supportedInChain(prev []Toolkit) bool {
	if !t.Supported() {
		return false
	}
	if runtime.GOOS != "windows" {
		return true
	}
	for _, tk := range prev {
		if _, ok := tk.(*MSVCToolkit); ok {
			return true
		}
	}
	return false
}

func (t *OneAPIToolkit) PathVars() utils.Set[string] {
	vars := utils.MakeSet("CPATH", "CMAKE_PREFIX_PATH", "PKG_CONFIG_PATH")
	if runtime.GOOS == "windows" {
		vars.Add("LIB", "INCLUDE", "OCL_ICD_FILENAMES")
	} else {
		vars.Add("LD_LIBRARY_PATH", "LIBRARY_PATH", "MANPATH", "NLSPATH")
	}
	return vars
}

func (t *OneAPIToolkit) Scan() (int, error) {
	if t.state >= stateScanned {
		return len(t.scanned), nil
	}
	products, err := t.Scanner.Scan()
	if err != nil {
		return 0, err
	}
	t.scanned = products
	t.found = products
	t.state = stateScanned
	return len(products), nil
}

func (t *OneAPIToolkit) Filter() (int, error) {
	if _, err := t.Scan(); err != nil {
		return 0, err
	}
	if t.state >= stateFiltered {
		return len(t.found), nil
	}
	var found []OneAPI
	for _, product := range t.scanned {
		if t.Ver.Specified() && !t.Ver.PrefixMatch(product.Ver) {
			continue
		}
		if !t.fortranAvailable(product) {
			continue
		}
		complete := true
		for _, comp := range t.Components {
			if _, ok := product.Components[comp]; !ok {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		found = append(found, product)
	}
	t.found = found
	t.state = stateFiltered
	return len(found), nil
}

func (t *OneAPIToolkit) fortranAvailable(product OneAPI) bool {
	switch t.Fortran {
	case FortranIfx:
		return product.Ifx != ""
	case FortranIfort:
		return product.Ifort != ""
	case FortranAny:
		return product.Ifx != "" || product.Ifort != ""
	}
	return true
}

func (t *OneAPIToolkit) Select() error {
	if _, err := t.Filter(); err != nil {
		return err
	}
	if t.state >= stateSelected {
		return nil
	}
	if len(t.found) > 1 {
		t.found = t.found[:1]
	}
	t.state = stateSelected
	return nil
}

func (t *OneAPIToolkit) FoundCount() int {
	return len(t.found)
}

func (t *OneAPIToolkit) PrintResults(w io.Writer, detailed bool) {
	for _, product := range t.found {
		fmt.Fprintf(w, "  %s\n", product.String())
		if detailed {
			for _, comp := range OneAPIComponents {
				if script, ok := product.Components[comp]; ok {
					fmt.Fprintf(w, "    %s: %s\n", comp, script)
				}
			}
			if product.Ifx != "" {
				fmt.Fprintf(w, "    ifx: %s\n", product.Ifx)
			}
			if product.Ifort != "" {
				fmt.Fprintf(w, "    ifort: %s\n", product.Ifort)
			}
		}
	}
}

// EnvScript sources the selected installation's component vars scripts
// and pins FC to the requested Fortran compiler
func (t *OneAPIToolkit) EnvScript() (string, error) {
	if len(t.found) == 0 {
		return "", utils.MakeError(ErrToolkit, "no oneAPI installation selected")
	}
	product := t.found[0]

	fc := ""
	switch t.Fortran {
	case FortranIfx:
		fc = product.Ifx
	case FortranIfort:
		fc = product.Ifort
	case FortranAny:
		fc = product.Ifx
		if fc == "" {
			fc = product.Ifort
		}
	}

	var sb strings.Builder
	if runtime.GOOS == "windows" {
		sb.WriteString("@echo off\r\n")
		for _, comp := range OneAPIComponents {
			if script, ok := product.Components[comp]; ok {
				fmt.Fprintf(&sb, "call \"%s\"\r\n", script)
			}
		}
		if fc != "" {
			fmt.Fprintf(&sb, "set FC=%s\r\n", fc)
		}
	} else {
		sb.WriteString("#!/bin/sh\n")
		for _, comp := range OneAPIComponents {
			if script, ok := product.Components[comp]; ok {
				fmt.Fprintf(&sb, ". \"%s\"\n", script)
			}
		}
		if fc != "" {
			fmt.Fprintf(&sb, "FC=\"%s\"\nexport FC\n", fc)
		}
	}
	return sb.String(), nil
}

var _ Toolkit = (*OneAPIToolkit)(nil)
var _ chainMember = (*OneAPIToolkit)(nil)
