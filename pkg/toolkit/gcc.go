package toolkit

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/herring-swe/cmake-presets/pkg/env"
	"github.com/herring-swe/cmake-presets/pkg/utils"
	"github.com/herring-swe/cmake-presets/pkg/version"
)

// gccDefaultDirs are the roots searched when no directories are given
var gccDefaultDirs = []string{"/bin", "/usr/bin", "/usr/local", "/opt", "~"}

// reGCCBinary matches GCC executable names: an optional target triple
// prefix, the tool name, and an optional version suffix
var reGCCBinary = regexp.MustCompile(`^([a-zA-Z0-9_]+-[a-zA-Z0-9_\-]+-)?(gcc|g\+\+|gfortran)(-[0-9.]+)?$`)

// GCC describes one verified GCC installation: a directory plus the
// sibling executable names that probed successfully
type GCC struct {
	Dir     string
	CC      string // gcc executable name, always set
	CXX     string // g++ executable name, or empty
	Fortran string // gfortran executable name, or empty
	Ver     version.Version
	Machine string // output of -dumpmachine
}

func (g GCC) CCPath() string {
	return filepath.Join(g.Dir, g.CC)
}

func (g GCC) CXXPath() string {
	if g.CXX == "" {
		return ""
	}
	return filepath.Join(g.Dir, g.CXX)
}

func (g GCC) FortranPath() string {
	if g.Fortran == "" {
		return ""
	}
	return filepath.Join(g.Dir, g.Fortran)
}

// metaEqual reports whether two installations point at the same compiler:
// same directory, version and target machine, regardless of which
// executable spellings were found
func (g GCC) metaEqual(o GCC) bool {
	return g.Dir == o.Dir && g.Ver.Equal(o.Ver) && g.Machine == o.Machine
}

// less orders installations by version, then machine, then Fortran
// capability (lacking Fortran sorts first)
func (g GCC) less(o GCC) bool {
	if !g.Ver.Equal(o.Ver) {
		return g.Ver.Less(o.Ver)
	}
	if g.Machine != o.Machine {
		return g.Machine < o.Machine
	}
	if (g.Fortran != "") != (o.Fortran != "") {
		return o.Fortran != ""
	}
	return false
}

// nameLen measures the combined executable name length, used to prefer
// the shortest spelling among duplicates
func (g GCC) nameLen() int {
	return len(g.CC) + len(g.CXX) + len(g.Fortran)
}

func (g GCC) String() string {
	return fmt.Sprintf("gcc %s (%s) in %s", g.Ver.String(), g.Machine, g.Dir)
}

// probe verifies one executable: --version output identifying the Free
// Software Foundation, an authoritative version from -dumpfullversion,
// and a consistent target machine across siblings. Returns false when
// the executable is not a genuine GCC tool.
func (g *GCC) probe(run CommandRunner, name string) bool {
	if name == "" {
		return false
	}
	fn := filepath.Join(g.Dir, name)

	out, err := run(fn, "--version")
	if err != nil {
		return false
	}
	lines := outputLines(out)
	if len(lines) < 2 || !strings.Contains(lines[1], "Free Software Foundation") {
		return false
	}

	out, err = run(fn, "-dumpfullversion", "-dumpversion")
	if err != nil {
		return false
	}
	lines = outputLines(out)
	if len(lines) != 1 {
		return false
	}
	ver := version.MakeSafeBounded(lines[0], 3, 4)
	if !ver.Specified() {
		return false
	}
	if g.Ver.Specified() && !g.Ver.Equal(ver) {
		slog.Warn("sibling version mismatch",
			"executable", fn, "version", ver.String(), "expected", g.Ver.String())
		return false
	}
	g.Ver = ver

	if g.Machine == "" {
		out, err = run(fn, "-dumpmachine")
		if err != nil {
			return false
		}
		lines = outputLines(out)
		if len(lines) != 1 || lines[0] == "" {
			return false
		}
		g.Machine = lines[0]
	}
	return true
}

// setBinaries probes the candidate executables found under one
// directory. The C compiler must verify; C++ and Fortran are optional
// and cleared when they fail.
func (g *GCC) setBinaries(run CommandRunner, cc, cxx, fortran string) bool {
	if !g.probe(run, cc) {
		return false
	}
	g.CC = cc
	if g.probe(run, cxx) {
		g.CXX = cxx
	}
	if g.probe(run, fortran) {
		g.Fortran = fortran
	}
	return true
}

func outputLines(out []byte) []string {
	text := strings.TrimRight(string(out), "\r\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

// GCCScanner walks binary directories for GCC installations
type GCCScanner struct {
	// Dirs replaces the default search roots when non-empty
	Dirs []string
	// ExtraDirs extends the search roots
	ExtraDirs []string
	// Run substitutes compiler invocation in tests; nil means RunCommand
	Run CommandRunner
}

// Scan walks the configured roots recursively, groups candidate
// executables per directory and target prefix, probes each group and
// returns verified installations deduplicated and sorted best first.
// Unreadable directories are logged and skipped; symlinked executables
// are ignored.
func (s GCCScanner) Scan() ([]GCC, error) {
	run := s.Run
	if run == nil {
		run = RunCommand
	}

	dirs := s.Dirs
	if len(dirs) == 0 {
		dirs = gccDefaultDirs
	}
	dirs = append(dirs, s.ExtraDirs...)

	var products []GCC
	for _, root := range utils.ExpandDirs(dirs) {
		products = append(products, scanGCCRoot(root, run)...)
	}

	products = dedupGCC(products)
	sort.SliceStable(products, func(i, j int) bool {
		return products[j].less(products[i])
	})
	return products, nil
}

// gccGroup collects the executable spellings sharing one target prefix
// and version suffix inside a directory
type gccGroup struct {
	cc, cxx, fortran string
}

func scanGCCRoot(root string, run CommandRunner) []GCC {
	groups := map[string]map[string]*gccGroup{}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		m := reGCCBinary.FindStringSubmatch(entry.Name())
		if m == nil {
			return nil
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, ierr := entry.Info()
		if ierr != nil || !utils.IsExecutable(info.Mode()) {
			return nil
		}

		dir := filepath.Dir(path)
		key := m[1] + "|" + m[3] // target prefix and version suffix
		if groups[dir] == nil {
			groups[dir] = map[string]*gccGroup{}
		}
		group := groups[dir][key]
		if group == nil {
			group = &gccGroup{}
			groups[dir][key] = group
		}
		switch m[2] {
		case "gcc":
			group.cc = entry.Name()
		case "g++":
			group.cxx = entry.Name()
		case "gfortran":
			group.fortran = entry.Name()
		}
		return nil
	})
	if err != nil {
		slog.Warn("directory walk aborted", "root", root, "error", err)
	}

	var products []GCC
	for dir, byKey := range groups {
		for _, group := range byKey {
			product := GCC{Dir: dir}
			if product.setBinaries(run, group.cc, group.cxx, group.fortran) {
				products = append(products, product)
			}
		}
	}
	return products
}

// dedupGCC collapses installations that resolve to the same compiler,
// preferring Fortran-capable entries and then the shortest executable
// spellings
func dedupGCC(products []GCC) []GCC {
	var out []GCC
	for _, product := range products {
		replaced := false
		for i, kept := range out {
			if !kept.metaEqual(product) {
				continue
			}
			keep := kept
			if (product.Fortran != "") && (kept.Fortran == "") {
				keep = product
			} else if (product.Fortran != "") == (kept.Fortran != "") && product.nameLen() < kept.nameLen() {
				keep = product
			}
			out[i] = keep
			replaced = true
			break
		}
		if !replaced {
			out = append(out, product)
		}
	}
	return out
}

// GCCToolkit selects a GCC installation and exposes it through CC, CXX
// and optionally FC plus a PATH entry. No vendor script is involved.
type GCCToolkit struct {
	base
	Ver         version.Version
	WithCXX     bool
	WithFortran bool
	Scanner     GCCScanner

	scanned []GCC
	found   []GCC
}

// GCCVersion parses a GCC version filter of one to three components
func GCCVersion(text string) (version.Version, error) {
	if text == "" {
		return version.Version{}, nil
	}
	return version.MakeBounded(text, 1, 3)
}

// NewGCCToolkit builds a GCC toolkit. An unspecified version means
// latest; name defaults to gcc<version joined without dots> or
// gcc_latest.
func NewGCCToolkit(name string, ver version.Version, withCXX bool, withFortran bool, scanner GCCScanner) *GCCToolkit {
	if name == "" {
		if ver.Specified() {
			name = "gcc" + ver.Join("")
		} else {
			name = "gcc_latest"
		}
	}
	required := []string{"CC", "CXX"}
	if withFortran {
		required = append(required, "FC")
	}
	return &GCCToolkit{
		base:        newBase(name, required),
		Ver:         ver,
		WithCXX:     withCXX,
		WithFortran: withFortran,
		Scanner:     scanner,
	}
}

func (t *GCCToolkit) Family() string {
	return "GCC"
}

func (t *GCCToolkit) Supported() bool {
	return runtime.GOOS == "linux"
}

func (t *GCCToolkit) InstanceSupported() bool {
	return t.Supported()
}

func (t *GCCToolkit) Scan() (int, error) {
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

func (t *GCCToolkit) Filter() (int, error) {
	if _, err := t.Scan(); err != nil {
		return 0, err
	}
	if t.state >= stateFiltered {
		return len(t.found), nil
	}
	var found []GCC
	for _, product := range t.scanned {
		if t.WithCXX && product.CXX == "" {
			continue
		}
		if t.WithFortran && product.Fortran == "" {
			continue
		}
		if t.Ver.Specified() && !t.Ver.PrefixMatch(product.Ver) {
			continue
		}
		found = append(found, product)
	}
	t.found = found
	t.state = stateFiltered
	return len(found), nil
}

func (t *GCCToolkit) Select() error {
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

func (t *GCCToolkit) FoundCount() int {
	return len(t.found)
}

func (t *GCCToolkit) PrintResults(w io.Writer, detailed bool) {
	for _, product := range t.found {
		fmt.Fprintf(w, "  %s\n", product.String())
		if detailed {
			fmt.Fprintf(w, "    CC: %s\n", product.CCPath())
			if product.CXX != "" {
				fmt.Fprintf(w, "    CXX: %s\n", product.CXXPath())
			}
			if product.Fortran != "" {
				fmt.Fprintf(w, "    FC: %s\n", product.FortranPath())
			}
		}
	}
}

// PostEnv publishes the selected installation directly: there is no
// vendor script to diff
func (t *GCCToolkit) PostEnv(e env.Dict) {
	if len(t.found) == 0 {
		return
	}
	product := t.found[0]
	e.PrependPath("PATH", product.Dir)
	e.Set("CC", product.CCPath())
	if product.CXX != "" {
		e.Set("CXX", product.CXXPath())
	}
	if t.WithFortran && product.Fortran != "" {
		e.Set("FC", product.FortranPath())
	}
}

var _ Toolkit = (*GCCToolkit)(nil)
var _ Toolkit = (*Chain)(nil)
