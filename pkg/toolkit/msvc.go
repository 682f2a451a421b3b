package toolkit

import (
	"encoding/json"
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

// msvcEditions are the Visual Studio product editions recognized when
// parsing installer output
var msvcEditions = utils.MakeSet("community", "professional", "enterprise", "buildtools")

// msvcProductLines are the supported Visual Studio product line versions
var msvcProductLines = utils.MakeSet("2017", "2019", "2022")

// msvcToolsetRanges maps platform toolset shorthands to the MSVC tools
// version ranges they denote
var msvcToolsetRanges = map[string]string{
	"v141": ">=14.10,<14.20",
	"v142": ">=14.20,<14.30",
	"v143": ">=14.30,<14.40",
}

// BuildTool is one MSVC build-tools directory inside a Visual Studio
// installation, with the host/target combinations it provides
type BuildTool struct {
	Dir      string
	Ver      version.Version
	X86Tools []string // target architectures under bin/Hostx86
	X64Tools []string // target architectures under bin/Hostx64
}

// NewBuildTool inspects one VC/Tools/MSVC version directory
func NewBuildTool(dir string, ver version.Version) BuildTool {
	bt := BuildTool{Dir: dir, Ver: ver}
	bt.X86Tools = listSubdirs(filepath.Join(dir, "bin", "Hostx86"))
	bt.X64Tools = listSubdirs(filepath.Join(dir, "bin", "Hostx64"))
	return bt
}

// ToolNames lists provided combinations: bare target when host and
// target match, host_target otherwise
func (b BuildTool) ToolNames() []string {
	var names []string
	for host, targets := range map[string][]string{"x86": b.X86Tools, "x64": b.X64Tools} {
		for _, target := range targets {
			if host == target {
				names = append(names, target)
			} else {
				names = append(names, host+"_"+target)
			}
		}
	}
	sort.Strings(names)
	return names
}

func listSubdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}

// MSVC is one validated Visual Studio installation as reported by the
// vswhere installer query
type MSVC struct {
	InstanceID  string
	ProductID   string
	InstallDir  string
	DisplayName string
	ProductVer  version.Version // product line, e.g. 2022
	DisplayVer  version.Version
	FullVer     version.Version
	BuildTools  []BuildTool // sorted newest first
}

func (m MSVC) String() string {
	return fmt.Sprintf("%s (%s) in %s", m.DisplayName, m.DisplayVer.String(), m.InstallDir)
}

// vswhereProduct is the subset of the vswhere JSON schema we consume
type vswhereProduct struct {
	InstanceID       string `json:"instanceId"`
	ProductID        string `json:"productId"`
	InstallationPath string `json:"installationPath"`
	DisplayName      string `json:"displayName"`
	Catalog          struct {
		ProductLineVersion    string `json:"productLineVersion"`
		ProductDisplayVersion string `json:"productDisplayVersion"`
		BuildVersion          string `json:"buildVersion"`
	} `json:"catalog"`
}

// makeMSVC validates one installer record. Returns nil for products that
// are not a supported Visual Studio edition or are incomplete.
func makeMSVC(raw vswhereProduct) *MSVC {
	parts := strings.Split(strings.ToLower(raw.ProductID), ".")
	if len(parts) != 4 || parts[0] != "microsoft" || parts[1] != "visualstudio" ||
		parts[2] != "product" || !msvcEditions.Contains(parts[3]) {
		return nil
	}
	if !msvcProductLines.Contains(raw.Catalog.ProductLineVersion) {
		slog.Debug("unsupported product line", "product", raw.DisplayName,
			"line", raw.Catalog.ProductLineVersion)
		return nil
	}

	product := MSVC{
		InstanceID:  raw.InstanceID,
		ProductID:   raw.ProductID,
		InstallDir:  raw.InstallationPath,
		DisplayName: raw.DisplayName,
		ProductVer:  version.MakeSafe(raw.Catalog.ProductLineVersion),
		DisplayVer:  version.MakeSafe(raw.Catalog.ProductDisplayVersion),
		FullVer:     version.MakeSafe(raw.Catalog.BuildVersion),
	}
	if product.InstanceID == "" || product.InstallDir == "" || product.DisplayName == "" ||
		!product.DisplayVer.Specified() || !product.FullVer.Specified() {
		return nil
	}
	if info, err := os.Stat(product.InstallDir); err != nil || !info.IsDir() {
		slog.Debug("installation path missing", "product", product.DisplayName,
			"dir", product.InstallDir)
		return nil
	}
	return &product
}

// scanBuildTools enumerates VC/Tools/MSVC version directories, newest
// first
func (m *MSVC) scanBuildTools() {
	kitDir := filepath.Join(m.InstallDir, "VC", "Tools", "MSVC")
	entries, err := os.ReadDir(kitDir)
	if err != nil {
		slog.Debug("no build tools directory", "product", m.DisplayName, "dir", kitDir)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ver := version.MakeSafe(entry.Name())
		if !ver.Specified() {
			continue
		}
		m.BuildTools = append(m.BuildTools, NewBuildTool(filepath.Join(kitDir, entry.Name()), ver))
	}
	sort.SliceStable(m.BuildTools, func(i, j int) bool {
		return m.BuildTools[j].Ver.Less(m.BuildTools[i].Ver)
	})
}

// MSVCScanner queries the Visual Studio installer through vswhere
type MSVCScanner struct {
	// VSWherePath overrides the default vswhere.exe location
	VSWherePath string
	// Run substitutes installer invocation in tests; nil means RunCommand
	Run CommandRunner
}

func defaultVSWherePath() string {
	programFiles := os.Getenv("ProgramFiles(x86)")
	if programFiles == "" {
		programFiles = `C:\Program Files (x86)`
	}
	return filepath.Join(programFiles, "Microsoft Visual Studio", "Installer", "vswhere.exe")
}

// Scan queries all Visual Studio products. A missing vswhere executable
// means no installer and yields zero results; an installer query or
// parse failure is a scan error.
func (s MSVCScanner) Scan() ([]MSVC, error) {
	run := s.Run
	if run == nil {
		run = RunCommand
	}
	vswhere := s.VSWherePath
	if vswhere == "" {
		vswhere = defaultVSWherePath()
	}
	if info, err := os.Stat(vswhere); err != nil || info.IsDir() {
		slog.Debug("vswhere not found", "path", vswhere)
		return nil, nil
	}

	out, err := run(vswhere, "-products", "*", "-all", "-format", "json")
	if err != nil {
		return nil, utils.MakeError(ErrScan, "vswhere query failed: %v", err)
	}
	var raw []vswhereProduct
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, utils.MakeError(ErrScan, "cannot parse vswhere output: %v", err)
	}

	var products []MSVC
	for _, entry := range raw {
		product := makeMSVC(entry)
		if product == nil {
			continue
		}
		product.scanBuildTools()
		products = append(products, *product)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[j].FullVer.Less(products[i].FullVer)
	})
	return products, nil
}

// BuildToolsVersion parses a tools version filter, accepting the
// platform toolset shorthands v141, v142 and v143 as ranges
func BuildToolsVersion(text string) (version.Spec, error) {
	if shorthand, ok := msvcToolsetRanges[strings.ToLower(text)]; ok {
		return version.MakeSpec(shorthand)
	}
	return version.MakeSpec(text)
}

// MSVCToolkit selects a Visual Studio installation and build tools
// version and derives its preset environment from vcvarsall
type MSVCToolkit struct {
	base
	VSVer    version.Spec // product line filter, e.g. 2022 or >=2019
	ToolsVer version.Spec // MSVC tools version filter, e.g. v143 or 14.36
	SDKVer   version.Spec // accepted but not yet applied as a filter
	Scanner  MSVCScanner

	scanned []MSVC
	found   []MSVC
}

// NewMSVCToolkit builds an MSVC toolkit. Name defaults to msvc<product
// spec> or msvc_latest.
func NewMSVCToolkit(name string, vsVer, toolsVer, sdkVer version.Spec, scanner MSVCScanner) *MSVCToolkit {
	if name == "" {
		if vsVer.Specified() {
			name = "msvc" + strings.NewReplacer("<", "lt", ">", "gt", "=", "e", ",", "_", ".", "").Replace(vsVer.String())
		} else {
			name = "msvc_latest"
		}
	}
	return &MSVCToolkit{
		base:     newBase(name, []string{"CC", "CXX"}),
		VSVer:    vsVer,
		ToolsVer: toolsVer,
		SDKVer:   sdkVer,
		Scanner:  scanner,
	}
}

func (t *MSVCToolkit) Family() string {
	return "Visual Studio"
}

func (t *MSVCToolkit) Supported() bool {
	return runtime.GOOS == "windows"
}

func (t *MSVCToolkit) InstanceSupported() bool {
	return t.Supported()
}

func (t *MSVCToolkit) PathVars() utils.Set[string] {
	return utils.MakeSet("LIB", "LIBPATH", "WINDOWSLIBPATH", "INCLUDE")
}

func (t *MSVCToolkit) IgnoreVars() utils.Set[string] {
	return utils.MakeSet("__VSCMD_PREINIT_PATH")
}

func (t *MSVCToolkit) Scan() (int, error) {
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

func (t *MSVCToolkit) Filter() (int, error) {
	if _, err := t.Scan(); err != nil {
		return 0, err
	}
	if t.state >= stateFiltered {
		return len(t.found), nil
	}
	var found []MSVC
	for _, product := range t.scanned {
		if t.VSVer.Specified() && !t.VSVer.Matches(product.ProductVer) {
			continue
		}
		if t.ToolsVer.Specified() {
			var tools []BuildTool
			for _, bt := range product.BuildTools {
				if t.ToolsVer.Matches(bt.Ver) {
					tools = append(tools, bt)
				}
			}
			if len(tools) == 0 {
				continue
			}
			product.BuildTools = tools
		}
		if len(product.BuildTools) == 0 {
			continue
		}
		found = append(found, product)
	}
	t.found = found
	t.state = stateFiltered
	return len(found), nil
}

func (t *MSVCToolkit) Select() error {
	if _, err := t.Filter(); err != nil {
		return err
	}
	if t.state >= stateSelected {
		return nil
	}
	if len(t.found) > 1 {
		t.found = t.found[:1]
	}
	if len(t.found) == 1 && len(t.found[0].BuildTools) > 1 {
		t.found[0].BuildTools = t.found[0].BuildTools[:1]
	}
	t.state = stateSelected
	return nil
}

func (t *MSVCToolkit) FoundCount() int {
	return len(t.found)
}

func (t *MSVCToolkit) PrintResults(w io.Writer, detailed bool) {
	for _, product := range t.found {
		fmt.Fprintf(w, "  %s\n", product.String())
		for _, bt := range product.BuildTools {
			if detailed {
				fmt.Fprintf(w, "    tools %s (%s)\n", bt.Ver.String(),
					strings.Join(bt.ToolNames(), ", "))
			} else {
				fmt.Fprintf(w, "    tools %s\n", bt.Ver.String())
			}
		}
	}
}

// EnvScript builds a batch script that calls the installation's
// vcvarsall for the selected tools version and publishes cl.exe
func (t *MSVCToolkit) EnvScript() (string, error) {
	if len(t.found) == 0 {
		return "", utils.MakeError(ErrToolkit, "no Visual Studio installation selected")
	}
	product := t.found[0]
	if len(product.BuildTools) == 0 {
		return "", utils.MakeError(ErrToolkit, "%s has no build tools", product.DisplayName)
	}
	vcvars := filepath.Join(product.InstallDir, "VC", "Auxiliary", "Build", "vcvarsall.bat")

	var sb strings.Builder
	sb.WriteString("@echo off\r\n")
	fmt.Fprintf(&sb, "call \"%s\" amd64 -vcvars_ver=%s\r\n", vcvars, product.BuildTools[0].Ver.String())
	sb.WriteString("set CC=cl.exe\r\n")
	sb.WriteString("set CXX=cl.exe\r\n")
	return sb.String(), nil
}

var _ Toolkit = (*MSVCToolkit)(nil)
