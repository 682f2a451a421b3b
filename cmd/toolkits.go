package cmd

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/herring-swe/cmake-presets/pkg/toolkit"
	"github.com/herring-swe/cmake-presets/pkg/utils"
	"github.com/herring-swe/cmake-presets/pkg/version"
)

// Family configuration shared by the generate, scan and select commands.
// Each family gets one set of flags; a kit expression like "msvc+oneapi"
// composes families into a chain.
var (
	gccVer       string
	gccNoCXX     bool
	gccFortran   bool
	gccDirs      []string
	gccExtraDirs []string

	msvcVer      string
	msvcToolsVer string
	msvcSDKVer   string

	oneapiVer        string
	oneapiFortran    string
	oneapiComponents []string
	oneapiRoot       string

	scriptPath string
	scriptDesc string
	scriptVars []string
)

func addToolkitFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringVar(&gccVer, "gcc-ver", "", "GCC version to match (1-3 components)")
	flags.BoolVar(&gccNoCXX, "gcc-no-cxx", false, "do not require g++")
	flags.BoolVar(&gccFortran, "gcc-fortran", false, "require gfortran")
	flags.StringSliceVar(&gccDirs, "gcc-dir", nil, "replace the default GCC search directories")
	flags.StringSliceVar(&gccExtraDirs, "gcc-extradir", nil, "additional GCC search directories")

	flags.StringVar(&msvcVer, "msvc-ver", "", "Visual Studio product line spec (2017, 2019, 2022)")
	flags.StringVar(&msvcToolsVer, "msvc-tools", "", "MSVC build tools spec (14.x or v141/v142/v143)")
	flags.StringVar(&msvcSDKVer, "msvc-winsdk", "", "Windows SDK version spec")

	flags.StringVar(&oneapiVer, "oneapi-ver", "", "Intel oneAPI version to match (1-3 components)")
	flags.StringVar(&oneapiFortran, "oneapi-fortran", "", "Fortran compiler to require: any, ifx or ifort")
	flags.StringSliceVar(&oneapiComponents, "oneapi-comp", nil, "oneAPI components to require (compiler, mkl or all)")
	flags.StringVar(&oneapiRoot, "oneapi-dir", "", "additional oneAPI installation root")

	flags.StringVar(&scriptPath, "script", "", "environment script to wrap as a toolkit (.bat on Windows, shell otherwise)")
	flags.StringVar(&scriptDesc, "script-desc", "", "description of the environment script")
	flags.StringSliceVar(&scriptVars, "script-vars", nil, "compilers the script must provide (CC, CXX, FC)")
}

func makeGCC() (toolkit.Toolkit, error) {
	ver, err := toolkit.GCCVersion(gccVer)
	if err != nil {
		return nil, err
	}
	scanner := toolkit.GCCScanner{Dirs: gccDirs, ExtraDirs: gccExtraDirs}
	return toolkit.NewGCCToolkit("", ver, !gccNoCXX, gccFortran, scanner), nil
}

func makeMSVC() (toolkit.Toolkit, error) {
	vsVer, err := version.MakeSpec(msvcVer)
	if err != nil {
		return nil, err
	}
	toolsVer, err := toolkit.BuildToolsVersion(msvcToolsVer)
	if err != nil {
		return nil, err
	}
	sdkVer, err := version.MakeSpec(msvcSDKVer)
	if err != nil {
		return nil, err
	}
	return toolkit.NewMSVCToolkit("", vsVer, toolsVer, sdkVer, toolkit.MSVCScanner{}), nil
}

func makeOneAPI() (toolkit.Toolkit, error) {
	ver, err := toolkit.OneAPIVersion(oneapiVer)
	if err != nil {
		return nil, err
	}
	scanner := toolkit.OneAPIScanner{RootDir: oneapiRoot}
	return toolkit.NewOneAPIToolkit("", ver, oneapiFortran, oneapiComponents, scanner)
}

func makeScript() (toolkit.Toolkit, error) {
	if scriptPath == "" {
		return nil, utils.MakeError(toolkit.ErrToolkit, "--script is required for the script family")
	}
	name := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	required := utils.MakeSet(scriptVars...)
	needCC := required.Contains("CC")
	needCXX := required.Contains("CXX")
	needFC := required.Contains("FC")
	if strings.EqualFold(filepath.Ext(scriptPath), ".bat") {
		return toolkit.NewBatScriptToolkit(name, scriptDesc, scriptPath, needCC, needCXX, needFC), nil
	}
	return toolkit.NewShellScriptToolkit(name, scriptDesc, scriptPath, needCC, needCXX, needFC), nil
}

func makeFamily(key string) (toolkit.Toolkit, error) {
	switch key {
	case "gcc":
		return makeGCC()
	case "msvc":
		return makeMSVC()
	case "oneapi":
		return makeOneAPI()
	case "script":
		return makeScript()
	}
	return nil, utils.MakeError(toolkit.ErrToolkit, "unknown toolkit family %q", key)
}

// makeKit builds a toolkit from a kit expression: a family key, or
// several keys joined with "+" forming a chain (e.g. "msvc+oneapi")
func makeKit(expr string) (toolkit.Toolkit, error) {
	keys := strings.Split(expr, "+")
	if len(keys) == 1 {
		return makeFamily(keys[0])
	}
	members := make([]toolkit.Toolkit, 0, len(keys))
	for _, key := range keys {
		tk, err := makeFamily(strings.TrimSpace(key))
		if err != nil {
			return nil, err
		}
		members = append(members, tk)
	}
	return toolkit.NewChain("", members...)
}

func makeKits(exprs []string) ([]toolkit.Toolkit, error) {
	if len(exprs) == 0 {
		exprs = defaultKits()
	}
	kits := make([]toolkit.Toolkit, 0, len(exprs))
	for _, expr := range exprs {
		tk, err := makeKit(expr)
		if err != nil {
			return nil, err
		}
		kits = append(kits, tk)
	}
	return kits, nil
}

// defaultKits lists the kit expressions generated when none are given
func defaultKits() []string {
	if runtime.GOOS == "windows" {
		return []string{"msvc", "msvc+oneapi"}
	}
	return []string{"gcc", "oneapi"}
}
