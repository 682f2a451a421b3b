package toolkit

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/herring-swe/cmake-presets/pkg/utils"
)

type scriptKind int

const (
	shellScript scriptKind = iota
	batScript
)

// ScriptToolkit wraps a user supplied environment script as a toolkit.
// The script's effect on the environment becomes the preset environment;
// compilers are picked up from CC, CXX and FC when the script sets them.
type ScriptToolkit struct {
	base
	Desc string
	Path string
	kind scriptKind
}

// NewShellScriptToolkit wraps a POSIX shell script
func NewShellScriptToolkit(name, desc, path string, needCC, needCXX, needFC bool) *ScriptToolkit {
	return newScriptToolkit(name, desc, path, shellScript, needCC, needCXX, needFC)
}

// NewBatScriptToolkit wraps a Windows batch file
func NewBatScriptToolkit(name, desc, path string, needCC, needCXX, needFC bool) *ScriptToolkit {
	return newScriptToolkit(name, desc, path, batScript, needCC, needCXX, needFC)
}

func newScriptToolkit(name, desc, path string, kind scriptKind, needCC, needCXX, needFC bool) *ScriptToolkit {
	var required []string
	if needCC {
		required = append(required, "CC")
	}
	if needCXX {
		required = append(required, "CXX")
	}
	if needFC {
		required = append(required, "FC")
	}
	return &ScriptToolkit{
		base: newBase(name, required),
		Desc: desc,
		Path: path,
		kind: kind,
	}
}

func (t *ScriptToolkit) Family() string {
	if t.kind == batScript {
		return "Bat-file script"
	}
	return "Shell script"
}

func (t *ScriptToolkit) Supported() bool {
	if t.kind == batScript {
		return runtime.GOOS == "windows"
	}
	return runtime.GOOS != "windows"
}

func (t *ScriptToolkit) InstanceSupported() bool {
	return t.Supported()
}

// Scan verifies the script exists; a missing script is zero results,
// not an error
func (t *ScriptToolkit) Scan() (int, error) {
	if t.state >= stateScanned {
		return t.FoundCount(), nil
	}
	t.state = stateScanned
	return t.FoundCount(), nil
}

func (t *ScriptToolkit) Filter() (int, error) {
	if _, err := t.Scan(); err != nil {
		return 0, err
	}
	t.state = stateFiltered
	return t.FoundCount(), nil
}

func (t *ScriptToolkit) Select() error {
	if _, err := t.Filter(); err != nil {
		return err
	}
	t.state = stateSelected
	return nil
}

func (t *ScriptToolkit) FoundCount() int {
	info, err := os.Stat(t.Path)
	if err != nil || info.IsDir() {
		return 0
	}
	return 1
}

func (t *ScriptToolkit) PrintResults(w io.Writer, detailed bool) {
	if t.FoundCount() == 0 {
		fmt.Fprintf(w, "  script missing: %s\n", t.Path)
		return
	}
	fmt.Fprintf(w, "  %s (%s)\n", t.Desc, t.Path)
	if detailed && len(t.RequiredVars()) > 0 {
		fmt.Fprintf(w, "    requires: %v\n", t.RequiredVars())
	}
}

// EnvScript returns the file contents
func (t *ScriptToolkit) EnvScript() (string, error) {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return "", utils.MakeError(ErrToolkit, "cannot read script %s: %v", t.Path, err)
	}
	return string(data), nil
}

var _ Toolkit = (*ScriptToolkit)(nil)
