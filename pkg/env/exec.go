package env

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/herring-swe/cmake-presets/pkg/utils"
)

var (
	ErrExecution = errors.New("environment script execution failed")
	ErrTimeout   = errors.New("environment script timed out")
)

// Marker emitted by the script between its own output and the environment
// dump that follows
const envMarker = "=#= ENVIRONMENT =#="

// ExecuteScript runs a setup script in a subprocess under the baseline
// environment and captures the environment the script leaves behind.
//
// The script text is extended with a marker line and a full environment
// dump ("set" on Windows, /usr/bin/env elsewhere), written to a temporary
// file that is removed on every exit path, and executed synchronously.
// Values containing literal newlines survive: a captured line without a
// NAME=VALUE shape is joined onto the previous variable.
//
// A non-zero exit maps to ErrExecution; a cancelled or expired context
// maps to ErrTimeout.
func ExecuteScript(ctx context.Context, script string, baseline Dict) (Dict, error) {
	if script != "" && !strings.HasSuffix(script, "\n") {
		script += "\n"
	}
	var scriptName string
	if runtime.GOOS == "windows" {
		script += "echo " + envMarker + "\nset"
		scriptName = "_checkenv.bat"
	} else {
		script += "echo \"" + envMarker + "\"\n/usr/bin/env"
		scriptName = "_checkenv.run"
	}

	tmpdir, err := os.MkdirTemp("", "cmake-presets-env-")
	if err != nil {
		return nil, utils.MakeError(ErrExecution, "could not create script directory: %v", err)
	}
	defer os.RemoveAll(tmpdir)

	scriptFile := filepath.Join(tmpdir, scriptName)
	if err := os.WriteFile(scriptFile, []byte(script), 0o600); err != nil {
		return nil, utils.MakeError(ErrExecution, "could not write script %v: %v", scriptFile, err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(scriptFile, 0o700); err != nil {
			return nil, utils.MakeError(ErrExecution, "could not mark script executable: %v", err)
		}
	}
	slog.Debug("env: wrote environment script", "file", scriptFile)

	cmd := exec.CommandContext(ctx, scriptFile)
	cmd.Env = baseline.Environ()

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, utils.MakeError(ErrTimeout, "%v", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, utils.MakeError(ErrExecution, "exit status %d: %s", exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, utils.MakeError(ErrExecution, "%v", err)
	}

	return parseEnvOutput(string(output)), nil
}

// parseEnvOutput extracts NAME=VALUE pairs following the marker line
func parseEnvOutput(output string) Dict {
	result := Dict{}
	seekMarker := true
	lastName := ""

	for _, line := range strings.Split(strings.TrimRight(output, "\r\n"), "\n") {
		line = strings.TrimSuffix(line, "\r")

		if seekMarker {
			if line == envMarker {
				seekMarker = false
			} else {
				slog.Debug("env: script output", "line", line)
			}
			continue
		}

		if name, value, ok := strings.Cut(line, "="); ok && name != "" {
			result.Set(name, value)
			lastName = name
		} else if lastName != "" {
			// continuation of a multi-line value
			result.Set(lastName, result.Get(lastName)+"\n"+line)
		}
	}
	return result
}
