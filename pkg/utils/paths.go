package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandDir expands environment variables and a leading ~ in a directory
// path and resolves it to an absolute, symlink-free form where possible.
func ExpandDir(dir string) string {
	dir = os.ExpandEnv(dir)

	if dir == "~" || strings.HasPrefix(dir, "~"+string(os.PathSeparator)) {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[1:])
		}
	}

	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	return dir
}

// ExpandDirs expands every directory and drops duplicates, keeping order
func ExpandDirs(dirs []string) []string {
	seen := MakeSet[string]()
	output := make([]string, 0, len(dirs))

	for _, dir := range dirs {
		expanded := ExpandDir(dir)

		if seen.Contains(expanded) {
			continue
		}

		seen.Add(expanded)
		output = append(output, expanded)
	}

	return output
}

// IsExecutable reports whether the file mode has any execute bit set
func IsExecutable(mode os.FileMode) bool {
	return mode&0111 != 0
}
