// Package version implements the dotted version model and the version
// specification mini-language used to match discovered toolchains.
//
// A version is an ordered tuple of 1 to 4 non-negative integers. Two
// comparison modes exist and both are load-bearing: full comparison treats
// versions of different length as different (used for sorting and
// de-duplication), while padded comparison reads missing trailing
// components as zero (used by every specification operator, so that a
// spec "8" matches an installed "8.0.0" and "gte 2.5" matches "2.5.1").
package version

import (
	"errors"
	"strconv"
	"strings"

	"github.com/herring-swe/cmake-presets/pkg/utils"
)

var ErrInvalidVersion = errors.New("invalid version")

// MaxParts is the maximum number of components a version carries.
// Components past the fourth are ignored when parsing.
const MaxParts = 4

// Version is an immutable dotted version such as 8, 8.2 or 8.2.0
type Version struct {
	parts []int
}

// New builds a version from explicit components. Components after the
// first negative one are dropped.
func New(parts ...int) Version {
	kept := make([]int, 0, MaxParts)

	for i := 0; i < len(parts) && i < MaxParts; i++ {
		if parts[i] < 0 {
			break
		}
		kept = append(kept, parts[i])
	}

	return Version{parts: kept}
}

// Make parses a dotted version string with the default 1..4 component bounds
func Make(text string) (Version, error) {
	return MakeBounded(text, 1, MaxParts)
}

// MakeBounded parses a dotted version string and validates that the number
// of parsed components lies within [minParts, maxParts]. An empty string
// yields the unspecified version without error.
func MakeBounded(text string, minParts int, maxParts int) (Version, error) {
	if minParts < 1 {
		minParts = 1
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Version{}, nil
	}

	fields := strings.Split(text, ".")
	parts := make([]int, 0, MaxParts)

	for i := 0; i < len(fields) && i < MaxParts; i++ {
		value, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return Version{}, utils.MakeError(ErrInvalidVersion, "component %q is not numerical in %q", fields[i], text)
		}
		if value < 0 {
			break
		}
		parts = append(parts, value)
	}

	if len(parts) > maxParts {
		return Version{}, utils.MakeError(ErrInvalidVersion, "at most %d components allowed: %q", maxParts, text)
	}
	if len(parts) < minParts {
		return Version{}, utils.MakeError(ErrInvalidVersion, "at least %d components needed: %q", minParts, text)
	}

	return Version{parts: parts}, nil
}

// MakeSafe parses like Make but swallows errors and returns the
// unspecified version instead
func MakeSafe(text string) Version {
	ver, err := Make(text)
	if err != nil {
		return Version{}
	}
	return ver
}

// MakeSafeBounded parses like MakeBounded but swallows errors and returns
// the unspecified version instead
func MakeSafeBounded(text string, minParts int, maxParts int) Version {
	ver, err := MakeBounded(text, minParts, maxParts)
	if err != nil {
		return Version{}
	}
	return ver
}

// Specified reports whether any component is non-zero. The empty and the
// all-zero version both act as "no version given".
func (v Version) Specified() bool {
	for _, part := range v.parts {
		if part > 0 {
			return true
		}
	}
	return false
}

// Len returns the number of defined components
func (v Version) Len() int {
	return len(v.parts)
}

// Part returns component i, or 0 when it is not defined
func (v Version) Part(i int) int {
	if i < 0 || i >= len(v.parts) {
		return 0
	}
	return v.parts[i]
}

func (v Version) Major() int    { return v.Part(0) }
func (v Version) Minor() int    { return v.Part(1) }
func (v Version) Patch() int    { return v.Part(2) }
func (v Version) Revision() int { return v.Part(3) }

// String returns the canonical dotted form, or "Unspecified"
func (v Version) String() string {
	return v.Join(".")
}

// Dotted returns at most maxParts components joined by dots
func (v Version) Dotted(maxParts int) string {
	return v.join(".", maxParts)
}

// Underscore returns all components joined by underscores
func (v Version) Underscore() string {
	return v.Join("_")
}

// Join returns all components joined by the given separator
func (v Version) Join(sep string) string {
	return v.join(sep, MaxParts)
}

func (v Version) join(sep string, maxParts int) string {
	if !v.Specified() {
		return "Unspecified"
	}
	if maxParts > len(v.parts) {
		maxParts = len(v.parts)
	}

	fields := make([]string, maxParts)
	for i := 0; i < maxParts; i++ {
		fields[i] = strconv.Itoa(v.parts[i])
	}
	return strings.Join(fields, sep)
}

// Compare orders versions in full mode: component-wise, with the component
// count as final tiebreak so 2 sorts before 2.0. Returns -1, 0 or +1.
func (v Version) Compare(other Version) int {
	shared := min(len(v.parts), len(other.parts))

	for i := 0; i < shared; i++ {
		if v.parts[i] != other.parts[i] {
			if v.parts[i] < other.parts[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(v.parts) < len(other.parts):
		return -1
	case len(v.parts) > len(other.parts):
		return 1
	}
	return 0
}

// PaddedCompare orders versions with missing trailing components read as
// zero on both sides, so 8 equals 8.0.0. Returns -1, 0 or +1.
func (v Version) PaddedCompare(other Version) int {
	for i := 0; i < max(len(v.parts), len(other.parts)); i++ {
		lhs := v.Part(i)
		rhs := other.Part(i)
		if lhs != rhs {
			if lhs < rhs {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Equal reports full-mode equality: same length, same components
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// Less reports full-mode ordering
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// PaddedEqual reports padded-mode equality
func (v Version) PaddedEqual(other Version) bool {
	return v.PaddedCompare(other) == 0
}

// PrefixMatch reports whether other agrees with v on every component v
// defines. Components other carries beyond v's length are ignored, so a
// filter of 11 accepts an installed 11.4.0 while 11.2 still rejects it.
func (v Version) PrefixMatch(other Version) bool {
	for i := 0; i < len(v.parts); i++ {
		if v.parts[i] != other.Part(i) {
			return false
		}
	}
	return true
}
