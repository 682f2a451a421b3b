package version

import (
	"errors"
	"regexp"
	"strings"

	"github.com/herring-swe/cmake-presets/pkg/utils"
)

var (
	ErrInvalidSpec     = errors.New("invalid version spec")
	ErrImpossibleRange = errors.New("impossible version range")
)

// Op is a version comparison operator
type Op int

const (
	OpNone Op = iota
	OpLT
	OpLTE
	OpEQ
	OpGTE
	OpGT
)

// MakeOp maps an operator token (symbolic or word form, case-insensitive)
// to its Op, or returns the fallback for unknown tokens.
func MakeOp(token string, fallback Op) Op {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "<", "lt":
		return OpLT
	case "<=", "lte":
		return OpLTE
	case "=", "eq":
		return OpEQ
	case ">=", "gte":
		return OpGTE
	case ">", "gt":
		return OpGT
	}
	return fallback
}

func (op Op) String() string {
	switch op {
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	case OpEQ:
		return "="
	case OpGTE:
		return ">="
	case OpGT:
		return ">"
	}
	return "Undefined Op"
}

// Matches evaluates "lhs op rhs" in padded comparison mode. OpNone never
// matches; specs guard against it at parse time.
func (op Op) Matches(lhs Version, rhs Version) bool {
	cmp := lhs.PaddedCompare(rhs)

	switch op {
	case OpLT:
		return cmp < 0
	case OpLTE:
		return cmp <= 0
	case OpEQ:
		return cmp == 0
	case OpGTE:
		return cmp >= 0
	case OpGT:
		return cmp > 0
	}
	return false
}

func (op Op) isLowerType() bool {
	return op == OpGT || op == OpGTE
}

func (op Op) isUpperType() bool {
	return op == OpLT || op == OpLTE
}

// Spec grammar. The op alternatives are ordered longest first so that the
// two-character forms win over their one-character prefixes.
const reOp = `<=|lte|<|lt|=|eq|>=|gte|>|gt`
const reVersion = `\d+(?:\.\d+){0,3}`

var (
	reSpecSingle = regexp.MustCompile(`(?i)^\s*(` + reOp + `|range)?\s*(` + reVersion + `)\s*$`)
	reSpecRange  = regexp.MustCompile(`(?i)^\s*(` + reOp + `)\s*(` + reVersion + `)\s*,\s*(` + reOp + `)\s*(` + reVersion + `)\s*$`)
)

// Spec is a compiled version predicate: a single bound, a two-bound range,
// or nothing at all (which matches every version).
type Spec struct {
	lower   Version
	lowerOp Op
	upper   Version
	upperOp Op
}

// NewSpec builds a single-bound spec programmatically
func NewSpec(val Version, op Op) Spec {
	return Spec{lower: val, lowerOp: op}
}

// NewRangeSpec builds a two-bound spec programmatically. No normalization
// is applied; callers are expected to pass bounds in order.
func NewRangeSpec(lower Version, lowerOp Op, upper Version, upperOp Op) Spec {
	return Spec{lower: lower, lowerOp: lowerOp, upper: upper, upperOp: upperOp}
}

// MakeSpec parses the version specification mini-language:
//
//	V, =V, eqV          exact (padded) match
//	<V, ltV             less than
//	<=V, lteV           less than or equal
//	>V, gtV             greater than
//	>=V, gteV           greater than or equal
//	rangeV              shorthand for >=V,<V' where V' increments the last
//	                    given component (range2.5 means >=2.5,<2.6)
//	OP V,OP V           range; both operators mandatory, neither may be
//	                    an equality
//
// An empty string yields the match-everything spec. Range bounds given in
// upper-then-lower order are swapped. A range whose bounds point away from
// each other (for instance "<=1,>=3" after normalization) cannot be
// satisfied and is rejected. A range with both bounds in the same
// direction is kept as-is: both predicates must hold, so the tighter bound
// decides.
func MakeSpec(text string) (Spec, error) {
	if strings.TrimSpace(text) == "" {
		return Spec{}, nil
	}

	if m := reSpecSingle.FindStringSubmatch(text); m != nil {
		ver, err := Make(m[2])
		if err != nil {
			return Spec{}, err
		}

		if strings.EqualFold(m[1], "range") {
			next := make([]int, ver.Len())
			for i := 0; i < ver.Len(); i++ {
				next[i] = ver.Part(i)
			}
			next[len(next)-1]++
			return Spec{
				lower:   ver,
				lowerOp: OpGTE,
				upper:   New(next...),
				upperOp: OpLT,
			}, nil
		}

		return Spec{lower: ver, lowerOp: MakeOp(m[1], OpEQ)}, nil
	}

	if m := reSpecRange.FindStringSubmatch(text); m != nil {
		lowerOp := MakeOp(m[1], OpNone)
		lower, err := Make(m[2])
		if err != nil {
			return Spec{}, err
		}
		upperOp := MakeOp(m[3], OpNone)
		upper, err := Make(m[4])
		if err != nil {
			return Spec{}, err
		}

		if lowerOp == OpNone || upperOp == OpNone {
			return Spec{}, utils.MakeError(ErrInvalidSpec, "undefined operators in %q", text)
		}
		if lowerOp == OpEQ || upperOp == OpEQ {
			return Spec{}, utils.MakeError(ErrInvalidSpec, "range cannot contain equality comparison: %q", text)
		}

		if upper.Less(lower) {
			lower, upper = upper, lower
			lowerOp, upperOp = upperOp, lowerOp
		}

		if lowerOp.isUpperType() && upperOp.isLowerType() {
			return Spec{}, utils.MakeError(ErrImpossibleRange, "no version can satisfy specification %q", text)
		}

		return Spec{lower: lower, lowerOp: lowerOp, upper: upper, upperOp: upperOp}, nil
	}

	return Spec{}, utils.MakeError(ErrInvalidSpec, "could not parse specification %q", text)
}

// MakeSpecSafe parses like MakeSpec but swallows errors and returns the
// match-everything spec instead
func MakeSpecSafe(text string) Spec {
	spec, err := MakeSpec(text)
	if err != nil {
		return Spec{}
	}
	return spec
}

// Specified reports whether the spec constrains anything at all
func (s Spec) Specified() bool {
	return s.lower.Specified() || s.upper.Specified()
}

// IsRange reports whether both bounds are in effect
func (s Spec) IsRange() bool {
	return s.lower.Specified() && s.upper.Specified()
}

// Matches evaluates the spec against a version. A spec with no bounds
// matches everything.
func (s Spec) Matches(ver Version) bool {
	switch {
	case s.IsRange():
		return s.lowerOp.Matches(ver, s.lower) && s.upperOp.Matches(ver, s.upper)
	case s.lower.Specified():
		return s.lowerOp.Matches(ver, s.lower)
	}
	return true
}

// Lower returns the lower bound and its operator
func (s Spec) Lower() (Version, Op) {
	return s.lower, s.lowerOp
}

// Upper returns the upper bound and its operator
func (s Spec) Upper() (Version, Op) {
	return s.upper, s.upperOp
}

// Equal reports whether two specs have identical bounds and operators
func (s Spec) Equal(other Spec) bool {
	return s.lowerOp == other.lowerOp &&
		s.upperOp == other.upperOp &&
		s.lower.Equal(other.lower) &&
		s.upper.Equal(other.upper)
}

func (s Spec) String() string {
	if s.upper.Specified() || s.upperOp != OpNone {
		return s.lowerOp.String() + " " + s.lower.String() + " and " + s.upperOp.String() + " " + s.upper.String()
	}
	return s.lowerOp.String() + " " + s.lower.String()
}
