package toolkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/herring-swe/cmake-presets/pkg/env"
	"github.com/herring-swe/cmake-presets/pkg/utils"
)

var ErrEmptyChain = errors.New("a toolkit chain needs at least one member")

// Chain composes toolkits into one preset. Members are ordered: each
// member's environment script runs on top of the operating system
// environment merged with the previous member's contribution, and the
// final preset environment is the layered union of all member deltas.
//
// The chain owns the ordered member list; members do not know about the
// chain they are part of.
type Chain struct {
	base
	members []Toolkit
}

// NewChain builds a chain over the given toolkits. When name is empty
// the member names are joined with underscores.
func NewChain(name string, members ...Toolkit) (*Chain, error) {
	if len(members) == 0 {
		return nil, ErrEmptyChain
	}

	if name == "" {
		parts := utils.Map(members, func(tk Toolkit) string {
			return strings.TrimPrefix(tk.Name(), "toolkit_")
		})
		name = strings.Join(parts, "_")
	}

	required := utils.MakeSet[string]()
	for _, tk := range members {
		required.Add(tk.RequiredVars()...)
	}

	return &Chain{
		base:    newBase(name, utils.SortedItems(required)),
		members: members,
	}, nil
}

// Members returns the ordered member list
func (c *Chain) Members() []Toolkit {
	return c.members
}

func (c *Chain) Family() string {
	parts := utils.Map(c.members, Toolkit.Family)
	return strings.Join(parts, " + ")
}

func (c *Chain) Supported() bool {
	for _, tk := range c.members {
		if !tk.Supported() {
			return false
		}
	}
	return true
}

// InstanceSupported holds when every member is supported in its chain
// position. Members that care about what precedes them (oneAPI needs a
// Visual Studio environment on Windows) are asked with their prefix.
func (c *Chain) InstanceSupported() bool {
	for i, tk := range c.members {
		if cm, ok := tk.(chainMember); ok {
			if !cm.supportedInChain(c.members[:i]) {
				return false
			}
		} else if !tk.InstanceSupported() {
			return false
		}
	}
	return true
}

func (c *Chain) Scan() (int, error) {
	if c.state >= stateScanned {
		return c.FoundCount(), nil
	}
	for _, tk := range c.members {
		if _, err := tk.Scan(); err != nil {
			return 0, err
		}
	}
	c.state = stateScanned
	return c.FoundCount(), nil
}

func (c *Chain) Filter() (int, error) {
	if _, err := c.Scan(); err != nil {
		return 0, err
	}
	if c.state >= stateFiltered {
		return c.FoundCount(), nil
	}
	for _, tk := range c.members {
		if _, err := tk.Filter(); err != nil {
			return 0, err
		}
	}
	c.state = stateFiltered
	return c.FoundCount(), nil
}

func (c *Chain) Select() error {
	if _, err := c.Filter(); err != nil {
		return err
	}
	if c.state >= stateSelected {
		return nil
	}
	for _, tk := range c.members {
		if err := tk.Select(); err != nil {
			return err
		}
	}
	c.state = stateSelected
	return nil
}

// FoundCount returns the smallest member count: a chain only has a
// candidate when every member does
func (c *Chain) FoundCount() int {
	count := -1
	for _, tk := range c.members {
		if n := tk.FoundCount(); count < 0 || n < count {
			count = n
		}
	}
	if count < 0 {
		count = 0
	}
	return count
}

func (c *Chain) PrintResults(w io.Writer, detailed bool) {
	for _, tk := range c.members {
		fmt.Fprintf(w, "%s:\n", tk.Family())
		tk.PrintResults(w, detailed)
	}
}

func (c *Chain) PathVars() utils.Set[string] {
	vars := utils.MakeSet[string]()
	for _, tk := range c.members {
		vars.Union(tk.PathVars())
	}
	return vars
}

func (c *Chain) IgnoreVars() utils.Set[string] {
	vars := utils.MakeSet[string]()
	for _, tk := range c.members {
		vars.Union(tk.IgnoreVars())
	}
	return vars
}

// BaseJSON merges the member skeletons under the chain's own name.
// Later members never override keys set by earlier ones.
func (c *Chain) BaseJSON() map[string]any {
	preset := c.base.BaseJSON()
	for _, tk := range c.members {
		for key, value := range tk.BaseJSON() {
			if key == "name" || key == "hidden" {
				continue
			}
			if _, exists := preset[key]; !exists {
				preset[key] = value
			}
		}
	}
	return preset
}

// resolveMembers layers the member environments left to right. Each
// member resolves against the operating system environment merged with
// the previous member's delta, and all deltas are merged into the
// chain's memoized result.
func (c *Chain) resolveMembers(ctx context.Context) (env.Dict, error) {
	state := c.envState()
	if state.resolved {
		return state.result, nil
	}

	pathvars := c.PathVars()
	result := env.Make()
	var prev env.Dict
	for _, tk := range c.members {
		baseline := env.OS()
		if prev != nil {
			baseline.Merge(prev, pathvars)
		}
		memberEnv, err := ResolveEnvironment(ctx, tk, baseline)
		if err != nil {
			return nil, err
		}
		result.Merge(memberEnv, pathvars)
		prev = memberEnv
	}

	state.result = result
	state.resolved = true
	return result, nil
}
