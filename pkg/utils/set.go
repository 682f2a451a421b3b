package utils

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Set is an unordered collection of unique items
type Set[T comparable] map[T]struct{}

func MakeSet[T comparable](items ...T) Set[T] {
	set := make(Set[T], len(items))

	for _, item := range items {
		set[item] = struct{}{}
	}

	return set
}

func (s Set[T]) Contains(item T) bool {
	_, ok := s[item]
	return ok
}

func (s Set[T]) Add(items ...T) {
	for _, item := range items {
		s[item] = struct{}{}
	}
}

// Adds all items of another set
func (s Set[T]) Union(other Set[T]) {
	for item := range other {
		s[item] = struct{}{}
	}
}

func (s Set[T]) Items() []T {
	return Keys(s)
}

// Returns the set items in ascending order
func SortedItems[T constraints.Ordered](s Set[T]) []T {
	items := s.Items()
	slices.Sort(items)
	return items
}
