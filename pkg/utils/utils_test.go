package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeError(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := MakeError(sentinel, "context %d", 42)
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, "sentinel: context 42", err.Error())
}

func TestMapAndFilter(t *testing.T) {
	doubled := Map([]int{1, 2, 3}, func(i int) int { return i * 2 })
	assert.Equal(t, []int{2, 4, 6}, doubled)

	odd := Filter([]int{1, 2, 3, 4}, func(i int) bool { return i%2 == 1 })
	assert.Equal(t, []int{1, 3}, odd)
}

func TestSet(t *testing.T) {
	s := MakeSet("b", "a")
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))

	s.Add("c")
	s.Union(MakeSet("d", "a"))
	assert.Equal(t, []string{"a", "b", "c", "d"}, SortedItems(s))
}

func TestExpandDirsDedup(t *testing.T) {
	dirs := ExpandDirs([]string{"/tmp", "/tmp", "/usr"})
	assert.Len(t, dirs, 2)
}
