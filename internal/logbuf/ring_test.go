package logbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBasicAdd(t *testing.T) {
	t.Parallel()

	r := New[string](5)
	r.Add("line 1")
	r.Add("line 2")
	r.Add("line 3")

	assert.Equal(t, []string{"line 1", "line 2", "line 3"}, r.All())
	assert.Equal(t, 3, r.Len())
}

func TestRingOverflow(t *testing.T) {
	t.Parallel()

	r := New[string](3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.Add(s)
	}

	assert.Equal(t, []string{"c", "d", "e"}, r.All())
	assert.Equal(t, 3, r.Len())
}

func TestRingLast(t *testing.T) {
	t.Parallel()

	r := New[int](10)
	for i := range 5 {
		r.Add(i)
	}

	assert.Equal(t, []int{2, 3, 4}, r.Last(3))
	assert.Len(t, r.Last(50), 5)
}

func TestRingEmpty(t *testing.T) {
	t.Parallel()

	r := New[string](5)
	require.Empty(t, r.All())
	assert.Zero(t, r.Len())
}

func TestRingDefaultSize(t *testing.T) {
	t.Parallel()

	r := New[string](0)
	r.Add("x")
	assert.Equal(t, []string{"x"}, r.All())
}
