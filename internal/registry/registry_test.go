package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := New[int]()

	_, ok := r.Get("a")
	assert.False(t, ok)

	r.Add("a", 1)
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, loaded := r.GetOrAdd("a", func() int { return 99 })
	assert.True(t, loaded)
	assert.Equal(t, 1, v)

	v, loaded = r.GetOrAdd("b", func() int { return 2 })
	assert.False(t, loaded)
	assert.Equal(t, 2, v)

	assert.Equal(t, 2, r.Len())

	found, ok := r.Find(func(v int) bool { return v == 2 })
	require.True(t, ok)
	assert.Equal(t, 2, found)

	_, ok = r.Find(func(v int) bool { return v == 42 })
	assert.False(t, ok)

	seen := map[string]int{}
	r.Range(func(name string, v int) bool {
		seen[name] = v
		return true
	})
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)

	r.Del("a")
	_, ok = r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}
