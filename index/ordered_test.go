package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdered_FirstSeenOrder(t *testing.T) {
	o := New[string]()

	for _, k := range []string{"b", "a", "b", "c", "a"} {
		o.Add(k)
	}

	assert.Equal(t, 3, o.Len())
	assert.Equal(t, []string{"b", "a", "c"}, o.Keys())

	i, ok := o.Index("c")
	require.True(t, ok)
	assert.Equal(t, 2, i)
}

func TestOrdered_AddReportsInsertion(t *testing.T) {
	o := New[int]()

	i, inserted := o.Add(42)
	assert.Equal(t, 0, i)
	assert.True(t, inserted)

	i, inserted = o.Add(42)
	assert.Equal(t, 0, i)
	assert.False(t, inserted)
}

func TestOrdered_Bijection(t *testing.T) {
	o := New[string]()
	for _, k := range []string{"x", "y", "z"} {
		o.Add(k)
	}

	for i := 0; i < o.Len(); i++ {
		k, ok := o.Key(i)
		require.True(t, ok)
		j, ok := o.Index(k)
		require.True(t, ok)
		assert.Equal(t, i, j)
	}
}

func TestOrdered_OutOfRange(t *testing.T) {
	o := New[string]()
	o.Add("only")

	_, ok := o.Key(-1)
	assert.False(t, ok)
	_, ok = o.Key(1)
	assert.False(t, ok)
	_, ok = o.Index("missing")
	assert.False(t, ok)
	assert.False(t, o.Contains("missing"))
}

func TestOrdered_KeysIsCopy(t *testing.T) {
	o := New[string]()
	o.Add("a")

	keys := o.Keys()
	keys[0] = "mutated"

	k, _ := o.Key(0)
	assert.Equal(t, "a", k)
}

func TestOrdered_EachStopsEarly(t *testing.T) {
	o := New[string]()
	for _, k := range []string{"a", "b", "c"} {
		o.Add(k)
	}

	var seen []string
	o.Each(func(_ int, k string) bool {
		seen = append(seen, k)
		return k != "b"
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}
