// Package index provides an insertion-ordered bijective map used to allocate
// dense integer identifiers.
//
// A key's identifier is its position in first-seen order: the first key added
// gets 0, the next distinct key gets 1, and so on. Re-adding a known key never
// allocates a new identifier. Both the matrix row allocator (graph nodes) and
// the column allocator (features) are built on Ordered.
package index

// Ordered maps keys to dense indices 0..Len()-1 in first-seen order.
// The zero value is not usable; create one with New.
type Ordered[K comparable] struct {
	keys []K
	pos  map[K]int
}

// New creates an empty Ordered index.
func New[K comparable]() *Ordered[K] {
	return &Ordered[K]{pos: make(map[K]int)}
}

// Add registers key if absent and returns its index. The boolean reports
// whether the key was newly inserted.
func (o *Ordered[K]) Add(key K) (int, bool) {
	if i, ok := o.pos[key]; ok {
		return i, false
	}
	i := len(o.keys)
	o.keys = append(o.keys, key)
	o.pos[key] = i
	return i, true
}

// Index returns the index of key.
func (o *Ordered[K]) Index(key K) (int, bool) {
	i, ok := o.pos[key]
	return i, ok
}

// Contains reports whether key has been registered.
func (o *Ordered[K]) Contains(key K) bool {
	_, ok := o.pos[key]
	return ok
}

// Key returns the key at index i.
func (o *Ordered[K]) Key(i int) (K, bool) {
	if i < 0 || i >= len(o.keys) {
		var zero K
		return zero, false
	}
	return o.keys[i], true
}

// Len returns the number of registered keys.
func (o *Ordered[K]) Len() int {
	return len(o.keys)
}

// Keys returns a copy of the keys in index order.
func (o *Ordered[K]) Keys() []K {
	out := make([]K, len(o.keys))
	copy(out, o.keys)
	return out
}

// Each calls fn for every key in index order, stopping early if fn returns false.
func (o *Ordered[K]) Each(fn func(i int, key K) bool) {
	for i, k := range o.keys {
		if !fn(i, k) {
			return
		}
	}
}

// Reader is the read-only view of an Ordered index handed to consumers
// that must not allocate new identifiers.
type Reader[K comparable] interface {
	Index(key K) (int, bool)
	Key(i int) (K, bool)
	Contains(key K) bool
	Len() int
	Keys() []K
	Each(fn func(i int, key K) bool)
}

var _ Reader[string] = (*Ordered[string])(nil)
