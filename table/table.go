// Package table is a fixed-capacity hash table with direct addressing: every
// key maps to exactly one slot and a colliding insert overwrites whatever the
// slot held.
package table

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const DefaultCapacity = 64

var (
	ErrEmptyTable      = errors.New("operation failed: table is empty")
	ErrKeyNotFound     = errors.New("operation failed: key not found in table")
	ErrInvalidCapacity = errors.New("operation failed: invalid capacity")
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

type Table[K comparable, V any] struct {
	slots []*entry[K, V]
	size  int
}

func New[K comparable, V any](capacity int) (*Table[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Table[K, V]{slots: make([]*entry[K, V], capacity)}, nil
}

func Default[K comparable, V any]() *Table[K, V] {
	t, _ := New[K, V](DefaultCapacity)
	return t
}

func (t *Table[K, V]) Len() int {
	return t.size
}

func (t *Table[K, V]) Cap() int {
	return len(t.slots)
}

// Insert stores value under key, replacing any entry already in the slot,
// including one stored under a different key.
func (t *Table[K, V]) Insert(key K, value V) {
	i := t.index(key)
	if t.slots[i] == nil {
		t.size++
	}
	t.slots[i] = &entry[K, V]{key: key, value: value}
}

func (t *Table[K, V]) Get(key K) (V, bool) {
	e := t.lookup(key)
	if e == nil {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (t *Table[K, V]) Remove(key K) (V, bool) {
	var zero V
	i := t.index(key)
	e := t.slots[i]
	if e == nil || e.key != key {
		return zero, false
	}
	t.slots[i] = nil
	t.size--
	return e.value, true
}

// Update replaces the value stored under key with fn(current).
func (t *Table[K, V]) Update(key K, fn func(V) V) bool {
	e := t.lookup(key)
	if e == nil {
		return false
	}
	e.value = fn(e.value)
	return true
}

// Lookup is Get with the table's error kinds.
func (t *Table[K, V]) Lookup(key K) (V, error) {
	var zero V
	if t.size == 0 {
		return zero, ErrEmptyTable
	}
	v, ok := t.Get(key)
	if !ok {
		return zero, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	return v, nil
}

// Resize rehashes every live entry into a table of the new capacity. Entries
// that collide in the new layout overwrite each other in slot order.
func (t *Table[K, V]) Resize(capacity int) error {
	next, err := New[K, V](capacity)
	if err != nil {
		return err
	}
	for _, e := range t.slots {
		if e != nil {
			next.Insert(e.key, e.value)
		}
	}
	t.slots, t.size = next.slots, next.size
	return nil
}

// Entries copies the live key/value pairs.
func (t *Table[K, V]) Entries() map[K]V {
	out := make(map[K]V, t.size)
	for _, e := range t.slots {
		if e != nil {
			out[e.key] = e.value
		}
	}
	return out
}

func (t *Table[K, V]) lookup(key K) *entry[K, V] {
	e := t.slots[t.index(key)]
	if e == nil || e.key != key {
		return nil
	}
	return e
}

func (t *Table[K, V]) index(key K) int {
	return int(hashKey(key) % uint64(len(t.slots)))
}

func hashKey(key any) uint64 {
	if s, ok := key.(string); ok {
		return xxhash.Sum64String(s)
	}
	return xxhash.Sum64String(fmt.Sprintf("%T:%v", key, key))
}
