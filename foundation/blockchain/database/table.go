package database

import (
	"slices"
)

// saved is the value a row held before the first change inside a session.
type saved[V any] struct {
	val     V
	existed bool
}

// Table is a keyed collection of records that supports nested undo sessions.
// Records must be written back with Put after they are changed, otherwise
// the change is not captured by the session.
type Table[K comparable, V any] struct {
	rows  map[K]V
	clone func(V) V
	undo  []map[K]saved[V]
}

// NewTable constructs a table. The clone function must return a deep copy of
// a record; nil means records hold no shared references.
func NewTable[K comparable, V any](clone func(V) V) *Table[K, V] {
	if clone == nil {
		clone = func(v V) V { return v }
	}

	return &Table[K, V]{
		rows:  make(map[K]V),
		clone: clone,
	}
}

// Get returns a copy of the record stored under the key.
func (t *Table[K, V]) Get(key K) (V, bool) {
	v, exists := t.rows[key]
	if !exists {
		return v, false
	}
	return t.clone(v), true
}

// Has reports whether a record is stored under the key.
func (t *Table[K, V]) Has(key K) bool {
	_, exists := t.rows[key]
	return exists
}

// Put stores the record under the key.
func (t *Table[K, V]) Put(key K, val V) {
	t.save(key)
	t.rows[key] = val
}

// Delete removes the record stored under the key.
func (t *Table[K, V]) Delete(key K) {
	if _, exists := t.rows[key]; !exists {
		return
	}
	t.save(key)
	delete(t.rows, key)
}

// Len returns the number of records.
func (t *Table[K, V]) Len() int {
	return len(t.rows)
}

// Select returns copies of every record the filter accepts, ordered by the
// compare function. Ordering is required because map iteration is random and
// every node must visit records in the same order.
func (t *Table[K, V]) Select(filter func(V) bool, compare func(a, b V) int) []V {
	var out []V
	for _, v := range t.rows {
		if filter == nil || filter(v) {
			out = append(out, t.clone(v))
		}
	}

	slices.SortFunc(out, compare)
	return out
}

// =============================================================================

func (t *Table[K, V]) save(key K) {
	if len(t.undo) == 0 {
		return
	}

	top := t.undo[len(t.undo)-1]
	if _, done := top[key]; done {
		return
	}

	v, exists := t.rows[key]
	if exists {
		v = t.clone(v)
	}
	top[key] = saved[V]{val: v, existed: exists}
}

func (t *Table[K, V]) begin() {
	t.undo = append(t.undo, make(map[K]saved[V]))
}

// commit folds the innermost session into its parent. Values already saved
// by the parent are older and win.
func (t *Table[K, V]) commit() {
	n := len(t.undo)
	if n == 0 {
		return
	}

	top := t.undo[n-1]
	t.undo = t.undo[:n-1]

	if n == 1 {
		return
	}

	parent := t.undo[n-2]
	for key, s := range top {
		if _, exists := parent[key]; !exists {
			parent[key] = s
		}
	}
}

func (t *Table[K, V]) rollback() {
	n := len(t.undo)
	if n == 0 {
		return
	}

	top := t.undo[n-1]
	t.undo = t.undo[:n-1]

	for key, s := range top {
		if s.existed {
			t.rows[key] = s.val
			continue
		}
		delete(t.rows, key)
	}
}

func (t *Table[K, V]) reset() {
	t.rows = make(map[K]V)
	t.undo = nil
}
