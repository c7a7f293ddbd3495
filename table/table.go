// Package table provides the append-only indexed container that backs every
// class table of a segment and of the machine.
//
// Indices handed out by Add are stable for the lifetime of the table: growth
// copies entries by value and never reorders them, and entries are never
// compacted. Entity references embed these indices directly.
package table

import (
	"errors"
	"fmt"
	"iter"
)

// NotFound is returned by Find when no entry matches.
const NotFound = -1

const (
	// DefaultCapacity is the initial reservation used when none is given.
	DefaultCapacity = 10

	// DefaultIncrement is the growth step used when none is configured.
	DefaultIncrement = 16
)

// ErrCapacity is returned by Add when the table cannot grow any further.
var ErrCapacity = errors.New("table capacity exhausted")

// ErrIndex is returned by Set for indices that were never issued.
var ErrIndex = errors.New("table index out of range")

// Caps is the capability set of a table.
type Caps struct {
	CanGrow    bool
	CanCompare bool
	CanDestroy bool
}

// Store is the type-independent view of a table. A segment keeps its
// per-class tables in one array through this interface.
type Store interface {
	Name() string
	Len() int
	Cap() int
	Find(key any) int
	Clear()
	Destroy()
	Capabilities() Caps
}

// Option configures a table at construction time.
type Option[T any] func(*Table[T])

// WithIncrement sets the number of slots added on each growth step.
// A zero increment disables growth.
func WithIncrement[T any](n int) Option[T] {
	return func(t *Table[T]) {
		if n >= 0 {
			t.increment = n
		}
	}
}

// WithEqual installs the predicate used by Find.
func WithEqual[T any](eq func(entry T, key any) bool) Option[T] {
	return func(t *Table[T]) { t.equal = eq }
}

// WithDestroy installs the destructor run by Clear and Destroy on every
// live entry.
func WithDestroy[T any](fn func(T)) Option[T] {
	return func(t *Table[T]) { t.destroy = fn }
}

// WithLimit caps the number of entries the table may ever hold.
// Zero means unlimited.
func WithLimit[T any](n int) Option[T] {
	return func(t *Table[T]) {
		if n >= 0 {
			t.limit = n
		}
	}
}

// Table is an append-only sequence of entries of type T.
type Table[T any] struct {
	name      string
	entries   []T
	increment int
	limit     int
	equal     func(T, any) bool
	destroy   func(T)
}

// New creates a table with room for capacity entries.
func New[T any](name string, capacity int, opts ...Option[T]) *Table[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	t := &Table[T]{
		name:      name,
		increment: DefaultIncrement,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.limit > 0 && capacity > t.limit {
		capacity = t.limit
	}
	t.entries = make([]T, 0, capacity)
	return t
}

// Name returns the table's diagnostic name.
func (t *Table[T]) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Len returns the number of issued indices.
func (t *Table[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Cap returns the current reservation.
func (t *Table[T]) Cap() int {
	if t == nil {
		return 0
	}
	return cap(t.entries)
}

// Room returns how many more entries Add can accept before failing.
func (t *Table[T]) Room() int {
	switch {
	case t == nil:
		return 0
	case t.limit > 0:
		return t.limit - len(t.entries)
	case t.increment <= 0:
		return cap(t.entries) - len(t.entries)
	}
	return int(^uint(0) >> 1)
}

// Capabilities reports which optional behaviours this table has.
func (t *Table[T]) Capabilities() Caps {
	if t == nil {
		return Caps{}
	}
	return Caps{
		CanGrow:    t.increment > 0,
		CanCompare: t.equal != nil,
		CanDestroy: t.destroy != nil,
	}
}

// Add appends entry and returns its index. When the reservation is
// exhausted the table grows by its increment; if it cannot, ErrCapacity is
// returned and the table is left unchanged.
func (t *Table[T]) Add(entry T) (int, error) {
	if t == nil {
		return NotFound, fmt.Errorf("add to nil table: %w", ErrCapacity)
	}
	n := len(t.entries)
	if t.limit > 0 && n >= t.limit {
		return NotFound, fmt.Errorf("%s: %d entries: %w", t.name, n, ErrCapacity)
	}
	if n == cap(t.entries) {
		if err := t.grow(); err != nil {
			return NotFound, err
		}
	}
	t.entries = append(t.entries, entry)
	return n, nil
}

func (t *Table[T]) grow() error {
	if t.increment <= 0 {
		return fmt.Errorf("%s: fixed at %d entries: %w", t.name, cap(t.entries), ErrCapacity)
	}
	size := cap(t.entries) + t.increment
	if t.limit > 0 && size > t.limit {
		size = t.limit
	}
	grown := make([]T, len(t.entries), size)
	copy(grown, t.entries)
	t.entries = grown
	return nil
}

// Find returns the index of the first entry equal to key, or NotFound.
// A table without an equality predicate never matches.
func (t *Table[T]) Find(key any) int {
	if t == nil || t.equal == nil {
		return NotFound
	}
	for i, e := range t.entries {
		if t.equal(e, key) {
			return i
		}
	}
	return NotFound
}

// Get returns the entry at index i.
func (t *Table[T]) Get(i int) (T, bool) {
	var zero T
	if t == nil || i < 0 || i >= len(t.entries) {
		return zero, false
	}
	return t.entries[i], true
}

// Set replaces the entry at an already issued index. It is the only way to
// logically clear a slot; the index itself stays allocated.
func (t *Table[T]) Set(i int, entry T) error {
	if t == nil || i < 0 || i >= len(t.entries) {
		return fmt.Errorf("%s[%d]: %w", t.Name(), i, ErrIndex)
	}
	t.entries[i] = entry
	return nil
}

// All iterates over the entries in index order.
func (t *Table[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if t == nil {
			return
		}
		for i, e := range t.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Entries returns a copy of the live entries.
func (t *Table[T]) Entries() []T {
	if t == nil {
		return nil
	}
	out := make([]T, len(t.entries))
	copy(out, t.entries)
	return out
}

// Clear runs the destructor on each live entry and resets the length to
// zero. The reservation is kept.
func (t *Table[T]) Clear() {
	if t == nil {
		return
	}
	if t.destroy != nil {
		for _, e := range t.entries {
			t.destroy(e)
		}
	}
	var zero T
	for i := range t.entries {
		t.entries[i] = zero
	}
	t.entries = t.entries[:0]
}

// Destroy clears the table and releases its backing storage. Destroying a
// nil table is a no-op.
func (t *Table[T]) Destroy() {
	if t == nil {
		return
	}
	t.Clear()
	t.entries = nil
}
