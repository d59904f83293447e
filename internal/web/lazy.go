package web

import (
	"sync"
	"sync/atomic"
)

// Lazy defers a load until the first Get and caches its outcome, including
// a failure, for every later call.
type Lazy[T any] struct {
	once   sync.Once
	load   func() (T, error)
	val    T
	err    error
	loaded atomic.Bool
}

// NewLazy wraps load.
func NewLazy[T any](load func() (T, error)) *Lazy[T] {
	return &Lazy[T]{load: load}
}

// Get runs the load on first use and returns the cached result afterwards.
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		l.val, l.err = l.load()
		l.loaded.Store(true)
	})
	return l.val, l.err
}

// Loaded reports whether the load has run.
func (l *Lazy[T]) Loaded() bool {
	return l.loaded.Load()
}
