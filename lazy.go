package relgraph

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrNotPrepared is returned by Lazy.Load when the proxy was never prepared
// by a query.
var ErrNotPrepared = errors.New("relgraph: lazy relationship was not prepared")

// SecondaryContext is an independent data-access context that runs exactly
// one relationship query. It never shares a connection or transaction with
// the query that created it.
type SecondaryContext interface {
	// Query runs the relationship query for the given parent entity.
	Query(ctx context.Context, parent any) (any, error)
	// Close releases the context.
	Close() error
}

// ContextFactory opens a new SecondaryContext.
type ContextFactory func() (SecondaryContext, error)

// Deferred is implemented by relationship members whose value is supplied
// by a secondary query instead of the row that produced the parent.
type Deferred interface {
	// Prepare installs the loader. It must be called before the first Load.
	Prepare(factory ContextFactory, parent any, path string)
	// ElemType reports the type of the wrapped value.
	ElemType() reflect.Type
	// SetValue stores v and marks the value loaded.
	SetValue(v any) error
	// Peek returns the current value without loading.
	Peek() any
}

// Lazy is a relationship member loaded on first access. The zero value is
// ready to be prepared; entities must hold it by value inside a struct that
// is itself used through a pointer.
//
//	type Order struct {
//		ID       int
//		Customer relgraph.Lazy[*Customer]
//		Items    relgraph.Lazy[[]*OrderItem]
//	}
//
// A failed Load is not cached: the error is returned and the next Load runs
// the query again.
type Lazy[T any] struct {
	mu      sync.Mutex
	factory ContextFactory
	parent  any
	path    string
	value   T
	loaded  bool
}

// Prepare implements Deferred.
func (l *Lazy[T]) Prepare(factory ContextFactory, parent any, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factory, l.parent, l.path = factory, parent, path
}

// Load returns the relationship value, running the secondary query on the
// first call only.
func (l *Lazy[T]) Load(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.value, nil
	}
	var zero T
	if l.factory == nil {
		return zero, &RelationLoadError{Path: l.path, Err: ErrNotPrepared}
	}
	v, err := l.run(ctx)
	if err != nil {
		return zero, NewRelationLoadError(l.path, err)
	}
	l.value, l.loaded = v, true
	return v, nil
}

func (l *Lazy[T]) run(ctx context.Context) (v T, rerr error) {
	sc, err := l.factory()
	if err != nil {
		return v, err
	}
	defer func() {
		if cerr := sc.Close(); cerr != nil {
			rerr = errors.Join(rerr, cerr)
		}
	}()
	res, err := sc.Query(ctx, l.parent)
	if err != nil {
		return v, err
	}
	if res == nil {
		return v, nil
	}
	t, ok := res.(T)
	if !ok {
		return v, fmt.Errorf("unexpected relationship value %T, expect %s", res, reflect.TypeFor[T]())
	}
	return t, nil
}

// Value returns the loaded value, or the zero value if Load has not
// succeeded yet. It never performs I/O.
func (l *Lazy[T]) Value() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// IsLoaded reports whether the value was loaded or set.
func (l *Lazy[T]) IsLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Path returns the entity-type path captured by Prepare.
func (l *Lazy[T]) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Set stores v and marks the value loaded.
func (l *Lazy[T]) Set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value, l.loaded = v, true
}

// ElemType implements Deferred.
func (l *Lazy[T]) ElemType() reflect.Type {
	return reflect.TypeFor[T]()
}

// SetValue implements Deferred.
func (l *Lazy[T]) SetValue(v any) error {
	if v == nil {
		var zero T
		l.Set(zero)
		return nil
	}
	t, ok := v.(T)
	if !ok {
		return fmt.Errorf("relgraph: cannot assign %T to Lazy[%s]", v, reflect.TypeFor[T]())
	}
	l.Set(t)
	return nil
}

// Peek implements Deferred.
func (l *Lazy[T]) Peek() any {
	return l.Value()
}

var _ Deferred = (*Lazy[int])(nil)
