// Package registry holds the process-local maps the supervisor indexes
// sessions by: session id, room url, and (tenant, user) binding key. It
// is a thin concurrent map wrapper so callers never hold a lock across
// session work.
package registry

import "github.com/alphadose/haxmap"

type Registry[T any] interface {
	Get(name string) (T, bool)
	Add(name string, value T)
	GetOrAdd(name string, value func() T) (T, bool)
	Del(name string)
	// Find returns the first value for which pred is true. Iteration
	// order is unspecified.
	Find(pred func(T) bool) (T, bool)
	// Range calls fn for every entry until fn returns false.
	Range(fn func(name string, value T) bool)
	Len() int
}

type registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](),
	}
}

func (r *registry[T]) Get(name string) (T, bool) {
	return r.values.Get(name)
}

func (r *registry[T]) Add(name string, value T) {
	r.values.Set(name, value)
}

func (r *registry[T]) GetOrAdd(name string, valueFn func() T) (T, bool) {
	return r.values.GetOrCompute(name, valueFn)
}

func (r *registry[T]) Del(name string) {
	r.values.Del(name)
}

func (r *registry[T]) Find(pred func(T) bool) (T, bool) {
	var (
		found T
		ok    bool
	)
	r.values.ForEach(func(_ string, v T) bool {
		if pred(v) {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

func (r *registry[T]) Range(fn func(name string, value T) bool) {
	r.values.ForEach(fn)
}

func (r *registry[T]) Len() int {
	return int(r.values.Len())
}
