// Package observable holds a value and tells subscribers whenever it changes.
package observable

import "sync"

// Value is a concurrency-safe cell whose subscribers are called
// synchronously, in Set order, each time the value is replaced.
type Value[T any] struct {
	mu     sync.RWMutex
	notify sync.Mutex // serializes deliveries so subscribers see Sets in order
	v      T
	subs   map[uint64]func(T)
	nextID uint64
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[uint64]func(T))}
}

// Get returns the current value
func (o *Value[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.v
}

// Set replaces the value and notifies every subscriber with it.
func (o *Value[T]) Set(v T) {
	o.notify.Lock()
	defer o.notify.Unlock()

	o.mu.Lock()
	o.v = v
	fns := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Update applies fn to the current value under the write lock and
// publishes the result.
func (o *Value[T]) Update(fn func(T) T) T {
	o.notify.Lock()
	defer o.notify.Unlock()

	o.mu.Lock()
	o.v = fn(o.v)
	v := o.v
	fns := make([]func(T), 0, len(o.subs))
	for _, sub := range o.subs {
		fns = append(fns, sub)
	}
	o.mu.Unlock()

	for _, sub := range fns {
		sub(v)
	}
	return v
}

// Subscribe registers fn and returns a function that removes it. fn is
// not called with the current value; call Get for that. Unsubscribing
// from inside fn is allowed.
func (o *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered subscribers
func (o *Value[T]) Subscribers() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs)
}
