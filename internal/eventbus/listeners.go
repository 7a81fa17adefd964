package eventbus

import "sync"

// Listeners is a synchronous observer list. Emit calls every registered
// listener in registration order on the caller's goroutine. A panicking
// listener is recovered and reported through the panic handler so the
// remaining listeners and the emitter keep running.
type Listeners[T any] struct {
	mu      sync.RWMutex
	nextID  int
	entries []listenerEntry[T]
	onPanic func(any)
}

type listenerEntry[T any] struct {
	id int
	fn func(T)
}

// NewListeners returns an empty list. onPanic may be nil.
func NewListeners[T any](onPanic func(any)) *Listeners[T] {
	return &Listeners[T]{onPanic: onPanic}
}

// Add registers fn and returns a function removing it.
func (l *Listeners[T]) Add(fn func(T)) (remove func()) {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, listenerEntry[T]{id: id, fn: fn})
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, e := range l.entries {
			if e.id == id {
				l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of registered listeners.
func (l *Listeners[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Emit delivers e to every listener.
func (l *Listeners[T]) Emit(e T) {
	l.mu.RLock()
	entries := append([]listenerEntry[T](nil), l.entries...)
	l.mu.RUnlock()
	for _, entry := range entries {
		l.call(entry.fn, e)
	}
}

func (l *Listeners[T]) call(fn func(T), e T) {
	defer func() {
		if r := recover(); r != nil && l.onPanic != nil {
			l.onPanic(r)
		}
	}()
	fn(e)
}
