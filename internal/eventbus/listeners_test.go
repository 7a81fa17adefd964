package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenersEmitInOrder(t *testing.T) {
	l := NewListeners[int](nil)
	var got []int
	l.Add(func(v int) { got = append(got, v) })
	l.Add(func(v int) { got = append(got, v*10) })
	l.Emit(3)
	assert.Equal(t, []int{3, 30}, got)
}

func TestListenersPanicDoesNotAbort(t *testing.T) {
	var recovered any
	l := NewListeners[string](func(r any) { recovered = r })
	called := false
	l.Add(func(string) { panic("boom") })
	l.Add(func(string) { called = true })

	assert.NotPanics(t, func() { l.Emit("x") })
	assert.True(t, called)
	assert.Equal(t, "boom", recovered)
}

func TestListenersRemove(t *testing.T) {
	l := NewListeners[int](nil)
	n := 0
	remove := l.Add(func(int) { n++ })
	l.Emit(1)
	remove()
	remove()
	l.Emit(1)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, l.Len())
}

func TestListenersReentrantAdd(t *testing.T) {
	l := NewListeners[int](nil)
	n := 0
	l.Add(func(int) {
		l.Add(func(int) { n++ })
	})
	l.Emit(1)
	assert.Equal(t, 0, n)
	l.Emit(1)
	assert.Equal(t, 1, n)
}
