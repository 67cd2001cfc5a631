package coop

import (
	"errors"
	"runtime/debug"
)

// A paniccatcher captures a single panic raised by a task so that the panic
// value can be classified after the fact.
type paniccatcher struct {
	value any
	stack []byte
}

// Try runs f, reporting false if f panicked. The panic value and its stack
// trace are retained in pc.
func (pc *paniccatcher) Try(f func()) (ok bool) {
	defer func() {
		if !ok {
			v := recover()
			if v == nil {
				panic("coop: tasks must not call runtime.Goexit")
			}
			pc.value = v
			pc.stack = debug.Stack()
		}
	}()
	f()
	return true
}

// Rethrow repanics the captured value if it is an error wrapping target.
func (pc *paniccatcher) Rethrow(target error) {
	if err, ok := pc.value.(error); ok && errors.Is(err, target) {
		panic(pc.value)
	}
}
