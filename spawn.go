package coop

import "errors"

// Spawn queues f to run on s and returns the Future that its outcome will
// fulfill. Nothing runs until some Future bound to s is awaited.
//
// The outcome of f is classified against the declared error type E:
//   - a nil error resolves the Future to f's value;
//   - an error matching E (per [errors.As]) resolves it to that failure;
//   - any other error, and any panic, resolves it to an unexpected failure.
//
// A panic carrying [ErrAlreadyFulfilled] is never swallowed: it signals a
// protocol violation, not a task failure, and is rethrown to the resolution
// loop, where it is fatal.
//
// The caller owns the returned Future and decides when to await it. The
// queued task borrows the Future, so the Future stays live at least until
// the task has run.
func Spawn[V any, E error](s *Scheduler, f func() (V, error)) *Future[V, E] {
	fut := NewFuture[V, E](s)
	s.tasks.Push(task{id: fut.id, run: func() {
		var pc paniccatcher
		if pc.Try(func() {
			v, err := f()
			settle(fut, v, err)
		}) {
			return
		}
		pc.Rethrow(ErrAlreadyFulfilled)
		fut.setUnexpectedCause(pc.value, pc.stack)
	}})
	return fut
}

// SpawnVoid queues f, which produces no value, and returns the barrier
// Future that its outcome will fulfill. Error classification is the same
// as for [Spawn]; retrieval is [Future.Wait].
func SpawnVoid[E error](s *Scheduler, f func() error) *Future[Unit, E] {
	return Spawn[Unit, E](s, func() (Unit, error) {
		return Unit{}, f()
	})
}

func settle[V any, E error](fut *Future[V, E], v V, err error) {
	if err == nil {
		fut.SetResult(v)
		return
	}
	var e E
	if errors.As(err, &e) {
		fut.SetError(e)
		return
	}
	fut.setUnexpectedCause(err, nil)
}
