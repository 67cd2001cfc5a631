package coop

import (
	"fmt"

	"github.com/google/uuid"
)

// Unit is the value type of futures that carry no result.
// A Future[Unit, E] acts as a barrier: it cannot deliver a value but can
// deliver a failure and can be awaited. See [SpawnVoid].
type Unit = struct{}

type futureState uint8

const (
	stateUnresolved futureState = iota
	stateSuccess
	stateFailure
	stateUnexpected
)

func (s futureState) String() string {
	switch s {
	case stateUnresolved:
		return "unresolved"
	case stateSuccess:
		return "success"
	case stateFailure:
		return "failure"
	default:
		return "unexpected"
	}
}

// A waitCell holds one suspended execution context, linked into a Future's
// waiter list while its owner is blocked in Await. Cells are locals of the
// Await frame that created them; the scheduler only moves their contexts to
// the ready queue and never retains or frees the cells themselves.
type waitCell struct {
	ctx  Context
	next *waitCell
}

// A Future is a one-shot container for a result of type V, an error of the
// declared type E, or an unexpected failure.
//
// A Future starts unresolved and transitions out of that state at most once,
// through exactly one of [Future.SetResult], [Future.SetError] and
// [Future.SetUnexpected]. Any further completion attempt panics with an
// error wrapping [ErrAlreadyFulfilled].
//
// A Future is bound to one [Scheduler] for its whole lifetime, and the
// Scheduler must outlive it. Futures are produced by [Spawn] and
// [SpawnVoid], which complete them from the spawned task, or constructed
// directly with [NewFuture] and completed by external code, typically from
// a progress-step callback.
//
// A Future is not safe for concurrent use. See the package documentation.
type Future[V any, E error] struct {
	scheduler *Scheduler
	state     futureState
	waiters   *waitCell // head of the waiter list; unresolved only
	value     V         // success only
	err       E         // failure only
	cause     any       // unexpected only: the panic value or foreign error, if any
	causeStk  []byte    // unexpected only: stack trace of the panic, if any
	id        string
}

// NewFuture creates an unresolved Future bound to s.
func NewFuture[V any, E error](s *Scheduler) *Future[V, E] {
	if s == nil {
		panic("coop: NewFuture called with nil Scheduler")
	}
	return &Future[V, E]{scheduler: s, id: uuid.NewString()}
}

// String describes f for debugging.
func (f *Future[V, E]) String() string {
	return fmt.Sprintf("Future(%.8s, %v)", f.id, f.state)
}

// complete checks the one-shot invariant and detaches the waiter list.
// The caller installs the terminal state and payload, then hands the list
// to the scheduler. State and payload must be installed before notifyReady
// is called: each waiter re-inspects the state when it resumes.
func (f *Future[V, E]) complete() *waitCell {
	if f.state != stateUnresolved {
		panic(fmt.Errorf("coop: %w", ErrAlreadyFulfilled))
	}
	head := f.waiters
	f.waiters = nil
	return head
}

// SetResult fulfills f with v and hands every waiter to the scheduler.
//
// Panics with an error wrapping [ErrAlreadyFulfilled] if f was already
// completed.
func (f *Future[V, E]) SetResult(v V) {
	head := f.complete()
	f.state = stateSuccess
	f.value = v
	f.scheduler.notifyReady(head)
}

// SetError fulfills f with the error e and hands every waiter to the
// scheduler. Awaiters receive e.
//
// Panics with an error wrapping [ErrAlreadyFulfilled] if f was already
// completed.
func (f *Future[V, E]) SetError(e E) {
	head := f.complete()
	f.state = stateFailure
	f.err = e
	f.scheduler.notifyReady(head)
}

// SetUnexpected marks f as having failed outside its declared error type
// and hands every waiter to the scheduler. Awaiting f afterwards invokes
// the scheduler's unexpected handler.
//
// Panics with an error wrapping [ErrAlreadyFulfilled] if f was already
// completed.
func (f *Future[V, E]) SetUnexpected() {
	head := f.complete()
	f.state = stateUnexpected
	f.scheduler.notifyReady(head)
}

// setUnexpectedCause is SetUnexpected with the provoking value and stack
// trace retained for the unexpected handler's diagnostic.
func (f *Future[V, E]) setUnexpectedCause(cause any, stack []byte) {
	head := f.complete()
	f.state = stateUnexpected
	f.cause = cause
	f.causeStk = stack
	f.scheduler.notifyReady(head)
}

// Await blocks until f is resolved, then delivers the outcome: the value on
// success, the stored error on failure. For an unexpected failure it
// invokes the scheduler's unexpected handler, which by default terminates
// the process; if a handler installed with [WithUnexpectedHandler] returns
// instead, Await returns [ErrUnexpected].
//
// While f is unresolved, Await suspends the calling context and lets the
// scheduler's resolution loop run. A single completion wakes every waiter,
// so a resumed waiter inspects the state afresh before delivering.
//
// Waiters suspended on the same Future resume in reverse order of
// suspension: insertion into the waiter list is at the head, and completion
// walks the list head to tail.
func (f *Future[V, E]) Await() (V, error) {
	for {
		switch f.state {
		case stateSuccess:
			return f.value, nil
		case stateFailure:
			var zero V
			return zero, f.err
		case stateUnexpected:
			f.scheduler.unexpected(f.cause, f.causeStk)
			var zero V
			return zero, ErrUnexpected
		default:
			cell := waitCell{next: f.waiters}
			f.waiters = &cell
			f.scheduler.waitUntilReady(&cell.ctx, false)
		}
	}
}

// Wait is Await with the value discarded. It is the natural retrieval for
// a Future[Unit, E].
func (f *Future[V, E]) Wait() error {
	_, err := f.Await()
	return err
}
