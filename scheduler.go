package coop

import (
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// A task is one queued unit of work: a closure that runs a spawned function
// and settles its Future. The id ties the execution back to the Future in
// trace output.
type task struct {
	id  string
	run func()
}

// A Service is an event source in the shape of an I/O loop: RunOne performs
// one pending event, reporting whether anything was done. It may block
// until an event is available. [NewFromService] adapts a Service into a
// progress step.
type Service interface {
	RunOne() bool
}

// A Scheduler drives cooperative tasks and the Futures they fulfill.
//
// A Scheduler owns a FIFO queue of pending tasks and a FIFO queue of
// execution contexts that are ready to resume. Whenever an await suspends,
// a resolution loop on a fresh context drains the task queue and, when it
// is empty, invokes the progress step, until some context becomes ready.
//
// A Scheduler must outlive every Future and task it produces. It is not
// safe for concurrent use; see the package documentation.
type Scheduler struct {
	tasks        fifoqueue[task]
	ready        fifoqueue[Context]
	progress     func()
	stackAlloc   StackAllocator
	stackSize    int
	onUnexpected func(cause any, stack []byte)
	onFatal      func(err error)
	tracer       trace.Tracer
}

// New constructs a Scheduler whose external progress is driven by step.
//
// The progress step is invoked, exactly once per idle iteration, whenever
// the task queue is empty but some context is still waiting. It may block
// for up to one event and is responsible for eventual forward progress
// toward fulfilling a pending Future; a step that never leads to a
// completion leaves the scheduler spinning. Reentering the scheduler from
// inside the step is not supported.
func New(step func(), opts ...Option) (*Scheduler, error) {
	if step == nil {
		return nil, errors.New("coop: nil progress step")
	}
	var cfg Config
	if err := cfg.Apply(append([]Option{DefaultConfig}, opts...)...); err != nil {
		return nil, err
	}
	return &Scheduler{
		progress:     step,
		stackAlloc:   cfg.StackAllocator,
		stackSize:    cfg.StackSize,
		onUnexpected: cfg.Unexpected,
		onFatal:      cfg.Fatal,
		tracer:       cfg.Tracer,
	}, nil
}

// NewFromService constructs a Scheduler whose progress step runs one event
// of svc per invocation.
func NewFromService(svc Service, opts ...Option) (*Scheduler, error) {
	if svc == nil {
		return nil, errors.New("coop: nil Service")
	}
	return New(func() { svc.RunOne() }, opts...)
}

// Idle reports whether s has no queued tasks and no ready contexts.
func (s *Scheduler) Idle() bool {
	return s.tasks.Empty() && s.ready.Empty()
}

// waitUntilReady suspends the calling context into save and runs the
// resolution loop on a fresh context until some waiter is resumed. Each
// call acquires one stack and releases it on the return path, no matter
// how many waiters resume on that stack first.
//
// preserveFP is accepted for interface fidelity with switch primitives that
// make floating-point preservation optional; the Go runtime preserves all
// registers across a park, so the flag has no effect.
func (s *Scheduler) waitUntilReady(save *Context, preserveFP bool) {
	_ = preserveFP
	var sc StackContext
	s.stackAlloc.Allocate(&sc, s.stackSize)
	jump(save, makeContext(&sc, s.loop))
	s.stackAlloc.Deallocate(&sc)
}

// loop is the resolution loop. It drains tasks and invokes the progress
// step until a context is ready to resume, then hands control to the
// earliest enqueued one and terminates. It runs only on contexts created
// by waitUntilReady.
func (s *Scheduler) loop() {
	for s.ready.Empty() {
		if !s.tasks.Empty() {
			s.runTask(s.tasks.Pop())
		} else {
			s.progress()
		}
	}
	exitTo(s.ready.Pop())
}

// runTask runs one queued task. A double-completion panic escaping the task
// is routed to the fatal handler: the duplicate completion has already
// mutated scheduler state, so there is nothing sound to resume. Any other
// panic has been settled into the task's Future before reaching here and
// propagates only if settling itself was impossible.
func (s *Scheduler) runTask(t task) {
	defer func() {
		if v := recover(); v != nil {
			err, ok := v.(error)
			if !ok || !errors.Is(err, ErrAlreadyFulfilled) {
				panic(v)
			}
			s.onFatal(err)
			// A fatal handler that returns abandons the task; the loop
			// resumes the waiters of the first, valid completion.
		}
	}()
	if s.tracer != nil {
		defer s.startTaskSpan(t).End()
	}
	t.run()
}

// notifyReady walks the waiter list head to tail and appends each suspended
// context to the ready queue. The cells stay where they live, on their
// awaiters' stacks.
func (s *Scheduler) notifyReady(head *waitCell) {
	for cell := head; cell != nil; cell = cell.next {
		s.ready.Push(cell.ctx)
	}
}

// unexpected invokes the unexpected handler for an awaited Future that
// failed outside its declared error type.
func (s *Scheduler) unexpected(cause any, stack []byte) {
	s.onUnexpected(cause, stack)
}

func abortOnUnexpected(cause any, stack []byte) {
	if cause != nil {
		fmt.Fprintf(os.Stderr, "coop: awaited a Future that failed unexpectedly: %v\n", cause)
	} else {
		fmt.Fprintln(os.Stderr, "coop: awaited a Future that failed unexpectedly")
	}
	if len(stack) != 0 {
		os.Stderr.Write(stack)
	}
	os.Exit(2)
}

func abortOnDoubleFulfill(err error) {
	fmt.Fprintf(os.Stderr, "coop: a Future was fulfilled a second time inside the resolution loop; this is non-recoverable: %v\n", err)
	os.Exit(2)
}
