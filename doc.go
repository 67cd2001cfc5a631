// Package coop is a library for single-threaded cooperative asynchronous
// programming built around two types: [Future] and [Scheduler].
//
// A Future is a one-shot container for an eventual result: a value, an error
// of a declared type, or an unexpected failure. A Scheduler owns a queue of
// pending tasks and a queue of execution contexts that are ready to resume,
// and drives external progress through a user-supplied progress step,
// typically "run one event" of an I/O loop.
//
// # Spawning And Awaiting
//
// [Spawn] queues a function on a Scheduler and hands back a Future for its
// result. Nothing runs until some Future is awaited. When [Future.Await]
// finds its Future unresolved, it suspends the calling execution context and
// enters a resolution loop on a fresh context. The loop pops and runs queued
// tasks and, when the task queue is empty, invokes the progress step, until
// some Future with a waiter completes. Completing a Future moves all of its
// waiters onto the ready queue; the loop then hands control to the earliest
// enqueued one.
//
// Tasks are free to await other Futures. An await from within a task simply
// suspends the loop context it runs on and starts another resolution loop,
// so chains of dependent tasks resolve naturally.
//
// # Execution Contexts
//
// Suspension captures the full call stack: Await can be called at arbitrary
// depth, not only at declared suspension points. A suspended context is a
// parked goroutine, and switching contexts is a channel handoff. Exactly one
// context runs at a time, so no locking is needed anywhere in this package,
// and none is present. Using a Scheduler or its Futures from more than one
// goroutine concurrently is undefined.
//
// # Failure Model
//
// A task's error return is classified against the Future's declared error
// type: a match resolves the Future to a failure that Await hands back; any
// other error, and any panic, resolves it to an unexpected failure. Awaiting
// an unexpected failure invokes the scheduler's unexpected handler, which by
// default terminates the process with a diagnostic.
//
// Completing a Future twice is a protocol violation. The completion methods
// panic with an error wrapping [ErrAlreadyFulfilled]; if such a panic
// escapes a task inside the resolution loop, the scheduler's fatal handler
// runs, and by default it terminates the process.
//
// There is no cancellation, no preemption and no fairness guarantee beyond
// FIFO order of tasks and of ready contexts.
package coop
