package coop

import "errors"

// ErrAlreadyFulfilled reports a second completion of a [Future].
//
// The completion methods panic with an error wrapping this sentinel.
// Recovering it leaves the Future in a poisoned state; further use is
// undefined. If the panic escapes a task inside the resolution loop,
// the scheduler treats it as fatal.
var ErrAlreadyFulfilled = errors.New("future already fulfilled")

// ErrUnexpected is returned by [Future.Await] for a Future that completed
// with an unexpected failure, after the scheduler's unexpected handler
// returns. The default handler terminates the process and never returns;
// only a replacement handler installed with [WithUnexpectedHandler] can
// make this value observable.
var ErrUnexpected = errors.New("future completed with an unexpected failure")
