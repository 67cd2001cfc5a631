package coop

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"
)

// Config is a structure containing all the options that can be used when
// constructing a [Scheduler].
type Config struct {
	// StackAllocator provides and releases stacks for resolution-loop
	// contexts.
	StackAllocator StackAllocator
	// StackSize is the stack reservation, in bytes, requested per
	// resolution-loop context.
	StackSize int
	// Unexpected handles an awaited Future that failed outside its declared
	// error type. It receives the provoking value and, for panics, a stack
	// trace; either may be nil. It is not expected to return.
	Unexpected func(cause any, stack []byte)
	// Fatal handles a double completion detected inside the resolution
	// loop. It is not expected to return; if it does, the offending task is
	// abandoned.
	Fatal func(err error)
	// Tracer, when non-nil, records a span per executed task.
	Tracer trace.Tracer
}

// Apply applies the given options to this Config.
func (cfg *Config) Apply(opts ...Option) error {
	for i, opt := range opts {
		if err := opt(cfg); err != nil {
			return fmt.Errorf("coop: scheduler option %d failed: %w", i, err)
		}
	}
	return nil
}

// Option type for Scheduler.
type Option func(*Config) error

// DefaultConfig is the default options for a Scheduler. This option is
// always prepended to the list of options passed to the constructors.
var DefaultConfig = func(cfg *Config) error {
	cfg.StackAllocator = runtimeStackAllocator{}
	cfg.StackSize = DefaultStackSize
	cfg.Unexpected = abortOnUnexpected
	cfg.Fatal = abortOnDoubleFulfill
	return nil
}

// WithStackAllocator sets the allocator used for resolution-loop stacks.
func WithStackAllocator(a StackAllocator) Option {
	return func(cfg *Config) error {
		if a == nil {
			return errors.New("nil StackAllocator")
		}
		cfg.StackAllocator = a
		return nil
	}
}

// WithStackSize sets the stack reservation requested per resolution-loop
// context.
func WithStackSize(size int) Option {
	return func(cfg *Config) error {
		if size <= 0 {
			return fmt.Errorf("invalid stack size %d", size)
		}
		cfg.StackSize = size
		return nil
	}
}

// WithUnexpectedHandler replaces the handler invoked when an awaited Future
// failed outside its declared error type. The default handler terminates
// the process with a diagnostic. A replacement that returns makes
// [Future.Await] return [ErrUnexpected] instead.
func WithUnexpectedHandler(h func(cause any, stack []byte)) Option {
	return func(cfg *Config) error {
		if h == nil {
			return errors.New("nil unexpected handler")
		}
		cfg.Unexpected = h
		return nil
	}
}

// WithFatalHandler replaces the handler invoked when a double completion is
// detected inside the resolution loop. The default handler terminates the
// process with a diagnostic.
func WithFatalHandler(h func(err error)) Option {
	return func(cfg *Config) error {
		if h == nil {
			return errors.New("nil fatal handler")
		}
		cfg.Fatal = h
		return nil
	}
}

// WithTracer enables tracing: the scheduler records a span per executed
// task on t.
func WithTracer(t trace.Tracer) Option {
	return func(cfg *Config) error {
		cfg.Tracer = t
		return nil
	}
}
