package coop_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/b97tsk/coop"
)

// flakyErr is the declared error type used throughout these tests.
type flakyErr struct{ msg string }

func (e *flakyErr) Error() string { return e.msg }

func noop() {}

func TestSpawnAwait(t *testing.T) {
	s, err := coop.New(noop)
	require.NoError(t, err)

	f := coop.Spawn[int, *flakyErr](s, func() (int, error) {
		return 42, nil
	})

	v, err := f.Await()
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.True(t, s.Idle())
}

func TestErrorPropagation(t *testing.T) {
	s, err := coop.New(noop)
	require.NoError(t, err)

	f := coop.Spawn[int, *flakyErr](s, func() (int, error) {
		return 0, &flakyErr{msg: "x"}
	})

	_, err = f.Await()
	var fe *flakyErr
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "x", fe.msg)

	// The scheduler stays serviceable after a task failure.
	g := coop.Spawn[int, *flakyErr](s, func() (int, error) {
		return 1, nil
	})
	v, err := g.Await()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestUnexpectedError(t *testing.T) {
	t.Run("ForeignErrorType", func(t *testing.T) {
		var cause any
		calls := 0
		s, err := coop.New(noop,
			coop.WithUnexpectedHandler(func(v any, stack []byte) {
				calls++
				cause = v
			}))
		require.NoError(t, err)

		boom := errors.New("boom")
		f := coop.Spawn[int, *flakyErr](s, func() (int, error) {
			return 0, boom
		})

		_, err = f.Await()
		require.ErrorIs(t, err, coop.ErrUnexpected)
		require.Equal(t, 1, calls)
		require.Equal(t, boom, cause)
	})
	t.Run("Panic", func(t *testing.T) {
		var cause any
		var stack []byte
		s, err := coop.New(noop,
			coop.WithUnexpectedHandler(func(v any, stk []byte) {
				cause = v
				stack = stk
			}))
		require.NoError(t, err)

		f := coop.Spawn[int, *flakyErr](s, func() (int, error) {
			panic("kaboom")
		})

		_, err = f.Await()
		require.ErrorIs(t, err, coop.ErrUnexpected)
		require.Equal(t, "kaboom", cause)
		require.NotEmpty(t, stack)
	})
}

func TestCrossFutureWait(t *testing.T) {
	s, err := coop.New(noop)
	require.NoError(t, err)

	var ran1, ran2 int

	f1 := coop.Spawn[int, *flakyErr](s, func() (int, error) {
		ran1++
		return 1, nil
	})
	f2 := coop.Spawn[int, *flakyErr](s, func() (int, error) {
		ran2++
		v, err := f1.Await()
		return v + 1, err
	})

	v, err := f2.Await()
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.Equal(t, 1, ran1)
	require.Equal(t, 1, ran2)
	require.True(t, s.Idle())
}

func TestCrossFutureWaitReversed(t *testing.T) {
	// The dependent task runs first and suspends inside the resolution
	// loop; a nested loop then runs the producer.
	s, err := coop.New(noop)
	require.NoError(t, err)

	f1 := coop.NewFuture[int, *flakyErr](s)
	f2 := coop.Spawn[int, *flakyErr](s, func() (int, error) {
		v, err := f1.Await()
		return v + 1, err
	})
	coop.SpawnVoid[*flakyErr](s, func() error {
		f1.SetResult(1)
		return nil
	})

	v, err := f2.Await()
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestDoubleFulfill(t *testing.T) {
	s, err := coop.New(noop)
	require.NoError(t, err)

	f := coop.NewFuture[int, *flakyErr](s)
	f.SetResult(1)

	require.PanicsWithError(t, "coop: future already fulfilled", func() {
		f.SetResult(2)
	})
	require.PanicsWithError(t, "coop: future already fulfilled", func() {
		f.SetError(&flakyErr{msg: "late"})
	})
	require.PanicsWithError(t, "coop: future already fulfilled", func() {
		f.SetUnexpected()
	})

	v, err := f.Await()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestDoubleFulfillInsideLoop(t *testing.T) {
	var fatal error
	s, err := coop.New(noop,
		coop.WithFatalHandler(func(err error) { fatal = err }))
	require.NoError(t, err)

	f := coop.NewFuture[int, *flakyErr](s)
	f.SetResult(1)

	// The offending task is queued first and detonates inside the loop.
	coop.SpawnVoid[*flakyErr](s, func() error {
		f.SetResult(2)
		return nil
	})
	g := coop.Spawn[int, *flakyErr](s, func() (int, error) {
		return 3, nil
	})

	v, err := g.Await()
	require.NoError(t, err)
	require.Equal(t, 3, v)
	require.ErrorIs(t, fatal, coop.ErrAlreadyFulfilled)

	v, err = f.Await()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestProgressStepDriving(t *testing.T) {
	var f *coop.Future[int, *flakyErr]
	calls := 0
	s, err := coop.New(func() {
		calls++
		if calls == 3 {
			f.SetResult(7)
		}
	})
	require.NoError(t, err)

	f = coop.NewFuture[int, *flakyErr](s)

	v, err := f.Await()
	require.NoError(t, err)
	require.Equal(t, 7, v)
	require.GreaterOrEqual(t, calls, 3)
}

func TestTaskOrderFIFO(t *testing.T) {
	s, err := coop.New(noop)
	require.NoError(t, err)

	var order []int
	for i := range 5 {
		coop.SpawnVoid[*flakyErr](s, func() error {
			order = append(order, i)
			return nil
		})
	}
	last := coop.SpawnVoid[*flakyErr](s, func() error {
		order = append(order, 5)
		return nil
	})

	require.NoError(t, last.Wait())
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, order)
}

func TestWaiterResumptionOrder(t *testing.T) {
	// Insertion into the waiter list is at the head and completion walks
	// the list head to tail, so waiters resume in reverse-suspend order.
	var f *coop.Future[int, *flakyErr]
	s, err := coop.New(func() { f.SetResult(9) })
	require.NoError(t, err)

	f = coop.NewFuture[int, *flakyErr](s)

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		coop.SpawnVoid[*flakyErr](s, func() error {
			v, err := f.Await()
			if err != nil || v != 9 {
				t.Errorf("awaiter %s: got (%v, %v)", name, v, err)
			}
			order = append(order, name)
			return nil
		})
	}

	v, err := f.Await()
	require.NoError(t, err)
	require.Equal(t, 9, v)

	// This outermost await suspended first, so it resumes last, after c, b
	// and a have each recorded their resumption.
	require.Equal(t, []string{"c", "b", "a"}, order)
	require.True(t, s.Idle())
}

// countingAllocator tracks stack acquisitions and releases.
type countingAllocator struct {
	allocs, frees int
}

func (a *countingAllocator) Allocate(sc *coop.StackContext, size int) {
	a.allocs++
	sc.Size = size
	sc.Data = a
}

func (a *countingAllocator) Deallocate(sc *coop.StackContext) {
	a.frees++
	sc.Size = 0
	sc.Data = nil
}

func TestStackAllocatorBalance(t *testing.T) {
	var alloc countingAllocator

	var f *coop.Future[int, *flakyErr]
	s, err := coop.New(func() { f.SetResult(1) },
		coop.WithStackAllocator(&alloc),
		coop.WithStackSize(128*1024))
	require.NoError(t, err)

	f = coop.NewFuture[int, *flakyErr](s)

	for range 3 {
		coop.SpawnVoid[*flakyErr](s, func() error {
			_, err := f.Await()
			return err
		})
	}

	_, err = f.Await()
	require.NoError(t, err)

	// One stack per suspension: three spawned awaiters plus the call above.
	require.Equal(t, 4, alloc.allocs)
	require.Equal(t, alloc.allocs, alloc.frees)
}

func TestOptionValidation(t *testing.T) {
	_, err := coop.New(nil)
	require.Error(t, err)

	_, err = coop.New(noop, coop.WithStackSize(0))
	require.Error(t, err)

	_, err = coop.New(noop, coop.WithStackAllocator(nil))
	require.Error(t, err)

	_, err = coop.NewFromService(nil)
	require.Error(t, err)
}

func TestTracedTasks(t *testing.T) {
	// The global provider defaults to a no-op tracer; this exercises the
	// span path around each task.
	s, err := coop.New(noop, coop.WithTracer(otel.Tracer("coop-test")))
	require.NoError(t, err)

	f := coop.Spawn[int, *flakyErr](s, func() (int, error) {
		return 21, nil
	})

	v, err := f.Await()
	require.NoError(t, err)
	require.Equal(t, 21, v)
}
