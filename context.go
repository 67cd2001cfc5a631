package coop

// A Context is a value-typed handle to a suspended execution stack.
//
// A context is realized as a goroutine parked on a rendezvous channel.
// The goroutine's own stack is the coroutine stack, so a suspended context
// preserves the full native call chain, however deep the suspension point.
// Switching is symmetric; there is no caller/callee asymmetry.
//
// The channel has a one-element buffer. This makes a handoff safe even when
// the target has signalled its successor but not yet reached its own park:
// the wakeup token is buffered and consumed when the park is reached.
// A context is resumed at most once per suspension, so the buffer never
// holds more than one token.
type Context struct {
	c chan struct{}
}

func (ctx *Context) channel() chan struct{} {
	if ctx.c == nil {
		ctx.c = make(chan struct{}, 1)
	}
	return ctx.c
}

// makeContext constructs a fresh suspended context whose entry is entry.
// The context does not run until it is first jumped to.
//
// The stack argument is the reservation made through the scheduler's
// [StackAllocator]. The Go runtime provisions and grows the goroutine stack
// on demand; the reservation exists so that allocation and release remain
// observable, paired capabilities.
func makeContext(stack *StackContext, entry func()) Context {
	_ = stack
	ctx := Context{c: make(chan struct{}, 1)}
	go func() {
		<-ctx.c
		entry()
	}()
	return ctx
}

// jump parks the current execution in save and transfers control to resume.
// It returns when a later jump or exitTo targets save.
func jump(save *Context, resume Context) {
	c := save.channel()
	resume.c <- struct{}{}
	<-c
}

// exitTo transfers control to resume and lets the current context terminate.
//
// The original design jumps away saving into a scratch slot that is never
// read again; here there is no slot at all. The caller must do no further
// work after exitTo returns: the goroutine unwinds and the runtime reclaims
// its stack.
func exitTo(resume Context) {
	resume.c <- struct{}{}
}
