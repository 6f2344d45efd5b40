package core

// Invoker drives background work: the dispatcher's event pump and intake
// loop, and the TCP bridge's accept, dial and read goroutines. It is an
// interface rather than a bare `go fn()` so tests can substitute a
// waitable invoker and observe when that background work has finished.
type Invoker interface {
	Spawn(fn func())
}

// GoroutineInvoker is the default Invoker: every Spawn starts a new
// goroutine. This is the only executor this core ships; a bridge that
// needs a bounded worker pool brings its own and wraps it behind Invoker.
type GoroutineInvoker struct{}

func (GoroutineInvoker) Spawn(fn func()) {
	go fn()
}
