// Package testutil provides deterministic fixtures for exercising the
// dispatch core without real sockets: a waitable Invoker, an in-memory
// BridgeAdapter pair, and the ping/pong actors used across the package's
// end-to-end tests.
package testutil

import "sync"

// WaitInvoker is a core.Invoker that tracks every spawned goroutine on a
// WaitGroup, so a test can block until all background work started
// during a scenario has actually finished before asserting on it.
type WaitInvoker struct {
	group sync.WaitGroup
}

// NewWaitInvoker returns a fresh WaitInvoker.
func NewWaitInvoker() *WaitInvoker {
	return &WaitInvoker{}
}

// Spawn implements core.Invoker.
func (w *WaitInvoker) Spawn(fn func()) {
	w.group.Add(1)
	go func() {
		defer w.group.Done()
		fn()
	}()
}

// Wait blocks until every goroutine spawned so far has returned.
func (w *WaitInvoker) Wait() {
	w.group.Wait()
}
