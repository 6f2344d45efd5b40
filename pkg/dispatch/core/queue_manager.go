package core

import "github.com/jabolina/netdispatch/pkg/dispatch/types"

// QueueManager holds one FIFO of pending frames per peer address. It is
// owned exclusively by the Dispatcher's single-threaded intake loop, so
// no internal locking is needed: the only synchronisation boundary in
// this core is the RegistryCell.
type QueueManager struct {
	queues map[string][]types.Frame

	onEnqueue func()
	onDrain   func()
}

// NewQueueManager returns an empty manager.
func NewQueueManager() *QueueManager {
	return &QueueManager{queues: make(map[string][]types.Frame)}
}

// SetObservers installs metrics hooks: onEnqueue fires once per frame
// appended, onDrain fires once per frame successfully handed to a
// FrameSender. Either may be nil.
func (q *QueueManager) SetObservers(onEnqueue, onDrain func()) {
	q.onEnqueue = onEnqueue
	q.onDrain = onDrain
}

// EnqueueFrame appends frame to addr's FIFO, creating it if absent.
func (q *QueueManager) EnqueueFrame(addr string, frame types.Frame) {
	q.queues[addr] = append(q.queues[addr], frame)
	if q.onEnqueue != nil {
		q.onEnqueue()
	}
}

// HasFrame is a non-destructive predicate.
func (q *QueueManager) HasFrame(addr string) bool {
	return len(q.queues[addr]) > 0
}

// PopFrame removes and returns the head frame for addr, if any. An empty
// queue is reclaimed eagerly so HasFrame/PopFrame never iterate stale
// entries; the spec leaves reclamation timing unobservable, so this core
// picks the simplest policy.
func (q *QueueManager) PopFrame(addr string) (types.Frame, bool) {
	pending := q.queues[addr]
	if len(pending) == 0 {
		return types.Frame{}, false
	}
	head := pending[0]
	rest := pending[1:]
	if len(rest) == 0 {
		delete(q.queues, addr)
	} else {
		q.queues[addr] = rest
	}
	return head, true
}

// TryDrain pops frames for addr while sender accepts them. On the first
// send failure it re-queues the failed frame at the head and reports
// that the connection should be considered closed, stopping the drain;
// this is the "direct send only when queue empty" invariant's other
// half: once a connection is draining, every frame still goes through
// the queue until it runs dry.
func (q *QueueManager) TryDrain(addr string, sender types.FrameSender) (closed bool) {
	for {
		frame, ok := q.PopFrame(addr)
		if !ok {
			return false
		}
		if !sender.Send(frame) {
			q.requeueHead(addr, frame)
			return true
		}
		if q.onDrain != nil {
			q.onDrain()
		}
	}
}

// requeueHead puts frame back at the front of addr's queue.
func (q *QueueManager) requeueHead(addr string, frame types.Frame) {
	q.queues[addr] = append([]types.Frame{frame}, q.queues[addr]...)
}
