// Package bridge provides the reference TCP BridgeAdapter implementation.
package bridge

import (
	"fmt"
	"net"
	"sync"

	"github.com/jabolina/netdispatch/pkg/dispatch/core"
	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

// Lookup is the slice of RegistryCell the bridge needs to deliver an
// inbound Data frame directly to its destination ActorRef, without
// routing it back through the dispatcher's intake. This is the
// production path the routing taxonomy calls for: a Data event handed
// to the dispatcher is "not expected at this layer" — delivery happens
// here instead.
type Lookup interface {
	Lookup(path types.ActorPath) (types.ActorRef, bool)
}

// TCP is the reference BridgeAdapter: plain net.Listen/net.Dial, framed
// with the fixed 12-byte header from types.Frame, one goroutine reading
// and one conceptual writer (synchronous, mutex-guarded) per connection.
type TCP struct {
	lookup  Lookup
	log     types.Logger
	invoker core.Invoker

	mu       sync.Mutex
	listener net.Listener
	conns    map[string]net.Conn
	closed   bool

	events chan types.NetworkEvent
}

// New constructs a TCP bridge against a registry lookup used for direct
// inbound delivery.
func New(lookup Lookup, log types.Logger) *TCP {
	return &TCP{
		lookup:  lookup,
		log:     log,
		invoker: core.GoroutineInvoker{},
		conns:   make(map[string]net.Conn),
		events:  make(chan types.NetworkEvent, 64),
	}
}

// Start binds addr and begins accepting inbound connections.
func (t *TCP) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	t.mu.Lock()
	t.listener = ln
	t.mu.Unlock()
	t.invoker.Spawn(t.acceptLoop)
	return nil
}

// LocalAddr reports the bound address.
func (t *TCP) LocalAddr() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return "", false
	}
	return t.listener.Addr().String(), true
}

// Connect dials addr asynchronously; the outcome arrives as a
// Connection NetworkEvent, never as this call's return value, matching
// the contract that connect only initiates the attempt.
func (t *TCP) Connect(kind types.TransportKind, addr string) error {
	if kind != types.TCP {
		return fmt.Errorf("bridge: unsupported transport kind %s", kind)
	}
	t.invoker.Spawn(func() { t.dial(addr) })
	return nil
}

func (t *TCP) dial(addr string) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.emit(types.NetworkEvent{Kind: types.ConnectionEvent, Addr: addr, State: types.ErrorState(err)})
		return
	}
	t.registerConn(addr, conn)
}

func (t *TCP) registerConn(addr string, conn net.Conn) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return
	}
	t.conns[addr] = conn
	t.mu.Unlock()

	sender := &connSender{conn: conn}
	t.emit(types.NetworkEvent{Kind: types.ConnectionEvent, Addr: addr, State: types.ConnectedState(sender)})
	t.invoker.Spawn(func() { t.readLoop(addr, conn) })
}

func (t *TCP) acceptLoop() {
	for {
		t.mu.Lock()
		ln := t.listener
		closed := t.closed
		t.mu.Unlock()
		if closed || ln == nil {
			return
		}
		conn, err := ln.Accept()
		if err != nil {
			t.mu.Lock()
			stillOpen := !t.closed
			t.mu.Unlock()
			if stillOpen {
				t.log.Errorf("bridge: accept failed: %v", err)
			}
			return
		}
		addr := conn.RemoteAddr().String()
		t.registerConn(addr, conn)
	}
}

// readLoop decodes frames off conn and either delivers them directly to
// a local destination (when the decoded destination resolves in the
// registry) or logs and drops an unresolvable one.
func (t *TCP) readLoop(addr string, conn net.Conn) {
	defer t.closeConn(addr, conn, nil)
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				frame, consumed, decErr := types.DecodeFrame(buf)
				if decErr != nil {
					t.log.Errorf("bridge: malformed frame from %s: %v", addr, decErr)
					return
				}
				if consumed == 0 {
					break
				}
				buf = buf[consumed:]
				t.deliver(addr, frame)
			}
		}
		if err != nil {
			t.closeConn(addr, conn, err)
			return
		}
	}
}

func (t *TCP) deliver(addr string, frame types.Frame) {
	src, dst, serID, body, err := types.DecodeMessagePayload(frame.Payload)
	if err != nil {
		t.log.Errorf("bridge: malformed payload from %s: %v", addr, err)
		return
	}
	actor, ok := t.lookup.Lookup(dst)
	if !ok {
		t.log.Debugf("bridge: no local destination %s for frame from %s, dropping", dst.String(), addr)
		return
	}
	actor.Enqueue(types.ReceivedEnvelope{Src: src, Dst: dst, SerID: serID, Body: body})
}

func (t *TCP) closeConn(addr string, conn net.Conn, cause error) {
	t.mu.Lock()
	if existing, ok := t.conns[addr]; ok && existing == conn {
		delete(t.conns, addr)
	}
	closed := t.closed
	t.mu.Unlock()
	_ = conn.Close()
	if closed {
		return
	}
	if cause != nil {
		t.emit(types.NetworkEvent{Kind: types.ConnectionEvent, Addr: addr, State: types.ErrorState(cause)})
	} else {
		t.emit(types.NetworkEvent{Kind: types.ConnectionEvent, Addr: addr, State: types.ClosedState()})
	}
}

func (t *TCP) emit(ev types.NetworkEvent) {
	select {
	case t.events <- ev:
	default:
		t.log.Warnf("bridge: event channel full, dropping %s event for %s", ev.Kind, ev.Addr)
	}
}

// Events returns the adapter's event stream.
func (t *TCP) Events() <-chan types.NetworkEvent {
	return t.events
}

// Close shuts down the listener and every live connection.
func (t *TCP) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	ln := t.listener
	conns := t.conns
	t.conns = make(map[string]net.Conn)
	t.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	return err
}

// connSender adapts a net.Conn into a types.FrameSender: each Send is a
// synchronous, mutex-guarded write. This trades the original's unbounded
// async channel for a simpler direct write; a failed write is exactly as
// observable (Send returns false) and the QueueManager's queue-then-drain
// discipline is what actually provides back-pressure, not the sender
// itself.
type connSender struct {
	mu   sync.Mutex
	conn net.Conn
}

func (s *connSender) Send(frame types.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Write(frame.Encode())
	return err == nil
}
