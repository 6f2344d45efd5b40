package testutil

import (
	"fmt"
	"sync"

	"github.com/jabolina/netdispatch/pkg/dispatch"
	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

// FakeNetwork is a shared in-memory registry of FakeBridge instances
// keyed by bound address, standing in for real sockets so remote-path
// scenarios (connect, frame delivery, backpressure) can be exercised
// deterministically in-process.
type FakeNetwork struct {
	mu       sync.Mutex
	bridges  map[string]*FakeBridge
	nextPort int
}

// NewFakeNetwork returns an empty shared network.
func NewFakeNetwork() *FakeNetwork {
	return &FakeNetwork{bridges: make(map[string]*FakeBridge), nextPort: 1}
}

// NewBridge constructs a FakeBridge that will register itself into this
// network once Started.
func (n *FakeNetwork) NewBridge(lookup dispatch.BridgeLookup) *FakeBridge {
	return &FakeBridge{
		network: n,
		lookup:  lookup,
		events:  make(chan types.NetworkEvent, 256),
	}
}

func (n *FakeNetwork) register(addr string, b *FakeBridge) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bridges[addr] = b
}

func (n *FakeNetwork) unregister(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.bridges, addr)
}

func (n *FakeNetwork) lookupBridge(addr string) (*FakeBridge, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, ok := n.bridges[addr]
	return b, ok
}

func (n *FakeNetwork) allocatePort() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.nextPort
	n.nextPort++
	return p
}

// FakeBridge is an in-memory dispatch.BridgeAdapter. Connect delivers
// frames directly into the peer FakeBridge's deliver path rather than
// over a socket; this is deliberately synchronous-by-goroutine so tests
// can use a WaitInvoker to know when a scenario has quiesced.
type FakeBridge struct {
	network *FakeNetwork
	lookup  dispatch.BridgeLookup

	mu     sync.Mutex
	addr   string
	closed bool
	events chan types.NetworkEvent
}

// Start assigns a deterministic fake address (127.0.0.1:<n>) when addr
// requests an ephemeral port ("...:0"), and registers into the network.
func (b *FakeBridge) Start(addr string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if addr == "" || addr == "127.0.0.1:0" {
		addr = fmt.Sprintf("127.0.0.1:%d", 20000+b.network.allocatePort())
	}
	b.addr = addr
	b.network.register(addr, b)
	return nil
}

// LocalAddr reports the assigned address.
func (b *FakeBridge) LocalAddr() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addr, b.addr != ""
}

// Connect looks up the peer bridge registered at addr and, if found,
// emits Connected events on both sides; if absent, emits Error on this
// side, mirroring a real dial failure.
func (b *FakeBridge) Connect(kind types.TransportKind, addr string) error {
	peer, ok := b.network.lookupBridge(addr)
	if !ok {
		b.emit(types.NetworkEvent{Kind: types.ConnectionEvent, Addr: addr, State: types.ErrorState(fmt.Errorf("fakebridge: no listener at %s", addr))})
		return nil
	}
	myAddr, _ := b.LocalAddr()
	sender := &fakeSender{to: peer, from: b}
	b.emit(types.NetworkEvent{Kind: types.ConnectionEvent, Addr: addr, State: types.ConnectedState(sender)})

	backSender := &fakeSender{to: b, from: peer}
	peer.emit(types.NetworkEvent{Kind: types.ConnectionEvent, Addr: myAddr, State: types.ConnectedState(backSender)})
	return nil
}

func (b *FakeBridge) emit(ev types.NetworkEvent) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	b.events <- ev
}

// Events returns this bridge's event stream.
func (b *FakeBridge) Events() <-chan types.NetworkEvent {
	return b.events
}

// Close unregisters from the network.
func (b *FakeBridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	addr := b.addr
	b.mu.Unlock()
	b.network.unregister(addr)
	return nil
}

// deliver resolves frame's destination against this bridge's registry
// lookup and hands it straight to the local ActorRef, exactly as the
// real TCP bridge's read loop does.
func (b *FakeBridge) deliver(frame types.Frame) bool {
	src, dst, serID, body, err := types.DecodeMessagePayload(frame.Payload)
	if err != nil {
		return false
	}
	actor, ok := b.lookup.Lookup(dst)
	if !ok {
		return false
	}
	actor.Enqueue(types.ReceivedEnvelope{Src: src, Dst: dst, SerID: serID, Body: body})
	return true
}

// fakeSender is the FrameSender handed to a Connected event: Send
// delivers directly into the peer bridge rather than over a socket.
type fakeSender struct {
	to   *FakeBridge
	from *FakeBridge
}

func (s *fakeSender) Send(frame types.Frame) bool {
	s.to.mu.Lock()
	closed := s.to.closed
	s.to.mu.Unlock()
	if closed {
		return false
	}
	return s.to.deliver(frame)
}
