package dispatch

import (
	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

// BridgeAdapter is the transport collaborator the Dispatcher depends on.
// The core ships a reference TCP implementation in pkg/dispatch/bridge,
// but any transport satisfying this contract can be substituted —
// including the in-memory fake used by tests.
type BridgeAdapter interface {
	// Start binds addr and begins accepting inbound connections. Failure
	// here is fatal to the owning dispatcher.
	Start(addr string) error

	// LocalAddr reports the bound address; only meaningful after Start
	// succeeds.
	LocalAddr() (string, bool)

	// Connect initiates an outbound connection to addr over kind. It does
	// not block for the handshake to complete: the eventual outcome
	// arrives as a Connection NetworkEvent on the channel returned by
	// Events, either Connected(sender) or Closed/Error.
	Connect(kind types.TransportKind, addr string) error

	// Events returns the adapter's event stream: an infinite,
	// non-restartable sequence of NetworkEvent values delivered over a
	// buffered channel (the reference TCP bridge drops an event, with a
	// warning, when that buffer is full). The Dispatcher
	// pumps this channel into its own intake for the lifetime of the
	// adapter.
	Events() <-chan types.NetworkEvent

	// Close shuts the adapter down: stop accepting, close all live
	// connections. No attempt is made to drain any queue; that is the
	// Dispatcher's concern, not the transport's.
	Close() error
}

// BridgeLookup is the read-only registry slice a BridgeAdapter needs to
// deliver an inbound Data frame directly to its destination, without
// routing it back through the dispatcher's own intake.
type BridgeLookup interface {
	Lookup(path types.ActorPath) (types.ActorRef, bool)
}

// BridgeFactory builds a BridgeAdapter once the dispatcher's registry
// exists, mirroring the source's own `net::Bridge::new(self.lookup.clone(), ...)`
// construction performed inside start() rather than at dispatcher
// construction time.
type BridgeFactory func(lookup BridgeLookup) BridgeAdapter
