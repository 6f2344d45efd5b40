package types

// ActorRef is an opaque, shareable handle to a live (or recently dead)
// actor. The registry is the single long-term holder responsible for
// liveness tracking; everyone else just shares the handle.
type ActorRef interface {
	// Tell is the fast in-process handoff of an owned typed value. The
	// local router invokes it after a successful Serialisable.Local().
	Tell(value any, sender ActorRef)

	// Enqueue accepts an already-serialised or boxed envelope, used when
	// the router could not recover a typed value for local delivery, and
	// by the transport layer when delivering inbound remote messages.
	Enqueue(envelope ReceivedEnvelope)

	// Path is this actor's own registered address, for source resolution
	// and logging.
	Path() ActorPath

	// Dead reports whether the underlying actor has terminated. The
	// Reaper polls this to decide what to sweep from the registry.
	Dead() bool
}

// ReceivedEnvelope is what Router delivers to ActorRef.Enqueue: a message
// that arrived either over the wire or locally without a typed fast path.
type ReceivedEnvelope struct {
	Src   ActorPath
	Dst   ActorPath
	SerID uint64
	Body  []byte
}
