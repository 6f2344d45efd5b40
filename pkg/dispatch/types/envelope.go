package types

import "errors"

// RegistrationError is the only failure mode a registration can surface.
var ErrDuplicateEntry = errors.New("duplicate entry")

// MsgEnvelope carries a locally-produced message toward the router. Src
// is a PathResolvable rather than a bare ActorPath: the router resolves
// it against its own system only at routing time, matching the source
// resolution contract (explicit path, alias, actor id, or "this system").
type MsgEnvelope struct {
	Src PathResolvable
	Dst ActorPath
	Msg Serialisable
}

// RegisterEnvelope requests a registry insert. Promise is optional; when
// present it is fulfilled with nil or ErrDuplicateEntry exactly once.
type RegisterEnvelope struct {
	Actor   ActorRef
	Path    ActorPath
	Promise *Future[error]
}

// DeregisterEnvelope requests a registry removal. This variant answers
// the spec's second open question: the core as specified has no removal
// path beyond the Reaper, so an explicit Deregister was added. Removing
// an absent path is a no-op, not an error, matching the Reaper's own
// idempotent sweep.
type DeregisterEnvelope struct {
	Path    ActorPath
	Promise *Future[error]
}

// NetworkEvent is what the BridgeAdapter feeds back into the dispatcher.
// Exactly one of Connection or Data is populated, selected by Kind.
type NetworkEventKind int

const (
	ConnectionEvent NetworkEventKind = iota
	DataEvent
)

func (k NetworkEventKind) String() string {
	switch k {
	case ConnectionEvent:
		return "Connection"
	case DataEvent:
		return "Data"
	default:
		return "Unknown"
	}
}

type NetworkEvent struct {
	Kind  NetworkEventKind
	Addr  string
	State ConnectionState // set iff Kind == ConnectionEvent
	Data  []byte          // set iff Kind == DataEvent
}

// Cast is an envelope shape the dispatcher never expects to receive; it
// exists purely so intake can recognise and reject it rather than panic.
type CastEnvelope struct {
	Value any
}
