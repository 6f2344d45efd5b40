package dispatch

import "github.com/jabolina/netdispatch/pkg/dispatch/types"

// Envelope is the sum of every shape the Dispatcher's single intake
// channel accepts. Exactly one field is populated in any given value;
// this mirrors the source's tagged DispatchEnvelope rather than
// modelling it as a Go interface, since the Dispatcher needs to switch
// on it in one place and a closed set of populated-or-nil fields keeps
// that switch exhaustive and easy to read.
type Envelope struct {
	Msg        *types.MsgEnvelope
	Register   *types.RegisterEnvelope
	Deregister *types.DeregisterEnvelope
	Network    *types.NetworkEvent
	Cast       *types.CastEnvelope

	// ReaperTick is an internal envelope, never produced outside this
	// package: the reaper timer's callback (armReaperTimer) feeds a tick
	// back through intake so the actual sweep still runs on the single
	// consumer, alongside every other registry mutation.
	ReaperTick bool
}

// reaperTickEnvelope is the sentinel value pumped back through intake
// by the reaper timer's callback.
func reaperTickEnvelope() Envelope {
	return Envelope{ReaperTick: true}
}

// MsgEnvelopeOf wraps a routed message for intake.
func MsgEnvelopeOf(src types.PathResolvable, dst types.ActorPath, msg types.Serialisable) Envelope {
	return Envelope{Msg: &types.MsgEnvelope{Src: src, Dst: dst, Msg: msg}}
}

// RegisterEnvelopeOf wraps a registration request for intake.
func RegisterEnvelopeOf(actor types.ActorRef, path types.ActorPath, promise *types.Future[error]) Envelope {
	return Envelope{Register: &types.RegisterEnvelope{Actor: actor, Path: path, Promise: promise}}
}

// DeregisterEnvelopeOf wraps a deregistration request for intake.
func DeregisterEnvelopeOf(path types.ActorPath, promise *types.Future[error]) Envelope {
	return Envelope{Deregister: &types.DeregisterEnvelope{Path: path, Promise: promise}}
}

// NetworkEnvelopeOf wraps a bridge-sourced event for intake.
func NetworkEnvelopeOf(ev types.NetworkEvent) Envelope {
	return Envelope{Network: &ev}
}

// CastEnvelopeOf wraps a value the dispatcher never expects; intake logs
// and rejects it.
func CastEnvelopeOf(value any) Envelope {
	return Envelope{Cast: &types.CastEnvelope{Value: value}}
}
