package core

import (
	"errors"
	"net"
	"strconv"

	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

// ErrUnsupportedTransport is surfaced (logged, never panicked) when a
// destination resolves to a transport this core does not route.
var ErrUnsupportedTransport = errors.New("unsupported transport")

// Bridge is the narrow slice of BridgeAdapter the Router needs to drive
// outbound connection attempts; defined here rather than depending on
// the full adapter interface so route_remote's dependency surface stays
// minimal and mockable.
type Bridge interface {
	Connect(kind types.TransportKind, addr string) error
}

// Router classifies destinations and performs local or remote delivery.
// It is driven exclusively from the Dispatcher's single-threaded intake
// loop, so its own fields need no locking; the registry it reads from
// is the one piece of state shared with other goroutines.
type Router struct {
	self        types.SystemPath
	registry    *RegistryCell
	queues      *QueueManager
	conns       *ConnectionTable
	bridge      Bridge
	log         types.Logger
	onLocalMsg  func(src, dst types.ActorPath)
	onRemoteMsg func(src, dst types.ActorPath)
}

// NewRouter wires a Router against the dispatcher's collaborators.
// onLocalMsg, if non-nil, is called after a successful local delivery —
// used by tests and metrics to observe routing decisions without
// threading counters through the Router's own fields.
func NewRouter(self types.SystemPath, registry *RegistryCell, queues *QueueManager, conns *ConnectionTable, bridge Bridge, log types.Logger) *Router {
	return &Router{
		self:     self,
		registry: registry,
		queues:   queues,
		conns:    conns,
		bridge:   bridge,
		log:      log,
	}
}

// SetLocalMessageHook installs the observer used by onLocalMsg.
func (r *Router) SetLocalMessageHook(fn func(src, dst types.ActorPath)) {
	r.onLocalMsg = fn
}

// SetRemoteMessageHook installs the observer called once per message
// that reaches routeRemote, regardless of the connection state it lands
// on — used by metrics to count routed-remote traffic without threading
// a counter through the Router's own fields.
func (r *Router) SetRemoteMessageHook(fn func(src, dst types.ActorPath)) {
	r.onRemoteMsg = fn
}

// SetSystem updates the system path used to resolve PathResolvable's
// System/Alias/ActorId variants. The Dispatcher calls this once Start
// has bound an address, since the system path is not known at
// construction time.
func (r *Router) SetSystem(self types.SystemPath) {
	r.self = self
}

// SetBridge installs the transport collaborator once it has been
// constructed by Start; until then, route_remote treats a nil bridge as
// "no transport available" and marks the peer Closed rather than
// Initializing.
func (r *Router) SetBridge(bridge Bridge) {
	r.bridge = bridge
}

// Route resolves src against this system, classifies dst, and dispatches
// to the local or remote path. It never returns an error: all failures
// are logged and the message is dropped or queued per the taxonomy.
func (r *Router) Route(src types.PathResolvable, dst types.ActorPath, msg types.Serialisable) {
	srcPath := src.Resolve(r.self, r.ownPath())
	switch dst.System.Transport {
	case types.LOCAL:
		r.routeLocal(srcPath, dst, msg)
	case types.TCP:
		r.routeRemote(srcPath, dst, msg)
	case types.UDP:
		r.log.Warnf("dropping message to %s: %v", dst.String(), ErrUnsupportedTransport)
	default:
		r.log.Warnf("dropping message to %s: unknown transport kind", dst.String())
	}
}

// ownPath is used to resolve PathResolvable's System variant; the
// dispatcher itself has no registered ActorPath of its own, so this is
// a system-scoped Named path with no segments, used only as the basis
// for Resolve's System case.
func (r *Router) ownPath() types.ActorPath {
	return types.NewNamedPath(r.self)
}

// routeLocal implements the contract in full: absent destination logs
// and drops; present destination prefers the typed local() fast path,
// falling back to a serialised enqueue.
func (r *Router) routeLocal(src, dst types.ActorPath, msg types.Serialisable) {
	actor, ok := r.registry.Lookup(dst)
	if !ok {
		r.log.Debugf("route_local: no such destination %s, dropping", dst.String())
		return
	}
	if value, ok := msg.Local(); ok {
		srcRef, ok := r.registry.Lookup(src)
		if !ok {
			// A non-local source reaching the local router is a
			// programming error per the routing taxonomy.
			r.log.Panicf("route_local: unresolved local source %s", src.String())
		}
		actor.Tell(value, srcRef)
		if r.onLocalMsg != nil {
			r.onLocalMsg(src, dst)
		}
		return
	}
	buf, err := serialiseForWire(msg)
	if err != nil {
		r.log.Errorf("route_local: serialisation failed for %s: %v", dst.String(), err)
		return
	}
	actor.Enqueue(types.ReceivedEnvelope{Src: src, Dst: dst, SerID: msg.ID(), Body: buf})
	if r.onLocalMsg != nil {
		r.onLocalMsg(src, dst)
	}
}

// routeRemote implements the ConnectionState-driven dispatch table from
// the remote-path contract.
func (r *Router) routeRemote(src, dst types.ActorPath, msg types.Serialisable) {
	if r.onRemoteMsg != nil {
		r.onRemoteMsg(src, dst)
	}
	addr := net.JoinHostPort(dst.System.IP, strconv.Itoa(int(dst.System.Port)))
	buf, err := serialiseForWire(msg)
	if err != nil {
		r.log.Errorf("route_remote: serialisation failed for %s: %v", dst.String(), err)
		return
	}
	payload := types.EncodeMessagePayload(src, dst, msg.ID(), buf)
	frame := types.NewDataFrame(payload)

	state := r.conns.Get(addr)
	switch state.Kind {
	case types.New, types.Closed:
		r.queues.EnqueueFrame(addr, frame)
		if r.bridge == nil {
			r.conns.Set(addr, types.ClosedState())
			return
		}
		if err := r.bridge.Connect(dst.System.Transport, addr); err != nil {
			r.log.Errorf("route_remote: connect to %s failed: %v", addr, err)
			r.conns.Set(addr, types.ErrorState(err))
			return
		}
		r.conns.Set(addr, types.InitializingState())
	case types.Initializing:
		r.queues.EnqueueFrame(addr, frame)
	case types.Connected:
		if r.queues.HasFrame(addr) {
			r.queues.EnqueueFrame(addr, frame)
			if closed := r.queues.TryDrain(addr, state.Sender); closed {
				r.conns.Set(addr, types.ClosedState())
			}
			return
		}
		if !state.Sender.Send(frame) {
			r.queues.EnqueueFrame(addr, frame)
			r.conns.Set(addr, types.ClosedState())
		}
	default:
		// Error or any other state: no action, per the contract table.
	}
}

// serialiseForWire drains a Serialisable into a byte buffer sized by its
// hint when available.
func serialiseForWire(msg types.Serialisable) ([]byte, error) {
	size, ok := msg.SizeHint()
	var buf []byte
	if ok {
		buf = make([]byte, 0, size)
	}
	return msg.Serialise(buf)
}
