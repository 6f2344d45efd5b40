package dispatch

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jabolina/netdispatch/pkg/dispatch/core"
	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

// Dispatcher is the single-threaded cooperative consumer owning the
// registry, connection table, queue manager and router. At most one
// envelope is ever being processed at a time, so everything it touches
// other than the RegistryCell needs no locking: the RegistryCell remains
// the one piece of state shared with other goroutines (readers, and the
// bridge's own event-pumping goroutine).
type Dispatcher struct {
	cfg     NetworkConfig
	log     types.Logger
	metrics *Metrics
	invoker core.Invoker

	registry *core.RegistryCell
	conns    *core.ConnectionTable
	queues   *core.QueueManager
	reaper   *core.Reaper
	router   *core.Router

	bridgeFactory BridgeFactory
	bridge        BridgeAdapter
	intake        chan Envelope

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}

	systemPathMu sync.RWMutex
	systemPath   types.SystemPath
	started      bool

	reaperScheduled bool
}

// New constructs a Dispatcher against cfg. bridgeFactory builds the
// transport lazily once the registry exists (from pkg/dispatch/bridge
// for TCP, or a fake factory for tests), so construction itself never
// has a network side effect.
func New(cfg NetworkConfig, bridgeFactory BridgeFactory, log types.Logger) *Dispatcher {
	registry := core.NewRegistryCell()
	conns := core.NewConnectionTable()
	queues := core.NewQueueManager()
	metrics := NewMetrics()
	metrics.bindRegistrySize(func() float64 { return float64(registry.Len()) })
	queues.SetObservers(
		func() { metrics.framesQueued.Inc() },
		func() { metrics.framesDrained.Inc() },
	)

	d := &Dispatcher{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		invoker: core.GoroutineInvoker{},

		registry: registry,
		conns:    conns,
		queues:   queues,
		reaper:   core.NewReaper(registry, core.DefaultReaperConfig()),

		bridgeFactory: bridgeFactory,
		intake:        make(chan Envelope, 256),
		done:          make(chan struct{}),
	}
	d.router = core.NewRouter(types.SystemPath{}, registry, queues, conns, nil, log)
	d.router.SetLocalMessageHook(func(types.ActorPath, types.ActorPath) { metrics.routedLocal.Inc() })
	d.router.SetRemoteMessageHook(func(types.ActorPath, types.ActorPath) { metrics.routedRemote.Inc() })
	return d
}

// Metrics exposes the dispatcher's prometheus registry for embedding
// into a larger metrics server.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// SetInvoker overrides the goroutine-spawning strategy. Must be called
// before Start; tests use this to substitute a waitable invoker so
// scenarios can block until all background work quiesces.
func (d *Dispatcher) SetInvoker(invoker core.Invoker) {
	d.invoker = invoker
}

// SystemPath returns the dispatcher's own bound system path. Accessing
// it before Start succeeds is a programming error, matching the
// contract's "only valid after Start" rule.
func (d *Dispatcher) SystemPath() types.SystemPath {
	d.systemPathMu.RLock()
	defer d.systemPathMu.RUnlock()
	if !d.started {
		panic("dispatch: SystemPath accessed before Start completed")
	}
	return d.systemPath
}

// Start binds the bridge and begins the intake loop. Failure here is
// fatal: per the lifecycle contract the owning system is poisoned and
// must not serve further requests, so Start never retries internally.
func (d *Dispatcher) Start() error {
	var startErr error
	d.startOnce.Do(func() {
		d.bridge = d.bridgeFactory(d.registry)
		d.router.SetBridge(d.bridge)
		if err := d.bridge.Start(d.cfg.Addr); err != nil {
			startErr = fmt.Errorf("dispatch: bridge start failed: %w", err)
			return
		}
		addr, ok := d.bridge.LocalAddr()
		if !ok {
			startErr = fmt.Errorf("dispatch: bridge reports no local address after Start")
			return
		}
		systemPath, err := parseSystemPath(d.cfg.Transport, addr)
		if err != nil {
			startErr = fmt.Errorf("dispatch: invalid bound address %q: %w", addr, err)
			return
		}

		d.systemPathMu.Lock()
		d.systemPath = systemPath
		d.started = true
		d.systemPathMu.Unlock()
		d.router.SetSystem(systemPath)

		d.invoker.Spawn(d.pumpEvents)
		d.invoker.Spawn(d.poll)
	})
	return startErr
}

// Stop shuts the bridge down and stops the intake loop. No attempt is
// made to drain any queue, matching the lifecycle contract.
func (d *Dispatcher) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		close(d.done)
		err = d.bridge.Close()
	})
	return err
}

// Kill is Stop's alias: this core draws no distinction between a clean
// shutdown request and a forced one, since neither attempts to drain
// pending work.
func (d *Dispatcher) Kill() error {
	return d.Stop()
}

// Tell submits a local message for routing, synchronously enqueuing it
// onto the intake channel. It blocks while the channel is full, until
// space frees up or the dispatcher stops; callers on the hot path should
// prefer a buffered producer if back-pressure matters to them.
func (d *Dispatcher) Tell(src types.PathResolvable, dst types.ActorPath, msg types.Serialisable) {
	d.submit(MsgEnvelopeOf(src, dst, msg))
}

// Register requests a registry insert. The returned Future resolves to
// nil on success or types.ErrDuplicateEntry on conflict.
func (d *Dispatcher) Register(actor types.ActorRef, path types.ActorPath) *types.Future[error] {
	promise := types.NewFuture[error]()
	d.submit(RegisterEnvelopeOf(actor, path, promise))
	return promise
}

// Deregister requests a registry removal. The returned Future always
// resolves to nil; removing an absent path is not an error.
func (d *Dispatcher) Deregister(path types.ActorPath) *types.Future[error] {
	promise := types.NewFuture[error]()
	d.submit(DeregisterEnvelopeOf(path, promise))
	return promise
}

func (d *Dispatcher) submit(env Envelope) {
	select {
	case d.intake <- env:
	case <-d.done:
	}
}

// pumpEvents forwards the bridge's event stream into intake as Network
// envelopes, for the lifetime of the dispatcher. This is the adapted
// form of the "ActorRef as futures::Sink" forwarding the original
// wires up with `events.forward(dispatcher)`.
func (d *Dispatcher) pumpEvents() {
	events := d.bridge.Events()
	for {
		select {
		case <-d.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.submit(NetworkEnvelopeOf(ev))
		}
	}
}

// poll is the single consumer of intake: the only place registry
// writes, connection-table mutation, and queue-manager mutation happen.
func (d *Dispatcher) poll() {
	for {
		select {
		case <-d.done:
			return
		case env, ok := <-d.intake:
			if !ok {
				return
			}
			d.handle(env)
		}
	}
}

func (d *Dispatcher) handle(env Envelope) {
	switch {
	case env.Msg != nil:
		d.router.Route(env.Msg.Src, env.Msg.Dst, env.Msg.Msg)
	case env.Register != nil:
		d.handleRegister(env.Register)
	case env.Deregister != nil:
		d.handleDeregister(env.Deregister)
	case env.Network != nil:
		d.handleNetwork(env.Network)
	case env.Cast != nil:
		d.log.Errorf("dispatch: received unexpected cast envelope: %#v", env.Cast.Value)
	case env.ReaperTick:
		d.runReaperTick()
	default:
		d.log.Errorf("dispatch: received empty envelope")
	}
}

func (d *Dispatcher) handleRegister(reg *types.RegisterEnvelope) {
	err := d.registry.Register(reg.Path, reg.Actor)
	if err != nil {
		d.metrics.duplicateRejects.Inc()
	} else {
		d.metrics.registrations.Inc()
		d.scheduleReaper()
	}
	if reg.Promise != nil {
		reg.Promise.Fulfill(err)
	}
}

func (d *Dispatcher) handleDeregister(dereg *types.DeregisterEnvelope) {
	err := d.registry.Deregister(dereg.Path)
	d.metrics.deregistrations.Inc()
	if dereg.Promise != nil {
		dereg.Promise.Fulfill(err)
	}
}

// scheduleReaper arms the first reaper wake-up. The first successful
// registration schedules it; every subsequent tick rearms itself from
// runReaperTick once its own sweep has completed.
func (d *Dispatcher) scheduleReaper() {
	if d.reaperScheduled {
		return
	}
	d.reaperScheduled = true
	d.armReaperTimer(d.reaper.Interval())
}

// armReaperTimer schedules a single future tick envelope after, mirroring
// the original's schedule_once-after-each-run pattern. The timer's own
// callback goroutine touches nothing but d.submit, so it never reads or
// writes Reaper state itself: every read and write of Reaper.interval
// happens on the poll goroutine, inside scheduleReaper or runReaperTick, keeping that state
// on the single-threaded consumer exactly like the registry and the
// connection table.
func (d *Dispatcher) armReaperTimer(after time.Duration) {
	time.AfterFunc(after, func() {
		d.submit(reaperTickEnvelope())
	})
}

// runReaperTick runs on the poll goroutine: it sweeps, updates metrics,
// reads the freshly-adjusted interval, and arms the next timer — all
// before returning, so no other goroutine ever observes Reaper.interval
// mid-update.
func (d *Dispatcher) runReaperTick() {
	reaped := d.reaper.Run()
	d.metrics.reapRuns.Inc()
	interval := d.reaper.Interval()
	d.metrics.reaperIntervalMs.Set(float64(interval.Milliseconds()))
	if reaped > 0 {
		d.metrics.reapedActors.Add(float64(reaped))
	}
	d.armReaperTimer(interval)
}

func (d *Dispatcher) handleNetwork(ev *types.NetworkEvent) {
	switch ev.Kind {
	case types.ConnectionEvent:
		d.onConnectionEvent(ev.Addr, ev.State)
	case types.DataEvent:
		// Per the routing taxonomy this layer never expects a Data event:
		// production delivery happens directly at the transport, not
		// through the dispatcher. Log and drop rather than route it.
		d.log.Debugf("dispatch: unexpected data event from %s, dropping", ev.Addr)
	}
}

// parseSystemPath turns a bound "host:port" address into a SystemPath
// under the configured transport.
func parseSystemPath(transport types.TransportKind, addr string) (types.SystemPath, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return types.SystemPath{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return types.SystemPath{}, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return types.SystemPath{Transport: transport, IP: host, Port: uint16(port)}, nil
}

func (d *Dispatcher) onConnectionEvent(addr string, state types.ConnectionState) {
	if state.Kind == types.Connected && d.queues.HasFrame(addr) {
		if closed := d.queues.TryDrain(addr, state.Sender); closed {
			d.conns.Set(addr, types.ClosedState())
			return
		}
	}
	if state.Kind == types.ConnError {
		d.log.Errorf("dispatch: connection error for %s: %v", addr, state.Err)
	}
	d.conns.Set(addr, state)
}
