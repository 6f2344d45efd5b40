package testutil

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

// PingCount is the number of ping/pong round trips the fixtures below
// run before a Pinger stops sending.
const PingCount = 10

// pingPongSerID is shared by both message kinds, matching the source
// fixture's single serialiser id covering both directions; the leading
// tag byte distinguishes Ping from Pong on the wire.
const pingPongSerID = 42

const (
	pingTag byte = 1
	pongTag byte = 2
)

// PingMsg is sent by a Pinger toward its target.
type PingMsg struct {
	I uint64
}

// PongMsg is sent back by a Ponger in response to a PingMsg.
type PongMsg struct {
	I uint64
}

// PingSer is the Serialiser/Deserialiser pair for PingMsg.
type PingSer struct{}

func (PingSer) ID() uint64            { return pingPongSerID }
func (PingSer) SizeHint() (int, bool) { return 9, true }

func (PingSer) Serialise(v PingMsg, buf []byte) ([]byte, error) {
	out := append(buf, pingTag)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], v.I)
	return append(out, n[:]...), nil
}

func (PingSer) Deserialise(buf []byte) (PingMsg, error) {
	if len(buf) < 9 {
		return PingMsg{}, types.NewInvalidData("ping buffer too short: %d bytes", len(buf))
	}
	if buf[0] != pingTag {
		return PingMsg{}, types.NewInvalidType("expected ping tag, got %d", buf[0])
	}
	return PingMsg{I: binary.BigEndian.Uint64(buf[1:9])}, nil
}

// PongSer is the Serialiser/Deserialiser pair for PongMsg.
type PongSer struct{}

func (PongSer) ID() uint64            { return pingPongSerID }
func (PongSer) SizeHint() (int, bool) { return 9, true }

func (PongSer) Serialise(v PongMsg, buf []byte) ([]byte, error) {
	out := append(buf, pongTag)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], v.I)
	return append(out, n[:]...), nil
}

func (PongSer) Deserialise(buf []byte) (PongMsg, error) {
	if len(buf) < 9 {
		return PongMsg{}, types.NewInvalidData("pong buffer too short: %d bytes", len(buf))
	}
	if buf[0] != pongTag {
		return PongMsg{}, types.NewInvalidType("expected pong tag, got %d", buf[0])
	}
	return PongMsg{I: binary.BigEndian.Uint64(buf[1:9])}, nil
}

// actorBase implements the bookkeeping every fixture actor shares:
// Path/Dead plus a liveness flag the owning test can flip.
type actorBase struct {
	path types.ActorPath
	dead int32
}

func (a *actorBase) Path() types.ActorPath { return a.path }
func (a *actorBase) Dead() bool            { return atomic.LoadInt32(&a.dead) != 0 }
func (a *actorBase) MarkDead()             { atomic.StoreInt32(&a.dead, 1) }

// Ponger replies to every PingMsg it receives, locally or remotely, with
// a PongMsg carrying the same counter. onReply is invoked for the
// serialised-enqueue path, where the reply must go back out through a
// live Dispatcher rather than a direct in-process Tell.
type Ponger struct {
	actorBase
	onReply func(dst types.ActorPath, reply types.Serialisable)
}

// NewPonger constructs a Ponger registered at path. onReply is called
// whenever a remote Ping arrives and needs a routed reply.
func NewPonger(path types.ActorPath, onReply func(types.ActorPath, types.Serialisable)) *Ponger {
	return &Ponger{actorBase: actorBase{path: path}, onReply: onReply}
}

func (p *Ponger) Tell(value any, sender types.ActorRef) {
	ping, ok := value.(PingMsg)
	if !ok {
		return
	}
	sender.Tell(PongMsg{I: ping.I}, p)
}

func (p *Ponger) Enqueue(envelope types.ReceivedEnvelope) {
	ping, err := PingSer{}.Deserialise(envelope.Body)
	if err != nil {
		return
	}
	reply := types.NewSerialisableValue(PongMsg{I: ping.I}, PongSer{})
	p.onReply(envelope.Src, reply)
}

// Pinger sends PingMsg toward Target and counts how many replies
// arrived locally versus remotely, stopping after PingCount total.
type Pinger struct {
	actorBase

	mu          sync.Mutex
	Target      types.ActorPath
	LocalCount  int
	RemoteCount int

	// onSend is called whenever the Pinger needs to send a PingMsg
	// toward Target; tests wire this to a live Dispatcher's Tell.
	onSend func(target types.ActorPath, msg PingMsg)
}

// NewPinger constructs a Pinger registered at path, targeting target.
// onSend is invoked for every outbound ping, including the first.
func NewPinger(path, target types.ActorPath, onSend func(types.ActorPath, PingMsg)) *Pinger {
	return &Pinger{actorBase: actorBase{path: path}, Target: target, onSend: onSend}
}

// Start issues the first PingMsg.
func (p *Pinger) Start() {
	p.onSend(p.Target, PingMsg{I: 0})
}

func (p *Pinger) Tell(value any, sender types.ActorRef) {
	pong, ok := value.(PongMsg)
	if !ok {
		return
	}
	p.mu.Lock()
	p.LocalCount++
	done := p.LocalCount+p.RemoteCount >= PingCount
	p.mu.Unlock()
	if !done {
		p.onSend(p.Target, PingMsg{I: pong.I + 1})
	}
}

func (p *Pinger) Enqueue(envelope types.ReceivedEnvelope) {
	pong, err := PongSer{}.Deserialise(envelope.Body)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.RemoteCount++
	done := p.LocalCount+p.RemoteCount >= PingCount
	p.mu.Unlock()
	if !done {
		p.onSend(p.Target, PingMsg{I: pong.I + 1})
	}
}

// Counts returns a (local, remote) snapshot of the reply counters.
func (p *Pinger) Counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.LocalCount, p.RemoteCount
}
