package core

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

type intMsg struct{ n int }

func (m intMsg) ID() uint64                           { return 7 }
func (m intMsg) SizeHint() (int, bool)                { return 1, true }
func (m intMsg) Serialise(buf []byte) ([]byte, error) { return append(buf, byte(m.n)), nil }
func (m intMsg) Local() (any, bool)                   { return nil, false }

// recordingActor is a registry-resident ActorRef that records every
// envelope handed to Enqueue, used to exercise route_local's serialised
// fallback path: Tell is never expected to be called by that path.
type recordingActor struct {
	path      types.ActorPath
	enqueued  []types.ReceivedEnvelope
	toldCount int
}

func (a *recordingActor) Tell(any, types.ActorRef)           { a.toldCount++ }
func (a *recordingActor) Enqueue(env types.ReceivedEnvelope) { a.enqueued = append(a.enqueued, env) }
func (a *recordingActor) Path() types.ActorPath              { return a.path }
func (a *recordingActor) Dead() bool                         { return false }

type recordingBridge struct {
	connects int
}

func (b *recordingBridge) Connect(types.TransportKind, string) error {
	b.connects++
	return nil
}

func testLogger() types.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func remoteDst() types.ActorPath {
	sys := types.SystemPath{Transport: types.TCP, IP: "10.0.0.2", Port: 9000}
	return types.NewNamedPath(sys, "remote-actor")
}

func localSrcPath() types.PathResolvable {
	sys := types.SystemPath{Transport: types.TCP, IP: "10.0.0.1", Port: 9000}
	return types.ResolvablePath(types.NewNamedPath(sys, "local-actor"))
}

// bodyOf decodes a wire frame's payload back down to the raw serialised
// body, the way the reference bridge does before handing it to Enqueue.
func bodyOf(t *testing.T, frame types.Frame) byte {
	t.Helper()
	_, _, _, body, err := types.DecodeMessagePayload(frame.Payload)
	require.NoError(t, err)
	require.Len(t, body, 1)
	return body[0]
}

// TestRouterQueuesFramesWhileInitializingAndPreservesOrder exercises the
// backpressure scenario: many sends land on a connection that is still
// New/Initializing, every one of them must queue rather than dial out a
// second time, and draining afterward must replay them in order.
func TestRouterQueuesFramesWhileInitializingAndPreservesOrder(t *testing.T) {
	registry := NewRegistryCell()
	queues := NewQueueManager()
	conns := NewConnectionTable()
	bridge := &recordingBridge{}
	router := NewRouter(types.SystemPath{Transport: types.TCP, IP: "10.0.0.1", Port: 9000}, registry, queues, conns, bridge, testLogger())

	dst := remoteDst()
	const count = 100
	for i := 0; i < count; i++ {
		router.Route(localSrcPath(), dst, intMsg{n: i % 256})
	}

	addr := "10.0.0.2:9000"
	require.Equal(t, 1, bridge.connects, "only the first Route call on a New connection dials out")
	require.Equal(t, types.Initializing, conns.Get(addr).Kind)
	require.True(t, queues.HasFrame(addr))

	for i := 0; i < count; i++ {
		frame, ok := queues.PopFrame(addr)
		require.True(t, ok)
		require.Equal(t, byte(i%256), bodyOf(t, frame), "queued frames must replay in the order they were routed")
	}
}

// TestRouterDrainDeliversInOrderAndStopsOnFirstFailure exercises the other
// half of the backpressure scenario: once the connection reports
// Connected, TryDrain must replay the queue strictly in order and, on the
// first send failure partway through, requeue that frame at the head and
// report the connection closed rather than continuing to drop frames.
func TestRouterDrainDeliversInOrderAndStopsOnFirstFailure(t *testing.T) {
	registry := NewRegistryCell()
	queues := NewQueueManager()
	conns := NewConnectionTable()
	bridge := &recordingBridge{}
	router := NewRouter(types.SystemPath{Transport: types.TCP, IP: "10.0.0.1", Port: 9000}, registry, queues, conns, bridge, testLogger())

	dst := remoteDst()
	addr := "10.0.0.2:9000"
	const count = 100
	for i := 0; i < count; i++ {
		router.Route(localSrcPath(), dst, intMsg{n: i})
	}

	const failAt = 37
	var delivered []byte
	sender := &limitedSender{failAt: failAt, delivered: &delivered}

	closed := queues.TryDrain(addr, sender)
	require.True(t, closed, "a send failure mid-drain must report the connection closed")
	require.Len(t, delivered, failAt)
	for i, b := range delivered {
		require.Equal(t, byte(i), b, "frames must drain strictly in the order they were queued")
	}

	next, ok := queues.PopFrame(addr)
	require.True(t, ok, "the frame that failed to send must be requeued, not dropped")
	require.Equal(t, byte(failAt), bodyOf(t, next))
}

// TestRouterLocalFallsBackToEnqueueWhenNotLocal exercises route_local's
// other branch: a message whose Local() reports ok=false must still reach
// a LOCAL destination, but through a serialised ReceivedEnvelope handed to
// Enqueue rather than the typed Tell fast path.
func TestRouterLocalFallsBackToEnqueueWhenNotLocal(t *testing.T) {
	registry := NewRegistryCell()
	queues := NewQueueManager()
	conns := NewConnectionTable()
	self := types.SystemPath{Transport: types.LOCAL, IP: "127.0.0.1", Port: 8080}
	router := NewRouter(self, registry, queues, conns, &recordingBridge{}, testLogger())

	dst := namedPath("not-local-actor")
	actor := &recordingActor{path: dst}
	require.NoError(t, registry.Register(dst, actor))

	src := namedPath("caller")
	router.Route(types.ResolvablePath(src), dst, intMsg{n: 42})

	require.Zero(t, actor.toldCount, "a Local()==false message must never take the Tell fast path")
	require.Len(t, actor.enqueued, 1)
	env := actor.enqueued[0]
	require.Equal(t, src, env.Src)
	require.Equal(t, dst, env.Dst)
	require.Equal(t, uint64(7), env.SerID)
	require.Equal(t, []byte{42}, env.Body)
}

type limitedSender struct {
	failAt    int
	delivered *[]byte
	sent      int
}

func (s *limitedSender) Send(frame types.Frame) bool {
	if s.sent >= s.failAt {
		return false
	}
	_, _, _, body, err := types.DecodeMessagePayload(frame.Payload)
	if err != nil {
		return false
	}
	*s.delivered = append(*s.delivered, body[0])
	s.sent++
	return true
}
