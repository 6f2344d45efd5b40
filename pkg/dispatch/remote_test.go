package dispatch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/netdispatch/internal/testutil"
	"github.com/jabolina/netdispatch/pkg/dispatch"
	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

// remotePair starts two dispatchers sharing a FakeNetwork, so messages
// routed between them cross the same ConnectionState machinery a real
// TCP bridge would exercise, without opening a single real socket.
func remotePair(t *testing.T) (a, b *dispatch.Dispatcher) {
	t.Helper()
	log := silentLogger()
	net := testutil.NewFakeNetwork()
	factory := func(lookup dispatch.BridgeLookup) dispatch.BridgeAdapter { return net.NewBridge(lookup) }

	a = dispatch.New(dispatch.DefaultNetworkConfig(), factory, log)
	b = dispatch.New(dispatch.DefaultNetworkConfig(), factory, log)
	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	t.Cleanup(func() {
		a.Stop()
		b.Stop()
	})
	return a, b
}

func TestDispatcherRemoteRoundTripViaNamedPath(t *testing.T) {
	a, b := remotePair(t)

	pongerPath := types.NewNamedPath(b.SystemPath(), "ponger")
	pingerPath := types.NewNamedPath(a.SystemPath(), "pinger")

	ponger := testutil.NewPonger(pongerPath, func(dst types.ActorPath, reply types.Serialisable) {
		b.Tell(types.ResolvablePath(pongerPath), dst, reply)
	})
	pinger := testutil.NewPinger(pingerPath, pongerPath, func(target types.ActorPath, msg testutil.PingMsg) {
		a.Tell(types.ResolvablePath(pingerPath), target, types.NewSerialisableValue(msg, testutil.PingSer{}))
	})

	require.NoError(t, b.Register(ponger, pongerPath).Wait())
	require.NoError(t, a.Register(pinger, pingerPath).Wait())

	pinger.Start()

	require.Eventually(t, func() bool {
		local, remote := pinger.Counts()
		return local+remote >= testutil.PingCount
	}, 2*time.Second, 10*time.Millisecond)

	local, remote := pinger.Counts()
	require.Zero(t, local, "every hop here crosses systems, so nothing should land on the local fast path")
	require.Equal(t, testutil.PingCount, remote)
}

func TestDispatcherRemoteRoundTripViaUniquePath(t *testing.T) {
	a, b := remotePair(t)

	pongerID := types.NewActorID()
	pongerPath := types.NewUniquePath(b.SystemPath(), pongerID)
	pingerPath := types.NewNamedPath(a.SystemPath(), "pinger")

	ponger := testutil.NewPonger(pongerPath, func(dst types.ActorPath, reply types.Serialisable) {
		b.Tell(types.ResolvablePath(pongerPath), dst, reply)
	})
	pinger := testutil.NewPinger(pingerPath, pongerPath, func(target types.ActorPath, msg testutil.PingMsg) {
		a.Tell(types.ResolvablePath(pingerPath), target, types.NewSerialisableValue(msg, testutil.PingSer{}))
	})

	require.NoError(t, b.Register(ponger, pongerPath).Wait())
	require.NoError(t, a.Register(pinger, pingerPath).Wait())

	pinger.Start()

	require.Eventually(t, func() bool {
		local, remote := pinger.Counts()
		return local+remote >= testutil.PingCount
	}, 2*time.Second, 10*time.Millisecond)

	local, remote := pinger.Counts()
	require.Zero(t, local)
	require.Equal(t, testutil.PingCount, remote)
}
