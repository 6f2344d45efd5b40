package dispatch_test

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/jabolina/netdispatch/internal/testutil"
	"github.com/jabolina/netdispatch/pkg/dispatch"
	"github.com/jabolina/netdispatch/pkg/dispatch/bridge"
	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func tcpFactory(log types.Logger) dispatch.BridgeFactory {
	return func(lookup dispatch.BridgeLookup) dispatch.BridgeAdapter {
		return bridge.New(lookup, log)
	}
}

func TestDispatcherLocalRoundTrip(t *testing.T) {
	log := silentLogger()
	d := dispatch.New(dispatch.DefaultNetworkConfig(), tcpFactory(log), log)
	require.NoError(t, d.Start())
	defer d.Stop()

	localSystem := d.SystemPath()
	localSystem.Transport = types.LOCAL
	pongerPath := types.NewNamedPath(localSystem, "ponger")
	pingerPath := types.NewNamedPath(localSystem, "pinger")

	ponger := testutil.NewPonger(pongerPath, func(dst types.ActorPath, reply types.Serialisable) {
		d.Tell(types.ResolvablePath(pongerPath), dst, reply)
	})
	pinger := testutil.NewPinger(pingerPath, pongerPath, func(target types.ActorPath, msg testutil.PingMsg) {
		d.Tell(types.ResolvablePath(pingerPath), target, types.NewSerialisableValue(msg, testutil.PingSer{}))
	})

	require.NoError(t, d.Register(ponger, pongerPath).Wait())
	require.NoError(t, d.Register(pinger, pingerPath).Wait())

	pinger.Start()

	require.Eventually(t, func() bool {
		local, remote := pinger.Counts()
		return local+remote >= testutil.PingCount
	}, time.Second, 5*time.Millisecond)

	local, remote := pinger.Counts()
	require.Equal(t, testutil.PingCount, local)
	require.Zero(t, remote, "an entirely local round trip never touches the Enqueue path")
}

func TestDispatcherDuplicateRegistrationIsRejected(t *testing.T) {
	log := silentLogger()
	d := dispatch.New(dispatch.DefaultNetworkConfig(), tcpFactory(log), log)
	require.NoError(t, d.Start())
	defer d.Stop()

	path := types.NewNamedPath(d.SystemPath(), "only-one")
	first := testutil.NewPonger(path, func(types.ActorPath, types.Serialisable) {})
	second := testutil.NewPonger(path, func(types.ActorPath, types.Serialisable) {})

	require.NoError(t, d.Register(first, path).Wait())

	result, ok := d.Register(second, path).WaitTimeout(time.Second)
	require.True(t, ok, "duplicate registration must resolve within the timeout")
	require.ErrorIs(t, result, types.ErrDuplicateEntry)
}

func TestDispatcherDeregisterAbsentPathIsNotAnError(t *testing.T) {
	log := silentLogger()
	d := dispatch.New(dispatch.DefaultNetworkConfig(), tcpFactory(log), log)
	require.NoError(t, d.Start())
	defer d.Stop()

	path := types.NewNamedPath(d.SystemPath(), "never-registered")
	result, ok := d.Deregister(path).WaitTimeout(time.Second)
	require.True(t, ok)
	require.NoError(t, result)
}

func TestDispatcherStartFailsOnAlreadyBoundAddress(t *testing.T) {
	log := silentLogger()

	first := dispatch.New(dispatch.DefaultNetworkConfig(), tcpFactory(log), log)
	require.NoError(t, first.Start())
	defer first.Stop()

	sys := first.SystemPath()
	addr := fmt.Sprintf("%s:%d", sys.IP, sys.Port)

	second := dispatch.New(dispatch.NetworkConfig{Addr: addr, Transport: types.TCP}, tcpFactory(log), log)
	err := second.Start()
	require.Error(t, err, "binding an address already held by another listener must fail")
}
