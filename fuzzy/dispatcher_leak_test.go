// Package fuzzy holds longer-running stress and leak checks that do not
// fit the unit-test granularity of pkg/dispatch itself: repeated
// start/stop cycles and sustained traffic, verified with goleak the way
// the original cluster-shutdown tests did.
package fuzzy

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"

	"github.com/jabolina/netdispatch/internal/testutil"
	"github.com/jabolina/netdispatch/pkg/dispatch"
	"github.com/jabolina/netdispatch/pkg/dispatch/bridge"
	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Test_RepeatedStartStopLeavesNoGoroutines spins a dispatcher up and down
// many times using a WaitInvoker, so every pump/poll goroutine it spawned
// is confirmed exited before the next round starts. The reaper schedules
// itself via time.AfterFunc rather than a tracked goroutine, so it has
// nothing for the invoker to wait on; goleak still confirms nothing
// escaped, a leaked goroutine here would mean Stop doesn't actually
// unwind the dispatcher's background work.
func Test_RepeatedStartStopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	log := quietLogger()
	for i := 0; i < 20; i++ {
		invoker := testutil.NewWaitInvoker()
		factory := func(lookup dispatch.BridgeLookup) dispatch.BridgeAdapter {
			return bridge.New(lookup, log)
		}
		d := dispatch.New(dispatch.DefaultNetworkConfig(), factory, log)
		d.SetInvoker(invoker)

		if err := d.Start(); err != nil {
			t.Fatalf("round %d: start failed: %v", i, err)
		}

		path := types.NewNamedPath(d.SystemPath(), fmt.Sprintf("actor-%d", i))
		actor := testutil.NewPonger(path, func(types.ActorPath, types.Serialisable) {})
		if err := d.Register(actor, path).Wait(); err != nil {
			t.Fatalf("round %d: register failed: %v", i, err)
		}

		if err := d.Stop(); err != nil {
			t.Fatalf("round %d: stop failed: %v", i, err)
		}
		invoker.Wait()
	}
}

// Test_SustainedPingPongLeavesNoGoroutines runs a full local ping/pong
// exchange to completion, then tears the dispatcher down and verifies
// the bridge's accept loop exits cleanly rather than leaking past Stop.
func Test_SustainedPingPongLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	log := quietLogger()
	invoker := testutil.NewWaitInvoker()
	factory := func(lookup dispatch.BridgeLookup) dispatch.BridgeAdapter {
		return bridge.New(lookup, log)
	}
	d := dispatch.New(dispatch.DefaultNetworkConfig(), factory, log)
	d.SetInvoker(invoker)

	if err := d.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	pongerPath := types.NewNamedPath(d.SystemPath(), "ponger")
	pingerPath := types.NewNamedPath(d.SystemPath(), "pinger")

	ponger := testutil.NewPonger(pongerPath, func(dst types.ActorPath, reply types.Serialisable) {
		d.Tell(types.ResolvablePath(pongerPath), dst, reply)
	})
	pinger := testutil.NewPinger(pingerPath, pongerPath, func(target types.ActorPath, msg testutil.PingMsg) {
		d.Tell(types.ResolvablePath(pingerPath), target, types.NewSerialisableValue(msg, testutil.PingSer{}))
	})

	if err := d.Register(ponger, pongerPath).Wait(); err != nil {
		t.Fatalf("register ponger: %v", err)
	}
	if err := d.Register(pinger, pingerPath).Wait(); err != nil {
		t.Fatalf("register pinger: %v", err)
	}

	pinger.Start()

	deadline := time.Now().Add(2 * time.Second)
	for {
		local, remote := pinger.Counts()
		if local+remote >= testutil.PingCount {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ping/pong did not complete: local=%d remote=%d", local, remote)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	invoker.Wait()
}
