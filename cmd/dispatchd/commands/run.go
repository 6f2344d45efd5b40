package commands

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jabolina/netdispatch/pkg/dispatch"
	"github.com/jabolina/netdispatch/pkg/dispatch/bridge"
	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dispatcher and block until signalled",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg := dispatch.NetworkConfig{Addr: listenAddr, Transport: types.TCP}
	factory := func(lookup dispatch.BridgeLookup) dispatch.BridgeAdapter {
		return bridge.New(lookup, log)
	}
	d := dispatch.New(cfg, factory, log)

	if err := d.Start(); err != nil {
		return fmt.Errorf("dispatchd: start failed: %w", err)
	}
	defer d.Stop()

	log.Infof("dispatchd listening on %s", d.SystemPath())

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(d.Metrics().Registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("metrics server failed: %v", err)
			}
		}()
		defer server.Close()
		log.Infof("metrics listening on %s", metricsAddr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("dispatchd shutting down")
	return nil
}
