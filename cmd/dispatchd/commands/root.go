package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// listenAddr is the TCP address the dispatcher binds.
	listenAddr string

	// metricsAddr, when non-empty, serves /metrics over HTTP.
	metricsAddr string

	// logLevel controls logrus's verbosity.
	logLevel string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "dispatchd",
	Short: "Network-aware actor dispatch daemon",
	Long: `dispatchd runs a standalone actor dispatch core: a lock-free
registry, a per-peer connection state machine, and a TCP bridge, wired
together the way an embedding actor runtime would use them.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&listenAddr, "addr", "127.0.0.1:0",
		"TCP address to bind the dispatcher to",
	)
	rootCmd.PersistentFlags().StringVar(
		&metricsAddr, "metrics-addr", "",
		"address to serve Prometheus metrics on (empty disables)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info",
		"logrus level: trace, debug, info, warn, error",
	)
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
