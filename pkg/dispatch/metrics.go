package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Dispatcher's instrumentation. Each Dispatcher owns
// its own prometheus.Registry rather than registering against the
// global default: a process may run more than one dispatcher (notably
// in tests, where several systems are started side by side), and the
// default registry panics on a second registration of the same metric
// name.
type Metrics struct {
	Registry *prometheus.Registry

	registrations      prometheus.Counter
	duplicateRejects   prometheus.Counter
	deregistrations    prometheus.Counter
	routedLocal        prometheus.Counter
	routedRemote       prometheus.Counter
	framesQueued       prometheus.Counter
	framesDrained      prometheus.Counter
	reapRuns           prometheus.Counter
	reapedActors       prometheus.Counter
	registrySize       prometheus.GaugeFunc
	reaperIntervalMs   prometheus.Gauge
}

// NewMetrics constructs and registers every gauge/counter against a
// fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "netdispatch_registrations_total",
			Help: "Count of successful actor registrations.",
		}),
		duplicateRejects: factory.NewCounter(prometheus.CounterOpts{
			Name: "netdispatch_duplicate_registrations_total",
			Help: "Count of registrations rejected as duplicates.",
		}),
		deregistrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "netdispatch_deregistrations_total",
			Help: "Count of explicit deregistrations.",
		}),
		routedLocal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netdispatch_routed_local_total",
			Help: "Count of messages routed to a local destination.",
		}),
		routedRemote: factory.NewCounter(prometheus.CounterOpts{
			Name: "netdispatch_routed_remote_total",
			Help: "Count of messages routed to a remote destination.",
		}),
		framesQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "netdispatch_frames_queued_total",
			Help: "Count of frames appended to a per-peer queue.",
		}),
		framesDrained: factory.NewCounter(prometheus.CounterOpts{
			Name: "netdispatch_frames_drained_total",
			Help: "Count of frames successfully sent out of a per-peer queue.",
		}),
		reapRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "netdispatch_reaper_runs_total",
			Help: "Count of reaper sweeps performed.",
		}),
		reapedActors: factory.NewCounter(prometheus.CounterOpts{
			Name: "netdispatch_reaped_actors_total",
			Help: "Count of dead actors removed by the reaper.",
		}),
		reaperIntervalMs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netdispatch_reaper_interval_milliseconds",
			Help: "Current self-tuned reaper scheduling interval.",
		}),
	}
}

// bindRegistrySize wires a gauge that reads the live registry size
// on each scrape; split out of the constructor since it needs the
// dispatcher's RegistryCell, which does not exist yet at NewMetrics time.
func (m *Metrics) bindRegistrySize(size func() float64) {
	m.registrySize = promauto.With(m.Registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "netdispatch_registry_size",
		Help: "Number of actor paths currently published in the registry.",
	}, size)
}
