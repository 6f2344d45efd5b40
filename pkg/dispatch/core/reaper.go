package core

import "time"

// ReaperConfig holds the backoff bounds and growth factor for the
// self-tuning sweep interval. Defaults mirror the values suggested
// alongside the reaper's contract: floor 100ms, ceiling 10s, factor 2.
type ReaperConfig struct {
	Floor   time.Duration
	Ceiling time.Duration
	Factor  float64
}

// DefaultReaperConfig returns the suggested defaults.
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Floor:   100 * time.Millisecond,
		Ceiling: 10 * time.Second,
		Factor:  2,
	}
}

// Reaper sweeps dead entries out of a RegistryCell on a self-adjusting
// schedule: a quiet sweep (nothing reaped) lengthens the interval toward
// the ceiling, a productive sweep shortens it toward the floor. It holds
// no goroutine or timer of its own; the Dispatcher drives it from its own
// single-threaded intake loop so the interval state never needs locking.
type Reaper struct {
	cfg      ReaperConfig
	interval time.Duration
	registry *RegistryCell
}

// NewReaper constructs a Reaper starting at the ceiling interval: the
// first run is the least urgent possible guess, and incr/decr correct
// from there as real occupancy is observed.
func NewReaper(registry *RegistryCell, cfg ReaperConfig) *Reaper {
	return &Reaper{
		cfg:      cfg,
		interval: cfg.Ceiling,
		registry: registry,
	}
}

// Interval reports the current scheduling interval.
func (r *Reaper) Interval() time.Duration {
	return r.interval
}

// Run performs one sweep and adjusts the interval for the next
// scheduling. Returns the count of entries reaped.
func (r *Reaper) Run() int {
	reaped := r.registry.Sweep()
	if reaped == 0 {
		r.incr()
	} else {
		r.decr()
	}
	return reaped
}

// incr lengthens the interval geometrically, bounded by the ceiling.
func (r *Reaper) incr() {
	next := time.Duration(float64(r.interval) * r.cfg.Factor)
	if next > r.cfg.Ceiling {
		next = r.cfg.Ceiling
	}
	r.interval = next
}

// decr shortens the interval geometrically, bounded by the floor.
func (r *Reaper) decr() {
	next := time.Duration(float64(r.interval) / r.cfg.Factor)
	if next < r.cfg.Floor {
		next = r.cfg.Floor
	}
	r.interval = next
}
