package dispatch

import "github.com/jabolina/netdispatch/pkg/dispatch/types"

// NetworkConfig configures a Dispatcher's listen address and transport.
// Only TCP is currently honored; the field exists so a future transport
// does not require a new config type.
type NetworkConfig struct {
	Addr      string
	Transport types.TransportKind
}

// DefaultNetworkConfig binds an ephemeral local port over TCP.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		Addr:      "127.0.0.1:0",
		Transport: types.TCP,
	}
}
