package core

import "github.com/jabolina/netdispatch/pkg/dispatch/types"

// ConnectionTable holds one ConnectionState per peer address. Owned
// exclusively by the Dispatcher; an address absent from the table is
// implicitly New.
type ConnectionTable struct {
	states map[string]types.ConnectionState
}

// NewConnectionTable returns an empty table.
func NewConnectionTable() *ConnectionTable {
	return &ConnectionTable{states: make(map[string]types.ConnectionState)}
}

// Get returns addr's state, defaulting to New if the address has never
// been referenced.
func (t *ConnectionTable) Get(addr string) types.ConnectionState {
	if state, ok := t.states[addr]; ok {
		return state
	}
	return types.NewState()
}

// Set installs addr's new state, replacing whatever was there.
func (t *ConnectionTable) Set(addr string, state types.ConnectionState) {
	t.states[addr] = state
}

// Remove drops addr from the table entirely, returning it to the
// implicit New default on next reference.
func (t *ConnectionTable) Remove(addr string) {
	delete(t.states, addr)
}
