package types

import "fmt"

// ConnectionKind enumerates the five-way ConnectionState sum. Transitions
// are the only mutator; nothing else should ever inspect a connection's
// readiness through a boolean flag.
type ConnectionKind int

const (
	New ConnectionKind = iota
	Initializing
	Connected
	Closed
	ConnError
)

func (k ConnectionKind) String() string {
	switch k {
	case New:
		return "New"
	case Initializing:
		return "Initializing"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	case ConnError:
		return "Error"
	default:
		return "Unknown"
	}
}

// FrameSender is the unbounded write end of a per-peer outbound channel.
// Send reports false once the transport side has dropped its receiving
// end; the caller must treat that as a signal the connection is no
// longer live, regardless of the nominal ConnectionState.
type FrameSender interface {
	Send(frame Frame) bool
}

// ConnectionState is a tagged variant over New, Initializing,
// Connected(sender), Closed, and Error(kind). Only one of Sender or Err is
// meaningful, gated by Kind.
type ConnectionState struct {
	Kind   ConnectionKind
	Sender FrameSender // set iff Kind == Connected
	Err    error       // set iff Kind == ConnError
}

func NewState() ConnectionState          { return ConnectionState{Kind: New} }
func InitializingState() ConnectionState { return ConnectionState{Kind: Initializing} }
func ClosedState() ConnectionState       { return ConnectionState{Kind: Closed} }

func ConnectedState(sender FrameSender) ConnectionState {
	return ConnectionState{Kind: Connected, Sender: sender}
}

func ErrorState(err error) ConnectionState {
	return ConnectionState{Kind: ConnError, Err: err}
}

func (s ConnectionState) String() string {
	switch s.Kind {
	case ConnError:
		return fmt.Sprintf("Error(%v)", s.Err)
	default:
		return s.Kind.String()
	}
}
