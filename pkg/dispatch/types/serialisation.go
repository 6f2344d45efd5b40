package types

import "fmt"

// SerErrorKind distinguishes the three ways serialisation can fail.
type SerErrorKind int

const (
	InvalidData SerErrorKind = iota
	InvalidType
	UnknownSerError
)

// SerError is the error type returned across the serialisation contract.
type SerError struct {
	Kind    SerErrorKind
	Message string
}

func (e *SerError) Error() string {
	switch e.Kind {
	case InvalidData:
		return fmt.Sprintf("invalid data: %s", e.Message)
	case InvalidType:
		return fmt.Sprintf("invalid type: %s", e.Message)
	default:
		return fmt.Sprintf("serialisation error: %s", e.Message)
	}
}

func NewInvalidData(format string, args ...any) *SerError {
	return &SerError{Kind: InvalidData, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidType(format string, args ...any) *SerError {
	return &SerError{Kind: InvalidType, Message: fmt.Sprintf(format, args...)}
}

func NewUnknownSerError(format string, args ...any) *SerError {
	return &SerError{Kind: UnknownSerError, Message: fmt.Sprintf(format, args...)}
}

// Serialisable is a value that knows how to write itself to a buffer and,
// optionally, expose its original typed form for local delivery.
type Serialisable interface {
	ID() uint64
	SizeHint() (int, bool)
	Serialise(buf []byte) ([]byte, error)

	// Local attempts to recover the in-process typed value, so the router
	// can hand it to ActorRef.Tell without a serialise/deserialise
	// round-trip. Designed as a capability (a type switch on the concrete
	// value), not as an inheritance relationship — most Serialisable
	// implementations never need it.
	Local() (value any, ok bool)
}

// Serialiser binds a type T to the Serialisable contract. A (value,
// serialiser) pair composes into a Serialisable via NewSerialisableValue.
type Serialiser[T any] interface {
	ID() uint64
	SizeHint() (int, bool)
	Serialise(v T, buf []byte) ([]byte, error)
}

// Deserialiser consumes a byte buffer and yields a typed value.
type Deserialiser[T any] interface {
	Deserialise(buf []byte) (T, error)
}

// SerialisableValue composes a typed value with its Serialiser into a
// Serialisable, mirroring the original's `impl<T, S> From<(T, S)> for
// Box<Serialisable>` blanket conversion.
type SerialisableValue[T any] struct {
	Value T
	Ser   Serialiser[T]
}

func NewSerialisableValue[T any](value T, ser Serialiser[T]) SerialisableValue[T] {
	return SerialisableValue[T]{Value: value, Ser: ser}
}

func (s SerialisableValue[T]) ID() uint64 { return s.Ser.ID() }

func (s SerialisableValue[T]) SizeHint() (int, bool) { return s.Ser.SizeHint() }

func (s SerialisableValue[T]) Serialise(buf []byte) ([]byte, error) {
	return s.Ser.Serialise(s.Value, buf)
}

// Local recovers the original typed value directly, since it is still
// held in-process at the point of construction.
func (s SerialisableValue[T]) Local() (any, bool) {
	return s.Value, true
}
