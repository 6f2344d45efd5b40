package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TransportKind selects how a SystemPath is reached. Only TCP is honored
// by the router; UDP is reserved but always rejected and LOCAL never
// touches the network.
type TransportKind int

const (
	// LOCAL addresses are resolved entirely in-process.
	LOCAL TransportKind = iota
	// TCP is the only remote transport the router currently dispatches to.
	TCP
	// UDP is reserved. The router always rejects it with ErrUnsupportedTransport.
	UDP
)

func (t TransportKind) String() string {
	switch t {
	case LOCAL:
		return "LOCAL"
	case TCP:
		return "TCP"
	case UDP:
		return "UDP"
	default:
		return "UNKNOWN"
	}
}

// SystemPath identifies a host system: which transport it listens on and
// where. Equality is structural.
type SystemPath struct {
	Transport TransportKind
	IP        string
	Port      uint16
}

func (s SystemPath) String() string {
	return fmt.Sprintf("%s://%s:%d", s.Transport, s.IP, s.Port)
}

// ActorID is the opaque 128-bit identifier backing a Unique ActorPath.
type ActorID uuid.UUID

// NewActorID generates a fresh random actor identifier.
func NewActorID() ActorID {
	return ActorID(uuid.New())
}

func (id ActorID) String() string {
	return uuid.UUID(id).String()
}

// ActorPath is a location-transparent actor address. Exactly one of the
// Unique or Named fields is populated, selected by Kind.
type ActorPath struct {
	Kind     ActorPathKind
	System   SystemPath
	ID       ActorID  // populated when Kind == UniquePathKind
	Segments []string // populated when Kind == NamedPathKind
}

// ActorPathKind distinguishes the two ActorPath variants.
type ActorPathKind int

const (
	UniquePathKind ActorPathKind = iota
	NamedPathKind
)

// NewUniquePath builds a Unique ActorPath addressing id under system.
func NewUniquePath(system SystemPath, id ActorID) ActorPath {
	return ActorPath{Kind: UniquePathKind, System: system, ID: id}
}

// NewNamedPath builds a Named ActorPath addressing segments under system.
func NewNamedPath(system SystemPath, segments ...string) ActorPath {
	return ActorPath{Kind: NamedPathKind, System: system, Segments: segments}
}

// String renders the textual form described by the spec:
// <transport>://<ip>:<port>/<segments...> for Named,
// <transport>://<ip>:<port>/#<uuid> for Unique. This form is informational
// only; the transport layer never parses it back.
func (p ActorPath) String() string {
	switch p.Kind {
	case UniquePathKind:
		return fmt.Sprintf("%s/#%s", p.System, p.ID)
	case NamedPathKind:
		return fmt.Sprintf("%s/%s", p.System, strings.Join(p.Segments, "/"))
	default:
		return fmt.Sprintf("%s/<invalid>", p.System)
	}
}

// EncodeActorPath renders path into a self-describing binary form for
// the wire: kind tag, system (transport/ip/port), then either the raw
// 16-byte id or a length-prefixed sequence of segments. This is distinct
// from String()'s textual form, which is display-only and never parsed
// back; EncodeActorPath/DecodeActorPath is the pair the bridge actually
// uses to resolve an inbound frame's destination against the registry.
func EncodeActorPath(path ActorPath, buf []byte) []byte {
	buf = append(buf, byte(path.Kind))
	buf = append(buf, byte(path.System.Transport))
	ipBytes := []byte(path.System.IP)
	buf = appendUint32Prefixed(buf, ipBytes)
	portBuf := make([]byte, 2)
	portBuf[0] = byte(path.System.Port >> 8)
	portBuf[1] = byte(path.System.Port)
	buf = append(buf, portBuf...)
	switch path.Kind {
	case UniquePathKind:
		idBytes := uuid.UUID(path.ID)
		buf = append(buf, idBytes[:]...)
	case NamedPathKind:
		segBuf := make([]byte, 4)
		n := uint32(len(path.Segments))
		segBuf[0] = byte(n >> 24)
		segBuf[1] = byte(n >> 16)
		segBuf[2] = byte(n >> 8)
		segBuf[3] = byte(n)
		buf = append(buf, segBuf...)
		for _, seg := range path.Segments {
			buf = appendUint32Prefixed(buf, []byte(seg))
		}
	}
	return buf
}

// DecodeActorPath reverses EncodeActorPath, returning the path and the
// number of bytes consumed.
func DecodeActorPath(buf []byte) (ActorPath, int, error) {
	if len(buf) < 2+4+2 {
		return ActorPath{}, 0, fmt.Errorf("actor path header truncated")
	}
	kind := ActorPathKind(buf[0])
	transport := TransportKind(buf[1])
	rest := buf[2:]
	ipBytes, rest, err := readUint32Prefixed(rest)
	if err != nil {
		return ActorPath{}, 0, err
	}
	if len(rest) < 2 {
		return ActorPath{}, 0, fmt.Errorf("actor path port truncated")
	}
	port := uint16(rest[0])<<8 | uint16(rest[1])
	rest = rest[2:]
	system := SystemPath{Transport: transport, IP: string(ipBytes), Port: port}
	consumed := len(buf) - len(rest)

	switch kind {
	case UniquePathKind:
		if len(rest) < 16 {
			return ActorPath{}, 0, fmt.Errorf("actor path id truncated")
		}
		var id uuid.UUID
		copy(id[:], rest[:16])
		return ActorPath{Kind: UniquePathKind, System: system, ID: ActorID(id)}, consumed + 16, nil
	case NamedPathKind:
		if len(rest) < 4 {
			return ActorPath{}, 0, fmt.Errorf("actor path segment count truncated")
		}
		n := int(rest[0])<<24 | int(rest[1])<<16 | int(rest[2])<<8 | int(rest[3])
		rest = rest[4:]
		consumed += 4
		segments := make([]string, 0, n)
		for i := 0; i < n; i++ {
			var seg []byte
			seg, rest, err = readUint32Prefixed(rest)
			if err != nil {
				return ActorPath{}, 0, err
			}
			consumed = len(buf) - len(rest)
			segments = append(segments, string(seg))
		}
		return ActorPath{Kind: NamedPathKind, System: system, Segments: segments}, consumed, nil
	default:
		return ActorPath{}, 0, fmt.Errorf("unknown actor path kind %d", kind)
	}
}

// Equal reports structural equality between two ActorPaths.
func (p ActorPath) Equal(other ActorPath) bool {
	if p.Kind != other.Kind || p.System != other.System {
		return false
	}
	switch p.Kind {
	case UniquePathKind:
		return p.ID == other.ID
	case NamedPathKind:
		if len(p.Segments) != len(other.Segments) {
			return false
		}
		for i := range p.Segments {
			if p.Segments[i] != other.Segments[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// PathResolvable is a source designator that resolves to an ActorPath
// relative to the dispatcher doing the resolving. Resolution never fails.
type PathResolvable struct {
	kind  pathResolvableKind
	path  ActorPath
	alias string
	id    ActorID
}

type pathResolvableKind int

const (
	resolvablePath pathResolvableKind = iota
	resolvableAlias
	resolvableActorID
	resolvableSystem
)

// ResolvablePath wraps an already-known ActorPath.
func ResolvablePath(path ActorPath) PathResolvable {
	return PathResolvable{kind: resolvablePath, path: path}
}

// ResolvableAlias becomes a Named path under the resolving system.
func ResolvableAlias(alias string) PathResolvable {
	return PathResolvable{kind: resolvableAlias, alias: alias}
}

// ResolvableActorID becomes a Unique path under the resolving system.
func ResolvableActorID(id ActorID) PathResolvable {
	return PathResolvable{kind: resolvableActorID, id: id}
}

// ResolvableSystem resolves to the dispatcher's own actor path.
func ResolvableSystem() PathResolvable {
	return PathResolvable{kind: resolvableSystem}
}

// Resolve turns the designator into a concrete ActorPath. ownSystem and
// ownPath are supplied by the resolving dispatcher.
func (p PathResolvable) Resolve(ownSystem SystemPath, ownPath ActorPath) ActorPath {
	switch p.kind {
	case resolvablePath:
		return p.path
	case resolvableAlias:
		return NewNamedPath(ownSystem, p.alias)
	case resolvableActorID:
		return NewUniquePath(ownSystem, p.id)
	case resolvableSystem:
		return ownPath
	default:
		return ownPath
	}
}
