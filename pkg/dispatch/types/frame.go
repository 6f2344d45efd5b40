package types

import (
	"encoding/binary"
	"fmt"
)

// Frame is the only shape this core ever produces: a Data frame carrying a
// serialised message. StreamID and Seq are reserved framing metadata —
// this core always emits stream 0, sequence 0 — left in place for the
// transport's own use.
type Frame struct {
	StreamID uint32
	Seq      uint32
	Payload  []byte
}

// NewDataFrame builds a Frame with the reservation defaults this core
// always uses.
func NewDataFrame(payload []byte) Frame {
	return Frame{StreamID: 0, Seq: 0, Payload: payload}
}

// Encode writes the frame as a small fixed header (stream id, sequence,
// payload length) followed by the payload bytes. This is a minimal wire
// format for the reference TCP bridge; the framing codec proper belongs
// to the transport collaborator.
func (f Frame) Encode() []byte {
	buf := make([]byte, 12+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], f.StreamID)
	binary.BigEndian.PutUint32(buf[4:8], f.Seq)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(f.Payload)))
	copy(buf[12:], f.Payload)
	return buf
}

// DecodeFrame reverses Encode, reporting the number of bytes consumed
// (header plus payload) so callers can tell whether more data is needed:
// a buffer holding less than one whole frame yields 0 and no error.
func DecodeFrame(buf []byte) (Frame, int, error) {
	if len(buf) < 12 {
		return Frame{}, 0, nil
	}
	streamID := binary.BigEndian.Uint32(buf[0:4])
	seq := binary.BigEndian.Uint32(buf[4:8])
	length := binary.BigEndian.Uint32(buf[8:12])
	total := 12 + int(length)
	if len(buf) < total {
		return Frame{}, 0, nil
	}
	payload := make([]byte, length)
	copy(payload, buf[12:total])
	return Frame{StreamID: streamID, Seq: seq, Payload: payload}, total, nil
}

// EncodeMessagePayload packs (src, dst, serID, body) into the Data frame
// payload shape described by the spec. src and dst are carried in their
// structured binary form (EncodeActorPath) rather than their display
// text, since the receiving bridge must resolve dst against its own
// registry to deliver the frame; ActorPath.String() remains purely
// informational, used for logging, never parsed back off the wire.
func EncodeMessagePayload(src, dst ActorPath, serID uint64, body []byte) []byte {
	buf := make([]byte, 0, 64+len(body))
	buf = EncodeActorPath(src, buf)
	buf = EncodeActorPath(dst, buf)
	serIDBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(serIDBuf, serID)
	buf = append(buf, serIDBuf...)
	buf = appendUint32Prefixed(buf, body)
	return buf
}

// DecodeMessagePayload reverses EncodeMessagePayload.
func DecodeMessagePayload(buf []byte) (src, dst ActorPath, serID uint64, body []byte, err error) {
	src, n, err := DecodeActorPath(buf)
	if err != nil {
		return ActorPath{}, ActorPath{}, 0, nil, err
	}
	rest := buf[n:]
	dst, n, err = DecodeActorPath(rest)
	if err != nil {
		return ActorPath{}, ActorPath{}, 0, nil, err
	}
	rest = rest[n:]
	if len(rest) < 8 {
		return ActorPath{}, ActorPath{}, 0, nil, fmt.Errorf("message payload truncated before ser id")
	}
	serID = binary.BigEndian.Uint64(rest[:8])
	rest = rest[8:]
	body, rest, err = readUint32Prefixed(rest)
	if err != nil {
		return ActorPath{}, ActorPath{}, 0, nil, err
	}
	return src, dst, serID, body, nil
}

func appendUint32Prefixed(buf, data []byte) []byte {
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	buf = append(buf, lenBuf...)
	return append(buf, data...)
}

func readUint32Prefixed(buf []byte) (data, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}
	length := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < length {
		return nil, nil, fmt.Errorf("truncated field: have %d bytes, need %d", len(buf), length)
	}
	return buf[:length], buf[length:], nil
}
