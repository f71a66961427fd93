// Package wire implements the Packet codec: frame, serialize, and parse
// the length-prefixed {encrypted?, header, payload} records that carry
// every message on the wire. Framing is the only job of this package —
// encryption, sequence numbers, and header dispatch all live one layer
// up. The length prefix is 8 bytes big-endian, wide enough for an
// arbitrary CatchupBuffer rather than just an MTU-bound tunnel frame.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	eterrors "eternalterm/domain/errors"
	"eternalterm/domain/packet"
)

// lengthPrefixBytes is the size of the big-endian length prefix preceding
// every frame on the wire.
const lengthPrefixBytes = 8

// headerBytes is the size of the {encrypted, header} prefix inside the
// framed payload.
const headerBytes = 2

// Serialize produces [encrypted:1][header:1][payload:N]. The 8-byte length
// prefix is not included; framing via Write is the caller's responsibility
// when talking to a socket directly.
func Serialize(p packet.Packet) []byte {
	out := make([]byte, headerBytes+len(p.Payload))
	if p.Encrypted {
		out[0] = 1
	}
	out[1] = byte(p.Header)
	copy(out[2:], p.Payload)
	return out
}

// Parse is the inverse of Serialize.
func Parse(raw []byte) (packet.Packet, error) {
	if len(raw) < headerBytes {
		return packet.Packet{}, eterrors.New(eterrors.KindBadFrame, "wire.Parse", fmt.Errorf("frame too short: %d bytes", len(raw)))
	}
	payload := make([]byte, len(raw)-headerBytes)
	copy(payload, raw[headerBytes:])
	return packet.Packet{
		Encrypted: raw[0] == 1,
		Header:    packet.Header(raw[1]),
		Payload:   payload,
	}, nil
}

// Read reads one frame from r: an 8-byte big-endian length L, validated to
// 0 <= L <= packet.MaxFrameBytes, followed by exactly L bytes. L == 0
// means "no packet" (ok == false, err == nil). An out-of-range length or
// a socket closing mid-frame is a BadFrame SessionError.
func Read(r io.Reader) (p packet.Packet, ok bool, err error) {
	var lenBuf [lengthPrefixBytes]byte
	if _, err = io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return packet.Packet{}, false, nil
		}
		return packet.Packet{}, false, eterrors.New(eterrors.KindBadFrame, "wire.Read", err)
	}

	length := binary.BigEndian.Uint64(lenBuf[:])
	if length == 0 {
		return packet.Packet{}, false, nil
	}
	if length > packet.MaxFrameBytes {
		return packet.Packet{}, false, eterrors.New(eterrors.KindBadFrame, "wire.Read", fmt.Errorf("frame length %d exceeds cap %d", length, packet.MaxFrameBytes))
	}

	body := make([]byte, length)
	if _, err = io.ReadFull(r, body); err != nil {
		return packet.Packet{}, false, eterrors.New(eterrors.KindBadFrame, "wire.Read", err)
	}

	parsed, perr := Parse(body)
	if perr != nil {
		return packet.Packet{}, false, perr
	}
	return parsed, true, nil
}

// Write frames p as [len=payload+2][encrypted][header][payload] and writes
// it whole to w.
func Write(w io.Writer, p packet.Packet) error {
	body := Serialize(p)
	var lenBuf [lengthPrefixBytes]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(body)))

	if _, err := w.Write(lenBuf[:]); err != nil {
		return eterrors.New(eterrors.KindSocketDead, "wire.Write", err)
	}
	if _, err := w.Write(body); err != nil {
		return eterrors.New(eterrors.KindSocketDead, "wire.Write", err)
	}
	return nil
}
