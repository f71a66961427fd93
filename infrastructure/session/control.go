package session

import (
	"encoding/binary"
	"encoding/json"
	"io"

	eterrors "eternalterm/domain/errors"
	"eternalterm/domain/packet"
)

// writeControl frames v as JSON behind the same 8-byte big-endian length
// prefix the Packet codec uses. Control messages (ConnectRequest/Response,
// SequenceHeader, CatchupBuffer) are plaintext, pre-crypto, and travel on
// the raw socket rather than through a BackedWriter, so they get their own
// JSON encoding rather than the Packet{encrypted,header,payload} shape —
// but the same length-prefix framing discipline.
func writeControl(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eterrors.New(eterrors.KindBadFrame, "session.writeControl", err)
	}
	if uint64(len(data)) > packet.MaxFrameBytes {
		return eterrors.New(eterrors.KindBadFrame, "session.writeControl", errFrameTooLarge)
	}
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return eterrors.New(eterrors.KindSocketDead, "session.writeControl", err)
	}
	if _, err := w.Write(data); err != nil {
		return eterrors.New(eterrors.KindSocketDead, "session.writeControl", err)
	}
	return nil
}

func readControl(r io.Reader, v any) error {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return eterrors.New(eterrors.KindSocketDead, "session.readControl", err)
	}
	length := binary.BigEndian.Uint64(lenBuf[:])
	if length > packet.MaxFrameBytes {
		return eterrors.New(eterrors.KindBadFrame, "session.readControl", errFrameTooLarge)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return eterrors.New(eterrors.KindSocketDead, "session.readControl", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eterrors.New(eterrors.KindBadFrame, "session.readControl", err)
	}
	return nil
}

var errFrameTooLarge = jsonFrameTooLargeErr{}

type jsonFrameTooLargeErr struct{}

func (jsonFrameTooLargeErr) Error() string { return "control frame exceeds length cap" }
