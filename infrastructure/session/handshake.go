package session

import (
	"io"

	"eternalterm/application"
)

// recoveryHandshake runs the recovery handshake on conn, symmetrically
// for whichever side calls it: write our reader's last delivered sequence
// number, read the peer's, ask our writer to replay whatever the peer
// still needs, exchange those buffers, then revive both reader and writer
// onto conn.
//
// The writer is invalidated before the exchange starts. A
// *transport.BackedWriter's internal write lock is acquired for the
// duration of its own Recover/Revive calls only; writers racing the
// handshake instead observe the writer invalidated and get WriteSkipped
// — see DESIGN.md for why that is an equivalent outcome for a caller that
// must not retry Skipped writes anyway.
func recoveryHandshake(conn io.ReadWriter, reader application.BackedReader, writer application.BackedWriter) error {
	writer.Invalidate()
	mySeq := reader.Sequence()
	if err := writeControl(conn, application.SequenceHeader{SequenceNumber: mySeq}); err != nil {
		return err
	}

	var peerSeq application.SequenceHeader
	if err := readControl(conn, &peerSeq); err != nil {
		return err
	}

	catchup, err := writer.Recover(peerSeq.SequenceNumber)
	if err != nil {
		return err
	}

	if err := writeControl(conn, application.CatchupBuffer{Buffer: catchup}); err != nil {
		return err
	}

	var peerCatchup application.CatchupBuffer
	if err := readControl(conn, &peerCatchup); err != nil {
		return err
	}

	reader.Revive(conn, peerCatchup.Buffer)
	writer.Revive(conn)
	return nil
}
