// Package eventloop implements the per-client session dispatch loop: it
// pumps packets between a Connection, a UserTerminal, and a
// PortForwardHandler, applying the rate limit and keep-alive timers
// spec.md §4.6 describes.
package eventloop

import (
	"encoding/json"
	"fmt"

	"eternalterm/application"
	"eternalterm/domain/packet"
)

// encode marshals v as the JSON payload of a plaintext control packet —
// TERMINAL_INFO and every PORT_FORWARD_* header carry a small struct
// this way rather than a fixed binary layout. KEEP_ALIVE has no payload.
func encode(h packet.Header, v any) (packet.Packet, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return packet.Packet{}, fmt.Errorf("eventloop: encode %s: %w", h, err)
	}
	return packet.New(h, b), nil
}

func decode(p packet.Packet, v any) error {
	if err := json.Unmarshal(p.Payload, v); err != nil {
		return fmt.Errorf("eventloop: decode %s: %w", p.Header, err)
	}
	return nil
}

func encodeTerminalInfo(sz application.TerminalSize) (packet.Packet, error) {
	return encode(packet.HeaderTerminalInfo, sz)
}

func decodeTerminalInfo(p packet.Packet) (application.TerminalSize, error) {
	var sz application.TerminalSize
	err := decode(p, &sz)
	return sz, err
}

func encodePortForwardData(d application.PortForwardData) (packet.Packet, error) {
	return encode(packet.HeaderPortForwardData, d)
}

func decodePortForwardData(p packet.Packet) (application.PortForwardData, error) {
	var d application.PortForwardData
	err := decode(p, &d)
	return d, err
}

func encodeDestinationRequest(r application.PortForwardDestinationRequest) (packet.Packet, error) {
	return encode(packet.HeaderPortForwardDestinationRequest, r)
}

func decodeDestinationRequest(p packet.Packet) (application.PortForwardDestinationRequest, error) {
	var r application.PortForwardDestinationRequest
	err := decode(p, &r)
	return r, err
}

func encodeDestinationResponse(r application.PortForwardDestinationResponse) (packet.Packet, error) {
	return encode(packet.HeaderPortForwardDestinationResponse, r)
}

func decodeDestinationResponse(p packet.Packet) (application.PortForwardDestinationResponse, error) {
	var r application.PortForwardDestinationResponse
	err := decode(p, &r)
	return r, err
}
