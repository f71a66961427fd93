// Package packet defines the wire-level Packet value and the stable header
// byte values every component dispatches on.
package packet

// Header identifies the packet type carried in Payload.
type Header byte

const (
	HeaderKeepAlive Header = iota
	HeaderTerminalBuffer
	HeaderTerminalInfo
	HeaderPortForwardData
	HeaderPortForwardDestinationRequest
	HeaderPortForwardDestinationResponse
	HeaderIDPasskey
	HeaderInitialPayload
	HeaderInitialResponse
	HeaderJumphostInit
	HeaderTerminalInit
)

func (h Header) String() string {
	switch h {
	case HeaderKeepAlive:
		return "KEEP_ALIVE"
	case HeaderTerminalBuffer:
		return "TERMINAL_BUFFER"
	case HeaderTerminalInfo:
		return "TERMINAL_INFO"
	case HeaderPortForwardData:
		return "PORT_FORWARD_DATA"
	case HeaderPortForwardDestinationRequest:
		return "PORT_FORWARD_DESTINATION_REQUEST"
	case HeaderPortForwardDestinationResponse:
		return "PORT_FORWARD_DESTINATION_RESPONSE"
	case HeaderIDPasskey:
		return "IDPASSKEY"
	case HeaderInitialPayload:
		return "INITIAL_PAYLOAD"
	case HeaderInitialResponse:
		return "INITIAL_RESPONSE"
	case HeaderJumphostInit:
		return "JUMPHOST_INIT"
	case HeaderTerminalInit:
		return "TERMINAL_INIT"
	default:
		return "UNKNOWN"
	}
}

// MaxFrameBytes is the length cap beyond which a framed read is fatal.
const MaxFrameBytes = 128 * 1024 * 1024

// Packet is the value every encrypted or plaintext-control frame carries.
// Encrypted reflects whether Payload is currently ciphertext: Encrypt
// requires Encrypted == false, Decrypt requires Encrypted == true, and
// mismatches are a programmer error.
type Packet struct {
	Encrypted bool
	Header    Header
	Payload   []byte
}

// New builds a plaintext packet ready for Encrypt.
func New(h Header, payload []byte) Packet {
	return Packet{Encrypted: false, Header: h, Payload: payload}
}
