package application

import (
	"eternalterm/domain/portforward"
)

// PortForwardDestinationRequest is the PORT_FORWARD_DESTINATION_REQUEST
// payload: the source side asking the peer to dial destSpec.
type PortForwardDestinationRequest struct {
	Dest portforward.Endpoint
}

// PortForwardDestinationResponse is the PORT_FORWARD_DESTINATION_RESPONSE
// payload.
type PortForwardDestinationResponse struct {
	SocketID portforward.SocketID
	Error    string
}

// PortForwardData is the PORT_FORWARD_DATA payload. Exactly one of Buffer
// being non-nil, Closed, or Error != "" holds at a time.
type PortForwardData struct {
	SocketID            portforward.SocketID
	SourceToDestination bool
	Buffer              []byte
	Closed              bool
	Error               string
}

// PortForwardBatch is what Update collects in one pass.
type PortForwardBatch struct {
	Data     []PortForwardData
	Requests []PortForwardDestinationRequest
}

// PortForwardHandler multiplexes many local sockets over one encrypted
// session using integer socket ids; Update is called periodically by the
// session event loop to drain source-side reads.
type PortForwardHandler interface {
	// CreateSource binds and listens on spec.Source, forwarding accepted
	// connections to spec.Dest on the peer.
	CreateSource(spec portforward.ForwardSpec) error
	// CreateEnvVarSource binds a freshly generated UNIX socket path for
	// src.EnvVar and forwards it to src.Dest.
	CreateEnvVarSource(src portforward.EnvVarSource) (path string, err error)

	// HandleDestinationRequest runs on the destination side: dial Dest,
	// allocate a socket id on success, and return the response to send.
	HandleDestinationRequest(req PortForwardDestinationRequest) PortForwardDestinationResponse
	// HandleDestinationResponse runs on the source side: pop an
	// unassigned fd and bind it to resp.SocketID, or drop it on error.
	HandleDestinationResponse(resp PortForwardDestinationResponse)
	// HandleData applies an incoming PORT_FORWARD_DATA packet to the
	// locally mapped fd.
	HandleData(data PortForwardData)

	// Update drains pending reads from every locally mapped fd and every
	// newly accepted, not-yet-requested source connection. Data holds
	// PORT_FORWARD_DATA packets ready to send; Requests holds
	// PORT_FORWARD_DESTINATION_REQUEST packets for connections accepted
	// since the last call.
	Update() PortForwardBatch

	// Close tears down every listener and forwarded socket.
	Close() error
}
