package application

import "context"

// TrafficRouter opaquely pipes framed packets between two Connections
// without touching their CryptoHandlers. The jumphost relay is a
// TrafficRouter; it knows only a client id and a destination endpoint.
type TrafficRouter interface {
	RouteTraffic(ctx context.Context) error
}
