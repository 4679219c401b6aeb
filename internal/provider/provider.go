// Package provider loads schedule data into an immutable schedule.Network.
// The core never loads anything itself; it is handed a fully built store.
package provider

import (
	"context"

	"tram-simulator/internal/schedule"
)

// Provider builds a schedule store. Implementations must deliver StopTimes
// pre-sorted by sequence within each trip and Trips pre-sorted by trip
// number within each block; the resolvers rely on that order.
type Provider interface {
	Load(ctx context.Context) (*schedule.Network, error)
}
