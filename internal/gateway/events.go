package gateway

import (
	"context"

	"github.com/nerrad567/ocpp-gateway/internal/station"
	"github.com/nerrad567/ocpp-gateway/internal/transaction"
)

// Events receives domain events for external consumers. Implementations
// must not block for long; they run on connection goroutines.
type Events interface {
	transaction.EventPublisher

	StationOnline(ctx context.Context, stationID string)
	StationOffline(ctx context.Context, stationID string)
	StationBooted(ctx context.Context, stationID string, info station.BootInfo)
	ConnectorStatus(ctx context.Context, c *station.Connector)
}

// NoopEvents discards every event.
type NoopEvents struct{}

func (NoopEvents) SessionStarted(context.Context, *transaction.Session)    {}
func (NoopEvents) SessionStopped(context.Context, *transaction.Session)    {}
func (NoopEvents) StationOnline(context.Context, string)                   {}
func (NoopEvents) StationOffline(context.Context, string)                  {}
func (NoopEvents) StationBooted(context.Context, string, station.BootInfo) {}
func (NoopEvents) ConnectorStatus(context.Context, *station.Connector)     {}
