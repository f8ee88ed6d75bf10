package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// unregisterTimeout bounds the offline write made after a socket dies.
const unregisterTimeout = 5 * time.Second

// Deps are the collaborators the gateway dispatches into.
type Deps struct {
	Stations interface {
		StatusStore
		StationStore
		SweepStore
	}
	Authorizer Authorizer
	Sessions   Sessions
	Meter      MeterIngestor
	MessageLog MessageLog
	Events     Events
	Logger     Logger
}

// Config holds the gateway settings.
type Config struct {
	Conn              ConnConfig
	HeartbeatInterval int
	WatchdogInterval  time.Duration
}

// Gateway wires the registry, router, commander and watchdog together.
type Gateway struct {
	cfg       Config
	registry  *Registry
	router    *Router
	commander *Commander
	watchdog  *Watchdog
	msgLog    MessageLog
	logger    Logger
	serving   sync.WaitGroup
}

// New builds a Gateway from deps.
//
// The registry, router, handlers, commander and watchdog share the logger
// and event sink from deps. Nil Logger and Events fall back to no-ops.
//
// Parameters:
//   - cfg: Connection, heartbeat and watchdog settings
//   - deps: Stores and domain services the handlers dispatch into
//
// Returns:
//   - *Gateway: Ready to Serve connections; the caller runs Watchdog().Run
func New(cfg Config, deps Deps) *Gateway {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	events := deps.Events
	if events == nil {
		events = NoopEvents{}
	}

	registry := NewRegistry(deps.Stations)
	registry.SetLogger(logger)
	registry.SetEvents(events)

	// Charge-point-initiated actions
	router := NewRouter()
	router.SetLogger(logger)

	handlers := NewHandlers(deps.Stations, deps.Authorizer, deps.Sessions, deps.Meter, cfg.HeartbeatInterval)
	handlers.SetLogger(logger)
	handlers.SetEvents(events)
	handlers.Register(router)

	// Gateway-initiated commands go out through the live registry
	commander := NewCommander(registry)
	commander.SetLogger(logger)

	watchdog := NewWatchdog(registry, deps.Stations, cfg.WatchdogInterval)
	watchdog.SetLogger(logger)
	watchdog.SetEvents(events)

	return &Gateway{
		cfg:       cfg,
		registry:  registry,
		router:    router,
		commander: commander,
		watchdog:  watchdog,
		msgLog:    deps.MessageLog,
		logger:    logger,
	}
}

// Registry returns the connection registry.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Commander returns the command dispatcher.
func (g *Gateway) Commander() *Commander {
	return g.commander
}

// Watchdog returns the state reconciler.
func (g *Gateway) Watchdog() *Watchdog {
	return g.watchdog
}

// Serve runs an upgraded socket as the live connection of stationID and
// blocks until the connection closes. A previous connection for the same
// station is closed.
func (g *Gateway) Serve(ctx context.Context, stationID string, ws *websocket.Conn) {
	g.serving.Add(1)
	defer g.serving.Done()

	c := newConn(stationID, ws, g.cfg.Conn, g.router, g.msgLog, g.logger)
	c.onClose = func(c *Conn) {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unregisterTimeout)
		defer cancel()
		g.registry.Unregister(uctx, stationID, c)
	}

	if prev := g.registry.Register(ctx, stationID, c); prev != nil {
		g.logger.Info("closing displaced connection", "station_id", stationID)
		prev.Close()
	}
	c.Run(ctx)
}

// Shutdown closes every live connection and waits for them to finish
// unregistering, or for ctx to expire.
func (g *Gateway) Shutdown(ctx context.Context) error {
	conns := g.registry.Conns()
	for _, c := range conns {
		c.Close()
	}
	if len(conns) > 0 {
		g.logger.Info("closing live connections", "count", len(conns))
	}

	done := make(chan struct{})
	go func() {
		g.serving.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
