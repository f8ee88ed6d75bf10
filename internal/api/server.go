package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/audit"
	"github.com/nerrad567/ocpp-gateway/internal/gateway"
	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/config"
	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/ocpp-gateway/internal/meter"
	"github.com/nerrad567/ocpp-gateway/internal/station"
	"github.com/nerrad567/ocpp-gateway/internal/transaction"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// StationReader is the read side of the station store.
type StationReader interface {
	GetStation(ctx context.Context, id string) (*station.Station, error)
	ListStations(ctx context.Context) ([]station.Station, error)
	ListConnectors(ctx context.Context, stationID string) ([]station.Connector, error)
}

// SessionReader lists open sessions.
type SessionReader interface {
	ListOpen(ctx context.Context, stationID string) ([]transaction.Session, error)
}

// ReadingReader lists the meter readings of a session.
type ReadingReader interface {
	ListBySession(ctx context.Context, sessionID int) ([]meter.Reading, error)
}

// MessageReader pages through the message log.
type MessageReader interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// HealthChecker is a dependency reported by the health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Gateway  *gateway.Gateway
	Stations StationReader
	Sessions SessionReader
	Readings ReadingReader
	Messages MessageReader
	// Checks are reported by /api/v1/health, keyed by component name.
	Checks  map[string]HealthChecker
	Version string
}

// Server is the HTTP server for charge points and operators.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	gw       *gateway.Gateway
	stations StationReader
	sessions SessionReader
	readings ReadingReader
	messages MessageReader
	checks   map[string]HealthChecker
	version  string
	server   *http.Server
	cancel   context.CancelFunc
}

// New creates a new API server. It is not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if deps.Stations == nil || deps.Sessions == nil || deps.Messages == nil {
		return nil, errors.New("station, session and message stores are required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		logger:   deps.Logger,
		gw:       deps.Gateway,
		stations: deps.Stations,
		sessions: deps.Sessions,
		readings: deps.Readings,
		messages: deps.Messages,
		checks:   deps.Checks,
		version:  deps.Version,
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// Charge point sockets are bound to a context that Close cancels.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return srvCtx },
	}
	// No ReadTimeout or WriteTimeout here: charge point sockets live for
	// days. REST routes are bounded by timeoutMiddleware instead.

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
