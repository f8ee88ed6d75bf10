// ocppgw is the OCPP 1.6-J session gateway.
//
// It terminates charge point WebSocket connections, persists boot, status,
// session and meter data to SQLite, reconciles connection state with a
// watchdog, and lets operators drive charge points over REST or MQTT.
//
// Usage:
//
//	ocppgw                                 run the gateway
//	ocppgw token -sub alice -role operator mint an operator API token
//
// The configuration file is read from $OCPPGW_CONFIG, or configs/config.yaml.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	_ "github.com/nerrad567/ocpp-gateway/migrations"

	"github.com/nerrad567/ocpp-gateway/internal/api"
	"github.com/nerrad567/ocpp-gateway/internal/audit"
	"github.com/nerrad567/ocpp-gateway/internal/auth"
	"github.com/nerrad567/ocpp-gateway/internal/authorization"
	"github.com/nerrad567/ocpp-gateway/internal/gateway"
	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/config"
	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/mqtt"
	"github.com/nerrad567/ocpp-gateway/internal/meter"
	"github.com/nerrad567/ocpp-gateway/internal/station"
	"github.com/nerrad567/ocpp-gateway/internal/transaction"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// shutdownTimeout bounds the wait for live connections to unregister.
	shutdownTimeout = 10 * time.Second
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability. It
// returns nil on a clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting ocppgw",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories and domain services
	stations := station.NewSQLiteRepository(db.DB)
	tokens := authorization.NewSQLiteRepository(db.DB)
	sessions := transaction.NewSQLiteRepository(db.DB)
	readings := meter.NewSQLiteRepository(db.DB)
	messages := audit.NewSQLiteRepository(db.DB)

	gate := authorization.NewGate(tokens)
	gate.SetLogger(log.Component("authorization"))

	ingestor := meter.NewIngestor(readings, sessions)
	ingestor.SetLogger(log.Component("meter"))

	manager := transaction.NewManager(sessions, gate)
	manager.SetLogger(log.Component("transaction"))
	manager.SetDataRecorder(ingestor)

	checks := map[string]api.HealthChecker{"database": db}
	var sessionEvents sessionPublishers
	var events gateway.Events = gateway.NoopEvents{}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttLog := log.Component("mqtt")
		mqttClient.SetLogger(mqttLog)
		mqttClient.SetOnConnect(func() {
			mqttLog.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			mqttLog.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		publisher := mqtt.NewEventPublisher(mqttClient, cfg.MQTT.TopicPrefix, byte(cfg.MQTT.QoS)) // #nosec G115 -- validated 0..2
		publisher.SetLogger(mqttLog)
		events = publisher
		sessionEvents = append(sessionEvents, publisher)
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		ingestor.SetSink(influxClient)
		sessionEvents = append(sessionEvents, influxClient)
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	if len(sessionEvents) > 0 {
		manager.SetEventPublisher(sessionEvents)
	}

	gw := gateway.New(gateway.Config{
		Conn: gateway.ConnConfig{
			MaxMessageSize: int64(cfg.WebSocket.MaxMessageSize),
			PingInterval:   time.Duration(cfg.WebSocket.PingInterval) * time.Second,
			PongTimeout:    time.Duration(cfg.WebSocket.PongTimeout) * time.Second,
			SendBuffer:     cfg.WebSocket.SendBuffer,
			CallTimeout:    cfg.GetCallTimeout(),
			RateLimit:      rate.Limit(cfg.OCPP.RateLimit.PerSecond),
			RateBurst:      cfg.OCPP.RateLimit.Burst,
		},
		HeartbeatInterval: cfg.OCPP.HeartbeatInterval,
		WatchdogInterval:  cfg.GetWatchdogInterval(),
	}, gateway.Deps{
		Stations:   stations,
		Authorizer: gate,
		Sessions:   manager,
		Meter:      ingestor,
		MessageLog: messages,
		Events:     events,
		Logger:     log.Component("gateway"),
	})

	if mqttClient != nil {
		bridge := mqtt.NewCommandBridge(mqttClient, mqttClient, cfg.MQTT.TopicPrefix, byte(cfg.MQTT.QoS), // #nosec G115 -- validated 0..2
			func(ctx context.Context, stationID, command string, args json.RawMessage) any {
				return gw.Commander().Send(ctx, stationID, command, args)
			})
		bridge.SetLogger(log.Component("mqtt"))
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("starting MQTT command intake: %w", err)
		}
		log.Info("MQTT command intake started", "topic", mqttClient.Topics().AllCommands())
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log.Component("api"),
		Gateway:  gw,
		Stations: stations,
		Sessions: sessions,
		Readings: readings,
		Messages: messages,
		Checks:   checks,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := server.Start(gctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	g.Go(func() error {
		return gw.Watchdog().Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, cleaning up")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := gw.Shutdown(shutdownCtx); err != nil {
			log.Warn("live connections did not close in time", "error", err)
		}
		return server.Close()
	})

	log.Info("initialisation complete",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"ocpp_path", cfg.WebSocket.Path,
	)

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("ocppgw stopped")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("OCPPGW_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// sessionPublishers fans session events out to every sink.
type sessionPublishers []transaction.EventPublisher

func (p sessionPublishers) SessionStarted(ctx context.Context, s *transaction.Session) {
	for _, pub := range p {
		pub.SessionStarted(ctx, s)
	}
}

func (p sessionPublishers) SessionStopped(ctx context.Context, s *transaction.Session) {
	for _, pub := range p {
		pub.SessionStopped(ctx, s)
	}
}

// runToken mints an operator API token signed with the configured secret.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("sub", "", "token subject (operator name)")
	role := fs.String("role", string(auth.RoleViewer), "role: viewer or operator")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-sub is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.GenerateToken(*subject, auth.Role(*role), cfg.Security.JWT.Secret, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
