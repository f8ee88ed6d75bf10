package gateway

import (
	"context"
	"fmt"
	"time"
)

// SweepStore is the part of the station repository the watchdog repairs.
type SweepStore interface {
	OfflineMissing(ctx context.Context, activeIDs []string) ([]string, error)
	ResetMismatchedConnectors(ctx context.Context) (int, error)
}

// Report summarises one sweep.
type Report struct {
	ForcedOffline   []string
	ConnectorsReset int
}

// Watchdog periodically reconciles the stored online flags with the live
// connections, repairing state left behind by crashes or failed writes.
type Watchdog struct {
	registry *Registry
	store    SweepStore
	interval time.Duration
	events   Events
	logger   Logger
}

// DefaultWatchdogInterval is used when NewWatchdog is given no interval.
const DefaultWatchdogInterval = 60 * time.Second

// NewWatchdog creates a Watchdog sweeping every interval. A non-positive
// interval falls back to DefaultWatchdogInterval.
func NewWatchdog(registry *Registry, store SweepStore, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	return &Watchdog{
		registry: registry,
		store:    store,
		interval: interval,
		events:   NoopEvents{},
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the watchdog.
func (w *Watchdog) SetLogger(logger Logger) {
	w.logger = logger
}

// SetEvents sets the sink for forced-offline events.
func (w *Watchdog) SetEvents(events Events) {
	if events == nil {
		events = NoopEvents{}
	}
	w.events = events
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Sweep failures are logged and retried on the next tick.
func (w *Watchdog) Run(ctx context.Context) error {
	w.logger.Info("watchdog started", "interval", w.interval.String())
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog stopped")
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Watchdog) runOnce(ctx context.Context) {
	report, err := w.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("watchdog sweep failed", "error", err)
		}
		return
	}
	if len(report.ForcedOffline) > 0 || report.ConnectorsReset > 0 {
		w.logger.Warn("watchdog repaired state",
			"forced_offline", report.ForcedOffline,
			"connectors_reset", report.ConnectorsReset,
		)
	}
}

// Sweep forces offline every station flagged online without a live
// connection, then resets connectors of offline stations to Unknown.
func (w *Watchdog) Sweep(ctx context.Context) (Report, error) {
	var report Report

	err := w.registry.WithSnapshot(func(ids []string) error {
		forced, err := w.store.OfflineMissing(ctx, ids)
		if err != nil {
			return err
		}
		report.ForcedOffline = forced
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("forcing missing stations offline: %w", err)
	}

	for _, id := range report.ForcedOffline {
		w.events.StationOffline(ctx, id)
	}

	n, err := w.store.ResetMismatchedConnectors(ctx)
	if err != nil {
		return report, fmt.Errorf("resetting connectors: %w", err)
	}
	report.ConnectorsReset = n
	return report, nil
}
