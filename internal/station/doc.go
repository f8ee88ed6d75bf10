// Package station persists charge points, their connectors and the boot log.
//
// A Station row exists for every charge point that has ever connected. The
// online flag is owned by the gateway's connection registry and the
// reconciliation watchdog; the rest of the row comes from BootNotification.
//
// # Invariant
//
// A connector's status is Unknown whenever its station is offline.
// SetOffline, OfflineMissing and ResetMismatchedConnectors all force it, and
// UpsertConnector records Unknown for a station that is not online.
//
// # Usage
//
//	repo := station.NewSQLiteRepository(db.DB)
//
//	if err := repo.SetOnline(ctx, "CP1", time.Now()); err != nil {
//	    return err
//	}
//	err := repo.UpsertConnector(ctx, &station.Connector{
//	    StationID:   "CP1",
//	    ConnectorID: 1,
//	    Status:      ocpp.StatusAvailable,
//	})
package station
