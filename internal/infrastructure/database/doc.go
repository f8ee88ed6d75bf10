// Package database provides the SQLite connection and schema migrations
// behind the gateway's durable store.
//
// # Overview
//
// Stations, connectors, sessions, meter readings, authorization tokens and
// the message log all live in one SQLite file. The domain packages own their
// queries; this package owns the connection, transactions and migrations.
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        "./data/ocppgw.db",
//	    WALMode:     true,
//	    BusyTimeout: 5,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// # Timestamps
//
// Timestamps are stored as TEXT in a fixed-width UTC layout (TimeFormat) so
// that string comparison matches chronological order. Use FormatTime and
// ParseTime rather than formatting by hand.
//
// # Migrations
//
// Migration files live in the top-level migrations package and are embedded
// into the binary. Naming: YYYYMMDD_HHMMSS_description.{up,down}.sql
package database
