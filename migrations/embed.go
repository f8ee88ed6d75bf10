// Package migrations embeds the gateway's SQL schema into the binary.
//
// Importing this package (usually with a blank import) registers the files
// with the database package so DB.Migrate can apply them.
package migrations

import (
	"embed"

	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
