package testutil

import (
	"database/sql"
	"testing"

	"mpstats/pkg/migrations"
)

// SetupDB opens a fresh in-memory database with schema applied, it is closed
// when the test ends.
func SetupDB(t testing.TB, schema string) *sql.DB {
	t.Helper()

	database, err := migrations.OpenAndApplySchema(schema, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
