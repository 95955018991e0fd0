package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/trezcool/asistencia/storage/database"
)

// OpenDB connects to TEST_DATABASE_URL and migrates it; the test is skipped when it is not set.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		t.Fatalf("OpenDB(): %v", err)
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("OpenDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ResetDB(t, db)
	return db
}

// ResetDB empties every table.
func ResetDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE attendance_record, class_session, schedule_slot, settings"); err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}
