package store

import (
	"os"
	"testing"

	"github.com/dukerupert/choretracker/internal/database"
	"github.com/dukerupert/choretracker/internal/tracker"
	"github.com/dukerupert/choretracker/internal/tracker/trackertest"
)

func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	db, err := database.Open(database.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, database.SQLite, opts...)
}

func TestSQLiteContract(t *testing.T) {
	trackertest.Run(t, func(t *testing.T) tracker.Store {
		return setupTestStore(t)
	})
}

// TestPostgresContract runs against the database named by
// CHORES_TEST_DATABASE_URL. Each subtest truncates every table first.
func TestPostgresContract(t *testing.T) {
	dsn := os.Getenv("CHORES_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CHORES_TEST_DATABASE_URL not set")
	}
	db, err := database.Open(database.Postgres, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	trackertest.Run(t, func(t *testing.T) tracker.Store {
		_, err := db.Exec(`TRUNCATE sent_reminders, push_subscriptions, assignments, chores, group_members, chore_groups, users, backups RESTART IDENTITY CASCADE`)
		if err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return New(db, database.Postgres)
	})
}
