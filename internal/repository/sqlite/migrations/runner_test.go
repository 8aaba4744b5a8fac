package migrations_test

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	"github.com/msomdec/feedline/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	return db
}

func TestRunMigrations(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first migration run: %v", err)
	}

	// Verify the records and follows tables exist by inserting rows.
	if _, err := db.ExecContext(ctx,
		"INSERT INTO records (identity, display_name, credential) VALUES (?, ?, ?)",
		"amy@x.com", "Amy", "pw",
	); err != nil {
		t.Fatalf("insert into records: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO follows (identity, seq, followee) VALUES (?, ?, ?)",
		"amy@x.com", 0, "ghost@x.com",
	); err != nil {
		t.Fatalf("insert dangling follow: %v", err)
	}

	applied, err := migrations.Applied(ctx, db)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	want := []string{"001_create_records.sql", "002_create_follows.sql"}
	if !reflect.DeepEqual(applied, want) {
		t.Fatalf("expected %v, got %v", want, applied)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	// Run migrations twice; second run should be a no-op.
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 migration records, got %d", count)
	}
}

func TestMessagesRequireRecord(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("Run: %v", err)
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO messages (identity, seq, ts, text) VALUES (?, ?, ?, ?)",
		"nobody@x.com", 0, 1.5, "orphan",
	)
	if err == nil {
		t.Fatal("expected foreign key violation for message without record")
	}
}
