package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Migrate up
	err := Up(db)
	if err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	// Verify tables were created
	tables := []string{"runs", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Fresh database should need migration
	err := CheckStatus(db)
	if err == nil {
		t.Error("CheckStatus() expected error for fresh database, got nil")
	}

	if !errors.Is(err, ErrNoSchema) {
		t.Errorf("CheckStatus() error = %v, want ErrNoSchema", err)
	}
}

func TestCheckStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Migrate up
	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	// Status should be OK now
	err := CheckStatus(db)
	if err != nil {
		t.Errorf("CheckStatus() after migration returned error: %v", err)
	}
}

func TestUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Run migration twice
	if err := Up(db); err != nil {
		t.Fatalf("First Up() failed: %v", err)
	}

	if err := Up(db); err != nil {
		t.Errorf("Second Up() failed: %v (should be idempotent)", err)
	}

	// Status should still be OK
	if err := CheckStatus(db); err != nil {
		t.Errorf("CheckStatus() after double migration returned error: %v", err)
	}
}

func TestSchema_RunStatusConstraint(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO runs (id, operation, status, started_at, finished_at)
		VALUES ('run-1', 'backup', 'pending', datetime('now'), datetime('now'))
	`)
	if err == nil {
		t.Error("Expected check constraint violation for unknown status, but insert succeeded")
	}
}

func TestSchema_Runs(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO runs (id, operation, status, started_at, finished_at)
		VALUES ('run-1', 'rotate', 'success', datetime('now'), datetime('now'))
	`)
	if err != nil {
		t.Fatalf("Failed to insert run: %v", err)
	}

	var kind string
	var deleted int
	err = db.QueryRow("SELECT kind, deleted FROM runs WHERE id = 'run-1'").Scan(&kind, &deleted)
	if err != nil {
		t.Fatalf("Failed to retrieve run: %v", err)
	}
	if kind != "" || deleted != 0 {
		t.Errorf("defaults = (%q, %d), want (\"\", 0)", kind, deleted)
	}

	// Duplicate IDs are rejected
	_, err = db.Exec(`
		INSERT INTO runs (id, operation, status, started_at, finished_at)
		VALUES ('run-1', 'rotate', 'success', datetime('now'), datetime('now'))
	`)
	if err == nil {
		t.Error("Expected primary key violation for duplicate id, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	db.SetMaxOpenConns(1)

	return db
}
