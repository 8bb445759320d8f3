package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

func TestUpRejectsUnknownDriver(t *testing.T) {
	if err := Up("mysql", "ignored", nil); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestUpSQLiteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	if err := Up(DriverSQLite, path, nil); err != nil {
		t.Fatalf("first up: %v", err)
	}
	if err := Up(DriverSQLite, path, nil); err != nil {
		t.Fatalf("second up: %v", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = sqlDB.Close() }()

	for _, table := range []string{"users", "auth_tokens", "tasks"} {
		var name string
		err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s: %v", table, err)
		}
	}

	// second migration added the optional columns
	if _, err := sqlDB.Exec(`SELECT priority, category FROM tasks LIMIT 1`); err != nil {
		t.Fatalf("priority/category columns: %v", err)
	}
}

func TestSQLiteTaskColumnsMigrateDownAndUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	if err := Up(DriverSQLite, path, nil); err != nil {
		t.Fatalf("up: %v", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, err := sqlDB.Exec(`INSERT INTO users (username, email, password_hash, created_at) VALUES ('alice', 'a@x.com', 'h', 1)`); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err := sqlDB.Exec(`INSERT INTO tasks (title, created_at, updated_at, user_id, priority, category) VALUES ('Buy milk', 1, 1, 1, 'High', 'Home')`); err != nil {
		t.Fatalf("insert task: %v", err)
	}

	driver, err := sqlitemigrate.WithInstance(sqlDB, &sqlitemigrate.Config{})
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	src, err := iofs.New(migrationsFS, "migrations/sqlite")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, DriverSQLite, driver)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Steps(-1); err != nil {
		t.Fatalf("down one step: %v", err)
	}
	if _, err := sqlDB.Exec(`SELECT priority FROM tasks`); err == nil {
		t.Fatal("priority column should be gone after down")
	}
	var title string
	if err := sqlDB.QueryRow(`SELECT title FROM tasks WHERE user_id = 1`).Scan(&title); err != nil || title != "Buy milk" {
		t.Fatalf("task lost on down: %q %v", title, err)
	}

	if err := m.Steps(1); err != nil {
		t.Fatalf("up again: %v", err)
	}
	if _, err := sqlDB.Exec(`SELECT priority, category FROM tasks`); err != nil {
		t.Fatalf("columns after re-up: %v", err)
	}
}
