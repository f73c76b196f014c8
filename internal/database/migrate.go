package database

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations opens the database at dbPath and applies all up migrations
// found at migrationsPath.
func RunMigrations(dbPath, migrationsPath string) error {
	db, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return RunMigrationsWithDB(db, migrationsPath)
}

// RunMigrationsWithDB applies migrations over an existing *sql.DB, so they
// run under the same pragmas as the rest of the app. The db stays open:
// migrate's Close would close the caller's connection with it.
func RunMigrationsWithDB(db *sql.DB, migrationsPath string) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite3",
		driver,
	)
	if err != nil {
		return err
	}

	err = m.Up()
	if err == migrate.ErrNoChange {
		return nil
	}
	return err
}
