package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var (
		migrationsPath = flag.String("path", "./migrations", "directory containing migration files")
		databasePath   = flag.String("database", "./data/alerting.db", "SQLite database file")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("Usage: migrate [-path dir] [-database file] <up|down|version>")
	}
	command := flag.Arg(0)

	m, err := migrate.New(
		"file://"+*migrationsPath,
		fmt.Sprintf("sqlite3://%s", *databasePath),
	)
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Migrations applied successfully.")
	case "down":
		if err := m.Steps(-1); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Rolled back one migration.")
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Failed to read migration version: %v", err)
		}
		log.Printf("Schema version %d (dirty=%v)", v, dirty)
	default:
		log.Fatalf("Unknown command: %s. Use up, down or version.", command)
	}
}
