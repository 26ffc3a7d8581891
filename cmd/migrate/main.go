package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/fshasan/feedback-pulse/migrations"
)

func main() {
	backend := flag.String("backend", envOrDefault("STORAGE_BACKEND", "sqlite"), "database backend: sqlite or postgres")
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/feedback.db"), "path to sqlite database")
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres connection string")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-backend sqlite|postgres] [-db path] [-dsn url] <command>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  up          Migrate to the latest version")
		fmt.Fprintln(os.Stderr, "  up-one      Migrate one version up")
		fmt.Fprintln(os.Stderr, "  down        Roll back one version")
		fmt.Fprintln(os.Stderr, "  status      Show migration status")
		fmt.Fprintln(os.Stderr, "  version     Show current version")
		fmt.Fprintln(os.Stderr, "  reset       Roll back all migrations")
		os.Exit(1)
	}

	var (
		db  *sql.DB
		err error
	)
	switch *backend {
	case migrations.DialectSQLite:
		db, err = sql.Open("sqlite", *dbPath)
	case migrations.DialectPostgres:
		if *dsn == "" {
			log.Fatal("postgres backend requires -dsn or DATABASE_URL")
		}
		db, err = sql.Open("postgres", *dsn)
	default:
		log.Fatalf("unsupported backend: %s", *backend)
	}
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	dir, err := migrations.Setup(*backend)
	if err != nil {
		log.Fatalf("setup migrations: %v", err)
	}

	cmd := args[0]
	switch cmd {
	case "up":
		err = goose.Up(db, dir)
	case "up-one":
		err = goose.UpByOne(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	case "version":
		err = goose.Version(db, dir)
	case "reset":
		err = goose.Reset(db, dir)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
