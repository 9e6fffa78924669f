package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/asphalt-aid/backend/internal/config"
	"github.com/asphalt-aid/backend/internal/database"
	"github.com/golang-migrate/migrate/v4"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	log.Printf("connecting to %s@%s:%s/%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)

	m, err := database.NewMigrator(cfg.MigrationURL())
	if err != nil {
		log.Fatalf("migrator: %v", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("closing migrator: %v, %v", srcErr, dbErr)
		}
	}()

	switch os.Args[1] {
	case "up":
		err := m.Up()
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Println("no change: schema is up to date")
		case err != nil:
			log.Fatalf("apply migrations: %v", err)
		default:
			log.Println("migrations applied")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatalf("roll back: %v", err)
		}
		log.Println("rolled back one migration")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatal("goto needs a version number")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("invalid version: %v", err)
		}
		err = m.Migrate(uint(version))
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Printf("no change: already at version %d", version)
		case err != nil:
			log.Fatalf("migrate to %d: %v", version, err)
		default:
			log.Printf("migrated to version %d", version)
		}

	case "force":
		// Clears the dirty flag after a failed migration was repaired by hand.
		if len(os.Args) < 3 {
			log.Fatal("force needs a version number")
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatalf("invalid version: %v", err)
		}
		if err := m.Force(version); err != nil {
			log.Fatalf("force version %d: %v", version, err)
		}
		log.Printf("forced version %d", version)

	case "status", "version":
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			log.Println("no migrations applied yet")
		case err != nil:
			log.Fatalf("read version: %v", err)
		default:
			suffix := ""
			if dirty {
				suffix = " (dirty)"
			}
			log.Printf("current version: %d%s", version, suffix)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: migrate <command>")
	fmt.Println("commands:")
	fmt.Println("  up      apply all pending migrations")
	fmt.Println("  down    roll back the latest migration")
	fmt.Println("  goto N  migrate to version N")
	fmt.Println("  force N mark version N as applied and clear the dirty flag")
	fmt.Println("  status  print the current version")
}
