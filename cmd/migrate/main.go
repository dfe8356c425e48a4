package main

import (
	"flag"
	"log"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/seedbridge/crm-portal/internal/infrastructure/database"
	"github.com/seedbridge/crm-portal/pkg/config"
)

func main() {
	dir := flag.String("dir", database.MigrationsDir, "directory holding the sql-migrate files")
	down := flag.Bool("down", false, "roll back instead of applying")
	max := flag.Int("max", 0, "maximum number of migrations to run (0 = all; -down defaults to 1)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	direction := migrate.Up
	if *down {
		direction = migrate.Down
		if *max == 0 {
			*max = 1
		}
	}

	log.Printf("🔄 Running migrations from %s/ ...", *dir)
	n, err := database.Migrate(db, *dir, direction, *max)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if *down {
		log.Printf("✅ Rolled back %d migration(s)", n)
		return
	}
	log.Printf("✅ Successfully applied %d migration(s)", n)
}
