// Package main is a staff administration utility: it grants or revokes the
// staff flag on a player record directly in PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/driftwood-mud/engine/internal/config"
	"github.com/driftwood-mud/engine/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	name := flag.String("name", "", "target player name (required)")
	staff := flag.Bool("staff", true, "staff flag to assign")
	flag.Parse()

	if *name == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewPlayerRepository(pool.DB())

	rec, err := repo.FindByName(ctx, *name)
	if err != nil {
		log.Fatalf("looking up player %q: %v", *name, err)
	}

	if err := repo.SetStaff(ctx, rec.Name, *staff); err != nil {
		log.Fatalf("setting staff flag: %v", err)
	}

	fmt.Fprintf(os.Stdout, "set staff for %s: %v -> %v [%s]\n",
		rec.Name, rec.IsStaff, *staff, time.Since(start))
}
