// Command seed loads a demo scenario into an empty portal database.
//
//	./seed -scenario=multi-branch -mobile=01500000000 -password=owner123
//
// Database settings come from the same .env / environment as the server.
//
// Loading is not atomic: if it fails part way, delete the SQLite file (or
// drop the PostgreSQL tables) before running seed again. A rerun against a
// partially loaded database fails with "super admin already exists".
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sciencemaster/portal/auth"
	"github.com/sciencemaster/portal/config"
	"github.com/sciencemaster/portal/portal"
	"github.com/sciencemaster/portal/scenarios"
	"github.com/sciencemaster/portal/store/sqlstore"
)

func main() {
	cfg := config.Load()

	driver := flag.String("driver", cfg.DBDriver, "database driver (sqlite3 or pgx)")
	dsn := flag.String("db", cfg.DatabaseURL, "SQLite path or PostgreSQL URL")
	id := flag.String("scenario", "single-branch", "scenario to load")
	name := flag.String("name", "Super Admin", "super admin full name")
	mobile := flag.String("mobile", "01500000000", "super admin mobile number")
	password := flag.String("password", "", "super admin password (required)")
	list := flag.Bool("list", false, "list scenarios and exit")
	flag.Parse()

	if *list {
		for _, s := range scenarios.All {
			fmt.Printf("%-15s %s\n", s.ID, s.Description)
		}
		return
	}
	if *password == "" {
		fmt.Fprintln(os.Stderr, "seed: -password is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := sqlstore.Open(ctx, *driver, *dsn)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer store.Close()

	svc := portal.NewService(store, auth.NewBcryptHasher(cfg.BcryptCost))
	result, err := scenarios.Load(ctx, svc, *id, scenarios.Credentials{
		FullName: *name,
		Mobile:   *mobile,
		Password: *password,
	})
	if errors.Is(err, scenarios.ErrPartiallyLoaded) {
		log.Fatalf("❌ %v\n   database %s must be recreated before retrying", err, config.RedactDSN(*dsn))
	}
	if err != nil {
		log.Fatalf("❌ Failed to load scenario: %v", err)
	}

	log.Printf("✅ Loaded %q: %d branches, %d admins, %d batches, %d students",
		*id, len(result.Branches), len(result.Admins), len(result.Batches), len(result.Students))
	for _, s := range result.Students {
		cfg.Debugf("student %d %-20s final due %s", s.Student.ID, s.Student.Name, s.Due.FinalDue)
	}
}
