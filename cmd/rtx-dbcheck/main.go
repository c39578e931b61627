// Command rtx-dbcheck is a standalone maintenance utility for inspecting
// and repairing an rtx-index SQLite catalog outside of a full indexing
// run.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/trunk-recorder/rtx-index/internal/catalog"
)

func main() {
	storeFile := os.Getenv("RTX_STORE_FILE")
	if storeFile == "" {
		storeFile = "./rtx.sqlite"
	}

	db, err := catalog.Connect(storeFile, zerolog.Nop())
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	if len(os.Args) > 1 && os.Args[1] == "version" {
		v, err := db.SchemaVersion(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "version:", err)
			os.Exit(1)
		}
		fmt.Printf("schema version: %d (latest: %d)\n", v, catalog.LatestVersion)
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "upgrade" {
		if err := db.UpgradeSchema(ctx, 0); err != nil {
			fmt.Fprintln(os.Stderr, "upgrade:", err)
			os.Exit(1)
		}
		fmt.Println("schema upgraded to latest")
		return
	}

	if len(os.Args) > 2 && os.Args[1] == "conflicts" {
		printConflicts(ctx, db, os.Args[2])
		return
	}

	// Default: per-event table counts.
	events, err := db.Events(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "events:", err)
		os.Exit(1)
	}

	fmt.Println("Event                Recordings")
	fmt.Println("────────────────────────────────")
	for _, e := range events {
		recs, err := db.Transmissions(ctx, e.ID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "transmissions:", err)
			continue
		}
		fmt.Printf("%-20s %d\n", e.ID, len(recs))
	}
}

func printConflicts(ctx context.Context, db *catalog.DB, eventID string) {
	recs, err := db.Transmissions(ctx, eventID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "transmissions:", err)
		os.Exit(1)
	}

	found := false
	for _, r := range recs {
		if r.ConflictCount > 0 {
			found = true
			fmt.Printf("  %s station=%q channel=%q conflicts=%d\n", r.Key(), r.Station, r.Channel, r.ConflictCount)
		}
	}
	if !found {
		fmt.Println("  (none found)")
	}
}
