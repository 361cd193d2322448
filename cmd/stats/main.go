// Package main prints a one-shot summary of the deployment history:
// totals by status, distinct creators, and optionally the most recent
// launches for a single creator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	pgstore "feedo/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	username := flag.String("username", "", "Show recent launches for this creator")
	limit := flag.Int("limit", 10, "Max launches to show with --username")
	flag.Parse()

	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := pgstore.NewDeploymentStore(pool)

	stats, err := store.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Deployment history")
	fmt.Println("==================")
	fmt.Printf("Total:      %d\n", stats.TotalDeployments)
	fmt.Printf("Successful: %d\n", stats.SuccessfulDeployments)
	fmt.Printf("Failed:     %d\n", stats.FailedDeployments)
	fmt.Printf("Creators:   %d\n", stats.TotalCreators)

	if *username == "" {
		return
	}

	records, err := store.GetByUsername(ctx, *username, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading launches for @%s: %v\n", *username, err)
		os.Exit(1)
	}

	fmt.Printf("\nRecent launches by @%s\n", *username)
	if len(records) == 0 {
		fmt.Println("(none)")
		return
	}
	for _, r := range records {
		deployed := time.UnixMilli(r.DeployedAt).UTC().Format(time.RFC3339)
		fmt.Printf("%s  %-10s  %s ($%s)  mint=%s", deployed, r.Status, r.TokenName, r.Ticker, r.MintAddress)
		if r.ErrorMessage != "" {
			fmt.Printf("  error=%q", r.ErrorMessage)
		}
		fmt.Println()
	}
}
