// seed rebuilds the template portfolio and clones it into the demo owner.
//
// Usage: go run ./cmd/seed [-config=<path>] [-db=<path>] [-dry-run | -execute]
//
// The tool:
// 1. Deletes the template and demo owners' holdings and snapshots
// 2. Recreates the template holdings with three value snapshots each
// 3. Clones them into the demo owner, remapping snapshots by card and grade
//
// Everything runs in one transaction, so re-running it is always safe.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-portfolio/internal/config"
	"github.com/codyseavey/tcg-portfolio/internal/database"
	"github.com/codyseavey/tcg-portfolio/internal/logging"
	"github.com/codyseavey/tcg-portfolio/internal/models"
	"github.com/codyseavey/tcg-portfolio/internal/seed"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to TOML config file")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Show what would be replaced without modifying the database")
	execute := flag.Bool("execute", false, "Run the seed (required to make changes)")
	flag.Parse()

	if *dryRun == *execute {
		fmt.Println("Usage: seed [-config=<path>] [-db=<path>] -dry-run | -execute")
		fmt.Println("")
		fmt.Println("Rebuilds the template portfolio and clones it into the demo owner.")
		fmt.Println("")
		fmt.Println("Options:")
		fmt.Println("  -config    Path to TOML config file (default $CONFIG_PATH)")
		fmt.Println("  -db        Path to SQLite database (overrides config)")
		fmt.Println("  -dry-run   Show what would be replaced without modifying the database")
		fmt.Println("  -execute   Run the seed")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = *dbPath
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, *dryRun, log); err != nil {
		log.Error().Err(err).Msg("Seed failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, dryRun bool, log zerolog.Logger) error {
	if err := database.Initialize(cfg.Database, log); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()
	db := database.GetDB()

	if dryRun {
		if err := printExisting(db, []string{seed.TemplateOwnerID, cfg.OwnerID}); err != nil {
			return fmt.Errorf("failed to count existing data: %w", err)
		}
		fmt.Println("(DRY RUN - no changes made)")
		return nil
	}

	result, err := seed.NewSeeder(db, cfg.OwnerID, log).Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Println("")
	fmt.Println("=== Seed Summary ===")
	fmt.Printf("Template holdings:  %d\n", result.TemplateHoldings)
	fmt.Printf("Template snapshots: %d\n", result.TemplateSnapshots)
	fmt.Printf("Demo holdings:      %d\n", result.DemoHoldings)
	fmt.Printf("Demo snapshots:     %d\n", result.DemoSnapshots)
	return nil
}

func printExisting(db *gorm.DB, owners []string) error {
	fmt.Println("")
	fmt.Println("=== Data that would be replaced ===")
	for _, owner := range owners {
		var holdings, snapshots int64
		if err := db.Model(&models.Holding{}).Where("owner_id = ?", owner).Count(&holdings).Error; err != nil {
			return err
		}
		if err := db.Model(&models.PriceSnapshot{}).Where("owner_id = ?", owner).Count(&snapshots).Error; err != nil {
			return err
		}
		fmt.Printf("%-15s holdings: %d, snapshots: %d\n", owner, holdings, snapshots)
	}
	return nil
}
