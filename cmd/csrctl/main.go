package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/csr-service-match/internal/config"
	"github.com/iliyamo/csr-service-match/internal/database"
	"github.com/iliyamo/csr-service-match/internal/queue"
	"github.com/iliyamo/csr-service-match/internal/repository"
	"github.com/iliyamo/csr-service-match/internal/seed"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var (
	rootCmd = &cobra.Command{
		Use:          "csrctl",
		Short:        "Maintenance commands for the CSR matching service",
		SilenceUsage: true,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	upCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	}
	downCmd = &cobra.Command{
		Use:   "down",
		Short: "Revert all applied migrations",
		RunE:  runMigrateDown,
	}
	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with demo data",
		RunE:  runSeed,
	}
	workerCmd = &cobra.Command{
		Use:   "match-worker",
		Short: "Consume request.closed events and record completed matches",
		RunE:  runWorker,
	}

	// Flags
	seedReset   bool
	seedOptions = seed.DefaultOptions()
)

func init() {
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "Revert and re-apply all migrations before seeding (drops all data)")
	seedCmd.Flags().IntVar(&seedOptions.CSRs, "csrs", seedOptions.CSRs, "Number of bulk CSR accounts")
	seedCmd.Flags().IntVar(&seedOptions.PINs, "pins", seedOptions.PINs, "Number of bulk PIN accounts")
	seedCmd.Flags().IntVar(&seedOptions.RequestsPerCategory, "per-category", seedOptions.RequestsPerCategory, "Requests generated per category")
	migrateCmd.AddCommand(upCmd, downCmd)
	rootCmd.AddCommand(migrateCmd, seedCmd, workerCmd)
}

func openDB() (config.Config, *logrus.Logger, *sql.DB, error) {
	cfg := config.LoadDB()
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	db, err := database.Open(cfg)
	if err != nil {
		return cfg, logger, nil, err
	}
	return cfg, logger, db, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	_, logger, db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	mg, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	if err := mg.Up(); err != nil {
		return err
	}
	logger.WithField("module", "migrate").Info("schema is up to date")
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	_, logger, db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	mg, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	if err := mg.Down(); err != nil {
		return err
	}
	logger.WithField("module", "migrate").Info("all migrations reverted")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, logger, db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	mg, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	if seedReset {
		if err := mg.Down(); err != nil {
			return err
		}
	}
	if err := mg.Up(); err != nil {
		return err
	}

	seedOptions.BcryptCost = cfg.BcryptCost
	sum, err := seed.New(db, logger).Run(cmd.Context(), seedOptions)
	if errors.Is(err, seed.ErrAlreadySeeded) {
		return errors.New("database already holds the demo accounts; rerun with --reset to start over")
	}
	if err != nil {
		return err
	}
	cmd.Printf("seeded %d users, %d categories, %d requests, %d shortlists, %d matches\n",
		sum.Users, sum.Categories, sum.Requests, sum.Shortlists, sum.Matches)
	cmd.Printf("log in as admin@test.com, csr@test.com, pin@test.com or pm@test.com with password %q\n", seed.Password)
	return nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, logger, db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := queue.NewMatchWorker(cfg.RabbitURL, repository.NewMatchRepo(db), logger)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.WithField("module", "match-worker").Info("stopped")
	return nil
}
