package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"price-catalog/internal/config"
	"price-catalog/internal/database"
	"price-catalog/internal/logger"

	"go.uber.org/zap"
)

var migrationsDir = flag.String("migrations", "", "Directory containing migration SQL files (defaults to MIGRATIONS_DIR)")

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-migrations dir] up|down|status\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if *migrationsDir != "" {
		cfg.Database.MigrationsDir = *migrationsDir
	}

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if err := run(cfg, flag.Arg(0), log); err != nil {
		log.Fatal("Migration failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}

func run(cfg *config.Config, command string, log *zap.Logger) error {
	dbService, err := database.New(context.Background(), cfg.Database)
	if err != nil {
		return err
	}
	defer dbService.Close()

	db := dbService.DB()
	dir := cfg.Database.MigrationsDir

	switch command {
	case "up":
		return database.RunMigrations(db, dir, log)
	case "down":
		return database.RollbackMigration(db, dir, log)
	case "status":
		return database.GetMigrationStatus(db, dir)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
