package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/petshopone/fiscal-service/internal/config"
	"github.com/petshopone/fiscal-service/internal/logger"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	dir := flag.String("dir", "migrations", "Directory containing migration SQL files")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		logger.Fatalw("Failed to list migration files", "dir", *dir, "error", err)
	}
	if len(files) == 0 {
		logger.Fatalw("No migration files found", "dir", *dir)
	}
	sort.Strings(files)

	if *dryRun {
		logger.Info("Dry run mode - printing migration SQL without executing")
		for _, file := range files {
			sql, err := os.ReadFile(file)
			if err != nil {
				logger.Fatalw("Failed to read migration file", "file", file, "error", err)
			}
			fmt.Printf("-- %s\n%s\n", file, sql)
		}
		return
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := sqlx.Connect("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			logger.Fatalw("Failed to read migration file", "file", file, "error", err)
		}
		if _, err := db.Exec(string(sql)); err != nil {
			logger.Fatalw("Migration failed", "file", file, "error", err)
		}
		logger.Infow("Applied migration", "file", file)
	}

	logger.Info("Migration completed successfully")
}
