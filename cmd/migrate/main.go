// cmd/migrate/main.go
package main

import (
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"finance-tracker/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	wd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to get the working directory", "error", err)
		os.Exit(1)
	}
	dir := flag.String("dir", filepath.Join(wd, "migrations"), "migrations directory")
	command := flag.String("command", "up", "goose command: up, down, status")
	flag.Parse()

	db, err := sql.Open("pgx", cfg.DBConn)
	if err != nil {
		slog.Error("failed to open the database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		slog.Error("set goose dialect", "error", err)
		os.Exit(1)
	}

	slog.Info("running migrations", "dir", *dir, "command", *command)
	if err := goose.Run(*command, db, *dir); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ migrations applied")
}
