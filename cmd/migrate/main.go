package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"grocerly/internal/config"
	"grocerly/pkg/database"
)

const usage = `
Grocerly - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up       Apply migrations for one service schema
  all      Apply migrations for every service schema
  status   Show database connection status

Flags:
  -migrations string  Path to the migrations root (default "migrations")
  -service string     Service schema to migrate: catalog, shoppinglist, gateway

Examples:
  go run cmd/migrate/main.go up -service catalog
  go run cmd/migrate/main.go all
`

var serviceDirs = []string{"catalog", "shoppinglist", "gateway"}

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to the migrations root")
	service := flag.String("service", "", "Service schema to migrate")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	switch flag.Arg(0) {
	case "up":
		if *service == "" {
			log.Fatal("up requires -service")
		}
		apply(db, filepath.Join(*migrationsDir, *service))
	case "all":
		for _, dir := range serviceDirs {
			apply(db, filepath.Join(*migrationsDir, dir))
		}
	case "status":
		if err := db.Ping(); err != nil {
			log.Fatalf("database unreachable: %v", err)
		}
		fmt.Println("database connection OK")
	default:
		fmt.Printf("Unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}

func apply(db *sql.DB, dir string) {
	if err := database.ApplyRawMigrations(db, dir); err != nil {
		log.Fatalf("failed to apply migrations in %s: %v", dir, err)
	}
	fmt.Printf("applied migrations in %s\n", dir)
}
