package main

import (
	"context"
	"flag"
	"os"

	"github.com/2beens/healthdash/internal/config"
	"github.com/2beens/healthdash/internal/db"
	"github.com/2beens/healthdash/internal/health/store"

	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatalln("usage: migrate [-env dev] [-config ./config.toml] [up|status|down]")
	}

	command := flag.Arg(0)
	switch command {
	case "up", "status", "down":
	default:
		log.Fatalf("unsupported command %q (allowed: up, status, down)", command)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	dbURL := os.Getenv("HEALTHDASH_DATABASE_URL")
	if dbURL == "" {
		dbURL = db.ConnString(db.NewDBPoolParams{
			DBHost:     cfg.PostgresHost,
			DBPort:     cfg.PostgresPort,
			DBName:     cfg.PostgresDBName,
			DBUser:     cfg.PostgresUser,
			DBPassword: os.Getenv("HEALTHDASH_POSTGRES_PASS"),
		})
	}

	log.Infof("migrate: command=%s db=%s:%s/%s", command, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)
	if err := store.Migrate(context.Background(), command, dbURL); err != nil {
		log.Fatal(err)
	}
	log.Infof("migrate: %s completed successfully", command)
}
