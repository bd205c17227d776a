// Package main runs the healthdash MCP server over stdio, for local MCP clients.
// The same tools are mounted on the service at /mcp over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/2beens/healthdash/internal/config"
	"github.com/2beens/healthdash/internal/db"
	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/aggregate"
	"github.com/2beens/healthdash/internal/health/dashboard"
	healthmcp "github.com/2beens/healthdash/internal/health/mcp"
	"github.com/2beens/healthdash/internal/health/store"

	_ "github.com/joho/godotenv/autoload"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("HEALTHDASH_POSTGRES_PASS"),
	})
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer dbPool.Close()

	snapshot := store.NewSnapshot(store.NewRepo(dbPool))
	if _, err := snapshot.Reload(ctx); err != nil {
		log.Fatalf("load records: %v", err)
	}

	classifier := health.NewClassifier(cfg.Categories, cfg.DefaultCategory)
	service := dashboard.NewService(snapshot, aggregate.New(classifier), nil)
	server := healthmcp.NewServer(service)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}
