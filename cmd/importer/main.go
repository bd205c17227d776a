// Package main uploads a health export to the blob store, imports it into
// postgres and notifies the running service to reload its records.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/2beens/healthdash/internal/blob"
	"github.com/2beens/healthdash/internal/config"
	"github.com/2beens/healthdash/internal/db"
	"github.com/2beens/healthdash/internal/health/ingest"
	"github.com/2beens/healthdash/internal/health/store"
	"github.com/2beens/healthdash/internal/logging"

	"github.com/go-redis/redis/v8"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	file := flag.String("file", "", "local export.xml or <Activity>/workouts.csv file to upload before importing")
	key := flag.String("key", "", "blob key of the export (defaults to the file name, keeping the activity dir for CSVs)")
	dryRun := flag.Bool("dry-run", false, "only parse the export and report what would be imported")
	notify := flag.Bool("notify", true, "notify the running service over its unix socket after the import")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})

	objectKey := *key
	if objectKey == "" {
		objectKey = keyFromFile(*file)
	}
	if objectKey == "" {
		log.Fatalln("either -file or -key must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if *dryRun {
		if err := parseOnly(ctx, *file, objectKey); err != nil {
			log.Fatalf("dry run: %s", err)
		}
		return
	}

	blobs, err := blob.NewStore(cfg, blob.S3Credentials{
		AccessKeyID:     os.Getenv("HEALTHDASH_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("HEALTHDASH_S3_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		log.Fatalf("new blob store: %s", err)
	}

	if *file != "" {
		size, err := upload(ctx, blobs, *file, objectKey)
		if err != nil {
			log.Fatalf("upload export: %s", err)
		}
		log.Infof("uploaded %s as [%s] (%d bytes)", *file, objectKey, size)
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("HEALTHDASH_POSTGRES_PASS"),
		MaxConns:   4,
	})
	if err != nil {
		log.Fatalf("db pool: %s", err)
	}
	defer dbPool.Close()

	importerParams := ingest.NewImporterParams{
		Blobs: blobs,
		Repo:  store.NewRepo(dbPool),
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: os.Getenv("HEALTHDASH_REDIS_PASS"),
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warnf("redis not available, importing without the import lock: %s", err)
	} else {
		importerParams.RedisClient = rdb
	}

	res, err := ingest.NewImporter(importerParams).Import(ctx, objectKey)
	if err != nil {
		log.Fatalf("import [%s]: %s", objectKey, err)
	}
	fmt.Printf("batch %s: parsed %d, inserted %d, skipped %d in %s\n",
		res.BatchID, res.Parsed, res.Inserted, res.Skipped, res.Duration)
	for _, rowErr := range res.RowErrors {
		fmt.Printf("  skipped: %s\n", rowErr)
	}

	if !*notify {
		return
	}

	socket := filepath.Join(cfg.ImportUnixSocketAddrDir, cfg.ImportUnixSocketFileName)
	if err := ingest.NotifyImport(ctx, socket, ingest.ImportNotification{
		RecordsCount: res.Inserted,
		Duration:     res.Duration,
	}); err != nil {
		// the records are stored, the service picks them up on its next reload
		log.Errorf("notify service: %s", err)
		return
	}
	log.Infoln("service notified")
}

func upload(ctx context.Context, blobs blob.Store, file, key string) (int64, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()
	return blobs.PutObject(ctx, key, f, contentType(key))
}

func parseOnly(ctx context.Context, file, key string) error {
	if file == "" {
		return fmt.Errorf("dry run needs -file")
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := ingest.Parse(ctx, key, f)
	if err != nil {
		return err
	}
	fmt.Printf("[%s]: %d records, %d skipped\n", key, len(res.Records), res.Skipped)
	if res.RowErrors != nil {
		fmt.Printf("  errors: %s\n", res.RowErrors)
	}
	return nil
}

// keyFromFile keeps the parent dir of CSV files, since it names the activity.
func keyFromFile(file string) string {
	if file == "" {
		return ""
	}
	base := filepath.Base(file)
	if strings.EqualFold(filepath.Ext(base), ".csv") {
		return path.Join(filepath.Base(filepath.Dir(file)), base)
	}
	return base
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".xml":
		return "application/xml"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
