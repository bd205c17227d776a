package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/2beens/healthdash/internal"
	"github.com/2beens/healthdash/internal/blob"
	"github.com/2beens/healthdash/internal/config"
	"github.com/2beens/healthdash/internal/logging"
	"github.com/2beens/healthdash/pkg"

	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "healthdash-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	adminTokenHash := os.Getenv("HEALTHDASH_ADMIN_TOKEN_HASH")
	if adminTokenHash == "" {
		log.Errorf("admin token hash not set, import and reload are disabled. use HEALTHDASH_ADMIN_TOKEN_HASH")
	}

	postgresPassword := os.Getenv("HEALTHDASH_POSTGRES_PASS")
	if postgresPassword == "" {
		log.Warnln("postgres password not set. use HEALTHDASH_POSTGRES_PASS")
	}

	redisPassword := os.Getenv("HEALTHDASH_REDIS_PASS")
	if redisPassword == "" {
		log.Errorf("redis password not set. use HEALTHDASH_REDIS_PASS")
	}

	s3Credentials := blob.S3Credentials{
		AccessKeyID:     os.Getenv("HEALTHDASH_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("HEALTHDASH_S3_SECRET_ACCESS_KEY"),
	}
	if cfg.BlobMode == config.BlobModeS3 && (s3Credentials.AccessKeyID == "" || s3Credentials.SecretAccessKey == "") {
		log.Errorf("s3 credentials not set. use HEALTHDASH_S3_ACCESS_KEY_ID and HEALTHDASH_S3_SECRET_ACCESS_KEY")
	}

	if otelServiceName := os.Getenv("OTEL_SERVICE_NAME"); otelServiceName == "" {
		log.Warnln("OTEL_SERVICE_NAME env var not set")
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			VersionInfo:             versionInfo,
			AdminTokenHash:          adminTokenHash,
			PostgresPassword:        postgresPassword,
			RedisPassword:           redisPassword,
			S3Credentials:           s3Credentials,
			HoneycombTracingEnabled: honeycombEnabled,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return pkg.BytesToString(stdout), nil
}
