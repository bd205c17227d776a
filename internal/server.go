package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/healthdash/internal/blob"
	"github.com/2beens/healthdash/internal/config"
	"github.com/2beens/healthdash/internal/db"
	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/aggregate"
	"github.com/2beens/healthdash/internal/health/dashboard"
	"github.com/2beens/healthdash/internal/health/ingest"
	healthmcp "github.com/2beens/healthdash/internal/health/mcp"
	"github.com/2beens/healthdash/internal/health/store"
	"github.com/2beens/healthdash/internal/middleware"
	"github.com/2beens/healthdash/internal/telemetry/metrics"
	"github.com/2beens/healthdash/internal/telemetry/tracing"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config         *config.Config
	dbPool         *pgxpool.Pool
	redisClient    *redis.Client
	redisAvailable bool

	snapshot         *store.Snapshot
	dashboardHandler *dashboard.Handler
	mcpServer        *sdkmcp.Server
	tokenChecker     *middleware.BcryptTokenChecker

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AdminTokenHash          string
	PostgresPassword        string
	RedisPassword           string
	S3Credentials           blob.S3Credentials
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     params.PostgresPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	promRegistry := metrics.SetupPrometheus(db.PoolCollector(dbPool, cfg.PostgresDBName))
	metricsManager := metrics.NewManager("healthdash", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	redisAvailable := true
	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis, falling back to local rate limiting and unlocked imports: %s", err)
		redisAvailable = false
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "healthdash-service", rdb)
	if err != nil {
		return nil, err
	}

	blobs, err := blob.NewStore(cfg, params.S3Credentials)
	if err != nil {
		return nil, fmt.Errorf("new blob store: %w", err)
	}

	repo := store.NewRepo(dbPool)
	snapshot := store.NewSnapshot(repo)

	importerParams := ingest.NewImporterParams{
		Blobs:          blobs,
		Repo:           repo,
		MetricsManager: metricsManager,
	}
	if redisAvailable {
		importerParams.RedisClient = rdb
	}

	classifier := health.NewClassifier(cfg.Categories, cfg.DefaultCategory)
	service := dashboard.NewService(snapshot, aggregate.New(classifier), metricsManager)

	s := &Server{
		config:         cfg,
		dbPool:         dbPool,
		redisClient:    rdb,
		redisAvailable: redisAvailable,
		versionInfo:    params.VersionInfo,
		snapshot:       snapshot,
		dashboardHandler: dashboard.NewHandler(dashboard.NewHandlerParams{
			Service:     service,
			Cache:       dashboard.NewResponseCache(cfg.CacheSizeMB, cfg.CacheTTLSeconds, metricsManager),
			Importer:    ingest.NewImporter(importerParams),
			Reloader:    snapshot,
			VersionInfo: params.VersionInfo,
		}),
		mcpServer:    healthmcp.NewServer(service),
		tokenChecker: middleware.NewBcryptTokenChecker(params.AdminTokenHash),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	// the service starts without records when postgres is down, and answers 503
	// until a reload succeeds
	if count, err := s.dashboardHandler.ReloadSnapshot(ctx); err != nil {
		log.Errorf("initial records load: %s", err)
	} else {
		log.Infof("loaded %d health records", count)
	}

	return s, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("healthdash-router"))

	s.dashboardHandler.SetupRoutes(r)
	r.PathPrefix("/mcp").Handler(healthmcp.NewHTTPHandler(s.mcpServer)).Name("mcp")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	var rateLimiter middleware.RequestRateLimiter = middleware.NewLocalRateLimiter()
	if s.redisAvailable {
		rateLimiter = redis_rate.NewLimiter(s.redisClient)
	}

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.tokenChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.RateLimit(rateLimiter, s.metricsManager, "healthdash", s.config.RateLimitAllowedPerMin))
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)

	s.setImportUnixSocket(ctx)

	if s.config.ReloadIntervalMin > 0 {
		go s.periodicReload(ctx, time.Duration(s.config.ReloadIntervalMin)*time.Minute)
	}
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	log.Debugln("removing import unix socket ...")
	if err := os.RemoveAll(s.config.ImportUnixSocketAddrDir); err != nil {
		log.Errorf("failed to cleanup import unix socket dir: %s", err)
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}

// onImportNotification reloads the snapshot after the importer CLI stored a new batch.
func (s *Server) onImportNotification(ctx context.Context, n ingest.ImportNotification) error {
	count, err := s.dashboardHandler.ReloadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("reload after import of %d records: %w", n.RecordsCount, err)
	}
	log.Infof("import of %d records done in %s, snapshot reloaded with %d records", n.RecordsCount, n.Duration, count)
	return nil
}

func (s *Server) setImportUnixSocket(ctx context.Context) {
	if err := os.MkdirAll(s.config.ImportUnixSocketAddrDir, os.ModePerm); err != nil {
		log.Errorf("failed to create import unix socket dir: %s", err)
		return
	}

	if addr, err := ingest.ImportUnixSocketListenerSetup(
		ctx,
		s.config.ImportUnixSocketAddrDir,
		s.config.ImportUnixSocketFileName,
		s.metricsManager,
		s.onImportNotification,
	); err != nil {
		log.Errorf("failed to create import unix socket: %s", err)
	} else {
		log.Debugf("import unix socket: %s", addr)
	}
}

func (s *Server) periodicReload(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.dashboardHandler.ReloadSnapshot(ctx)
			if err != nil {
				log.Errorf("periodic records reload: %s", err)
				continue
			}
			log.Debugf("periodic records reload: %d records, version %d", count, s.snapshot.Version())
		}
	}
}
