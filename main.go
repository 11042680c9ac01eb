package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"telemetry-console/internal/auth"
	labelapp "telemetry-console/internal/labels/application"
	labelhttp "telemetry-console/internal/labels/interfaces/http"
	"telemetry-console/internal/live"
	"telemetry-console/internal/observability/metrics"
	telemetryapp "telemetry-console/internal/telemetry/application"
	telemetry "telemetry-console/internal/telemetry/domain"
	"telemetry-console/internal/telemetry/infrastructure/memory"
	telemetrypostgres "telemetry-console/internal/telemetry/infrastructure/postgres"
	telemetryhttp "telemetry-console/internal/telemetry/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	var db *sql.DB
	var repo telemetry.SnapshotRepository
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		pgRepo := telemetrypostgres.NewSnapshotRepository(db)
		if err := pgRepo.EnsureSchema(context.Background()); err != nil {
			logger.Fatalf("snapshot schema error: %v", err)
		}
		repo = pgRepo
	} else {
		logger.Printf("DATABASE_URL not set, keeping snapshots in memory")
		repo = memory.NewSnapshotRepository()
	}

	metrics.Init(db, logger)

	labelCfg, err := labelapp.LoadConfig()
	if err != nil {
		logger.Fatalf("labels config error: %v", err)
	}
	catalog := labelapp.NewCatalog(labelapp.WithOverrides(labelCfg.Overrides))

	hub := live.NewHub(cfg.StreamBuffer)
	service, err := telemetryapp.NewService(repo, catalog, telemetryapp.WithPublisher(hub), telemetryapp.WithLogger(logger))
	if err != nil {
		logger.Fatalf("telemetry service error: %v", err)
	}

	ingestHandler, err := telemetryhttp.NewIngestHandler(service, logger, telemetryhttp.WithDefaultTenant(cfg.TenantID))
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	fieldsHandler, err := telemetryhttp.NewFieldsHandler(service)
	if err != nil {
		logger.Fatalf("fields handler error: %v", err)
	}
	devicesHandler, err := telemetryhttp.NewDevicesHandler(service)
	if err != nil {
		logger.Fatalf("devices handler error: %v", err)
	}
	exportHandler, err := telemetryhttp.NewExportHandler(service, logger)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}
	streamHandler, err := telemetryhttp.NewStreamHandler(hub)
	if err != nil {
		logger.Fatalf("stream handler error: %v", err)
	}
	labelHandler, err := labelhttp.NewHandler(catalog)
	if err != nil {
		logger.Fatalf("labels handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewOpenMiddleware(auth.Identity{TenantID: cfg.TenantID, Role: auth.RoleAdmin, Subject: "anonymous"}, policy)
	if cfg.JWTSecret != "" {
		authMiddleware = auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	} else {
		logger.Printf("AUTH_JWT_SECRET not set, serving tenant %s without authentication", cfg.TenantID)
	}

	var ingest http.Handler = ingestHandler
	if cfg.IngestSecret != "" {
		ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)
		ingest = ingestAuth.Wrap(ingestHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("/ingest/snapshots", ingest)
	if snapshotAPIEnabled(cfg) {
		mux.Handle("/api/v1/snapshots", ingestHandler)
	} else {
		logger.Printf("INGEST_HMAC_SECRET set without AUTH_JWT_SECRET, /api/v1/snapshots disabled")
	}
	mux.Handle("/api/v1/devices", devicesHandler)
	mux.Handle("/api/v1/fields", fieldsHandler)
	mux.Handle("/api/v1/fields/export.csv", exportHandler)
	mux.Handle("/api/v1/fields/export.xlsx", exportHandler)
	mux.Handle("/api/v1/fields/export.pdf", exportHandler)
	mux.Handle("/api/v1/labels", labelHandler)
	mux.Handle("/api/v1/stream", streamHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	TenantID          string
	JWTSecret         string
	IngestSecret      string
	IngestSkewSeconds int
	StreamBuffer      int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		TenantID:          getenvDefault("TENANT_ID", "tenant-demo"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
		StreamBuffer:      getenvIntDefault("STREAM_BUFFER", 16),
	}
	return cfg
}

// snapshotAPIEnabled reports whether the unsigned console push route may be
// mounted: it must not sidestep HMAC-signed ingest on an open console.
func snapshotAPIEnabled(cfg config) bool {
	return cfg.JWTSecret != "" || cfg.IngestSecret == ""
}

func getenvDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps server-sent events streaming through the logger.
func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
