// main.go — CineVerse API entrypoint.
//
// One process serves the whole API: movies, recommendations, billing,
// engagement and identity, plus /metrics and health endpoints. A background
// worker keeps the local catalog mirrored from TMDB.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cineverse/cineverse/internal/email"
	"github.com/cineverse/cineverse/internal/handlers"
	"github.com/cineverse/cineverse/internal/kvstore"
	"github.com/cineverse/cineverse/internal/logger"
	"github.com/cineverse/cineverse/internal/metrics"
	cvmongo "github.com/cineverse/cineverse/internal/mongo"
	"github.com/cineverse/cineverse/internal/ratelimit"
	"github.com/cineverse/cineverse/pkg/audit"
	"github.com/cineverse/cineverse/pkg/telemetry"
	"github.com/cineverse/cineverse/services/activity"
	identity "github.com/cineverse/cineverse/services/auth"
	"github.com/cineverse/cineverse/services/billing"
	"github.com/cineverse/cineverse/services/catalog"
	"github.com/cineverse/cineverse/services/movies"
	"github.com/cineverse/cineverse/services/reco"
	"github.com/cineverse/cineverse/services/social"
	catalogsync "github.com/cineverse/cineverse/services/sync"
	"github.com/cineverse/cineverse/services/tmdb"
)

const version = "1.0.0"

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// mongoPinger adapts the Mongo client to the readiness Pinger interface.
type mongoPinger struct{ db *cvmongo.DB }

func (p mongoPinger) PingContext(ctx context.Context) error {
	return p.db.Client.Ping(ctx, nil)
}

// redisPinger adapts a go-redis client to the readiness Pinger interface.
type redisPinger struct{ c *goredis.Client }

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.c.Ping(ctx).Err()
}

func main() {
	log := logger.New(getEnv("LOG_FORMAT", "json"), getEnv("LOG_LEVEL", "info"))

	if err := telemetry.InitSentry(os.Getenv("SENTRY_DSN"), "api", version); err != nil {
		log.Warn("sentry init failed", "error", err)
	}
	defer telemetry.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MongoDB is the primary store; the process cannot run without it.
	db, err := cvmongo.Connect(ctx, os.Getenv("MONGODB_URI"), os.Getenv("MONGODB_DATABASE"))
	if err != nil {
		log.Error("mongo connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	// Redis backs OTPs and rate limits when configured; otherwise the
	// in-process store keeps a single-node deployment working.
	var kv kvstore.Store
	var redisClient *goredis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := goredis.ParseURL(redisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = goredis.NewClient(opts)
		kv = kvstore.NewRedisStore(redisClient)
		log.Info("using redis kvstore")
	} else {
		kv = kvstore.NewMemoryStore()
		log.Warn("REDIS_URL not set, using in-memory kvstore")
	}

	// The audit trail lives in Postgres and is optional.
	var auditDB *sql.DB
	if dsn := os.Getenv("AUDIT_DATABASE_URL"); dsn != "" {
		auditDB, err = sql.Open("postgres", dsn)
		if err != nil {
			log.Error("audit db open failed", "error", err)
			os.Exit(1)
		}
		defer auditDB.Close()
		if err := audit.EnsureSchema(ctx, auditDB); err != nil {
			log.Error("audit schema failed", "error", err)
			os.Exit(1)
		}
		log.Info("audit trail enabled")
	}

	tmdbClient, err := tmdb.NewClient(os.Getenv("TMDB_API_KEY"), tmdb.DefaultRetryPolicy())
	if err != nil {
		log.Error("tmdb client init failed", "error", err)
		os.Exit(1)
	}

	// Stores.
	catalogStore := catalog.NewStore(db)
	activityStore := activity.NewStore(db)
	searchHistory := activity.NewSearchHistory(db)
	watchlist := movies.NewMongoWatchlist(db)
	history := movies.NewMongoHistory(db)
	billingStore := billing.NewStore(db)
	socialStore := social.NewStore(db)
	userStore := identity.NewUserStore(db)

	engine := reco.NewEngine(tmdbClient, activityStore, catalogStore)

	emailConfigured := os.Getenv("ELASTIC_EMAIL_API_KEY") != ""
	var sendOTP func(string, string, string) error
	var sendReceipt func(string, string, int64, string, string) error
	if emailConfigured {
		sendOTP = email.SendOTPEmail
		sendReceipt = email.SendReceiptEmail
	} else {
		log.Warn("ELASTIC_EMAIL_API_KEY not set, transactional email disabled")
	}

	mux := http.NewServeMux()

	movies.NewServer(tmdbClient, engine, activityStore, searchHistory,
		catalogStore, watchlist, history, log).RegisterRoutes(mux)

	social.NewServer(socialStore, activityStore, log).RegisterRoutes(mux)

	identity.NewServer(userStore, identity.NewOTPManager(kv), ratelimit.New(kv),
		sendOTP, auditDB, log).RegisterRoutes(mux)

	// Billing needs gateway credentials; without them the payment routes stay
	// unmounted and the rest of the API serves normally.
	paymentsEnabled := false
	if gateway, err := billing.NewRazorpayGateway(); err != nil {
		log.Warn("billing disabled", "error", err)
	} else {
		billing.NewServer(billingStore, gateway, gateway.Secret(), activityStore,
			auditDB, sendReceipt, log).RegisterRoutes(mux)
		paymentsEnabled = true
	}

	// Operational endpoints.
	var cachePinger handlers.Pinger
	if redisClient != nil {
		cachePinger = redisPinger{c: redisClient}
	}
	mux.HandleFunc("GET /healthz", handlers.Liveness)
	mux.Handle("GET /ready", handlers.Readiness(mongoPinger{db: db}, cachePinger))
	mux.Handle("GET /system/info", handlers.HandleSystemInfo(version, map[string]bool{
		"payments": paymentsEnabled,
		"email":    emailConfigured,
		"audit":    auditDB != nil,
	}))
	mux.Handle("GET /metrics", metrics.Handler())

	// Catalog sync worker.
	syncLog := logrus.New()
	syncLog.SetFormatter(&logrus.JSONFormatter{})
	worker := catalogsync.NewWorker(tmdbClient, catalogStore, catalogsync.DefaultInterval, syncLog)
	go worker.Run(ctx)

	go billing.RunExpirySweep(ctx, billingStore, billing.SweepInterval, log)

	srv := &http.Server{
		Addr:              ":" + getEnv("PORT", "8080"),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("cineverse api listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
