package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/ga4-loader/internal/api"
	"github.com/ignite/ga4-loader/internal/archive"
	"github.com/ignite/ga4-loader/internal/config"
	"github.com/ignite/ga4-loader/internal/ga4"
	"github.com/ignite/ga4-loader/internal/pipeline"
	"github.com/ignite/ga4-loader/internal/pkg/distlock"
	"github.com/ignite/ga4-loader/internal/pkg/logger"
	"github.com/ignite/ga4-loader/internal/report"
	"github.com/ignite/ga4-loader/internal/runlog"
	"github.com/ignite/ga4-loader/internal/secrets"
	"github.com/ignite/ga4-loader/internal/warehouse"
)

const lockTTL = 15 * time.Minute

// checkPortAvailable verifies that the target port is not already in use, so
// a stale process fails the boot instead of silently shadowing it.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactSecrets(cfg.Logging.RedactSecrets())

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Secrets Manager, only when enabled; credential resolution falls back to
	// inline/file/env sources without it.
	var secretStore ga4.SecretGetter
	if cfg.Secrets.Enabled {
		store, err := secrets.New(ctx, cfg.Secrets)
		if err != nil {
			log.Fatalf("Failed to initialize secrets store: %v", err)
		}
		secretStore = store
	}

	tokens, err := ga4.Credentials(ctx, cfg.GA4, cfg.Secrets.CredentialsSecretID, secretStore)
	if err != nil {
		log.Fatalf("Failed to resolve analytics credentials: %v", err)
	}
	client := ga4.NewClient(cfg.GA4, tokens)
	source := ga4.NewSource(client)

	dialect, err := warehouse.DialectFor(cfg.Warehouse.Dialect)
	if err != nil {
		log.Fatalf("Failed to resolve warehouse dialect: %v", err)
	}

	sink, err := warehouse.Open(cfg.Warehouse)
	if err != nil {
		log.Fatalf("Failed to open warehouse: %v", err)
	}
	defer sink.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := sink.Ping(pingCtx); err != nil {
		logger.Warn("warehouse ping failed, continuing anyway", "error", err.Error())
	}
	pingCancel()

	// Raw-row landing zone, optional.
	var archiver pipeline.Archiver
	if cfg.Archive.Enabled {
		s3arch, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			log.Fatalf("Failed to initialize archive: %v", err)
		}
		archiver = s3arch
	}

	pipe := pipeline.New(report.DefaultCatalog(), source, sink, archiver, pipeline.Options{
		Timezone:    cfg.GA4.Location(),
		DaysBack:    cfg.GA4.DaysBack,
		TablePrefix: cfg.Warehouse.TablePrefix,
	})

	// Run history shares the warehouse connection.
	runs := runlog.NewRepo(sink.DB(), dialect, cfg.Warehouse.Dataset)
	if err := runs.EnsureTable(ctx); err != nil {
		logger.Warn("run history table setup failed", "error", err.Error())
	}

	// Run lock backend: Redis when configured, else Postgres advisory locks
	// on the warehouse connection. Snowflake has no advisory locks, so a
	// Snowflake deployment without Redis runs unlocked.
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	var newLock func(propertyID, date string) distlock.DistLock
	if redisClient != nil || cfg.Warehouse.Dialect == "postgres" || cfg.Warehouse.Dialect == "postgresql" {
		db := sink.DB()
		newLock = func(propertyID, date string) distlock.DistLock {
			return distlock.NewRunLock(redisClient, db, propertyID, date, lockTTL)
		}
	} else {
		logger.Warn("no run lock backend available, concurrent loads are not serialized")
	}

	handlers := api.NewHandlers(cfg, pipe, client, sink, runs, newLock)
	server := api.NewServer(cfg.Server, handlers)

	go func() {
		logger.Info("server starting",
			"port", cfg.Server.Port,
			"dialect", sink.Dialect(),
			"dataset", sink.Dataset())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err.Error())
	}
}
