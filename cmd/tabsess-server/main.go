// Package main provides the entry point for tabsess-server.
package main

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/tabsess-go/internal/core/service"
	"github.com/yndnr/tabsess-go/internal/infra/buildinfo"
	"github.com/yndnr/tabsess-go/internal/infra/confloader"
	"github.com/yndnr/tabsess-go/internal/infra/shutdown"
	"github.com/yndnr/tabsess-go/internal/infra/tlsroots"
	"github.com/yndnr/tabsess-go/internal/server/config"
	"github.com/yndnr/tabsess-go/internal/server/httpserver"
	"github.com/yndnr/tabsess-go/internal/storage"
	"github.com/yndnr/tabsess-go/internal/storage/catalog"
	"github.com/yndnr/tabsess-go/internal/storage/memory"
	"github.com/yndnr/tabsess-go/internal/storage/snapshot"
	"github.com/yndnr/tabsess-go/internal/telemetry/logger"
	"github.com/yndnr/tabsess-go/internal/telemetry/metric"
	"github.com/yndnr/tabsess-go/pkg/crypto/adaptive"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("tabsess-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, slogLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting tabsess-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", fmt.Sprintf("%+v", config.Sanitize(cfg)))

	// Cache backend
	cache, closeCache, err := initCache(cfg, slogLogger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Snapshot codec, optionally sealing payloads at rest
	codec, err := initCodec(cfg)
	if err != nil {
		return fmt.Errorf("init snapshot codec: %w", err)
	}

	store := storage.NewSessionStore(cache, codec, slogLogger)
	datasets := catalog.New(cache, codec)

	sessions := service.NewSessionService(store, datasets, slogLogger, service.Config{
		DefaultTTL:          cfg.Session.DefaultTTL,
		MaxTTL:              cfg.Session.MaxTTL,
		MaxHistoryDepth:     cfg.Session.MaxHistoryDepth,
		MaxSessionsPerOwner: cfg.Session.MaxPerOwner,
	})

	metrics := metric.New()
	if bc, ok := cache.(*storage.BadgerCache); ok {
		if err := bc.RegisterMetrics(metrics.Registerer()); err != nil {
			return fmt.Errorf("register badger metrics: %w", err)
		}
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		SessionService: sessions,
		Catalog:        datasets,
		Metrics:        metrics,
		Logger:         slogLogger,
		RateLimitRPS:   cfg.Server.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.Server.HTTP.RateLimitBurst,
	})

	httpServer, certWatcher, err := initServer(cfg, router, slogLogger)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing cache backend")
		return closeCache()
	})

	if certWatcher != nil {
		certWatcher.StartAsync()
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			certWatcher.Stop()
			return nil
		})
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr, "tls", certWatcher != nil)

		var err error
		if certWatcher != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger.
// Returns both the logger interface and slog.Logger for components that need it.
func initLogger(cfg *config.ServerConfig) (logger.Logger, *slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.SetDefault(log)

	return log, log.Slog(), nil
}

// initCache builds the configured cache backend.
func initCache(cfg *config.ServerConfig, log *slog.Logger) (storage.CacheClient, func() error, error) {
	switch cfg.Storage.Backend {
	case "badger":
		bc, err := storage.NewBadgerCache(storage.BadgerConfig{
			Dir:        cfg.Storage.DataDir,
			GCInterval: cfg.Storage.GCInterval,
			Logger:     log,
		})
		if err != nil {
			return nil, nil, err
		}
		return bc, bc.Close, nil
	default:
		mc := memory.NewCache(cfg.Storage.JanitorInterval)
		return mc, mc.Close, nil
	}
}

// initCodec builds the snapshot codec, wiring in encryption when a key
// is configured.
func initCodec(cfg *config.ServerConfig) (*snapshot.Codec, error) {
	codecCfg := snapshot.Config{
		CompressThreshold: cfg.Snapshot.CompressThreshold,
	}

	if cfg.Security.EncryptionKey != "" {
		key, err := hex.DecodeString(cfg.Security.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		cipher, err := adaptive.New(key)
		if err != nil {
			return nil, fmt.Errorf("init cipher: %w", err)
		}
		codecCfg.Cipher = cipher
	}

	return snapshot.NewCodec(codecCfg)
}

// initServer builds the HTTP server, with hot-reloaded TLS when cert
// and key files are configured.
func initServer(cfg *config.ServerConfig, router http.Handler, log *slog.Logger) (*httpserver.Server, *tlsroots.Watcher, error) {
	httpCfg := cfg.Server.HTTP

	if httpCfg.TLSCertFile == "" || httpCfg.TLSKeyFile == "" {
		return httpserver.New(httpCfg.Addr, router), nil, nil
	}

	watcher, err := tlsroots.NewWatcher(httpCfg.TLSCertFile, httpCfg.TLSKeyFile,
		tlsroots.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("load TLS certificate: %w", err)
	}

	tlsCfg := &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: watcher.GetCertificate,
	}

	return httpserver.NewTLS(httpCfg.Addr, router, tlsCfg), watcher, nil
}
