// askgate-server is a token-gated request broker: clients hold a
// persistent WebSocket connection, submit questions authorized by an
// API key or access token, and receive asynchronous answers produced
// by a worker pool behind a message queue.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/askgate/askgate-go/internal/core/service"
	"github.com/askgate/askgate-go/internal/infra/buildinfo"
	"github.com/askgate/askgate-go/internal/infra/confloader"
	"github.com/askgate/askgate-go/internal/infra/shutdown"
	"github.com/askgate/askgate-go/internal/queue"
	"github.com/askgate/askgate-go/internal/server/config"
	"github.com/askgate/askgate-go/internal/server/wsserver"
	"github.com/askgate/askgate-go/internal/storage"
	"github.com/askgate/askgate-go/internal/storage/memory"
	"github.com/askgate/askgate-go/internal/telemetry/logger"
	"github.com/askgate/askgate-go/internal/telemetry/metric"
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
		fmt.Printf("askgate-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting askgate-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", *configFile)

	metrics := metric.NewRegistry()
	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	// Token store. A failure to open the store is fatal: the broker
	// must not start in a silent-drop mode.
	repo, closeStorage, err := initStorage(cfg, metrics)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down token store")
		return closeStorage()
	})

	// Queue gateway. An unreachable broker at startup is fatal too.
	gateway, err := queue.DialAMQP(queue.AMQPConfig{
		URL:      cfg.Queue.URL,
		Prefetch: cfg.Queue.Prefetch,
	}, log)
	if err != nil {
		return fmt.Errorf("init queue gateway: %w", err)
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down queue gateway")
		return gateway.Close()
	})

	keySet, watcher, err := initKeySet(cfg, log)
	if err != nil {
		return fmt.Errorf("init api keys: %w", err)
	}
	if watcher != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			return watcher.Stop()
		})
	}

	relay := service.NewRelayService(
		service.NewAuthService(keySet, &service.AuthServiceConfig{RateLimit: cfg.Auth.RateLimit}),
		service.NewTokenService(repo),
		service.NewRegistry(),
		gateway,
		service.RelayConfig{
			InputQueue:       cfg.Queue.InputQueue,
			RoutedWindowSize: cfg.Relay.RoutedWindowSize,
		},
		metrics,
		log,
	)

	// Response consumer. A consumer failure after startup takes the
	// process down rather than dropping answers silently.
	consumeCtx, cancelConsume := context.WithCancel(context.Background())
	go func() {
		err := gateway.Consume(consumeCtx, cfg.Queue.OutputQueue, relay.HandleDelivery)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("output queue consumer failed", "error", err)
			shutdownHandler.Trigger()
		}
	}()
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		cancelConsume()
		return nil
	})

	wsServer := wsserver.New(wsserver.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, relay, log)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down websocket server")
		return wsServer.Shutdown(ctx)
	})

	go func() {
		log.Info("websocket server listening", "addr", cfg.Server.Addr)

		var err error
		if cfg.Server.TLSCertFile != "" && cfg.Server.TLSKeyFile != "" {
			err = wsServer.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = wsServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("websocket server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	if cfg.Server.MetricsAddr != "" {
		metricsServer := newMetricsServer(cfg.Server.MetricsAddr, metrics)
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			return metricsServer.Shutdown(ctx)
		})
		go func() {
			log.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	log.Info("server started")
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

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger and installs it as the
// process default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}

	logger.SetDefault(log)
	return log, nil
}

// initStorage builds the configured token repository. The returned
// close function is a no-op for the memory backend.
func initStorage(cfg *config.ServerConfig, metrics *metric.Registry) (service.TokenRepository, func() error, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memory.NewTokenStore(), func() error { return nil }, nil
	case "badger":
		engine, err := storage.NewBadgerEngine(storage.DefaultBadgerConfig(cfg.Storage.DataDir), slog.Default())
		if err != nil {
			return nil, nil, err
		}
		engine.RegisterMetrics(metrics.Prometheus())
		return storage.NewTokenStore(engine), engine.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// initKeySet builds the API key set and, when a key file is
// configured, the watcher that reloads it live.
func initKeySet(cfg *config.ServerConfig, log logger.Logger) (*service.StaticKeySet, *confloader.Watcher, error) {
	keys := append([]string{}, cfg.Auth.APIKeys...)
	if cfg.Auth.APIKeysFile != "" {
		fileKeys, err := confloader.ReadKeysFile(cfg.Auth.APIKeysFile)
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, fileKeys...)
	}
	keySet := service.NewStaticKeySet(keys)

	if cfg.Auth.APIKeysFile == "" {
		return keySet, nil, nil
	}

	watcher, err := confloader.NewWatcher(log)
	if err != nil {
		return nil, nil, err
	}
	if err := watcher.Watch(cfg.Auth.APIKeysFile); err != nil {
		watcher.Stop()
		return nil, nil, err
	}
	watcher.OnChange(func(string) {
		fileKeys, err := confloader.ReadKeysFile(cfg.Auth.APIKeysFile)
		if err != nil {
			log.Error("api key reload failed", "error", err)
			return
		}
		keySet.Reload(append(append([]string{}, cfg.Auth.APIKeys...), fileKeys...))
		log.Info("api keys reloaded", "count", keySet.Size())
	})
	watcher.StartAsync()

	return keySet, watcher, nil
}

// newMetricsServer serves /metrics, /healthz, and /version.
func newMetricsServer(addr string, metrics *metric.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(buildinfo.Get())
	})

	return &http.Server{Addr: addr, Handler: mux}
}
