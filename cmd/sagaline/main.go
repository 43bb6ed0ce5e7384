package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sagaline/sagaline/config"
	"github.com/sagaline/sagaline/pkg/api"
	"github.com/sagaline/sagaline/pkg/api/events"
	"github.com/sagaline/sagaline/pkg/api/handlers"
	"github.com/sagaline/sagaline/pkg/api/middleware"
	"github.com/sagaline/sagaline/pkg/eventbus"
	"github.com/sagaline/sagaline/pkg/eventlog"
	"github.com/sagaline/sagaline/pkg/lock"
	"github.com/sagaline/sagaline/pkg/logger"
	"github.com/sagaline/sagaline/pkg/metrics"
	"github.com/sagaline/sagaline/pkg/runtime"
	"github.com/sagaline/sagaline/pkg/telemetry/tracing"
	"github.com/sagaline/sagaline/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version information")
	helpFlag    = flag.Bool("help", false, "Print help information")

	// CLI overrides
	appName    = flag.String("app-name", "", "Override app name")
	serverPort = flag.Int("port", 0, "Override server port")
	logLevel   = flag.String("log-level", "", "Override log level")
	debugMode  = flag.Bool("debug", false, "Enable debug mode")
)

func main() {
	flag.Parse()

	// Print help
	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	// Print version
	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	// Build CLI overrides map
	overrides := buildOverrides()

	// Load configuration
	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration:\n%s\n", err)
		os.Exit(1)
	}

	// Initialize logger with configuration
	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if cfg.App.Debug || *debugMode {
		logCfg.Level = logger.DebugLevel
	}
	log := logger.New(logCfg)
	logger.SetGlobal(log)

	log.Info("Starting Sagaline",
		"version", version.Version,
		"buildTime", version.BuildTime,
		"gitCommit", version.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)

	log.Debug("Configuration loaded", "config", cfg.String())

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize tracing
	tracingShutdown, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, version.Version)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracingShutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracing", "error", err)
		}
	}()

	// Initialize event log backend
	var eventLog eventlog.Log
	switch cfg.Storage.Type {
	case "badger":
		eventLog, err = eventlog.OpenBadgerLog(cfg.Storage.Badger.Path)
		if err != nil {
			log.Error("Failed to open Badger event log", "error", err)
			os.Exit(1)
		}
		log.Info("Initialized Badger event log", "path", cfg.Storage.Badger.Path)
	case "memory":
		eventLog = eventlog.NewMemoryLog()
		log.Info("Initialized memory event log")
	default:
		eventLog = eventlog.NewMemoryLog()
		log.Warn("Unknown storage type, using memory event log", "type", cfg.Storage.Type)
	}
	defer func() {
		if err := eventLog.Close(); err != nil {
			log.Error("Error closing event log", "error", err)
		}
	}()

	// Initialize per-instance dispatch lock
	var locker lock.Locker
	switch cfg.Lock.Type {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Lock.Redis.Address,
			Password: cfg.Lock.Redis.Password,
			DB:       cfg.Lock.Redis.DB,
		})
		locker, err = lock.NewRedisLocker(client, lock.RedisLockerOptions{
			TTL:           cfg.Lock.TTL,
			RetryInterval: cfg.Lock.RetryInterval,
		})
		if err != nil {
			log.Error("Failed to create Redis locker", "error", err)
			os.Exit(1)
		}
		log.Info("Initialized Redis dispatch lock", "address", cfg.Lock.Redis.Address)
	case "memory":
		locker = lock.NewMemoryLocker()
		log.Info("Initialized memory dispatch lock")
	default:
		locker = lock.NewMemoryLocker()
		log.Warn("Unknown lock type, using memory dispatch lock", "type", cfg.Lock.Type)
	}

	// Initialize metrics manager
	metricsCfg := metrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		Port:                    cfg.Metrics.Port,
		Path:                    cfg.Metrics.Path,
		DispatchDurationBuckets: metrics.DefaultConfig().DispatchDurationBuckets,
		HTTPDurationBuckets:     metrics.DefaultConfig().HTTPDurationBuckets,
	}
	metricsManager := metrics.NewManager(metricsCfg)

	// Start metrics server if enabled
	if metricsManager.Enabled() {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsManager.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	// Build step catalogs from configuration
	catalogs, err := cfg.BuildCatalogs()
	if err != nil {
		log.Error("Failed to build saga catalogs", "error", err)
		os.Exit(1)
	}
	if len(catalogs) == 0 {
		log.Error("No sagas configured; add at least one saga with steps")
		os.Exit(1)
	}

	// Wire the event bus and lifecycle publisher
	bus := eventbus.NewMemoryBus()
	publisher, err := eventbus.NewPublisher(bus, eventbus.DefaultRetryConfig(), metricsManager)
	if err != nil {
		log.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}

	// Create the dispatcher and register every catalog's vocabulary
	dispatcher, err := runtime.NewDispatcher(catalogs, runtime.Options{
		Log:       eventLog,
		Locker:    locker,
		Publisher: publisher,
		Metrics:   metricsManager,
		Logger:    log,
	})
	if err != nil {
		log.Error("Failed to create dispatcher", "error", err)
		os.Exit(1)
	}
	router := runtime.NewRouter(dispatcher)
	for name := range catalogs {
		if err := router.RegisterCatalog(catalogs[name]); err != nil {
			log.Error("Failed to register saga commands", "saga", name, "error", err)
			os.Exit(1)
		}
		log.Info("Registered saga", "saga", name,
			"steps", catalogs[name].Len(), "commands", len(catalogs[name].CommandNames()))
	}

	// Bridge published events to websocket subscribers
	wsHandler := handlers.NewWebSocketHandler(log, handlers.WebSocketConfig{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
	})
	defer wsHandler.Close()

	broadcaster := events.NewBroadcaster()
	defer broadcaster.Close()
	busSub, err := bus.Subscribe(eventbus.AllSagasWildcardSubject(), 256)
	if err != nil {
		log.Error("Failed to subscribe to saga events", "error", err)
		os.Exit(1)
	}
	go broadcaster.Relay(ctx, busSub)
	streamCh := broadcaster.Subscribe(256)
	go func() {
		for ev := range streamCh {
			if err := wsHandler.Broadcast(handlers.EventMessage{
				Type:      ev.Type,
				Timestamp: ev.Timestamp,
				Payload:   ev.Payload,
			}); err != nil {
				log.Warn("Websocket broadcast failed", "error", err)
			}
		}
	}()

	// Initialize HTTP server with handlers
	tracingOpts := middleware.DefaultTracingOptions()
	apiHandlers := &api.Handlers{
		Saga:      handlers.NewSagaHandler(router, dispatcher, log),
		Health:    handlers.NewHealthHandler(dispatcher),
		WebSocket: wsHandler,
		Metrics:   metricsManager,
	}
	if cfg.Tracing.Enabled {
		apiHandlers.Tracing = &tracingOpts
	}

	httpServer := api.NewHTTPServer(cfg, log, apiHandlers)

	// Start HTTP server in a separate goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
		if err := httpServer.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	log.Info("Sagaline is running",
		"http_port", cfg.Server.Port,
		"metrics_port", cfg.Metrics.Port,
		"sagas", len(catalogs),
	)
	log.Info("Press Ctrl+C to stop")

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErrChan:
		log.Error("HTTP server error", "error", err)
	case <-ctx.Done():
		log.Info("Context cancelled")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server first so no new commands arrive
	log.Info("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down HTTP server", "error", err)
	}

	_ = busSub.Close()

	log.Info("Sagaline stopped gracefully")
}

func buildOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if *appName != "" {
		overrides["app.name"] = *appName
	}
	if *serverPort != 0 {
		overrides["server.port"] = *serverPort
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}
	if *debugMode {
		overrides["app.debug"] = true
	}

	return overrides
}

func printVersion() {
	fmt.Printf("Sagaline - Saga Orchestration Engine\n")
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
	fmt.Printf("Go Version: %s\n", version.GoVersion)
}

func printHelp() {
	fmt.Printf("Sagaline - Event-sourced saga orchestration engine\n\n")
	fmt.Printf("Usage: sagaline [options]\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  sagaline                                  # Run with default config\n")
	fmt.Printf("  sagaline -config config.yaml              # Use specific config file\n")
	fmt.Printf("  sagaline -port 9090 -log-level debug      # Override specific options\n")
	fmt.Printf("  sagaline -version                         # Print version info\n")
}
