package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecoscope/geosync/internal/config"
	"github.com/ecoscope/geosync/internal/dispatcher"
	"github.com/ecoscope/geosync/internal/fetch"
	"github.com/ecoscope/geosync/internal/geo"
	"github.com/ecoscope/geosync/internal/influx"
	"github.com/ecoscope/geosync/internal/logging"
	"github.com/ecoscope/geosync/internal/monitor"
	intOtel "github.com/ecoscope/geosync/internal/otel"
	"github.com/ecoscope/geosync/internal/registry"
	"github.com/ecoscope/geosync/internal/scene"
	"github.com/ecoscope/geosync/internal/viewport"
	"github.com/ecoscope/geosync/internal/worker"

	"github.com/rs/zerolog"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	ServiceName string = "geosyncd"
)

// global state
var (
	SessionStartTime time.Time = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// InfluxManager handles sync metrics, nil when disabled
	InfluxManager *influx.Manager

	logFile     *os.File
	otelLogFile *os.File

	// services
	oracle          *geo.MercatorOracle
	viewportState   *viewport.State
	sceneBackend    scene.Scene
	entityRegistry  *registry.Registry
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
)

func init() {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(logging.Options{Level: "info"})
	Logger = SlogManager.Logger()
}

// setupLogging opens the session log file and rebuilds the slog stack with
// every configured destination.
func setupLogging() error {
	logsDir := config.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs dir: %w", err)
		}
	}

	logPath := logging.LogFilePath(logsDir, ServiceName, SessionStartTime)
	var err error
	logFile, err = os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if config.GetBool("otel.enabled") {
		otelLogFile, err = os.OpenFile(logPath+".otel.json", os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open otel log file: %w", err)
		}
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  ServiceName,
			BatchTimeout: 5 * time.Second,
			LogWriter:    otelLogFile,
			Endpoint:     config.GetString("otel.endpoint"),
			Insecure:     config.GetBool("otel.insecure"),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize otel: %w", err)
		}
	} else {
		OTelProvider, err = intOtel.New(intOtel.Config{Enabled: false})
		if err != nil {
			return err
		}
	}

	opts := logging.Options{
		File:         logFile,
		Level:        config.GetString("logLevel"),
		OTelProvider: OTelProvider.LoggerProvider(),
		Context: func() []slog.Attr {
			if entityRegistry == nil {
				return nil
			}
			return []slog.Attr{slog.Int("entityCount", entityRegistry.Count())}
		},
	}
	if config.GetBool("graylog.enabled") {
		opts.GraylogAddress = config.GetString("graylog.address")
	}
	SlogManager.Setup(opts)
	Logger = SlogManager.Logger()
	return nil
}

func setupServices() error {
	oracle = geo.NewMercatorOracle(nil)
	viewportState = viewport.New()

	var err error
	sceneBackend, err = scene.NewBackend(config.Scene())
	if err != nil {
		return fmt.Errorf("failed to create scene backend: %w", err)
	}
	if err := sceneBackend.Init(); err != nil {
		return fmt.Errorf("failed to initialize scene backend: %w", err)
	}

	entityRegistry = registry.New(registry.Dependencies{
		Oracle: oracle,
		Scene:  sceneBackend,
		Logger: Logger,
	}, registry.Options{
		Template:       config.GetString("entity.template"),
		VerticalOffset: config.GetFloat("entity.verticalOffset"),
		CaptureRadius:  config.GetFloat("proximity.captureRadius"),
		HideRadius:     config.GetFloat("proximity.hideRadius"),
	})

	if config.GetBool("influx.enabled") {
		backupPath := logging.LogFilePath(config.GetString("logsDir"), ServiceName, SessionStartTime) + ".influx.gz"
		zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
		InfluxManager = influx.NewManager(zl, backupPath)
		if err := InfluxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB unavailable, continuing without metrics", "error", err)
			InfluxManager = nil
		}
	}

	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	workerManager = worker.NewManager(worker.Dependencies{
		Oracle:     oracle,
		Registry:   entityRegistry,
		Viewport:   viewportState,
		LogManager: SlogManager,
		Scene:      sceneBackend,
		SessionID:  fmt.Sprintf("%s-%d", ServiceName, SessionStartTime.Unix()),
		Influx:     InfluxManager,
	})
	workerManager.RegisterHandlers(eventDispatcher)

	fetcher := fetch.New(
		config.GetString("api.baseUrl"),
		config.GetInt("api.maxResults"),
		config.GetDuration("api.timeout"),
	)

	var recorder monitor.Recorder
	if InfluxManager != nil {
		recorder = InfluxManager
	}
	monitorService = monitor.NewService(monitor.Dependencies{
		Oracle:     oracle,
		Fetcher:    fetcher,
		Registry:   entityRegistry,
		Viewport:   viewportState,
		LogManager: SlogManager,
		Metrics:    recorder,
	}, monitor.Options{
		Cooldown:          config.GetDuration("sync.cooldown"),
		TickInterval:      config.GetDuration("sync.tickInterval"),
		MovementThreshold: config.GetFloat("sync.movementThreshold"),
		CenterThreshold:   config.GetFloat("sync.centerThreshold"),
		ZoomThreshold:     config.GetFloat("sync.zoomThreshold"),
		ReferenceZoom:     config.GetFloat("sync.referenceZoom"),
		BaseRadius:        config.GetFloat("sync.baseRadius"),
		MinRadius:         config.GetFloat("sync.minRadius"),
		MaxRadius:         config.GetFloat("sync.maxRadius"),
		FetchTimeout:      config.GetDuration("api.timeout"),
	})

	return nil
}

func shutdown() {
	Logger.Info("Shutting down")
	monitorService.Stop()

	entityRegistry.Clear()
	if err := sceneBackend.Close(); err != nil {
		Logger.Error("Error closing scene backend", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Error("Error flushing logs", "error", err)
	}
	if err := OTelProvider.Shutdown(ctx); err != nil {
		Logger.Error("Error shutting down otel", "error", err)
	}
	SlogManager.Close()
	if logFile != nil {
		logFile.Close()
	}
	if otelLogFile != nil {
		otelLogFile.Close()
	}
}

func main() {
	flags := parseFlags()
	if flags.showVersion {
		fmt.Printf("%s %s (built %s)\n", ServiceName, Version, BuildDate)
		return
	}

	if err := config.Load(flags.configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	if err := setupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "logging setup failed: %v\n", err)
		os.Exit(1)
	}
	Logger.Info("Starting up", "version", Version, "build", BuildDate)

	if err := setupServices(); err != nil {
		Logger.Error("Service setup failed", "error", err)
		os.Exit(1)
	}

	if err := monitorService.Start(); err != nil {
		Logger.Error("Failed to start sync monitor", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		runCommandLoop(os.Stdin)
		close(done)
	}()

	select {
	case sig := <-sigCh:
		Logger.Info("Received signal", "signal", sig.String())
	case <-done:
		Logger.Info("Command stream ended")
	}

	shutdown()
}
