package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	app "github.com/tandemflow/tandem"
	"github.com/tandemflow/tandem/internal/config"
	"github.com/tandemflow/tandem/internal/engine"
	"github.com/tandemflow/tandem/internal/executor"
	"github.com/tandemflow/tandem/internal/server"
	"github.com/tandemflow/tandem/internal/store"
	"github.com/tandemflow/tandem/pkg/api"
	"github.com/tandemflow/tandem/pkg/log"
)

type tandem struct {
	cfg         *config.Config
	rdb         *redis.Client
	workflows   *store.WorkflowStore
	credentials *store.CredentialStore
	history     *store.HistoryStore
	archiver    *store.Archiver
	executors   executor.Registry
	engine      *engine.Engine
	apiServer   *server.Server
	httpServer  *http.Server
	quit        chan os.Signal
}

var (
	ErrConnectRedis      = errors.New("failed to connect to redis")
	ErrOpenArchiveBucket = errors.New("failed to open archive bucket")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &tandem{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *tandem) run() error {
	if err := s.initializeStores(); err != nil {
		return err
	}

	if err := s.initializeEngine(); err != nil {
		return err
	}
	s.startServer()

	sweep := time.NewTicker(s.cfg.CredentialCacheTTL)
	defer sweep.Stop()
	go func() {
		for range sweep.C {
			s.credentials.Sweep()
		}
	}()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *tandem) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Tandem Engine starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", s.cfg.Store.Addr),
		slog.Int("redis_db", s.cfg.Store.DB),
		slog.String("redis_prefix", s.cfg.Store.Prefix),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *tandem) initializeStores() error {
	s.rdb = store.NewRedisClient(s.cfg.Store)
	if err := s.rdb.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectRedis, err)
	}

	prefix := s.cfg.Store.Prefix
	s.workflows = store.NewWorkflowStore(s.rdb, prefix)
	s.credentials = store.NewCredentialStore(
		s.rdb, prefix, s.cfg.CredentialCacheTTL,
	)
	s.history = store.NewHistoryStore(s.rdb, prefix, s.cfg.HistoryLimit)

	if s.cfg.ArchiveBucketURL != "" {
		archiver, err := store.NewArchiver(
			context.Background(),
			s.cfg.ArchiveBucketURL, s.cfg.ArchivePrefix,
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOpenArchiveBucket, err)
		}
		s.archiver = archiver
	}

	return nil
}

func (s *tandem) initializeEngine() error {
	s.executors = executor.NewRegistry(executor.Config{
		Timeout:     time.Duration(s.cfg.StepTimeout) * time.Millisecond,
		MaxRetries:  uint64(s.cfg.RetryMaxRetries),
		InitBackoff: time.Duration(s.cfg.RetryInitBackoff) * time.Millisecond,
	})

	eng, err := engine.New(engine.Dependencies{
		Executors:   s.executors,
		Credentials: s.credentials,
		History:     s.history,
		Observer: func(runID string, res *api.StepResult) {
			s.apiServer.BroadcastStep(runID, res)
		},
	})
	if err != nil {
		return err
	}
	s.engine = eng
	return nil
}

func (s *tandem) startServer() {
	s.apiServer = server.NewServer(s.engine, server.Stores{
		Workflows: s.workflows,
		History:   s.history,
		Archiver:  s.archiver,
	})
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *tandem) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()

	for _, exec := range s.executors {
		if cl, ok := exec.(io.Closer); ok {
			_ = cl.Close()
		}
	}

	if s.archiver != nil {
		_ = s.archiver.Close()
	}
	_ = s.rdb.Close()

	slog.Info("Server exited")
}
