package asynq

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/amitray007/pare/internal/jobs/tasks"
)

const (
	// Default server configuration values.
	defaultConcurrency        = 10
	defaultShutdownTimeoutSec = 30
)

// Server is the worker side of the background optimize path: it dequeues
// tasks from Redis and runs them through the registered handlers. The
// asynq concurrency knob sits above the compression gate — asynq bounds
// how many tasks are in flight, the gate bounds how many of those are
// actually optimizing at once.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger zerolog.Logger
}

// ServerConfig holds configuration for the worker server.
type ServerConfig struct {
	// RedisAddr is the Redis server address (host:port).
	RedisAddr string

	// RedisPassword is the Redis password (optional).
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// Concurrency is the maximum number of tasks processed at once.
	// Default: 10
	Concurrency int

	// Queues defines queue priorities. Higher value = higher priority.
	Queues map[string]int

	// StrictPriority enforces strict queue priority (no round-robin).
	StrictPriority bool

	// ShutdownTimeout is the maximum time to wait for in-flight tasks
	// during shutdown. Default: 30 seconds
	ShutdownTimeout time.Duration

	// Logger is the structured logger for server operations.
	Logger zerolog.Logger
}

// DefaultServerConfig returns sensible defaults for a worker.
func DefaultServerConfig(redisAddr string, logger zerolog.Logger) ServerConfig {
	return ServerConfig{
		RedisAddr:       redisAddr,
		Concurrency:     defaultConcurrency,
		Queues:          map[string]int{"default": 1},
		ShutdownTimeout: defaultShutdownTimeoutSec * time.Second,
		Logger:          logger,
	}
}

// NewServer creates a worker server for processing background tasks.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if len(cfg.Queues) == 0 {
		cfg.Queues = map[string]int{"default": 1}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeoutSec * time.Second
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	serverConfig := asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          cfg.Queues,
		StrictPriority:  cfg.StrictPriority,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          newAsynqLogger(cfg.Logger),
	}

	return &Server{
		server: asynq.NewServer(redisOpt, serverConfig),
		mux:    asynq.NewServeMux(),
		logger: cfg.Logger,
	}, nil
}

// RegisterHandler mounts a handler for the given task type. Prefer the
// typed RegisterOptimizeHandler for the optimize path.
func (s *Server) RegisterHandler(taskType string, handler asynq.Handler) {
	s.mux.Handle(taskType, handler)
	s.logger.Info().
		Str("task_type", taskType).
		Msg("registered task handler")
}

// RegisterOptimizeHandler mounts the background optimize handler on its
// task type.
func (s *Server) RegisterOptimizeHandler(h *tasks.OptimizeHandler) {
	s.RegisterHandler(tasks.TypeOptimize, h)
}

// Start runs the worker and begins processing tasks. It blocks until
// Shutdown is called or the server fails.
func (s *Server) Start() error {
	s.logger.Info().Msg("starting optimize worker")

	if err := s.server.Run(s.mux); err != nil {
		s.logger.Error().
			Err(err).
			Msg("optimize worker stopped with error")
		return fmt.Errorf("asynq server run: %w", err)
	}

	s.logger.Info().Msg("optimize worker stopped")
	return nil
}

// Shutdown gracefully stops the worker, waiting for in-flight tasks up
// to ShutdownTimeout.
func (s *Server) Shutdown() {
	s.logger.Info().Msg("shutting down optimize worker")
	s.server.Shutdown()
	s.logger.Info().Msg("optimize worker shutdown complete")
}

// asynqLogger adapts zerolog.Logger to asynq.Logger interface.
type asynqLogger struct {
	logger zerolog.Logger
}

func newAsynqLogger(logger zerolog.Logger) *asynqLogger {
	return &asynqLogger{logger: logger}
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Fatal().Msg(fmt.Sprint(args...))
}
