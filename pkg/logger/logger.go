package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/movie-recommender/config"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	defaultLevel       = "info"
	defaultFormat      = "json"
	defaultServiceName = "movie-recommender"
	defaultDir         = "./logs"
)

// Logger is a zerolog logger carrying the service name and optional component
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a structured logger with validation and defaults
func NewLogger(cfg *config.LoggingConfig) (*Logger, error) {
	level := cfg.Level
	if level == "" {
		level = defaultLevel
	}
	format := cfg.Format
	if format == "" {
		format = defaultFormat
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	dir := cfg.Dir
	if dir == "" {
		dir = defaultDir
	}

	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %v", level, err)
	}

	output, err := newOutput(format, dir, serviceName)
	if err != nil {
		return nil, err
	}

	return New(output, logLevel, serviceName), nil
}

// New builds a logger writing JSON lines to w
func New(w io.Writer, level zerolog.Level, serviceName string) *Logger {
	return &Logger{
		logger: zerolog.New(w).
			Level(level).
			With().
			Timestamp().
			Str("service", serviceName).
			Logger(),
	}
}

// newOutput returns stdout for console format, or stdout plus a daily file for json
func newOutput(format, dir, serviceName string) (io.Writer, error) {
	switch format {
	case "console":
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, nil
	case "json":
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %v", err)
		}
		name := fmt.Sprintf("%s-%s.log", serviceName, time.Now().Format("2006-01-02"))
		file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %v", err)
		}
		return io.MultiWriter(os.Stdout, file), nil
	default:
		return nil, fmt.Errorf("invalid log format '%s': must be json or console", format)
	}
}

func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

func (l *Logger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

func (l *Logger) Fatal(msg string) {
	l.logger.Fatal().Msg(msg)
}

// WithComponent returns a logger instance with component context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("component", component).Logger(),
	}
}

// With returns a logger that attaches key=value to every entry
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{
		logger: l.logger.With().Interface(key, value).Logger(),
	}
}

// Middleware logs one entry per HTTP request. Server errors log at error level,
// client errors at warn.
func (l *Logger) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = l.logger.Error()
		case status >= 400:
			ev = l.logger.Warn()
		default:
			ev = l.logger.Info()
		}

		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", requestid.Get(c)).
			Msg("request")
	}
}
