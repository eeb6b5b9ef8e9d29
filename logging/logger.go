// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug
// any structured logger. It also offers a richer OrchestratorLogger with
// contextual helpers (agent, task, component) and domain specific helpers
// for tools, model calls and iteration loops.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled
// from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the minimal logging interface for the orchestration core.
// This allows users to provide their own logger implementation or use the
// built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// LoggerConfig configures construction of an OrchestratorLogger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Component string
	AgentName string
	TaskID    string
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout, AddSource: true}
}

// OrchestratorLogger wraps slog.Logger adding contextual cloning helpers
// and domain convenience methods. It is cheap to copy via With* methods.
type OrchestratorLogger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
	agentName string
	taskID    string
}

// NewLogger builds an OrchestratorLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *OrchestratorLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &OrchestratorLogger{
		logger:    slog.New(handler),
		level:     cfg.Level,
		component: cfg.Component,
		agentName: cfg.AgentName,
		taskID:    cfg.TaskID,
	}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent sets the logical component (bus, loop, tool, agent, etc.).
func (l *OrchestratorLogger) WithComponent(c string) *OrchestratorLogger {
	nl := *l
	nl.component = c
	return &nl
}

// WithTask attaches agent and task identifiers.
func (l *OrchestratorLogger) WithTask(agentName, taskID string) *OrchestratorLogger {
	nl := *l
	nl.agentName = agentName
	nl.taskID = taskID
	return &nl
}

func (l *OrchestratorLogger) attrs() []slog.Attr {
	var attrs []slog.Attr
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.agentName != "" {
		attrs = append(attrs, slog.String("agent", l.agentName))
	}
	if l.taskID != "" {
		attrs = append(attrs, slog.String("task_id", l.taskID))
	}
	return attrs
}

func (l *OrchestratorLogger) log(level slog.Level, min LogLevel, msg string, args ...any) {
	if l.level > min {
		return
	}
	attrs := l.attrs()
	for i := 0; i+1 < len(args); i += 2 {
		if k, ok := args[i].(string); ok {
			attrs = append(attrs, slog.Any(k, args[i+1]))
		}
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// Debug logs at debug level.
func (l *OrchestratorLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *OrchestratorLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *OrchestratorLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *OrchestratorLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, LogLevelError, msg, args...)
}

// LogToolCall records execution details for a tool invocation.
func (l *OrchestratorLogger) LogToolCall(tool string, dur time.Duration, success bool, err error) {
	args := []any{"tool_name", tool, "duration", dur, "success", success}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if success {
		l.Info("Tool execution completed", args...)
		return
	}
	l.Error("Tool execution failed", args...)
}

// LogModelCall records reasoning model call latency and success.
func (l *OrchestratorLogger) LogModelCall(model string, dur time.Duration, success bool, err error) {
	args := []any{"model", model, "duration", dur, "success", success}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if success {
		l.Info("Model call completed", args...)
		return
	}
	l.Error("Model call failed", args...)
}

// LogLoopRun records aggregate iteration loop metrics.
func (l *OrchestratorLogger) LogLoopRun(agent string, iterations int, dur time.Duration, reason string) {
	l.Info("Iteration loop finished",
		"agent", agent,
		"iterations", iterations,
		"duration", dur,
		"termination_reason", reason,
	)
}

// NoOpLogger discards all log messages. Useful for testing or when logging
// is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
