// Package logger provides structured, leveled logging for the translation
// pipeline with optional file output and size-based rotation.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Field is a key-value pair attached to a log message.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an integer field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Float64 creates a float64 field.
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

// Bool creates a boolean field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Config holds logger configuration.
type Config struct {
	// LogFilePath is the log file; empty disables file output.
	LogFilePath string
	// MaxFileSize triggers rotation to <path>.1 when exceeded.
	MaxFileSize int64
	// Level is the minimum level written.
	Level Level
	// EnableConsole mirrors output to stderr.
	EnableConsole bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		LogFilePath:   "pdf2zh.log",
		MaxFileSize:   10 * 1024 * 1024,
		Level:         LevelInfo,
		EnableConsole: false,
	}
}

// Logger writes leveled, field-structured log lines.
type Logger struct {
	mu       sync.Mutex
	config   *Config
	file     *os.File
	fileSize int64
	level    Level
}

// New creates a Logger from config.
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	l := &Logger{config: config, level: config.Level}
	if config.LogFilePath != "" {
		if dir := filepath.Dir(config.LogFilePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		if err := l.openFile(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Logger) openFile() error {
	f, err := os.OpenFile(l.config.LogFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	l.file = f
	l.fileSize = info.Size()
	return nil
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close releases the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, nil, fields...) }

// Info logs an informational message.
func (l *Logger) Info(msg string, fields ...Field) { l.log(LevelInfo, msg, nil, fields...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...Field) { l.log(LevelWarn, msg, nil, fields...) }

// Error logs an error message.
func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.log(LevelError, msg, err, fields...)
}

func (l *Logger) log(level Level, msg string, err error, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] ")
	sb.WriteString(msg)
	if err != nil {
		sb.WriteString(` error="`)
		sb.WriteString(err.Error())
		sb.WriteString(`"`)
	}
	for _, f := range fields {
		sb.WriteString(" ")
		sb.WriteString(f.Key)
		sb.WriteString("=")
		sb.WriteString(fmt.Sprintf("%v", f.Value))
	}
	sb.WriteString("\n")
	entry := sb.String()

	if l.file != nil {
		if l.fileSize+int64(len(entry)) > l.config.MaxFileSize {
			l.rotate()
		}
		l.file.WriteString(entry)
		l.fileSize += int64(len(entry))
	}
	if l.config.EnableConsole || l.file == nil {
		io.WriteString(os.Stderr, entry)
	}
}

// rotate moves the current file aside as <path>.1 and reopens.
func (l *Logger) rotate() {
	l.file.Close()
	os.Rename(l.config.LogFilePath, l.config.LogFilePath+".1")
	if err := l.openFile(); err != nil {
		l.file = nil
	}
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// Init installs the global logger used by the package-level functions.
func Init(config *Config) error {
	l, err := New(config)
	if err != nil {
		return err
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger != nil {
		globalLogger.Close()
	}
	globalLogger = l
	return nil
}

// Close closes the global logger.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger != nil {
		err := globalLogger.Close()
		globalLogger = nil
		return err
	}
	return nil
}

func get() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Debug logs a debug message on the global logger.
func Debug(msg string, fields ...Field) {
	if l := get(); l != nil {
		l.Debug(msg, fields...)
	}
}

// Info logs an informational message on the global logger.
func Info(msg string, fields ...Field) {
	if l := get(); l != nil {
		l.Info(msg, fields...)
	}
}

// Warn logs a warning message on the global logger.
func Warn(msg string, fields ...Field) {
	if l := get(); l != nil {
		l.Warn(msg, fields...)
	}
}

// Error logs an error message on the global logger.
func Error(msg string, err error, fields ...Field) {
	if l := get(); l != nil {
		l.Error(msg, err, fields...)
	}
}
