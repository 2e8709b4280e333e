// Package logger provides the shared Zap sugared logger for the service.
// Initialization is driven by LOG_LEVEL and ENVIRONMENT so that the same
// binary logs human-readable output in development and JSON in production.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
	once   sync.Once
)

// IsTest routes output to stdout with a development encoder when set by
// test helpers before the first GetLogger call.
var IsTest bool

func initLoggerInternal() {
	var zapLogger *zap.Logger
	var err error

	levelStr := os.Getenv("LOG_LEVEL")
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = zapcore.InfoLevel
	}

	if IsTest {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.OutputPaths = []string{"stdout"}
		zapLogger, err = cfg.Build()
	} else if os.Getenv("ENVIRONMENT") == "production" {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		zapLogger, err = cfg.Build()
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		zapLogger, err = cfg.Build()
	}

	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	logger = zapLogger.Sugar()
}

// InitLogger initializes the global logger. Safe for concurrent use.
func InitLogger() {
	once.Do(initLoggerInternal)
}

// GetLogger returns the shared zap.SugaredLogger, initializing it on
// first use.
func GetLogger() *zap.SugaredLogger {
	once.Do(initLoggerInternal)
	return logger
}

// Close flushes buffered log entries. Call before the process exits.
func Close() error {
	if logger != nil && !IsTest {
		err := logger.Sync()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error syncing logger: %v\n", err)
		}
		return err
	}
	return nil
}

// MaskSensitiveString masks the middle of a string, keeping prefixLen and
// suffixLen characters visible. Used when logging gateway keys and ids.
func MaskSensitiveString(s string, prefixLen, suffixLen int) string {
	if s == "" {
		return ""
	}
	if len(s) < (prefixLen + suffixLen + 3) {
		return strings.Repeat("*", len(s))
	}
	return s[:prefixLen] + "..." + s[len(s)-suffixLen:]
}

// MaskConnectionString masks passwords in database connection strings for
// safe logging. Best effort over URL and key-value formats.
func MaskConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	masked := connStr

	if idx := strings.Index(masked, "://"); idx != -1 {
		if credIdx := strings.Index(masked[idx+3:], "@"); credIdx != -1 {
			userInfo := masked[idx+3 : idx+3+credIdx]
			if passIdx := strings.Index(userInfo, ":"); passIdx != -1 {
				user := userInfo[:passIdx]
				masked = strings.Replace(masked, userInfo, user+":***", 1)
			}
		}
	}

	if kvIdx := strings.Index(masked, "password="); kvIdx != -1 {
		endIdx := strings.Index(masked[kvIdx+len("password="):], " ")
		if endIdx == -1 {
			masked = masked[:kvIdx+len("password=")] + "***"
		} else {
			masked = masked[:kvIdx+len("password=")] + "***" + masked[kvIdx+len("password=")+endIdx:]
		}
	}

	return masked
}
