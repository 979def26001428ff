// Package logger provides a structured logging interface for the profile
// sync tool.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output with colors
// - File output alongside the console
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "profilesync/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File: "/var/log/profilesync.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Application started")
//	logger.WithField("nickname", "amna").Info("Profile fetched")
//	logger.WithError(err).Error("Failed to write row")
//
// Advanced Usage:
//
//	// Create a logger instance with fields
//	log := logger.GetLogger().
//	    WithField("component", "engine").
//	    WithField("mode", "targets")
//
//	// Use structured logging
//	log.InfoWithFields("Run completed", map[string]interface{}{
//	    "processed": 40,
//	    "updated":   12,
//	    "duration":  time.Minute * 5,
//	})
package logger
