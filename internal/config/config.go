// Package config provides application configuration structures and helpers.
package config

import "go.uber.org/zap"

// ServerConfig holds the configuration settings for the server.
type ServerConfig struct {
	Addr            string // Server address
	Logger          *zap.SugaredLogger
	StoreInterval   int    // Interval for saving the state snapshot (in seconds)
	FileStoragePath string // Path to the snapshot file
	Restore         bool   // Whether to restore the state from file on startup
	Key             string // Key for hash verification
	LogLevel        string // zap level name
}

func newLogger(level string) *zap.SugaredLogger {
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stdout"}
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		logCfg.Level = lvl
	}
	return zap.Must(logCfg.Build()).Sugar()
}
