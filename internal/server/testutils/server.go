package testutils

import (
	"github.com/and161185/metrics-state/internal/config"
	"github.com/and161185/metrics-state/internal/server"
	"github.com/and161185/metrics-state/internal/store"
	"go.uber.org/zap"
)

// NewTestServer returns a server over an empty store with a no-op logger
// and no snapshot file.
func NewTestServer() *server.Server {
	logger := zap.NewNop().Sugar()
	return server.NewServer(store.New(logger), &config.ServerConfig{
		StoreInterval: -1,
		Logger:        logger,
	}, nil)
}
