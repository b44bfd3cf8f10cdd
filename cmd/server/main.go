package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/and161185/metrics-state/internal/buildinfo"
	"github.com/and161185/metrics-state/internal/config"
	"github.com/and161185/metrics-state/internal/server"
	"github.com/and161185/metrics-state/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildinfo.BuildVersion, buildinfo.BuildDate, buildinfo.BuildCommit = buildVersion, buildDate, buildCommit
	buildinfo.PrintBuildInfo(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := config.NewServerConfig()
	defer func() { _ = config.Logger.Sync() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := store.NewPromRecorder(registry)

	st := store.New(config.Logger, store.WithRecorder(recorder))

	config.Logger.Infof("Server config: Addr=%s, StoreInterval=%d, FileStoragePath=%q, Restore=%t, Key set=%t",
		config.Addr,
		config.StoreInterval,
		config.FileStoragePath,
		config.Restore,
		config.Key != "",
	)

	srv := server.NewServer(st, config, recorder.Handler())
	if err := srv.Run(ctx); err != nil {
		config.Logger.Fatal(err)
	}
}
