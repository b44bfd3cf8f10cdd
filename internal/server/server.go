// Package server exposes the metrics store over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/metrics-state/internal/config"
	"github.com/and161185/metrics-state/internal/metrics"
	"github.com/and161185/metrics-state/internal/server/middleware"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 5 * time.Second

// Storage is the state holder the server dispatches into.
type Storage interface {
	State() metrics.State
	Dispatch(action metrics.Action) metrics.State
	Subscribe(fn func(metrics.State)) (unsubscribe func())
	SaveToFile(filePath string) error
	LoadFromFile(filePath string) error
}

// Server serves the current metrics state and accepts actions.
type Server struct {
	Storage Storage
	Config  *config.ServerConfig
	Metrics http.Handler // Prometheus handler, optional
}

// NewServer creates a server over storage.
func NewServer(storage Storage, config *config.ServerConfig, metricsHandler http.Handler) *Server {
	return &Server{
		Storage: storage,
		Config:  config,
		Metrics: metricsHandler,
	}
}

// Router builds the HTTP routes.
func (srv *Server) Router() chi.Router {
	router := chi.NewRouter()
	router.Use(chiMiddleware.StripSlashes)
	router.Use(middleware.LogMiddleware(srv.Config.Logger))
	router.Use(middleware.VerifyHashMiddleware(srv.Config.Key))
	router.Use(middleware.DecompressMiddleware)
	router.Use(middleware.CompressMiddleware)

	router.Post("/dispatch", srv.DispatchHandler)
	router.Get("/state", srv.StateHandler)
	router.Get("/state/{index}", srv.RecordHandler)
	router.Get("/ping", srv.PingHandler)
	router.Get("/", srv.ListMetricsHandler)
	if srv.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", srv.Metrics)
	}

	return router
}

// Run serves until ctx is done, then shuts down and writes a final snapshot.
func (srv *Server) Run(ctx context.Context) error {
	cfg := srv.Config

	if cfg.Restore && cfg.FileStoragePath != "" {
		if err := srv.Storage.LoadFromFile(cfg.FileStoragePath); err != nil {
			cfg.Logger.Errorf("failed to restore state: %v", err)
		}
	}

	srv.startSnapshots(ctx)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		cfg.Logger.Infof("listening on %s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	}

	if cfg.FileStoragePath != "" {
		if err := srv.Storage.SaveToFile(cfg.FileStoragePath); err != nil {
			cfg.Logger.Errorf("failed to save state on shutdown: %v", err)
		}
	}

	return runErr
}

// startSnapshots saves the state every StoreInterval seconds, or after every
// dispatch when the interval is zero.
func (srv *Server) startSnapshots(ctx context.Context) {
	cfg := srv.Config
	if cfg.FileStoragePath == "" || cfg.StoreInterval < 0 {
		return
	}

	save := func() {
		if err := srv.Storage.SaveToFile(cfg.FileStoragePath); err != nil {
			cfg.Logger.Errorf("failed to save state: %v", err)
		}
	}

	if cfg.StoreInterval == 0 {
		unsubscribe := srv.Storage.Subscribe(func(metrics.State) { save() })
		go func() {
			<-ctx.Done()
			unsubscribe()
		}()
		return
	}

	go func() {
		t := time.NewTicker(time.Duration(cfg.StoreInterval) * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				save()
			}
		}
	}()
}

func (srv *Server) DispatchHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	action, err := metrics.ReadAction(r.Body)
	if err != nil {
		srv.Config.Logger.Infof("rejected action: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	state := srv.Storage.Dispatch(action)
	srv.writeJSON(w, state)
}

func (srv *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	srv.writeJSON(w, srv.Storage.State())
}

func (srv *Server) RecordHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}

	state := srv.Storage.State()
	if index < 0 || index >= len(state) {
		http.NotFound(w, r)
		return
	}

	srv.writeJSON(w, state[index])
}

func (srv *Server) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) ListMetricsHandler(w http.ResponseWriter, r *http.Request) {
	state := srv.Storage.State()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := fmt.Fprintln(w, "<html><body><ul>")
	if err != nil {
		srv.Config.Logger.Errorf("failed to start response body for list metrics: %v", err)
	}

	for _, m := range state {
		_, err = fmt.Fprintf(w, "<li>%s</li>", html.EscapeString(m.Title))
		if err != nil {
			srv.Config.Logger.Errorf("failed to write list item [title=%s]: %v", m.Title, err)
		}
	}

	_, err = fmt.Fprintln(w, "</ul></body></html>")
	if err != nil {
		srv.Config.Logger.Errorf("failed to end response body for list metrics: %v", err)
	}
}

func (srv *Server) writeJSON(w http.ResponseWriter, v any) {
	if s, ok := v.(metrics.State); ok && s == nil {
		v = metrics.InitialState()
	}

	body, err := json.Marshal(v)
	if err != nil {
		srv.Config.Logger.Errorf("failed to encode response: %v", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		srv.Config.Logger.Errorf("failed to write response JSON: %v", err)
	}
}
