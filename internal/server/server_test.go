package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/and161185/metrics-state/internal/config"
	"github.com/and161185/metrics-state/internal/metrics"
	srv "github.com/and161185/metrics-state/internal/server"
	"github.com/and161185/metrics-state/internal/server/testutils"
	"github.com/and161185/metrics-state/internal/store"
	"github.com/and161185/metrics-state/internal/utils"
	"github.com/and161185/metrics-state/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func doRequest(t *testing.T, h http.Handler, method, url, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeTitles(t *testing.T, body []byte) []string {
	t.Helper()
	var state metrics.State
	require.NoError(t, json.Unmarshal(body, &state))
	return state.Titles()
}

func TestDispatchHandler(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantTitles  []string
	}{
		{"fetch_metrics", "application/json", `{"type":"FETCH_METRICS","payload":{"data":[{"title":"metrics"}]}}`, http.StatusOK, []string{"metrics"}},
		{"charset", "application/json; charset=utf-8", `{"type":"FETCH_METRICS","payload":{"data":[{"title":"a"},{"title":"b"}]}}`, http.StatusOK, []string{"a", "b"}},
		{"unknown_kind", "application/json", `{"type":"FETCH_USERS"}`, http.StatusOK, []string{"seed"}},
		{"missing_data", "application/json", `{"type":"FETCH_METRICS","payload":{}}`, http.StatusBadRequest, nil},
		{"invalid_json", "application/json", `{`, http.StatusBadRequest, nil},
		{"wrong_content_type", "text/plain", `{"type":"FETCH_METRICS","payload":{"data":[]}}`, http.StatusUnsupportedMediaType, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutils.NewTestServer()
			s.Storage.Dispatch(metrics.NewFetchMetricsAction(model.NewMetricRecord("seed")))

			w := doRequest(t, s.Router(), http.MethodPost, "/dispatch", tc.contentType, tc.body)
			require.Equal(t, tc.wantStatus, w.Code)

			if tc.wantStatus == http.StatusOK {
				require.Equal(t, tc.wantTitles, decodeTitles(t, w.Body.Bytes()))
				require.Equal(t, tc.wantTitles, s.Storage.State().Titles())
			} else {
				require.Equal(t, []string{"seed"}, s.Storage.State().Titles())
			}
		})
	}
}

func TestDispatchThenState_Replaces(t *testing.T) {
	s := testutils.NewTestServer()
	r := s.Router()

	doRequest(t, r, http.MethodPost, "/dispatch", "application/json",
		`{"type":"FETCH_METRICS","payload":{"data":[{"title":"old"}]}}`)
	doRequest(t, r, http.MethodPost, "/dispatch/", "application/json",
		`{"type":"FETCH_METRICS","payload":{"data":[{"title":"metrics","value":3}]}}`)

	w := doRequest(t, r, http.MethodGet, "/state", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[{"title":"metrics","value":3}]`, w.Body.String())
}

func TestRecordHandler(t *testing.T) {
	s := testutils.NewTestServer()
	s.Storage.Dispatch(metrics.NewFetchMetricsAction(model.NewMetricRecord("a"), model.NewMetricRecord("b")))
	r := s.Router()

	tests := []struct {
		url        string
		wantStatus int
		wantBody   string
	}{
		{"/state/0", http.StatusOK, `{"title":"a"}`},
		{"/state/1", http.StatusOK, `{"title":"b"}`},
		{"/state/2", http.StatusNotFound, ""},
		{"/state/-1", http.StatusNotFound, ""},
		{"/state/x", http.StatusBadRequest, ""},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			w := doRequest(t, r, http.MethodGet, tc.url, "", "")
			require.Equal(t, tc.wantStatus, w.Code)
			if tc.wantBody != "" {
				require.JSONEq(t, tc.wantBody, w.Body.String())
			}
		})
	}
}

func TestListMetricsHandler(t *testing.T) {
	s := testutils.NewTestServer()
	s.Storage.Dispatch(metrics.NewFetchMetricsAction(model.NewMetricRecord("<b>meetings</b>")))

	w := doRequest(t, s.Router(), http.MethodGet, "/", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "<li>&lt;b&gt;meetings&lt;/b&gt;</li>")
}

func TestMetricsEndpoint(t *testing.T) {
	logger := zap.NewNop().Sugar()
	rec := store.NewPromRecorder(prometheus.NewRegistry())
	s := srv.NewServer(store.New(logger, store.WithRecorder(rec)),
		&config.ServerConfig{Logger: logger, StoreInterval: -1}, rec.Handler())
	r := s.Router()

	doRequest(t, r, http.MethodPost, "/dispatch", "application/json",
		`{"type":"FETCH_METRICS","payload":{"data":[{"title":"a"}]}}`)

	w := doRequest(t, r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `metrics_state_dispatch_total{kind="FETCH_METRICS"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	w := doRequest(t, testutils.NewTestServer().Router(), http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_HashKey(t *testing.T) {
	s := testutils.NewTestServer()
	s.Config.Key = "secret"
	r := s.Router()

	body := `{"type":"FETCH_METRICS","payload":{"data":[{"title":"signed"}]}}`

	req := httptest.NewRequest(http.MethodPost, "/dispatch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HashSHA256", "bad")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/dispatch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HashSHA256", utils.CalculateHash([]byte(body), "secret"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, utils.CalculateHash(w.Body.Bytes(), "secret"), w.Header().Get("HashSHA256"))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRun_RestoresAndSavesSnapshot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"title":"restored"}]`), 0644))

	logger := zap.NewNop().Sugar()
	st := store.New(logger)
	cfg := &config.ServerConfig{
		Addr:            freeAddr(t),
		Logger:          logger,
		FileStoragePath: file,
		Restore:         true,
		StoreInterval:   0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.NewServer(st, cfg, nil).Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.Addr + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.Equal(t, []string{"restored"}, st.State().Titles())

	st.Dispatch(metrics.NewFetchMetricsAction(model.NewMetricRecord("saved")))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, []string{"saved"}, decodeTitles(t, data))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_SavesSnapshotOnInterval(t *testing.T) {
	file := filepath.Join(t.TempDir(), "state.json")

	logger := zap.NewNop().Sugar()
	st := store.New(logger)
	cfg := &config.ServerConfig{
		Addr:            freeAddr(t),
		Logger:          logger,
		FileStoragePath: file,
		StoreInterval:   1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.NewServer(st, cfg, nil).Run(ctx) }()

	st.Dispatch(metrics.NewFetchMetricsAction(model.NewMetricRecord("ticked")))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(file)
		if err != nil {
			return false
		}
		var state metrics.State
		if json.Unmarshal(data, &state) != nil {
			return false
		}
		return len(state) == 1 && state[0].Title == "ticked"
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
