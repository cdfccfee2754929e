package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volarb/internal/config"
	customMiddleware "volarb/internal/middleware"
	"volarb/internal/shared/testutil"
	ws "volarb/internal/websocket"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Telemetry.MetricExporter = "none"
	cfg.Telemetry.Environment = "test"
	cfg.Server.RateLimit.Enabled = false
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) (*Application, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	application, err := New(cfg, logger)
	require.NoError(t, err)

	server := httptest.NewServer(application.Router)
	t.Cleanup(func() {
		server.Close()
		application.Server = nil
		_ = application.Stop(context.Background())
	})
	return application, server
}

func pairJSON(t *testing.T, n int, runID string) []byte {
	t.Helper()
	spy := testutil.RandomWalk(42, n, 100, 0.012)
	raw, err := json.Marshal(map[string]interface{}{
		"a":      map[string]interface{}{"symbol": "SPXL", "close": testutil.Leveraged(spy, 3)},
		"b":      map[string]interface{}{"symbol": "SPY", "close": spy},
		"run_id": runID,
	})
	require.NoError(t, err)
	return raw
}

func TestApplication_Routes(t *testing.T) {
	_, server := newTestApp(t, testConfig())

	tests := []struct {
		name       string
		method     string
		path       string
		body       []byte
		wantStatus int
	}{
		{"healthz", http.MethodGet, "/healthz", nil, http.StatusOK},
		{"health", http.MethodGet, "/api/health", nil, http.StatusOK},
		{"readiness", http.MethodGet, "/api/health/ready", nil, http.StatusOK},
		{"version", http.MethodGet, "/api/version", nil, http.StatusOK},
		{"reducers", http.MethodGet, "/api/v1/arb/reducers", nil, http.StatusOK},
		{"mono", http.MethodPost, "/api/v1/arb/mono", pairJSON(t, 40, ""), http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v2/nothing", nil, http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/v1/arb/mono", nil, http.StatusMethodNotAllowed},
		{"metrics disabled", http.MethodGet, "/metrics", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, server.URL+tt.path, bytes.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(customMiddleware.RequestIDHeader))
		})
	}
}

func TestApplication_SecurityHeadersOnAPI(t *testing.T) {
	_, server := newTestApp(t, testConfig())

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.01, Burst: 1}
	_, server := newTestApp(t, cfg)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := http.Get(server.URL + "/api/health")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestApplication_PrometheusEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.MetricExporter = "prometheus"
	_, server := newTestApp(t, cfg)

	resp, err := http.Post(server.URL+"/api/v1/arb/poly", "application/json", bytes.NewReader(pairJSON(t, 80, "")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")
	assert.Contains(t, string(body), "volarb_mono_evaluations_total")
}

func TestApplication_SweepStreamsOverWebSocket(t *testing.T) {
	application, server := newTestApp(t, testConfig())

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello ws.Message
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, ws.TypeConnection, hello.Type)
	require.Eventually(t, func() bool { return application.WebSocketHub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Post(server.URL+"/api/v1/arb/poly", "application/json", bytes.NewReader(pairJSON(t, 80, "ws-run")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	progress := 0
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg struct {
			Type string                 `json:"type"`
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "ws-run", msg.Data["run_id"])

		if msg.Type == ws.TypeSweepProgress {
			progress++
			continue
		}
		require.Equal(t, ws.TypeSweepComplete, msg.Type)
		assert.Equal(t, "SPXL/SPY", msg.Data["pair"])
		break
	}
	assert.Positive(t, progress)
}
