package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	apperrors "volarb/internal/errors"
	"volarb/internal/infrastructure"
	"volarb/internal/volarb"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(hub *Hub, id string, buffer int) *Client {
	return &Client{
		hub:         hub,
		send:        make(chan []byte, buffer),
		id:          id,
		traceID:     "trace-" + id,
		remoteAddr:  "127.0.0.1:9000",
		connectedAt: time.Now(),
		logger:      testLogger(),
	}
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case raw, ok := <-client.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for message to %s", client.id)
		return Message{}
	}
}

func startedHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger(), nil)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func TestHub_StartStopIdempotent(t *testing.T) {
	hub := NewHub(testLogger(), nil)

	hub.Start()
	hub.Start()
	assert.Equal(t, true, hub.Stats()["running"])

	hub.Stop()
	hub.Stop()
	assert.Equal(t, false, hub.Stats()["running"])
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := startedHub(t)
	client := testClient(hub, "c1", sendBuffer)

	hub.Register(client)

	hello := receive(t, client)
	assert.Equal(t, TypeConnection, hello.Type)
	assert.Equal(t, "trace-c1", hello.TraceID)
	data := hello.Data.(map[string]interface{})
	assert.Equal(t, "connected", data["status"])
	assert.Equal(t, "c1", data["client_id"])
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(client)
	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel is closed on unregister")
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
	assert.Equal(t, 0, hub.ClientCount())

	// A second unregister is ignored.
	hub.Unregister(client)
	assert.Equal(t, int64(1), hub.Stats()["total_connections"])
}

func TestHub_PublishProgressReachesEveryClient(t *testing.T) {
	hub := startedHub(t)

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = testClient(hub, fmt.Sprintf("c%d", i), sendBuffer)
		hub.Register(clients[i])
		receive(t, clients[i])
	}

	ctx := infrastructure.WithTraceID(context.Background(), "sweep-trace")
	hub.PublishProgress(ctx, volarb.SweepProgress{RunID: "run-1", Window: 7, WindowsDone: 6, WindowsTotal: 38})

	for _, client := range clients {
		msg := receive(t, client)
		assert.Equal(t, TypeSweepProgress, msg.Type)
		assert.Equal(t, "sweep-trace", msg.TraceID)
		data := msg.Data.(map[string]interface{})
		assert.Equal(t, "run-1", data["run_id"])
		assert.Equal(t, float64(6), data["windows_done"])
		assert.Equal(t, float64(38), data["windows_total"])
	}
	assert.Eventually(t, func() bool {
		return hub.Stats()["messages_sent"] == int64(3)
	}, time.Second, 10*time.Millisecond)
}

func TestHub_PublishCompleteAndFailure(t *testing.T) {
	hub := startedHub(t)
	client := testClient(hub, "c1", sendBuffer)
	hub.Register(client)
	receive(t, client)

	ctx := context.Background()
	hub.PublishComplete(ctx, "run-2", "SPXL/SPY", volarb.Distribution{1.5, -2}, volarb.SweepStats{Windows: 38})
	done := receive(t, client)
	assert.Equal(t, TypeSweepComplete, done.Type)
	assert.Equal(t, float64(2), done.Data.(map[string]interface{})["levels"])

	hub.PublishFailure(ctx, "run-3", "SPXL/SPY", apperrors.NewEmptyResultError("no levels"))
	failed := receive(t, client)
	assert.Equal(t, TypeSweepFailed, failed.Type)
	data := failed.Data.(map[string]interface{})
	assert.Equal(t, "EMPTY_RESULT", data["error_code"])
	assert.Equal(t, "run-3", data["run_id"])
}

func TestHub_SlowClientIsDisconnected(t *testing.T) {
	hub := startedHub(t)
	slow := testClient(hub, "slow", 0)
	hub.Register(slow)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.PublishProgress(context.Background(), volarb.SweepProgress{RunID: "run"})

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-slow.send
	assert.False(t, ok)
	assert.Equal(t, int64(1), hub.Stats()["messages_dropped"])
}

func TestHub_StopDisconnectsAndUnblocks(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	hub.Start()

	client := testClient(hub, "c1", sendBuffer)
	hub.Register(client)
	receive(t, client)

	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok)

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 2*sendBuffer; i++ {
			hub.PublishProgress(context.Background(), volarb.SweepProgress{})
		}
		hub.Register(testClient(hub, "late", 1))
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("publishing after Stop blocked")
	}
}

func TestHub_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	hub := NewHub(testLogger(), metrics)
	hub.Start()
	t.Cleanup(hub.Stop)

	client := testClient(hub, "c1", sendBuffer)
	hub.Register(client)
	receive(t, client)
	hub.PublishProgress(context.Background(), volarb.SweepProgress{RunID: "run"})
	receive(t, client)

	collect := func() map[string]int64 {
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))

		sums := map[string]int64{}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
					for _, dp := range sum.DataPoints {
						sums[m.Name] += dp.Value
					}
				}
			}
		}
		return sums
	}

	assert.Eventually(t, func() bool {
		return collect()["websocket_messages_sent_total"] == 1
	}, time.Second, 10*time.Millisecond)

	sums := collect()
	assert.Equal(t, int64(1), sums["websocket_connections_total"])
	assert.Equal(t, int64(1), sums["websocket_connections_active"])
}
