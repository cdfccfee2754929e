package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volarb/internal/volarb"
)

// mockConnection records writes and replays scripted reads
type mockConnection struct {
	mu      sync.Mutex
	written [][]byte
	types   []int
	reads   chan error
	closed  bool
}

func newMockConnection() *mockConnection {
	return &mockConnection{reads: make(chan error, 1)}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	m.types = append(m.types, messageType)
	m.written = append(m.written, data)
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	return 0, nil, <-m.reads
}

func (m *mockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }
func (m *mockConnection) SetReadLimit(int64)               {}
func (m *mockConnection) SetPongHandler(func(string) error) {}
func (m *mockConnection) RemoteAddr() string               { return "10.0.0.1:4000" }

func (m *mockConnection) snapshot() ([]int, [][]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.types...), append([][]byte(nil), m.written...), m.closed
}

func TestClient_PumpsWithMockConnection(t *testing.T) {
	hub := startedHub(t)
	conn := newMockConnection()
	client := NewClient(hub, conn, "trace-x", testLogger())
	assert.Equal(t, "10.0.0.1:4000", client.remoteAddr)
	assert.NotEmpty(t, client.ID())

	hub.Register(client)
	go client.WritePump()
	go client.ReadPump()

	assert.Eventually(t, func() bool {
		_, written, _ := conn.snapshot()
		return len(written) == 1
	}, time.Second, 10*time.Millisecond)

	// The peer going away unregisters the client and ends both pumps.
	conn.reads <- &websocket.CloseError{Code: websocket.CloseNormalClosure}

	assert.Eventually(t, func() bool {
		types, _, closed := conn.snapshot()
		return closed && hub.ClientCount() == 0 && len(types) >= 1
	}, time.Second, 10*time.Millisecond)

	types, written, _ := conn.snapshot()
	assert.Equal(t, websocket.TextMessage, types[0])
	var hello Message
	require.NoError(t, json.Unmarshal(written[0], &hello))
	assert.Equal(t, TypeConnection, hello.Type)
	assert.Equal(t, "trace-x", hello.TraceID)
}

func TestHandler_StreamsSweepProgress(t *testing.T) {
	hub := startedHub(t)
	server := httptest.NewServer(NewHandler(hub, nil, testLogger()))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, TypeConnection, hello.Type)

	hub.PublishProgress(context.Background(), volarb.SweepProgress{RunID: "run-9", WindowsDone: 1, WindowsTotal: 2})

	var progress Message
	require.NoError(t, conn.ReadJSON(&progress))
	assert.Equal(t, TypeSweepProgress, progress.Type)
	assert.Equal(t, "run-9", progress.Data.(map[string]interface{})["run_id"])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 20*time.Millisecond)
}
