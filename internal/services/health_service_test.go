package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockHub struct {
	mock.Mock
}

func (m *mockHub) ClientCount() int {
	return m.Called().Int(0)
}

func (m *mockHub) Stats() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func TestHealthService_HealthCheck(t *testing.T) {
	hs := NewHealthService("1.2.0", "", nil, discardLogger())

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.0", status.Version)
	assert.False(t, status.Timestamp.IsZero())
}

func TestHealthService_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		hub        func() HubStatus
		wantStatus string
	}{
		{
			name:       "no hub",
			hub:        func() HubStatus { return nil },
			wantStatus: "ready",
		},
		{
			name: "hub running",
			hub: func() HubStatus {
				h := &mockHub{}
				h.On("Stats").Return(map[string]interface{}{"running": true})
				return h
			},
			wantStatus: "ready",
		},
		{
			name: "hub stopped",
			hub: func() HubStatus {
				h := &mockHub{}
				h.On("Stats").Return(map[string]interface{}{"running": false})
				return h
			},
			wantStatus: "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := NewHealthService("dev", "", tt.hub(), discardLogger())
			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Contains(t, status.Services, "websocket")
		})
	}
}

func TestHealthService_LivenessCheck(t *testing.T) {
	hub := &mockHub{}
	hub.On("ClientCount").Return(4)

	hs := NewHealthService("dev", "", hub, discardLogger())
	status := hs.LivenessCheck(context.Background())

	assert.Equal(t, "alive", status.Status)
	assert.Equal(t, 4, status.Runtime["websocket_clients"])
	assert.Contains(t, status.Runtime, "go_version")
	hub.AssertExpectations(t)
}

func TestHealthService_Version(t *testing.T) {
	hs := NewHealthService("1.2.0", "2026-10-01T00:00:00Z", nil, discardLogger())

	info := hs.Version()
	assert.Equal(t, "1.2.0", info["version"])
	assert.Equal(t, "2026-10-01T00:00:00Z", info["build_time"])

	info = NewHealthService("1.2.0", "", nil, discardLogger()).Version()
	assert.NotContains(t, info, "build_time")
}
