package testutil

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("derived loggers share the buffer and keep attrs", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "analyzer")).Info("sweep done")

		record, ok := handler.FindMessage("sweep")
		require.True(t, ok)
		assert.Equal(t, "analyzer", record.Attrs["component"])
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.Info("one")
		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})
}

func TestPriceFixtures(t *testing.T) {
	base := RandomWalk(1, 50, 100, 0.01)
	require.Len(t, base, 50)
	assert.Equal(t, base, RandomWalk(1, 50, 100, 0.01))

	lev := Leveraged(base, 3)
	assert.Equal(t, base[0], lev[0])
	assert.InDelta(t, 3*(base[1]/base[0]-1), lev[1]/lev[0]-1, 1e-12)

	csv := PriceCSV(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), []float64{1, 2})
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	assert.Equal(t, []string{"Date,Close", "2024-01-01,1.000000", "2024-01-02,2.000000"}, lines)
}
