package biztime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleDate(t *testing.T) {
	require.NoError(t, Init(""))

	// Default business timezone is UTC.
	ts := time.Date(2026, 9, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-01", CycleDate(ts))
}

func TestStartAndEndOfDayUTC(t *testing.T) {
	require.NoError(t, Init(""))

	ts := time.Date(2026, 9, 1, 15, 45, 12, 0, time.UTC)

	start := StartOfDayUTC(ts)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), start)

	end := EndOfDayUTC(ts)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.True(t, end.After(start))
}

func TestNowUTC(t *testing.T) {
	now := NowUTC()
	assert.Equal(t, time.UTC, now.Location())
}
