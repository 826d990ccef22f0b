package valueobjects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCadence(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "recurring weekly", value: "recurring_weekly"},
		{name: "recurring biweekly", value: "recurring_biweekly"},
		{name: "recurring monthly", value: "recurring_monthly"},
		{name: "recurring quarterly", value: "recurring_quarterly"},
		{name: "recurring yearly", value: "recurring_yearly"},
		{name: "spontaneous weekly", value: "spontaneous_weekly"},
		{name: "spontaneous biweekly", value: "spontaneous_biweekly"},
		{name: "spontaneous monthly", value: "spontaneous_monthly"},
		{name: "empty", value: "", wantErr: true},
		{name: "unknown", value: "recurring_daily", wantErr: true},
		{name: "case sensitive", value: "Recurring_Weekly", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCadence(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.value, c.String())
		})
	}
}

func TestCadence_NextDate(t *testing.T) {
	from := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cadence Cadence
		want    time.Time
	}{
		{"weekly", CadenceRecurringWeekly, from.AddDate(0, 0, 7)},
		{"biweekly", CadenceRecurringBiweekly, from.AddDate(0, 0, 14)},
		{"monthly", CadenceRecurringMonthly, from.AddDate(0, 1, 0)},
		{"quarterly", CadenceRecurringQuarterly, from.AddDate(0, 3, 0)},
		{"yearly", CadenceRecurringYearly, from.AddDate(1, 0, 0)},
		{"spontaneous weekly", CadenceSpontaneousWeekly, from.AddDate(0, 0, 7)},
		{"spontaneous biweekly", CadenceSpontaneousBiweekly, from.AddDate(0, 0, 7)},
		{"spontaneous monthly", CadenceSpontaneousMonthly, from.AddDate(0, 0, 7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cadence.NextDate(from))
		})
	}
}

func TestCadence_NextDate_MonthEndNormalization(t *testing.T) {
	// Jan 31 + 1 month lands on Mar 2/3 via Go date normalization; the
	// step stays deterministic either way.
	from := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	got := CadenceRecurringMonthly.NextDate(from)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), got)
}

func TestCadence_IsSpontaneous(t *testing.T) {
	assert.True(t, CadenceSpontaneousWeekly.IsSpontaneous())
	assert.True(t, CadenceSpontaneousBiweekly.IsSpontaneous())
	assert.True(t, CadenceSpontaneousMonthly.IsSpontaneous())
	assert.False(t, CadenceRecurringWeekly.IsSpontaneous())
	assert.False(t, CadenceRecurringYearly.IsSpontaneous())
}
