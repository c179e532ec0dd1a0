package cleaner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/salesiq/internal/sales"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{"120", 120, true},
		{"1,200 mtr", 1200, true},
		{"  45.5 meters", 45.5, true},
		{"approx 300", 300, true},
		{"tyy", 0, false},
		{"GFH", 0, false},
		{"something", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
		{",", 0, false},
		{"12 rolls of 50", 12, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseQuantity(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestParseRate(t *testing.T) {
	assert.Equal(t, 85.5, ParseRate("85.5"))
	assert.Equal(t, 90.0, ParseRate(" 90 "))
	assert.Equal(t, 0.0, ParseRate("ninety"))
	assert.Equal(t, 0.0, ParseRate(""))
	assert.Equal(t, 0.0, ParseRate("NaN"))
	assert.Equal(t, 0.0, ParseRate("1,200"))
}

func TestParseDatePlainAndISOAgree(t *testing.T) {
	want := time.Date(2025, time.May, 28, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		"2025-05-28",
		"2025-05-28T23:30:00.000Z",
		"2025-05-28T01:00:00+05:30",
		"2025-05-28 10:11:12",
		"2025/05/28",
	} {
		got, ok := ParseDate(raw)
		require.True(t, ok, raw)
		assert.True(t, got.Equal(want), "%s parsed as %s", raw, got)
	}

	_, ok := ParseDate("yesterday")
	assert.False(t, ok)
}

func TestCleanKeepsEveryRowAndSourceFields(t *testing.T) {
	rows := []sales.Record{
		{ID: "1", Quantity: "10", Rate: "5", Status: sales.StatusDeclined, Date: "2025-05-01"},
		{ID: "2", Quantity: "mxm", Rate: "abc", Status: sales.StatusConfirmed},
	}
	got := Clean(rows)
	require.Len(t, got, 2)

	assert.Equal(t, 50.0, got[0].Revenue())
	assert.True(t, got[0].HasDate)
	assert.Equal(t, sales.StatusDeclined, got[0].Status)

	assert.Equal(t, 0.0, got[1].Revenue())
	assert.False(t, got[1].QuantityValid)
	assert.False(t, got[1].HasDate)
	assert.Equal(t, sales.Text("mxm"), got[1].Quantity)
}
