package dates_test

import (
	"encoding/json"
	"testing"
	"time"

	"dayplanner/internal/dates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid date", input: "2026-02-05", wantErr: false},
		{name: "leap day", input: "2024-02-29", wantErr: false},
		{name: "invalid day", input: "2023-02-29", wantErr: true},
		{name: "wrong layout", input: "05.02.2026", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := dates.Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.input, d.String())
			}
		})
	}
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		name  string
		start string
		days  int
		want  string
	}{
		{name: "month rollover", start: "2026-01-30", days: 3, want: "2026-02-02"},
		{name: "leap year february", start: "2024-02-28", days: 1, want: "2024-02-29"},
		{name: "non leap february", start: "2023-02-28", days: 1, want: "2023-03-01"},
		{name: "year rollover", start: "2025-12-31", days: 1, want: "2026-01-01"},
		{name: "backwards across month", start: "2026-03-01", days: -1, want: "2026-02-28"},
		{name: "zero days", start: "2026-05-10", days: 0, want: "2026-05-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, err := dates.Parse(tt.start)
			require.NoError(t, err)
			assert.Equal(t, tt.want, start.AddDays(tt.days).String())
		})
	}
}

func TestWeekStrip(t *testing.T) {
	anchor, err := dates.Parse("2026-02-26")
	require.NoError(t, err)

	strip := dates.WeekStrip(anchor)
	require.Len(t, strip, 7)

	want := []string{
		"2026-02-26", "2026-02-27", "2026-02-28",
		"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04",
	}
	for i, d := range strip {
		assert.Equal(t, want[i], d.String())
	}
}

func TestOrdering(t *testing.T) {
	early, err := dates.Parse("2026-01-01")
	require.NoError(t, err)
	late, err := dates.Parse("2026-01-02")
	require.NoError(t, err)

	assert.True(t, early.Before(late))
	assert.True(t, late.After(early))
	assert.True(t, early.Equal(early))
	assert.False(t, early.Equal(late))
}

func TestFromTimeUsesLocalCalendarDay(t *testing.T) {
	// 23:30 on the 5th in UTC+2 is still the 5th locally, even though it is
	// already the 6th further east and still the 5th in UTC.
	loc := time.FixedZone("UTC+2", 2*60*60)
	moment := time.Date(2026, 2, 5, 23, 30, 0, 0, loc)

	assert.Equal(t, "2026-02-05", dates.FromTime(moment).String())
}

func TestJSONRoundTrip(t *testing.T) {
	d, err := dates.Parse("2026-02-05")
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-02-05"`, string(data))

	var decoded dates.Date
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, d.Equal(decoded))

	var bad dates.Date
	assert.Error(t, json.Unmarshal([]byte(`"not-a-date"`), &bad))
}
