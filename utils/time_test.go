package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWeekStart(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "monday maps to itself at midnight",
			in:   time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC),
			want: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "wednesday maps back to monday",
			in:   time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday still belongs to the running week",
			in:   time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC),
			want: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "month boundary",
			in:   time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), // 周五
			want: time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, WeekStart(tc.in))
		})
	}
}

func TestWeekStartKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	in := time.Date(2024, 3, 6, 9, 0, 0, 0, loc)
	got := WeekStart(in)

	require.Equal(t, loc, got.Location(), "week boundary is computed in the caller's local calendar")
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, loc), got)
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	require.Equal(t, 0, DaysBetween(base, base))
	require.Equal(t, 0, DaysBetween(base, base.Add(23*time.Hour)))
	require.Equal(t, 1, DaysBetween(base, base.Add(24*time.Hour)))
	require.Equal(t, 6, DaysBetween(base, base.Add(7*24*time.Hour-time.Minute)), "partial days round down")
	require.Equal(t, 7, DaysBetween(base, base.Add(7*24*time.Hour)))
	require.Equal(t, -1, DaysBetween(base, base.Add(-25*time.Hour)))
}

func TestLoadLocation(t *testing.T) {
	loc := LoadLocation("Asia/Tokyo")
	require.Equal(t, "Asia/Tokyo", loc.String())

	// 未知名称回退到配置的默认时区
	fallback := LoadLocation("Not/AZone")
	require.NotNil(t, fallback)

	empty := LoadLocation("")
	require.NotNil(t, empty)
}
