package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestForMonth(t *testing.T) {
	t.Parallel()

	r := ForMonth(date(2026, time.February, 17))
	require.Equal(t, "2026-02-01", r.FromISO())
	require.Equal(t, "2026-02-28", r.ToISO())

	r = ForMonth(date(2024, time.February, 1))
	require.Equal(t, "2024-02-29", r.ToISO())
}

func TestPreviousMonthAcrossYearBoundary(t *testing.T) {
	t.Parallel()

	r := PreviousMonth(date(2026, time.January, 9))
	require.Equal(t, "2025-12-01", r.FromISO())
	require.Equal(t, "2025-12-31", r.ToISO())
}

func TestPreviousQuarter(t *testing.T) {
	t.Parallel()

	r := PreviousQuarter(date(2026, time.February, 15))
	require.Equal(t, "2025-11-01", r.FromISO())
	require.Equal(t, "2026-01-31", r.ToISO())
}

func TestForward(t *testing.T) {
	t.Parallel()

	r := Forward(date(2026, time.March, 3), 6)
	require.Equal(t, "2026-03-01", r.FromISO())
	require.Equal(t, "2026-08-31", r.ToISO())

	r = Forward(date(2026, time.March, 3), 0)
	require.Equal(t, "2026-03-31", r.ToISO())
}

func TestExplicit(t *testing.T) {
	t.Parallel()

	r := Explicit(2025, time.November, 2026, time.January)
	require.Equal(t, "2025-11-01", r.FromISO())
	require.Equal(t, "2026-01-31", r.ToISO())
}

func TestDefault(t *testing.T) {
	t.Parallel()

	r, ok := Default("2026-04-10")
	require.True(t, ok)
	require.Equal(t, "2026-04-01", r.FromISO())
	require.Equal(t, "2026-04-30", r.ToISO())

	_, ok = Default("not a date")
	require.False(t, ok)

	require.Empty(t, Range{}.FromISO())
	require.Empty(t, Range{}.ToISO())
}
