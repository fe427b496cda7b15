package execution

import (
	"errors"
	"testing"
	"time"

	"equity-backtest-lab/internal/domain"
)

func TestResolveBarDailyData(t *testing.T) {
	day := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	s := mustSeries(t, []domain.Bar{{
		Timestamp: day,
		Open:      100, High: 101, Low: 99, Close: 100,
		Volume: 1_000_000,
	}})

	// Any time-of-day on the date resolves to the single daily bar.
	bar, err := resolveBar(s, day.Add(14*time.Hour+30*time.Minute))
	if err != nil {
		t.Fatalf("resolveBar: %v", err)
	}
	if !bar.Timestamp.Equal(day) {
		t.Errorf("resolved %s, want %s", bar.Timestamp, day)
	}
}

func TestResolveBarIntraday(t *testing.T) {
	day := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	s := mustSeries(t, []domain.Bar{
		{Timestamp: day.Add(10 * time.Hour), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		{Timestamp: day.Add(11 * time.Hour), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		{Timestamp: day.Add(12 * time.Hour), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
	})

	// Exact match.
	bar, err := resolveBar(s, day.Add(11*time.Hour))
	if err != nil {
		t.Fatalf("resolveBar: %v", err)
	}
	if !bar.Timestamp.Equal(day.Add(11 * time.Hour)) {
		t.Errorf("exact: resolved %s", bar.Timestamp)
	}

	// Between bars: first bar at or after the requested time.
	bar, err = resolveBar(s, day.Add(10*time.Hour+30*time.Minute))
	if err != nil {
		t.Fatalf("resolveBar: %v", err)
	}
	if !bar.Timestamp.Equal(day.Add(11 * time.Hour)) {
		t.Errorf("between: resolved %s, want 11:00", bar.Timestamp)
	}

	// After the last bar of the day: fall back to the last bar.
	bar, err = resolveBar(s, day.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("resolveBar: %v", err)
	}
	if !bar.Timestamp.Equal(day.Add(12 * time.Hour)) {
		t.Errorf("after: resolved %s, want 12:00", bar.Timestamp)
	}
}

func TestResolveBarNoBars(t *testing.T) {
	s := dailySeries(t, 3)
	_, err := resolveBar(s, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrNoBars) {
		t.Errorf("resolveBar = %v, want ErrNoBars", err)
	}
}
