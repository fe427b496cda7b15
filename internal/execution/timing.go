package execution

import (
	"errors"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/series"
)

// ErrNoBars is returned when the requested date has no bars in the series.
var ErrNoBars = errors.New("no bars on requested date")

// Regular session boundaries, minutes from midnight (09:30-16:00).
const (
	sessionOpenMinutes  = 9*60 + 30
	sessionCloseMinutes = 16 * 60
)

// resolveBar picks the execution bar for a requested time: the first bar of
// the day at or after the requested time-of-day, falling back to the last
// bar of the day. A day with a single bar (daily data) resolves to that
// bar.
func resolveBar(s *series.BarSeries, requested time.Time) (domain.Bar, error) {
	dayBars := s.BarsOn(requested)
	if len(dayBars) == 0 {
		return domain.Bar{}, ErrNoBars
	}
	if len(dayBars) == 1 {
		return dayBars[0], nil
	}
	for _, b := range dayBars {
		if !b.Timestamp.Before(requested) {
			return b, nil
		}
	}
	return dayBars[len(dayBars)-1], nil
}

// withinMarketHours reports whether the bar's time-of-day falls inside the
// regular 09:30-16:00 session. A bar that is the only bar of its session
// (daily data) is the session by construction and always passes.
func withinMarketHours(s *series.BarSeries, bar domain.Bar) bool {
	if len(s.BarsOn(bar.Timestamp)) == 1 {
		return true
	}
	minutes := bar.Timestamp.Hour()*60 + bar.Timestamp.Minute()
	return minutes >= sessionOpenMinutes && minutes <= sessionCloseMinutes
}
