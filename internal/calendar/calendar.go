// Package calendar resolves trading sessions around an anchor date from
// the sessions actually present in a bar series. No external holiday
// table: a trading session is a day on which the market produced bars.
package calendar

import (
	"errors"
	"time"

	"equity-backtest-lab/internal/series"
)

// Resolver errors.
var (
	// ErrInsufficientData is returned when fewer than the requested number
	// of sessions exist before or after the anchor within the target year.
	// The caller may retry with a smaller window.
	ErrInsufficientData = errors.New("not enough trading sessions around anchor")

	// ErrInvalidIndex is returned for a nil series or non-positive window
	// sizes. A constructed BarSeries is already sorted and deduplicated, so
	// this guards misuse rather than bad data.
	ErrInvalidIndex = errors.New("invalid series index or window")
)

// SessionsAround returns the trading sessions around the anchor date,
// restricted to the anchor's year: the last beforeDays sessions strictly
// preceding the anchor and the first afterDays sessions strictly following
// it. Both slices are ascending, deduplicated midnight timestamps drawn
// only from sessions present in the series. Pure and deterministic.
func SessionsAround(s *series.BarSeries, anchor time.Time, beforeDays, afterDays int) (pre, post []time.Time, err error) {
	if s == nil || s.Len() == 0 {
		return nil, nil, ErrInvalidIndex
	}
	if beforeDays <= 0 || afterDays <= 0 {
		return nil, nil, ErrInvalidIndex
	}

	anchorDay := series.DayOf(anchor)
	year := anchor.Year()

	var before, after []time.Time
	for _, d := range s.SessionDates() {
		if d.Year() != year {
			continue
		}
		switch {
		case d.Before(anchorDay):
			before = append(before, d)
		case d.After(anchorDay):
			after = append(after, d)
		}
	}

	if len(before) < beforeDays || len(after) < afterDays {
		return nil, nil, ErrInsufficientData
	}

	pre = before[len(before)-beforeDays:]
	post = after[:afterDays]
	return pre, post, nil
}
