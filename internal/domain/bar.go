package domain

import "time"

// Bar represents one OHLCV price bar.
// Timestamps are tz-naive wall-clock values, normalized before entering the
// core; a series of bars is strictly increasing by Timestamp.
type Bar struct {
	Symbol    string    // instrument symbol
	Timestamp time.Time // bar timestamp (session date for daily bars)
	Open      float64   // opening price
	High      float64   // session/interval high
	Low       float64   // session/interval low
	Close     float64   // closing price
	Volume    float64   // traded volume in shares
}

// Quote represents the last known trade price for a symbol.
type Quote struct {
	Symbol string    // instrument symbol
	Time   time.Time // time of the last trade
	Price  float64   // last trade price
}

// Supported history intervals.
const (
	IntervalDaily  = "1d"
	Interval1Min   = "1m"
	Interval5Min   = "5m"
	Interval30Min  = "30m"
	IntervalHourly = "1h"
)
