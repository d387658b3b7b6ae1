package platform

import (
	"context"
)

// KlineQuery asks a source for up to Limit klines opening within [StartTime, EndTime].
type KlineQuery struct {
	Symbol    string
	Interval  string
	Limit     int
	StartTime int64
	EndTime   int64
}

// History is a paginated kline source.
// Klines returns candles ordered by open time; an empty slice means no more data.
type History interface {
	Klines(ctx context.Context, q KlineQuery) (candles []Candle, err error)
}

// Window is a closed range of kline open times, in epoch millis.
type Window struct {
	Start    int64
	End      int64
	Interval int64
}

// Estimate is the expected number of klines in the window. Advisory only.
func (w Window) Estimate() int64 {
	if w.Interval <= 0 {
		return 0
	}
	return (w.End - w.Start) / w.Interval
}
