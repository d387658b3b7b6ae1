package binance

import (
	"fmt"
	"time"

	"github.com/WinPooh32/klinedump/platform"
)

const DateLayout = "2006-01-02"

const (
	second = 1000
	minute = 60 * second
	hour   = 60 * minute
	day    = 24 * hour
	week   = 7 * day
	month  = 30 * day
)

var intervals = map[string]int64{
	"1s":  second,
	"1m":  minute,
	"3m":  3 * minute,
	"5m":  5 * minute,
	"15m": 15 * minute,
	"30m": 30 * minute,
	"1h":  hour,
	"2h":  2 * hour,
	"4h":  4 * hour,
	"6h":  6 * hour,
	"8h":  8 * hour,
	"12h": 12 * hour,
	"1d":  day,
	"3d":  3 * day,
	"1w":  week,
	"1M":  month,
}

// IntervalMillis returns the nominal duration of one kline of the given interval code.
func IntervalMillis(code string) (int64, error) {
	ms, ok := intervals[code]
	if !ok {
		return 0, &platform.ConfigError{Reason: fmt.Sprintf("invalid interval %q", code)}
	}
	return ms, nil
}

// ResolveWindow maps an inclusive calendar date range to [00:00:00 of start, 23:59:59 of end] UTC.
func ResolveWindow(startDate, endDate, interval string) (w platform.Window, err error) {
	w.Interval, err = IntervalMillis(interval)
	if err != nil {
		return w, err
	}

	start, err := time.ParseInLocation(DateLayout, startDate, time.UTC)
	if err != nil {
		return w, &platform.ConfigError{Reason: "invalid start date", Err: err}
	}
	end, err := time.ParseInLocation(DateLayout, endDate, time.UTC)
	if err != nil {
		return w, &platform.ConfigError{Reason: "invalid end date", Err: err}
	}
	if end.Before(start) {
		return w, &platform.ConfigError{Reason: fmt.Sprintf("end date %s is before start date %s", endDate, startDate)}
	}

	w.Start = start.UnixMilli()
	w.End = end.Add(23*time.Hour + 59*time.Minute + 59*time.Second).UnixMilli()
	return w, nil
}
