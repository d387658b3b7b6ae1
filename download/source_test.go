package download

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/WinPooh32/klinedump/platform"
)

func millis(y int, m time.Month, d, h, min int) int64 {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC).UnixMilli()
}

func makeSeries(start, step int64, n int) []platform.Candle {
	candles := make([]platform.Candle, 0, n)
	for i := 0; i < n; i++ {
		t := start + int64(i)*step
		price := strconv.Itoa(100 + i%7)
		candles = append(candles, platform.Candle{
			Time:                t,
			Open:                price,
			High:                price,
			Low:                 price,
			Close:               price,
			Volume:              "1.5",
			TimeClose:           t + step - 1,
			VolumeQuote:         "150",
			CountTrades:         int64(i),
			VolumeTakerBuyBase:  "0.5",
			VolumeTakerBuyQuote: "50",
			Ignore:              "0",
		})
	}
	return candles
}

// seriesSource answers like the exchange: up to Limit candles inside [StartTime, EndTime].
type seriesSource struct {
	mu      sync.Mutex
	candles []platform.Candle
	queries []platform.KlineQuery
	calls   []time.Time
}

func (s *seriesSource) Klines(ctx context.Context, q platform.KlineQuery) ([]platform.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, q)
	s.calls = append(s.calls, time.Now())

	var out []platform.Candle
	for _, c := range s.candles {
		if c.Time < q.StartTime || c.Time > q.EndTime {
			continue
		}
		out = append(out, c)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// scriptedSource replays fixed pages, then empty pages.
type scriptedSource struct {
	pages   [][]platform.Candle
	errs    []error
	queries []platform.KlineQuery
}

func (s *scriptedSource) Klines(ctx context.Context, q platform.KlineQuery) ([]platform.Candle, error) {
	i := len(s.queries)
	s.queries = append(s.queries, q)

	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.pages) {
		return s.pages[i], nil
	}
	return nil, nil
}

// endlessSource always returns a full page starting at the cursor.
type endlessSource struct {
	step int64
}

func (s *endlessSource) Klines(ctx context.Context, q platform.KlineQuery) ([]platform.Candle, error) {
	return makeSeries(q.StartTime, s.step, q.Limit), nil
}
