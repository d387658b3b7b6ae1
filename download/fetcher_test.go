package download

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/WinPooh32/klinedump/platform"
	"github.com/WinPooh32/klinedump/provider/binance"
)

func runFetcher(t *testing.T, source platform.History, opt FetcherOptions, w platform.Window) ([]platform.Batch, *Fetcher, error) {
	t.Helper()

	if opt.MinRequestInterval == 0 {
		opt.MinRequestInterval = NoRequestInterval
	}

	out := make(chan platform.Batch)
	done := make(chan []platform.Batch)
	go func() {
		var got []platform.Batch
		for b := range out {
			got = append(got, b)
		}
		done <- got
	}()

	f := NewFetcher(source, opt, nil, zaptest.NewLogger(t))
	err := f.Run(context.Background(), w, out)
	close(out)
	return <-done, f, err
}

func flatten(batches []platform.Batch) []platform.Kline {
	var klines []platform.Kline
	for _, b := range batches {
		klines = append(klines, b...)
	}
	return klines
}

func TestFetcherPaginatesWholeDay(t *testing.T) {
	w, err := binance.ResolveWindow("2024-01-01", "2024-01-01", "1m")
	require.NoError(t, err)

	const minute = 60_000
	source := &seriesSource{candles: makeSeries(w.Start-10*minute, minute, 1500)}
	batches, f, err := runFetcher(t, source, FetcherOptions{Symbol: "BTCUSDT", Interval: "1m"}, w)
	require.NoError(t, err)

	klines := flatten(batches)
	require.Len(t, klines, 1440)
	assert.Equal(t, int64(1440), f.Fetched())

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 1000)
	assert.Len(t, batches[1], 440)

	for i, k := range klines {
		assert.GreaterOrEqual(t, k.Time, w.Start)
		assert.LessOrEqual(t, k.Time, w.End)
		if i > 0 {
			assert.Greater(t, k.Time, klines[i-1].Time, "open times must increase")
		}
	}
	assert.Equal(t, "2024-01-01T00:00:00Z", klines[0].OpenTime)
	assert.Equal(t, "2024-01-01T23:59:00Z", klines[len(klines)-1].OpenTime)

	// 1000 rows, 440 rows, then an empty page.
	require.Len(t, source.queries, 3)
	assert.Equal(t, 3, f.Pages())
	assert.Equal(t, w.Start, source.queries[0].StartTime)
	assert.Equal(t, klines[999].Time+1, source.queries[1].StartTime)
	assert.Equal(t, klines[1439].Time+1, source.queries[2].StartTime)
	for _, q := range source.queries {
		assert.Equal(t, w.End, q.EndTime)
		assert.Equal(t, 1000, q.Limit)
		assert.Equal(t, "BTCUSDT", q.Symbol)
		assert.Equal(t, "1m", q.Interval)
	}
}

func TestFetcherCursorNeverRepeatsRecords(t *testing.T) {
	w, err := binance.ResolveWindow("2024-03-01", "2024-03-05", "1h")
	require.NoError(t, err)

	const hour = 3_600_000
	source := &seriesSource{candles: makeSeries(w.Start, hour, 24*5)}
	batches, _, err := runFetcher(t, source, FetcherOptions{Interval: "1h", Limit: 7, BatchSize: 10}, w)
	require.NoError(t, err)

	klines := flatten(batches)
	require.Len(t, klines, 120)

	seen := make(map[int64]bool, len(klines))
	for _, k := range klines {
		assert.False(t, seen[k.Time], "duplicate open time %d", k.Time)
		seen[k.Time] = true
	}
	for _, b := range batches[:len(batches)-1] {
		assert.Len(t, b, 10)
	}

	for i := 1; i < len(source.queries); i++ {
		prev, cur := source.queries[i-1], source.queries[i]
		assert.Greater(t, cur.StartTime, prev.StartTime)
	}
}

func TestFetcherFiltersOutOfRange(t *testing.T) {
	w, err := binance.ResolveWindow("2024-01-01", "2024-01-03", "1d")
	require.NoError(t, err)

	const day = 86_400_000
	source := &scriptedSource{pages: [][]platform.Candle{
		// A stale row before the cursor, three in range, two past the end.
		makeSeries(w.Start-day, day, 6),
	}}
	batches, _, err := runFetcher(t, source, FetcherOptions{Interval: "1d"}, w)
	require.NoError(t, err)

	klines := flatten(batches)
	require.Len(t, klines, 3)
	assert.Equal(t, "2024-01-01T00:00:00Z", klines[0].OpenTime)
	assert.Equal(t, "2024-01-02T00:00:00Z", klines[1].OpenTime)
	assert.Equal(t, "2024-01-03T00:00:00Z", klines[2].OpenTime)

	// The page reached past the window end, so no further request is made.
	assert.Len(t, source.queries, 1)
}

func TestFetcherEmptyFirstPage(t *testing.T) {
	w, err := binance.ResolveWindow("2024-01-01", "2024-01-03", "1d")
	require.NoError(t, err)

	source := &scriptedSource{}
	batches, f, err := runFetcher(t, source, FetcherOptions{Interval: "1d"}, w)
	require.NoError(t, err)
	assert.Empty(t, batches)
	assert.Equal(t, 1, f.Pages())
}

func TestFetcherSourceError(t *testing.T) {
	w, err := binance.ResolveWindow("2024-01-01", "2024-01-31", "1d")
	require.NoError(t, err)

	const day = 86_400_000
	failure := &platform.FetchError{Status: 418, Err: errors.New("teapot")}
	source := &scriptedSource{
		pages: [][]platform.Candle{makeSeries(w.Start, day, 5)},
		errs:  []error{nil, failure},
	}
	batches, _, err := runFetcher(t, source, FetcherOptions{Interval: "1d"}, w)

	var ferr *platform.FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, 418, ferr.Status)
	// Klines of the partial batch are not handed off on failure.
	assert.Empty(t, batches)
	assert.Len(t, source.queries, 2)
}

func TestFetcherCursorRegression(t *testing.T) {
	w, err := binance.ResolveWindow("2024-01-01", "2024-01-31", "1d")
	require.NoError(t, err)

	const day = 86_400_000
	source := &scriptedSource{pages: [][]platform.Candle{
		makeSeries(w.Start, day, 3),
		makeSeries(w.Start, day, 2),
	}}
	_, _, err = runFetcher(t, source, FetcherOptions{Interval: "1d"}, w)

	var ferr *platform.FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Contains(t, err.Error(), "before cursor")
}

func TestFetcherRateLimit(t *testing.T) {
	w, err := binance.ResolveWindow("2024-01-01", "2024-01-01", "1h")
	require.NoError(t, err)

	const hour = 3_600_000
	source := &seriesSource{candles: makeSeries(w.Start, hour, 24)}
	opt := FetcherOptions{Interval: "1h", Limit: 10, MinRequestInterval: 50 * time.Millisecond}
	_, _, err = runFetcher(t, source, opt, w)
	require.NoError(t, err)

	// 10 + 10 + 4 rows, then an empty page.
	require.Len(t, source.calls, 4)
	for i := 1; i < len(source.calls); i++ {
		assert.GreaterOrEqual(t, source.calls[i].Sub(source.calls[i-1]), 40*time.Millisecond)
	}
}

func TestFetcherStopsOnCancel(t *testing.T) {
	w, err := binance.ResolveWindow("2024-01-01", "2024-12-31", "1m")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan platform.Batch)

	f := NewFetcher(&endlessSource{step: 60_000}, FetcherOptions{Interval: "1m", MinRequestInterval: NoRequestInterval}, nil, zaptest.NewLogger(t))

	errc := make(chan error, 1)
	go func() { errc <- f.Run(ctx, w, out) }()

	<-out
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("fetcher did not stop")
	}
}

func TestNewFetcherClampsBatchSize(t *testing.T) {
	f := NewFetcher(&scriptedSource{}, FetcherOptions{BatchSize: 5000}, nil, zaptest.NewLogger(t))
	assert.Equal(t, platform.MaxBatchSize, f.opt.BatchSize)
	assert.Equal(t, DefaultLimit, f.opt.Limit)
}

func TestNewFetcherRequestInterval(t *testing.T) {
	tests := map[string]struct {
		interval time.Duration
		want     rate.Limit
	}{
		"zero means default": {0, rate.Every(DefaultMinRequestInterval)},
		"explicit":           {250 * time.Millisecond, rate.Every(250 * time.Millisecond)},
		"disabled":           {NoRequestInterval, rate.Inf},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := NewFetcher(&scriptedSource{}, FetcherOptions{MinRequestInterval: tt.interval}, nil, zaptest.NewLogger(t))
			assert.Equal(t, tt.want, f.limiter.Limit())
		})
	}
}
