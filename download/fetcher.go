package download

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/WinPooh32/klinedump/platform"
)

const (
	DefaultLimit              = 1000
	DefaultMinRequestInterval = time.Second

	// NoRequestInterval lifts the floor between requests.
	NoRequestInterval time.Duration = -1
)

type FetcherOptions struct {
	Symbol    string
	Interval  string
	Limit     int
	BatchSize int

	// MinRequestInterval is the floor between two requests. Zero means
	// DefaultMinRequestInterval, a negative value disables the limit.
	MinRequestInterval time.Duration
}

// Fetcher walks a window page by page and hands klines off in batches.
type Fetcher struct {
	source   platform.History
	opt      FetcherOptions
	limiter  *rate.Limiter
	progress Progress
	log      *zap.Logger

	pages   int
	fetched int64
}

func NewFetcher(source platform.History, opt FetcherOptions, progress Progress, log *zap.Logger) *Fetcher {
	if opt.Limit <= 0 {
		opt.Limit = DefaultLimit
	}
	if opt.BatchSize <= 0 || opt.BatchSize > platform.MaxBatchSize {
		opt.BatchSize = platform.MaxBatchSize
	}
	if progress == nil {
		progress = NopProgress{}
	}

	if opt.MinRequestInterval == 0 {
		opt.MinRequestInterval = DefaultMinRequestInterval
	}

	limit := rate.Inf
	if opt.MinRequestInterval > 0 {
		limit = rate.Every(opt.MinRequestInterval)
	}

	return &Fetcher{
		source:   source,
		opt:      opt,
		limiter:  rate.NewLimiter(limit, 1),
		progress: progress,
		log:      log,
	}
}

// Pages is the number of requests that returned a page.
func (f *Fetcher) Pages() int { return f.pages }

// Fetched is the number of klines handed off.
func (f *Fetcher) Fetched() int64 { return f.fetched }

// Run pages through w until the window is exhausted or the source runs dry.
// It never closes out.
func (f *Fetcher) Run(ctx context.Context, w platform.Window, out chan<- platform.Batch) error {
	var (
		cursor = w.Start
		batch  = make(platform.Batch, 0, f.opt.BatchSize)
	)

	for cursor <= w.End {
		if err := f.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		candles, err := f.source.Klines(ctx, platform.KlineQuery{
			Symbol:    f.opt.Symbol,
			Interval:  f.opt.Interval,
			Limit:     f.opt.Limit,
			StartTime: cursor,
			EndTime:   w.End,
		})
		if err != nil {
			return err
		}
		f.pages++

		if len(candles) == 0 {
			f.log.Debug("empty page", zap.Int64("cursor", cursor))
			break
		}

		var (
			floor    = cursor
			accepted = 0
		)
		for _, c := range candles {
			if c.Time < floor || c.Time > w.End {
				continue
			}
			floor = c.Time + 1

			batch = append(batch, platform.MakeKline(c))
			accepted++

			if len(batch) == f.opt.BatchSize {
				if err := f.send(ctx, out, batch); err != nil {
					return err
				}
				batch = make(platform.Batch, 0, f.opt.BatchSize)
			}
		}
		f.fetched += int64(accepted)
		_ = f.progress.Add(accepted)

		last := candles[len(candles)-1].Time

		f.log.Debug("page fetched",
			zap.Int64("cursor", cursor),
			zap.Int("rows", len(candles)),
			zap.Int("accepted", accepted),
			zap.Int64("last", last),
		)

		if last < cursor {
			return &platform.FetchError{Err: fmt.Errorf("page ends at %d before cursor %d", last, cursor)}
		}
		if last >= w.End {
			break
		}
		cursor = last + 1
	}

	if len(batch) > 0 {
		return f.send(ctx, out, batch)
	}
	return nil
}

func (f *Fetcher) send(ctx context.Context, out chan<- platform.Batch, batch platform.Batch) error {
	select {
	case out <- batch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hand off batch: %w", ctx.Err())
	}
}
