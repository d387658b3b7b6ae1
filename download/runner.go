package download

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/WinPooh32/klinedump/history"
	"github.com/WinPooh32/klinedump/platform"
	"github.com/WinPooh32/klinedump/provider/binance"
)

const DefaultBuffer = 4

type Options struct {
	Symbol    string
	Interval  string
	StartDate string
	EndDate   string
	OutputDir string

	Limit     int
	BatchSize int
	Buffer    int

	// MinRequestInterval follows FetcherOptions: zero is the default floor, negative is none.
	MinRequestInterval time.Duration

	// ProgressWriter receives the progress bar. Nil disables it.
	ProgressWriter io.Writer
}

type Result struct {
	Path     string
	Estimate int64
	Pages    int
	Klines   int64
	Batches  int
	Summary  history.Summary
}

// Runner downloads one symbol/interval/date range into a CSV file.
type Runner struct {
	source platform.History
	log    *zap.Logger
}

func NewRunner(source platform.History, log *zap.Logger) *Runner {
	return &Runner{
		source: source,
		log:    log,
	}
}

// Run fetches on the calling goroutine while a sink goroutine writes the batches.
// A sink failure cancels the fetch. Fetch and sink errors are reported together.
func (runner *Runner) Run(ctx context.Context, opt Options) (result Result, err error) {
	window, err := binance.ResolveWindow(opt.StartDate, opt.EndDate, opt.Interval)
	if err != nil {
		return result, err
	}
	if opt.Buffer < 0 {
		opt.Buffer = DefaultBuffer
	}

	result.Path = history.FilePath(opt.OutputDir, opt.Symbol, opt.Interval, opt.StartDate, opt.EndDate)
	result.Estimate = window.Estimate()

	log := runner.log.With(
		zap.String("symbol", opt.Symbol),
		zap.String("interval", opt.Interval),
	)
	log.Info("downloading klines",
		zap.String("start", platform.FormatMillis(window.Start)),
		zap.String("end", platform.FormatMillis(window.End)),
		zap.Int64("estimate", result.Estimate),
		zap.String("path", result.Path),
	)

	var progress Progress = NopProgress{}
	if opt.ProgressWriter != nil {
		progress = NewProgressBar(opt.ProgressWriter, result.Estimate, "Downloading klines")
	}

	var (
		batches = make(chan platform.Batch, opt.Buffer)
		sink    = history.NewSink(result.Path, log)
		fetcher = NewFetcher(runner.source, FetcherOptions{
			Symbol:             opt.Symbol,
			Interval:           opt.Interval,
			Limit:              opt.Limit,
			BatchSize:          opt.BatchSize,
			MinRequestInterval: opt.MinRequestInterval,
		}, progress, log)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sink.Run(batches)
	})

	fetchErr := fetcher.Run(gctx, window, batches)
	close(batches)
	sinkErr := g.Wait()

	_ = progress.Finish()

	result.Pages = fetcher.Pages()
	result.Klines = sink.Written()
	result.Batches = sink.Batches()
	result.Summary = sink.Summary()

	// The fetcher only sees the cancellation caused by a failed sink.
	if sinkErr != nil && ctx.Err() == nil && errors.Is(fetchErr, context.Canceled) {
		fetchErr = nil
	}

	var merr *multierror.Error
	merr = multierror.Append(merr, fetchErr)
	merr = multierror.Append(merr, sinkErr)

	switch merr.Len() {
	case 0:
		log.Info("download complete",
			zap.Int("pages", result.Pages),
			zap.Int64("klines", result.Klines),
			result.Summary.Field(),
		)
		return result, nil
	case 1:
		return result, merr.Errors[0]
	default:
		return result, merr
	}
}
