package download

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress observes how many klines were accepted. It never affects the download.
type Progress interface {
	Add(n int) error
	Finish() error
}

type NopProgress struct{}

func (NopProgress) Add(int) error { return nil }
func (NopProgress) Finish() error { return nil }

type barProgress struct {
	bar   *progressbar.ProgressBar
	count int64
}

// NewProgressBar draws the estimated against the accepted kline count on w.
func NewProgressBar(w io.Writer, estimate int64, description string) Progress {
	if estimate <= 0 {
		estimate = -1
	}
	bar := progressbar.NewOptions64(estimate,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
	return &barProgress{bar: bar}
}

func (p *barProgress) Add(n int) error {
	p.count += int64(n)
	// The estimate is a static division and may fall short of the real count.
	if limit := p.bar.GetMax64(); limit >= 0 && p.count > limit {
		p.bar.ChangeMax64(p.count)
	}
	return p.bar.Add(n)
}

func (p *barProgress) Finish() error {
	return p.bar.Finish()
}
