package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/WinPooh32/klinedump/history"
	"github.com/WinPooh32/klinedump/platform"
)

// File serves klines from a previously downloaded CSV file, so a dump can be
// re-cut to another date range without touching the network.
type File struct {
	candles []platform.Candle
}

var _ platform.History = (*File)(nil)

func Open(name string) (f *File, err error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open: %w", err)
	}
	defer file.Close()

	return Load(file)
}

// Load reads every row of r. Rows must be ordered by open time.
func Load(r io.Reader) (*File, error) {
	hr, err := history.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("history new reader: %w", err)
	}

	f := &File{}
	for {
		k, err := hr.Read()
		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read candles: %w", err)
		}

		c, err := candleFromKline(k)
		if err != nil {
			return nil, err
		}
		if n := len(f.candles); n > 0 && c.Time <= f.candles[n-1].Time {
			return nil, fmt.Errorf("kline %s is out of order", k.OpenTime)
		}
		f.candles = append(f.candles, c)
	}
}

func (f *File) Len() int { return len(f.candles) }

func (f *File) Klines(ctx context.Context, q platform.KlineQuery) ([]platform.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &platform.FetchError{Err: err}
	}

	i := sort.Search(len(f.candles), func(i int) bool {
		return f.candles[i].Time >= q.StartTime
	})

	var out []platform.Candle
	for ; i < len(f.candles) && len(out) < q.Limit; i++ {
		if f.candles[i].Time > q.EndTime {
			break
		}
		out = append(out, f.candles[i])
	}
	return out, nil
}

func candleFromKline(k platform.Kline) (c platform.Candle, err error) {
	closeTime, err := platform.ParseMillis(k.CloseTime)
	if err != nil {
		return c, fmt.Errorf("kline %s: close time: %w", k.OpenTime, err)
	}
	trades, err := strconv.ParseInt(k.CountTrades, 10, 64)
	if err != nil {
		return c, fmt.Errorf("kline %s: trade count: %w", k.OpenTime, err)
	}

	return platform.Candle{
		Time:                k.Time,
		Open:                k.Open,
		High:                k.High,
		Low:                 k.Low,
		Close:               k.Close,
		Volume:              k.Volume,
		TimeClose:           closeTime,
		VolumeQuote:         k.VolumeQuote,
		CountTrades:         trades,
		VolumeTakerBuyBase:  k.VolumeTakerBuyBase,
		VolumeTakerBuyQuote: k.VolumeTakerBuyQuote,
		Ignore:              k.Ignore,
	}, nil
}
