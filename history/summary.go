package history

import (
	"fmt"

	"github.com/WinPooh32/fixed"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/WinPooh32/klinedump/platform"
)

// Summary aggregates the klines passed through a sink or read back from a file.
// Decimal totals are informational; fixed keeps fewer fraction digits than the source.
type Summary struct {
	Count  int64
	First  int64
	Last   int64
	Low    fixed.Fixed
	High   fixed.Fixed
	Volume fixed.Fixed

	hasPrice bool
}

func (s *Summary) Add(k platform.Kline) error {
	if s.Count == 0 {
		s.First = k.Time
		s.Volume = fixed.ZERO
	}
	s.Last = k.Time
	s.Count++

	var merr *multierror.Error

	low, err := fixed.NewSErr(k.Low)
	merr = multierror.Append(merr, err)

	high, err := fixed.NewSErr(k.High)
	merr = multierror.Append(merr, err)

	volume, err := fixed.NewSErr(k.Volume)
	merr = multierror.Append(merr, err)

	if err := merr.ErrorOrNil(); err != nil {
		return fmt.Errorf("summary of %s: %w", k.OpenTime, err)
	}

	if !s.hasPrice {
		s.Low, s.High = low, high
		s.hasPrice = true
	} else {
		if low.LessThan(s.Low) {
			s.Low = low
		}
		if high.GreaterThan(s.High) {
			s.High = high
		}
	}
	s.Volume = s.Volume.Add(volume)

	return nil
}

func (s Summary) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("count", s.Count)
	if s.Count == 0 {
		return nil
	}
	enc.AddString("first", platform.FormatMillis(s.First))
	enc.AddString("last", platform.FormatMillis(s.Last))
	if s.hasPrice {
		enc.AddString("low", s.Low.String())
		enc.AddString("high", s.High.String())
		enc.AddString("volume", s.Volume.String())
	}
	return nil
}

func (s Summary) Field() zap.Field {
	return zap.Object("summary", s)
}
