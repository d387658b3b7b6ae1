package platform

import (
	"strconv"
	"time"
)

// MaxBatchSize bounds the number of klines handed from the fetcher to the sink at once.
const MaxBatchSize = 1000

// TimeLayout renders kline timestamps. Sub-second digits are printed only when present.
const TimeLayout = time.RFC3339Nano

// Candle is a single kline as returned by a history source.
// Decimal values are kept as the source's text.
type Candle struct {
	Time                int64
	Open                string
	High                string
	Low                 string
	Close               string
	Volume              string
	TimeClose           int64
	VolumeQuote         string
	CountTrades         int64
	VolumeTakerBuyBase  string
	VolumeTakerBuyQuote string
	Ignore              string
}

// Kline is the output record written by the sink.
type Kline struct {
	Time                int64
	OpenTime            string
	Open                string
	High                string
	Low                 string
	Close               string
	Volume              string
	CloseTime           string
	VolumeQuote         string
	CountTrades         string
	VolumeTakerBuyBase  string
	VolumeTakerBuyQuote string
	Ignore              string
}

type Batch []Kline

// Header is the output schema, in column order.
var Header = []string{
	"Open Time",
	"Open",
	"High",
	"Low",
	"Close",
	"Volume",
	"Close Time",
	"Quote Asset Volume",
	"Number of Trades",
	"Taker Buy Base Asset Volume",
	"Taker Buy Quote Asset Volume",
	"Ignore",
}

func MakeKline(c Candle) Kline {
	return Kline{
		Time:                c.Time,
		OpenTime:            FormatMillis(c.Time),
		Open:                c.Open,
		High:                c.High,
		Low:                 c.Low,
		Close:               c.Close,
		Volume:              c.Volume,
		CloseTime:           FormatMillis(c.TimeClose),
		VolumeQuote:         c.VolumeQuote,
		CountTrades:         strconv.FormatInt(c.CountTrades, 10),
		VolumeTakerBuyBase:  c.VolumeTakerBuyBase,
		VolumeTakerBuyQuote: c.VolumeTakerBuyQuote,
		Ignore:              c.Ignore,
	}
}

// Record returns the kline fields in Header order.
func (k Kline) Record() []string {
	return []string{
		k.OpenTime,
		k.Open,
		k.High,
		k.Low,
		k.Close,
		k.Volume,
		k.CloseTime,
		k.VolumeQuote,
		k.CountTrades,
		k.VolumeTakerBuyBase,
		k.VolumeTakerBuyQuote,
		k.Ignore,
	}
}

func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimeLayout)
}

func ParseMillis(s string) (int64, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
