package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/WinPooh32/klinedump/platform"
)

const (
	DefaultBaseURL = "https://data-api.binance.vision"
	klinesPath     = "/api/v3/klines"
)

// Positions of the kline tuple fields.
const (
	Time                = 0
	Open                = 1
	High                = 2
	Low                 = 3
	Close               = 4
	Volume              = 5
	TimeClose           = 6
	VolumeQuote         = 7
	CountTrades         = 8
	VolumeTakerBuyBase  = 9
	VolumeTakerBuyQuote = 10
	Ignore              = 11

	tupleLen = 12
)

// BinanceHistory pages klines from the public REST endpoint.
type BinanceHistory struct {
	client *resty.Client
}

var _ platform.History = (*BinanceHistory)(nil)

type HistoryOption func(*BinanceHistory)

// WithTimeout bounds a single request. Zero leaves the transport default.
func WithTimeout(d time.Duration) HistoryOption {
	return func(bh *BinanceHistory) {
		if d > 0 {
			bh.client.SetTimeout(d)
		}
	}
}

func WithDebug(debug bool) HistoryOption {
	return func(bh *BinanceHistory) {
		bh.client.SetDebug(debug)
	}
}

func NewHistory(baseURL string, opts ...HistoryOption) *BinanceHistory {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	bh := &BinanceHistory{client: client}
	for _, opt := range opts {
		opt(bh)
	}
	return bh
}

func (bh *BinanceHistory) Klines(ctx context.Context, q platform.KlineQuery) ([]platform.Candle, error) {
	resp, err := bh.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    q.Symbol,
			"interval":  q.Interval,
			"limit":     strconv.Itoa(q.Limit),
			"startTime": strconv.FormatInt(q.StartTime, 10),
			"endTime":   strconv.FormatInt(q.EndTime, 10),
		}).
		Get(klinesPath)
	if err != nil {
		return nil, &platform.FetchError{Err: fmt.Errorf("get klines: %w", err)}
	}
	if !resp.IsSuccess() {
		return nil, &platform.FetchError{
			Status: resp.StatusCode(),
			Err:    fmt.Errorf("get klines: %s", strings.TrimSpace(resp.String())),
		}
	}

	candles, err := DecodeKlines(resp.Body())
	if err != nil {
		return nil, &platform.FetchError{Err: err}
	}
	return candles, nil
}

// DecodeKlines parses a JSON array of kline tuples.
func DecodeKlines(data []byte) ([]platform.Candle, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rows [][]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	candles := make([]platform.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := decodeCandle(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// decodeCandle is the only place that knows the tuple layout.
func decodeCandle(row []interface{}) (c platform.Candle, err error) {
	if len(row) < tupleLen {
		return c, fmt.Errorf("wrong number of fields %d, expected %d", len(row), tupleLen)
	}

	fields := []struct {
		dst *string
		idx int
	}{
		{&c.Open, Open},
		{&c.High, High},
		{&c.Low, Low},
		{&c.Close, Close},
		{&c.Volume, Volume},
		{&c.VolumeQuote, VolumeQuote},
		{&c.VolumeTakerBuyBase, VolumeTakerBuyBase},
		{&c.VolumeTakerBuyQuote, VolumeTakerBuyQuote},
		{&c.Ignore, Ignore},
	}
	for _, f := range fields {
		if *f.dst, err = decimalText(row[f.idx]); err != nil {
			return c, fmt.Errorf("field %d: %w", f.idx, err)
		}
	}

	if c.Time, err = integer(row[Time]); err != nil {
		return c, fmt.Errorf("malformed open time: %w", err)
	}
	if c.TimeClose, err = integer(row[TimeClose]); err != nil {
		return c, fmt.Errorf("malformed close time: %w", err)
	}
	if c.CountTrades, err = integer(row[CountTrades]); err != nil {
		return c, fmt.Errorf("malformed trade count: %w", err)
	}
	return c, nil
}

func integer(v interface{}) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("unexpected value %v of type %T", v, v)
	}
	return n.Int64()
}

func decimalText(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	default:
		return "", fmt.Errorf("unexpected value %v of type %T", v, v)
	}
}
