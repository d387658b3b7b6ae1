package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"github.com/WinPooh32/klinedump/platform"
)

// Binance pages klines through the go-binance SDK.
// The SDK does not expose the trailing unused tuple field, so Candle.Ignore stays empty.
type Binance struct {
	client *gobinance.Client
}

var _ platform.History = (*Binance)(nil)

func New(baseURL string, timeout time.Duration) *Binance {
	client := gobinance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = strings.TrimRight(baseURL, "/")
	}
	client.HTTPClient = &http.Client{
		Transport: statusTransport{base: http.DefaultTransport},
		Timeout:   timeout,
	}
	return &Binance{client: client}
}

type statusKey struct{}

// statusTransport stores the response status into the *int carried by the request context.
// The SDK reports failed calls as an APIError without the status code.
type statusTransport struct {
	base http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if status, ok := req.Context().Value(statusKey{}).(*int); ok && resp != nil {
		*status = resp.StatusCode
	}
	return resp, err
}

func (b *Binance) Klines(ctx context.Context, q platform.KlineQuery) ([]platform.Candle, error) {
	var status int
	ctx = context.WithValue(ctx, statusKey{}, &status)

	klines, err := b.client.NewKlinesService().
		Symbol(q.Symbol).
		Interval(q.Interval).
		Limit(q.Limit).
		StartTime(q.StartTime).
		EndTime(q.EndTime).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			if apiErr.Code == 0 && apiErr.Message == "" {
				return nil, &platform.FetchError{Status: status, Err: fmt.Errorf("go-binance: %s", http.StatusText(status))}
			}
			return nil, &platform.FetchError{Status: status, Err: fmt.Errorf("go-binance: api error %d: %s", apiErr.Code, apiErr.Message)}
		}
		return nil, &platform.FetchError{Status: status, Err: fmt.Errorf("go-binance: %w", err)}
	}

	candles := make([]platform.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, candleFromSDK(k))
	}
	return candles, nil
}

func candleFromSDK(k *gobinance.Kline) platform.Candle {
	return platform.Candle{
		Time:                k.OpenTime,
		Open:                k.Open,
		High:                k.High,
		Low:                 k.Low,
		Close:               k.Close,
		Volume:              k.Volume,
		TimeClose:           k.CloseTime,
		VolumeQuote:         k.QuoteAssetVolume,
		CountTrades:         k.TradeNum,
		VolumeTakerBuyBase:  k.TakerBuyBaseAssetVolume,
		VolumeTakerBuyQuote: k.TakerBuyQuoteAssetVolume,
	}
}
