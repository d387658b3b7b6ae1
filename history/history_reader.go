package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/WinPooh32/klinedump/platform"
)

type HistoryReader struct {
	r     *csv.Reader
	count int
}

// NewReader consumes and checks the header row.
func NewReader(r io.Reader) (*HistoryReader, error) {
	rcsv := csv.NewReader(r)
	rcsv.Comma = ','
	rcsv.FieldsPerRecord = recordLen

	header, err := rcsv.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read header: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range platform.Header {
		if strings.TrimSpace(header[i]) != name {
			return nil, fmt.Errorf("header column %d: got %q, expected %q", i, header[i], name)
		}
	}

	return &HistoryReader{
		r:     rcsv,
		count: 1,
	}, nil
}

func (hr *HistoryReader) Read() (k platform.Kline, err error) {
	const (
		OpenTime            = 0
		Open                = 1
		High                = 2
		Low                 = 3
		Close               = 4
		Volume              = 5
		CloseTime           = 6
		VolumeQuote         = 7
		CountTrades         = 8
		VolumeTakerBuyBase  = 9
		VolumeTakerBuyQuote = 10
		Ignore              = 11
	)

	hr.count++

	record, err := hr.r.Read()
	if err == io.EOF {
		return k, err
	}
	if err != nil {
		return k, fmt.Errorf("read csv record: %w", err)
	}

	k = platform.Kline{
		OpenTime:            record[OpenTime],
		Open:                record[Open],
		High:                record[High],
		Low:                 record[Low],
		Close:               record[Close],
		Volume:              record[Volume],
		CloseTime:           record[CloseTime],
		VolumeQuote:         record[VolumeQuote],
		CountTrades:         record[CountTrades],
		VolumeTakerBuyBase:  record[VolumeTakerBuyBase],
		VolumeTakerBuyQuote: record[VolumeTakerBuyQuote],
		Ignore:              record[Ignore],
	}

	var merr *multierror.Error

	k.Time, err = platform.ParseMillis(k.OpenTime)
	merr = multierror.Append(merr, err)

	_, err = platform.ParseMillis(k.CloseTime)
	merr = multierror.Append(merr, err)

	_, err = strconv.ParseInt(k.CountTrades, 10, 64)
	merr = multierror.Append(merr, err)

	if err = merr.ErrorOrNil(); err != nil {
		return k, fmt.Errorf("record on line %d: %w", hr.count, err)
	}
	return k, nil
}
