package history

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/WinPooh32/klinedump/platform"
)

// HistoryWriter encodes klines as CSV rows. Output is buffered until Flush.
type HistoryWriter struct {
	w *csv.Writer
}

func NewWriter(w io.Writer) (*HistoryWriter, error) {
	return &HistoryWriter{
		w: csv.NewWriter(w),
	}, nil
}

func (hw *HistoryWriter) WriteHeader() error {
	if err := hw.w.Write(platform.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (hw *HistoryWriter) Write(k platform.Kline) (err error) {
	if err = hw.w.Write(k.Record()); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (hw *HistoryWriter) Flush() error {
	hw.w.Flush()
	return hw.w.Error()
}
