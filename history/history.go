package history

import (
	"fmt"
	"path/filepath"

	"github.com/WinPooh32/klinedump/platform"
)

const recordLen = 12

type Writer interface {
	Write(k platform.Kline) (err error)
}

type Reader interface {
	Read() (k platform.Kline, err error)
}

// FileName is the output file name for a download run.
func FileName(symbol, interval, startDate, endDate string) string {
	return fmt.Sprintf("%s_%s_%s_to_%s.csv", symbol, interval, startDate, endDate)
}

// FilePath joins dir and FileName.
func FilePath(dir, symbol, interval, startDate, endDate string) string {
	return filepath.Join(dir, FileName(symbol, interval, startDate, endDate))
}
