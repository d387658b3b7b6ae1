package history

import (
	"bufio"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/WinPooh32/klinedump/platform"
)

const fileBufferSize = 64 << 10

// Sink appends received batches to a CSV file, in arrival order.
type Sink struct {
	path string
	log  *zap.Logger

	written int64
	batches int
	summary Summary
}

func NewSink(path string, log *zap.Logger) *Sink {
	return &Sink{
		path: path,
		log:  log,
	}
}

// Written is the number of klines encoded so far. Only valid after Run returns.
func (s *Sink) Written() int64 { return s.written }

func (s *Sink) Batches() int { return s.batches }

func (s *Sink) Summary() Summary { return s.summary }

// Run creates the file, writes the header and consumes batches until the channel is closed.
// It returns on the first failure without draining the channel.
func (s *Sink) Run(batches <-chan platform.Batch) (err error) {
	if dir := filepath.Dir(s.path); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return &platform.SinkError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return &platform.SinkError{Op: "create", Path: s.path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &platform.SinkError{Op: "close", Path: s.path, Err: cerr}
		}
	}()

	buf := bufio.NewWriterSize(f, fileBufferSize)

	w, err := NewWriter(buf)
	if err != nil {
		return &platform.SinkError{Op: "init", Path: s.path, Err: err}
	}
	if err = w.WriteHeader(); err != nil {
		return &platform.SinkError{Op: "write", Path: s.path, Err: err}
	}

	for batch := range batches {
		for _, k := range batch {
			if err = w.Write(k); err != nil {
				return &platform.SinkError{Op: "write", Path: s.path, Err: err}
			}
			s.written++

			if serr := s.summary.Add(k); serr != nil {
				s.log.Warn("skip kline in summary", zap.Error(serr))
			}
		}
		s.batches++

		if err = w.Flush(); err != nil {
			return &platform.SinkError{Op: "write", Path: s.path, Err: err}
		}
		s.log.Debug("batch written", zap.Int("size", len(batch)), zap.Int64("total", s.written))
	}

	if err = w.Flush(); err != nil {
		return &platform.SinkError{Op: "flush", Path: s.path, Err: err}
	}
	if err = buf.Flush(); err != nil {
		return &platform.SinkError{Op: "flush", Path: s.path, Err: err}
	}

	s.log.Info("history saved", zap.String("path", s.path), zap.Int64("klines", s.written))
	return nil
}
