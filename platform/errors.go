package platform

import (
	"fmt"
)

// ConfigError is raised before any network activity when the run parameters are unusable.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s", e.Reason, e.Err)
	}
	return "config: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FetchError aborts the fetcher. Status is the HTTP status code, or 0 when the
// failure is not a status (transport, decode, malformed timestamp).
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch: unexpected status %d: %s", e.Status, e.Err)
	}
	return fmt.Sprintf("fetch: %s", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SinkError aborts the sink writer.
type SinkError struct {
	Op   string
	Path string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink: %s %s: %s", e.Op, e.Path, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
