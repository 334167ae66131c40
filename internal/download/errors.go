package download

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueRunning is returned by Start while a queue loop is active.
	ErrQueueRunning = errors.New("download queue is already running")
	// ErrQueueEmpty is returned by Start when no job was ever added.
	ErrQueueEmpty = errors.New("download queue is empty")
	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrSearchCancelled is returned by Resolve when its token was cancelled.
	ErrSearchCancelled = errors.New("search cancelled")
)

// ResolutionError is a network or extraction failure during format lookup.
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// DownloadError is any failure while executing a job: transport, disk or
// post-processing. Msg is suitable for display.
type DownloadError struct {
	Msg string
	Err error
}

func (e *DownloadError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
