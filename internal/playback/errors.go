package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineUnavailable means no compatible rendering engine could be created.
	ErrEngineUnavailable = errors.New("video engine unavailable")
	// ErrUnknownQuality is returned by ChangeQuality for labels not in the format map.
	ErrUnknownQuality = errors.New("unknown quality")
	// ErrNoMedia is returned when an operation needs loaded media.
	ErrNoMedia = errors.New("no media loaded")
	// ErrBusy is returned while a quality switch or output migration is in flight.
	ErrBusy = errors.New("playback is busy")
)

// PlaybackError reports an engine failure for a playback operation.
type PlaybackError struct {
	Op  string
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.Op, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
