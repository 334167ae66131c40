package mpv

import (
	"sync"

	"github.com/rs/zerolog"
)

// startup holds the commands sent while a new mpv process has not opened
// its IPC socket yet. A nil startup is ready.
type startup struct {
	mu        sync.Mutex
	ready     bool
	abandoned bool
	pending   [][]any
}

func (s *startup) isReady() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// enqueue queues args and reports true while the socket is not ready.
// Commands for an abandoned process are dropped.
func (s *startup) enqueue(args []any) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return false
	}
	if !s.abandoned {
		s.pending = append(s.pending, args)
	}
	return true
}

// finish replays the queued commands in order once the socket is up. With
// err set the queue is dropped and the process stays abandoned.
func (s *startup) finish(ipc *ipcClient, err error, logger zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pending
	s.pending = nil
	if err != nil || s.abandoned {
		s.abandoned = true
		return
	}
	for _, args := range pending {
		if _, err := ipc.command(args...); err != nil {
			logger.Warn().Err(err).Interface("command", args[0]).Msg("queued mpv command failed")
		}
	}
	s.ready = true
}

// abandon drops the queue. It reports true if the socket never came up, in
// which case the process cannot be asked to quit.
func (s *startup) abandon() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return false
	}
	s.abandoned = true
	s.pending = nil
	return true
}
