package mpv

import "github.com/ytget/ytplay/internal/playback"

// props is the snapshot of mpv properties the engine state is derived from.
type props struct {
	Loaded    bool
	Idle      bool
	EOF       bool
	Paused    bool
	Buffering bool
	HasTime   bool
	// Started is set once mpv left idle for the requested file.
	Started bool
	// Overdue is set when the file has not started within the open timeout.
	Overdue bool
}

// stateFromProps maps mpv properties to an engine state. With keep-open the
// file stays loaded at the end and eof-reached reports it, so going back to
// idle with a file requested means mpv failed to open or play it.
func stateFromProps(p props) playback.EngineState {
	switch {
	case p.EOF:
		return playback.EngineEnded
	case p.Idle && !p.Loaded:
		return playback.EngineStopped
	case p.Idle && (p.Started || p.Overdue):
		return playback.EngineError
	case p.Idle || !p.HasTime:
		return playback.EngineOpening
	case p.Buffering:
		return playback.EngineBuffering
	case p.Paused:
		return playback.EnginePaused
	default:
		return playback.EnginePlaying
	}
}
