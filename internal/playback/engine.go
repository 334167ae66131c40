package playback

// EngineState is the state reported by the media engine
type EngineState int

const (
	EngineIdle EngineState = iota
	EngineOpening
	EngineBuffering
	EnginePlaying
	EnginePaused
	EngineStopped
	EngineEnded
	EngineError
)

// String returns a readable name of the engine state
func (s EngineState) String() string {
	switch s {
	case EngineIdle:
		return "Idle"
	case EngineOpening:
		return "Opening"
	case EngineBuffering:
		return "Buffering"
	case EnginePlaying:
		return "Playing"
	case EnginePaused:
		return "Paused"
	case EngineStopped:
		return "Stopped"
	case EngineEnded:
		return "Ended"
	case EngineError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsActive returns true while media is loaded and not finished
func (s EngineState) IsActive() bool {
	return s == EnginePlaying || s == EnginePaused || s == EngineBuffering || s == EngineOpening
}

// Backend creates engine instances. A nil Backend means no engine is available.
type Backend interface {
	NewInstance(args []string) (Instance, error)
}

// Instance is a live engine able to open media and create players.
type Instance interface {
	NewMedia(uri string) (Media, error)
	NewPlayer() (Player, error)
	Release() error
}

// Media is an opened media reference.
type Media interface {
	URI() string
}

// Player controls playback of one media at a time. Times are milliseconds,
// positions are fractions in [0,1]. Getters return zero values when unknown.
type Player interface {
	SetMedia(m Media) error
	Play() error
	SetPause(pause bool) error
	Stop() error

	State() EngineState
	IsPlaying() bool
	Time() int64
	SetTime(ms int64) error
	Position() float64
	SetPosition(f float64) error
	Length() int64

	// BindOutput binds video output to a native drawable. Engines bind at play
	// start, so a new handle takes effect on the next Play after a Stop.
	BindOutput(handle uintptr) error

	SetVolume(volume int) error
	SetMute(mute bool) error
	ToggleMute() error

	Release() error
}
