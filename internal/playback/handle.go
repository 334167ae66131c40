package playback

import (
	"fmt"

	"github.com/rs/zerolog"
)

// EngineHandle owns the single engine instance of the application. The
// instance is created on first use and reused across loads; it is released
// only by Release. Primitives are no-ops until the engine exists.
type EngineHandle struct {
	backend  Backend
	args     []string
	instance Instance
	player   Player
	uri      string
	log      zerolog.Logger
}

// NewEngineHandle creates a handle over backend. A nil backend yields a
// null handle whose Ensure always fails with ErrEngineUnavailable.
func NewEngineHandle(backend Backend, args []string, logger zerolog.Logger) *EngineHandle {
	return &EngineHandle{
		backend: backend,
		args:    append([]string(nil), args...),
		log:     logger,
	}
}

// Available reports whether a backend is configured.
func (h *EngineHandle) Available() bool {
	return h != nil && h.backend != nil
}

// Ready reports whether the engine instance exists.
func (h *EngineHandle) Ready() bool {
	return h != nil && h.player != nil
}

// Ensure creates the engine bound to output when it does not exist yet.
// created is true only for the call that created it.
func (h *EngineHandle) Ensure(output uintptr, hasOutput bool) (created bool, err error) {
	if h.Ready() {
		return false, nil
	}
	if !h.Available() {
		return false, ErrEngineUnavailable
	}

	instance, err := h.backend.NewInstance(h.args)
	if err != nil {
		return false, fmt.Errorf("create engine: %w", err)
	}
	player, err := instance.NewPlayer()
	if err != nil {
		_ = instance.Release()
		return false, fmt.Errorf("create player: %w", err)
	}
	if hasOutput {
		if err := player.BindOutput(output); err != nil {
			h.log.Warn().Err(err).Msg("bind output failed")
		}
	}

	h.instance = instance
	h.player = player
	h.log.Info().Strs("args", h.args).Msg("engine created")
	return true, nil
}

// Load opens uri and makes it the current media.
func (h *EngineHandle) Load(uri string) error {
	if !h.Ready() {
		return ErrEngineUnavailable
	}
	media, err := h.instance.NewMedia(uri)
	if err != nil {
		return fmt.Errorf("open media: %w", err)
	}
	if err := h.player.SetMedia(media); err != nil {
		return fmt.Errorf("set media: %w", err)
	}
	h.uri = uri
	return nil
}

// URI returns the current media URI, empty before the first Load.
func (h *EngineHandle) URI() string {
	if h == nil {
		return ""
	}
	return h.uri
}

// Play starts or resumes playback.
func (h *EngineHandle) Play() error {
	if !h.Ready() {
		return nil
	}
	return h.logged("play", h.player.Play())
}

// Pause sets the pause flag.
func (h *EngineHandle) Pause(pause bool) {
	if h.Ready() {
		_ = h.logged("pause", h.player.SetPause(pause))
	}
}

// Stop halts playback; the instance stays alive.
func (h *EngineHandle) Stop() {
	if h.Ready() {
		_ = h.logged("stop", h.player.Stop())
	}
}

// Bind binds the video output to a native handle.
func (h *EngineHandle) Bind(handle uintptr) {
	if h.Ready() {
		_ = h.logged("bind", h.player.BindOutput(handle))
	}
}

// State returns the engine state, EngineIdle before creation.
func (h *EngineHandle) State() EngineState {
	if !h.Ready() {
		return EngineIdle
	}
	return h.player.State()
}

// IsPlaying reports whether the engine is actively playing.
func (h *EngineHandle) IsPlaying() bool {
	return h.Ready() && h.player.IsPlaying()
}

// Time returns the playback time in milliseconds.
func (h *EngineHandle) Time() int64 {
	if !h.Ready() {
		return 0
	}
	return h.player.Time()
}

// Length returns the media length in milliseconds, 0 if unknown.
func (h *EngineHandle) Length() int64 {
	if !h.Ready() {
		return 0
	}
	return h.player.Length()
}

// Position returns the playback position as a fraction.
func (h *EngineHandle) Position() float64 {
	if !h.Ready() {
		return 0
	}
	return h.player.Position()
}

// SetTime seeks to ms.
func (h *EngineHandle) SetTime(ms int64) {
	if h.Ready() {
		_ = h.logged("seek", h.player.SetTime(ms))
	}
}

// SetPosition seeks to fraction f.
func (h *EngineHandle) SetPosition(f float64) {
	if h.Ready() {
		_ = h.logged("seek", h.player.SetPosition(f))
	}
}

// SetVolume sets the audio volume (0..100).
func (h *EngineHandle) SetVolume(v int) {
	if h.Ready() {
		_ = h.logged("volume", h.player.SetVolume(v))
	}
}

// SetMute sets the mute flag.
func (h *EngineHandle) SetMute(mute bool) {
	if h.Ready() {
		_ = h.logged("mute", h.player.SetMute(mute))
	}
}

// ToggleMute flips the mute flag.
func (h *EngineHandle) ToggleMute() {
	if h.Ready() {
		_ = h.logged("mute", h.player.ToggleMute())
	}
}

// Release destroys the engine. A later Ensure creates a new one.
func (h *EngineHandle) Release() {
	if !h.Ready() {
		return
	}
	_ = h.logged("release player", h.player.Release())
	_ = h.logged("release instance", h.instance.Release())
	h.player = nil
	h.instance = nil
	h.uri = ""
	h.log.Info().Msg("engine released")
}

func (h *EngineHandle) logged(op string, err error) error {
	if err != nil {
		h.log.Warn().Err(err).Str("op", op).Msg("engine call failed")
	}
	return err
}
