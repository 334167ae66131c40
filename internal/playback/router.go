package playback

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultOutputSettle is the delay before restoring position after a migration
const DefaultOutputSettle = 100 * time.Millisecond

// SurfaceKind names an output surface
type SurfaceKind int

const (
	SurfacePrimary SurfaceKind = iota
	SurfaceMini
	SurfaceFullscreen
)

// String returns the surface name
func (k SurfaceKind) String() string {
	switch k {
	case SurfacePrimary:
		return "primary"
	case SurfaceMini:
		return "mini"
	case SurfaceFullscreen:
		return "fullscreen"
	default:
		return "unknown"
	}
}

// Surface is a visual region able to host the engine's video output.
type Surface interface {
	// NativeHandle returns the drawable handle; false if not realized yet.
	NativeHandle() (uintptr, bool)
	// SetBound shows or hides the surface as the active video output.
	SetBound(bound bool)
	// SetFullScreen applies or removes window-level full-screen treatment.
	SetFullScreen(full bool)
	// ShowPlaceholder shows msg instead of video; an empty msg hides it.
	ShowPlaceholder(msg string)
}

// Router keeps exactly one surface bound to the engine and migrates the
// output when the active surface changes. Not safe for concurrent use.
type Router struct {
	engine   *EngineHandle
	sched    Scheduler
	surfaces map[SurfaceKind]Surface
	active   SurfaceKind
	settle   time.Duration

	fullscreen     bool
	migrating      bool
	restoreGen     int
	restoreTimer   Timer
	restorePos     int64
	restorePlaying bool
	degraded     bool
	degradedMsg  string

	onMigrated func(SurfaceKind)
	log        zerolog.Logger
}

// NewRouter binds the primary surface (or the first provided one).
func NewRouter(engine *EngineHandle, sched Scheduler, surfaces map[SurfaceKind]Surface, settle time.Duration, logger zerolog.Logger) *Router {
	r := &Router{
		engine:   engine,
		sched:    sched,
		surfaces: make(map[SurfaceKind]Surface, len(surfaces)),
		settle:   settle,
		log:      logger,
	}
	for k, s := range surfaces {
		if s != nil {
			r.surfaces[k] = s
		}
	}

	r.active = SurfacePrimary
	if _, ok := r.surfaces[SurfacePrimary]; !ok {
		for _, k := range []SurfaceKind{SurfaceMini, SurfaceFullscreen} {
			if _, ok := r.surfaces[k]; ok {
				r.active = k
				break
			}
		}
	}
	for k, s := range r.surfaces {
		s.SetBound(k == r.active)
	}
	return r
}

// Active returns the bound surface kind.
func (r *Router) Active() SurfaceKind {
	return r.active
}

// IsBound reports whether kind is the bound surface.
func (r *Router) IsBound(kind SurfaceKind) bool {
	_, ok := r.surfaces[kind]
	return ok && kind == r.active
}

// Handle returns the native handle of the bound surface.
func (r *Router) Handle() (uintptr, bool) {
	s, ok := r.surfaces[r.active]
	if !ok {
		return 0, false
	}
	return s.NativeHandle()
}

// Busy reports whether a migration restore is pending.
func (r *Router) Busy() bool {
	return r.migrating
}

// Fullscreen reports whether full-screen treatment is applied.
func (r *Router) Fullscreen() bool {
	return r.fullscreen
}

// Switch moves the video output to kind. With media loaded the engine is
// stopped, rebound and restarted, and position and pause state are restored
// after the settle delay.
func (r *Router) Switch(kind SurfaceKind) {
	target, ok := r.surfaces[kind]
	if !ok || kind == r.active {
		return
	}
	if r.degraded {
		r.rebind(kind)
		target.ShowPlaceholder(r.degradedMsg)
		return
	}

	state := r.engine.State()
	if !r.migrating && (!r.engine.Ready() || r.engine.URI() == "" || !state.IsActive()) {
		r.rebind(kind)
		if h, ok := target.NativeHandle(); ok {
			r.engine.Bind(h)
		}
		r.migrated(kind)
		return
	}

	// While a restore is pending the engine was just restarted; the time and
	// pause state to restore are the ones captured by that migration.
	pos, wasPlaying := r.restorePos, r.restorePlaying
	if !r.migrating {
		pos = r.engine.Time()
		wasPlaying = state != EnginePaused
	}
	r.restorePos, r.restorePlaying = pos, wasPlaying

	r.CancelRestore()
	r.migrating = true
	r.engine.Stop()
	r.rebind(kind)
	if h, ok := target.NativeHandle(); ok {
		r.engine.Bind(h)
	}
	if err := r.engine.Play(); err != nil {
		r.migrating = false
		return
	}

	r.restoreGen++
	gen := r.restoreGen
	r.restoreTimer = r.sched.AfterFunc(r.settle, func() {
		if gen != r.restoreGen {
			return
		}
		r.migrating = false
		r.restoreTimer = nil
		if pos > 0 {
			r.engine.SetTime(pos)
		}
		if !wasPlaying {
			r.engine.Pause(true)
		}
	})

	r.log.Debug().Str("surface", kind.String()).Int64("pos", pos).Bool("playing", wasPlaying).Msg("output migrated")
	r.migrated(kind)
}

// CancelRestore drops a pending post-migration restore.
func (r *Router) CancelRestore() {
	r.restoreGen++
	r.migrating = false
	if r.restoreTimer != nil {
		r.restoreTimer.Stop()
		r.restoreTimer = nil
	}
}

// LeavePlayerView floats the video into the mini surface while media is active.
func (r *Router) LeavePlayerView() {
	if r.active != SurfacePrimary || !r.engine.State().IsActive() {
		return
	}
	r.Switch(SurfaceMini)
}

// EnterPlayerView docks the video back into the primary surface.
func (r *Router) EnterPlayerView() {
	r.Switch(SurfacePrimary)
}

// ToggleFullscreen flips full-screen treatment of the bound surface.
func (r *Router) ToggleFullscreen() bool {
	r.SetFullscreen(!r.fullscreen)
	return r.fullscreen
}

// SetFullscreen applies or removes full-screen treatment of the bound surface.
func (r *Router) SetFullscreen(full bool) {
	if r.fullscreen == full {
		return
	}
	s, ok := r.surfaces[r.active]
	if !ok {
		return
	}
	r.fullscreen = full
	s.SetFullScreen(full)
}

// Degrade shows a placeholder on the bound surface. It is permanent; every
// later migration only moves the placeholder.
func (r *Router) Degrade(msg string) {
	r.degraded = true
	r.degradedMsg = msg
	r.CancelRestore()
	if s, ok := r.surfaces[r.active]; ok {
		s.ShowPlaceholder(msg)
	}
}

// Degraded reports whether the router runs without an engine.
func (r *Router) Degraded() bool {
	return r.degraded
}

// ShowError shows msg on the bound surface without degrading.
func (r *Router) ShowError(msg string) {
	if s, ok := r.surfaces[r.active]; ok {
		s.ShowPlaceholder(msg)
	}
}

// ClearError hides the placeholder of the bound surface.
func (r *Router) ClearError() {
	if r.degraded {
		return
	}
	if s, ok := r.surfaces[r.active]; ok {
		s.ShowPlaceholder("")
	}
}

// OnMigrated registers a callback fired after the active surface changed.
func (r *Router) OnMigrated(fn func(SurfaceKind)) {
	r.onMigrated = fn
}

// rebind swaps the bound flag; full-screen treatment stays with the old
// surface's window and is removed first.
func (r *Router) rebind(kind SurfaceKind) {
	if prev, ok := r.surfaces[r.active]; ok {
		if r.fullscreen {
			prev.SetFullScreen(false)
			r.fullscreen = false
		}
		prev.ShowPlaceholder("")
		prev.SetBound(false)
	}
	r.active = kind
	r.surfaces[kind].SetBound(true)
}

func (r *Router) migrated(kind SurfaceKind) {
	if r.onMigrated != nil {
		r.onMigrated(kind)
	}
}
