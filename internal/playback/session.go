package playback

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytget/ytplay/internal/catalog"
	"github.com/ytget/ytplay/internal/metrics"
)

// UnavailableMessage is shown on the bound surface when no engine can be created
const UnavailableMessage = "Video engine unavailable"

// State is the playback session state
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateEnded
	StateQualitySwitching
	StateUnavailable
)

// String returns a human readable state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateEnded:
		return "Ended"
	case StateQualitySwitching:
		return "QualitySwitching"
	case StateUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// Status is a periodic playback snapshot.
type Status struct {
	State    State
	TimeMs   int64
	LengthMs int64
	Position float64
	Label    string
}

// Callbacks receive session events on the UI-affine context. Any may be nil.
type Callbacks struct {
	OnState  func(State)
	OnStatus func(Status)
	OnClose  func()
	OnError  func(error)
}

// Tuning holds the session timings.
type Tuning struct {
	PollInterval        time.Duration
	QualitySettle       time.Duration
	QualityPollDelay    time.Duration
	QualityPollInterval time.Duration
	QualityPollAttempts int
	OutputSettle        time.Duration
	Volume              int
	SeekStep            int64
}

// DefaultTuning returns the stock session timings.
func DefaultTuning() Tuning {
	return Tuning{
		PollInterval:        DefaultPollInterval,
		QualitySettle:       100 * time.Millisecond,
		QualityPollDelay:    200 * time.Millisecond,
		QualityPollInterval: 100 * time.Millisecond,
		QualityPollAttempts: 20,
		OutputSettle:        DefaultOutputSettle,
		Volume:              70,
		SeekStep:            5000,
	}
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithTuning overrides the session timings.
func WithTuning(t Tuning) SessionOption {
	return func(s *Session) { s.tuning = t }
}

// WithCallbacks sets the event callbacks.
func WithCallbacks(cb Callbacks) SessionOption {
	return func(s *Session) { s.cb = cb }
}

// WithPoller replaces the status poller.
func WithPoller(p StatusPoller) SessionOption {
	return func(s *Session) { s.poller = p }
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithSessionMetrics records playback metrics into m.
func WithSessionMetrics(m *metrics.Recorder) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// Session is the only entry point for playback. It owns the engine handle
// and the output router and must be driven from one UI-affine context; it is
// not safe for concurrent use.
type Session struct {
	engine *EngineHandle
	router *Router
	sched  Scheduler
	poller StatusPoller
	tuning Tuning
	cb     Callbacks

	state   State
	title   string
	streams map[string]string
	quality string
	volume  int
	muted   bool

	qualityGen   int
	qualityTimer Timer

	log     zerolog.Logger
	metrics *metrics.Recorder
}

// NewSession creates a session over engine. With an unavailable engine the
// session starts Unavailable and the bound surface shows a placeholder.
func NewSession(engine *EngineHandle, surfaces map[SurfaceKind]Surface, sched Scheduler, opts ...SessionOption) *Session {
	s := &Session{
		engine: engine,
		sched:  sched,
		tuning: DefaultTuning(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.poller == nil {
		s.poller = NewTickerPoller(sched, s.tuning.PollInterval)
	}
	s.volume = clampVolume(s.tuning.Volume)
	s.router = NewRouter(engine, sched, surfaces, s.tuning.OutputSettle, s.log)
	s.router.OnMigrated(func(kind SurfaceKind) {
		s.metrics.OutputMigrated(kind.String())
	})

	if !engine.Available() {
		s.state = StateUnavailable
		s.router.Degrade(UnavailableMessage)
	}
	return s
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Title returns the title of the loaded media.
func (s *Session) Title() string {
	return s.title
}

// Router exposes the output router.
func (s *Session) Router() *Router {
	return s.router
}

// Volume returns the volume last set.
func (s *Session) Volume() int {
	return s.volume
}

// Muted reports the mute flag.
func (s *Session) Muted() bool {
	return s.muted
}

// Qualities returns the quality labels of the loaded media, highest first.
func (s *Session) Qualities() []string {
	return catalog.Labels(s.streams)
}

// CurrentQuality returns the label of the playing stream, empty if the
// media was loaded without a quality map.
func (s *Session) CurrentQuality() string {
	return s.quality
}

// Load plays uri, creating the engine on first use and reusing it after.
// formats maps quality labels to stream URIs. Failures are reported through
// OnError and the surface placeholder.
func (s *Session) Load(uri, title string, formats map[string]string) {
	s.cancelPending()
	s.title = title
	s.streams = make(map[string]string, len(formats))
	s.quality = ""
	for label, u := range formats {
		s.streams[label] = u
		if u == uri {
			s.quality = label
		}
	}

	if s.router.Degraded() || !s.engine.Available() {
		s.degrade(ErrEngineUnavailable)
		return
	}

	s.setState(StateLoading)
	handle, hasHandle := s.router.Handle()
	created, err := s.engine.Ensure(handle, hasHandle)
	if err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			s.degrade(err)
			return
		}
		s.fail("create", err)
		return
	}
	if created {
		s.engine.SetVolume(s.volume)
		s.engine.SetMute(s.muted)
	} else {
		s.engine.Stop()
		if hasHandle {
			s.engine.Bind(handle)
		}
	}

	if err := s.engine.Load(uri); err != nil {
		s.fail("load", err)
		return
	}
	if err := s.engine.Play(); err != nil {
		s.fail("play", err)
		return
	}

	s.router.ClearError()
	s.setState(StatePlaying)
	s.poller.Start(s.tick)
	s.metrics.PlaybackLoaded()
	s.log.Info().Str("title", title).Str("quality", s.quality).Bool("created", created).Msg("media loaded")
}

// TogglePlay pauses or resumes. Ended media restarts from the beginning.
func (s *Session) TogglePlay() {
	if s.busy() || !s.loaded() {
		return
	}
	switch s.state {
	case StateEnded:
		s.restart()
	case StatePlaying:
		s.engine.Pause(true)
		s.setState(StatePaused)
	default:
		if err := s.engine.Play(); err != nil {
			s.fail("play", err)
			return
		}
		s.setState(StatePlaying)
		s.poller.Start(s.tick)
	}
}

// SeekRelative moves by deltaMs, clamped to the media bounds.
func (s *Session) SeekRelative(deltaMs int64) {
	if s.busy() || !s.loaded() {
		return
	}
	target := s.engine.Time() + deltaMs
	if target < 0 {
		target = 0
	}
	if length := s.engine.Length(); length > 0 && target > length {
		target = length
	}
	s.engine.SetTime(target)
}

// SkipForward seeks one step ahead.
func (s *Session) SkipForward() {
	s.SeekRelative(s.tuning.SeekStep)
}

// SkipBackward seeks one step back.
func (s *Session) SkipBackward() {
	s.SeekRelative(-s.tuning.SeekStep)
}

// SeekToFraction seeks to f of the media length. Ended media resumes from there.
func (s *Session) SeekToFraction(f float64) {
	if s.busy() || !s.loaded() {
		return
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	s.engine.SetPosition(f)
	if s.state == StateEnded {
		s.resume()
	}
}

// SetVolume sets the volume clamped to 0..100 and unmutes.
func (s *Session) SetVolume(v int) {
	s.volume = clampVolume(v)
	s.muted = false
	s.engine.SetVolume(s.volume)
	s.engine.SetMute(false)
}

// ToggleMute flips the mute flag.
func (s *Session) ToggleMute() {
	s.muted = !s.muted
	s.engine.ToggleMute()
}

// ChangeQuality switches to the stream labelled label and restores the
// playback time once the new stream plays. If it never starts playing within
// the poll budget the switch ends without restoring.
func (s *Session) ChangeQuality(label string) error {
	uri, ok := s.streams[label]
	if !ok {
		return ErrUnknownQuality
	}
	if s.busy() {
		return ErrBusy
	}
	if label == s.quality {
		return nil
	}
	if s.state != StatePlaying && s.state != StatePaused {
		return ErrNoMedia
	}

	pos := s.engine.Time()
	s.cancelPending()
	s.qualityGen++
	gen := s.qualityGen
	s.setState(StateQualitySwitching)
	s.engine.Pause(true)
	s.log.Debug().Str("quality", label).Int64("pos", pos).Msg("quality switch started")

	s.qualityTimer = s.sched.AfterFunc(s.tuning.QualitySettle, func() {
		if gen != s.qualityGen {
			return
		}
		s.engine.Stop()
		if err := s.engine.Load(uri); err != nil {
			s.fail("quality", err)
			return
		}
		s.quality = label
		if err := s.engine.Play(); err != nil {
			s.fail("quality", err)
			return
		}
		s.qualityTimer = s.sched.AfterFunc(s.tuning.QualityPollDelay, func() {
			s.pollQuality(gen, pos, 1)
		})
	})
	return nil
}

func (s *Session) pollQuality(gen int, pos int64, attempt int) {
	if gen != s.qualityGen {
		return
	}
	if s.engine.IsPlaying() {
		if pos > 0 {
			s.engine.SetTime(pos)
		}
		s.finishQuality(true)
		return
	}
	if attempt >= s.tuning.QualityPollAttempts {
		s.finishQuality(false)
		return
	}
	s.qualityTimer = s.sched.AfterFunc(s.tuning.QualityPollInterval, func() {
		s.pollQuality(gen, pos, attempt+1)
	})
}

func (s *Session) finishQuality(restored bool) {
	s.qualityTimer = nil
	s.setState(StatePlaying)
	s.metrics.QualitySwitched(restored)
	s.log.Debug().Bool("restored", restored).Msg("quality switch finished")
}

// SwitchOutput moves the video to another surface. Ignored while switching quality.
func (s *Session) SwitchOutput(kind SurfaceKind) {
	if s.state == StateQualitySwitching {
		return
	}
	s.router.Switch(kind)
}

// ToggleFullscreen flips full-screen treatment of the bound surface.
func (s *Session) ToggleFullscreen() bool {
	return s.router.ToggleFullscreen()
}

// LeavePlayerView floats active media into the mini surface.
func (s *Session) LeavePlayerView() {
	if s.state == StateQualitySwitching {
		return
	}
	s.router.LeavePlayerView()
}

// EnterPlayerView docks the video into the primary surface.
func (s *Session) EnterPlayerView() {
	if s.state == StateQualitySwitching {
		return
	}
	s.router.EnterPlayerView()
}

// Stop halts playback and returns to Idle; the engine stays alive.
func (s *Session) Stop() {
	if s.state == StateUnavailable {
		return
	}
	s.cancelPending()
	s.poller.Stop()
	s.engine.Stop()
	s.setState(StateIdle)
}

// StopAndClose stops, leaves full-screen and fires OnClose.
func (s *Session) StopAndClose() {
	s.Stop()
	s.router.SetFullscreen(false)
	if s.cb.OnClose != nil {
		s.cb.OnClose()
	}
}

// Release cancels pending work and destroys the engine.
func (s *Session) Release() {
	s.cancelPending()
	s.poller.Stop()
	s.engine.Release()
	if s.state != StateUnavailable {
		s.setState(StateIdle)
	}
}

func (s *Session) tick() {
	if s.state == StateQualitySwitching || s.router.Busy() || !s.engine.Ready() {
		return
	}

	switch s.engine.State() {
	case EngineEnded:
		s.setState(StateEnded)
	case EngineError:
		s.fail("playback", errors.New("engine reported an error"))
		return
	case EnginePlaying:
		if s.state == StatePaused {
			s.setState(StatePlaying)
		}
	case EnginePaused:
		if s.state == StatePlaying {
			s.setState(StatePaused)
		}
	}

	if s.cb.OnStatus == nil {
		return
	}
	t, length := s.engine.Time(), s.engine.Length()
	s.cb.OnStatus(Status{
		State:    s.state,
		TimeMs:   t,
		LengthMs: length,
		Position: s.engine.Position(),
		Label:    FormatMillis(t) + " / " + FormatMillis(length),
	})
}

// restart rewinds ended media and plays it. The engine keeps the file open
// at the end, so a seek and resume is enough.
func (s *Session) restart() {
	s.engine.SetTime(0)
	s.resume()
}

func (s *Session) resume() {
	if err := s.engine.Play(); err != nil {
		s.fail("play", err)
		return
	}
	s.setState(StatePlaying)
	s.poller.Start(s.tick)
}

func (s *Session) loaded() bool {
	return s.engine.Ready() && s.engine.URI() != "" && s.state != StateUnavailable
}

func (s *Session) busy() bool {
	return s.state == StateQualitySwitching || s.router.Busy()
}

func (s *Session) cancelPending() {
	s.qualityGen++
	if s.qualityTimer != nil {
		s.qualityTimer.Stop()
		s.qualityTimer = nil
	}
	s.router.CancelRestore()
}

func (s *Session) degrade(err error) {
	s.poller.Stop()
	s.setState(StateUnavailable)
	s.router.Degrade(UnavailableMessage)
	s.metrics.PlaybackFailed("create")
	s.log.Warn().Err(err).Msg("playback degraded")
	if s.cb.OnError != nil {
		s.cb.OnError(err)
	}
}

func (s *Session) fail(op string, err error) {
	perr := &PlaybackError{Op: op, Err: err}
	s.cancelPending()
	s.poller.Stop()
	s.setState(StateIdle)
	s.router.ShowError(perr.Error())
	s.metrics.PlaybackFailed(op)
	s.log.Error().Err(err).Str("op", op).Msg("playback failed")
	if s.cb.OnError != nil {
		s.cb.OnError(perr)
	}
}

func (s *Session) setState(st State) {
	if s.state == st {
		return
	}
	s.log.Debug().Stringer("from", s.state).Stringer("to", st).Msg("state")
	s.state = st
	if s.cb.OnState != nil {
		s.cb.OnState(st)
	}
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
