package playback

import (
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

type fakeBackend struct {
	instances int
	err       error
	mediaErr  error
	player    *fakePlayer
}

func (b *fakeBackend) NewInstance(args []string) (Instance, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.instances++
	if b.player == nil {
		b.player = &fakePlayer{}
	}
	return &fakeInstance{backend: b}, nil
}

type fakeInstance struct {
	backend  *fakeBackend
	released bool
}

func (i *fakeInstance) NewMedia(uri string) (Media, error) {
	if i.backend.mediaErr != nil {
		return nil, i.backend.mediaErr
	}
	return fakeMedia(uri), nil
}

func (i *fakeInstance) NewPlayer() (Player, error) {
	return i.backend.player, nil
}

func (i *fakeInstance) Release() error {
	i.released = true
	return nil
}

type fakeMedia string

func (m fakeMedia) URI() string { return string(m) }

// fakePlayer models an engine that starts playing immediately unless stall is set.
type fakePlayer struct {
	media    Media
	state    EngineState
	time     int64
	length   int64
	pos      float64
	bound    []uintptr
	volume   int
	muted    bool
	stall    bool
	stops    int
	released bool

	// unloadOnStop makes Stop drop the file like mpv does; seeks then fail
	// until new media is set.
	unloadOnStop bool
	unloaded     bool
}

func (p *fakePlayer) SetMedia(m Media) error {
	p.media = m
	p.unloaded = false
	p.state = EngineOpening
	return nil
}

func (p *fakePlayer) Play() error {
	if p.media == nil {
		return errors.New("no media")
	}
	if p.stall {
		p.state = EngineOpening
		return nil
	}
	p.state = EnginePlaying
	return nil
}

func (p *fakePlayer) SetPause(pause bool) error {
	if pause {
		p.state = EnginePaused
	} else {
		p.state = EnginePlaying
	}
	return nil
}

func (p *fakePlayer) Stop() error {
	p.stops++
	p.unloaded = p.unloadOnStop
	p.state = EngineStopped
	p.time = 0
	p.pos = 0
	return nil
}

func (p *fakePlayer) State() EngineState { return p.state }
func (p *fakePlayer) IsPlaying() bool    { return p.state == EnginePlaying }
func (p *fakePlayer) Time() int64        { return p.time }
func (p *fakePlayer) Length() int64      { return p.length }
func (p *fakePlayer) Position() float64  { return p.pos }

func (p *fakePlayer) SetTime(ms int64) error {
	if p.unloaded {
		return errors.New("no file loaded")
	}
	p.time = ms
	if p.length > 0 {
		p.pos = float64(ms) / float64(p.length)
	}
	return nil
}

func (p *fakePlayer) SetPosition(f float64) error {
	if p.unloaded {
		return errors.New("no file loaded")
	}
	p.pos = f
	p.time = int64(f * float64(p.length))
	return nil
}

func (p *fakePlayer) BindOutput(handle uintptr) error {
	p.bound = append(p.bound, handle)
	return nil
}

func (p *fakePlayer) SetVolume(v int) error {
	p.volume = v
	return nil
}

func (p *fakePlayer) SetMute(mute bool) error {
	p.muted = mute
	return nil
}

func (p *fakePlayer) ToggleMute() error {
	p.muted = !p.muted
	return nil
}

func (p *fakePlayer) Release() error {
	p.released = true
	return nil
}

func (p *fakePlayer) lastBound() uintptr {
	if len(p.bound) == 0 {
		return 0
	}
	return p.bound[len(p.bound)-1]
}

type fakeSurface struct {
	handle      uintptr
	unrealized  bool
	bound       bool
	full        bool
	placeholder string
}

func (s *fakeSurface) NativeHandle() (uintptr, bool) { return s.handle, !s.unrealized }
func (s *fakeSurface) SetBound(b bool)               { s.bound = b }
func (s *fakeSurface) SetFullScreen(f bool)          { s.full = f }
func (s *fakeSurface) ShowPlaceholder(msg string)    { s.placeholder = msg }

// manualScheduler fires timers only when the test advances its clock.
type manualScheduler struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.seq++
	t := &manualTimer{at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward by d firing due timers in order.
func (s *manualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		due := s.due(target)
		if due == nil {
			break
		}
		s.now = due.at
		due.fired = true
		due.fn()
	}
	s.now = target
}

func (s *manualScheduler) due(target time.Duration) *manualTimer {
	var pending []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= target {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].at == pending[j].at {
			return pending[i].seq < pending[j].seq
		}
		return pending[i].at < pending[j].at
	})
	return pending[0]
}

type sessionFixture struct {
	backend  *fakeBackend
	player   *fakePlayer
	sched    *manualScheduler
	surfaces map[SurfaceKind]*fakeSurface
	session  *Session
	states   []State
	statuses []Status
	errs     []error
	closed   int
}

func newFixture(backend Backend) *sessionFixture {
	f := &sessionFixture{
		sched: &manualScheduler{},
		surfaces: map[SurfaceKind]*fakeSurface{
			SurfacePrimary:    {handle: 11},
			SurfaceMini:       {handle: 22},
			SurfaceFullscreen: {handle: 33},
		},
	}
	if fb, ok := backend.(*fakeBackend); ok && fb != nil {
		f.backend = fb
		if fb.player == nil {
			fb.player = &fakePlayer{length: 120000}
		}
		f.player = fb.player
	}

	surfaces := make(map[SurfaceKind]Surface, len(f.surfaces))
	for k, s := range f.surfaces {
		surfaces[k] = s
	}
	engine := NewEngineHandle(backend, nil, zerolog.Nop())
	f.session = NewSession(engine, surfaces, f.sched, WithCallbacks(Callbacks{
		OnState:  func(s State) { f.states = append(f.states, s) },
		OnStatus: func(s Status) { f.statuses = append(f.statuses, s) },
		OnClose:  func() { f.closed++ },
		OnError:  func(err error) { f.errs = append(f.errs, err) },
	}))
	return f
}

func (f *sessionFixture) boundCount() int {
	n := 0
	for _, s := range f.surfaces {
		if s.bound {
			n++
		}
	}
	return n
}
