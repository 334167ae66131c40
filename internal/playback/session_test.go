package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	uri720 = "https://cdn.example/720.mp4"
	uri360 = "https://cdn.example/360.mp4"
)

func loadedFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := newFixture(&fakeBackend{})
	f.session.Load(uri720, "Clip", map[string]string{"720p": uri720, "360p": uri360})
	require.Equal(t, StatePlaying, f.session.State())
	return f
}

func TestLoadCreatesEngineOnce(t *testing.T) {
	f := loadedFixture(t)

	assert.Equal(t, 1, f.backend.instances)
	assert.Equal(t, uintptr(11), f.player.lastBound())
	assert.Equal(t, 70, f.player.volume)
	assert.Equal(t, "720p", f.session.CurrentQuality())
	assert.Equal(t, []string{"720p", "360p"}, f.session.Qualities())
	assert.Equal(t, []State{StateLoading, StatePlaying}, f.states)

	f.session.Load(uri360, "Other", nil)
	assert.Equal(t, 1, f.backend.instances, "engine is reused")
	assert.Equal(t, 1, f.player.stops)
	assert.Equal(t, uri360, f.player.media.URI())
	assert.Equal(t, "Other", f.session.Title())
	assert.Empty(t, f.session.CurrentQuality())
}

func TestTogglePlayPausesAndResumes(t *testing.T) {
	f := loadedFixture(t)

	f.session.TogglePlay()
	assert.Equal(t, StatePaused, f.session.State())
	assert.Equal(t, EnginePaused, f.player.state)

	f.session.TogglePlay()
	assert.Equal(t, StatePlaying, f.session.State())
	assert.Equal(t, EnginePlaying, f.player.state)
}

func TestTogglePlayRestartsEndedMedia(t *testing.T) {
	f := loadedFixture(t)
	f.player.state = EngineEnded
	f.player.time = 120000

	f.sched.Advance(time.Second)
	require.Equal(t, StateEnded, f.session.State())

	f.session.TogglePlay()
	assert.Equal(t, StatePlaying, f.session.State())
	assert.Equal(t, EnginePlaying, f.player.state)
	assert.Equal(t, int64(0), f.player.time)
}

func TestSeekToFractionRestartsEndedMedia(t *testing.T) {
	f := loadedFixture(t)
	f.player.length = 100000
	f.player.state = EngineEnded

	f.sched.Advance(time.Second)
	require.Equal(t, StateEnded, f.session.State())

	f.session.SeekToFraction(0.5)
	assert.Equal(t, StatePlaying, f.session.State())
	assert.Equal(t, 0.5, f.player.pos)
	assert.Equal(t, int64(50000), f.player.time)

	f.session.SeekToFraction(3)
	assert.Equal(t, 1.0, f.player.pos)
}

func TestEndedMediaResumesWithoutReload(t *testing.T) {
	f := loadedFixture(t)
	f.player.unloadOnStop = true
	f.player.length = 100000
	f.player.time = 100000
	f.player.state = EngineEnded
	f.sched.Advance(time.Second)
	require.Equal(t, StateEnded, f.session.State())
	stops := f.player.stops

	f.session.SeekToFraction(0.25)
	assert.Equal(t, StatePlaying, f.session.State())
	assert.Equal(t, EnginePlaying, f.player.state)
	assert.Equal(t, int64(25000), f.player.time)

	f.player.state = EngineEnded
	f.sched.Advance(time.Second)
	require.Equal(t, StateEnded, f.session.State())

	f.session.TogglePlay()
	assert.Equal(t, StatePlaying, f.session.State())
	assert.Equal(t, int64(0), f.player.time)
	assert.Equal(t, stops, f.player.stops, "ended media is not stopped")
	assert.Empty(t, f.errs)
}

func TestSeekRelativeClamps(t *testing.T) {
	f := loadedFixture(t)
	f.player.length = 60000
	f.player.time = 3000

	f.session.SkipBackward()
	assert.Equal(t, int64(0), f.player.time)

	f.player.time = 58000
	f.session.SkipForward()
	assert.Equal(t, int64(60000), f.player.time)

	f.player.time = 10000
	f.session.SeekRelative(2500)
	assert.Equal(t, int64(12500), f.player.time)
}

func TestStatusPolling(t *testing.T) {
	f := loadedFixture(t)
	f.player.time = 65000
	f.player.pos = 0.5

	f.sched.Advance(time.Second)
	require.Len(t, f.statuses, 1)
	st := f.statuses[0]
	assert.Equal(t, StatePlaying, st.State)
	assert.Equal(t, int64(65000), st.TimeMs)
	assert.Equal(t, "01:05 / 02:00", st.Label)

	f.player.state = EnginePaused
	f.sched.Advance(time.Second)
	assert.Equal(t, StatePaused, f.session.State())
	assert.Len(t, f.statuses, 2)
}

func TestEngineErrorFailsSession(t *testing.T) {
	f := loadedFixture(t)
	f.player.state = EngineError

	f.sched.Advance(time.Second)
	assert.Equal(t, StateIdle, f.session.State())
	require.Len(t, f.errs, 1)
	var perr *PlaybackError
	require.ErrorAs(t, f.errs[0], &perr)
	assert.Equal(t, "playback", perr.Op)
	assert.NotEmpty(t, f.surfaces[SurfacePrimary].placeholder)
}

func TestChangeQualityPreservesPosition(t *testing.T) {
	f := loadedFixture(t)
	f.player.time = 30000

	require.NoError(t, f.session.ChangeQuality("360p"))
	assert.Equal(t, StateQualitySwitching, f.session.State())
	assert.Equal(t, EnginePaused, f.player.state)

	f.sched.Advance(100 * time.Millisecond)
	assert.Equal(t, uri360, f.player.media.URI())
	assert.Equal(t, StateQualitySwitching, f.session.State())

	f.sched.Advance(200 * time.Millisecond)
	assert.Equal(t, StatePlaying, f.session.State())
	assert.Equal(t, int64(30000), f.player.time)
	assert.Equal(t, "360p", f.session.CurrentQuality())
}

func TestChangeQualityTimeoutLeavesSwitching(t *testing.T) {
	f := loadedFixture(t)
	f.player.time = 30000
	f.player.stall = true

	require.NoError(t, f.session.ChangeQuality("360p"))
	f.sched.Advance(2100 * time.Millisecond)
	assert.Equal(t, StateQualitySwitching, f.session.State())
	assert.Empty(t, f.statuses, "status polls are skipped while switching")

	f.sched.Advance(100 * time.Millisecond)
	assert.Equal(t, StatePlaying, f.session.State())
	assert.Equal(t, int64(0), f.player.time, "position is not restored after a timeout")

	f.player.stall = false
	f.session.TogglePlay()
	assert.Equal(t, StatePaused, f.session.State())
}

func TestChangeQualityErrors(t *testing.T) {
	f := loadedFixture(t)

	assert.ErrorIs(t, f.session.ChangeQuality("1080p"), ErrUnknownQuality)
	assert.NoError(t, f.session.ChangeQuality("720p"))
	assert.Equal(t, StatePlaying, f.session.State())

	require.NoError(t, f.session.ChangeQuality("360p"))
	assert.ErrorIs(t, f.session.ChangeQuality("720p"), ErrBusy)

	f.session.Stop()
	assert.Equal(t, StateIdle, f.session.State())
	assert.ErrorIs(t, f.session.ChangeQuality("360p"), ErrNoMedia)

	f.sched.Advance(time.Minute)
	assert.Equal(t, uri720, f.player.media.URI(), "a cancelled switch never reloads")
}

func TestLoadCancelsPendingQualitySwitch(t *testing.T) {
	f := loadedFixture(t)
	require.NoError(t, f.session.ChangeQuality("360p"))

	f.session.Load(uri720, "Clip", map[string]string{"720p": uri720})
	f.sched.Advance(time.Second)
	assert.Equal(t, uri720, f.player.media.URI())
	assert.Equal(t, StatePlaying, f.session.State())
}

func TestSwitchOutputKeepsOneSurfaceBound(t *testing.T) {
	f := loadedFixture(t)
	f.player.time = 12000

	f.session.SwitchOutput(SurfaceMini)
	assert.Equal(t, 1, f.boundCount())
	assert.True(t, f.surfaces[SurfaceMini].bound)
	assert.False(t, f.surfaces[SurfacePrimary].bound)
	assert.Equal(t, uintptr(22), f.player.lastBound())
	assert.True(t, f.session.Router().Busy())

	f.session.SkipForward()
	assert.Equal(t, int64(0), f.player.time, "seeks are ignored while migrating")

	f.sched.Advance(100 * time.Millisecond)
	assert.False(t, f.session.Router().Busy())
	assert.Equal(t, int64(12000), f.player.time)
	assert.Equal(t, EnginePlaying, f.player.state)

	f.session.SwitchOutput(SurfaceFullscreen)
	assert.Equal(t, 1, f.boundCount())
	assert.True(t, f.session.Router().IsBound(SurfaceFullscreen))
}

func TestSwitchOutputRestoresPause(t *testing.T) {
	f := loadedFixture(t)
	f.player.time = 8000
	f.session.TogglePlay()

	f.session.SwitchOutput(SurfaceMini)
	f.sched.Advance(100 * time.Millisecond)
	assert.Equal(t, EnginePaused, f.player.state)
	assert.Equal(t, int64(8000), f.player.time)
	assert.Equal(t, StatePaused, f.session.State())
}

func TestSwitchOutputTwiceKeepsFirstCapture(t *testing.T) {
	f := loadedFixture(t)
	f.player.time = 30000
	f.session.TogglePlay()

	f.session.SwitchOutput(SurfaceMini)
	f.sched.Advance(50 * time.Millisecond)
	require.True(t, f.session.Router().Busy())

	f.session.SwitchOutput(SurfaceFullscreen)
	f.sched.Advance(200 * time.Millisecond)

	assert.False(t, f.session.Router().Busy())
	assert.True(t, f.session.Router().IsBound(SurfaceFullscreen))
	assert.Equal(t, 1, f.boundCount())
	assert.Equal(t, int64(30000), f.player.time)
	assert.Equal(t, EnginePaused, f.player.state)
	assert.Equal(t, StatePaused, f.session.State())
}

func TestSwitchOutputWithoutMediaOnlyRebinds(t *testing.T) {
	f := newFixture(&fakeBackend{})

	f.session.SwitchOutput(SurfaceMini)
	assert.True(t, f.surfaces[SurfaceMini].bound)
	assert.Equal(t, 1, f.boundCount())
	assert.False(t, f.session.Router().Busy())
	assert.Equal(t, 0, f.backend.instances)
}

func TestLeaveAndEnterPlayerView(t *testing.T) {
	f := newFixture(&fakeBackend{})
	f.session.LeavePlayerView()
	assert.True(t, f.surfaces[SurfacePrimary].bound, "idle session stays docked")

	f.session.Load(uri720, "Clip", nil)
	f.session.LeavePlayerView()
	assert.True(t, f.surfaces[SurfaceMini].bound)

	f.sched.Advance(100 * time.Millisecond)
	f.session.EnterPlayerView()
	assert.True(t, f.surfaces[SurfacePrimary].bound)
	assert.Equal(t, 1, f.boundCount())
}

func TestFullscreenAndStopAndClose(t *testing.T) {
	f := loadedFixture(t)

	assert.True(t, f.session.ToggleFullscreen())
	assert.True(t, f.surfaces[SurfacePrimary].full)

	f.session.StopAndClose()
	assert.False(t, f.surfaces[SurfacePrimary].full)
	assert.Equal(t, StateIdle, f.session.State())
	assert.Equal(t, 1, f.closed)
	assert.Equal(t, 1, f.backend.instances)
	assert.False(t, f.player.released)
}

func TestVolumeAndMute(t *testing.T) {
	f := loadedFixture(t)

	f.session.ToggleMute()
	assert.True(t, f.session.Muted())
	assert.True(t, f.player.muted)

	f.session.SetVolume(150)
	assert.Equal(t, 100, f.session.Volume())
	assert.Equal(t, 100, f.player.volume)
	assert.False(t, f.player.muted)

	f.session.SetVolume(-3)
	assert.Equal(t, 0, f.session.Volume())
}

func TestReleaseDestroysEngine(t *testing.T) {
	f := loadedFixture(t)

	f.session.Release()
	assert.True(t, f.player.released)
	assert.Equal(t, StateIdle, f.session.State())

	f.session.Load(uri720, "Clip", nil)
	assert.Equal(t, 2, f.backend.instances)
}

func TestUnavailableEngineDegrades(t *testing.T) {
	f := newFixture(nil)

	assert.Equal(t, StateUnavailable, f.session.State())
	assert.Equal(t, UnavailableMessage, f.surfaces[SurfacePrimary].placeholder)

	f.session.Load(uri720, "Clip", nil)
	require.Len(t, f.errs, 1)
	assert.ErrorIs(t, f.errs[0], ErrEngineUnavailable)

	f.session.TogglePlay()
	f.session.SeekToFraction(0.3)
	f.session.SkipForward()
	f.session.Stop()
	assert.ErrorIs(t, f.session.ChangeQuality("720p"), ErrUnknownQuality)
	assert.Equal(t, StateUnavailable, f.session.State())

	f.session.SwitchOutput(SurfaceMini)
	assert.Empty(t, f.surfaces[SurfacePrimary].placeholder)
	assert.Equal(t, UnavailableMessage, f.surfaces[SurfaceMini].placeholder)
	assert.Equal(t, 1, f.boundCount())
}

func TestBackendFailureDegrades(t *testing.T) {
	f := newFixture(&fakeBackend{err: errors.Join(errors.New("mpv not found"), ErrEngineUnavailable)})

	f.session.Load(uri720, "Clip", nil)
	assert.Equal(t, StateUnavailable, f.session.State())
	require.Len(t, f.errs, 1)
	assert.ErrorIs(t, f.errs[0], ErrEngineUnavailable)
	assert.Equal(t, UnavailableMessage, f.surfaces[SurfacePrimary].placeholder)
}

func TestLoadFailureReportsError(t *testing.T) {
	f := newFixture(&fakeBackend{mediaErr: errors.New("bad uri")})

	f.session.Load("nope", "Broken", nil)
	assert.Equal(t, StateIdle, f.session.State())
	require.Len(t, f.errs, 1)
	var perr *PlaybackError
	require.ErrorAs(t, f.errs[0], &perr)
	assert.Equal(t, "load", perr.Op)
	assert.Contains(t, f.surfaces[SurfacePrimary].placeholder, "bad uri")

	f.backend.mediaErr = nil
	f.session.Load(uri720, "Clip", nil)
	assert.Equal(t, StatePlaying, f.session.State())
	assert.Empty(t, f.surfaces[SurfacePrimary].placeholder)
}
