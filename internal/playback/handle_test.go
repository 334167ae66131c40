package playback

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullEngineHandle(t *testing.T) {
	h := NewEngineHandle(nil, nil, zerolog.Nop())

	assert.False(t, h.Available())
	assert.False(t, h.Ready())
	_, err := h.Ensure(0, false)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	assert.ErrorIs(t, h.Load("x"), ErrEngineUnavailable)

	assert.NoError(t, h.Play())
	h.Pause(true)
	h.SetTime(10)
	h.Release()
	assert.Equal(t, EngineIdle, h.State())
	assert.Zero(t, h.Time())
	assert.Zero(t, h.Length())
	assert.Empty(t, h.URI())
}

func TestEngineHandleLifecycle(t *testing.T) {
	backend := &fakeBackend{player: &fakePlayer{}}
	h := NewEngineHandle(backend, []string{"--cache=yes"}, zerolog.Nop())

	created, err := h.Ensure(42, true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []uintptr{42}, backend.player.bound)

	created, err = h.Ensure(43, true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, backend.instances)

	require.NoError(t, h.Load("file:///tmp/a.mp4"))
	assert.Equal(t, "file:///tmp/a.mp4", h.URI())
	require.NoError(t, h.Play())
	assert.True(t, h.IsPlaying())

	h.Release()
	assert.False(t, h.Ready())
	assert.True(t, backend.player.released)
	assert.Empty(t, h.URI())

	created, err = h.Ensure(0, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, backend.instances)
}

func TestFormatMillis(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00"},
		{-5, "00:00"},
		{59999, "00:59"},
		{65000, "01:05"},
		{3600000, "1:00:00"},
		{3723000, "1:02:03"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMillis(tt.ms), "ms=%d", tt.ms)
	}
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "QualitySwitching", StateQualitySwitching.String())
	assert.Equal(t, "Unavailable", StateUnavailable.String())
	assert.Equal(t, "mini", SurfaceMini.String())
	assert.True(t, EngineBuffering.IsActive())
	assert.False(t, EngineEnded.IsActive())
}
