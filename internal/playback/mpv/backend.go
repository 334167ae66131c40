// Package mpv implements the playback engine interfaces on top of an mpv
// process controlled through its JSON IPC socket.
package mpv

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ytget/ytplay/internal/playback"
)

// DefaultBinary is the mpv executable looked up in PATH
const DefaultBinary = "mpv"

// DefaultCacheSecs is the read-ahead cache used to smooth remote streams
const DefaultCacheSecs = 3

// DefaultArgs returns the engine arguments: a read-ahead cache sized to
// cacheSecs and no on-screen controls, so the host UI keeps input focus.
func DefaultArgs(cacheSecs int) []string {
	if cacheSecs <= 0 {
		cacheSecs = DefaultCacheSecs
	}
	return []string{
		"--cache=yes",
		fmt.Sprintf("--cache-secs=%d", cacheSecs),
		fmt.Sprintf("--demuxer-readahead-secs=%d", cacheSecs),
		"--really-quiet",
		"--input-default-bindings=no",
		"--input-vo-keyboard=no",
		"--input-cursor=no",
		"--osd-level=0",
	}
}

// Backend creates mpv engine instances.
type Backend struct {
	Binary string
	Log    zerolog.Logger
}

// NewBackend returns a backend for binary, DefaultBinary when empty.
func NewBackend(binary string, logger zerolog.Logger) *Backend {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Backend{Binary: binary, Log: logger}
}

// NewInstance resolves the mpv binary. A missing binary is reported as
// playback.ErrEngineUnavailable.
func (b *Backend) NewInstance(args []string) (playback.Instance, error) {
	if runtime.GOOS == "windows" {
		return nil, fmt.Errorf("%w: mpv IPC over unix sockets is not supported on %s", playback.ErrEngineUnavailable, runtime.GOOS)
	}
	path, err := exec.LookPath(b.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", playback.ErrEngineUnavailable, err)
	}
	b.Log.Debug().Str("binary", path).Msg("mpv found")
	return &Instance{
		binary: path,
		args:   append([]string(nil), args...),
		log:    b.Log,
	}, nil
}

// Instance opens media and creates the mpv-backed player.
type Instance struct {
	binary string
	args   []string
	log    zerolog.Logger
}

// NewMedia validates uri as a URL or local path.
func (i *Instance) NewMedia(uri string) (playback.Media, error) {
	target, err := sanitizeMediaTarget(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid media target: %w", err)
	}
	return media(target), nil
}

// NewPlayer returns a player; the mpv process starts on the first Play.
func (i *Instance) NewPlayer() (playback.Player, error) {
	return newPlayer(i.binary, i.args, i.log), nil
}

// Release is a no-op; the player owns the process.
func (i *Instance) Release() error {
	return nil
}

type media string

func (m media) URI() string { return string(m) }
