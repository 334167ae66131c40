package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytplay/internal/app"
	"github.com/ytget/ytplay/internal/config"
	"github.com/ytget/ytplay/internal/download"
	"github.com/ytget/ytplay/internal/model"
	"github.com/ytget/ytplay/internal/playback"
)

type stubResolver struct {
	info *model.VideoInfo
	err  error
}

func (r stubResolver) Resolve(ctx context.Context, url string) (*model.VideoInfo, error) {
	return r.info, r.err
}

type stubEngine struct {
	fs  afero.Fs
	err error
}

func (e stubEngine) Download(ctx context.Context, req download.Request, hook func(download.Progress)) error {
	if e.err != nil {
		return e.err
	}
	hook(download.Progress{Status: download.ProgressDownloading, DownloadedBytes: 5, TotalBytes: 10})
	base := strings.TrimSuffix(req.OutputTemplate, ".%(ext)s")
	return afero.WriteFile(e.fs, base+"."+req.Mode.Ext(), []byte("media"), 0o644)
}

type missingBackend struct{}

func (missingBackend) NewInstance(args []string) (playback.Instance, error) {
	return nil, fmt.Errorf("%w: mpv not found", playback.ErrEngineUnavailable)
}

func sampleInfo() *model.VideoInfo {
	return &model.VideoInfo{
		Title:       "Clip",
		DurationSec: 65,
		Formats: []model.RawFormat{
			{FormatID: "18", Height: 360, HasVideo: true, HasAudio: true, URL: "https://cdn/360"},
			{FormatID: "22", Height: 720, HasVideo: true, HasAudio: true, URL: "https://cdn/720"},
			{FormatID: "137", Height: 1080, HasVideo: true},
		},
	}
}

func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv("YTPLAY_DOWNLOAD_CLEANUP_DELAY", "0s")
	t.Setenv("YTPLAY_DOWNLOAD_RETRY_ATTEMPTS", "1")
	t.Setenv("YTPLAY_LOG_LEVEL", "error")
}

func run(t *testing.T, r *runner, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(r)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config-dir", t.TempDir()}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	return ee.Code
}

func TestVersion(t *testing.T) {
	out, err := run(t, newRunner(nil), "version")
	require.NoError(t, err)
	assert.Equal(t, "ytplay dev\n", out)
}

func TestRootRunsGUIWithTuning(t *testing.T) {
	quietEnv(t)
	t.Setenv("YTPLAY_PLAYBACK_VOLUME", "30")

	var got config.Tuning
	gui := func(ctx context.Context, tn config.Tuning, version string) error {
		got = tn
		assert.Equal(t, Version, version)
		return nil
	}
	_, err := run(t, newRunner(gui))
	require.NoError(t, err)
	assert.Equal(t, 30, got.Playback.Volume)
	assert.Equal(t, uint(1), got.Download.RetryAttempts)
}

func TestRootReadsConfigFile(t *testing.T) {
	quietEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ytplay.yaml"), []byte("playback:\n  seek_step: 15s\n"), 0o644))

	var got config.Tuning
	gui := func(ctx context.Context, tn config.Tuning, version string) error {
		got = tn
		return nil
	}
	cmd := newRootCmd(newRunner(gui))
	cmd.SetArgs([]string{"--config-dir", dir})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, int64(15000), app.PlaybackTuning(got.Playback).SeekStep)
}

func TestRootWithoutGUI(t *testing.T) {
	quietEnv(t)
	_, err := run(t, newRunner(nil))
	assert.Equal(t, ExitCLIError, exitCode(t, err))
}

func TestFormats(t *testing.T) {
	quietEnv(t)
	r := newRunner(nil, app.WithResolver(stubResolver{info: sampleInfo()}))

	out, err := run(t, r, "formats", "https://youtu.be/x")
	require.NoError(t, err)
	assert.Contains(t, out, "Title:    Clip")
	assert.Contains(t, out, "Duration: 01:05")
	assert.Contains(t, out, "137+bestaudio")
	assert.Contains(t, out, "Preview: [720p 360p]")
}

func TestFormatsErrors(t *testing.T) {
	quietEnv(t)
	r := newRunner(nil, app.WithResolver(stubResolver{err: errors.New("private video")}))

	_, err := run(t, r, "formats", "https://youtu.be/x")
	assert.Equal(t, ExitDownloadError, exitCode(t, err))

	_, err = run(t, r, "formats", "--mode", "flac", "https://youtu.be/x")
	assert.Equal(t, ExitCLIError, exitCode(t, err))
}

func TestDownload(t *testing.T) {
	quietEnv(t)
	fs := afero.NewMemMapFs()
	r := newRunner(nil,
		app.WithFs(fs),
		app.WithDownloadEngine(stubEngine{fs: fs}),
		app.WithResolver(stubResolver{info: sampleInfo()}),
	)

	out, err := run(t, r, "download", "--out-dir", "/dl", "--name", "clip", "--format", "720p",
		"https://youtu.be/a", "https://youtu.be/b")
	require.NoError(t, err)
	assert.Contains(t, out, "[1]  50%")
	assert.Contains(t, out, "[1] done  /dl/clip.mp4")
	assert.Contains(t, out, "[2] done  /dl/clip (#1).mp4")
	assert.Contains(t, out, "all downloads finished")
}

func TestDownloadFailureExitCode(t *testing.T) {
	quietEnv(t)
	fs := afero.NewMemMapFs()
	r := newRunner(nil, app.WithFs(fs), app.WithDownloadEngine(stubEngine{fs: fs, err: errors.New("HTTP Error 403: Forbidden")}))

	out, err := run(t, r, "download", "--out-dir", "/dl", "https://youtu.be/a")
	assert.Equal(t, ExitDownloadError, exitCode(t, err))
	assert.Contains(t, out, "[1] failed")
}

func TestDownloadUnknownFormat(t *testing.T) {
	quietEnv(t)
	r := newRunner(nil, app.WithResolver(stubResolver{info: sampleInfo()}))

	_, err := run(t, r, "download", "--out-dir", "/dl", "--format", "4320p", "https://youtu.be/a")
	assert.Equal(t, ExitCLIError, exitCode(t, err))
}

func TestPlayWithoutEngine(t *testing.T) {
	quietEnv(t)
	file := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(file, []byte("media"), 0o644))

	r := newRunner(nil, app.WithMediaBackend(missingBackend{}))
	_, err := run(t, r, "play", file)
	assert.Equal(t, ExitPlaybackError, exitCode(t, err))
	assert.ErrorIs(t, err, playback.ErrEngineUnavailable)
}

func TestResolvePlayable(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/media/clip.mp4", []byte("x"), 0o644))
	s := app.New(config.Tuning{}, "", nil, app.WithResolver(stubResolver{info: sampleInfo()}))
	ctx := context.Background()

	p, err := resolvePlayable(ctx, s, fs, "/media/clip.mp4", "")
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", p.title)
	assert.Nil(t, p.streams)

	p, err = resolvePlayable(ctx, s, fs, "https://youtu.be/x", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/720", p.uri)
	assert.Len(t, p.streams, 2)

	p, err = resolvePlayable(ctx, s, fs, "https://youtu.be/x", "360p")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/360", p.uri)

	_, err = resolvePlayable(ctx, s, fs, "https://youtu.be/x", "1080p")
	assert.ErrorIs(t, err, playback.ErrUnknownQuality)
}
