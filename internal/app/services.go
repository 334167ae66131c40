// Package app builds the download and playback collaborators from the
// tunable configuration and exposes the operations shared by the GUI and
// the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/ytget/ytplay/internal/catalog"
	"github.com/ytget/ytplay/internal/config"
	"github.com/ytget/ytplay/internal/download"
	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/metrics"
	"github.com/ytget/ytplay/internal/model"
	"github.com/ytget/ytplay/internal/platform"
	"github.com/ytget/ytplay/internal/playback"
	"github.com/ytget/ytplay/internal/playback/mpv"
)

// ErrNoFormats is returned when a resolved video offers nothing to download
var ErrNoFormats = errors.New("no downloadable formats")

// Services holds the long-lived collaborators of one process
type Services struct {
	Tuning    config.Tuning
	Metrics   *metrics.Recorder
	Queue     *download.Orchestrator
	Searcher  *download.Searcher
	Playlists *platform.PlaylistExpander
	Engine    *playback.EngineHandle

	ytdlp    *download.YTDLP
	resolver download.Resolver
	log      zerolog.Logger
}

// Option overrides a collaborator, mostly for tests
type Option func(*options)

type options struct {
	fs       afero.Fs
	engine   download.Engine
	resolver download.Resolver
	backend  playback.Backend
	items    platform.ItemsFunc
}

// WithFs sets the filesystem the worker names and cleans files on
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithDownloadEngine replaces yt-dlp as the download engine
func WithDownloadEngine(e download.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithResolver replaces yt-dlp as the resolver
func WithResolver(r download.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithMediaBackend replaces mpv as the media engine backend
func WithMediaBackend(b playback.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithPlaylistItems replaces the playlist lookup
func WithPlaylistItems(fn platform.ItemsFunc) Option {
	return func(o *options) { o.items = fn }
}

// New wires the services. m may be nil.
func New(t config.Tuning, downloadDir string, m *metrics.Recorder, opts ...Option) *Services {
	y := download.NewYTDLP(t.Download.ProgressInterval)
	o := options{
		fs:       afero.NewOsFs(),
		engine:   y,
		resolver: y,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = mpv.NewBackend(t.Playback.MPVBinary, log.WithComponent("mpv"))
	}

	worker := download.NewWorker(o.engine,
		download.WithFs(o.fs),
		download.WithCleanupDelay(t.Download.CleanupDelay),
		download.WithRetry(t.Download.RetryAttempts, t.Download.RetryDelay),
		download.WithWorkerLogger(log.WithComponent("worker")),
		download.WithWorkerMetrics(m),
	)

	playlists := platform.NewPlaylistExpander()
	if o.items != nil {
		playlists.SetItemsFunc(o.items)
	}

	return &Services{
		Tuning: t,
		Metrics: m,
		Queue: download.NewOrchestrator(worker, downloadDir,
			download.WithQueueLogger(log.WithComponent("queue")),
			download.WithQueueMetrics(m),
		),
		Searcher:  download.NewSearcher(o.resolver, m),
		Playlists: playlists,
		Engine: playback.NewEngineHandle(o.backend,
			mpv.DefaultArgs(t.Playback.CacheSecs),
			log.WithComponent("engine"),
		),
		ytdlp:    y,
		resolver: o.resolver,
		log:      log.WithComponent("app"),
	}
}

// InstallEngine installs or updates the yt-dlp executable
func (s *Services) InstallEngine(ctx context.Context) error {
	return s.ytdlp.Install(ctx)
}

// Formats resolves url and returns its metadata with the options for mode
func (s *Services) Formats(ctx context.Context, url string, mode model.Mode) (*model.VideoInfo, []model.FormatOption, error) {
	info, err := s.Searcher.Resolve(ctx, download.NewSearchToken(), url)
	if err != nil {
		return nil, nil, err
	}
	return info, catalog.Build(info.Formats, mode), nil
}

// PickFormat returns the option labelled label, or the best entry when
// label is empty.
func PickFormat(options []model.FormatOption, label string) (model.FormatOption, error) {
	if len(options) == 0 {
		return model.FormatOption{}, ErrNoFormats
	}
	if label == "" {
		return options[0], nil
	}
	opt, ok := catalog.Find(options, label)
	if !ok {
		return model.FormatOption{}, fmt.Errorf("format %q not offered", label)
	}
	return opt, nil
}

// BestFormat is the automatic option for mode, usable without resolving
func BestFormat(mode model.Mode) model.FormatOption {
	if mode == model.ModeAudio {
		return model.FormatOption{Label: catalog.BestAudioLabel, Selector: catalog.BestAudioSelector, Rank: model.RankBest}
	}
	return model.FormatOption{Label: catalog.BestVideoLabel, Selector: catalog.BestVideoSelector, Rank: model.RankBest}
}

// EnqueueURL adds url to the queue. With expand set a playlist URL becomes
// one job per entry named after the entry; the IDs of the added jobs are
// returned in order.
func (s *Services) EnqueueURL(ctx context.Context, url string, format model.FormatOption, mode model.Mode, name string, expand bool) ([]int, error) {
	if !expand || !platform.IsPlaylistURL(url) {
		return []int{s.Queue.AddJob(url, format, mode, name)}, nil
	}

	pl, err := s.Playlists.Expand(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("expand playlist: %w", err)
	}
	ids := make([]int, 0, pl.Len())
	for i, e := range pl.Entries {
		ids = append(ids, s.Queue.AddJob(e.URL, format, mode, pl.EntryName(i)))
	}
	s.log.Info().Str("playlist", pl.ID).Int("jobs", len(ids)).Msg("playlist enqueued")
	return ids, nil
}

// NewSession creates a playback session over the shared engine handle
func (s *Services) NewSession(surfaces map[playback.SurfaceKind]playback.Surface, sched playback.Scheduler, cb playback.Callbacks) *playback.Session {
	return playback.NewSession(s.Engine, surfaces, sched,
		playback.WithTuning(PlaybackTuning(s.Tuning.Playback)),
		playback.WithCallbacks(cb),
		playback.WithSessionLogger(log.WithComponent("playback")),
		playback.WithSessionMetrics(s.Metrics),
	)
}

// PlaybackTuning converts configured tunables to session tuning, keeping
// defaults for unset values.
func PlaybackTuning(t config.PlaybackTuning) playback.Tuning {
	out := playback.DefaultTuning()
	if t.PollInterval > 0 {
		out.PollInterval = t.PollInterval
	}
	if t.QualitySettle > 0 {
		out.QualitySettle = t.QualitySettle
	}
	if t.QualityPollDelay > 0 {
		out.QualityPollDelay = t.QualityPollDelay
	}
	if t.QualityPollInterval > 0 {
		out.QualityPollInterval = t.QualityPollInterval
	}
	if t.QualityPollAttempts > 0 {
		out.QualityPollAttempts = t.QualityPollAttempts
	}
	if t.OutputSettle > 0 {
		out.OutputSettle = t.OutputSettle
	}
	if t.SeekStep > 0 {
		out.SeekStep = t.SeekStep.Milliseconds()
	}
	out.Volume = t.Volume
	return out
}

// LogConfig converts configured tunables to a logger configuration
func LogConfig(t config.LogTuning, service string) log.Config {
	return log.Config{
		Level:   t.Level,
		Console: t.Console,
		Service: service,
		File: log.FileConfig{
			Path:       t.File,
			MaxSizeMB:  t.MaxSizeMB,
			MaxBackups: t.MaxBackups,
			MaxAgeDays: t.MaxAgeDays,
			Compress:   t.Compress,
		},
	}
}

// ServeMetrics serves the Prometheus endpoint on addr until ctx is done. An
// empty addr or a nil recorder disables it.
func (s *Services) ServeMetrics(ctx context.Context, addr string) error {
	if addr == "" || s.Metrics == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
