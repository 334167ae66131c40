package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	"github.com/spf13/afero"

	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/metrics"
	"github.com/ytget/ytplay/internal/model"
)

// Worker defaults
const (
	DefaultCleanupDelay  = 1 * time.Second
	DefaultRetryAttempts = 2
	DefaultRetryDelay    = 2 * time.Second
)

// Worker executes a single job: engine download, progress mapping, unique
// naming and post-download cleanup.
type Worker struct {
	engine       Engine
	fs           afero.Fs
	policy       ArtifactPolicy
	cleanupDelay time.Duration
	attempts     uint
	retryDelay   time.Duration
	log          zerolog.Logger
	metrics      *metrics.Recorder
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithFs sets the filesystem used for naming and cleanup.
func WithFs(fs afero.Fs) WorkerOption {
	return func(w *Worker) { w.fs = fs }
}

// WithPolicy sets the artifact cleanup policy.
func WithPolicy(p ArtifactPolicy) WorkerOption {
	return func(w *Worker) { w.policy = p }
}

// WithCleanupDelay sets how long to wait before scanning for leftovers.
func WithCleanupDelay(d time.Duration) WorkerOption {
	return func(w *Worker) { w.cleanupDelay = d }
}

// WithRetry sets engine attempts per job and the delay between them.
func WithRetry(attempts uint, delay time.Duration) WorkerOption {
	return func(w *Worker) {
		if attempts == 0 {
			attempts = 1
		}
		w.attempts = attempts
		w.retryDelay = delay
	}
}

// WithWorkerLogger sets the worker logger.
func WithWorkerLogger(l zerolog.Logger) WorkerOption {
	return func(w *Worker) { w.log = l }
}

// WithWorkerMetrics sets the metrics recorder.
func WithWorkerMetrics(m *metrics.Recorder) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker creates a worker driving engine.
func NewWorker(engine Engine, opts ...WorkerOption) *Worker {
	w := &Worker{
		engine:       engine,
		fs:           afero.NewOsFs(),
		policy:       DefaultArtifactPolicy(),
		cleanupDelay: DefaultCleanupDelay,
		attempts:     DefaultRetryAttempts,
		retryDelay:   DefaultRetryDelay,
		log:          log.WithComponent("download"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Execute downloads job into dir and returns the path of the final artifact.
// onProgress receives non-decreasing fractions ending with 1.0 on success.
// Every failure is returned as *DownloadError.
func (w *Worker) Execute(ctx context.Context, job model.JobRecord, dir string, onProgress func(float64)) (string, error) {
	if dir == "" {
		return "", &DownloadError{Msg: "no download directory configured"}
	}
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return "", &DownloadError{Msg: "cannot create download directory", Err: err}
	}

	ext := job.Mode.Ext()
	desired := SanitizeName(job.DesiredName)
	if desired == "" {
		desired = SanitizeName(job.Title)
	}
	if desired == "" {
		desired = DefaultName
	}

	base, err := UniqueName(w.fs, dir, desired, ext)
	if err != nil {
		return "", &DownloadError{Msg: "cannot pick output name", Err: err}
	}

	logger := w.log.With().Str("job", job.Key).Logger()
	logger.Info().Str("url", job.SourceURL).Str("format", job.Format.Label).Str("name", base).Msg("download started")

	progress := newMonotonicProgress(onProgress)
	err = retry.Do(
		func() error {
			// The name may have been taken since it was picked, e.g. while
			// waiting to retry.
			next, err := UniqueName(w.fs, dir, desired, ext)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if next != base {
				logger.Warn().Str("name", base).Str("new_name", next).Msg("output name taken, renaming")
				base = next
			}
			req := Request{
				URL:            job.SourceURL,
				Selector:       job.Format.Selector,
				OutputTemplate: filepath.Join(dir, base) + ".%(ext)s",
				Mode:           job.Mode,
			}
			streams := newStreamProgress(StreamCount(job.Format.Selector, job.Mode))
			return w.runEngine(ctx, req, func(p Progress) {
				if f, ok := streams.fraction(p); ok {
					progress.report(f)
				}
			})
		},
		retry.Context(ctx),
		retry.Attempts(w.attempts),
		retry.Delay(w.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && ctx.Err() == nil && !errors.Is(err, context.Canceled)
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().Err(err).Uint("attempt", n+1).Msg("download attempt failed, retrying")
		}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("download failed")
		return "", &DownloadError{Msg: describeFailure(err), Err: err}
	}

	logger = logger.With().Str("name", base).Logger()
	final := filepath.Join(dir, base+"."+ext)
	exists, _ := afero.Exists(w.fs, final)
	if !exists {
		if found, ok := locateArtifact(w.fs, dir, base, w.policy); ok {
			logger.Warn().Str("expected", final).Str("found", found).Msg("artifact has unexpected name")
			final = found
			exists = true
		} else {
			logger.Warn().Str("expected", final).Msg("final artifact not found")
		}
	}

	progress.report(1)

	if exists {
		w.cleanup(ctx, dir, base, filepath.Base(final), logger)
	}

	logger.Info().Str("path", final).Msg("download completed")
	return final, nil
}

// runEngine calls the engine and turns a panic into an error.
func (w *Worker) runEngine(ctx context.Context, req Request, hook func(Progress)) error {
	var err error
	var pc panics.Catcher
	pc.Try(func() {
		err = w.engine.Download(ctx, req, hook)
	})
	if r := pc.Recovered(); r != nil {
		return retry.Unrecoverable(r.AsError())
	}
	return err
}

func (w *Worker) cleanup(ctx context.Context, dir, base, final string, logger zerolog.Logger) {
	if w.cleanupDelay > 0 {
		t := time.NewTimer(w.cleanupDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			logger.Debug().Msg("cleanup skipped: context done")
			return
		}
	}

	removed := Cleanup(w.fs, dir, base, final, w.policy, logger)
	w.metrics.CleanupRemoved(removed)
	if removed > 0 {
		logger.Debug().Int("removed", removed).Msg("intermediate files removed")
	}
}

// describeFailure produces the human readable part of a DownloadError.
func describeFailure(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "download cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "download timed out"
	}

	msg := err.Error()
	// yt-dlp prefixes its own messages with "ERROR: "
	if i := strings.LastIndex(msg, "ERROR: "); i >= 0 {
		msg = msg[i+len("ERROR: "):]
	}
	if line, _, ok := strings.Cut(msg, "\n"); ok {
		msg = line
	}
	return fmt.Sprintf("download failed: %s", strings.TrimSpace(msg))
}

// monotonicProgress forwards only increasing fractions.
type monotonicProgress struct {
	mu   sync.Mutex
	last float64
	sent bool
	fn   func(float64)
}

func newMonotonicProgress(fn func(float64)) *monotonicProgress {
	return &monotonicProgress{fn: fn}
}

func (m *monotonicProgress) report(f float64) {
	f = clamp01(f)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent && f <= m.last {
		return
	}
	m.last = f
	m.sent = true
	if m.fn != nil {
		m.fn(f)
	}
}

// StreamCount returns how many streams the engine downloads for selector
// before merging them: one per "+" joined part of the first alternative.
// Audio extraction reads a single stream.
func StreamCount(selector string, mode model.Mode) int {
	if mode == model.ModeAudio {
		return 1
	}
	first, _, _ := strings.Cut(selector, "/")
	if strings.TrimSpace(first) == "" {
		return 1
	}
	return strings.Count(first, "+") + 1
}

// streamProgress folds per-stream engine reports into one fraction. Each
// "finished" report completes one stream.
type streamProgress struct {
	mu      sync.Mutex
	streams int
	done    int
}

func newStreamProgress(streams int) *streamProgress {
	if streams < 1 {
		streams = 1
	}
	return &streamProgress{streams: streams}
}

func (s *streamProgress) fraction(p Progress) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Status == ProgressFinished {
		if s.done < s.streams {
			s.done++
		}
		return float64(s.done) / float64(s.streams), true
	}
	f, ok := p.Fraction()
	if !ok {
		return 0, false
	}
	current := min(s.done, s.streams-1)
	return (float64(current) + f) / float64(s.streams), true
}
