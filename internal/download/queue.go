package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/metrics"
	"github.com/ytget/ytplay/internal/model"
)

// Callbacks receive queue lifecycle events. Any of them may be nil. They are
// invoked from the queue goroutine; UI callers must re-dispatch.
type Callbacks struct {
	OnProgress  func(id int, fraction float64)
	OnItemDone  func(id int)
	OnAllDone   func()
	OnItemError func(id int, msg string)
}

// Orchestrator owns the ordered job records and runs them one at a time.
type Orchestrator struct {
	exec Executor

	jobs        []*model.JobRecord
	jobsMutex   sync.RWMutex
	downloadDir string
	running     bool
	wg          *conc.WaitGroup
	onUpdate    func(model.JobRecord) // callback for UI updates

	log     zerolog.Logger
	metrics *metrics.Recorder
}

var _ Queue = (*Orchestrator)(nil)

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithQueueLogger sets the orchestrator logger.
func WithQueueLogger(l zerolog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = l }
}

// WithQueueMetrics sets the metrics recorder.
func WithQueueMetrics(m *metrics.Recorder) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an empty queue downloading into downloadDir.
func NewOrchestrator(exec Executor, downloadDir string, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		exec:        exec,
		downloadDir: downloadDir,
		wg:          conc.NewWaitGroup(),
		log:         log.WithComponent("queue"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetUpdateCallback sets the callback invoked with a copy of a job after each change
func (o *Orchestrator) SetUpdateCallback(callback func(model.JobRecord)) {
	o.jobsMutex.Lock()
	defer o.jobsMutex.Unlock()
	o.onUpdate = callback
}

// SetDownloadDirectory sets the directory used by jobs started afterwards
func (o *Orchestrator) SetDownloadDirectory(dir string) {
	o.jobsMutex.Lock()
	defer o.jobsMutex.Unlock()
	o.downloadDir = dir
}

// DownloadDirectory returns the configured download directory
func (o *Orchestrator) DownloadDirectory() string {
	o.jobsMutex.RLock()
	defer o.jobsMutex.RUnlock()
	return o.downloadDir
}

// AddJob appends a pending job and returns its id. Jobs added while the
// queue is running are picked up by the same run.
func (o *Orchestrator) AddJob(url string, format model.FormatOption, mode model.Mode, name string) int {
	o.jobsMutex.Lock()
	id := len(o.jobs)
	job := model.NewJobRecord(id, url, format, mode, name)
	o.jobs = append(o.jobs, &job)
	snapshot := job
	o.jobsMutex.Unlock()

	o.log.Debug().Int("id", id).Str("job", job.Key).Str("url", url).Msg("job added")
	o.notifyUpdate(snapshot)
	return id
}

// SetTitle records the resolved title of a job, used as a name fallback
func (o *Orchestrator) SetTitle(id int, title string) error {
	o.jobsMutex.Lock()
	if id < 0 || id >= len(o.jobs) {
		o.jobsMutex.Unlock()
		return fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	o.jobs[id].Title = title
	snapshot := *o.jobs[id]
	o.jobsMutex.Unlock()

	o.notifyUpdate(snapshot)
	return nil
}

// Jobs returns copies of all jobs in insertion order
func (o *Orchestrator) Jobs() []model.JobRecord {
	o.jobsMutex.RLock()
	defer o.jobsMutex.RUnlock()

	jobs := make([]model.JobRecord, 0, len(o.jobs))
	for _, job := range o.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// Job returns a copy of the job with the given id
func (o *Orchestrator) Job(id int) (model.JobRecord, bool) {
	o.jobsMutex.RLock()
	defer o.jobsMutex.RUnlock()

	if id < 0 || id >= len(o.jobs) {
		return model.JobRecord{}, false
	}
	return *o.jobs[id], true
}

// Pending returns the number of jobs waiting to run
func (o *Orchestrator) Pending() int {
	o.jobsMutex.RLock()
	defer o.jobsMutex.RUnlock()

	n := 0
	for _, job := range o.jobs {
		if job.Status == model.JobStatusPending {
			n++
		}
	}
	return n
}

// Requeue puts a finished job back to Pending so the next run executes it again
func (o *Orchestrator) Requeue(id int) error {
	o.jobsMutex.Lock()
	if id < 0 || id >= len(o.jobs) {
		o.jobsMutex.Unlock()
		return fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	job := o.jobs[id]
	if !job.Status.IsFinished() {
		o.jobsMutex.Unlock()
		return fmt.Errorf("job %d is not finished: %s", id, job.Status)
	}
	job.Status = model.JobStatusPending
	job.Progress = 0
	job.LastError = ""
	job.OutputPath = ""
	job.StartedAt = time.Time{}
	job.FinishedAt = time.Time{}
	snapshot := *job
	o.jobsMutex.Unlock()

	o.notifyUpdate(snapshot)
	return nil
}

// Running reports whether a queue loop is active
func (o *Orchestrator) Running() bool {
	o.jobsMutex.RLock()
	defer o.jobsMutex.RUnlock()
	return o.running
}

// Start runs pending and failed jobs sequentially on a background goroutine. It returns
// ErrQueueRunning if a run is already active and ErrQueueEmpty if no job was
// ever added. Cancelling ctx stops the run after the current job.
func (o *Orchestrator) Start(ctx context.Context, cb Callbacks) error {
	o.jobsMutex.Lock()
	defer o.jobsMutex.Unlock()

	if o.running {
		return ErrQueueRunning
	}
	if len(o.jobs) == 0 {
		return ErrQueueEmpty
	}
	o.running = true

	wg := o.wg
	wg.Go(func() {
		o.run(ctx, cb)
	})
	return nil
}

// Wait blocks until the current run, if any, has finished
func (o *Orchestrator) Wait() {
	o.jobsMutex.RLock()
	wg := o.wg
	o.jobsMutex.RUnlock()
	wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, cb Callbacks) {
	o.log.Info().Int("pending", o.Pending()).Msg("queue started")

	defer func() {
		o.log.Info().Msg("queue finished")
		if cb.OnAllDone != nil {
			cb.OnAllDone()
		}
	}()

	for i := 0; ; i++ {
		if ctx.Err() != nil {
			o.jobsMutex.Lock()
			o.running = false
			o.jobsMutex.Unlock()
			o.log.Info().Err(ctx.Err()).Msg("queue stopped")
			return
		}

		job, dir, ok, done := o.claim(i)
		if done {
			return
		}
		if !ok {
			continue
		}

		o.metrics.JobStarted(job.Mode.String())
		path, err := o.exec.Execute(ctx, job, dir, func(f float64) {
			o.updateProgress(i, f, cb)
		})
		o.finish(i, path, err, cb)
	}
}

// claim marks job i as Downloading. done is true past the end of the queue,
// in which case the run is already marked stopped so that a job added from
// now on needs a new Start. ok is false for completed jobs. Failed jobs run
// again.
func (o *Orchestrator) claim(i int) (job model.JobRecord, dir string, ok, done bool) {
	o.jobsMutex.Lock()
	if i >= len(o.jobs) {
		o.running = false
		o.jobsMutex.Unlock()
		return model.JobRecord{}, "", false, true
	}
	rec := o.jobs[i]
	if rec.Status != model.JobStatusPending && rec.Status != model.JobStatusFailed {
		o.jobsMutex.Unlock()
		return model.JobRecord{}, "", false, false
	}
	rec.Status = model.JobStatusDownloading
	rec.Progress = 0
	rec.LastError = ""
	rec.OutputPath = ""
	rec.FinishedAt = time.Time{}
	rec.StartedAt = time.Now()
	job = *rec
	dir = o.downloadDir
	o.jobsMutex.Unlock()

	o.notifyUpdate(job)
	return job, dir, true, false
}

func (o *Orchestrator) updateProgress(id int, f float64, cb Callbacks) {
	f = clamp01(f)

	o.jobsMutex.Lock()
	rec := o.jobs[id]
	if rec.Status != model.JobStatusDownloading || f < rec.Progress {
		o.jobsMutex.Unlock()
		return
	}
	rec.Progress = f
	snapshot := *rec
	o.jobsMutex.Unlock()

	if cb.OnProgress != nil {
		cb.OnProgress(id, f)
	}
	o.notifyUpdate(snapshot)
}

func (o *Orchestrator) finish(id int, path string, err error, cb Callbacks) {
	o.jobsMutex.Lock()
	rec := o.jobs[id]
	rec.FinishedAt = time.Now()
	if err != nil {
		rec.Status = model.JobStatusFailed
		rec.LastError = errorMessage(err)
	} else {
		rec.Status = model.JobStatusCompleted
		rec.Progress = 1
		rec.OutputPath = path
	}
	snapshot := *rec
	o.jobsMutex.Unlock()

	outcome := metrics.OutcomeCompleted
	if err != nil {
		outcome = metrics.OutcomeFailed
		o.log.Warn().Int("id", id).Str("job", snapshot.Key).Str("error", snapshot.LastError).Msg("job failed")
	}
	o.metrics.JobFinished(snapshot.Mode.String(), outcome, snapshot.Elapsed())

	o.notifyUpdate(snapshot)
	if err != nil {
		if cb.OnItemError != nil {
			cb.OnItemError(id, snapshot.LastError)
		}
		return
	}
	if cb.OnItemDone != nil {
		cb.OnItemDone(id)
	}
}

// notifyUpdate calls the update callback if set
func (o *Orchestrator) notifyUpdate(job model.JobRecord) {
	o.jobsMutex.RLock()
	fn := o.onUpdate
	o.jobsMutex.RUnlock()
	if fn != nil {
		fn(job)
	}
}

func errorMessage(err error) string {
	var de *DownloadError
	if errors.As(err, &de) && de.Msg != "" {
		return de.Msg
	}
	return err.Error()
}
