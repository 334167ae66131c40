package download

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/metrics"
	"github.com/ytget/ytplay/internal/model"
)

type fakeExecutor struct {
	fail    map[int]bool
	release chan struct{} // when set, Execute waits for it
	started chan int      // when set, receives the id of each started job

	mu      sync.Mutex
	order   []int
	running int
	overlap bool
}

func (f *fakeExecutor) Execute(ctx context.Context, job model.JobRecord, dir string, onProgress func(float64)) (string, error) {
	f.mu.Lock()
	f.order = append(f.order, job.ID)
	f.running++
	if f.running > 1 {
		f.overlap = true
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	if f.started != nil {
		f.started <- job.ID
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", &DownloadError{Msg: "download cancelled", Err: ctx.Err()}
		}
	}

	onProgress(0.3)
	onProgress(0.1)
	onProgress(0.7)
	if f.fail[job.ID] {
		return "", &DownloadError{Msg: "download failed: boom", Err: errors.New("boom")}
	}
	onProgress(1)
	return dir + "/" + job.DesiredName + ".mp4", nil
}

type recordedEvents struct {
	mu       sync.Mutex
	progress map[int][]float64
	done     []int
	errors   map[int]string
	allDone  int
	terminal []bool // per allDone call: were all jobs terminal at that moment
}

func newRecordedEvents() *recordedEvents {
	return &recordedEvents{progress: map[int][]float64{}, errors: map[int]string{}}
}

func (r *recordedEvents) callbacks(q *Orchestrator) Callbacks {
	return Callbacks{
		OnProgress: func(id int, f float64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress[id] = append(r.progress[id], f)
		},
		OnItemDone: func(id int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.done = append(r.done, id)
		},
		OnItemError: func(id int, msg string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors[id] = msg
		},
		OnAllDone: func() {
			all := true
			for _, j := range q.Jobs() {
				if !j.Status.IsFinished() {
					all = false
				}
			}
			r.mu.Lock()
			defer r.mu.Unlock()
			r.allDone++
			r.terminal = append(r.terminal, all)
		},
	}
}

func newTestQueue(exec Executor) *Orchestrator {
	return NewOrchestrator(exec, "/dl", WithQueueLogger(log.Nop()), WithQueueMetrics(metrics.NewRecorder()))
}

var bestVideo = model.FormatOption{Label: "Auto (best)", Selector: "bv*+ba/b", Rank: model.RankBest}

func TestOrchestrator_SequentialWithFailure(t *testing.T) {
	exec := &fakeExecutor{fail: map[int]bool{1: true}}
	q := newTestQueue(exec)
	events := newRecordedEvents()

	for _, name := range []string{"one", "two", "three"} {
		q.AddJob("https://youtube.com/watch?v="+name, bestVideo, model.ModeVideo, name)
	}

	require.NoError(t, q.Start(context.Background(), events.callbacks(q)))
	q.Wait()

	assert.Equal(t, []int{0, 1, 2}, exec.order)
	assert.False(t, exec.overlap, "jobs must not run concurrently")

	jobs := q.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, model.JobStatusCompleted, jobs[0].Status)
	assert.Equal(t, model.JobStatusFailed, jobs[1].Status)
	assert.Equal(t, "download failed: boom", jobs[1].LastError)
	assert.Equal(t, model.JobStatusCompleted, jobs[2].Status)
	assert.Equal(t, "/dl/three.mp4", jobs[2].OutputPath)
	assert.Equal(t, 1.0, jobs[2].Progress)

	assert.Equal(t, []int{0, 2}, events.done)
	assert.Equal(t, map[int]string{1: "download failed: boom"}, events.errors)
	assert.Equal(t, 1, events.allDone)
	assert.Equal(t, []bool{true}, events.terminal)
	assert.False(t, q.Running())
}

func TestOrchestrator_ProgressMonotonic(t *testing.T) {
	q := newTestQueue(&fakeExecutor{})
	events := newRecordedEvents()
	q.AddJob("https://youtube.com/watch?v=a", bestVideo, model.ModeVideo, "a")

	require.NoError(t, q.Start(context.Background(), events.callbacks(q)))
	q.Wait()

	got := events.progress[0]
	assert.Equal(t, []float64{0.3, 0.7, 1}, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}
}

func TestOrchestrator_DoubleStartRejected(t *testing.T) {
	exec := &fakeExecutor{release: make(chan struct{}), started: make(chan int, 1)}
	q := newTestQueue(exec)
	events := newRecordedEvents()
	q.AddJob("https://youtube.com/watch?v=a", bestVideo, model.ModeVideo, "a")

	require.NoError(t, q.Start(context.Background(), events.callbacks(q)))
	<-exec.started
	assert.True(t, q.Running())

	err := q.Start(context.Background(), events.callbacks(q))
	assert.ErrorIs(t, err, ErrQueueRunning)

	// A job added while running is picked up by the same run
	q.AddJob("https://youtube.com/watch?v=b", bestVideo, model.ModeVideo, "b")
	close(exec.release)
	<-exec.started
	q.Wait()

	assert.Equal(t, []int{0, 1}, exec.order)
	assert.Equal(t, 1, events.allDone)
}

func TestOrchestrator_StartEmpty(t *testing.T) {
	q := newTestQueue(&fakeExecutor{})
	assert.ErrorIs(t, q.Start(context.Background(), Callbacks{}), ErrQueueEmpty)
}

func TestOrchestrator_RestartRetriesFailedAndRequeue(t *testing.T) {
	exec := &fakeExecutor{fail: map[int]bool{0: true}}
	q := newTestQueue(exec)
	q.AddJob("https://youtube.com/watch?v=a", bestVideo, model.ModeVideo, "a")
	q.AddJob("https://youtube.com/watch?v=b", bestVideo, model.ModeVideo, "b")

	require.NoError(t, q.Start(context.Background(), Callbacks{}))
	q.Wait()
	assert.Equal(t, []int{0, 1}, exec.order)

	// A second run retries the failed job and skips the completed one
	exec.fail = nil
	require.NoError(t, q.Start(context.Background(), Callbacks{}))
	q.Wait()
	assert.Equal(t, []int{0, 1, 0}, exec.order)
	job, ok := q.Job(0)
	require.True(t, ok)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Empty(t, job.LastError)
	assert.Equal(t, "/dl/a.mp4", job.OutputPath)

	assert.Error(t, q.Requeue(7))
	require.NoError(t, q.Requeue(1))
	job, _ = q.Job(1)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Empty(t, job.OutputPath)
	assert.Equal(t, 1, q.Pending())

	require.NoError(t, q.Start(context.Background(), Callbacks{}))
	q.Wait()
	assert.Equal(t, []int{0, 1, 0, 1}, exec.order)
	assert.Equal(t, 0, q.Pending())
}

func TestOrchestrator_AddDuringFinishIsNotStranded(t *testing.T) {
	q := newTestQueue(&fakeExecutor{})

	for i := 0; i < 2000; i++ {
		q.AddJob("https://youtube.com/watch?v=a", bestVideo, model.ModeVideo, "a")
		err := q.Start(context.Background(), Callbacks{})
		if err != nil && !errors.Is(err, ErrQueueRunning) {
			t.Fatalf("start %d: %v", i, err)
		}
	}
	q.Wait()

	assert.Equal(t, 0, q.Pending())
	assert.False(t, q.Running())
	for _, job := range q.Jobs() {
		assert.Equal(t, model.JobStatusCompleted, job.Status, "job %d", job.ID)
	}
}

func TestOrchestrator_CancelStopsAfterCurrent(t *testing.T) {
	exec := &fakeExecutor{release: make(chan struct{}), started: make(chan int, 1)}
	q := newTestQueue(exec)
	events := newRecordedEvents()
	q.AddJob("https://youtube.com/watch?v=a", bestVideo, model.ModeVideo, "a")
	q.AddJob("https://youtube.com/watch?v=b", bestVideo, model.ModeVideo, "b")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Start(ctx, events.callbacks(q)))
	<-exec.started
	cancel()
	q.Wait()

	jobs := q.Jobs()
	assert.Equal(t, model.JobStatusFailed, jobs[0].Status)
	assert.Equal(t, model.JobStatusPending, jobs[1].Status)
	assert.Equal(t, 1, events.allDone)
}

func TestOrchestrator_UpdateCallbackAndDirectory(t *testing.T) {
	q := newTestQueue(&fakeExecutor{})
	var mu sync.Mutex
	var statuses []model.JobStatus
	q.SetUpdateCallback(func(j model.JobRecord) {
		mu.Lock()
		defer mu.Unlock()
		if len(statuses) == 0 || statuses[len(statuses)-1] != j.Status {
			statuses = append(statuses, j.Status)
		}
	})
	q.SetDownloadDirectory("/music")
	assert.Equal(t, "/music", q.DownloadDirectory())

	id := q.AddJob("https://youtube.com/watch?v=a", bestVideo, model.ModeVideo, "a")
	require.NoError(t, q.SetTitle(id, "A title"))
	require.NoError(t, q.Start(context.Background(), Callbacks{}))
	q.Wait()

	job, _ := q.Job(id)
	assert.Equal(t, "/music/a.mp4", job.OutputPath)
	assert.Equal(t, "A title", job.Title)
	assert.Equal(t, []model.JobStatus{model.JobStatusPending, model.JobStatusDownloading, model.JobStatusCompleted}, statuses)

	_, ok := q.Job(5)
	assert.False(t, ok)
	assert.ErrorIs(t, q.SetTitle(5, "x"), ErrJobNotFound)
}
