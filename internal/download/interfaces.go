package download

import (
	"context"

	"github.com/ytget/ytplay/internal/model"
)

// Resolver looks up title, thumbnail and available encodings of a source URL.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*model.VideoInfo, error)
}

// ProgressStatus is the phase reported by the download engine
type ProgressStatus string

const (
	ProgressDownloading ProgressStatus = "downloading"
	ProgressFinished    ProgressStatus = "finished"
)

// Progress is a single progress report from the download engine
type Progress struct {
	Status          ProgressStatus
	DownloadedBytes int64
	TotalBytes      int64 // total or estimate, 0 if unknown
}

// Fraction returns progress in [0,1]. The bool is false when the total is unknown.
func (p Progress) Fraction() (float64, bool) {
	if p.Status == ProgressFinished {
		return 1, true
	}
	if p.TotalBytes <= 0 {
		return 0, false
	}
	return clamp01(float64(p.DownloadedBytes) / float64(p.TotalBytes)), true
}

// Request describes a single engine download
type Request struct {
	URL            string
	Selector       string
	OutputTemplate string // engine output template, e.g. "/dir/name.%(ext)s"
	Mode           model.Mode
}

// Engine performs downloads. The hook may be called from any goroutine.
type Engine interface {
	Download(ctx context.Context, req Request, hook func(Progress)) error
}

// Executor runs one job into dir and returns the final artifact path.
type Executor interface {
	Execute(ctx context.Context, job model.JobRecord, dir string, onProgress func(float64)) (string, error)
}

// Queue is the surface of the orchestrator used by the UI and the CLI.
type Queue interface {
	SetUpdateCallback(func(model.JobRecord))
	AddJob(url string, format model.FormatOption, mode model.Mode, name string) int
	Start(ctx context.Context, cb Callbacks) error
	Wait()
	Running() bool
	Jobs() []model.JobRecord
	Job(id int) (model.JobRecord, bool)
	Requeue(id int) error
	SetDownloadDirectory(dir string)
	DownloadDirectory() string
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
