package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobRecord represents a single queued download
type JobRecord struct {
	ID          int    // stable queue index
	Key         string // globally unique key for logs and metrics
	SourceURL   string
	Format      FormatOption
	Mode        Mode
	DesiredName string
	Title       string    // resolved title if known
	Status      JobStatus
	Progress    float64   // 0.0 to 1.0, non-decreasing while downloading
	OutputPath  string    // path to the final artifact
	LastError   string    // last error message if any
	CreatedAt   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// NewJobRecord creates a pending job with a fresh key
func NewJobRecord(id int, sourceURL string, format FormatOption, mode Mode, desiredName string) JobRecord {
	return JobRecord{
		ID:          id,
		Key:         NewJobKey(),
		SourceURL:   sourceURL,
		Format:      format,
		Mode:        mode,
		DesiredName: desiredName,
		Status:      JobStatusPending,
		CreatedAt:   time.Now(),
	}
}

// NewJobKey generates a unique job key, time-ordered when possible
func NewJobKey() string {
	if id, err := uuid.NewV7(); err == nil {
		return "job-" + id.String()
	}
	return fmt.Sprintf("job-%d", time.Now().UnixNano())
}

// Percent returns progress as an integer percentage
func (j *JobRecord) Percent() int {
	return int(j.Progress * 100)
}

// DisplayName returns desired name, title, filename, or URL in order of preference
func (j *JobRecord) DisplayName() string {
	if j.DesiredName != "" {
		return j.DesiredName
	}

	if j.Title != "" && !strings.HasPrefix(j.Title, "http") {
		return j.Title
	}

	if j.OutputPath != "" {
		// Support both / and \ separators
		parts := strings.FieldsFunc(j.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	return j.SourceURL
}

// Elapsed returns how long the job ran, or zero if it never started
func (j *JobRecord) Elapsed() time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	if j.FinishedAt.IsZero() {
		return time.Since(j.StartedAt)
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
