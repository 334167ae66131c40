package model

// JobStatus represents the lifecycle state of a queued download job
type JobStatus string

const (
	// JobStatusPending means the job is queued but not started
	JobStatusPending JobStatus = "Pending"

	// JobStatusDownloading means the download is in progress
	JobStatusDownloading JobStatus = "Downloading"

	// JobStatusCompleted means the job finished successfully
	JobStatusCompleted JobStatus = "Completed"

	// JobStatusFailed means the job failed with an error
	JobStatusFailed JobStatus = "Failed"
)

// String returns the string representation of JobStatus
func (js JobStatus) String() string {
	return string(js)
}

// IsActive returns true if the job is currently being worked on
func (js JobStatus) IsActive() bool {
	return js == JobStatusDownloading
}

// IsFinished returns true if the job reached a terminal state (completed or failed)
func (js JobStatus) IsFinished() bool {
	return js == JobStatusCompleted || js == JobStatusFailed
}
