package services

// Enqueuer hands a created job to the background workers.
type Enqueuer interface {
	EnqueueImport(jobID string) error
	EnqueueExport(jobID string) error
}

// JobStore is the slice of the jobs repository a tracker needs.
type JobStore interface {
	UpdateProgress(id string, processed, total int) error
	IsCancelled(id string) (bool, error)
}
