package jobs

import (
	"context"
	"time"

	"github.com/ledgerflow/importd/internal/importer"
)

// JobKind represents the type of background job to be executed.
type JobKind string

const (
	// JobKindProcess runs deduplication and entity matching over parsed
	// transactions.
	JobKindProcess JobKind = "process_import"
	// JobKindExecute writes confirmed transactions to the ledger.
	JobKindExecute JobKind = "execute_import"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ImportJob is one unit of background work for an import session. SessionID
// is the opaque id clients poll progress for; it is distinct from JobID so a
// retried job keeps reporting under the same session.
type ImportJob struct {
	JobID     string  `json:"job_id"`
	SessionID string  `json:"session_id"`
	Kind      JobKind `json:"kind"`

	Account   string                          `json:"account,omitempty"`
	Parsed    []importer.ParsedTransaction    `json:"parsed,omitempty"`
	Confirmed []importer.ConfirmedTransaction `json:"confirmed,omitempty"`

	// Raw statement bytes for archiving, carried only on process jobs.
	FileName string `json:"file_name,omitempty"`
	Raw      []byte `json:"raw,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Job is a generic interface over queued work.
type Job interface {
	GetID() string
	GetKind() JobKind
	GetStatus() JobStatus
}

func (j *ImportJob) GetID() string        { return j.JobID }
func (j *ImportJob) GetKind() JobKind     { return j.Kind }
func (j *ImportJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue.
// The abstraction allows swapping the in-memory queue for a real broker.
type Publisher interface {
	Publish(ctx context.Context, job *ImportJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs. The handler is called for each job.
	Start(ctx context.Context, handler JobHandler) error
	// Stop stops consuming and waits for in-flight jobs to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job execution state.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportJob) error
	GetJob(ctx context.Context, jobID string) (*ImportJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	SessionID string
	Kind      JobKind
	Status    JobStatus
	Limit     int
	Offset    int
}
