package importer

// JobPhase names the stage a background job is currently working through.
type JobPhase string

const (
	PhaseDeduplicating JobPhase = "deduplicating"
	PhaseMatching      JobPhase = "matching"
	PhaseWriting       JobPhase = "writing"
)

// ProgressStatus is the lifecycle state of a background job as seen by a
// polling client.
type ProgressStatus string

const (
	ProgressProcessing ProgressStatus = "processing"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// Terminal reports whether polling should stop for this status.
func (s ProgressStatus) Terminal() bool {
	return s == ProgressCompleted || s == ProgressFailed
}

// BatchItemStatus is the per-item state inside the currently processing batch.
type BatchItemStatus string

const (
	BatchProcessing BatchItemStatus = "processing"
	BatchSuccess    BatchItemStatus = "success"
	BatchFailed     BatchItemStatus = "failed"
)

// BatchItem is one transaction inside the batch a job is working on, for
// incremental display.
type BatchItem struct {
	Description string          `json:"description"`
	Status      BatchItemStatus `json:"status"`
}

// Progress is the snapshot a client polls for a running job. It is a read
// projection owned by the job; clients never write it.
type Progress struct {
	SessionID         string         `json:"session_id"`
	Status            ProgressStatus `json:"status"`
	ProcessedCount    int            `json:"processed_count"`
	TotalTransactions int            `json:"total_transactions"`
	CurrentStep       JobPhase       `json:"current_step,omitempty"`
	CurrentBatch      []BatchItem    `json:"current_batch,omitempty"`
	Errors            []RowError     `json:"errors,omitempty"`

	// Exactly one of the two result payloads is set on completion, depending
	// on which job kind produced the snapshot.
	ProcessResult *ProcessResult `json:"process_result,omitempty"`
	ImportResult  *ImportResult  `json:"import_result,omitempty"`

	// Error is set when the job itself failed (Status == failed), as opposed
	// to per-row errors accumulated in Errors.
	Error string `json:"error,omitempty"`
}
