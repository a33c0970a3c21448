package jobs

import (
	"sync"

	"github.com/ledgerflow/importd/internal/importer"
)

// ProgressStore holds the latest progress snapshot per session id. Reads are
// idempotent and safe to poll; writes come only from the job that owns the
// session.
type ProgressStore interface {
	Save(sessionID string, p importer.Progress)
	Get(sessionID string) (importer.Progress, bool)
}

// ProgressRecorder is the job-side writer for one session's progress. Every
// mutation publishes a fresh snapshot to the store, so polling readers never
// observe a half-updated state.
type ProgressRecorder struct {
	mu       sync.Mutex
	store    ProgressStore
	snapshot importer.Progress
}

// NewProgressRecorder initializes and publishes a "processing" snapshot for
// the session.
func NewProgressRecorder(store ProgressStore, sessionID string, total int) *ProgressRecorder {
	r := &ProgressRecorder{
		store: store,
		snapshot: importer.Progress{
			SessionID:         sessionID,
			Status:            importer.ProgressProcessing,
			TotalTransactions: total,
		},
	}
	r.publish()
	return r
}

func (r *ProgressRecorder) publish() {
	snap := r.snapshot
	snap.CurrentBatch = append([]importer.BatchItem(nil), r.snapshot.CurrentBatch...)
	snap.Errors = append([]importer.RowError(nil), r.snapshot.Errors...)
	r.store.Save(snap.SessionID, snap)
}

// SetPhase records the stage the job is working through.
func (r *ProgressRecorder) SetPhase(phase importer.JobPhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.CurrentStep = phase
	r.publish()
}

// BeginBatch replaces the currently displayed batch.
func (r *ProgressRecorder) BeginBatch(items []importer.BatchItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.CurrentBatch = append([]importer.BatchItem(nil), items...)
	r.publish()
}

// ItemDone marks one batch item as finished and bumps the processed count.
func (r *ProgressRecorder) ItemDone(index int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index >= 0 && index < len(r.snapshot.CurrentBatch) {
		if ok {
			r.snapshot.CurrentBatch[index].Status = importer.BatchSuccess
		} else {
			r.snapshot.CurrentBatch[index].Status = importer.BatchFailed
		}
	}
	r.snapshot.ProcessedCount++
	r.publish()
}

// AddProcessed bumps the processed count by n without batch bookkeeping.
func (r *ProgressRecorder) AddProcessed(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.ProcessedCount += n
	r.publish()
}

// RowError accumulates a non-fatal per-row failure.
func (r *ProgressRecorder) RowError(description, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Errors = append(r.snapshot.Errors, importer.RowError{Description: description, Error: errMsg})
	r.publish()
}

// CompleteProcess publishes the terminal snapshot for a processing job.
func (r *ProgressRecorder) CompleteProcess(result *importer.ProcessResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Status = importer.ProgressCompleted
	r.snapshot.CurrentBatch = nil
	r.snapshot.ProcessResult = result
	r.publish()
}

// CompleteImport publishes the terminal snapshot for a write job.
func (r *ProgressRecorder) CompleteImport(result *importer.ImportResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Status = importer.ProgressCompleted
	r.snapshot.CurrentBatch = nil
	r.snapshot.ImportResult = result
	r.publish()
}

// Fail publishes the terminal failed snapshot.
func (r *ProgressRecorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Status = importer.ProgressFailed
	if err != nil {
		r.snapshot.Error = err.Error()
	}
	r.publish()
}
