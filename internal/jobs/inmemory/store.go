package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ledgerflow/importd/internal/importer"
	"github.com/ledgerflow/importd/internal/jobs"
)

// Store is an in-memory JobStore. Data lives for the process lifetime only,
// which matches the session-scoped import flow.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ImportJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.ImportJob)}
}

// SaveJob saves or updates a job. A copy is stored so later caller mutations
// don't leak in.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ImportJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs retrieves jobs matching the filter.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.ImportJob
	for _, job := range s.jobs {
		if filter.SessionID != "" && job.SessionID != filter.SessionID {
			continue
		}
		if filter.Kind != "" && job.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ImportJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

var _ jobs.JobStore = (*Store)(nil)

// ProgressStore is an in-memory map of the latest progress snapshot per
// session id.
type ProgressStore struct {
	mu        sync.RWMutex
	snapshots map[string]importer.Progress
}

// NewProgressStore creates an empty progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{snapshots: make(map[string]importer.Progress)}
}

// Save replaces the snapshot for a session.
func (s *ProgressStore) Save(sessionID string, p importer.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[sessionID] = p
}

// Get returns the latest snapshot for a session. Safe to poll.
func (s *ProgressStore) Get(sessionID string) (importer.Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.snapshots[sessionID]
	if !ok {
		return importer.Progress{}, false
	}
	p.CurrentBatch = append([]importer.BatchItem(nil), p.CurrentBatch...)
	p.Errors = append([]importer.RowError(nil), p.Errors...)
	return p, true
}

var _ jobs.ProgressStore = (*ProgressStore)(nil)
