// Package session holds all intermediate artifacts for the lifetime of one
// import run. The store is an explicit, injected object with a create/reset
// lifecycle, not a package-level singleton.
package session

import (
	"sync"

	"github.com/ledgerflow/importd/internal/csvmap"
	"github.com/ledgerflow/importd/internal/importer"
)

// Step bounds for the import wizard.
const (
	FirstStep = 1
	LastStep  = 5
)

// State is everything one import run accumulates. It is replaced wholesale on
// Reset, never partially cleared.
type State struct {
	CurrentStep int

	FileName string
	Headers  []string
	Rows     []csvmap.Record

	ColumnMap          csvmap.ColumnMap
	Account            string
	ParsedTransactions []importer.ParsedTransaction

	ProcessSessionID string
	ProcessResult    *importer.ProcessResult

	ConfirmedTransactions []importer.ConfirmedTransaction

	ExecuteSessionID string
	ImportResult     *importer.ImportResult
}

// Store is the single shared mutable object of an import run. All mutation
// goes through its methods.
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore creates a store positioned at the first step.
func NewStore() *Store {
	return &Store{state: State{CurrentStep: FirstStep}}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset restores the whole state object to its initial value atomically.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{CurrentStep: FirstStep}
}

// NextStep advances one step, clamped to the last step. Step transitions do
// not validate preconditions; each step gates its own advance action.
func (s *Store) NextStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentStep < LastStep {
		s.state.CurrentStep++
	}
	return s.state.CurrentStep
}

// PrevStep goes back one step, clamped to the first step.
func (s *Store) PrevStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentStep > FirstStep {
		s.state.CurrentStep--
	}
	return s.state.CurrentStep
}

// GoToStep jumps to a step, clamped into [FirstStep, LastStep].
func (s *Store) GoToStep(step int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case step < FirstStep:
		step = FirstStep
	case step > LastStep:
		step = LastStep
	}
	s.state.CurrentStep = step
	return s.state.CurrentStep
}

// CurrentStep returns the current wizard step.
func (s *Store) CurrentStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentStep
}

// SetFile records the uploaded file's name, headers and raw rows.
func (s *Store) SetFile(name string, headers []string, rows []csvmap.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.FileName = name
	s.state.Headers = headers
	s.state.Rows = rows
}

// SetColumnMap records the (possibly user-overridden) column assignment.
func (s *Store) SetColumnMap(cm csvmap.ColumnMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ColumnMap = cm
}

// SetParsed records the validated transactions and the account they belong to.
func (s *Store) SetParsed(account string, parsed []importer.ParsedTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Account = account
	s.state.ParsedTransactions = parsed
}

// SetProcessSession records the id of the started processing job.
func (s *Store) SetProcessSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ProcessSessionID = id
}

// SetProcessResult records the processing job's classified buckets.
func (s *Store) SetProcessResult(result *importer.ProcessResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ProcessResult = result
}

// SetConfirmed records the write-ready transactions produced by review.
func (s *Store) SetConfirmed(confirmed []importer.ConfirmedTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ConfirmedTransactions = confirmed
}

// SetExecuteSession records the id of the started write job.
func (s *Store) SetExecuteSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ExecuteSessionID = id
}

// SetImportResult records the final write job's tallies.
func (s *Store) SetImportResult(result *importer.ImportResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ImportResult = result
}
