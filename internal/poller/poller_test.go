package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerflow/importd/internal/importer"
)

// fakeSource serves a scripted sequence of snapshots; the last one repeats.
type fakeSource struct {
	mu    sync.Mutex
	seq   []importer.Progress
	calls int
}

func (f *fakeSource) Get(sessionID string) (importer.Progress, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seq) == 0 {
		return importer.Progress{}, false
	}
	i := f.calls
	if i >= len(f.seq) {
		i = len(f.seq) - 1
	}
	f.calls++
	return f.seq[i], true
}

func snap(sessionID string, status importer.ProgressStatus, processed int) importer.Progress {
	return importer.Progress{
		SessionID:      sessionID,
		Status:         status,
		ProcessedCount: processed,
	}
}

func TestWait_StopsOnTerminal(t *testing.T) {
	source := &fakeSource{seq: []importer.Progress{
		snap("s1", importer.ProgressProcessing, 1),
		snap("s1", importer.ProgressProcessing, 5),
		snap("s1", importer.ProgressCompleted, 10),
	}}

	p := New(source, time.Millisecond, zerolog.Nop())

	var observed []importer.ProgressStatus
	got, err := p.Wait(context.Background(), "s1", func(pr importer.Progress) {
		observed = append(observed, pr.Status)
	})
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got.Status != importer.ProgressCompleted {
		t.Errorf("terminal status = %v", got.Status)
	}
	if got.ProcessedCount != 10 {
		t.Errorf("terminal snapshot processed = %d, want 10", got.ProcessedCount)
	}
	// Terminal snapshot is also delivered to the callback.
	if len(observed) == 0 || observed[len(observed)-1] != importer.ProgressCompleted {
		t.Errorf("callback did not see terminal snapshot: %v", observed)
	}

	// No further polling after the terminal snapshot.
	source.mu.Lock()
	calls := source.calls
	source.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	source.mu.Lock()
	defer source.mu.Unlock()
	if source.calls != calls {
		t.Error("poller kept reading after terminal status")
	}
}

func TestWait_FailedIsTerminal(t *testing.T) {
	source := &fakeSource{seq: []importer.Progress{
		snap("s1", importer.ProgressFailed, 0),
	}}

	p := New(source, time.Millisecond, zerolog.Nop())
	got, err := p.Wait(context.Background(), "s1", nil)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got.Status != importer.ProgressFailed {
		t.Errorf("status = %v, want failed", got.Status)
	}
}

func TestWait_IgnoresStaleSession(t *testing.T) {
	// A terminal snapshot for a different session must not stop the wait.
	source := &fakeSource{seq: []importer.Progress{
		snap("old", importer.ProgressCompleted, 10),
		snap("old", importer.ProgressCompleted, 10),
		snap("s2", importer.ProgressCompleted, 3),
	}}

	p := New(source, time.Millisecond, zerolog.Nop())

	var observed []string
	got, err := p.Wait(context.Background(), "s2", func(pr importer.Progress) {
		observed = append(observed, pr.SessionID)
	})
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got.SessionID != "s2" {
		t.Errorf("terminal session = %q, want s2", got.SessionID)
	}
	for _, id := range observed {
		if id != "s2" {
			t.Errorf("callback saw stale session %q", id)
		}
	}
}

func TestWait_ContextCancel(t *testing.T) {
	source := &fakeSource{seq: []importer.Progress{
		snap("s1", importer.ProgressProcessing, 1),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	p := New(source, time.Hour, zerolog.Nop())
	_, err := p.Wait(ctx, "s1", nil)
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestWait_NoProgressEver(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	p := New(&fakeSource{}, time.Millisecond, zerolog.Nop())
	_, err := p.Wait(ctx, "s1", nil)
	if err == nil {
		t.Fatal("expected error when no snapshot ever appears")
	}
}
