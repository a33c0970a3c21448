package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ledgerflow/importd/internal/importer"
	"github.com/ledgerflow/importd/internal/jobs"
	"github.com/ledgerflow/importd/internal/jobs/inmemory"
)

type mockPublisher struct {
	publishFunc func(ctx context.Context, job *jobs.ImportJob) error
	published   []*jobs.ImportJob
}

func (m *mockPublisher) Publish(ctx context.Context, job *jobs.ImportJob) error {
	if m.publishFunc != nil {
		if err := m.publishFunc(ctx, job); err != nil {
			return err
		}
	}
	job.JobID = "job-1"
	job.SessionID = "sess-1"
	job.Status = jobs.JobStatusPending
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

type mockDirectory struct {
	listEntitiesFunc  func(ctx context.Context) ([]importer.Entity, error)
	createEntityFunc  func(ctx context.Context, name string) (*importer.Entity, error)
	availableTagsFunc func(ctx context.Context) ([]string, error)
}

func (m *mockDirectory) ListEntities(ctx context.Context) ([]importer.Entity, error) {
	return m.listEntitiesFunc(ctx)
}

func (m *mockDirectory) CreateEntity(ctx context.Context, name string) (*importer.Entity, error) {
	return m.createEntityFunc(ctx, name)
}

func (m *mockDirectory) AvailableTags(ctx context.Context) ([]string, error) {
	return m.availableTagsFunc(ctx)
}

func TestEnqueueProcess(t *testing.T) {
	pub := &mockPublisher{}
	h := NewImportsHandler(pub, inmemory.NewProgressStore(), zerolog.Nop())

	body := `{"account":"Current","transactions":[{"checksum":"a","description":"TESCO"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/imports/process", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.EnqueueProcess(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp["session_id"] != "sess-1" {
		t.Errorf("session_id = %q", resp["session_id"])
	}

	if len(pub.published) != 1 {
		t.Fatal("job not published")
	}
	job := pub.published[0]
	if job.Kind != jobs.JobKindProcess || job.Account != "Current" || len(job.Parsed) != 1 {
		t.Errorf("published job = %+v", job)
	}
}

func TestEnqueueProcess_Validation(t *testing.T) {
	h := NewImportsHandler(&mockPublisher{}, inmemory.NewProgressStore(), zerolog.Nop())

	tests := []struct {
		name string
		body string
	}{
		{name: "bad json", body: "{"},
		{name: "no transactions", body: `{"account":"Current","transactions":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/imports/process", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.EnqueueProcess(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestEnqueueExecute_RequiresResolvedEntities(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing entity id", `{"transactions":[{"checksum":"a","entity_id":"","entity_name":"Tesco"}]}`},
		{"missing entity name", `{"transactions":[{"checksum":"a","entity_id":"e1","entity_name":""}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			h := NewImportsHandler(pub, inmemory.NewProgressStore(), zerolog.Nop())

			req := httptest.NewRequest(http.MethodPost, "/api/imports/execute", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.EnqueueExecute(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if len(pub.published) != 0 {
				t.Error("invalid request must not be enqueued")
			}
		})
	}
}

func TestEnqueueExecute(t *testing.T) {
	pub := &mockPublisher{}
	h := NewImportsHandler(pub, inmemory.NewProgressStore(), zerolog.Nop())

	body := `{"account":"Current","transactions":[{"checksum":"a","entity_id":"e1","entity_name":"Tesco","tags":["groceries"]}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/imports/execute", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.EnqueueExecute(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(pub.published) != 1 || pub.published[0].Kind != jobs.JobKindExecute {
		t.Errorf("published = %+v", pub.published)
	}
}

func TestEnqueue_PublisherFailure(t *testing.T) {
	pub := &mockPublisher{publishFunc: func(ctx context.Context, job *jobs.ImportJob) error {
		return errors.New("queue full")
	}}
	h := NewImportsHandler(pub, inmemory.NewProgressStore(), zerolog.Nop())

	body := `{"transactions":[{"checksum":"a"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/imports/process", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.EnqueueProcess(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestGetProgress(t *testing.T) {
	store := inmemory.NewProgressStore()
	store.Save("sess-1", importer.Progress{
		SessionID:      "sess-1",
		Status:         importer.ProgressProcessing,
		ProcessedCount: 4,
	})
	h := NewImportsHandler(&mockPublisher{}, store, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/imports/progress/sess-1", nil)
	rec := httptest.NewRecorder()
	h.GetProgress(rec, req, "sess-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got importer.Progress
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if got.SessionID != "sess-1" || got.ProcessedCount != 4 {
		t.Errorf("progress = %+v", got)
	}

	rec = httptest.NewRecorder()
	h.GetProgress(rec, req, "unknown")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", rec.Code)
	}
}

func TestListEntities(t *testing.T) {
	dir := &mockDirectory{
		listEntitiesFunc: func(ctx context.Context) ([]importer.Entity, error) {
			return []importer.Entity{{EntityID: "e1", Name: "Tesco"}}, nil
		},
	}
	h := NewEntitiesHandler(dir, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/entities", nil)
	rec := httptest.NewRecorder()
	h.ListEntities(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Tesco") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCreateEntity(t *testing.T) {
	dir := &mockDirectory{
		createEntityFunc: func(ctx context.Context, name string) (*importer.Entity, error) {
			return &importer.Entity{EntityID: "e-new", Name: name}, nil
		},
	}
	h := NewEntitiesHandler(dir, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/entities", strings.NewReader(`{"name":" New Cafe "}`))
	rec := httptest.NewRecorder()
	h.CreateEntity(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got importer.Entity
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if got.EntityID != "e-new" || got.Name != "New Cafe" {
		t.Errorf("entity = %+v", got)
	}

	// Blank name rejected before hitting the directory.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/entities", strings.NewReader(`{"name":"  "}`))
	h.CreateEntity(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank name status = %d, want 400", rec.Code)
	}
}

func TestListTags(t *testing.T) {
	dir := &mockDirectory{
		availableTagsFunc: func(ctx context.Context) ([]string, error) {
			return []string{"groceries", "transport"}, nil
		},
	}
	h := NewEntitiesHandler(dir, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	rec := httptest.NewRecorder()
	h.ListTags(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "groceries") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
