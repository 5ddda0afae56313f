package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobserver/internal/dispatch"
	"jobserver/internal/domain"
	"jobserver/internal/infra"
	"jobserver/internal/jobs"
	"jobserver/internal/providers/content"
)

// memJobStore is a concurrency-safe in-memory job store. The worker writes
// terminal states from background goroutines, so every method locks.
type memJobStore struct {
	mu   sync.Mutex
	seq  int
	jobs map[string]*domain.Job
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]*domain.Job)}
}

func (s *memJobStore) snapshot(id string) domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

func (s *memJobStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", s.seq)
	}
	job.Status = domain.JobStatusPending
	job.CreatedAt = time.Now()
	s.jobs[job.ID] = job
	return nil
}

func (s *memJobStore) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *memJobStore) GetByIDForOwner(_ context.Context, jobID, ownerID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *memJobStore) ListRecentByOwner(context.Context, string, int) ([]domain.Job, error) {
	return nil, nil
}

func (s *memJobStore) ListRecent(context.Context, int) ([]domain.Job, error) { return nil, nil }

func (s *memJobStore) ListActive(context.Context, int) ([]domain.Job, error) { return nil, nil }

func (s *memJobStore) ListReleasable(context.Context, domain.JobType, time.Time, int) ([]domain.Job, error) {
	return nil, nil
}

func (s *memJobStore) Claim(_ context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.Status != domain.JobStatusPending {
		return false, nil
	}
	j.Status = domain.JobStatusProcessing
	now := time.Now()
	j.StartedAt = &now
	return true, nil
}

func (s *memJobStore) Complete(_ context.Context, jobID string, result json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.Status != domain.JobStatusProcessing {
		return false, nil
	}
	j.Status = domain.JobStatusCompleted
	j.Result = result
	now := time.Now()
	j.CompletedAt = &now
	return true, nil
}

func (s *memJobStore) Fail(_ context.Context, jobID, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.Status.Terminal() {
		return false, nil
	}
	j.Status = domain.JobStatusFailed
	j.Error = reason
	now := time.Now()
	j.CompletedAt = &now
	return true, nil
}

func countingGenerator(calls *int, result string, err error) content.Generator {
	return content.GeneratorFunc(func(context.Context, *domain.Job) (json.RawMessage, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		return json.RawMessage(result), nil
	})
}

func postGenerate(t *testing.T, srv *Server, name, jobID string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"job_id": jobID})
	req := httptest.NewRequest(http.MethodPost, "/generators/"+name, bytes.NewReader(body))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("name", name)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	srv.HandleGenerate(rec, req)
	return rec
}

func seedJob(t *testing.T, store *memJobStore, jobType domain.JobType) string {
	t.Helper()
	job := &domain.Job{Type: jobType, OwnerID: "owner-1", Payload: json.RawMessage(`{"topic":"go"}`)}
	require.NoError(t, store.Create(context.Background(), job))
	return job.ID
}

func TestHandleGenerateClaimsAndCompletes(t *testing.T) {
	store := newMemJobStore()
	id := seedJob(t, store, domain.JobTypeBlogGeneration)

	calls := 0
	srv := NewServer(store, dispatch.NewRegistry(), map[domain.JobType]content.Generator{
		domain.JobTypeBlogGeneration: countingGenerator(&calls, `{"post":"hello"}`, nil),
	}, infra.NewTestLogger())

	rec := postGenerate(t, srv, "generate-blog-post", id)
	require.Equal(t, http.StatusAccepted, rec.Code)

	srv.Wait()

	job := store.snapshot(id)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.JSONEq(t, `{"post":"hello"}`, string(job.Result))
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, 1, calls)
}

func TestHandleGenerateDuplicateDeliveryRunsOnce(t *testing.T) {
	store := newMemJobStore()
	id := seedJob(t, store, domain.JobTypeBlogGeneration)

	calls := 0
	srv := NewServer(store, dispatch.NewRegistry(), map[domain.JobType]content.Generator{
		domain.JobTypeBlogGeneration: countingGenerator(&calls, `{"post":"hello"}`, nil),
	}, infra.NewTestLogger())

	first := postGenerate(t, srv, "generate-blog-post", id)
	require.Equal(t, http.StatusAccepted, first.Code)
	srv.Wait()

	second := postGenerate(t, srv, "generate-blog-post", id)
	require.Equal(t, http.StatusAccepted, second.Code)
	srv.Wait()

	var resp generateResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.False(t, resp.Accepted)

	assert.Equal(t, 1, calls)
	assert.Equal(t, domain.JobStatusCompleted, store.snapshot(id).Status)
}

func TestHandleGenerateGeneratorErrorFailsJob(t *testing.T) {
	store := newMemJobStore()
	id := seedJob(t, store, domain.JobTypeDeepResearch)

	calls := 0
	srv := NewServer(store, dispatch.NewRegistry(), map[domain.JobType]content.Generator{
		domain.JobTypeDeepResearch: countingGenerator(&calls, "", errors.New("model quota exceeded")),
	}, infra.NewTestLogger())

	rec := postGenerate(t, srv, "deep-research", id)
	require.Equal(t, http.StatusAccepted, rec.Code)
	srv.Wait()

	job := store.snapshot(id)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "model quota exceeded")
}

func TestHandleGenerateWrongGeneratorName(t *testing.T) {
	store := newMemJobStore()
	id := seedJob(t, store, domain.JobTypeBlogGeneration)

	srv := NewServer(store, dispatch.NewRegistry(), content.StaticGenerators(), infra.NewTestLogger())

	rec := postGenerate(t, srv, "deep-research", id)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.JobStatusPending, store.snapshot(id).Status)
}

func TestHandleGenerateUnknownJob(t *testing.T) {
	srv := NewServer(newMemJobStore(), dispatch.NewRegistry(), content.StaticGenerators(), infra.NewTestLogger())

	rec := postGenerate(t, srv, "generate-blog-post", "nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// End-to-end over real HTTP: client submit -> dispatcher -> invoker ->
// generator host -> terminal state, then the client polls the outcome.
func TestSubmitGenerateAndPollRoundTrip(t *testing.T) {
	store := newMemJobStore()
	registry := dispatch.NewRegistry()

	srv := NewServer(store, registry, content.StaticGenerators(), infra.NewTestLogger())

	r := chi.NewRouter()
	r.Post("/generators/{name}", srv.HandleGenerate)
	ts := httptest.NewServer(r)
	defer ts.Close()

	invoker := dispatch.NewHTTPInvoker(ts.URL, "secret", 5*time.Second)
	dispatcher := dispatch.NewDispatcher(store, registry, invoker, infra.NewTestLogger())
	client := jobs.NewClient(store, dispatcher, registry, infra.NewTestLogger())

	id, err := client.Submit(context.Background(), jobs.SubmitParams{
		Type:    domain.JobTypeCarouselGeneration,
		Payload: json.RawMessage(`{"topic":"regulatory strategy"}`),
		OwnerID: "owner-1",
	})
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	var st *jobs.Status
	for time.Now().Before(deadline) {
		st, err = client.Poll(context.Background(), id, "owner-1")
		require.NoError(t, err)
		if st.Status.Terminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.NotNil(t, st)
	assert.Equal(t, domain.JobStatusCompleted, st.Status)
	assert.NotEmpty(t, st.Result)
	assert.Empty(t, st.Error)
}
