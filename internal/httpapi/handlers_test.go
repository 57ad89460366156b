package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeOrchestrator is a minimal in-memory stand-in satisfying Orchestrator.
type fakeOrchestrator struct {
	batches       map[string]models.SnapShotBatch
	jobs          map[string]models.Job
	createErr     error
	cleanUpCalled bool
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{batches: map[string]models.SnapShotBatch{}, jobs: map[string]models.Job{}}
}

func (f *fakeOrchestrator) CreateBatch(_ context.Context, newURL, oldURL string) (models.SnapShotBatch, error) {
	if f.createErr != nil {
		return models.SnapShotBatch{}, f.createErr
	}
	batch := models.SnapShotBatch{ID: "batch-1", Name: newURL + "-" + oldURL}
	f.batches[batch.ID] = batch
	return batch, nil
}

func (f *fakeOrchestrator) GetAllBatches(_ context.Context) ([]models.SnapShotBatch, error) {
	out := make([]models.SnapShotBatch, 0, len(f.batches))
	for _, b := range f.batches {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeOrchestrator) GetBatchById(_ context.Context, id string) (models.SnapShotBatch, bool, error) {
	b, ok := f.batches[id]
	return b, ok, nil
}

func (f *fakeOrchestrator) DeleteBatchById(_ context.Context, id string) (bool, error) {
	if _, ok := f.batches[id]; !ok {
		return false, nil
	}
	delete(f.batches, id)
	return true, nil
}

func (f *fakeOrchestrator) GetJob(_ context.Context, id string) (models.Job, bool, error) {
	j, ok := f.jobs[id]
	return j, ok, nil
}

func (f *fakeOrchestrator) GetRunningJobs(_ context.Context) ([]models.Job, error) {
	out := make([]models.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeOrchestrator) CleanUp(_ context.Context, removeAssetsRoot func() error) error {
	f.cleanUpCalled = true
	if removeAssetsRoot != nil {
		return removeAssetsRoot()
	}
	return nil
}

func newTestRouter(orch Orchestrator) *gin.Engine {
	r := gin.New()
	snapShotHandler := NewSnapShotHandler(orch)
	jobHandler := NewJobHandler(orch)
	adminHandler := NewAdminHandler(orch, func() error { return nil })

	api := r.Group("/api")
	snapShots := api.Group("/snap-shots")
	snapShots.POST("", snapShotHandler.CreateSnapShotBatch)
	snapShots.GET("", snapShotHandler.GetSnapShotBatches)
	snapShots.GET("/:id", snapShotHandler.GetSnapShotBatch)
	snapShots.DELETE("/:id", snapShotHandler.DeleteSnapShotBatch)

	jobs := api.Group("/jobs")
	jobs.GET("/:id", jobHandler.GetJob)

	admin := api.Group("/admin")
	admin.GET("/clean-up", adminHandler.CleanUp)

	return r
}

func TestCreateSnapShotBatchRejectsNonURLFields(t *testing.T) {
	orch := newFakeOrchestrator()
	r := newTestRouter(orch)

	body, _ := json.Marshal(map[string]string{"new": "not-a-url", "old": "https://old.example"})
	req := httptest.NewRequest(http.MethodPost, "/api/snap-shots", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateSnapShotBatchHappyPath(t *testing.T) {
	orch := newFakeOrchestrator()
	r := newTestRouter(orch)

	body, _ := json.Marshal(map[string]string{"new": "https://new.example", "old": "https://old.example"})
	req := httptest.NewRequest(http.MethodPost, "/api/snap-shots", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got models.SnapShotBatch
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "batch-1" {
		t.Fatalf("expected batch-1, got %q", got.ID)
	}
}

func TestGetSnapShotBatchNotFound(t *testing.T) {
	orch := newFakeOrchestrator()
	r := newTestRouter(orch)

	req := httptest.NewRequest(http.MethodGet, "/api/snap-shots/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteSnapShotBatchFoundReturnsNoContent(t *testing.T) {
	orch := newFakeOrchestrator()
	orch.batches["batch-1"] = models.SnapShotBatch{ID: "batch-1"}
	r := newTestRouter(orch)

	req := httptest.NewRequest(http.MethodDelete, "/api/snap-shots/batch-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, ok := orch.batches["batch-1"]; ok {
		t.Fatalf("expected batch-1 to be deleted")
	}
}

func TestCleanUpInvokesOrchestratorCleanUp(t *testing.T) {
	orch := newFakeOrchestrator()
	r := newTestRouter(orch)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/clean-up", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !orch.cleanUpCalled {
		t.Fatalf("expected CleanUp to be invoked")
	}
}
