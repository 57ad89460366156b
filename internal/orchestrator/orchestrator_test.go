package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/chris-o-r/SnapShotTesting/internal/capture"
	"github.com/chris-o-r/SnapShotTesting/internal/diff"
	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

// fakeIndexer returns a fixed descriptor set per gallery URL, keyed by
// side, so tests can script independent new/old galleries.
type fakeIndexer struct {
	bySide map[models.SnapshotKind][]models.CaptureDescriptor
}

func (f *fakeIndexer) Index(_ context.Context, _ string, side models.SnapshotKind) ([]models.CaptureDescriptor, error) {
	return f.bySide[side], nil
}

// fakeCapturePool "captures" by returning one RawImage per descriptor, or
// an error for names present in failNames.
type fakeCapturePool struct {
	failNames map[string]bool
}

func (f *fakeCapturePool) Capture(_ context.Context, descriptors []models.CaptureDescriptor) []capture.Result {
	results := make([]capture.Result, len(descriptors))
	for i, d := range descriptors {
		if f.failNames[d.Name] {
			results[i] = capture.Result{Descriptor: d, Err: fmt.Errorf("simulated capture failure for %s", d.Name)}
			continue
		}
		results[i] = capture.Result{
			Descriptor: d,
			Image:      models.RawImage{Bytes: []byte("png-bytes"), Width: 100, Height: 100, Kind: d.Side, Name: d.Name},
		}
	}
	return results
}

// fakeDiffEngine marks every pair as computed, deterministically.
type fakeDiffEngine struct{}

func (fakeDiffEngine) Run(_ context.Context, pairs []diff.Pair) []diff.Outcome {
	outcomes := make([]diff.Outcome, len(pairs))
	for i, p := range pairs {
		outcomes[i] = diff.Outcome{
			Name:            p.Name,
			DimensionsMatch: true,
			Computed:        true,
			ColorDiff:       models.RawImage{Bytes: []byte("color"), Width: p.New.Width, Height: p.New.Height, Kind: models.KindColorDiff, Name: p.Name},
			LcsDiff:         models.RawImage{Bytes: []byte("lcs"), Width: p.New.Width, Height: p.New.Height, Kind: models.KindLcsDiff, Name: p.Name},
		}
	}
	return outcomes
}

// fakeAssetWriter records every write without touching disk.
type fakeAssetWriter struct {
	writes []models.RawImage
}

func (f *fakeAssetWriter) Write(folder string, img models.RawImage) (string, error) {
	f.writes = append(f.writes, img)
	return folder + "/" + string(img.Kind) + "/" + img.Name + ".png", nil
}

// fakeBatchStore is an in-memory stand-in satisfying BatchStore; its
// BeginTx hands out a fakeTx since no real driver is involved in tests.
type fakeBatchStore struct {
	batches   map[string]models.Batch
	snapshots map[string][]models.Snapshot
	failInsertSnapshots bool
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{batches: map[string]models.Batch{}, snapshots: map[string][]models.Snapshot{}}
}

// fakeTx is a trivial Commit/Rollback recorder satisfying the
// Tx interface, standing in for a real *sqlx.Tx in tests.
type fakeTx struct {
	store     *fakeBatchStore
	pendingBatch *models.Batch
	pendingSnapshots []models.Snapshot
	committed bool
}

func (t *fakeTx) Commit() error {
	t.committed = true
	if t.pendingBatch != nil {
		t.store.batches[t.pendingBatch.ID] = *t.pendingBatch
	}
	for _, s := range t.pendingSnapshots {
		t.store.snapshots[s.BatchID] = append(t.store.snapshots[s.BatchID], s)
	}
	return nil
}

func (t *fakeTx) Rollback() error { return nil }

func (f *fakeBatchStore) BeginTx(_ context.Context) (Tx, error) {
	return &fakeTx{store: f}, nil
}

func (f *fakeBatchStore) InsertBatch(_ context.Context, tx Tx, batch models.Batch) (models.Batch, error) {
	ft, ok := tx.(*fakeTx)
	if !ok {
		return models.Batch{}, fmt.Errorf("unexpected tx type %T", tx)
	}
	b := batch
	ft.pendingBatch = &b
	return batch, nil
}

func (f *fakeBatchStore) InsertSnapshots(_ context.Context, tx Tx, snapshots []models.Snapshot) ([]models.Snapshot, error) {
	if f.failInsertSnapshots {
		return nil, fmt.Errorf("simulated insert failure")
	}
	ft, ok := tx.(*fakeTx)
	if !ok {
		return nil, fmt.Errorf("unexpected tx type %T", tx)
	}
	ft.pendingSnapshots = append(ft.pendingSnapshots, snapshots...)
	return snapshots, nil
}

func (f *fakeBatchStore) GetAllBatches(_ context.Context) ([]models.Batch, error) {
	var out []models.Batch
	for _, b := range f.batches {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBatchStore) GetBatchById(_ context.Context, id string) (models.Batch, bool, error) {
	b, ok := f.batches[id]
	return b, ok, nil
}

func (f *fakeBatchStore) GetSnapshotsByBatchId(_ context.Context, id string) ([]models.Snapshot, error) {
	return f.snapshots[id], nil
}

func (f *fakeBatchStore) DeleteBatchById(_ context.Context, id string) (bool, error) {
	if _, ok := f.batches[id]; !ok {
		return false, nil
	}
	delete(f.batches, id)
	delete(f.snapshots, id)
	return true, nil
}

func (f *fakeBatchStore) DeleteAllBatches(_ context.Context) error {
	f.batches = map[string]models.Batch{}
	return nil
}

func (f *fakeBatchStore) DeleteAllSnapshots(_ context.Context) error {
	f.snapshots = map[string][]models.Snapshot{}
	return nil
}

// fakeJobStore is an in-memory stand-in satisfying JobStore.
type fakeJobStore struct {
	jobs []models.Job
}

func (f *fakeJobStore) Insert(_ context.Context, job models.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeJobStore) Update(_ context.Context, job models.Job) error {
	for i, existing := range f.jobs {
		if existing.ID == job.ID {
			f.jobs[i] = job
			return nil
		}
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeJobStore) GetById(_ context.Context, id string) (models.Job, bool, error) {
	for _, j := range f.jobs {
		if j.ID == id {
			return j, true, nil
		}
	}
	return models.Job{}, false, nil
}

func (f *fakeJobStore) GetAllRunning(_ context.Context) ([]models.Job, error) {
	var out []models.Job
	for _, j := range f.jobs {
		if j.Status != models.JobCompleted {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobStore) DeleteAll(_ context.Context) error {
	f.jobs = nil
	return nil
}

func TestCreateBatchHappyPathAllPairedIdentical(t *testing.T) {
	// S1: two galleries expose {a, b}, identical renders.
	indexer := &fakeIndexer{bySide: map[models.SnapshotKind][]models.CaptureDescriptor{
		models.KindNew: {{Name: "a", Side: models.KindNew}, {Name: "b", Side: models.KindNew}},
		models.KindOld: {{Name: "a", Side: models.KindOld}, {Name: "b", Side: models.KindOld}},
	}}
	pool := &fakeCapturePool{failNames: map[string]bool{}}
	batchStore := newFakeBatchStore()
	jobStore := &fakeJobStore{}
	o := New(indexer, pool, fakeDiffEngine{}, &fakeAssetWriter{}, batchStore, jobStore)

	result, err := o.CreateBatch(context.Background(), "https://new.example", "https://old.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshots := batchStore.snapshots[result.ID]
	newCount, oldCount := 0, 0
	for _, s := range snapshots {
		switch s.Kind {
		case models.KindNew:
			newCount++
		case models.KindOld:
			oldCount++
		}
	}
	if newCount != 2 || oldCount != 2 {
		t.Fatalf("expected 2 new + 2 old rows, got new=%d old=%d", newCount, oldCount)
	}
	if len(result.CreatedImagePaths) != 0 || len(result.DeletedImagePaths) != 0 {
		t.Fatalf("expected no created/deleted entries, got %+v / %+v", result.CreatedImagePaths, result.DeletedImagePaths)
	}

	job, found, err := jobStore.GetById(context.Background(), result.ID)
	if err != nil || !found {
		t.Fatalf("expected job to be found: found=%v err=%v", found, err)
	}
	if job.Status != models.JobCompleted || job.Progress != progressCompleted {
		t.Fatalf("expected job Completed at progress 1.0, got %+v", job)
	}
}

func TestCreateBatchOneStoryAdded(t *testing.T) {
	// S2: new exposes {a, b, c}, old exposes {a, b}.
	indexer := &fakeIndexer{bySide: map[models.SnapshotKind][]models.CaptureDescriptor{
		models.KindNew: {{Name: "a", Side: models.KindNew}, {Name: "b", Side: models.KindNew}, {Name: "c", Side: models.KindNew}},
		models.KindOld: {{Name: "a", Side: models.KindOld}, {Name: "b", Side: models.KindOld}},
	}}
	pool := &fakeCapturePool{failNames: map[string]bool{}}
	batchStore := newFakeBatchStore()
	jobStore := &fakeJobStore{}
	o := New(indexer, pool, fakeDiffEngine{}, &fakeAssetWriter{}, batchStore, jobStore)

	result, err := o.CreateBatch(context.Background(), "new", "old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.CreatedImagePaths) != 1 || result.CreatedImagePaths[0].Name != "c" {
		t.Fatalf("expected one created entry 'c', got %+v", result.CreatedImagePaths)
	}
	if len(result.DeletedImagePaths) != 0 {
		t.Fatalf("expected no deleted entries, got %+v", result.DeletedImagePaths)
	}
}

func TestCreateBatchPerDescriptorCaptureFailureDoesNotFailJob(t *testing.T) {
	// S5 variant: story "b" fails to capture. fakeCapturePool keys failNames
	// by name only, so "b" fails on both the new and the old side.
	indexer := &fakeIndexer{bySide: map[models.SnapshotKind][]models.CaptureDescriptor{
		models.KindNew: {{Name: "a", Side: models.KindNew}, {Name: "b", Side: models.KindNew}},
		models.KindOld: {{Name: "a", Side: models.KindOld}, {Name: "b", Side: models.KindOld}},
	}}
	pool := &fakeCapturePool{failNames: map[string]bool{"b": true}}
	batchStore := newFakeBatchStore()
	jobStore := &fakeJobStore{}
	o := New(indexer, pool, fakeDiffEngine{}, &fakeAssetWriter{}, batchStore, jobStore)

	result, err := o.CreateBatch(context.Background(), "new", "old")
	if err != nil {
		t.Fatalf("expected job to still complete despite a per-descriptor failure: %v", err)
	}

	names := map[string]int{}
	for _, s := range batchStore.snapshots[result.ID] {
		names[s.Name]++
	}
	// "b" failed on both sides, so it is dropped from both capture sets and
	// only story "a" is paired and written.
	if names["a"] == 0 {
		t.Fatalf("expected story 'a' to be captured on both sides")
	}
}

func TestCreateBatchRollsBackAndMarksJobFailedOnInsertError(t *testing.T) {
	indexer := &fakeIndexer{bySide: map[models.SnapshotKind][]models.CaptureDescriptor{
		models.KindNew: {{Name: "a", Side: models.KindNew}},
		models.KindOld: {{Name: "a", Side: models.KindOld}},
	}}
	pool := &fakeCapturePool{failNames: map[string]bool{}}
	batchStore := newFakeBatchStore()
	batchStore.failInsertSnapshots = true
	jobStore := &fakeJobStore{}
	o := New(indexer, pool, fakeDiffEngine{}, &fakeAssetWriter{}, batchStore, jobStore)

	_, err := o.CreateBatch(context.Background(), "new", "old")
	if err == nil {
		t.Fatalf("expected an error when snapshot insert fails")
	}

	if len(batchStore.GetAllBatchesUnsafe()) != 0 {
		t.Fatalf("expected no committed batches after rollback")
	}
	if len(jobStore.jobs) != 1 || jobStore.jobs[0].Status != models.JobFailed {
		t.Fatalf("expected the job to be marked failed, got %+v", jobStore.jobs)
	}
}

// GetAllBatchesUnsafe exposes the fake's internal map directly for
// assertions without going through the context-taking interface method.
func (f *fakeBatchStore) GetAllBatchesUnsafe() []models.Batch {
	var out []models.Batch
	for _, b := range f.batches {
		out = append(out, b)
	}
	return out
}
