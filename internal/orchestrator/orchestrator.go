// Package orchestrator drives the batch-creation state machine (C9):
// index + capture both galleries, categorize, diff, write assets, and
// commit everything in a single relational transaction while keeping a
// Job record's progress up to date.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chris-o-r/SnapShotTesting/internal/capture"
	"github.com/chris-o-r/SnapShotTesting/internal/diff"
	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

// Progress milestones are contractual and strictly ordered.
const (
	progressPending    = 0.0
	progressOpened     = 0.1
	progressNewCapture = 0.4
	progressOldCapture = 0.7
	progressCompleted  = 1.0
)

// Indexer fetches a gallery's manifest and produces capture descriptors.
type Indexer interface {
	Index(ctx context.Context, galleryURL string, side models.SnapshotKind) ([]models.CaptureDescriptor, error)
}

// CapturePool fans descriptor capture out across bounded WebDriver
// sessions.
type CapturePool interface {
	Capture(ctx context.Context, descriptors []models.CaptureDescriptor) []capture.Result
}

// DiffEngine computes color/LCS diffs for paired captures.
type DiffEngine interface {
	Run(ctx context.Context, pairs []diff.Pair) []diff.Outcome
}

// AssetWriter persists image bytes to disk and returns a public path.
type AssetWriter interface {
	Write(folder string, img models.RawImage) (string, error)
}

// Tx is the narrow slice of a relational transaction the orchestrator
// needs: commit it once at the end, or roll it back (deferred,
// unconditionally) on any failure path. The concrete relational store
// implements this with *sqlx.Tx, which already satisfies it structurally.
type Tx interface {
	Commit() error
	Rollback() error
}

// BatchStore is the transactional relational store the orchestrator drives
// across one CreateBatch call.
type BatchStore interface {
	BeginTx(ctx context.Context) (Tx, error)
	InsertBatch(ctx context.Context, tx Tx, batch models.Batch) (models.Batch, error)
	InsertSnapshots(ctx context.Context, tx Tx, snapshots []models.Snapshot) ([]models.Snapshot, error)
	GetAllBatches(ctx context.Context) ([]models.Batch, error)
	GetBatchById(ctx context.Context, id string) (models.Batch, bool, error)
	GetSnapshotsByBatchId(ctx context.Context, id string) ([]models.Snapshot, error)
	DeleteBatchById(ctx context.Context, id string) (bool, error)
	DeleteAllBatches(ctx context.Context) error
	DeleteAllSnapshots(ctx context.Context) error
}

// JobStore is the key/value store backing Job progress.
type JobStore interface {
	Insert(ctx context.Context, job models.Job) error
	Update(ctx context.Context, job models.Job) error
	GetById(ctx context.Context, id string) (models.Job, bool, error)
	GetAllRunning(ctx context.Context) ([]models.Job, error)
	DeleteAll(ctx context.Context) error
}

// Orchestrator wires the capture pipeline, diff engine, asset writer, and
// the two stores into the CreateBatch state machine.
type Orchestrator struct {
	indexer     Indexer
	capturePool CapturePool
	diffEngine  DiffEngine
	assetWriter AssetWriter
	batchStore  BatchStore
	jobStore    JobStore
	now         func() time.Time
	newID       func() string
}

// New builds an Orchestrator from its collaborators.
func New(indexer Indexer, capturePool CapturePool, diffEngine DiffEngine, assetWriter AssetWriter, batchStore BatchStore, jobStore JobStore) *Orchestrator {
	return &Orchestrator{
		indexer:     indexer,
		capturePool: capturePool,
		diffEngine:  diffEngine,
		assetWriter: assetWriter,
		batchStore:  batchStore,
		jobStore:    jobStore,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// CreateBatch drives the full batch-creation sequence and returns the
// committed, fully assembled SnapShotBatch synchronously — no
// spawn-and-forget; job progress is still tracked in the Job Store for
// separate polling via GetJob.
func (o *Orchestrator) CreateBatch(ctx context.Context, newURL, oldURL string) (models.SnapShotBatch, error) {
	jobID := o.newID()
	job := models.Job{ID: jobID, Status: models.JobPending, Progress: progressPending, CreatedAt: o.now(), UpdatedAt: o.now()}
	if err := o.jobStore.Insert(ctx, job); err != nil {
		return models.SnapShotBatch{}, fmt.Errorf("insert job: %w", err)
	}

	batch, snapshots, err := o.runBatch(ctx, jobID, newURL, oldURL)
	if err != nil {
		job.Status = models.JobFailed
		job.Error = err.Error()
		job.UpdatedAt = o.now()
		if updateErr := o.jobStore.Update(ctx, job); updateErr != nil {
			slog.Error("orchestrator: failed to record job failure", slog.String("job_id", jobID), slog.String("error", updateErr.Error()))
		}
		return models.SnapShotBatch{}, err
	}

	job.Status = models.JobCompleted
	job.BatchID = batch.ID
	job.Progress = progressCompleted
	job.UpdatedAt = o.now()
	if err := o.jobStore.Update(ctx, job); err != nil {
		return models.SnapShotBatch{}, fmt.Errorf("mark job completed: %w", err)
	}

	return models.AssembleSnapShotBatch(batch, snapshots), nil
}

func (o *Orchestrator) runBatch(ctx context.Context, jobID, newURL, oldURL string) (models.Batch, []models.Snapshot, error) {
	tx, err := o.batchStore.BeginTx(ctx)
	if err != nil {
		return models.Batch{}, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	batch := models.Batch{
		ID:                  jobID,
		Name:                newURL + "-" + oldURL,
		CreatedAt:           o.now(),
		NewStoryBookVersion: newURL,
		OldStoryBookVersion: oldURL,
	}
	batch, err = o.batchStore.InsertBatch(ctx, tx, batch)
	if err != nil {
		return models.Batch{}, nil, fmt.Errorf("insert batch: %w", err)
	}
	if err := o.updateProgress(ctx, jobID, batch.ID, progressOpened); err != nil {
		return models.Batch{}, nil, err
	}

	newImages, err := o.indexAndCapture(ctx, newURL, models.KindNew)
	if err != nil {
		return models.Batch{}, nil, fmt.Errorf("index+capture new side: %w", err)
	}
	if err := o.updateProgress(ctx, jobID, batch.ID, progressNewCapture); err != nil {
		return models.Batch{}, nil, err
	}

	oldImages, err := o.indexAndCapture(ctx, oldURL, models.KindOld)
	if err != nil {
		return models.Batch{}, nil, fmt.Errorf("index+capture old side: %w", err)
	}
	if err := o.updateProgress(ctx, jobID, batch.ID, progressOldCapture); err != nil {
		return models.Batch{}, nil, err
	}

	categorized := diff.Categorize(newImages, oldImages)
	outcomes := o.diffEngine.Run(ctx, categorized.Paired)

	folder := fmt.Sprintf("%d-%s", o.now().Unix(), batch.ID)
	snapshots, err := o.writeAssets(batch.ID, folder, categorized, outcomes)
	if err != nil {
		return models.Batch{}, nil, fmt.Errorf("write assets: %w", err)
	}

	snapshots, err = o.batchStore.InsertSnapshots(ctx, tx, snapshots)
	if err != nil {
		return models.Batch{}, nil, fmt.Errorf("insert snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Batch{}, nil, fmt.Errorf("commit batch transaction: %w", err)
	}

	return batch, snapshots, nil
}

// indexAndCapture runs the Gallery Indexer then fans the resulting
// descriptors out through the Capture Pool, dropping per-descriptor
// failures (logged, not fatal) per the capture error policy.
func (o *Orchestrator) indexAndCapture(ctx context.Context, galleryURL string, side models.SnapshotKind) ([]models.RawImage, error) {
	descriptors, err := o.indexer.Index(ctx, galleryURL, side)
	if err != nil {
		return nil, fmt.Errorf("index gallery %s: %w", galleryURL, err)
	}

	results := o.capturePool.Capture(ctx, descriptors)

	images := make([]models.RawImage, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			slog.Error("orchestrator: dropping failed capture",
				slog.String("name", r.Descriptor.Name),
				slog.String("side", string(side)),
				slog.String("error", r.Err.Error()),
			)
			continue
		}
		images = append(images, r.Image)
	}
	return images, nil
}

func (o *Orchestrator) updateProgress(ctx context.Context, jobID, batchID string, progress float64) error {
	job := models.Job{ID: jobID, BatchID: batchID, Status: models.JobProcessing, Progress: progress, UpdatedAt: o.now()}
	if err := o.jobStore.Update(ctx, job); err != nil {
		return fmt.Errorf("update job progress to %.1f: %w", progress, err)
	}
	return nil
}

// writeAssets persists every created/deleted/diff image for this batch and
// returns the Snapshot rows ready for bulk insertion. New/Old captures are
// written too, since DiffImagePair.New/Old reference on-disk paths.
func (o *Orchestrator) writeAssets(batchID, folder string, categorized diff.Categorized, outcomes []diff.Outcome) ([]models.Snapshot, error) {
	var toWrite []models.RawImage
	for _, img := range categorized.Created {
		img.Kind = models.KindCreate
		toWrite = append(toWrite, img)
	}
	for _, img := range categorized.Deleted {
		img.Kind = models.KindDeleted
		toWrite = append(toWrite, img)
	}
	for _, pair := range categorized.Paired {
		toWrite = append(toWrite, pair.New, pair.Old)
	}
	for _, outcome := range outcomes {
		if !outcome.Computed {
			continue
		}
		toWrite = append(toWrite, outcome.ColorDiff, outcome.LcsDiff)
	}

	snapshots := make([]models.Snapshot, len(toWrite))
	g := new(errgroup.Group)
	for i, img := range toWrite {
		i, img := i, img
		g.Go(func() error {
			path, err := o.assetWriter.Write(folder, img)
			if err != nil {
				return err
			}
			snapshots[i] = models.Snapshot{
				ID:        uuid.New().String(),
				BatchID:   batchID,
				Name:      img.Name,
				Path:      path,
				Width:     img.Width,
				Height:    img.Height,
				Kind:      img.Kind,
				CreatedAt: o.now(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// GetAllBatches returns every committed batch, fully assembled.
func (o *Orchestrator) GetAllBatches(ctx context.Context) ([]models.SnapShotBatch, error) {
	batches, err := o.batchStore.GetAllBatches(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]models.SnapShotBatch, 0, len(batches))
	for _, b := range batches {
		snapshots, err := o.batchStore.GetSnapshotsByBatchId(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, models.AssembleSnapShotBatch(b, snapshots))
	}
	return result, nil
}

// GetBatchById returns one fully assembled batch, or found=false.
func (o *Orchestrator) GetBatchById(ctx context.Context, id string) (models.SnapShotBatch, bool, error) {
	batch, found, err := o.batchStore.GetBatchById(ctx, id)
	if err != nil || !found {
		return models.SnapShotBatch{}, found, err
	}
	snapshots, err := o.batchStore.GetSnapshotsByBatchId(ctx, id)
	if err != nil {
		return models.SnapShotBatch{}, false, err
	}
	return models.AssembleSnapShotBatch(batch, snapshots), true, nil
}

// DeleteBatchById atomically deletes a batch and its child snapshots.
func (o *Orchestrator) DeleteBatchById(ctx context.Context, id string) (bool, error) {
	return o.batchStore.DeleteBatchById(ctx, id)
}

// GetJob returns one Job by id.
func (o *Orchestrator) GetJob(ctx context.Context, id string) (models.Job, bool, error) {
	return o.jobStore.GetById(ctx, id)
}

// GetRunningJobs returns every non-Completed Job.
func (o *Orchestrator) GetRunningJobs(ctx context.Context) ([]models.Job, error) {
	return o.jobStore.GetAllRunning(ctx)
}

// CleanUp deletes all jobs, all batches, all snapshots, and the assets
// root (C6's directory tree), matching the admin clean-up endpoint.
func (o *Orchestrator) CleanUp(ctx context.Context, removeAssetsRoot func() error) error {
	if err := o.jobStore.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clean up jobs: %w", err)
	}
	if err := o.batchStore.DeleteAllSnapshots(ctx); err != nil {
		return fmt.Errorf("clean up snapshots: %w", err)
	}
	if err := o.batchStore.DeleteAllBatches(ctx); err != nil {
		return fmt.Errorf("clean up batches: %w", err)
	}
	if removeAssetsRoot != nil {
		if err := removeAssetsRoot(); err != nil {
			return fmt.Errorf("clean up assets root: %w", err)
		}
	}
	return nil
}
