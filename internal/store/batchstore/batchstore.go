// Package batchstore is the transactional relational store (C7) for
// batches and their child snapshot rows.
package batchstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/chris-o-r/SnapShotTesting/internal/database"
	"github.com/chris-o-r/SnapShotTesting/internal/orchestrator"
	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

// Store provides transactional insert/read/delete operations over the
// snapshots_batches and snapshots tables.
type Store struct {
	db *database.DB
}

// New builds a Store over db.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// BeginTx starts a transaction the orchestrator drives across the whole
// batch-creation sequence (open once in Job.Processing, committed or rolled
// back once at the end).
func (s *Store) BeginTx(ctx context.Context) (orchestrator.Tx, error) {
	return s.db.BeginTx(ctx)
}

// InsertBatch inserts one batch row within tx and returns it back, mirroring
// the teacher's db-round-trip-then-return-the-dto repository style.
func (s *Store) InsertBatch(ctx context.Context, tx orchestrator.Tx, batch models.Batch) (models.Batch, error) {
	sqlxTx, err := asSqlxTx(tx)
	if err != nil {
		return models.Batch{}, err
	}
	_, err = sqlxTx.ExecContext(ctx, `
		INSERT INTO snapshots_batches (id, name, created_at, new_story_book_version, old_story_book_version)
		VALUES ($1, $2, $3, $4, $5)
	`, batch.ID, batch.Name, batch.CreatedAt, batch.NewStoryBookVersion, batch.OldStoryBookVersion)
	if err != nil {
		return models.Batch{}, fmt.Errorf("insert batch: %w", err)
	}
	return batch, nil
}

// InsertSnapshots bulk-inserts snapshots within tx using a single statement
// binding column-major pq.Array slices through unnest, satisfying the "one
// statement" requirement without a per-row round trip.
func (s *Store) InsertSnapshots(ctx context.Context, tx orchestrator.Tx, snapshots []models.Snapshot) ([]models.Snapshot, error) {
	if len(snapshots) == 0 {
		return snapshots, nil
	}

	sqlxTx, err := asSqlxTx(tx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(snapshots))
	batchIDs := make([]string, len(snapshots))
	names := make([]string, len(snapshots))
	paths := make([]string, len(snapshots))
	widths := make([]float64, len(snapshots))
	heights := make([]float64, len(snapshots))
	kinds := make([]string, len(snapshots))
	createdAts := make([]sql.NullTime, len(snapshots))

	for i, snap := range snapshots {
		ids[i] = snap.ID
		batchIDs[i] = snap.BatchID
		names[i] = snap.Name
		paths[i] = snap.Path
		widths[i] = snap.Width
		heights[i] = snap.Height
		kinds[i] = string(snap.Kind)
		createdAts[i] = sql.NullTime{Time: snap.CreatedAt, Valid: !snap.CreatedAt.IsZero()}
	}

	_, err = sqlxTx.ExecContext(ctx, `
		INSERT INTO snapshots (id, batch_id, name, path, width, height, snap_shot_type, created_at)
		SELECT * FROM unnest(
			$1::uuid[], $2::uuid[], $3::varchar[], $4::varchar[],
			$5::double precision[], $6::double precision[], $7::varchar[], $8::timestamp[]
		)
	`,
		pq.Array(ids), pq.Array(batchIDs), pq.Array(names), pq.Array(paths),
		pq.Array(widths), pq.Array(heights), pq.Array(kinds), pq.Array(createdAts),
	)
	if err != nil {
		return nil, fmt.Errorf("bulk insert snapshots: %w", err)
	}

	return snapshots, nil
}

// GetAllBatches returns every committed batch.
func (s *Store) GetAllBatches(ctx context.Context) ([]models.Batch, error) {
	var batches []models.Batch
	if err := s.db.SelectContext(ctx, &batches, `
		SELECT id, name, created_at, new_story_book_version, old_story_book_version
		FROM snapshots_batches
		ORDER BY created_at DESC
	`); err != nil {
		return nil, fmt.Errorf("get all batches: %w", err)
	}
	return batches, nil
}

// GetBatchById returns one batch, or (zero value, false) if absent.
func (s *Store) GetBatchById(ctx context.Context, id string) (models.Batch, bool, error) {
	var batch models.Batch
	err := s.db.GetContext(ctx, &batch, `
		SELECT id, name, created_at, new_story_book_version, old_story_book_version
		FROM snapshots_batches
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return models.Batch{}, false, nil
	}
	if err != nil {
		return models.Batch{}, false, fmt.Errorf("get batch by id: %w", err)
	}
	return batch, true, nil
}

// GetSnapshotsByBatchId returns every snapshot row belonging to batch id.
func (s *Store) GetSnapshotsByBatchId(ctx context.Context, id string) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	if err := s.db.SelectContext(ctx, &snapshots, `
		SELECT id, batch_id, name, path, width, height, snap_shot_type, created_at
		FROM snapshots
		WHERE batch_id = $1
	`, id); err != nil {
		return nil, fmt.Errorf("get snapshots by batch id: %w", err)
	}
	return snapshots, nil
}

// DeleteBatchById atomically deletes a batch and its child snapshots. If
// either side finds nothing, the transaction is rolled back and found is
// false.
func (s *Store) DeleteBatchById(ctx context.Context, id string) (found bool, err error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	snapResult, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE batch_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete snapshots for batch %s: %w", id, err)
	}

	batchResult, err := tx.ExecContext(ctx, `DELETE FROM snapshots_batches WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete batch %s: %w", id, err)
	}

	batchRows, err := batchResult.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete batch %s: %w", id, err)
	}
	if batchRows == 0 {
		// Nothing to commit; rolling back is a no-op either way but keeps
		// the "not found ⇒ no partial delete" invariant explicit even if
		// snapshots alone matched (orphaned rows, shouldn't normally exist).
		return false, nil
	}

	snapRows, err := snapResult.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete batch %s: %w", id, err)
	}
	if snapRows == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete for batch %s: %w", id, err)
	}
	return true, nil
}

// DeleteAllBatches deletes every batch row (snapshots are removed via the
// FK's ON DELETE CASCADE, declared in the migration).
func (s *Store) DeleteAllBatches(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots_batches`); err != nil {
		return fmt.Errorf("delete all batches: %w", err)
	}
	return nil
}

// DeleteAllSnapshots deletes every snapshot row without touching batches.
func (s *Store) DeleteAllSnapshots(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("delete all snapshots: %w", err)
	}
	return nil
}

// asSqlxTx recovers the concrete *sqlx.Tx behind the orchestrator.Tx
// interface. Safe because the only producer of orchestrator.Tx values this
// store's BeginTx ever hands out is *sqlx.Tx itself.
func asSqlxTx(tx orchestrator.Tx) (*sqlx.Tx, error) {
	sqlxTx, ok := tx.(*sqlx.Tx)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	return sqlxTx, nil
}
