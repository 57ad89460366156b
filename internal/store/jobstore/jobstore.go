// Package jobstore is the Redis-backed key/value store (C8) tracking
// asynchronous batch-creation progress.
package jobstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

// keyPrefix is the Redis keyspace every Job is stored under.
const keyPrefix = "snap_shot_batch_job:"

// Store provides Insert/Update/GetById/GetAll/Delete operations over Job
// records, keyed snap_shot_batch_job:<id>.
type Store struct {
	client *redis.Client
}

// New builds a Store over an already-connected Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(id string) string {
	return keyPrefix + id
}

// Insert writes job, last-writer-wins (identical to Update).
func (s *Store) Insert(ctx context.Context, job models.Job) error {
	return s.Update(ctx, job)
}

// Update overwrites the stored Job for job.ID.
func (s *Store) Update(ctx context.Context, job models.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := s.client.Set(ctx, key(job.ID), payload, 0).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

// GetById returns one Job, or (zero value, false) if absent.
func (s *Store) GetById(ctx context.Context, id string) (models.Job, bool, error) {
	payload, err := s.client.Get(ctx, key(id)).Bytes()
	if err == redis.Nil {
		return models.Job{}, false, nil
	}
	if err != nil {
		return models.Job{}, false, fmt.Errorf("get job %s: %w", id, err)
	}

	var job models.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return models.Job{}, false, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, true, nil
}

// GetAll returns every stored Job, scanning the keyspace with SCAN rather
// than the blocking KEYS command.
func (s *Store) GetAll(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get job during scan %s: %w", iter.Val(), err)
		}
		var job models.Job
		if err := json.Unmarshal(payload, &job); err != nil {
			return nil, fmt.Errorf("decode job during scan %s: %w", iter.Val(), err)
		}
		jobs = append(jobs, job)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}

	return jobs, nil
}

// GetAllRunning returns every stored Job whose status is not Completed.
func (s *Store) GetAllRunning(ctx context.Context) ([]models.Job, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	running := make([]models.Job, 0, len(all))
	for _, job := range all {
		if job.Status != models.JobCompleted {
			running = append(running, job)
		}
	}
	return running, nil
}

// DeleteById removes one Job.
func (s *Store) DeleteById(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

// DeleteAll removes every stored Job.
func (s *Store) DeleteAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan jobs for delete-all: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete all jobs: %w", err)
	}
	return nil
}
