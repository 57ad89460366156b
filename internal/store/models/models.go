// Package models holds the persisted and transient entities shared across
// the capture, diff, and orchestration packages.
package models

import "time"

// SnapshotKind distinguishes the role a stored or in-flight image plays.
// It is a single closed set: capture side (New/Old) and storage role
// (Create/Deleted/ColorDiff/LcsDiff) share the same enum, annotated
// explicitly rather than overloaded per value.
type SnapshotKind string

const (
	KindNew       SnapshotKind = "new"
	KindOld       SnapshotKind = "old"
	KindCreate    SnapshotKind = "create"
	KindDeleted   SnapshotKind = "deleted"
	KindColorDiff SnapshotKind = "color_diff"
	KindLcsDiff   SnapshotKind = "lcs_diff"
)

// JobStatus is the lifecycle state of a Job record.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Batch is one invocation's worth of comparison between a New gallery and
// an Old gallery. Immutable once committed.
type Batch struct {
	ID                  string    `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	NewStoryBookVersion string    `db:"new_story_book_version" json:"new_story_book_version"`
	OldStoryBookVersion string    `db:"old_story_book_version" json:"old_story_book_version"`
}

// Snapshot is a child row of Batch: one captured, created, deleted, or
// diffed image.
type Snapshot struct {
	ID        string       `db:"id" json:"id"`
	BatchID   string       `db:"batch_id" json:"batch_id"`
	Name      string       `db:"name" json:"name"`
	Path      string       `db:"path" json:"path"`
	Width     float64      `db:"width" json:"width"`
	Height    float64      `db:"height" json:"height"`
	Kind      SnapshotKind `db:"snap_shot_type" json:"kind"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Job tracks the asynchronous progress of one CreateBatch invocation.
type Job struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batch_id,omitempty"`
	Status    JobStatus `json:"status"`
	Progress  float64   `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RawImage is a transient, in-memory decoded (or still-encoded) capture.
// Never persisted as a record itself — only its bytes, written to disk by
// the Asset Writer.
type RawImage struct {
	Bytes  []byte
	Width  float64
	Height float64
	Kind   SnapshotKind
	Name   string
}

// CaptureDescriptor is a single unit of capture work: one story, one side.
type CaptureDescriptor struct {
	URL  string
	Name string
	Side SnapshotKind // KindNew or KindOld
}

// ImagePath is the public-facing {name, path, width, height} shape embedded
// in the SnapShotBatch JSON response.
type ImagePath struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DiffImagePair bundles the four snapshots that exist for one paired story.
type DiffImagePair struct {
	New       ImagePath `json:"new"`
	Old       ImagePath `json:"old"`
	ColorDiff ImagePath `json:"color_diff"`
	LcsDiff   ImagePath `json:"lcs_diff"`
}

// SnapShotBatch is the API-facing, fully assembled view of a Batch and its
// Snapshots.
type SnapShotBatch struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	CreatedAt           string          `json:"created_at"`
	NewStoryBookVersion string          `json:"new_story_book_version"`
	OldStoryBookVersion string          `json:"old_story_book_version"`
	CreatedImagePaths   []ImagePath     `json:"created_image_paths"`
	DeletedImagePaths   []ImagePath     `json:"deleted_image_paths"`
	DiffImage           []DiffImagePair `json:"diff_image"`
}

// TimestampFormat is the contractual "YYYY-MM-DD HH:MM:SS" UTC format used
// in SnapShotBatch JSON.
const TimestampFormat = "2006-01-02 15:04:05"

// AssembleSnapShotBatch groups a Batch's flat Snapshot rows back into the
// API-facing shape: created/deleted lists plus one DiffImagePair per paired
// story that produced a diff.
func AssembleSnapShotBatch(batch Batch, snapshots []Snapshot) SnapShotBatch {
	result := SnapShotBatch{
		ID:                  batch.ID,
		Name:                batch.Name,
		CreatedAt:           batch.CreatedAt.UTC().Format(TimestampFormat),
		NewStoryBookVersion: batch.NewStoryBookVersion,
		OldStoryBookVersion: batch.OldStoryBookVersion,
		CreatedImagePaths:   []ImagePath{},
		DeletedImagePaths:   []ImagePath{},
		DiffImage:           []DiffImagePair{},
	}

	byName := make(map[string]map[SnapshotKind]Snapshot)
	for _, s := range snapshots {
		switch s.Kind {
		case KindCreate:
			result.CreatedImagePaths = append(result.CreatedImagePaths, toImagePath(s))
		case KindDeleted:
			result.DeletedImagePaths = append(result.DeletedImagePaths, toImagePath(s))
		default:
			if byName[s.Name] == nil {
				byName[s.Name] = make(map[SnapshotKind]Snapshot)
			}
			byName[s.Name][s.Kind] = s
		}
	}

	for _, kinds := range byName {
		newS, hasNew := kinds[KindNew]
		oldS, hasOld := kinds[KindOld]
		if !hasNew || !hasOld {
			continue
		}
		colorS, hasColor := kinds[KindColorDiff]
		lcsS, hasLcs := kinds[KindLcsDiff]
		if !hasColor || !hasLcs {
			continue
		}
		result.DiffImage = append(result.DiffImage, DiffImagePair{
			New:       toImagePath(newS),
			Old:       toImagePath(oldS),
			ColorDiff: toImagePath(colorS),
			LcsDiff:   toImagePath(lcsS),
		})
	}

	return result
}

func toImagePath(s Snapshot) ImagePath {
	return ImagePath{Name: s.Name, Path: s.Path, Width: s.Width, Height: s.Height}
}
