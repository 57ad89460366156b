package jobstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

func TestKeyUsesExpectedPrefix(t *testing.T) {
	got := key("abc-123")
	want := "snap_shot_batch_job:abc-123"
	if got != want {
		t.Fatalf("key(%q) = %q, want %q", "abc-123", got, want)
	}
}

func TestJobRoundTripsThroughJSON(t *testing.T) {
	job := models.Job{
		ID:        "job-1",
		BatchID:   "batch-1",
		Status:    models.JobProcessing,
		Progress:  0.4,
		CreatedAt: time.Unix(1000, 0).UTC(),
		UpdatedAt: time.Unix(2000, 0).UTC(),
	}

	payload, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded models.Job
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.ID != job.ID || decoded.Status != job.Status || decoded.Progress != job.Progress {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, job)
	}
}
