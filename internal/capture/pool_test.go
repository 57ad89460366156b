package capture

import (
	"testing"

	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

func TestChunkDescriptors(t *testing.T) {
	descriptors := make([]models.CaptureDescriptor, 7)
	for i := range descriptors {
		descriptors[i] = models.CaptureDescriptor{Name: string(rune('a' + i))}
	}

	chunks := chunkDescriptors(descriptors, 3)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 3 || len(chunks[1]) != 3 || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunk sizes: %v", chunksLengths(chunks))
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total != len(descriptors) {
		t.Fatalf("expected all %d descriptors to be distributed, got %d", len(descriptors), total)
	}
}

func chunksLengths(chunks [][]models.CaptureDescriptor) []int {
	lens := make([]int, len(chunks))
	for i, c := range chunks {
		lens[i] = len(c)
	}
	return lens
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		w, h    float64
		wantErr bool
	}{
		{"zero width", 0, 100, true},
		{"zero height", 100, 0, true},
		{"negative", -1, 100, true},
		{"normal", 1280, 720, false},
		{"too large", maxCaptureDimension + 1, 100, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.w, tc.h)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestPoolCaptureEmpty(t *testing.T) {
	p := NewPool("localhost", "4444", 4, nil)
	results := p.Capture(nil, nil)
	if results != nil {
		t.Fatalf("expected nil results for empty descriptor set, got %v", results)
	}
}
