package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

func TestWritePersistsUnderExpectedSubdirAndReturnsPublicPath(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root)

	img := models.RawImage{Bytes: []byte("fake-png-bytes"), Kind: models.KindColorDiff, Name: "button"}
	path, err := w.Write("123-batch", img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := filepath.Join("assets", "123-batch", "diff", "color", "button.png")
	if path != want {
		t.Fatalf("expected public path %q, got %q", want, path)
	}

	onDisk := filepath.Join(root, "123-batch", "diff", "color", "button.png")
	data, err := os.ReadFile(onDisk)
	if err != nil {
		t.Fatalf("expected file on disk at %s: %v", onDisk, err)
	}
	if string(data) != "fake-png-bytes" {
		t.Fatalf("unexpected file contents: %q", data)
	}
}

func TestWriteCreatesDirectoriesIdempotently(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root)

	img := models.RawImage{Bytes: []byte("a"), Kind: models.KindNew, Name: "card"}
	if _, err := w.Write("batch", img); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if _, err := w.Write("batch", img); err != nil {
		t.Fatalf("second write into existing directory failed: %v", err)
	}
}
