// Package assets persists captured and diffed PNG bytes to a per-batch
// hierarchical directory on disk and returns the paths the HTTP surface
// rewrites into public asset URLs.
package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

// publicPrefix is the literal prefix a written path is rewritten to,
// decoupling the configured on-disk assets root from the URL clients see.
const publicPrefix = "assets"

// Writer persists RawImage bytes under a configured assets root, laid out
// as root/<folder>/{new,old,created,deleted,diff/color,diff/lcs}/<name>.png.
type Writer struct {
	root string
}

// NewWriter builds an Asset Writer rooted at the configured assets folder.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Write persists one image under root/folder/<subdir>/<name>.png, creating
// any missing directories, and returns the public path (root rewritten to
// the literal "assets" prefix).
func (w *Writer) Write(folder string, img models.RawImage) (string, error) {
	subdir := subdirFor(img.Kind)
	dir := filepath.Join(w.root, folder, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create asset directory %s: %w", dir, err)
	}

	fileName := img.Name + ".png"
	fullPath := filepath.Join(dir, fileName)
	if err := os.WriteFile(fullPath, img.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("write asset %s: %w", fullPath, err)
	}

	return filepath.Join(publicPrefix, folder, subdir, fileName), nil
}

func subdirFor(kind models.SnapshotKind) string {
	switch kind {
	case models.KindNew:
		return "new"
	case models.KindOld:
		return "old"
	case models.KindCreate:
		return "created"
	case models.KindDeleted:
		return "deleted"
	case models.KindColorDiff:
		return filepath.Join("diff", "color")
	case models.KindLcsDiff:
		return filepath.Join("diff", "lcs")
	default:
		return ""
	}
}
