// Package diff partitions paired captures into created/deleted/paired
// buckets and computes per-pair color and structural difference images.
package diff

import "github.com/chris-o-r/SnapShotTesting/internal/store/models"

// Categorized is the outcome of partitioning a new/old capture set by name.
type Categorized struct {
	Created []models.RawImage
	Deleted []models.RawImage
	Paired  []Pair
}

// Pair is one story present on both sides, keyed by its stable name.
type Pair struct {
	Name string
	New  models.RawImage
	Old  models.RawImage
}

// Categorize partitions two raw-image collections into {created, deleted,
// paired} by name — exclusively name-keyed, never a positional zip, so
// captures whose ordering differs between the two galleries still pair
// correctly.
func Categorize(newImages, oldImages []models.RawImage) Categorized {
	oldByName := make(map[string]models.RawImage, len(oldImages))
	for _, img := range oldImages {
		if _, exists := oldByName[img.Name]; !exists {
			oldByName[img.Name] = img
		}
	}

	seen := make(map[string]bool, len(newImages))
	result := Categorized{
		Created: []models.RawImage{},
		Deleted: []models.RawImage{},
		Paired:  []Pair{},
	}

	for _, newImg := range newImages {
		if seen[newImg.Name] {
			continue
		}
		seen[newImg.Name] = true
		if oldImg, ok := oldByName[newImg.Name]; ok {
			result.Paired = append(result.Paired, Pair{Name: newImg.Name, New: newImg, Old: oldImg})
		} else {
			result.Created = append(result.Created, newImg)
		}
	}

	for _, oldImg := range oldImages {
		if !seen[oldImg.Name] {
			result.Deleted = append(result.Deleted, oldImg)
		}
	}

	return result
}
