package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

// ManifestEntry is one row of a gallery's index.json "entries" map.
type ManifestEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Manifest is the shape of <gallery-url>/index.json.
type Manifest struct {
	V       int64                    `json:"v"`
	Entries map[string]ManifestEntry `json:"entries"`
}

// Indexer adapts Index into a method value so the Orchestrator can depend
// on an interface rather than a free function.
type Indexer struct {
	httpClient *http.Client
}

// NewIndexer builds an Indexer using httpClient (http.DefaultClient if nil).
func NewIndexer(httpClient *http.Client) *Indexer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Indexer{httpClient: httpClient}
}

// Index fetches galleryURL's manifest and returns its story descriptors,
// tagged with side.
func (idx *Indexer) Index(ctx context.Context, galleryURL string, side models.SnapshotKind) ([]models.CaptureDescriptor, error) {
	return Index(ctx, idx.httpClient, galleryURL, side)
}

// Index fetches the gallery manifest at <url>/index.json, retains only
// story-typed entries, and produces one CaptureDescriptor per story. The
// descriptor URL targets the gallery's iframe renderer directly
// (?viewMode=story), not the gallery root, matching how the gallery itself
// renders an isolated story for capture.
func Index(ctx context.Context, httpClient *http.Client, galleryURL string, side models.SnapshotKind) ([]models.CaptureDescriptor, error) {
	manifest, err := fetchManifest(ctx, httpClient, galleryURL)
	if err != nil {
		return nil, err
	}

	descriptors := make([]models.CaptureDescriptor, 0, len(manifest.Entries))
	for _, entry := range manifest.Entries {
		if entry.Type != "story" {
			continue
		}
		descriptors = append(descriptors, models.CaptureDescriptor{
			URL:  fmt.Sprintf("%s/iframe.html?args=&id=%s&viewMode=story", galleryURL, entry.ID),
			Name: entry.ID,
			Side: side,
		})
	}

	return descriptors, nil
}

func fetchManifest(ctx context.Context, httpClient *http.Client, galleryURL string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, galleryURL+"/index.json", nil)
	if err != nil {
		return nil, fmt.Errorf("build index.json request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch gallery manifest at %s: %w", galleryURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch gallery manifest at %s: unexpected status %d", galleryURL, resp.StatusCode)
	}

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("decode gallery manifest at %s: %w", galleryURL, err)
	}

	return &manifest, nil
}
