package capture

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

// Pool drives a bounded-parallel fan-out of screenshot captures over a
// configured Selenium/WebDriver endpoint. One WebDriver session is opened
// per worker goroutine and closed once that worker's chunk is done — never
// a shared global browser handle.
type Pool struct {
	driver          *WebDriverClient
	maxSessions     int
	sentinelXPath   string
	screenshotXPath string
}

// NewPool builds a Capture Pool against host:port, bounding concurrency to
// maxSessions simultaneous WebDriver sessions.
func NewPool(host, port string, maxSessions int, httpClient *http.Client) *Pool {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &Pool{
		driver:          NewWebDriverClient(host, port, httpClient),
		maxSessions:     maxSessions,
		sentinelXPath:   DefaultSentinelXPath,
		screenshotXPath: DefaultScreenshotXPath,
	}
}

// Capture fans descriptors out across chunks of size
// ceil(len(descriptors)/MaxSessions), so at most MaxSessions chunks, one
// goroutine and one WebDriver session per chunk, and returns one Result per
// descriptor (order not guaranteed to match input order — callers key off
// Result.Descriptor).
func (p *Pool) Capture(ctx context.Context, descriptors []models.CaptureDescriptor) []Result {
	if len(descriptors) == 0 {
		return nil
	}

	chunkSize := (len(descriptors) + p.maxSessions - 1) / p.maxSessions

	chunks := chunkDescriptors(descriptors, chunkSize)

	resultsPerChunk := make([][]Result, len(chunks))
	g, gctx := errgroup.WithContext(ctx)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			resultsPerChunk[i] = p.captureChunk(gctx, chunk)
			return nil
		})
	}

	// Errors are carried per-item in Result, not as a pool-wide failure:
	// a single unreachable gallery shouldn't abort sibling chunks. Wait
	// only propagates infrastructure-level goroutine panics/cancellation.
	_ = g.Wait()

	var results []Result
	for _, chunkResults := range resultsPerChunk {
		results = append(results, chunkResults...)
	}
	return results
}

func (p *Pool) captureChunk(ctx context.Context, chunk []models.CaptureDescriptor) []Result {
	results := make([]Result, 0, len(chunk))

	session, err := p.driver.NewSession(ctx)
	if err != nil {
		slog.Error("capture pool: failed to open webdriver session", slog.String("error", err.Error()))
		for _, d := range chunk {
			results = append(results, Result{Descriptor: d, Err: err})
		}
		return results
	}
	defer func() {
		if err := session.Close(ctx); err != nil {
			slog.Warn("capture pool: failed to close webdriver session", slog.String("error", err.Error()))
		}
	}()

	for _, d := range chunk {
		raw, err := p.captureOne(ctx, session, d)
		if err != nil {
			slog.Error("capture pool: failed to capture story",
				slog.String("name", d.Name),
				slog.String("error", err.Error()),
			)
			results = append(results, Result{Descriptor: d, Err: err})
			continue
		}
		results = append(results, Result{Descriptor: d, Image: raw})
	}

	return results
}

func (p *Pool) captureOne(ctx context.Context, session *Session, d models.CaptureDescriptor) (models.RawImage, error) {
	if err := session.Navigate(ctx, d.URL); err != nil {
		return models.RawImage{}, err
	}
	if err := session.WaitForElement(ctx, p.sentinelXPath); err != nil {
		return models.RawImage{}, err
	}
	width, height, err := session.Rect(ctx, p.screenshotXPath)
	if err != nil {
		return models.RawImage{}, err
	}
	if err := Validate(width, height); err != nil {
		return models.RawImage{}, err
	}
	raw, err := session.Screenshot(ctx, p.screenshotXPath)
	if err != nil {
		return models.RawImage{}, err
	}
	return newRawImage(d, raw, width, height), nil
}

func chunkDescriptors(descriptors []models.CaptureDescriptor, size int) [][]models.CaptureDescriptor {
	var chunks [][]models.CaptureDescriptor
	for start := 0; start < len(descriptors); start += size {
		end := start + size
		if end > len(descriptors) {
			end = len(descriptors)
		}
		chunks = append(chunks, descriptors[start:end])
	}
	return chunks
}
