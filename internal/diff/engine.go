package diff

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

// RatioThreshold is the minimum prefilter diff_ratio a pair must reach for
// the (more expensive) color and LCS diffs to be computed at all. Pairs
// below this are treated as visually identical.
const RatioThreshold = 1e-4

// Outcome is the result of diffing one paired story.
type Outcome struct {
	Name            string
	DimensionsMatch bool
	Ratio           float64
	ColorDiff       models.RawImage
	LcsDiff         models.RawImage
	// Computed is false when the pair was skipped by the prefilter or a
	// dimension mismatch — no ColorDiff/LcsDiff bytes were produced.
	Computed bool
	Err      error
}

// Engine computes color-highlight and LCS diffs for every present-on-both
// pair, gated by the cheap prefilter ratio, in parallel across the host's
// cores.
type Engine struct {
	parallelism int
}

// NewEngine builds a Diff Engine bounded to runtime.GOMAXPROCS(0) concurrent
// diff computations.
func NewEngine() *Engine {
	return &Engine{parallelism: runtime.GOMAXPROCS(0)}
}

// Run diffs every pair concurrently, gated by the ratio prefilter and a
// dimension match check, and returns one Outcome per pair.
func (e *Engine) Run(ctx context.Context, pairs []Pair) []Outcome {
	if len(pairs) == 0 {
		return nil
	}

	outcomes := make([]Outcome, len(pairs))
	sem := make(chan struct{}, max(1, e.parallelism))
	g, _ := errgroup.WithContext(ctx)

	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = e.diffPair(pair)
			if err := outcomes[i].Err; err != nil {
				slog.Error("diff engine: failed to diff pair, skipping", slog.String("name", pair.Name), slog.String("error", err.Error()))
			}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

func (e *Engine) diffPair(pair Pair) Outcome {
	outcome := Outcome{Name: pair.Name}

	if pair.New.Width != pair.Old.Width || pair.New.Height != pair.Old.Height {
		outcome.DimensionsMatch = false
		return outcome
	}
	outcome.DimensionsMatch = true

	newImg, err := decodePNG(pair.New.Bytes)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	oldImg, err := decodePNG(pair.Old.Bytes)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	ratio := diffRatio(newImg, oldImg)
	outcome.Ratio = ratio
	if ratio < RatioThreshold {
		slog.Debug("diff engine: pair below prefilter threshold, skipping", slog.String("name", pair.Name), slog.Float64("ratio", ratio))
		return outcome
	}

	colorImg := ColorDiff(newImg, oldImg)
	lcsImg := LcsDiff(newImg, oldImg)

	colorBytes, err := encodePNG(colorImg)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	lcsBytes, err := encodePNG(lcsImg)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Computed = true
	outcome.ColorDiff = models.RawImage{
		Bytes:  colorBytes,
		Width:  pair.New.Width,
		Height: pair.New.Height,
		Kind:   models.KindColorDiff,
		Name:   pair.Name,
	}
	outcome.LcsDiff = models.RawImage{
		Bytes:  lcsBytes,
		Width:  pair.New.Width,
		Height: pair.New.Height,
		Kind:   models.KindLcsDiff,
		Name:   pair.Name,
	}
	return outcome
}

func decodePNG(raw []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(raw))
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// diffRatio is the mean absolute per-channel difference over sampled
// pixels, normalized to [0,1]. Every pixel is sampled for images under
// 200k pixels; above that a deterministic stride keeps the prefilter
// itself cheap.
func diffRatio(a, b image.Image) float64 {
	bounds := a.Bounds()
	totalPixels := bounds.Dx() * bounds.Dy()

	stride := 1
	const sampleCeiling = 200_000
	if totalPixels > sampleCeiling {
		stride = totalPixels / sampleCeiling
		if stride < 1 {
			stride = 1
		}
	}

	var sumDiff uint64
	var sampled uint64

	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if idx%stride == 0 {
				ar, ag, ab, _ := a.At(x, y).RGBA()
				br, bg, bb, _ := b.At(x, y).RGBA()
				sumDiff += absDiff16(ar, br) + absDiff16(ag, bg) + absDiff16(ab, bb)
				sampled += 3
			}
			idx++
		}
	}

	if sampled == 0 {
		return 0
	}
	// RGBA() returns 16-bit-scaled channel values; normalize against the
	// full 16-bit range.
	return float64(sumDiff) / float64(sampled) / float64(0xffff)
}

func absDiff16(a, b uint32) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}
