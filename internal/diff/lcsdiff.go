package diff

import (
	"hash/fnv"
	"image"

	"github.com/disintegration/imaging"
)

// rowSampleCycle and rowSampleTake control how many bytes per row are folded into that row's
// hash: of every 256 byte positions, only the first 100 are sampled. This
// is deliberately tolerant — two rows differing only in the unsampled 156
// bytes still hash equal — so near-identical rows (e.g. sub-pixel
// anti-aliasing noise) still line up under LCS alignment.
const (
	rowSampleCycle = 256
	rowSampleTake  = 100
)

// LcsDiff aligns the rows of a and b via a classic LCS over tolerant row
// hashes (FNV-1a), and returns a copy of a with every row that didn't land
// in the longest common subsequence painted markerColor — a structural
// diff at row granularity, distinct from ColorDiff's per-pixel comparison.
func LcsDiff(a, b image.Image) image.Image {
	hashesA := rowHashes(a)
	hashesB := rowHashes(b)

	matchedA := lcsMatchedIndices(hashesA, hashesB)

	out := imaging.Clone(a)
	bounds := out.Bounds()
	width := bounds.Dx()

	for i := 0; i < len(hashesA); i++ {
		if matchedA[i] {
			continue
		}
		y := bounds.Min.Y + i
		for x := 0; x < width; x++ {
			out.Set(bounds.Min.X+x, y, markerColor)
		}
	}

	return out
}

func rowHashes(img image.Image) []uint64 {
	bounds := img.Bounds()
	height := bounds.Dy()
	width := bounds.Dx()

	hashes := make([]uint64, height)
	for row := 0; row < height; row++ {
		y := bounds.Min.Y + row
		h := fnv.New64a()

		byteIdx := 0
		for x := bounds.Min.X; x < bounds.Min.X+width; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			for _, channel := range [4]uint32{r, g, b, a} {
				if byteIdx%rowSampleCycle < rowSampleTake {
					h.Write([]byte{byte(channel >> 8)})
				}
				byteIdx++
			}
		}

		hashes[row] = h.Sum64()
	}

	return hashes
}

// lcsMatchedIndices returns, for each index in a, whether it participates
// in the longest common subsequence between a and b.
func lcsMatchedIndices(a, b []uint64) []bool {
	n, m := len(a), len(b)
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}

	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}

	matched := make([]bool, n)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			matched[i] = true
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			i++
		default:
			j++
		}
	}

	return matched
}
