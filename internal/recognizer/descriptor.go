package recognizer

import (
	"image"
	"math"
	"math/bits"
)

const (
	// gridCells splits the face patch into gridCells x gridCells regions,
	// each contributing its own texture histogram.
	gridCells = 4
	// histBins is the number of uniform local-binary-pattern codes: 58
	// uniform patterns plus one catch-all bin.
	histBins = 59
	// DescriptorDim is the length of a face descriptor.
	DescriptorDim = gridCells * gridCells * histBins
	// distanceScale maps normalized histogram distances onto the threshold
	// scale used by the matcher settings.
	distanceScale = 100.0
)

// uniformLUT maps each 8-bit LBP code to its histogram bin. Codes with more
// than two 0/1 transitions share the last bin.
var uniformLUT = buildUniformLUT()

func buildUniformLUT() [256]uint8 {
	var lut [256]uint8
	next := uint8(0)
	for code := 0; code < 256; code++ {
		transitions := bits.OnesCount8(uint8(code) ^ uint8(code>>1|code<<7))
		if transitions <= 2 {
			lut[code] = next
			next++
		} else {
			lut[code] = histBins - 1
		}
	}
	return lut
}

// ComputeDescriptor turns the face region of an image into a fixed-length
// texture descriptor. Two descriptors of the same face under similar
// conditions have a small Distance; unrelated faces land far apart.
func ComputeDescriptor(img image.Image, region image.Rectangle) []float32 {
	patch := normalizePatch(img, region)
	desc := make([]float32, DescriptorDim)
	cell := patchSize / gridCells

	// Per-cell counts, normalized so each cell histogram sums to 1.
	for cy := 0; cy < gridCells; cy++ {
		for cx := 0; cx < gridCells; cx++ {
			base := (cy*gridCells + cx) * histBins
			count := 0
			for y := cy * cell; y < (cy+1)*cell; y++ {
				for x := cx * cell; x < (cx+1)*cell; x++ {
					code, ok := lbpCode(patch, x, y)
					if !ok {
						continue
					}
					desc[base+int(uniformLUT[code])]++
					count++
				}
			}
			if count > 0 {
				inv := float32(1) / float32(count)
				for i := base; i < base+histBins; i++ {
					desc[i] *= inv
				}
			}
		}
	}

	return desc
}

// lbpCode computes the 8-neighbor local binary pattern at (x, y). Border
// pixels have no full neighborhood and are skipped.
func lbpCode(g *image.Gray, x, y int) (uint8, bool) {
	if x == 0 || y == 0 || x == patchSize-1 || y == patchSize-1 {
		return 0, false
	}

	center := g.GrayAt(x, y).Y
	var code uint8
	neighbors := [8][2]int{
		{x - 1, y - 1}, {x, y - 1}, {x + 1, y - 1},
		{x + 1, y}, {x + 1, y + 1}, {x, y + 1},
		{x - 1, y + 1}, {x - 1, y},
	}
	for i, n := range neighbors {
		if g.GrayAt(n[0], n[1]).Y >= center {
			code |= 1 << uint(i)
		}
	}
	return code, true
}

// Distance returns the dissimilarity of two descriptors on the 0..100+ scale
// the matcher thresholds are expressed in. Identical descriptors score 0.
// Descriptors of different lengths, such as encodings persisted before a
// grid or bin change, are maximally distant rather than a panic.
func Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum) * distanceScale
}
