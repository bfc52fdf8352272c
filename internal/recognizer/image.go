package recognizer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// patchSize is the edge length of the normalized face patch fed to the
// descriptor. Faces are cropped, padded, resized and equalized to this size
// so descriptors are comparable regardless of the source resolution.
const patchSize = 128

// DecodeFrame decodes a raw camera frame into an image. JPEG, PNG and GIF
// payloads are accepted; anything else fails with ErrInvalidFrame.
func DecodeFrame(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidFrame)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFrame, err)
	}

	return img, nil
}

// toGray converts any image to 8-bit grayscale.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// equalize applies global histogram equalization to spread the intensity
// range, which makes the descriptor less sensitive to lighting.
func equalize(g *image.Gray) *image.Gray {
	bounds := g.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return g
	}

	var hist [256]int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[g.GrayAt(x, y).Y]++
		}
	}

	// Cumulative distribution mapped back onto 0..255.
	var lut [256]uint8
	cum := 0
	for i := 0; i < 256; i++ {
		cum += hist[i]
		lut[i] = uint8(cum * 255 / total)
	}

	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetGray(x, y, color.Gray{Y: lut[g.GrayAt(x, y).Y]})
		}
	}

	return out
}

// padRegion grows a face rectangle by fraction pad on every side, clamped to
// the image bounds.
func padRegion(rect, bounds image.Rectangle, pad float64) image.Rectangle {
	dx := int(float64(rect.Dx()) * pad)
	dy := int(float64(rect.Dy()) * pad)
	grown := image.Rect(rect.Min.X-dx, rect.Min.Y-dy, rect.Max.X+dx, rect.Max.Y+dy)
	return grown.Intersect(bounds)
}

// normalizePatch cuts the face region out of the source image and produces
// the equalized grayscale patch the descriptor operates on.
func normalizePatch(img image.Image, region image.Rectangle) *image.Gray {
	patch := image.NewGray(image.Rect(0, 0, patchSize, patchSize))
	draw.CatmullRom.Scale(patch, patch.Bounds(), img, region, draw.Src, nil)
	return equalize(patch)
}
