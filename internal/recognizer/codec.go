// Package recognizer turns raw camera frames into face descriptors. It
// covers frame decoding, face detection and the texture descriptor used by
// the matcher and the enrollment tooling.
package recognizer

import (
	"image"
)

// regionPad grows detected face boxes before descriptor extraction so a
// slightly tight detection still covers the whole face.
const regionPad = 0.1

// FaceFinder locates face regions in a decoded frame.
type FaceFinder interface {
	Detect(img image.Image) []Face
}

// Detection is one face found in a frame together with its descriptor.
type Detection struct {
	Region     image.Rectangle
	Quality    float32
	Descriptor []float32
}

// Codec extracts face descriptors from raw frames.
type Codec struct {
	finder FaceFinder
}

// NewCodec creates a codec on top of a face finder.
func NewCodec(finder FaceFinder) *Codec {
	return &Codec{finder: finder}
}

// Extract decodes a frame and returns a detection for every face in it.
// It fails with ErrInvalidFrame for undecodable payloads; a frame with no
// usable face is an empty result, not an error.
func (c *Codec) Extract(frame []byte) ([]Detection, error) {
	img, err := DecodeFrame(frame)
	if err != nil {
		return nil, err
	}

	return c.ExtractImage(img)
}

// ExtractImage returns a detection for every face in an already decoded
// frame.
func (c *Codec) ExtractImage(img image.Image) ([]Detection, error) {
	faces := c.finder.Detect(img)

	detections := make([]Detection, 0, len(faces))
	for _, face := range faces {
		region := padRegion(face.Region, img.Bounds(), regionPad)
		detections = append(detections, Detection{
			Region:     region,
			Quality:    face.Quality,
			Descriptor: ComputeDescriptor(img, region),
		})
	}

	return detections, nil
}

// ExtractLargest returns the detection with the biggest face region, or
// ErrNoFace when the frame has none. The enrollment flow uses it so a
// bystander in the background cannot hijack a reference photo.
func (c *Codec) ExtractLargest(frame []byte) (*Detection, error) {
	detections, err := c.Extract(frame)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return nil, ErrNoFace
	}

	best := &detections[0]
	for i := 1; i < len(detections); i++ {
		if area(detections[i].Region) > area(best.Region) {
			best = &detections[i]
		}
	}

	return best, nil
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
