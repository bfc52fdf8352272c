package recognizer

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// clusterOverlap is the IoU threshold used to merge overlapping raw
// detections of the same face.
const clusterOverlap = 0.2

// Face is a detected face region with the detector's quality score.
type Face struct {
	Region  image.Rectangle
	Quality float32
}

// Detector finds face regions in camera frames using a pixel-intensity
// comparison cascade.
type Detector struct {
	classifier *pigo.Pigo
	cfg        config.RecognitionConfig
}

// NewDetector loads the binary cascade file and prepares the classifier.
func NewDetector(cfg config.RecognitionConfig) (*Detector, error) {
	data, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("could not read cascade file: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("could not unpack cascade file: %w", err)
	}

	return &Detector{
		classifier: classifier,
		cfg:        cfg,
	}, nil
}

// Detect returns all face regions in the image that pass the quality gate,
// ordered as reported by the classifier.
func (d *Detector) Detect(img image.Image) []Face {
	bounds := img.Bounds()
	params := pigo.CascadeParams{
		MinSize:     d.cfg.MinFaceSize,
		MaxSize:     d.cfg.MaxFaceSize,
		ShiftFactor: d.cfg.ShiftFactor,
		ScaleFactor: d.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   bounds.Dy(),
			Cols:   bounds.Dx(),
			Dim:    bounds.Dx(),
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, clusterOverlap)

	var faces []Face
	for _, det := range dets {
		if float64(det.Q) < d.cfg.MinQuality {
			continue
		}
		half := det.Scale / 2
		region := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half)
		region = region.Intersect(bounds)
		if region.Empty() {
			continue
		}
		faces = append(faces, Face{
			Region:  region,
			Quality: det.Q,
		})
	}

	return faces
}
