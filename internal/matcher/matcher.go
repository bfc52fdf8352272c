// Package matcher scores a probe descriptor against a gallery snapshot and
// decides whether the face is a known employee.
package matcher

import (
	"errors"
	"math"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// ErrGalleryEmpty is returned when there are no enrolled encodings to match
// against. Callers should surface this instead of reporting every face as
// unknown.
var ErrGalleryEmpty = errors.New("encoding gallery is empty")

// tieEpsilon is the distance margin below which two different employees are
// considered indistinguishable.
const tieEpsilon = 1e-6

// Verdict classifies a match attempt.
type Verdict string

const (
	// VerdictRecognized means the best candidate is below the accept
	// threshold and no other employee ties with it.
	VerdictRecognized Verdict = "RECOGNIZED"
	// VerdictUncertain means the face resembles an enrolled employee but
	// not closely enough to act on, or two employees tie for best.
	VerdictUncertain Verdict = "UNCERTAIN"
	// VerdictUnknown means no enrolled employee comes close.
	VerdictUnknown Verdict = "UNKNOWN"
)

// Thresholds are the distance cutoffs the verdict is derived from, taken
// from the attendance settings at match time.
type Thresholds struct {
	// Accept is the distance below which a match is trusted.
	Accept float64
	// Reject is the distance at or above which a face is a stranger.
	Reject float64
}

// Result describes the outcome of matching one probe descriptor.
type Result struct {
	Verdict     Verdict
	EmployeeKey string
	EncodingID  int64
	Distance    float64
	Confidence  float64
}

// Match scores the probe against the snapshot and returns a verdict. The
// snapshot narrows candidates; distances are always re-computed exactly, so
// the verdict does not depend on the snapshot's internal index.
func Match(probe []float32, snap *gallery.Snapshot, th Thresholds) (*Result, error) {
	if snap.Len() == 0 {
		return nil, ErrGalleryEmpty
	}

	best := gallery.Entry{}
	bestDist := math.Inf(1)
	// Closest entry belonging to a different employee than best.
	runnerUpDist := math.Inf(1)

	for _, entry := range snap.Candidates(probe) {
		dist := recognizer.Distance(probe, entry.Descriptor)
		switch {
		case dist < bestDist:
			if entry.EmployeeKey != best.EmployeeKey {
				runnerUpDist = bestDist
			}
			best = entry
			bestDist = dist
		case entry.EmployeeKey != best.EmployeeKey && dist < runnerUpDist:
			runnerUpDist = dist
		}
	}

	result := &Result{
		EmployeeKey: best.EmployeeKey,
		EncodingID:  best.EncodingID,
		Distance:    bestDist,
		Confidence:  confidence(bestDist, th.Reject),
	}

	switch {
	case bestDist >= th.Reject:
		result.Verdict = VerdictUnknown
		result.EmployeeKey = ""
		result.EncodingID = 0
	case bestDist >= th.Accept:
		// The uncertain band is inclusive at the accept threshold.
		result.Verdict = VerdictUncertain
	case runnerUpDist-bestDist < tieEpsilon:
		// Two employees are equally close. Acting on either would be a
		// guess, so the match is reported as uncertain.
		result.Verdict = VerdictUncertain
	default:
		result.Verdict = VerdictRecognized
	}

	return result, nil
}

// confidence maps a distance onto a 0..1 score. A perfect match (distance 0)
// scores 1; anything at or past the reject threshold scores 0.
func confidence(distance, reject float64) float64 {
	if reject <= 0 {
		return 0
	}
	c := (reject - distance) / reject
	if c < 0 {
		return 0
	}
	return c
}
