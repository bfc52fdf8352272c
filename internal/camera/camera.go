// Package camera provides frame sources for the recognition loops: a
// network camera speaking multipart MJPEG and a directory of still images
// for tooling and tests.
package camera

import (
	"context"
	"errors"
	"image"
)

// ErrSourceDrained is returned when a finite source has no more frames.
var ErrSourceDrained = errors.New("frame source drained")

// Source delivers frames one at a time. Implementations are not safe for
// concurrent Next calls; the recognition loop is sequential per source.
type Source interface {
	// Next blocks until the next frame is available or ctx is done.
	Next(ctx context.Context) (image.Image, error)
	// Close releases the underlying stream or handles.
	Close() error
}
