package recognizer

import "errors"

// ErrInvalidFrame is returned when a frame cannot be decoded as an image.
var ErrInvalidFrame = errors.New("invalid frame")

// ErrNoFace is returned by operations that need exactly one face, such as
// enrollment, when no face region passes the detector's quality gate.
// Multi-face extraction reports an empty result instead.
var ErrNoFace = errors.New("no face detected")
