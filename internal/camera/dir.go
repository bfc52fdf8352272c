package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// DirSource serves image files from a directory in name order. Used by the
// scan and enroll commands and in tests.
type DirSource struct {
	files []string
	pos   int
}

// NewDirSource lists the supported image files in dir.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".gif":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	return &DirSource{files: files}, nil
}

// Len returns how many frames the source holds.
func (s *DirSource) Len() int {
	return len(s.files)
}

// Next returns the next image file, or ErrSourceDrained past the end.
func (s *DirSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.files) {
		return nil, ErrSourceDrained
	}

	path := s.files[s.pos]
	s.pos++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return recognizer.DecodeFrame(data)
}

// Close is a no-op for directory sources.
func (s *DirSource) Close() error {
	return nil
}
