package camera

import (
	"context"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// MJPEGSource reads frames from an HTTP multipart MJPEG camera stream, the
// format IP cameras and mjpg-streamer expose.
type MJPEGSource struct {
	url    string
	client *http.Client
	body   io.ReadCloser
	parts  *multipart.Reader
}

// NewMJPEGSource prepares a source for the given stream URL. The connection
// is opened lazily on the first Next call.
func NewMJPEGSource(url string) *MJPEGSource {
	return &MJPEGSource{
		url:    url,
		client: &http.Client{},
	}
}

func (s *MJPEGSource) connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("could not build stream request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not open camera stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return fmt.Errorf("camera stream returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		_ = resp.Body.Close()
		return fmt.Errorf("unexpected stream content type %q", resp.Header.Get("Content-Type"))
	}

	s.body = resp.Body
	s.parts = multipart.NewReader(resp.Body, params["boundary"])
	return nil
}

// Next returns the next frame of the stream.
func (s *MJPEGSource) Next(ctx context.Context) (image.Image, error) {
	if s.parts == nil {
		if err := s.connect(ctx); err != nil {
			return nil, err
		}
	}

	part, err := s.parts.NextPart()
	if err != nil {
		// Drop the broken connection so the next call reconnects.
		_ = s.Close()
		return nil, fmt.Errorf("could not read stream part: %w", err)
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("could not read frame payload: %w", err)
	}

	return recognizer.DecodeFrame(data)
}

// Close terminates the stream connection.
func (s *MJPEGSource) Close() error {
	s.parts = nil
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}
