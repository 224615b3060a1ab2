package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
)

// StillDevice is a camera that always shows the same picture. It is used
// for headless runs where a photo of the hand replaces a live feed.
type StillDevice struct {
	path string
	img  image.Image
}

// NewStillDevice serves the JPEG or PNG at path.
func NewStillDevice(path string) *StillDevice {
	return &StillDevice{path: path}
}

// NewImageDevice serves img.
func NewImageDevice(img image.Image) *StillDevice {
	return &StillDevice{img: img}
}

func (d *StillDevice) GetUserMedia(ctx context.Context, _ Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := d.img
	if img == nil {
		f, err := os.Open(d.path)
		if err != nil {
			return nil, fmt.Errorf("open still image: %w", err)
		}
		defer f.Close()
		img, _, err = image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode still image: %w", err)
		}
	}
	return &stillStream{img: img, track: &StillTrack{}}, nil
}

type stillStream struct {
	img   image.Image
	track *StillTrack
}

func (s *stillStream) Tracks() []Track { return []Track{s.track} }

func (s *stillStream) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *stillStream) ReadFrame() (image.Image, error) {
	if s.track.Stopped() {
		return nil, ErrNotStarted
	}
	return s.img, nil
}

// StillTrack is the single video track of a still stream.
type StillTrack struct {
	mu      sync.Mutex
	stopped bool
}

func (t *StillTrack) Kind() string { return "video" }

func (t *StillTrack) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *StillTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
