//go:build gocv

// Package gocvcam opens a local camera through OpenCV. Build with -tags gocv
// on machines that have OpenCV installed.
package gocvcam

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/harrylevesque/handauth/internal/capture"
)

// Device opens the camera at Index. OpenCV has no notion of facing mode, so
// Constraints.FacingMode is ignored.
type Device struct {
	Index int
}

func New(index int) *Device { return &Device{Index: index} }

func (d *Device) GetUserMedia(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	type opened struct {
		vc  *gocv.VideoCapture
		err error
	}
	done := make(chan opened, 1)
	go func() {
		vc, err := gocv.OpenVideoCapture(d.Index)
		done <- opened{vc, err}
	}()

	var vc *gocv.VideoCapture
	select {
	case <-ctx.Done():
		// close whatever the open eventually yields
		go func() {
			if o := <-done; o.vc != nil {
				o.vc.Close()
			}
		}()
		return nil, ctx.Err()
	case o := <-done:
		if o.err != nil {
			return nil, fmt.Errorf("open camera %d: %w", d.Index, o.err)
		}
		vc = o.vc
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d not available", d.Index)
	}

	if c.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	}
	if c.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}

	s := &stream{vc: vc, frame: gocv.NewMat()}
	s.track = &track{s: s}
	return s, nil
}

type stream struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	frame  gocv.Mat
	track  *track
	closed bool
}

func (s *stream) Tracks() []capture.Track { return []capture.Track{s.track} }

// Size is the resolution the driver actually granted.
func (s *stream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, 0
	}
	return int(s.vc.Get(gocv.VideoCaptureFrameWidth)), int(s.vc.Get(gocv.VideoCaptureFrameHeight))
}

func (s *stream) ReadFrame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, capture.ErrNotStarted
	}
	if ok := s.vc.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, capture.ErrNoFrame
	}
	return s.frame.ToImage()
}

func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.frame.Close()
	s.vc.Close()
}

type track struct{ s *stream }

func (t *track) Kind() string { return "video" }
func (t *track) Stop()        { t.s.close() }
