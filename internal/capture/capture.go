// Package capture owns the camera stream and the most recently captured
// frame. Platform capabilities (media devices, the live video surface and
// the off-screen raster) are injected so the same lifecycle runs against
// OpenCV, a still image, or the browser.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/harrylevesque/handauth/internal/result"
)

const (
	DefaultWidth      = 640
	DefaultHeight     = 480
	DefaultFacingMode = "user"
	DefaultQuality    = 0.95
	JPEGMimeType      = "image/jpeg"
)

var (
	ErrNotStarted = errors.New("camera not started")
	ErrNoFrame    = errors.New("no frame available")
	// ErrStartAborted means StopCamera ran before the device answered.
	ErrStartAborted = errors.New("camera stopped before access was granted")
)

// Constraints is the video request handed to MediaDevices. Width and Height
// are ideals; devices may grant something else.
type Constraints struct {
	Width      int
	Height     int
	FacingMode string
}

// DefaultConstraints asks for a front-facing 640x480 stream.
func DefaultConstraints() Constraints {
	return Constraints{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		FacingMode: DefaultFacingMode,
	}
}

// MediaDevices grants camera streams. GetUserMedia blocks until access is
// granted or denied.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open camera stream made of one or more tracks.
type Stream interface {
	Tracks() []Track
}

// Track is one constituent of a Stream. Stop releases the hardware.
type Track interface {
	Kind() string
	Stop()
}

// VideoSurface is the live video the stream is bound to.
type VideoSurface interface {
	// SetSrcObject binds s; nil unbinds.
	SetSrcObject(s Stream)
	// VideoSize is the native resolution of the bound stream, 0x0 if unknown.
	VideoSize() (width, height int)
}

// Canvas is the off-screen raster a frame is drawn onto before encoding.
type Canvas interface {
	SetSize(width, height int)
	DrawVideo(v VideoSurface) error
	ToDataURL(mimeType string, quality float64) (string, error)
}

// Capture wraps the start/capture/stop lifecycle of one capture session.
type Capture struct {
	devices     MediaDevices
	video       VideoSurface
	canvas      Canvas
	constraints Constraints
	quality     float64
	clearOnStop bool
	logger      *slog.Logger

	mu        sync.Mutex
	stream    Stream
	sessionID string
	lastFrame string
	// starting is closed when the in-flight GetUserMedia returns.
	starting chan struct{}
	// gen counts StopCamera calls so a start can tell it was overtaken.
	gen uint64
	// startErr is why the last start failed, reported to its waiters.
	startErr error
}

// Option configures a Capture.
type Option func(*Capture)

// WithConstraints overrides the requested video constraints.
func WithConstraints(c Constraints) Option {
	return func(cp *Capture) { cp.constraints = c }
}

// WithQuality sets the JPEG quality in (0, 1].
func WithQuality(q float64) Option {
	return func(cp *Capture) {
		if q > 0 && q <= 1 {
			cp.quality = q
		}
	}
}

// WithClearFrameOnStop drops the last frame whenever the camera stops.
func WithClearFrameOnStop(clear bool) Option {
	return func(cp *Capture) { cp.clearOnStop = clear }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cp *Capture) {
		if l != nil {
			cp.logger = l
		}
	}
}

// New builds a Capture. A nil video or canvas falls back to the in-process
// Video and RasterCanvas.
func New(devices MediaDevices, video VideoSurface, canvas Canvas, opts ...Option) *Capture {
	if video == nil {
		video = NewVideo()
	}
	if canvas == nil {
		canvas = NewRasterCanvas()
	}
	c := &Capture{
		devices:     devices,
		video:       video,
		canvas:      canvas,
		constraints: DefaultConstraints(),
		quality:     DefaultQuality,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartCamera requests a stream and binds it to the video surface.
// Failures come back as "Camera error: <reason>". The lock is not held
// while the device decides, so accessors and StopCamera stay responsive
// during a permission prompt. A StopCamera issued meanwhile wins: the
// granted stream is stopped instead of bound.
func (c *Capture) StartCamera(ctx context.Context) result.Result {
	c.mu.Lock()
	if c.stream != nil {
		c.mu.Unlock()
		return result.OK("Camera started successfully")
	}
	if c.devices == nil {
		c.mu.Unlock()
		return result.FromError(permissionError(errors.New("no media devices available")))
	}
	if c.starting != nil {
		pending := c.starting
		c.mu.Unlock()
		return c.awaitStart(ctx, pending)
	}
	done := make(chan struct{})
	c.starting = done
	gen := c.gen
	c.mu.Unlock()

	stream, err := c.devices.GetUserMedia(ctx, c.constraints)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.starting = nil
	close(done)

	if err == nil && stream == nil {
		err = errors.New("no stream granted")
	}
	if err == nil && c.gen != gen {
		stopTracks(stream)
		c.logger.Info("camera stopped while starting")
		err = ErrStartAborted
	}
	c.startErr = err
	if err != nil {
		if !errors.Is(err, ErrStartAborted) {
			c.logger.Warn("camera request failed", "error", err)
		}
		return result.FromError(permissionError(err))
	}

	c.stream = stream
	c.sessionID = "cs--" + uuid.NewString()
	c.video.SetSrcObject(stream)
	c.logger.Info("camera started", "capture_session", c.sessionID, "tracks", len(stream.Tracks()))
	return result.OK("Camera started successfully")
}

// awaitStart waits for a start already in flight and reports its outcome.
func (c *Capture) awaitStart(ctx context.Context, pending <-chan struct{}) result.Result {
	select {
	case <-pending:
	case <-ctx.Done():
		return result.FromError(permissionError(ctx.Err()))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return result.OK("Camera started successfully")
	}
	err := c.startErr
	if err == nil {
		err = ErrStartAborted
	}
	return result.FromError(permissionError(err))
}

func stopTracks(s Stream) {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// CaptureFrame draws the current video frame, encodes it as a JPEG data
// URI and stores it as the last frame.
func (c *Capture) CaptureFrame() result.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return result.FromError(result.New(result.KindCaptureState, "Camera not started"))
	}

	image, err := c.snapshot()
	if err != nil {
		c.logger.Warn("frame capture failed", "capture_session", c.sessionID, "error", err)
		return result.FromError(result.New(result.KindCaptureState, "Capture error: "+err.Error()))
	}

	c.lastFrame = image
	c.logger.Debug("frame captured", "capture_session", c.sessionID, "bytes", len(image))
	return result.Result{Success: true, Message: "Frame captured", Image: image}
}

func (c *Capture) snapshot() (string, error) {
	w, h := c.video.VideoSize()
	if w <= 0 || h <= 0 {
		return "", ErrNoFrame
	}
	c.canvas.SetSize(w, h)
	if err := c.canvas.DrawVideo(c.video); err != nil {
		return "", fmt.Errorf("draw frame: %w", err)
	}
	uri, err := c.canvas.ToDataURL(JPEGMimeType, c.quality)
	if err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	return uri, nil
}

// CapturedImage returns the last stored frame, or "".
func (c *Capture) CapturedImage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFrame
}

// StopCamera stops every track and unbinds the video. It also aborts a
// start still waiting on the device. Calling it while stopped does nothing.
func (c *Capture) StopCamera() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	if c.stream == nil {
		return
	}
	stopTracks(c.stream)
	c.stream = nil
	c.video.SetSrcObject(nil)
	if c.clearOnStop {
		c.lastFrame = ""
	}
	c.logger.Info("camera stopped", "capture_session", c.sessionID)
	c.sessionID = ""
}

// IsActive reports whether a stream is held.
func (c *Capture) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// SessionID identifies the current capture session, "" when idle.
func (c *Capture) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Reset forgets the last captured frame.
func (c *Capture) Reset() {
	c.mu.Lock()
	c.lastFrame = ""
	c.mu.Unlock()
}

// WithCamera starts the camera, runs fn and stops the camera on every exit
// path, panics included. If the camera cannot start fn is not called.
func (c *Capture) WithCamera(ctx context.Context, fn func() result.Result) result.Result {
	if r := c.StartCamera(ctx); !r.Success {
		return r
	}
	defer c.StopCamera()
	return fn()
}

func permissionError(err error) error {
	return result.New(result.KindPermission, "Camera error: "+err.Error())
}
