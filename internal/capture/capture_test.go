package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/handauth/internal/result"
)

type deniedDevices struct{ err error }

func (d deniedDevices) GetUserMedia(context.Context, Constraints) (Stream, error) {
	return nil, d.err
}

type recordingDevices struct {
	inner *StillDevice
	got   []Constraints
	track *StillTrack
}

func (r *recordingDevices) GetUserMedia(ctx context.Context, c Constraints) (Stream, error) {
	r.got = append(r.got, c)
	s, err := r.inner.GetUserMedia(ctx, c)
	if err != nil {
		return nil, err
	}
	r.track = s.(*stillStream).track
	return s, nil
}

// blockingDevices holds GetUserMedia open until release is closed, like a
// browser waiting on the permission prompt.
type blockingDevices struct {
	inner   *StillDevice
	entered chan struct{}
	release chan struct{}
	err     error

	mu    sync.Mutex
	calls int
	track *StillTrack
}

func newBlockingDevices() *blockingDevices {
	return &blockingDevices{
		inner:   NewImageDevice(solidImage(4, 4)),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingDevices) GetUserMedia(ctx context.Context, c Constraints) (Stream, error) {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()
	if first {
		close(b.entered)
	}
	<-b.release
	if b.err != nil {
		return nil, b.err
	}
	s, err := b.inner.GetUserMedia(ctx, c)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.track = s.(*stillStream).track
	b.mu.Unlock()
	return s, nil
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 80, A: 255})
		}
	}
	return img
}

func TestCaptureFrame_BeforeStart(t *testing.T) {
	c := New(NewImageDevice(solidImage(4, 4)), nil, nil)

	r := c.CaptureFrame()

	assert.False(t, r.Success)
	assert.Equal(t, "Camera not started", r.Message)
	assert.Empty(t, c.CapturedImage())
	assert.False(t, c.IsActive())
}

func TestStartCaptureStop(t *testing.T) {
	devices := &recordingDevices{inner: NewImageDevice(solidImage(64, 48))}
	c := New(devices, nil, nil)

	start := c.StartCamera(context.Background())
	require.True(t, start.Success)
	assert.Equal(t, "Camera started successfully", start.Message)
	assert.True(t, c.IsActive())
	assert.True(t, strings.HasPrefix(c.SessionID(), "cs--"))
	require.Len(t, devices.got, 1)
	assert.Equal(t, DefaultConstraints(), devices.got[0])

	r := c.CaptureFrame()
	require.True(t, r.Success)
	assert.Equal(t, "Frame captured", r.Message)
	assert.True(t, strings.HasPrefix(r.Image, "data:image/jpeg;base64,"))
	assert.Equal(t, r.Image, c.CapturedImage())
	assert.Equal(t, r.Image, c.CapturedImage())

	raw, err := DecodeDataURL(r.Image)
	require.NoError(t, err)
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Bounds().Dx())
	assert.Equal(t, 48, decoded.Bounds().Dy())

	c.StopCamera()
	assert.False(t, c.IsActive())
	assert.True(t, devices.track.Stopped())
	assert.Empty(t, c.SessionID())
	// last frame survives stop by default
	assert.Equal(t, r.Image, c.CapturedImage())
}

func TestStopCamera_Idempotent(t *testing.T) {
	c := New(NewImageDevice(solidImage(4, 4)), nil, nil)

	assert.False(t, c.IsActive())
	c.StopCamera()
	assert.False(t, c.IsActive())

	require.True(t, c.StartCamera(context.Background()).Success)
	c.StopCamera()
	c.StopCamera()
	assert.False(t, c.IsActive())
}

func TestStopCamera_UnbindsVideo(t *testing.T) {
	video := NewVideo()
	c := New(NewImageDevice(solidImage(4, 4)), video, nil)

	require.True(t, c.StartCamera(context.Background()).Success)
	assert.NotNil(t, video.SrcObject())

	c.StopCamera()
	assert.Nil(t, video.SrcObject())
}

func TestStartCamera_Denied(t *testing.T) {
	c := New(deniedDevices{err: errors.New("Permission denied")}, nil, nil)

	r := c.StartCamera(context.Background())

	assert.False(t, r.Success)
	assert.Equal(t, "Camera error: Permission denied", r.Message)
	assert.False(t, c.IsActive())
}

func TestStartCamera_NoDevices(t *testing.T) {
	c := New(nil, nil, nil)

	r := c.StartCamera(context.Background())

	assert.False(t, r.Success)
	assert.True(t, strings.HasPrefix(r.Message, "Camera error: "))
}

func TestStartCamera_MissingFile(t *testing.T) {
	c := New(NewStillDevice("/nonexistent/hand.jpg"), nil, nil)

	r := c.StartCamera(context.Background())

	assert.False(t, r.Success)
	assert.Contains(t, r.Message, "Camera error: open still image")
}

func TestStartCamera_TwiceKeepsStream(t *testing.T) {
	devices := &recordingDevices{inner: NewImageDevice(solidImage(4, 4))}
	c := New(devices, nil, nil)

	require.True(t, c.StartCamera(context.Background()).Success)
	require.True(t, c.StartCamera(context.Background()).Success)

	assert.Len(t, devices.got, 1)
}

func TestClearFrameOnStop(t *testing.T) {
	c := New(NewImageDevice(solidImage(8, 8)), nil, nil, WithClearFrameOnStop(true))

	require.True(t, c.StartCamera(context.Background()).Success)
	require.True(t, c.CaptureFrame().Success)
	require.NotEmpty(t, c.CapturedImage())

	c.StopCamera()
	assert.Empty(t, c.CapturedImage())
}

func TestReset(t *testing.T) {
	c := New(NewImageDevice(solidImage(8, 8)), nil, nil)
	require.True(t, c.StartCamera(context.Background()).Success)
	require.True(t, c.CaptureFrame().Success)

	c.Reset()

	assert.Empty(t, c.CapturedImage())
	assert.True(t, c.IsActive())
}

func TestWithCamera_ReleasesOnEveryPath(t *testing.T) {
	c := New(NewImageDevice(solidImage(8, 8)), nil, nil)

	r := c.WithCamera(context.Background(), func() result.Result {
		assert.True(t, c.IsActive())
		return c.CaptureFrame()
	})
	assert.True(t, r.Success)
	assert.False(t, c.IsActive())

	r = c.WithCamera(context.Background(), func() result.Result {
		return result.Fail("validation failed")
	})
	assert.False(t, r.Success)
	assert.False(t, c.IsActive())

	assert.Panics(t, func() {
		c.WithCamera(context.Background(), func() result.Result { panic("boom") })
	})
	assert.False(t, c.IsActive())
}

func TestWithCamera_StartFailureSkipsFn(t *testing.T) {
	c := New(deniedDevices{err: errors.New("NotFoundError")}, nil, nil)
	called := false

	r := c.WithCamera(context.Background(), func() result.Result {
		called = true
		return result.OK("")
	})

	assert.False(t, called)
	assert.Equal(t, "Camera error: NotFoundError", r.Message)
}

func TestCaptureFrame_StreamStoppedUnderneath(t *testing.T) {
	devices := &recordingDevices{inner: NewImageDevice(solidImage(8, 8))}
	c := New(devices, nil, nil)
	require.True(t, c.StartCamera(context.Background()).Success)
	require.True(t, c.CaptureFrame().Success)
	first := c.CapturedImage()

	devices.track.Stop()
	r := c.CaptureFrame()

	assert.False(t, r.Success)
	assert.True(t, strings.HasPrefix(r.Message, "Capture error: "))
	assert.Equal(t, first, c.CapturedImage())
	assert.True(t, c.IsActive())
}

func TestEncodeDataURL_Empty(t *testing.T) {
	_, err := EncodeDataURL(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultQuality)
	assert.Error(t, err)
}

func TestStopCamera_AbortsPendingStart(t *testing.T) {
	devices := newBlockingDevices()
	c := New(devices, nil, nil)

	started := make(chan result.Result, 1)
	go func() { started <- c.StartCamera(context.Background()) }()
	waitFor(t, devices.entered, "device request")

	stopped := make(chan struct{})
	go func() {
		assert.False(t, c.IsActive())
		assert.Empty(t, c.CapturedImage())
		assert.Empty(t, c.SessionID())
		c.StopCamera()
		close(stopped)
	}()
	waitFor(t, stopped, "StopCamera while the device is pending")

	close(devices.release)
	r := <-started

	assert.False(t, r.Success)
	assert.Equal(t, "Camera error: camera stopped before access was granted", r.Message)
	assert.False(t, c.IsActive())
	assert.Empty(t, c.SessionID())
	devices.mu.Lock()
	defer devices.mu.Unlock()
	require.NotNil(t, devices.track)
	assert.True(t, devices.track.Stopped())
}

func TestStartCamera_ConcurrentStartsShareRequest(t *testing.T) {
	devices := newBlockingDevices()
	c := New(devices, nil, nil)

	results := make(chan result.Result, 2)
	go func() { results <- c.StartCamera(context.Background()) }()
	waitFor(t, devices.entered, "device request")
	go func() { results <- c.StartCamera(context.Background()) }()

	close(devices.release)
	for range 2 {
		r := <-results
		assert.True(t, r.Success)
		assert.Equal(t, "Camera started successfully", r.Message)
	}

	assert.True(t, c.IsActive())
	devices.mu.Lock()
	defer devices.mu.Unlock()
	assert.Equal(t, 1, devices.calls)
}

func TestStartCamera_WaiterSeesDenial(t *testing.T) {
	devices := newBlockingDevices()
	devices.err = errors.New("Permission denied")
	c := New(devices, nil, nil)

	results := make(chan result.Result, 2)
	go func() { results <- c.StartCamera(context.Background()) }()
	waitFor(t, devices.entered, "device request")
	go func() { results <- c.StartCamera(context.Background()) }()

	close(devices.release)
	for range 2 {
		r := <-results
		assert.False(t, r.Success)
		assert.Equal(t, "Camera error: Permission denied", r.Message)
	}
	assert.False(t, c.IsActive())
}
