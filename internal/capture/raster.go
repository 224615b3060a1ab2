package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"math"
	"strings"
	"sync"
)

// FrameSource is implemented by streams that can hand out their current
// frame in-process.
type FrameSource interface {
	ReadFrame() (image.Image, error)
}

// FrameReader is implemented by video surfaces the RasterCanvas can draw.
type FrameReader interface {
	Frame() (image.Image, error)
}

// Video is an in-process VideoSurface. It reads frames from the bound
// stream when that stream is a FrameSource.
type Video struct {
	mu     sync.RWMutex
	src    Stream
	width  int
	height int
}

func NewVideo() *Video { return &Video{} }

func (v *Video) SetSrcObject(s Stream) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.src = s
	v.width, v.height = 0, 0
	if sized, ok := s.(interface{ Size() (int, int) }); ok {
		v.width, v.height = sized.Size()
	}
}

// SrcObject returns the bound stream or nil.
func (v *Video) SrcObject() Stream {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.src
}

func (v *Video) VideoSize() (int, int) {
	v.mu.RLock()
	w, h, src := v.width, v.height, v.src
	v.mu.RUnlock()
	if (w > 0 && h > 0) || src == nil {
		return w, h
	}
	// size unknown until the first frame arrives
	img, err := v.Frame()
	if err != nil {
		return 0, 0
	}
	b := img.Bounds()
	v.mu.Lock()
	v.width, v.height = b.Dx(), b.Dy()
	v.mu.Unlock()
	return b.Dx(), b.Dy()
}

func (v *Video) Frame() (image.Image, error) {
	v.mu.RLock()
	src := v.src
	v.mu.RUnlock()
	if src == nil {
		return nil, ErrNotStarted
	}
	fs, ok := src.(FrameSource)
	if !ok {
		return nil, fmt.Errorf("stream %T cannot be read in-process", src)
	}
	return fs.ReadFrame()
}

// RasterCanvas is an in-memory Canvas backed by an RGBA image.
type RasterCanvas struct {
	img *image.RGBA
}

func NewRasterCanvas() *RasterCanvas {
	return &RasterCanvas{img: image.NewRGBA(image.Rect(0, 0, 0, 0))}
}

func (c *RasterCanvas) SetSize(width, height int) {
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (c *RasterCanvas) DrawVideo(v VideoSurface) error {
	fr, ok := v.(FrameReader)
	if !ok {
		return fmt.Errorf("video surface %T cannot be drawn in-process", v)
	}
	frame, err := fr.Frame()
	if err != nil {
		return err
	}
	b := frame.Bounds()
	draw.Draw(c.img, c.img.Bounds(), frame, b.Min, draw.Src)
	return nil
}

func (c *RasterCanvas) ToDataURL(mimeType string, quality float64) (string, error) {
	if mimeType != JPEGMimeType {
		return "", fmt.Errorf("unsupported mime type %q", mimeType)
	}
	return EncodeDataURL(c.img, quality)
}

// Image exposes the raster for inspection.
func (c *RasterCanvas) Image() *image.RGBA { return c.img }

// EncodeDataURL encodes img as a JPEG data URI at quality in (0, 1].
func EncodeDataURL(img image.Image, quality float64) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", errors.New("empty image")
	}
	q := int(math.Round(quality * 100))
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return "", err
	}
	return "data:" + JPEGMimeType + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL returns the raw bytes of a base64 data URI.
func DecodeDataURL(uri string) ([]byte, error) {
	const marker = ";base64,"
	_, payload, ok := strings.Cut(uri, marker)
	if !ok {
		return nil, errors.New("not a base64 data uri")
	}
	return base64.StdEncoding.DecodeString(payload)
}
