//go:build js && wasm

// Package jscam binds capture to the browser: getUserMedia for the stream,
// a <video> element as the surface and a <canvas> for encoding.
//
// Calls that await a promise block the calling goroutine, so they must not
// run directly inside a js.FuncOf callback.
package jscam

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/harrylevesque/handauth/internal/capture"
)

// Await blocks until p settles and returns its value or rejection.
func Await(ctx context.Context, p js.Value) (js.Value, error) {
	type settled struct {
		v   js.Value
		err error
	}
	ch := make(chan settled, 1)

	onOK := js.FuncOf(func(this js.Value, args []js.Value) any {
		var v js.Value
		if len(args) > 0 {
			v = args[0]
		}
		ch <- settled{v: v}
		return nil
	})
	onErr := js.FuncOf(func(this js.Value, args []js.Value) any {
		msg := "promise rejected"
		if len(args) > 0 {
			if m := args[0].Get("message"); m.Truthy() {
				msg = m.String()
			} else {
				msg = args[0].String()
			}
		}
		ch <- settled{err: errors.New(msg)}
		return nil
	})
	p.Call("then", onOK).Call("catch", onErr)

	select {
	case s := <-ch:
		onOK.Release()
		onErr.Release()
		return s.v, s.err
	case <-ctx.Done():
		// the callbacks stay registered until the promise settles
		go func() {
			<-ch
			onOK.Release()
			onErr.Release()
		}()
		return js.Undefined(), ctx.Err()
	}
}

// Devices wraps navigator.mediaDevices.
type Devices struct{}

func (Devices) GetUserMedia(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	md := js.Global().Get("navigator").Get("mediaDevices")
	if !md.Truthy() {
		return nil, errors.New("media devices not supported")
	}
	video := map[string]any{
		"width":  map[string]any{"ideal": c.Width},
		"height": map[string]any{"ideal": c.Height},
	}
	if c.FacingMode != "" {
		video["facingMode"] = c.FacingMode
	}
	v, err := Await(ctx, md.Call("getUserMedia", map[string]any{"video": video}))
	if err != nil {
		return nil, err
	}
	return &Stream{v: v}, nil
}

// Stream wraps a MediaStream.
type Stream struct{ v js.Value }

func (s *Stream) Tracks() []capture.Track {
	arr := s.v.Call("getTracks")
	out := make([]capture.Track, 0, arr.Length())
	for i := 0; i < arr.Length(); i++ {
		out = append(out, track{arr.Index(i)})
	}
	return out
}

type track struct{ v js.Value }

func (t track) Kind() string { return t.v.Get("kind").String() }
func (t track) Stop()        { t.v.Call("stop") }

// Video wraps a <video> element.
type Video struct{ el js.Value }

func NewVideo(el js.Value) *Video { return &Video{el: el} }

func (v *Video) SetSrcObject(s capture.Stream) {
	ms, ok := s.(*Stream)
	if !ok || ms == nil {
		v.el.Set("srcObject", nil)
		return
	}
	v.el.Set("srcObject", ms.v)
}

func (v *Video) VideoSize() (int, int) {
	return v.el.Get("videoWidth").Int(), v.el.Get("videoHeight").Int()
}

// Canvas wraps a <canvas> element.
type Canvas struct{ el js.Value }

func NewCanvas(el js.Value) *Canvas { return &Canvas{el: el} }

func (c *Canvas) SetSize(width, height int) {
	c.el.Set("width", width)
	c.el.Set("height", height)
}

func (c *Canvas) DrawVideo(v capture.VideoSurface) error {
	jv, ok := v.(*Video)
	if !ok {
		return fmt.Errorf("cannot draw %T onto a DOM canvas", v)
	}
	c.el.Call("getContext", "2d").Call("drawImage", jv.el, 0, 0)
	return nil
}

func (c *Canvas) ToDataURL(mimeType string, quality float64) (string, error) {
	uri := c.el.Call("toDataURL", mimeType, quality).String()
	if uri == "data:," {
		return "", capture.ErrNoFrame
	}
	return uri, nil
}
