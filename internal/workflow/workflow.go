// Package workflow is the page controller: it validates the form, makes
// sure a frame exists, submits it and renders the outcome.
package workflow

import (
	"context"
	"log/slog"

	"github.com/harrylevesque/handauth/internal/client"
	"github.com/harrylevesque/handauth/internal/result"
	"github.com/harrylevesque/handauth/internal/ui"
	"github.com/harrylevesque/handauth/internal/validate"
)

// Camera is the capture lifecycle the controller drives.
type Camera interface {
	StartCamera(ctx context.Context) result.Result
	CaptureFrame() result.Result
	CapturedImage() string
	StopCamera()
	IsActive() bool
	Reset()
}

// API is the remote side.
type API interface {
	Register(ctx context.Context, username, imageData string) client.Response
	Login(ctx context.Context, username, imageData string) client.Response
	Logout(ctx context.Context) error
}

// Elements are the page elements feedback is rendered into.
type Elements struct {
	Message ui.Element
	Submit  ui.Element
	// SubmitLabel is restored on the submit button after loading.
	SubmitLabel string
}

type Action string

const (
	ActionRegister Action = "register"
	ActionLogin    Action = "login"
)

type Controller struct {
	camera   Camera
	api      API
	elements Elements
	logger   *slog.Logger
}

type Option func(*Controller)

func WithElements(e Elements) Option {
	return func(c *Controller) {
		if e.Message != nil {
			c.elements.Message = e.Message
		}
		if e.Submit != nil {
			c.elements.Submit = e.Submit
		}
		if e.SubmitLabel != "" {
			c.elements.SubmitLabel = e.SubmitLabel
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(camera Camera, api API, opts ...Option) *Controller {
	c := &Controller{
		camera: camera,
		api:    api,
		elements: Elements{
			Message:     ui.NewMemElement(""),
			Submit:      ui.NewMemElement("Submit"),
			SubmitLabel: "Submit",
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Elements() Elements { return c.elements }

// Register enrolls username with the current frame, capturing one first if
// none exists.
func (c *Controller) Register(ctx context.Context, username string) result.Result {
	return c.submit(ctx, ActionRegister, username)
}

// Login verifies username with the current frame, capturing one first if
// none exists.
func (c *Controller) Login(ctx context.Context, username string) result.Result {
	return c.submit(ctx, ActionLogin, username)
}

// Capture starts the camera if needed and takes a frame. The camera keeps
// running so the frame can be retaken.
func (c *Controller) Capture(ctx context.Context) result.Result {
	r := c.ensureFrame(ctx)
	c.render(r)
	return r
}

// Logout releases the camera, forgets the frame and navigates away.
func (c *Controller) Logout(ctx context.Context) result.Result {
	c.camera.StopCamera()
	c.camera.Reset()
	if err := c.api.Logout(ctx); err != nil {
		r := result.FromError(result.New(result.KindNetwork, "Network error: "+err.Error()))
		c.render(r)
		return r
	}
	r := result.OK("Logged out")
	c.render(r)
	return r
}

func (c *Controller) submit(ctx context.Context, action Action, username string) result.Result {
	// the camera is released on every exit path
	defer c.camera.StopCamera()

	log := c.logger.With("action", string(action), "username", username)
	ui.HideMessage(c.elements.Message)

	if v := validate.Username(username); !v.Valid {
		log.Info("username rejected", "reason", v.Message)
		return c.fail(v.Message)
	}

	image := c.camera.CapturedImage()
	if image == "" {
		r := c.ensureFrame(ctx)
		if !r.Success {
			log.Warn("capture failed", "reason", r.Message)
			c.render(r)
			return r
		}
		image = r.Image
	}
	c.camera.StopCamera()

	if v := validate.ImageCapture(image); !v.Valid {
		return c.fail(v.Message)
	}

	ui.ShowLoading(c.elements.Submit, c.elements.SubmitLabel)
	defer ui.HideLoading(c.elements.Submit)

	var resp client.Response
	switch action {
	case ActionRegister:
		resp = c.api.Register(ctx, username, image)
	default:
		resp = c.api.Login(ctx, username, image)
	}

	if resp.Success {
		// a submitted frame is never reused
		c.camera.Reset()
	}
	log.Info("submission finished", "success", resp.Success, "message", resp.Message)
	c.render(resp.Result)
	return resp.Result
}

func (c *Controller) ensureFrame(ctx context.Context) result.Result {
	if !c.camera.IsActive() {
		if r := c.camera.StartCamera(ctx); !r.Success {
			return r
		}
	}
	return c.camera.CaptureFrame()
}

func (c *Controller) fail(msg string) result.Result {
	r := result.Fail(msg)
	c.render(r)
	return r
}

func (c *Controller) render(r result.Result) {
	ui.ShowMessage(c.elements.Message, r.Message, r.Class())
}
