//go:build js && wasm

// Command wasm binds the capture workflow to the login and registration
// pages. Expected element ids: video, canvas, username, message, capture-btn,
// and register-btn or login-btn; logout-btn is optional.
package main

import (
	"context"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/harrylevesque/handauth/internal/capture"
	"github.com/harrylevesque/handauth/internal/capture/jscam"
	"github.com/harrylevesque/handauth/internal/client"
	"github.com/harrylevesque/handauth/internal/logging"
	"github.com/harrylevesque/handauth/internal/result"
	"github.com/harrylevesque/handauth/internal/ui"
	"github.com/harrylevesque/handauth/internal/ui/dom"
	"github.com/harrylevesque/handauth/internal/workflow"
)

func main() {
	logger, _, err := logging.New(logging.Options{Output: os.Stdout})
	if err != nil {
		logger = slog.Default()
	}

	video, okVideo := dom.ByID("video")
	canvas, okCanvas := dom.ByID("canvas")
	message, okMessage := dom.ByID("message")
	username, okUser := dom.ByID("username")
	if !okVideo || !okCanvas || !okMessage || !okUser {
		logger.Error("page is missing required elements")
		return
	}

	origin := js.Global().Get("window").Get("location").Get("origin").String()
	api, err := client.New(origin, client.WithNavigator(dom.Navigator{}), client.WithLogger(logger))
	if err != nil {
		ui.ShowMessage(message, err.Error(), ui.ClassError)
		return
	}

	cam := capture.New(jscam.Devices{}, jscam.NewVideo(video.Value()), jscam.NewCanvas(canvas.Value()),
		capture.WithLogger(logger))

	action, submit := workflow.ActionRegister, (*dom.Element)(nil)
	if btn, ok := dom.ByID("register-btn"); ok {
		submit = btn
	} else if btn, ok := dom.ByID("login-btn"); ok {
		action, submit = workflow.ActionLogin, btn
	}

	elements := workflow.Elements{Message: message}
	if submit != nil {
		elements.Submit = submit
		elements.SubmitLabel = submit.Text()
	}
	ctrl := workflow.New(cam, api, workflow.WithElements(elements), workflow.WithLogger(logger))

	ctx := context.Background()
	go func() {
		if r := cam.StartCamera(ctx); !r.Success {
			ui.ShowMessage(message, r.Message, ui.ClassError)
		}
	}()

	onClick("capture-btn", func() { ctrl.Capture(ctx) })
	if submit != nil {
		onClick(submit.Value().Get("id").String(), func() {
			var r result.Result
			if action == workflow.ActionRegister {
				r = ctrl.Register(ctx, username.InputValue())
			} else {
				r = ctrl.Login(ctx, username.InputValue())
			}
			logger.Debug("submitted", "action", string(action), "success", r.Success)
		})
	}
	onClick("logout-btn", func() { ctrl.Logout(ctx) })

	// Handlers run on the event loop; StopCamera may wait on the camera lock.
	js.Global().Get("window").Call("addEventListener", "beforeunload", js.FuncOf(func(js.Value, []js.Value) any {
		go cam.StopCamera()
		return nil
	}))

	select {}
}

// onClick runs fn off the event loop so it may block on the network.
func onClick(id string, fn func()) {
	el, ok := dom.ByID(id)
	if !ok {
		return
	}
	el.Value().Call("addEventListener", "click", js.FuncOf(func(js.Value, []js.Value) any {
		go fn()
		return nil
	}))
}
