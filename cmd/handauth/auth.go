package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/handauth/internal/capture"
	"github.com/harrylevesque/handauth/internal/result"
	"github.com/harrylevesque/handauth/internal/ui"
	"github.com/harrylevesque/handauth/internal/workflow"
)

// NewRegisterCmd creates the register command.
func NewRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username>",
		Short: "Enroll a username with a captured hand image",
		Long: `Register captures one frame and posts it with the username to
<server>/api/register. The username must be 3-20 characters of letters,
digits, hyphens and underscores.

Examples:
  handauth register alice --still hand.jpg
  handauth register alice --server https://auth.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, workflow.ActionRegister, args[0])
		},
	}
}

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in with a captured hand image",
		Long: `Login captures one frame and posts it with the username to
<server>/api/login. On success the server session is kept so that a later
"handauth logout" can end it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, workflow.ActionLogin, args[0])
		},
	}
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the server session",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runSubmit(cmd *cobra.Command, action workflow.Action, username string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cam, err := a.newCapture()
	if err != nil {
		return err
	}
	api, err := a.newClient()
	if err != nil {
		return err
	}
	ctrl := workflow.New(cam, api,
		workflow.WithElements(terminalElements(cmd)),
		workflow.WithLogger(a.logger),
	)

	var res result.Result
	if action == workflow.ActionRegister {
		res = ctrl.Register(ctx, username)
	} else {
		res = ctrl.Login(ctx, username)
	}
	if !res.Success {
		return fmt.Errorf("%s failed", action)
	}
	if action == workflow.ActionLogin {
		a.saveSession(api, username)
	}
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	api, err := a.newClient()
	if err != nil {
		return err
	}
	ctrl := workflow.New(idleCamera{}, api,
		workflow.WithElements(terminalElements(cmd)),
		workflow.WithLogger(a.logger),
	)
	res := ctrl.Logout(cmd.Context())
	a.forgetSession()
	if !res.Success {
		return fmt.Errorf("logout failed")
	}
	return nil
}

func terminalElements(cmd *cobra.Command) workflow.Elements {
	return workflow.Elements{
		Message:     ui.NewTermElement(cmd.OutOrStdout()),
		Submit:      ui.NewMemElement("Submit"),
		SubmitLabel: "Submit",
	}
}

// idleCamera stands in for a camera where none is needed.
type idleCamera struct{}

func (idleCamera) StartCamera(context.Context) result.Result {
	return result.Fail("Camera error: no camera configured")
}
func (idleCamera) CaptureFrame() result.Result { return result.Fail("Camera not started") }
func (idleCamera) CapturedImage() string       { return "" }
func (idleCamera) StopCamera()                 {}
func (idleCamera) IsActive() bool              { return false }
func (idleCamera) Reset()                      {}

var _ workflow.Camera = (*capture.Capture)(nil)
