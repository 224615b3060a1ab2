package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/handauth/internal/kiosk"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local kiosk page",
		Long: `Serve starts a local web page that drives the camera on this machine and
forwards register and login requests to the biometric server.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
	cmd.Flags().String("listen", "", "Listen address (default from config)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.Flags().Changed("listen") {
		if a.cfg.Listen, err = cmd.Flags().GetString("listen"); err != nil {
			return err
		}
	}

	cam, err := a.newCapture()
	if err != nil {
		return err
	}
	api, err := a.newClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kiosk.NewServer(cam, api, a.logger).ListenAndServe(ctx, a.cfg.Listen)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
