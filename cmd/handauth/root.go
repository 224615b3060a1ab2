package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for handauth.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handauth",
		Short: "Hand-biometric login client",
		Long: `handauth captures one frame of your hand and submits it, together with a
username, to a hand-biometric server for registration or login.

Settings are read from $XDG_CONFIG_HOME/handauth/config.yaml (or --config),
then HANDAUTH_SERVER, then flags.

Without the gocv build tag a still image (--still) stands in for the camera.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to the config file")
	cmd.PersistentFlags().String("server", "", "Biometric server base URL")
	cmd.PersistentFlags().String("still", "", "Use an image file instead of the camera")
	cmd.PersistentFlags().Int("device", 0, "Camera device index")
	cmd.PersistentFlags().Duration("timeout", 0, "Request timeout (0 = none)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewRegisterCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewLogoutCmd())
	cmd.AddCommand(NewCaptureCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
