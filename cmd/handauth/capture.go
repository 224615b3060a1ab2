package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/handauth/internal/capture"
	"github.com/harrylevesque/handauth/internal/result"
)

// NewCaptureCmd creates the capture command.
func NewCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture one frame without submitting it",
		Long: `Capture starts the camera, takes one frame and stops the camera. The frame
is written as a JPEG to --output, or printed as a data URI when no output
is given.

Examples:
  handauth capture -o hand.jpg
  handauth capture --still hand.png`,
		Args: cobra.NoArgs,
		RunE: runCaptureCmd,
	}
	cmd.Flags().StringP("output", "o", "", "Write the JPEG to this file")
	return cmd
}

func runCaptureCmd(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	cam, err := a.newCapture()
	if err != nil {
		return err
	}

	res := cam.WithCamera(cmd.Context(), func() result.Result {
		return cam.CaptureFrame()
	})
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}

	if output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Image)
		return nil
	}
	data, err := capture.DecodeDataURL(res.Image)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(output, data, 0600); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Frame written to %s (%d bytes)\n", output, len(data))
	return nil
}
