//go:build gocv

package main

import (
	"github.com/harrylevesque/handauth/internal/capture"
	"github.com/harrylevesque/handauth/internal/capture/gocvcam"
	"github.com/harrylevesque/handauth/internal/config"
)

func openDevice(cam config.Camera) (capture.MediaDevices, error) {
	if cam.Still != "" {
		return capture.NewStillDevice(cam.Still), nil
	}
	return gocvcam.New(cam.Device), nil
}
