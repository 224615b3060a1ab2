//go:build !gocv

package main

import (
	"errors"

	"github.com/harrylevesque/handauth/internal/capture"
	"github.com/harrylevesque/handauth/internal/config"
)

var errNoCamera = errors.New("no camera backend in this build: pass --still <image> or rebuild with -tags gocv")

func openDevice(cam config.Camera) (capture.MediaDevices, error) {
	if cam.Still != "" {
		return capture.NewStillDevice(cam.Still), nil
	}
	return nil, errNoCamera
}
