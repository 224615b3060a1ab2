// Package validate holds the pure form checks run before anything touches
// the camera or the network.
package validate

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/harrylevesque/handauth/internal/result"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Username checks a username. Rules are applied in order and the first
// failure wins: required, minimum length, maximum length, charset.
func Username(username string) result.Validation {
	if strings.TrimSpace(username) == "" {
		return invalid("Username is required")
	}

	// Length is counted in UTF-16 code units, as browsers count it.
	n := len(utf16.Encode([]rune(username)))
	if n < MinUsernameLength {
		return invalid("Username must be at least 3 characters")
	}
	if n > MaxUsernameLength {
		return invalid("Username must be less than 20 characters")
	}

	if !usernamePattern.MatchString(username) {
		return invalid("Username can only contain letters, numbers, hyphens, and underscores")
	}

	return result.Validation{Valid: true, Message: "Valid username"}
}

// ImageCapture only checks that an image is present.
func ImageCapture(imageData string) result.Validation {
	if imageData == "" {
		return invalid("Please capture your hand biometric first")
	}
	return result.Validation{Valid: true, Message: "Image captured"}
}

// DataURI is the stricter check applied to images arriving from outside the
// process: an image data URI with a decodable base64 payload.
func DataURI(imageData string) result.Validation {
	if v := ImageCapture(imageData); !v.Valid {
		return v
	}
	if !strings.HasPrefix(imageData, "data:image/") {
		return invalid("Image must be an image data URI")
	}
	_, payload, ok := strings.Cut(imageData, ";base64,")
	if !ok || payload == "" {
		return invalid("Image must be base64 encoded")
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return invalid("Image payload is not valid base64")
	}
	return result.Validation{Valid: true, Message: "Image captured"}
}

func invalid(msg string) result.Validation {
	return result.Validation{Valid: false, Message: msg}
}
