// Package main provides the handauth CLI.
//
// handauth captures a hand image from a local camera (or a still image) and
// registers or logs in against a hand-biometric server.
//
// Usage:
//
//	handauth register <username>
//	handauth login <username>
//	handauth serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
