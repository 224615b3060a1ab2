package store

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// DeviceFingerprint returns a stable hardware identifier for this machine,
// falling back to the hostname when none can be read.
func DeviceFingerprint() string {
	if ids, err := deviceFingerprints(); err == nil && len(ids) > 0 {
		return ids[0]
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown-device"
}

func deviceFingerprints() ([]string, error) {
	switch runtime.GOOS {
	case "darwin":
		return getMacOSUUID()
	case "linux":
		return getLinuxUUID()
	case "windows":
		return getWindowsUUID()
	default:
		return nil, errors.New("unsupported platform: " + runtime.GOOS)
	}
}

func getMacOSUUID() ([]string, error) {
	out, err := exec.Command("ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "IOPlatformUUID") {
			parts := strings.Split(line, "\"")
			if len(parts) >= 4 {
				ids = append(ids, parts[3])
			}
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("no IOPlatformUUID found")
	}
	return ids, nil
}

func getLinuxUUID() ([]string, error) {
	for _, path := range []string{"/etc/machine-id", "/sys/class/dmi/id/product_uuid"} {
		if b, err := os.ReadFile(path); err == nil {
			if id := strings.TrimSpace(string(b)); id != "" {
				return []string{id}, nil
			}
		}
	}
	if cpuinfo, err := os.ReadFile("/proc/cpuinfo"); err == nil {
		for _, line := range strings.Split(string(cpuinfo), "\n") {
			if !strings.HasPrefix(line, "Serial") {
				continue
			}
			if _, id, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(id) != "" {
				return []string{strings.TrimSpace(id)}, nil
			}
		}
	}
	return nil, errors.New("no hardware UUID found on Linux")
}

func getWindowsUUID() ([]string, error) {
	for _, args := range [][]string{{"csproduct", "get", "UUID"}, {"cpu", "get", "ProcessorId"}} {
		out, err := exec.Command("wmic", args...).Output()
		if err != nil {
			continue
		}
		header := args[len(args)-1]
		for _, line := range bytes.Split(out, []byte("\n")) {
			s := strings.TrimSpace(string(line))
			if s != "" && !strings.EqualFold(s, header) {
				return []string{s}, nil
			}
		}
	}
	return nil, errors.New("no hardware UUID found on Windows")
}
