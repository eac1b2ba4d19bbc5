//go:build darwin

package monitor

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// IORegProbe queries the macOS HID idle time via ioreg.
type IORegProbe struct {
	cmdExecutor func(name string, args ...string) ([]byte, error)
}

// NewIORegProbe creates an ioreg-backed probe.
func NewIORegProbe() *IORegProbe {
	return &IORegProbe{cmdExecutor: defaultCmdExecutor}
}

func defaultCmdExecutor(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.Output()
}

// IdleTime returns the time since the last input event. HIDIdleTime is
// reported in nanoseconds.
func (p *IORegProbe) IdleTime() (time.Duration, error) {
	output, err := p.cmdExecutor("ioreg", "-c", "IOHIDSystem", "-d", "4")
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}

	for _, line := range strings.Split(string(output), "\n") {
		if !strings.Contains(line, "HIDIdleTime") {
			continue
		}
		parts := strings.Split(line, "=")
		if len(parts) != 2 {
			continue
		}
		ns, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
		}
		return time.Duration(ns), nil
	}

	return 0, fmt.Errorf("HIDIdleTime not found in ioreg output")
}

func newPlatformProbe() (SystemProbe, error) {
	probe := NewIORegProbe()
	if _, err := probe.IdleTime(); err != nil {
		return nil, fmt.Errorf("input listener unavailable: %w", err)
	}
	return probe, nil
}
