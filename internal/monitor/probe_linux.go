//go:build linux

package monitor

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// X11Probe queries the X server idle time via xprintidle.
type X11Probe struct {
	cmdExecutor func(name string, args ...string) ([]byte, error)
}

// NewX11Probe creates an xprintidle-backed probe.
func NewX11Probe() *X11Probe {
	return &X11Probe{cmdExecutor: defaultCmdExecutor}
}

func defaultCmdExecutor(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.Output()
}

// IdleTime returns the time since the last input event. xprintidle
// prints idle milliseconds.
func (p *X11Probe) IdleTime() (time.Duration, error) {
	output, err := p.cmdExecutor("xprintidle")
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}

	ms, err := strconv.ParseInt(string(bytes.TrimSpace(output)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse xprintidle output: %w", err)
	}

	return time.Duration(ms) * time.Millisecond, nil
}

func newPlatformProbe() (SystemProbe, error) {
	if _, err := exec.LookPath("xprintidle"); err != nil {
		return nil, fmt.Errorf("input listener unavailable: xprintidle not found: %w", err)
	}

	probe := NewX11Probe()
	if _, err := probe.IdleTime(); err != nil {
		return nil, fmt.Errorf("input listener unavailable: %w", err)
	}
	return probe, nil
}
