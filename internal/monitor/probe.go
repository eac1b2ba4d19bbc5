package monitor

import "time"

// SystemProbe reports how long the system has been without user input
// (pointer move, click, scroll, key press). Implementations are
// platform-specific.
type SystemProbe interface {
	// IdleTime returns the time since the last input event.
	IdleTime() (time.Duration, error)
}

// NewSystemProbe returns the platform-appropriate input probe. It
// returns an error when no probe is available, which callers must treat
// as fatal at startup (input permissions denied or tooling missing).
func NewSystemProbe() (SystemProbe, error) {
	return newPlatformProbe()
}
