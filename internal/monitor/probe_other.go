//go:build !linux && !darwin

package monitor

import "fmt"

func newPlatformProbe() (SystemProbe, error) {
	return nil, fmt.Errorf("input listener unavailable: no input probe for this platform")
}
