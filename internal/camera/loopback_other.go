//go:build !linux

package camera

import (
	"errors"
	"fmt"
)

// NewLoopbackSink はLinux以外では利用できない
func NewLoopbackSink(device string) (Sink, error) {
	return nil, fmt.Errorf("%w: ループバックデバイス %s: %w", ErrDevice, device, errors.ErrUnsupported)
}
