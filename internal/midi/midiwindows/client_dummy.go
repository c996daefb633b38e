//go:build !windows
// +build !windows

package midiwindows

import (
	"errors"

	"github.com/leandrodaf/midistream/internal/stream"
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// ErrUnavailable is returned by every entry point on non-Windows systems.
var ErrUnavailable = errors.New("winmm MIDI streams are not available on this platform")

// Opener returns a stream.Opener that always fails on non-Windows systems.
func Opener(logger contracts.Logger) stream.Opener {
	return func(deviceID int, callbacks stream.Callbacks) (stream.Driver, error) {
		logger.Warn("winmm stream requested on a non-Windows system")
		return nil, ErrUnavailable
	}
}

// NewOutputStream logs a warning and reports that winmm is unavailable.
func NewOutputStream(options *contracts.StreamOptions) (contracts.OutputStream, error) {
	options.Logger.Warn("NewOutputStream called on dummy winmm backend")
	return nil, ErrUnavailable
}

// ListDevices logs a warning and reports that winmm is unavailable.
func ListDevices(options *contracts.StreamOptions) ([]contracts.DeviceInfo, error) {
	options.Logger.Warn("ListDevices called on dummy winmm backend")
	return nil, ErrUnavailable
}
