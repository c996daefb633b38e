//go:build !darwin
// +build !darwin

package mididarwin

import (
	"errors"

	"github.com/leandrodaf/midistream/internal/stream"
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// ErrUnavailable is returned by every entry point on non-macOS systems.
var ErrUnavailable = errors.New("CoreMIDI is not available on this platform")

func Opener(options *contracts.StreamOptions) (stream.Opener, error) {
	options.Logger.Warn("CoreMIDI opener requested on a non-macOS system")
	return nil, ErrUnavailable
}

func NewOutputStream(options *contracts.StreamOptions) (contracts.OutputStream, error) {
	options.Logger.Warn("NewOutputStream called on dummy CoreMIDI backend")
	return nil, ErrUnavailable
}

func ListDevices(options *contracts.StreamOptions) ([]contracts.DeviceInfo, error) {
	options.Logger.Warn("ListDevices called on dummy CoreMIDI backend")
	return nil, ErrUnavailable
}
