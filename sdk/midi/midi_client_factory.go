package midi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/midistream/internal/midi/mididarwin"
	"github.com/leandrodaf/midistream/internal/midi/midiwindows"
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// ErrUnsupportedOS is returned when the operating system has no MIDI output backend.
var ErrUnsupportedOS = errors.New("unsupported operating system")

type backend struct {
	newStream   func(*contracts.StreamOptions) (contracts.OutputStream, error)
	listDevices func(*contracts.StreamOptions) ([]contracts.DeviceInfo, error)
}

// backends maps OS names to their output backends.
var backends = map[string]backend{
	"darwin":  {newStream: mididarwin.NewOutputStream, listDevices: mididarwin.ListDevices},   // CoreMIDI with software timing.
	"windows": {newStream: midiwindows.NewOutputStream, listDevices: midiwindows.ListDevices}, // winmm MIDI streams.
}

func currentBackend() (backend, error) {
	if b, exists := backends[runtime.GOOS]; exists {
		return b, nil
	}
	return backend{}, fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
}

// NewStream opens an output stream for the current operating system with
// options that already carry their defaults.
func NewStream(opts *contracts.StreamOptions) (contracts.OutputStream, error) {
	b, err := currentBackend()
	if err != nil {
		return nil, err
	}
	return b.newStream(opts)
}
