package midi

import (
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// NewOutputStream opens an output stream on the device selected with
// contracts.WithDeviceID, using the backend of the current operating system.
//
// opts ...contracts.Option: A variadic list of option functions to customize the stream.
//
// Returns:
//   - contracts.OutputStream: The open stream. Close it when done.
//   - error: ErrUnsupportedOS, a *contracts.DeviceError, or an invalid option.
func NewOutputStream(opts ...contracts.Option) (contracts.OutputStream, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	return NewStream(&options)
}

// ListDevices returns the MIDI output devices of the current operating system.
// A device's ID is the value to pass to contracts.WithDeviceID.
func ListDevices(opts ...contracts.Option) ([]contracts.DeviceInfo, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	b, err := currentBackend()
	if err != nil {
		return nil, err
	}
	return b.listDevices(&options)
}
