// Package stream implements contracts.OutputStream on top of a device Driver.
//
// Events are encoded into the 12-byte stream record format (delta ticks, stream
// id, event word) understood by stream-capable MIDI output devices, buffered,
// and submitted to the driver one buffer at a time.
package stream

import "github.com/leandrodaf/midistream/sdk/contracts"

// Property flags accepted by Driver.Property.
const (
	PropSet     uint32 = 0x80000000
	PropGet     uint32 = 0x40000000
	PropTimeDiv uint32 = 0x00000001
	PropTempo   uint32 = 0x00000002
)

// Header is a buffer of encoded records handed to a driver.
type Header struct {
	Data []byte
	// Native is owned by the driver between PrepareHeader and UnprepareHeader.
	Native any
}

// Callbacks are invoked by a driver from its own thread. They must not block.
type Callbacks struct {
	// PositionReached is called with the record that carried the callback flag.
	PositionReached func(record []byte)
	// BufferDone is called once the device finished playing a submitted header.
	BufferDone func(h *Header)
}

// Driver is the device surface the stream needs. Failed calls return a
// *contracts.DeviceError carrying the native result code.
type Driver interface {
	Property(flags uint32, value *uint32) error
	PrepareHeader(h *Header) error
	UnprepareHeader(h *Header) error
	Out(h *Header) error
	Restart() error
	Pause() error
	Stop() error
	Reset() error
	Position(t *contracts.Time) error
	Close() error
}

// Opener opens the driver for a device and registers the stream callbacks.
type Opener func(deviceID int, callbacks Callbacks) (Driver, error)
