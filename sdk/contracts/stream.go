package contracts

// OutputStream buffers MIDI events in the device stream format and drives playback.
//
// All methods are safe for concurrent use. After Close every method except Close
// returns ErrDisposed.
type OutputStream interface {
	// Division returns the time division in pulses per quarter note.
	Division() (int, error)
	// SetDivision sets the time division; ppqn must be at least 24.
	SetDivision(ppqn int) error
	// Tempo returns the tempo in microseconds per quarter note.
	Tempo() (int, error)
	// SetTempo sets the tempo; it must not be negative.
	SetTempo(tempo int) error

	// Write appends an event to the pending buffer.
	Write(event MidiEvent) error
	// WriteNoOp appends a silent event that raises NoOpOccurred with data when
	// playback reaches it. data must fit in 24 bits, or 23 bits when the stream
	// was opened with WithMetaNoOps.
	WriteNoOp(deltaTicks, data uint32) error
	// Flush submits the pending buffer to the device and clears it.
	Flush() error

	StartPlaying() error
	PausePlaying() error
	StopPlaying() error
	GetTime(timeType TimeType) (Time, error)

	// Reset drops pending events and silences the device.
	Reset() error
	// PendingBuffers returns the number of submitted buffers not yet played.
	PendingBuffers() int
	// Notify replaces the channel receiving NoOpOccurred; nil disables delivery.
	Notify(ch chan<- NoOpEvent)
	// Close releases the device. Calling it again is a no-op.
	Close() error
}
