package contracts

// MIDICommand is the high nibble of a channel message status byte.
type MIDICommand byte

const (
	NoteOff         MIDICommand = 0x80
	NoteOn          MIDICommand = 0x90
	PolyAftertouch  MIDICommand = 0xA0
	ControlChange   MIDICommand = 0xB0
	ProgramChange   MIDICommand = 0xC0
	ChannelPressure MIDICommand = 0xD0
	PitchBend       MIDICommand = 0xE0
)

// MIDIEventFilter lists channel commands the stream drops instead of sending.
// Dropped events keep their timing: their delta is carried to the next record.
type MIDIEventFilter struct {
	Commands []MIDICommand
}

// Blocks reports whether a channel message with the given status byte is dropped.
func (f *MIDIEventFilter) Blocks(status byte) bool {
	if f == nil || status >= 0xF0 {
		return false
	}
	for _, c := range f.Commands {
		if status&0xF0 == byte(c) {
			return true
		}
	}
	return false
}

// CoreMIDIConfig holds configuration for the CoreMIDI backend.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client registered with CoreMIDI.
}

// StreamOptions defines the configuration of an output stream.
type StreamOptions struct {
	Logger          Logger           // Logger for stream and device events.
	LogLevel        LogLevel         // Level of logging to use.
	DeviceID        int              // Output device index, see ListDevices.
	Division        int              // Pulses per quarter note set on open; 0 keeps the device default.
	Tempo           int              // Microseconds per quarter note set on open; 0 keeps the device default.
	NoOpChannel     chan<- NoOpEvent // Receives NoOpOccurred notifications; sends never block.
	MetaNoOps       bool             // Surface non-tempo meta events as callback no-ops.
	MIDIEventFilter *MIDIEventFilter // Optional channel commands to drop.
	CoreMIDIConfig  *CoreMIDIConfig  // Configuration specific to CoreMIDI.
}

// Option is a function that modifies StreamOptions.
type Option func(*StreamOptions)

// WithLogger sets the logger for the stream.
func WithLogger(l Logger) Option {
	return func(opts *StreamOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level LogLevel) Option {
	return func(opts *StreamOptions) {
		opts.LogLevel = level
	}
}

// WithDeviceID selects the output device.
func WithDeviceID(id int) Option {
	return func(opts *StreamOptions) {
		opts.DeviceID = id
	}
}

// WithDivision sets the time division (pulses per quarter note) applied on open.
func WithDivision(ppqn int) Option {
	return func(opts *StreamOptions) {
		opts.Division = ppqn
	}
}

// WithTempo sets the tempo (microseconds per quarter note) applied on open.
func WithTempo(microsecondsPerQuarterNote int) Option {
	return func(opts *StreamOptions) {
		opts.Tempo = microsecondsPerQuarterNote
	}
}

// WithNoOpChannel registers the channel receiving NoOpOccurred notifications.
// The channel should be buffered; notifications that do not fit are dropped.
func WithNoOpChannel(ch chan<- NoOpEvent) Option {
	return func(opts *StreamOptions) {
		opts.NoOpChannel = ch
	}
}

// WithMetaNoOps makes the stream emit a callback no-op for every non-tempo meta
// event so markers and lyrics can be observed at their playback position.
func WithMetaNoOps() Option {
	return func(opts *StreamOptions) {
		opts.MetaNoOps = true
	}
}

// WithMIDIEventFilter drops channel messages whose command is listed in filter.
func WithMIDIEventFilter(filter MIDIEventFilter) Option {
	return func(opts *StreamOptions) {
		opts.MIDIEventFilter = &filter
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *StreamOptions) {
		opts.CoreMIDIConfig = &config
	}
}
