package contracts

import "fmt"

// MessageKind classifies a MIDI message for the stream encoder.
type MessageKind int

const (
	KindChannel MessageKind = iota + 1
	KindSystemCommon
	KindSystemRealtime
	KindSysEx
	KindMeta
)

// Message is a MIDI message carried by a MidiEvent.
type Message interface {
	Kind() MessageKind
}

// ShortMessage is a channel, system common or system realtime message of up to
// three bytes.
type ShortMessage struct {
	Status byte
	Data1  byte
	Data2  byte
}

// NewShortMessage builds a ShortMessage from raw bytes (status first).
func NewShortMessage(b []byte) (ShortMessage, error) {
	if len(b) == 0 || len(b) > 3 {
		return ShortMessage{}, fmt.Errorf("%w: short message of %d bytes", ErrInvalidArgument, len(b))
	}
	if b[0] < 0x80 || b[0] == 0xF0 || b[0] == 0xF7 || b[0] == 0xFF {
		return ShortMessage{}, fmt.Errorf("%w: status byte 0x%02X is not a short message", ErrInvalidArgument, b[0])
	}
	m := ShortMessage{Status: b[0]}
	if len(b) > 1 {
		m.Data1 = b[1]
	}
	if len(b) > 2 {
		m.Data2 = b[2]
	}
	return m, nil
}

// Kind reports whether the message is a channel, system common or realtime message.
func (m ShortMessage) Kind() MessageKind {
	switch {
	case m.Status < 0xF0:
		return KindChannel
	case m.Status >= 0xF8:
		return KindSystemRealtime
	}
	return KindSystemCommon
}

// Word packs the message the way the device expects it: status in the low byte.
func (m ShortMessage) Word() uint32 {
	return uint32(m.Status) | uint32(m.Data1)<<8 | uint32(m.Data2)<<16
}

// SysExMessage is a system exclusive message including the leading 0xF0.
type SysExMessage struct {
	Data []byte
}

func (SysExMessage) Kind() MessageKind { return KindSysEx }

// MetaType identifies a meta event.
type MetaType byte

const (
	MetaText          MetaType = 0x01
	MetaCopyright     MetaType = 0x02
	MetaTrackName     MetaType = 0x03
	MetaLyric         MetaType = 0x05
	MetaMarker        MetaType = 0x06
	MetaCuePoint      MetaType = 0x07
	MetaEndOfTrack    MetaType = 0x2F
	MetaTempo         MetaType = 0x51
	MetaTimeSignature MetaType = 0x58
	MetaKeySignature  MetaType = 0x59
)

// MetaMessage is a file-level meta event. Only tempo changes reach the device.
type MetaMessage struct {
	Type MetaType
	Data []byte
}

func (MetaMessage) Kind() MessageKind { return KindMeta }

// NewTempoMessage builds a set-tempo meta message.
func NewTempoMessage(microsecondsPerQuarterNote uint32) MetaMessage {
	return MetaMessage{
		Type: MetaTempo,
		Data: []byte{byte(microsecondsPerQuarterNote >> 16), byte(microsecondsPerQuarterNote >> 8), byte(microsecondsPerQuarterNote)},
	}
}

// Tempo decodes the 24-bit big-endian microseconds per quarter note of a tempo message.
func (m MetaMessage) Tempo() (uint32, bool) {
	if m.Type != MetaTempo || len(m.Data) != 3 {
		return 0, false
	}
	return uint32(m.Data[0])<<16 | uint32(m.Data[1])<<8 | uint32(m.Data[2]), true
}

// MidiEvent is a message scheduled deltaTicks after the previous event.
type MidiEvent struct {
	DeltaTicks uint32
	Message    Message
}

// NoOpEvent is delivered when playback reaches a no-op written with WriteNoOp, or a
// meta event when the stream was opened with WithMetaNoOps.
type NoOpEvent struct {
	Data     uint32   // Payload given to WriteNoOp.
	Meta     bool     // The no-op stands for a suppressed meta event.
	MetaType MetaType // Set when Meta is true.
}
