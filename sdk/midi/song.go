package midi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/leandrodaf/midistream/sdk/timespan"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrUnsupportedTimeFormat is returned for files timed in SMPTE frames.
var ErrUnsupportedTimeFormat = errors.New("unsupported time format")

// Song is a Standard MIDI File flattened for playback: every track merged into one
// delta-encoded event list, plus the tempo map needed to convert its positions.
type Song struct {
	Resolution int64
	TempoMap   *timespan.TempoMap
	Events     []contracts.MidiEvent
	// Length is the absolute tick of the last event.
	Length int64
}

// Duration returns the playing time of the song.
func (s *Song) Duration() (timespan.MetricTimeSpan, error) {
	return timespan.LengthTo[timespan.MetricTimeSpan](s.Length, 0, s.TempoMap)
}

// LoadFile reads a Standard MIDI File from disk.
func LoadFile(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return Load(bytes.NewReader(data))
}

type timedEvent struct {
	tick  int64
	event contracts.MidiEvent
}

// Load parses a Standard MIDI File. End-of-track events are dropped; events on
// the same tick keep their track order.
func Load(r io.Reader) (*Song, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTimeFormat, s.TimeFormat)
	}
	resolution := int64(mt.Resolution())

	tempos := map[int64]int64{}
	signatures := map[int64]timespan.TimeSignatureChange{}
	var timed []timedEvent

	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			if ev.Message.Is(smf.MetaEndOfTrackMsg) {
				continue
			}

			event, err := EventFromBytes(0, ev.Message)
			if err != nil {
				return nil, err
			}

			var num, denom uint8
			switch {
			case ev.Message.Is(smf.MetaTempoMsg):
				// GetMetaTempo only yields bpm; the map needs exact microseconds.
				if us, ok := event.Message.(contracts.MetaMessage).Tempo(); ok && us > 0 {
					tempos[tick] = int64(us)
				}
			case ev.Message.GetMetaMeter(&num, &denom):
				// denom wraps to 0 for exponents past 7
				if num > 0 && denom > 0 {
					signatures[tick] = timespan.TimeSignatureChange{Tick: tick, Numerator: int64(num), Denominator: int64(denom)}
				}
			}
			timed = append(timed, timedEvent{tick: tick, event: event})
		}
	}

	sort.SliceStable(timed, func(i, j int) bool { return timed[i].tick < timed[j].tick })

	song := &Song{Resolution: resolution, Events: make([]contracts.MidiEvent, 0, len(timed))}
	var last int64
	for _, t := range timed {
		t.event.DeltaTicks = uint32(t.tick - last)
		song.Events = append(song.Events, t.event)
		last = t.tick
	}
	song.Length = last

	song.TempoMap, err = timespan.NewTempoMap(resolution, tempoChanges(tempos), signatureChanges(signatures))
	if err != nil {
		return nil, err
	}
	return song, nil
}

func tempoChanges(byTick map[int64]int64) []timespan.TempoChange {
	changes := make([]timespan.TempoChange, 0, len(byTick))
	for tick, us := range byTick {
		changes = append(changes, timespan.TempoChange{Tick: tick, MicrosecondsPerQuarterNote: us})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Tick < changes[j].Tick })
	return changes
}

func signatureChanges(byTick map[int64]timespan.TimeSignatureChange) []timespan.TimeSignatureChange {
	changes := make([]timespan.TimeSignatureChange, 0, len(byTick))
	for _, c := range byTick {
		changes = append(changes, c)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Tick < changes[j].Tick })
	return changes
}

// EventFromBytes classifies a raw file message as a meta event, system
// exclusive data or a short message.
func EventFromBytes(delta uint32, msg []byte) (contracts.MidiEvent, error) {
	m := smf.Message(msg)
	switch {
	case len(m) == 0:
		return contracts.MidiEvent{}, fmt.Errorf("%w: empty message", contracts.ErrInvalidArgument)

	case m.IsMeta():
		meta, err := metaFromBytes(m)
		if err != nil {
			return contracts.MidiEvent{}, err
		}
		return contracts.MidiEvent{DeltaTicks: delta, Message: meta}, nil

	case m.Is(gomidi.SysExMsg):
		return contracts.MidiEvent{DeltaTicks: delta, Message: contracts.SysExMessage{Data: append([]byte(nil), msg...)}}, nil
	}

	short, err := contracts.NewShortMessage(msg)
	if err != nil {
		return contracts.MidiEvent{}, err
	}
	return contracts.MidiEvent{DeltaTicks: delta, Message: short}, nil
}

// metaFromBytes copies the payload of a meta event: 0xFF, type, variable-length
// size, data. smf keeps the payload accessor private, so the size is read here.
func metaFromBytes(m smf.Message) (contracts.MetaMessage, error) {
	if len(m) < 2 {
		return contracts.MetaMessage{}, fmt.Errorf("%w: truncated meta event", contracts.ErrInvalidArgument)
	}
	size, n, err := readVarLen(m[2:])
	if err != nil {
		return contracts.MetaMessage{}, err
	}
	data := m[2+n:]
	if uint64(len(data)) < size {
		return contracts.MetaMessage{}, fmt.Errorf("%w: meta event 0x%02X truncated", contracts.ErrInvalidArgument, m[1])
	}
	meta := contracts.MetaMessage{Type: contracts.MetaType(m[1])}
	if size > 0 {
		meta.Data = append([]byte(nil), data[:size]...)
	}
	return meta, nil
}

func readVarLen(b []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < len(b) && i < 4; i++ {
		v = v<<7 | uint64(b[i]&0x7F)
		if b[i]&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: malformed variable-length quantity", contracts.ErrInvalidArgument)
}
