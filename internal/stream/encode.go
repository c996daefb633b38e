package stream

import (
	"encoding/binary"
	"fmt"

	"github.com/leandrodaf/midistream/sdk/contracts"
)

// Event types stored in the high byte of a record's event word.
const (
	EventShortMsg byte = 0x00
	EventTempo    byte = 0x01
	EventNop      byte = 0x02
	EventLongMsg  byte = 0x80
	EventComment  byte = 0x82
	EventVersion  byte = 0x84

	// EventCallback is or-ed into the event type to raise PositionReached.
	EventCallback byte = 0x40
)

const (
	// RecordSize is the length of a record without its long-message payload.
	RecordSize = 12

	eventWordOffset = 8
	eventTypeIndex  = 11
	parameterMask   = 0x00FFFFFF

	// MaxNoOpData is the largest payload WriteNoOp accepts.
	MaxNoOpData uint32 = parameterMask
	// MaxMetaStreamNoOpData is the limit on streams that surface meta events,
	// where bit 23 marks the no-ops standing for them.
	MaxMetaStreamNoOpData uint32 = 1<<23 - 1
	metaNoOpFlag          uint32 = 1 << 23
)

func appendRecord(buf []byte, delta, streamID uint32, eventType byte, parameter uint32) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, delta)
	buf = binary.LittleEndian.AppendUint32(buf, streamID)
	return binary.LittleEndian.AppendUint32(buf, parameter&parameterMask|uint32(eventType)<<24)
}

// appendLongRecord writes a long-message record followed by data padded with
// zeros to a 4-byte boundary.
func appendLongRecord(buf []byte, delta, streamID uint32, data []byte) ([]byte, error) {
	if len(data) > parameterMask {
		return buf, fmt.Errorf("%w: long message of %d bytes", contracts.ErrInvalidArgument, len(data))
	}
	buf = appendRecord(buf, delta, streamID, EventLongMsg, uint32(len(data)))
	buf = append(buf, data...)
	for i := 0; i < padding(len(data)); i++ {
		buf = append(buf, 0)
	}
	return buf, nil
}

func padding(n int) int {
	return (4 - n%4) % 4
}

func noOpParameter(ev contracts.NoOpEvent) uint32 {
	if ev.Meta {
		return metaNoOpFlag | uint32(ev.MetaType)
	}
	return ev.Data & parameterMask
}

// Record is a decoded stream record.
type Record struct {
	Delta     uint32
	StreamID  uint32
	Type      byte // event type without EventCallback
	Callback  bool
	Parameter uint32
	// Payload holds the message bytes of an EventLongMsg record, without padding.
	Payload []byte
}

// ReadRecord decodes the record at the start of data and returns it with the
// number of bytes it occupies, padding included.
func ReadRecord(data []byte) (Record, int, error) {
	if len(data) < RecordSize {
		return Record{}, 0, fmt.Errorf("%w: truncated record of %d bytes", contracts.ErrInvalidArgument, len(data))
	}
	word := binary.LittleEndian.Uint32(data[eventWordOffset:])
	r := Record{
		Delta:     binary.LittleEndian.Uint32(data),
		StreamID:  binary.LittleEndian.Uint32(data[4:]),
		Type:      byte(word>>24) &^ EventCallback,
		Callback:  byte(word>>24)&EventCallback != 0,
		Parameter: word & parameterMask,
	}
	if r.Type&EventLongMsg == 0 {
		return r, RecordSize, nil
	}

	n := int(r.Parameter)
	size := RecordSize + n + padding(n)
	if len(data) < RecordSize+n {
		return Record{}, 0, fmt.Errorf("%w: long message of %d bytes overruns buffer", contracts.ErrInvalidArgument, n)
	}
	r.Payload = data[RecordSize : RecordSize+n]
	if size > len(data) {
		size = len(data)
	}
	return r, size, nil
}

// NoOp extracts the notification carried by a callback no-op record. Bit 23
// marks a meta event only when metaNoOps is set.
func (r Record) NoOp(metaNoOps bool) (contracts.NoOpEvent, bool) {
	if !r.Callback || r.Type != EventNop {
		return contracts.NoOpEvent{}, false
	}
	if metaNoOps && r.Parameter&metaNoOpFlag != 0 {
		return contracts.NoOpEvent{Meta: true, MetaType: contracts.MetaType(r.Parameter)}, true
	}
	return contracts.NoOpEvent{Data: r.Parameter}, true
}
