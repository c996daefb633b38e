package contracts

// TimeType selects the unit of a playback position query.
type TimeType uint32

const (
	TimeMilliseconds TimeType = 0x0001
	TimeSamples      TimeType = 0x0002
	TimeBytes        TimeType = 0x0004
	TimeSMPTE        TimeType = 0x0008
	TimeMIDI         TimeType = 0x0010
	TimeTicks        TimeType = 0x0020
)

// SMPTE is a timecode position.
type SMPTE struct {
	Hour, Minute, Second, Frame, FPS byte
}

// Time is a playback position. The device may answer in a different unit than the
// one requested; Type always tells which field is meaningful.
type Time struct {
	Type  TimeType
	Value uint32 // Milliseconds, samples, bytes, song position or ticks.
	SMPTE SMPTE
}
