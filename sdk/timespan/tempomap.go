package timespan

import (
	"fmt"
	"math"
	"sort"
)

// Defaults applied when a tempo map has no entry at tick 0.
const (
	DefaultMicrosecondsPerQuarterNote int64 = 500000 // 120 BPM
	DefaultNumerator                        = 4
	DefaultDenominator                      = 4
)

// TempoChange sets the tempo from Tick onwards.
type TempoChange struct {
	Tick                       int64 // Absolute tick where the tempo takes effect.
	MicrosecondsPerQuarterNote int64 // Length of a quarter note in microseconds.
}

// TimeSignatureChange sets the meter from Tick onwards.
type TimeSignatureChange struct {
	Tick        int64
	Numerator   int64
	Denominator int64 // Power of two.
}

// TempoMap holds the tempo and time signature changes of a MIDI file together with
// its resolution. It is immutable once built and safe for concurrent use.
type TempoMap struct {
	ticksPerQuarterNote int64
	tempos              []TempoChange
	signatures          []TimeSignatureChange

	// scaled[i] is the elapsed time at tempos[i].Tick expressed in
	// microseconds multiplied by ticksPerQuarterNote.
	scaled []int64
}

// NewTempoMap validates and builds a tempo map.
//
// Tempo and time signature changes must be sorted strictly ascending by tick. If the
// first entry is not at tick 0 the default tempo (120 BPM) or meter (4/4) is assumed
// before it.
func NewTempoMap(ticksPerQuarterNote int64, tempos []TempoChange, signatures []TimeSignatureChange) (*TempoMap, error) {
	if ticksPerQuarterNote <= 0 {
		return nil, fmt.Errorf("%w: ticks per quarter note must be positive (%d)", ErrInvalidArgument, ticksPerQuarterNote)
	}

	tm := &TempoMap{ticksPerQuarterNote: ticksPerQuarterNote}

	if len(tempos) == 0 || tempos[0].Tick != 0 {
		tm.tempos = append(tm.tempos, TempoChange{Tick: 0, MicrosecondsPerQuarterNote: DefaultMicrosecondsPerQuarterNote})
	}
	for i, tc := range tempos {
		if tc.Tick < 0 {
			return nil, negativeArgument("tempo change tick", tc.Tick)
		}
		if tc.MicrosecondsPerQuarterNote <= 0 {
			return nil, fmt.Errorf("%w: tempo at tick %d must be positive (%d)", ErrInvalidArgument, tc.Tick, tc.MicrosecondsPerQuarterNote)
		}
		if i > 0 && tc.Tick <= tempos[i-1].Tick {
			return nil, fmt.Errorf("%w: tempo changes are not strictly ascending at tick %d", ErrInvalidArgument, tc.Tick)
		}
		tm.tempos = append(tm.tempos, tc)
	}

	if len(signatures) == 0 || signatures[0].Tick != 0 {
		tm.signatures = append(tm.signatures, TimeSignatureChange{Tick: 0, Numerator: DefaultNumerator, Denominator: DefaultDenominator})
	}
	for i, ts := range signatures {
		if ts.Tick < 0 {
			return nil, negativeArgument("time signature tick", ts.Tick)
		}
		if ts.Numerator <= 0 || ts.Denominator <= 0 || ts.Denominator&(ts.Denominator-1) != 0 {
			return nil, fmt.Errorf("%w: invalid time signature %d/%d at tick %d", ErrInvalidArgument, ts.Numerator, ts.Denominator, ts.Tick)
		}
		if i > 0 && ts.Tick <= signatures[i-1].Tick {
			return nil, fmt.Errorf("%w: time signature changes are not strictly ascending at tick %d", ErrInvalidArgument, ts.Tick)
		}
		tm.signatures = append(tm.signatures, ts)
	}

	tm.scaled = make([]int64, len(tm.tempos))
	for i := 1; i < len(tm.tempos); i++ {
		prev := tm.tempos[i-1]
		tm.scaled[i] = tm.scaled[i-1] + (tm.tempos[i].Tick-prev.Tick)*prev.MicrosecondsPerQuarterNote
	}

	return tm, nil
}

// TicksPerQuarterNote returns the resolution of the map.
func (tm *TempoMap) TicksPerQuarterNote() int64 {
	return tm.ticksPerQuarterNote
}

// TempoChanges returns a copy of the tempo changes, including the implicit one at tick 0.
func (tm *TempoMap) TempoChanges() []TempoChange {
	return append([]TempoChange(nil), tm.tempos...)
}

// TimeSignatureChanges returns a copy of the time signature changes.
func (tm *TempoMap) TimeSignatureChanges() []TimeSignatureChange {
	return append([]TimeSignatureChange(nil), tm.signatures...)
}

// TempoAt returns the microseconds per quarter note in force at tick.
func (tm *TempoMap) TempoAt(tick int64) int64 {
	return tm.tempos[tm.tempoIndex(tick)].MicrosecondsPerQuarterNote
}

// TimeSignatureAt returns the time signature in force at tick.
func (tm *TempoMap) TimeSignatureAt(tick int64) TimeSignatureChange {
	return tm.signatures[tm.signatureIndex(tick)]
}

func (tm *TempoMap) tempoIndex(tick int64) int {
	return sort.Search(len(tm.tempos), func(i int) bool { return tm.tempos[i].Tick > tick }) - 1
}

func (tm *TempoMap) signatureIndex(tick int64) int {
	return sort.Search(len(tm.signatures), func(i int) bool { return tm.signatures[i].Tick > tick }) - 1
}

// signatureEnd returns the first tick after the i-th signature segment.
func (tm *TempoMap) signatureEnd(i int) int64 {
	if i+1 < len(tm.signatures) {
		return tm.signatures[i+1].Tick
	}
	return math.MaxInt64
}

func (tm *TempoMap) beatLength(i int) int64 {
	if l := 4 * tm.ticksPerQuarterNote / tm.signatures[i].Denominator; l > 0 {
		return l
	}
	return 1
}

func (tm *TempoMap) barLength(i int) int64 {
	return tm.signatures[i].Numerator * tm.beatLength(i)
}

// scaledMicros returns the elapsed time at tick in microseconds times the resolution.
func (tm *TempoMap) scaledMicros(tick int64) int64 {
	i := tm.tempoIndex(tick)
	return tm.scaled[i] + (tick-tm.tempos[i].Tick)*tm.tempos[i].MicrosecondsPerQuarterNote
}

// tickAtScaled is the inverse of scaledMicros, rounded to the nearest tick.
func (tm *TempoMap) tickAtScaled(target int64) int64 {
	i := sort.Search(len(tm.scaled), func(i int) bool { return tm.scaled[i] > target }) - 1
	if i < 0 {
		i = 0
	}
	tc := tm.tempos[i]
	return tc.Tick + divRound(target-tm.scaled[i], tc.MicrosecondsPerQuarterNote)
}

// divRound divides rounding half away from zero. b must be positive.
func divRound(a, b int64) int64 {
	if a < 0 {
		return -((-a + b/2) / b)
	}
	return (a + b/2) / b
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
