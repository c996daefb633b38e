package timespan

import (
	"fmt"
	"math"
)

// barBeatFromTicks counts whole bars, then whole beats, then leftover ticks in
// [time, time+length). A bar or beat uses the time signature in force at its
// first tick.
func (tm *TempoMap) barBeatFromTicks(length, time int64) BarBeatTimeSpan {
	p, end := time, time+length
	bars := tm.countUnits(&p, end, tm.barLength)
	beats := tm.countUnits(&p, end, tm.beatLength)
	return BarBeatTimeSpan{Bars: bars, Beats: beats, Ticks: end - p}
}

func (tm *TempoMap) countUnits(p *int64, end int64, unit func(int) int64) int64 {
	var count int64
	for {
		i := tm.signatureIndex(*p)
		size := unit(i)
		n := (end - *p) / size
		if n == 0 {
			return count
		}
		if m := tm.unitsStartingIn(i, *p, size); n > m {
			n = m
		}
		count += n
		*p += n * size
	}
}

// unitsStartingIn returns how many units of size starting at p begin inside the
// i-th signature segment.
func (tm *TempoMap) unitsStartingIn(i int, p, size int64) int64 {
	segEnd := tm.signatureEnd(i)
	if segEnd == math.MaxInt64 {
		return math.MaxInt64
	}
	return ceilDiv(segEnd-p, size)
}

func (tm *TempoMap) barBeatToTicks(s BarBeatTimeSpan, time int64) int64 {
	p := time
	tm.advanceUnits(&p, s.Bars, tm.barLength)
	tm.advanceUnits(&p, s.Beats, tm.beatLength)
	return p + s.Ticks - time
}

func (tm *TempoMap) advanceUnits(p *int64, count int64, unit func(int) int64) {
	for count > 0 {
		i := tm.signatureIndex(*p)
		size := unit(i)
		n := count
		if m := tm.unitsStartingIn(i, *p, size); n > m {
			n = m
		}
		*p += n * size
		count -= n
	}
}

// barBeatBefore walks backwards from end and returns the tick where s starts.
func (tm *TempoMap) barBeatBefore(s BarBeatTimeSpan, end int64) (int64, error) {
	p := end - s.Ticks
	for _, step := range []struct {
		count int64
		unit  func(int) int64
	}{{s.Beats, tm.beatLength}, {s.Bars, tm.barLength}} {
		for n := step.count; n > 0; n-- {
			if p <= 0 {
				p = -1
				break
			}
			p -= step.unit(tm.signatureIndex(p - 1))
		}
	}
	if p < 0 {
		return 0, fmt.Errorf("%w: %v reaches before the start of the file", ErrInvalidArgument, s)
	}
	return p, nil
}
