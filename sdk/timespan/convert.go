package timespan

import "fmt"

// ConvertLengthTo converts length ticks, starting at absolute tick time, into the
// representation identified by kind.
//
// Returns:
//   - ErrInvalidArgument if length or time is negative or tm is nil.
//   - ErrInvalidKind if kind is unknown.
//   - ErrNotSupported if kind has no conversion rule (KindMath).
func ConvertLengthTo(length int64, kind Kind, time int64, tm *TempoMap) (TimeSpan, error) {
	if length < 0 {
		return nil, negativeArgument("length", length)
	}
	if !kind.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(kind))
	}
	if time < 0 {
		return nil, negativeArgument("time", time)
	}
	if tm == nil {
		return nil, nilArgument("tempo map")
	}
	return tm.lengthTo(length, kind, time)
}

// ConvertLengthToAt is ConvertLengthTo with the start expressed as a time span,
// resolved against tm first.
func ConvertLengthToAt(length int64, kind Kind, time TimeSpan, tm *TempoMap) (TimeSpan, error) {
	start, err := ConvertTimeFrom(time, tm)
	if err != nil {
		return nil, err
	}
	return ConvertLengthTo(length, kind, start, tm)
}

// LengthTo is the statically typed form of ConvertLengthTo:
//
//	ms, err := timespan.LengthTo[timespan.MetricTimeSpan](960, 0, tm)
func LengthTo[T TimeSpan](length, time int64, tm *TempoMap) (T, error) {
	var zero T
	if any(zero) == nil {
		return zero, fmt.Errorf("%w: target must be a concrete time span type", ErrNotSupported)
	}
	ts, err := ConvertLengthTo(length, zero.Kind(), time, tm)
	if err != nil {
		return zero, err
	}
	v, ok := ts.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T", ErrNotSupported, zero)
	}
	return v, nil
}

// LengthToAt is LengthTo with a symbolic start time.
func LengthToAt[T TimeSpan](length int64, time TimeSpan, tm *TempoMap) (T, error) {
	start, err := ConvertTimeFrom(time, tm)
	if err != nil {
		var zero T
		return zero, err
	}
	return LengthTo[T](length, start, tm)
}

// ConvertLengthFrom converts a span starting at absolute tick time into ticks.
func ConvertLengthFrom(length TimeSpan, time int64, tm *TempoMap) (int64, error) {
	if length == nil {
		return 0, nilArgument("length")
	}
	if time < 0 {
		return 0, negativeArgument("time", time)
	}
	if tm == nil {
		return 0, nilArgument("tempo map")
	}
	return tm.lengthFrom(length, time)
}

// ConvertLengthFromAt is ConvertLengthFrom with a symbolic start time.
func ConvertLengthFromAt(length, time TimeSpan, tm *TempoMap) (int64, error) {
	start, err := ConvertTimeFrom(time, tm)
	if err != nil {
		return 0, err
	}
	return ConvertLengthFrom(length, start, tm)
}

// ConvertTimeTo converts an absolute tick position into kind.
func ConvertTimeTo(time int64, kind Kind, tm *TempoMap) (TimeSpan, error) {
	if time < 0 {
		return nil, negativeArgument("time", time)
	}
	return ConvertLengthTo(time, kind, 0, tm)
}

// ConvertTimeFrom resolves a symbolic position into an absolute tick.
func ConvertTimeFrom(time TimeSpan, tm *TempoMap) (int64, error) {
	if time == nil {
		return 0, nilArgument("time")
	}
	return ConvertLengthFrom(time, 0, tm)
}

// ConvertSpan re-expresses a span starting at time in another representation.
func ConvertSpan(length TimeSpan, kind Kind, time int64, tm *TempoMap) (TimeSpan, error) {
	ticks, err := ConvertLengthFrom(length, time, tm)
	if err != nil {
		return nil, err
	}
	return ConvertLengthTo(ticks, kind, time, tm)
}

func (tm *TempoMap) lengthTo(length int64, kind Kind, time int64) (TimeSpan, error) {
	switch kind {
	case KindMidi:
		return MidiTimeSpan{Ticks: length}, nil
	case KindMetric:
		scaled := tm.scaledMicros(time+length) - tm.scaledMicros(time)
		return MetricFromMilliseconds(divRound(scaled, tm.ticksPerQuarterNote*1000))
	case KindBarBeat:
		return tm.barBeatFromTicks(length, time), nil
	case KindMusical:
		return MusicalTimeSpan{Numerator: length, Denominator: 4 * tm.ticksPerQuarterNote}.reduce(), nil
	}
	return nil, fmt.Errorf("%w: conversion to %v", ErrNotSupported, kind)
}

func (tm *TempoMap) lengthFrom(length TimeSpan, time int64) (int64, error) {
	switch s := length.(type) {
	case MidiTimeSpan:
		if s.Ticks < 0 {
			return 0, negativeArgument("ticks", s.Ticks)
		}
		return s.Ticks, nil
	case MetricTimeSpan:
		ms := s.TotalMilliseconds()
		if ms < 0 {
			return 0, negativeArgument("milliseconds", ms)
		}
		target := tm.scaledMicros(time) + ms*1000*tm.ticksPerQuarterNote
		return tm.tickAtScaled(target) - time, nil
	case BarBeatTimeSpan:
		if _, err := NewBarBeatTimeSpan(s.Bars, s.Beats, s.Ticks); err != nil {
			return 0, err
		}
		return tm.barBeatToTicks(s, time), nil
	case MusicalTimeSpan:
		if _, err := NewMusicalTimeSpan(s.Numerator, s.Denominator); err != nil {
			return 0, err
		}
		return divRound(s.Numerator*4*tm.ticksPerQuarterNote, s.Denominator), nil
	case MathTimeSpan:
		return tm.mathFrom(s, time)
	}
	return 0, fmt.Errorf("%w: conversion from %T", ErrNotSupported, length)
}

func (tm *TempoMap) mathFrom(s MathTimeSpan, time int64) (int64, error) {
	if s.First == nil || s.Second == nil {
		return 0, nilArgument("math time span operand")
	}
	first, err := tm.lengthFrom(s.First, time)
	if err != nil {
		return 0, err
	}
	switch s.Operation {
	case OperationAdd:
		second, err := tm.lengthFrom(s.Second, time+first)
		if err != nil {
			return 0, err
		}
		return first + second, nil
	case OperationSubtract:
		second, err := tm.lengthBefore(s.Second, time+first)
		if err != nil {
			return 0, err
		}
		if second > first {
			return 0, fmt.Errorf("%w: subtrahend %v is longer than %v", ErrInvalidArgument, s.Second, s.First)
		}
		return first - second, nil
	}
	return 0, fmt.Errorf("%w: math operation %d", ErrNotSupported, int(s.Operation))
}

// lengthBefore converts a span that ends at absolute tick end into ticks.
func (tm *TempoMap) lengthBefore(length TimeSpan, end int64) (int64, error) {
	switch s := length.(type) {
	case MetricTimeSpan:
		target := tm.scaledMicros(end) - s.TotalMilliseconds()*1000*tm.ticksPerQuarterNote
		if target < 0 {
			return 0, fmt.Errorf("%w: %v reaches before the start of the file", ErrInvalidArgument, s)
		}
		return end - tm.tickAtScaled(target), nil
	case BarBeatTimeSpan:
		start, err := tm.barBeatBefore(s, end)
		if err != nil {
			return 0, err
		}
		return end - start, nil
	case MathTimeSpan:
		if s.First == nil || s.Second == nil {
			return 0, nilArgument("math time span operand")
		}
		switch s.Operation {
		case OperationAdd:
			second, err := tm.lengthBefore(s.Second, end)
			if err != nil {
				return 0, err
			}
			first, err := tm.lengthBefore(s.First, end-second)
			if err != nil {
				return 0, err
			}
			return first + second, nil
		case OperationSubtract:
			first, err := tm.lengthBefore(s.First, end)
			if err != nil {
				return 0, err
			}
			second, err := tm.lengthFrom(s.Second, end-first)
			if err != nil {
				return 0, err
			}
			if second > first {
				return 0, fmt.Errorf("%w: subtrahend %v is longer than %v", ErrInvalidArgument, s.Second, s.First)
			}
			return first - second, nil
		}
		return 0, fmt.Errorf("%w: math operation %d", ErrNotSupported, int(s.Operation))
	}

	// Tick and note-fraction spans do not depend on position.
	ticks, err := tm.lengthFrom(length, 0)
	if err != nil {
		return 0, err
	}
	if ticks > end {
		return 0, fmt.Errorf("%w: %v reaches before the start of the file", ErrInvalidArgument, length)
	}
	return ticks, nil
}
