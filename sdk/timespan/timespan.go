// Package timespan converts between absolute tick positions or lengths and symbolic
// time span representations (ticks, wall-clock time, bars and beats, note fractions)
// using a TempoMap.
//
// Lengths are always converted relative to a start time because a span may cross
// tempo or time signature changes.
package timespan

import (
	"fmt"
	"strconv"
)

// Kind identifies a time span representation.
type Kind int

const (
	KindMidi Kind = iota + 1
	KindMetric
	KindBarBeat
	KindMusical
	KindMath
)

var kindNames = map[Kind]string{
	KindMidi:    "midi",
	KindMetric:  "metric",
	KindBarBeat: "barbeat",
	KindMusical: "musical",
	KindMath:    "math",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind resolves a kind from its name as returned by Kind.String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidKind, name)
}

// TimeSpan is implemented by MidiTimeSpan, MetricTimeSpan, BarBeatTimeSpan,
// MusicalTimeSpan and MathTimeSpan only.
type TimeSpan interface {
	Kind() Kind
	String() string
	isTimeSpan()
}

// MidiTimeSpan is a span measured in ticks.
type MidiTimeSpan struct {
	Ticks int64
}

// NewMidiTimeSpan returns a MidiTimeSpan, rejecting negative values.
func NewMidiTimeSpan(ticks int64) (MidiTimeSpan, error) {
	if ticks < 0 {
		return MidiTimeSpan{}, negativeArgument("ticks", ticks)
	}
	return MidiTimeSpan{Ticks: ticks}, nil
}

func (MidiTimeSpan) Kind() Kind { return KindMidi }
func (MidiTimeSpan) isTimeSpan() {}
func (s MidiTimeSpan) String() string { return strconv.FormatInt(s.Ticks, 10) }

// MetricTimeSpan is a span of wall-clock time. Values built with NewMetricTimeSpan
// or MetricFromMilliseconds are normalized (minutes and seconds below 60,
// milliseconds below 1000).
type MetricTimeSpan struct {
	Hours        int64
	Minutes      int64
	Seconds      int64
	Milliseconds int64
}

// NewMetricTimeSpan normalizes the components into a MetricTimeSpan.
func NewMetricTimeSpan(hours, minutes, seconds, milliseconds int64) (MetricTimeSpan, error) {
	for name, v := range map[string]int64{"hours": hours, "minutes": minutes, "seconds": seconds, "milliseconds": milliseconds} {
		if v < 0 {
			return MetricTimeSpan{}, negativeArgument(name, v)
		}
	}
	return MetricFromMilliseconds(((hours*60+minutes)*60+seconds)*1000 + milliseconds)
}

// MetricFromMilliseconds builds a normalized MetricTimeSpan.
func MetricFromMilliseconds(total int64) (MetricTimeSpan, error) {
	if total < 0 {
		return MetricTimeSpan{}, negativeArgument("milliseconds", total)
	}
	return MetricTimeSpan{
		Hours:        total / 3600000,
		Minutes:      total / 60000 % 60,
		Seconds:      total / 1000 % 60,
		Milliseconds: total % 1000,
	}, nil
}

// TotalMilliseconds returns the span length in milliseconds.
func (s MetricTimeSpan) TotalMilliseconds() int64 {
	return ((s.Hours*60+s.Minutes)*60+s.Seconds)*1000 + s.Milliseconds
}

func (MetricTimeSpan) Kind() Kind { return KindMetric }
func (MetricTimeSpan) isTimeSpan() {}
func (s MetricTimeSpan) String() string {
	n, _ := MetricFromMilliseconds(s.TotalMilliseconds())
	return fmt.Sprintf("%d:%d:%d:%d", n.Hours, n.Minutes, n.Seconds, n.Milliseconds)
}

// BarBeatTimeSpan is a span of whole bars, whole beats and remaining ticks.
type BarBeatTimeSpan struct {
	Bars  int64
	Beats int64
	Ticks int64
}

// NewBarBeatTimeSpan rejects negative components.
func NewBarBeatTimeSpan(bars, beats, ticks int64) (BarBeatTimeSpan, error) {
	switch {
	case bars < 0:
		return BarBeatTimeSpan{}, negativeArgument("bars", bars)
	case beats < 0:
		return BarBeatTimeSpan{}, negativeArgument("beats", beats)
	case ticks < 0:
		return BarBeatTimeSpan{}, negativeArgument("ticks", ticks)
	}
	return BarBeatTimeSpan{Bars: bars, Beats: beats, Ticks: ticks}, nil
}

func (BarBeatTimeSpan) Kind() Kind { return KindBarBeat }
func (BarBeatTimeSpan) isTimeSpan() {}
func (s BarBeatTimeSpan) String() string {
	return fmt.Sprintf("%d.%d.%d", s.Bars, s.Beats, s.Ticks)
}

// MusicalTimeSpan is a fraction of a whole note, e.g. 1/4 for a quarter note.
type MusicalTimeSpan struct {
	Numerator   int64
	Denominator int64
}

// NewMusicalTimeSpan rejects a negative numerator or a non-positive denominator.
func NewMusicalTimeSpan(numerator, denominator int64) (MusicalTimeSpan, error) {
	if numerator < 0 {
		return MusicalTimeSpan{}, negativeArgument("numerator", numerator)
	}
	if denominator <= 0 {
		return MusicalTimeSpan{}, fmt.Errorf("%w: denominator must be positive (%d)", ErrInvalidArgument, denominator)
	}
	return MusicalTimeSpan{Numerator: numerator, Denominator: denominator}, nil
}

func (MusicalTimeSpan) Kind() Kind { return KindMusical }
func (MusicalTimeSpan) isTimeSpan() {}
func (s MusicalTimeSpan) String() string {
	return fmt.Sprintf("%d/%d", s.Numerator, s.Denominator)
}

func (s MusicalTimeSpan) reduce() MusicalTimeSpan {
	if g := gcd(s.Numerator, s.Denominator); g > 1 {
		return MusicalTimeSpan{Numerator: s.Numerator / g, Denominator: s.Denominator / g}
	}
	return s
}

// MathOperation combines the operands of a MathTimeSpan.
type MathOperation int

const (
	OperationAdd MathOperation = iota + 1
	OperationSubtract
)

// MathTimeSpan is the deferred sum or difference of two spans of different kinds.
// It can be resolved to ticks but nothing converts into it.
type MathTimeSpan struct {
	First     TimeSpan
	Second    TimeSpan
	Operation MathOperation
}

func (MathTimeSpan) Kind() Kind { return KindMath }
func (MathTimeSpan) isTimeSpan() {}
func (s MathTimeSpan) String() string {
	op := "+"
	if s.Operation == OperationSubtract {
		op = "-"
	}
	return fmt.Sprintf("(%v %s %v)", s.First, op, s.Second)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
