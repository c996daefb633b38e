package timespan

import (
	"fmt"
	"math"
	"math/big"
)

// Add sums two spans. Spans of the same kind produce that kind; otherwise the
// result is a MathTimeSpan resolved lazily against a tempo map.
func Add(a, b TimeSpan) (TimeSpan, error) {
	if err := validate(a, b); err != nil {
		return nil, err
	}
	switch x := a.(type) {
	case MidiTimeSpan:
		if y, ok := b.(MidiTimeSpan); ok {
			return MidiTimeSpan{Ticks: x.Ticks + y.Ticks}, nil
		}
	case MetricTimeSpan:
		if y, ok := b.(MetricTimeSpan); ok {
			return MetricFromMilliseconds(x.TotalMilliseconds() + y.TotalMilliseconds())
		}
	case BarBeatTimeSpan:
		if y, ok := b.(BarBeatTimeSpan); ok {
			return BarBeatTimeSpan{Bars: x.Bars + y.Bars, Beats: x.Beats + y.Beats, Ticks: x.Ticks + y.Ticks}, nil
		}
	case MusicalTimeSpan:
		if y, ok := b.(MusicalTimeSpan); ok {
			return musicalFromRat(new(big.Rat).Add(x.rat(), y.rat()))
		}
	}
	return MathTimeSpan{First: a, Second: b, Operation: OperationAdd}, nil
}

// Subtract returns a minus b. For spans of the same kind a negative result is an
// ErrInvalidArgument; mixed kinds produce a MathTimeSpan.
func Subtract(a, b TimeSpan) (TimeSpan, error) {
	if err := validate(a, b); err != nil {
		return nil, err
	}
	switch x := a.(type) {
	case MidiTimeSpan:
		if y, ok := b.(MidiTimeSpan); ok {
			return NewMidiTimeSpan(x.Ticks - y.Ticks)
		}
	case MetricTimeSpan:
		if y, ok := b.(MetricTimeSpan); ok {
			return MetricFromMilliseconds(x.TotalMilliseconds() - y.TotalMilliseconds())
		}
	case BarBeatTimeSpan:
		if y, ok := b.(BarBeatTimeSpan); ok {
			return NewBarBeatTimeSpan(x.Bars-y.Bars, x.Beats-y.Beats, x.Ticks-y.Ticks)
		}
	case MusicalTimeSpan:
		if y, ok := b.(MusicalTimeSpan); ok {
			return musicalFromRat(new(big.Rat).Sub(x.rat(), y.rat()))
		}
	}
	return MathTimeSpan{First: a, Second: b, Operation: OperationSubtract}, nil
}

// Multiply stretches a span by a non-negative factor, rounding to the nearest unit.
func Multiply(s TimeSpan, multiplier float64) (TimeSpan, error) {
	if multiplier < 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return nil, fmt.Errorf("%w: multiplier %v", ErrInvalidArgument, multiplier)
	}
	return scale(s, multiplier)
}

// Divide shrinks a span by a positive divisor, rounding to the nearest unit.
func Divide(s TimeSpan, divisor float64) (TimeSpan, error) {
	if divisor <= 0 || math.IsNaN(divisor) || math.IsInf(divisor, 0) {
		return nil, fmt.Errorf("%w: divisor %v", ErrInvalidArgument, divisor)
	}
	return scale(s, 1/divisor)
}

func scale(s TimeSpan, k float64) (TimeSpan, error) {
	if err := validate(s); err != nil {
		return nil, err
	}
	round := func(v int64) int64 { return int64(math.Round(float64(v) * k)) }
	switch x := s.(type) {
	case MidiTimeSpan:
		return NewMidiTimeSpan(round(x.Ticks))
	case MetricTimeSpan:
		return MetricFromMilliseconds(round(x.TotalMilliseconds()))
	case BarBeatTimeSpan:
		return NewBarBeatTimeSpan(round(x.Bars), round(x.Beats), round(x.Ticks))
	case MusicalTimeSpan:
		factor := new(big.Rat)
		if factor.SetFloat64(k) == nil {
			return nil, fmt.Errorf("%w: factor %v", ErrInvalidArgument, k)
		}
		return musicalFromRat(factor.Mul(factor, x.rat()))
	}
	return nil, fmt.Errorf("%w: scaling %v", ErrNotSupported, s.Kind())
}

// Compare orders two spans of the same kind, returning -1, 0 or +1.
func Compare(a, b TimeSpan) (int, error) {
	if err := validate(a, b); err != nil {
		return 0, err
	}
	var x, y int64
	switch s := a.(type) {
	case MidiTimeSpan:
		t, ok := b.(MidiTimeSpan)
		if !ok {
			break
		}
		x, y = s.Ticks, t.Ticks
	case MetricTimeSpan:
		t, ok := b.(MetricTimeSpan)
		if !ok {
			break
		}
		x, y = s.TotalMilliseconds(), t.TotalMilliseconds()
	case BarBeatTimeSpan:
		t, ok := b.(BarBeatTimeSpan)
		if !ok {
			break
		}
		if s.Bars != t.Bars {
			x, y = s.Bars, t.Bars
		} else if s.Beats != t.Beats {
			x, y = s.Beats, t.Beats
		} else {
			x, y = s.Ticks, t.Ticks
		}
	case MusicalTimeSpan:
		t, ok := b.(MusicalTimeSpan)
		if !ok {
			break
		}
		return s.rat().Cmp(t.rat()), nil
	}
	if a.Kind() != b.Kind() || a.Kind() == KindMath {
		return 0, fmt.Errorf("%w: comparing %v with %v", ErrNotSupported, a.Kind(), b.Kind())
	}
	switch {
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	}
	return 0, nil
}

func (s MusicalTimeSpan) rat() *big.Rat {
	return big.NewRat(s.Numerator, s.Denominator)
}

func musicalFromRat(r *big.Rat) (TimeSpan, error) {
	if r.Sign() < 0 {
		return nil, fmt.Errorf("%w: result %v is negative", ErrInvalidArgument, r)
	}
	if !r.Num().IsInt64() || !r.Denom().IsInt64() {
		return nil, fmt.Errorf("%w: result %v overflows", ErrInvalidArgument, r)
	}
	return MusicalTimeSpan{Numerator: r.Num().Int64(), Denominator: r.Denom().Int64()}, nil
}

// validate checks the invariants of spans built as struct literals.
func validate(spans ...TimeSpan) error {
	for _, ts := range spans {
		var err error
		switch s := ts.(type) {
		case nil:
			err = nilArgument("time span")
		case MidiTimeSpan:
			_, err = NewMidiTimeSpan(s.Ticks)
		case MetricTimeSpan:
			_, err = NewMetricTimeSpan(s.Hours, s.Minutes, s.Seconds, s.Milliseconds)
		case BarBeatTimeSpan:
			_, err = NewBarBeatTimeSpan(s.Bars, s.Beats, s.Ticks)
		case MusicalTimeSpan:
			_, err = NewMusicalTimeSpan(s.Numerator, s.Denominator)
		case MathTimeSpan:
			err = validate(s.First, s.Second)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
