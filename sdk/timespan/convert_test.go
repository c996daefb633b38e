package timespan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantMap(t *testing.T, tpq, tempo int64) *TempoMap {
	t.Helper()
	tm, err := NewTempoMap(tpq, []TempoChange{{Tick: 0, MicrosecondsPerQuarterNote: tempo}}, nil)
	require.NoError(t, err)
	return tm
}

func TestNewTempoMapValidation(t *testing.T) {
	tests := []struct {
		name       string
		tpq        int64
		tempos     []TempoChange
		signatures []TimeSignatureChange
	}{
		{"zero resolution", 0, nil, nil},
		{"zero tempo", 480, []TempoChange{{Tick: 0, MicrosecondsPerQuarterNote: 0}}, nil},
		{"negative tick", 480, []TempoChange{{Tick: -1, MicrosecondsPerQuarterNote: 500000}}, nil},
		{"duplicate tick", 480, []TempoChange{{Tick: 10, MicrosecondsPerQuarterNote: 500000}, {Tick: 10, MicrosecondsPerQuarterNote: 400000}}, nil},
		{"descending", 480, []TempoChange{{Tick: 20, MicrosecondsPerQuarterNote: 500000}, {Tick: 10, MicrosecondsPerQuarterNote: 400000}}, nil},
		{"denominator not power of two", 480, nil, []TimeSignatureChange{{Tick: 0, Numerator: 4, Denominator: 3}}},
		{"zero numerator", 480, nil, []TimeSignatureChange{{Tick: 0, Numerator: 0, Denominator: 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTempoMap(tt.tpq, tt.tempos, tt.signatures)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestNewTempoMapDefaults(t *testing.T) {
	tm, err := NewTempoMap(96, []TempoChange{{Tick: 100, MicrosecondsPerQuarterNote: 250000}}, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultMicrosecondsPerQuarterNote, tm.TempoAt(0))
	assert.Equal(t, DefaultMicrosecondsPerQuarterNote, tm.TempoAt(99))
	assert.Equal(t, int64(250000), tm.TempoAt(100))
	assert.Len(t, tm.TempoChanges(), 2)
	assert.Equal(t, TimeSignatureChange{Tick: 0, Numerator: 4, Denominator: 4}, tm.TimeSignatureAt(5000))
}

func TestConvertLengthToMetricConstantTempo(t *testing.T) {
	tm := constantMap(t, 480, 500000)

	tests := []struct {
		length int64
		want   int64
	}{
		{0, 0},
		{960, 1000},
		{100, 104}, // 104.1666
		{1, 1},     // 1.0416
		{12, 13},   // 12.5 rounds up
		{480 * 120, 60000},
	}

	for _, tt := range tests {
		ts, err := ConvertLengthTo(tt.length, KindMetric, 37, tm)
		require.NoError(t, err)
		metric, ok := ts.(MetricTimeSpan)
		require.True(t, ok)
		assert.Equal(t, tt.want, metric.TotalMilliseconds(), "length %d", tt.length)
	}
}

func TestMetricRoundTripConstantTempo(t *testing.T) {
	for _, tempo := range []int64{250000, 500000, 857142, 1000000} {
		tm := constantMap(t, 480, tempo)
		// One millisecond expressed in ticks, rounded up.
		tolerance := ceilDiv(480*1000, tempo)
		for _, start := range []int64{0, 1, 479, 12345} {
			for ticks := int64(0); ticks < 5000; ticks += 37 {
				ms, err := LengthTo[MetricTimeSpan](ticks, start, tm)
				require.NoError(t, err)
				back, err := ConvertLengthFrom(ms, start, tm)
				require.NoError(t, err)
				assert.InDelta(t, ticks, back, float64(tolerance), "tempo %d start %d ticks %d", tempo, start, ticks)
			}
		}
	}
}

func TestLengthAcrossTempoChange(t *testing.T) {
	tm, err := NewTempoMap(480, []TempoChange{
		{Tick: 0, MicrosecondsPerQuarterNote: 500000},
		{Tick: 960, MicrosecondsPerQuarterNote: 250000},
	}, nil)
	require.NoError(t, err)

	ms, err := LengthTo[MetricTimeSpan](960, 480, tm)
	require.NoError(t, err)
	assert.Equal(t, int64(750), ms.TotalMilliseconds())

	// The same length placed entirely after the change is shorter.
	ms, err = LengthTo[MetricTimeSpan](960, 960, tm)
	require.NoError(t, err)
	assert.Equal(t, int64(500), ms.TotalMilliseconds())

	ticks, err := ConvertLengthFrom(MetricTimeSpan{Milliseconds: 750}, 480, tm)
	require.NoError(t, err)
	assert.Equal(t, int64(960), ticks)

	pos, err := ConvertTimeTo(1440, KindMetric, tm)
	require.NoError(t, err)
	assert.Equal(t, MetricTimeSpan{Seconds: 1, Milliseconds: 250}, pos)
}

func TestBarBeatConversion(t *testing.T) {
	tm, err := NewTempoMap(480, nil, []TimeSignatureChange{
		{Tick: 0, Numerator: 4, Denominator: 4},
		{Tick: 3840, Numerator: 3, Denominator: 4},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		length int64
		time   int64
		want   BarBeatTimeSpan
	}{
		{"empty", 0, 0, BarBeatTimeSpan{}},
		{"within 4/4", 1920*1 + 480 + 10, 0, BarBeatTimeSpan{Bars: 1, Beats: 1, Ticks: 10}},
		{"across meter change", 3840 + 1440 + 480, 0, BarBeatTimeSpan{Bars: 3, Beats: 1}},
		{"starting in 3/4", 1440 * 2, 3840, BarBeatTimeSpan{Bars: 2}},
		{"less than a beat", 240, 0, BarBeatTimeSpan{Ticks: 240}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LengthTo[BarBeatTimeSpan](tt.length, tt.time, tm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := ConvertLengthFrom(got, tt.time, tm)
			require.NoError(t, err)
			assert.Equal(t, tt.length, back)
		})
	}
}

func TestBarBeatBarCrossingMeterChange(t *testing.T) {
	// The first bar starts in 4/4 and keeps its length although the meter changes inside it.
	tm, err := NewTempoMap(480, nil, []TimeSignatureChange{
		{Tick: 0, Numerator: 4, Denominator: 4},
		{Tick: 1000, Numerator: 3, Denominator: 4},
	})
	require.NoError(t, err)

	got, err := LengthTo[BarBeatTimeSpan](1920+1440, 0, tm)
	require.NoError(t, err)
	assert.Equal(t, BarBeatTimeSpan{Bars: 2}, got)
}

func TestMusicalConversion(t *testing.T) {
	tm := constantMap(t, 480, 500000)

	got, err := LengthTo[MusicalTimeSpan](720, 0, tm)
	require.NoError(t, err)
	assert.Equal(t, MusicalTimeSpan{Numerator: 3, Denominator: 8}, got)

	ticks, err := ConvertLengthFrom(MusicalTimeSpan{Numerator: 1, Denominator: 4}, 1000, tm)
	require.NoError(t, err)
	assert.Equal(t, int64(480), ticks)
}

func TestMathTimeSpanConversion(t *testing.T) {
	tm := constantMap(t, 480, 500000)

	sum, err := Add(MidiTimeSpan{Ticks: 480}, MetricTimeSpan{Seconds: 1})
	require.NoError(t, err)
	require.Equal(t, KindMath, sum.Kind())

	ticks, err := ConvertLengthFrom(sum, 0, tm)
	require.NoError(t, err)
	assert.Equal(t, int64(1440), ticks)

	diff, err := Subtract(MetricTimeSpan{Seconds: 1}, MidiTimeSpan{Ticks: 480})
	require.NoError(t, err)
	ticks, err = ConvertLengthFrom(diff, 0, tm)
	require.NoError(t, err)
	assert.Equal(t, int64(480), ticks)

	bars, err := Subtract(MidiTimeSpan{Ticks: 3840}, BarBeatTimeSpan{Bars: 1})
	require.NoError(t, err)
	ticks, err = ConvertLengthFrom(bars, 0, tm)
	require.NoError(t, err)
	assert.Equal(t, int64(1920), ticks)

	tooLong, err := Subtract(MidiTimeSpan{Ticks: 100}, MetricTimeSpan{Seconds: 1})
	require.NoError(t, err)
	_, err = ConvertLengthFrom(tooLong, 0, tm)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestConvertErrors(t *testing.T) {
	tm := constantMap(t, 480, 500000)

	_, err := ConvertLengthTo(-1, KindMidi, 0, tm)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ConvertLengthTo(10, KindMidi, -5, tm)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ConvertLengthTo(10, KindMidi, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ConvertLengthTo(10, Kind(99), 0, tm)
	assert.ErrorIs(t, err, ErrInvalidKind)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ConvertLengthTo(10, KindMath, 0, tm)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.NotErrorIs(t, err, ErrInvalidArgument)

	_, err = LengthTo[TimeSpan](10, 0, tm)
	assert.ErrorIs(t, err, ErrNotSupported)

	_, err = ConvertLengthFrom(nil, 0, tm)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ConvertLengthFrom(MidiTimeSpan{Ticks: 1}, -1, tm)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ConvertLengthFrom(MusicalTimeSpan{Numerator: 1}, 0, tm)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSymbolicStartTime(t *testing.T) {
	tm, err := NewTempoMap(480, []TempoChange{
		{Tick: 0, MicrosecondsPerQuarterNote: 500000},
		{Tick: 960, MicrosecondsPerQuarterNote: 250000},
	}, nil)
	require.NoError(t, err)

	// One second in is tick 960, where the faster tempo starts.
	ms, err := LengthToAt[MetricTimeSpan](480, MetricTimeSpan{Seconds: 1}, tm)
	require.NoError(t, err)
	assert.Equal(t, int64(250), ms.TotalMilliseconds())

	ts, err := ConvertLengthToAt(480, KindMusical, BarBeatTimeSpan{Beats: 2}, tm)
	require.NoError(t, err)
	assert.Equal(t, MusicalTimeSpan{Numerator: 1, Denominator: 4}, ts)

	ticks, err := ConvertLengthFromAt(MetricTimeSpan{Milliseconds: 250}, MidiTimeSpan{Ticks: 960}, tm)
	require.NoError(t, err)
	assert.Equal(t, int64(480), ticks)

	_, err = ConvertLengthToAt(10, KindMidi, nil, tm)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestConvertSpan(t *testing.T) {
	tm := constantMap(t, 480, 500000)

	got, err := ConvertSpan(MusicalTimeSpan{Numerator: 1, Denominator: 1}, KindMetric, 0, tm)
	require.NoError(t, err)
	assert.Equal(t, MetricTimeSpan{Seconds: 2}, got)
}
