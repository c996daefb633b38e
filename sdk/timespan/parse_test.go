package timespan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryParse(t *testing.T) {
	tests := []struct {
		input  string
		want   TimeSpan
		status ParsingStatus
	}{
		{"480", MidiTimeSpan{Ticks: 480}, Parsed},
		{"  0 ", MidiTimeSpan{}, Parsed},
		{"1.2.120", BarBeatTimeSpan{Bars: 1, Beats: 2, Ticks: 120}, Parsed},
		{"0:1:30:250", MetricTimeSpan{Minutes: 1, Seconds: 30, Milliseconds: 250}, Parsed},
		{"1:2:3", MetricTimeSpan{Hours: 1, Minutes: 2, Seconds: 3}, Parsed},
		{"1:30", MetricTimeSpan{Minutes: 1, Seconds: 30}, Parsed},
		{"0:90", MetricTimeSpan{Minutes: 1, Seconds: 30}, Parsed},
		{"3/8", MusicalTimeSpan{Numerator: 3, Denominator: 8}, Parsed},
		{"", nil, EmptyInput},
		{"   ", nil, EmptyInput},
		{"abc", nil, NotMatched},
		{"-5", nil, NotMatched},
		{"1.2", nil, NotMatched},
		{"1:2:3:4:5", nil, NotMatched},
		{"1/0", nil, FormatError},
		{"99999999999999999999", nil, FormatError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, res := TryParse(tt.input)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.want, got)
			if tt.status == Parsed {
				assert.NoError(t, res.Err)
			} else {
				var perr *ParseError
				require.ErrorAs(t, res.Err, &perr)
				assert.Equal(t, tt.input, perr.Input)
			}
		})
	}
}

func TestParseReturnsFailure(t *testing.T) {
	_, err := Parse("not a span")
	require.ErrorIs(t, err, ErrParse)

	ts, err := Parse("2/4")
	require.NoError(t, err)
	assert.Equal(t, MusicalTimeSpan{Numerator: 2, Denominator: 4}, ts)
}

func TestStringParsesBack(t *testing.T) {
	spans := []TimeSpan{
		MidiTimeSpan{Ticks: 1234},
		MetricTimeSpan{Hours: 2, Minutes: 3, Seconds: 4, Milliseconds: 5},
		BarBeatTimeSpan{Bars: 7, Beats: 0, Ticks: 12},
		MusicalTimeSpan{Numerator: 5, Denominator: 16},
	}

	for _, s := range spans {
		got, err := Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("barbeat")
	require.NoError(t, err)
	assert.Equal(t, KindBarBeat, k)

	_, err = ParseKind("seconds")
	assert.ErrorIs(t, err, ErrInvalidKind)
}
