package timespan

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParsingStatus describes the outcome of TryParse.
type ParsingStatus int

const (
	Parsed ParsingStatus = iota
	EmptyInput
	NotMatched
	FormatError
)

// ErrParse is wrapped by every ParseError.
var ErrParse = errors.New("malformed time span")

// ParseError reports why an input could not be parsed.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v %q: %s", ErrParse, e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// ParseResult is the structured outcome of TryParse. Err is nil when Status is Parsed.
type ParseResult struct {
	Status ParsingStatus
	Err    error
}

var (
	midiPattern    = regexp.MustCompile(`^\d+$`)
	barBeatPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)
	metricPattern  = regexp.MustCompile(`^\d+(:\d+){1,3}$`)
	musicalPattern = regexp.MustCompile(`^(\d+)/(\d+)$`)
)

// TryParse reads a time span in one of the notations:
//
//	480          ticks
//	1.2.120      bars.beats.ticks
//	0:1:30:250   hours:minutes:seconds:milliseconds (also h:m:s and m:s)
//	3/8          fraction of a whole note
//
// It never returns an error value directly; failures are described by the result.
func TryParse(input string) (TimeSpan, ParseResult) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, ParseResult{Status: EmptyInput, Err: &ParseError{Input: input, Reason: "input is empty"}}
	}

	fail := func(status ParsingStatus, reason string) (TimeSpan, ParseResult) {
		return nil, ParseResult{Status: status, Err: &ParseError{Input: input, Reason: reason}}
	}

	switch {
	case midiPattern.MatchString(s):
		ticks, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fail(FormatError, "tick count out of range")
		}
		return MidiTimeSpan{Ticks: ticks}, ParseResult{Status: Parsed}

	case barBeatPattern.MatchString(s):
		v, ok := parseInts(barBeatPattern.FindStringSubmatch(s)[1:])
		if !ok {
			return fail(FormatError, "bar, beat or tick out of range")
		}
		return BarBeatTimeSpan{Bars: v[0], Beats: v[1], Ticks: v[2]}, ParseResult{Status: Parsed}

	case metricPattern.MatchString(s):
		v, ok := parseInts(strings.Split(s, ":"))
		if !ok {
			return fail(FormatError, "component out of range")
		}
		var h, m, sec, ms int64
		switch len(v) {
		case 2:
			m, sec = v[0], v[1]
		case 3:
			h, m, sec = v[0], v[1], v[2]
		default:
			h, m, sec, ms = v[0], v[1], v[2], v[3]
		}
		ts, err := NewMetricTimeSpan(h, m, sec, ms)
		if err != nil {
			return fail(FormatError, err.Error())
		}
		return ts, ParseResult{Status: Parsed}

	case musicalPattern.MatchString(s):
		v, ok := parseInts(musicalPattern.FindStringSubmatch(s)[1:])
		if !ok {
			return fail(FormatError, "numerator or denominator out of range")
		}
		ts, err := NewMusicalTimeSpan(v[0], v[1])
		if err != nil {
			return fail(FormatError, "denominator must be positive")
		}
		return ts, ParseResult{Status: Parsed}
	}

	return fail(NotMatched, "unrecognized notation")
}

// Parse is TryParse returning the failure as an error.
func Parse(input string) (TimeSpan, error) {
	ts, res := TryParse(input)
	if res.Status != Parsed {
		return nil, res.Err
	}
	return ts, nil
}

func parseInts(parts []string) ([]int64, bool) {
	out := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
