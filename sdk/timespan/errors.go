package timespan

import (
	"errors"
	"fmt"
)

// Error definitions for time span conversion.
var (
	// ErrInvalidArgument is returned for negative lengths or times, nil tempo maps and
	// malformed operands. It is never worth retrying.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotSupported is returned when no conversion rule exists for the requested kind.
	ErrNotSupported = errors.New("not supported")
	// ErrInvalidKind is returned for a Kind value outside the known set.
	ErrInvalidKind = fmt.Errorf("%w: unknown time span kind", ErrInvalidArgument)
)

func negativeArgument(name string, value int64) error {
	return fmt.Errorf("%w: %s is negative (%d)", ErrInvalidArgument, name, value)
}

func nilArgument(name string) error {
	return fmt.Errorf("%w: %s is nil", ErrInvalidArgument, name)
}
