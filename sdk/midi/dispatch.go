package midi

import (
	"context"
	"errors"

	"github.com/leandrodaf/midistream/sdk/contracts"
)

// ErrStopDispatch may be returned by a NoOp handler to end DispatchNoOps without error.
var ErrStopDispatch = errors.New("stop dispatch")

// NoOpHandler observes a NoOpOccurred notification.
type NoOpHandler func(contracts.NoOpEvent) error

// DispatchNoOps delivers notifications from ch to handler on the caller's goroutine
// until ctx is done, ch is closed, or handler returns an error. Handlers therefore
// never run on the device thread and may call back into the stream.
func DispatchNoOps(ctx context.Context, ch <-chan contracts.NoOpEvent, handler NoOpHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := handler(ev); err != nil {
				if errors.Is(err, ErrStopDispatch) {
					return nil
				}
				return err
			}
		}
	}
}
