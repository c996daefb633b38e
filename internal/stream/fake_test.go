package stream

import (
	"sync"

	"github.com/leandrodaf/midistream/sdk/contracts"
)

// fakeDriver records every call and returns the error configured for an op.
type fakeDriver struct {
	mu         sync.Mutex
	callbacks  Callbacks
	props      map[uint32]uint32
	errs       map[string]error
	calls      []string
	submitted  []*Header
	prepared   map[*Header]bool
	unprepared []*Header
	position   contracts.Time
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		props:    map[uint32]uint32{PropTimeDiv: 96, PropTempo: 500000},
		errs:     map[string]error{},
		prepared: map[*Header]bool{},
	}
}

func (f *fakeDriver) opener() Opener {
	return func(deviceID int, cb Callbacks) (Driver, error) {
		if err := f.errs["open"]; err != nil {
			return nil, err
		}
		f.callbacks = cb
		return f, nil
	}
}

func (f *fakeDriver) fail(op string, code uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = contracts.CheckResult(op, code)
}

func (f *fakeDriver) succeed(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.errs, op)
}

func (f *fakeDriver) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeDriver) Property(flags uint32, value *uint32) error {
	if err := f.record("property"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := flags &^ (PropGet | PropSet)
	if flags&PropSet != 0 {
		f.props[key] = *value
	} else {
		*value = f.props[key]
	}
	return nil
}

func (f *fakeDriver) PrepareHeader(h *Header) error {
	if err := f.record("prepare"); err != nil {
		return err
	}
	f.mu.Lock()
	f.prepared[h] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) UnprepareHeader(h *Header) error {
	if err := f.record("unprepare"); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.prepared, h)
	f.unprepared = append(f.unprepared, h)
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) Out(h *Header) error {
	if err := f.record("out"); err != nil {
		return err
	}
	f.mu.Lock()
	f.submitted = append(f.submitted, h)
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) Restart() error { return f.record("restart") }
func (f *fakeDriver) Pause() error { return f.record("pause") }
func (f *fakeDriver) Stop() error { return f.record("stop") }
func (f *fakeDriver) Reset() error { return f.record("reset") }
func (f *fakeDriver) Close() error { return f.record("close") }

func (f *fakeDriver) Position(t *contracts.Time) error {
	if err := f.record("position"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	*t = f.position
	return nil
}

func (f *fakeDriver) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeDriver) lastSubmitted() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submitted) == 0 {
		return nil
	}
	return f.submitted[len(f.submitted)-1].Data
}

func (f *fakeDriver) preparedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prepared)
}

// play simulates the device reaching every callback record of a submitted buffer.
func (f *fakeDriver) play(h *Header) {
	for off := 0; off < len(h.Data); {
		r, n, err := ReadRecord(h.Data[off:])
		if err != nil {
			return
		}
		if r.Callback {
			f.callbacks.PositionReached(h.Data[off : off+RecordSize])
		}
		off += n
	}
}
