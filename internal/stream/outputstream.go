package stream

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midistream/sdk/contracts"
)

// MinDivision is the smallest time division accepted by SetDivision.
const MinDivision = 24

type notifyTarget struct {
	ch chan<- contracts.NoOpEvent
}

// OutputStream buffers encoded events and drives a Driver. It implements
// contracts.OutputStream.
type OutputStream struct {
	logger    contracts.Logger
	metaNoOps bool
	filter    *contracts.MIDIEventFilter
	notify    atomic.Pointer[notifyTarget]

	mu          sync.Mutex
	driver      Driver
	closed      bool
	events      []byte
	offsetTicks uint32
	pending     int

	// Headers the device finished with, released by the release loop.
	doneMu     sync.Mutex
	doneQueue  []*Header
	doneSignal chan struct{}
	quit       chan struct{}
	wg         sync.WaitGroup
}

var _ contracts.OutputStream = (*OutputStream)(nil)

// Open opens a device through opener and applies the division and tempo found in opts.
func Open(opener Opener, opts *contracts.StreamOptions) (*OutputStream, error) {
	if opener == nil || opts == nil || opts.Logger == nil {
		return nil, fmt.Errorf("%w: opener, options and logger are required", contracts.ErrInvalidArgument)
	}

	s := &OutputStream{
		logger:     opts.Logger,
		metaNoOps:  opts.MetaNoOps,
		filter:     opts.MIDIEventFilter,
		doneSignal: make(chan struct{}, 1),
		quit:       make(chan struct{}),
	}
	s.Notify(opts.NoOpChannel)

	driver, err := opener(opts.DeviceID, Callbacks{
		PositionReached: s.positionReached,
		BufferDone:      s.bufferDone,
	})
	if err != nil {
		s.logger.Error("Failed to open output device", s.logger.Field().Int("deviceID", opts.DeviceID), s.logger.Field().Error("error", err))
		return nil, err
	}
	s.driver = driver

	s.wg.Add(1)
	go s.releaseLoop()

	if opts.Division > 0 {
		if err := s.SetDivision(opts.Division); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	if opts.Tempo > 0 {
		if err := s.SetTempo(opts.Tempo); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	s.logger.Info("Output stream opened", s.logger.Field().Int("deviceID", opts.DeviceID))
	return s, nil
}

// Division returns the time division in pulses per quarter note.
func (s *OutputStream) Division() (int, error) {
	v, err := s.property(PropGet|PropTimeDiv, 0)
	return int(v), err
}

// SetDivision sets the time division. ppqn must be at least MinDivision.
func (s *OutputStream) SetDivision(ppqn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return contracts.ErrDisposed
	}
	if ppqn < MinDivision {
		return fmt.Errorf("%w: division %d is below %d", contracts.ErrInvalidArgument, ppqn, MinDivision)
	}
	_, err := s.propertyLocked(PropSet|PropTimeDiv, uint32(ppqn))
	return err
}

// Tempo returns the tempo in microseconds per quarter note.
func (s *OutputStream) Tempo() (int, error) {
	v, err := s.property(PropGet|PropTempo, 0)
	return int(v), err
}

// SetTempo sets the tempo in microseconds per quarter note.
func (s *OutputStream) SetTempo(tempo int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return contracts.ErrDisposed
	}
	if tempo < 0 || tempo > parameterMask {
		return fmt.Errorf("%w: tempo %d out of range", contracts.ErrInvalidArgument, tempo)
	}
	_, err := s.propertyLocked(PropSet|PropTempo, uint32(tempo))
	return err
}

func (s *OutputStream) property(flags, value uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, contracts.ErrDisposed
	}
	return s.propertyLocked(flags, value)
}

func (s *OutputStream) propertyLocked(flags, value uint32) (uint32, error) {
	if err := s.driver.Property(flags, &value); err != nil {
		s.logger.Error("Failed to access stream property", s.logger.Field().Uint32("flags", flags), s.logger.Field().Error("error", err))
		return 0, err
	}
	return value, nil
}

// Write appends the event to the pending buffer. Meta events other than tempo
// never reach the device; their delta is carried to the next record.
func (s *OutputStream) Write(event contracts.MidiEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return contracts.ErrDisposed
	}

	delta := s.offsetTicks + event.DeltaTicks

	switch m := event.Message.(type) {
	case contracts.ShortMessage:
		if m.Kind() == contracts.KindChannel && s.filter.Blocks(m.Status) {
			s.offsetTicks = delta
			return nil
		}
		s.events = appendRecord(s.events, delta, 0, EventShortMsg, m.Word())

	case contracts.SysExMessage:
		events, err := appendLongRecord(s.events, delta, 0, m.Data)
		if err != nil {
			return err
		}
		s.events = events

	case contracts.MetaMessage:
		if tempo, ok := m.Tempo(); ok {
			s.events = appendRecord(s.events, delta, 0, EventTempo, tempo)
			break
		}
		if !s.metaNoOps {
			s.offsetTicks = delta
			return nil
		}
		ev := contracts.NoOpEvent{Meta: true, MetaType: m.Type}
		s.events = appendRecord(s.events, delta, 0, EventNop|EventCallback, noOpParameter(ev))

	case nil:
		return fmt.Errorf("%w: event has no message", contracts.ErrInvalidArgument)

	default:
		return fmt.Errorf("%w: unsupported message %T", contracts.ErrInvalidArgument, m)
	}

	s.offsetTicks = 0
	return nil
}

// WriteNoOp appends a silent record that raises a NoOpEvent carrying data once
// playback reaches it. data is limited to 24 bits, or 23 on streams opened
// with WithMetaNoOps.
func (s *OutputStream) WriteNoOp(deltaTicks, data uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return contracts.ErrDisposed
	}
	limit := MaxNoOpData
	if s.metaNoOps {
		limit = MaxMetaStreamNoOpData
	}
	if data > limit {
		return fmt.Errorf("%w: no-op data 0x%X exceeds 0x%X", contracts.ErrInvalidArgument, data, limit)
	}

	s.events = appendRecord(s.events, s.offsetTicks+deltaTicks, 0, EventNop|EventCallback, noOpParameter(contracts.NoOpEvent{Data: data}))
	s.offsetTicks = 0
	return nil
}

// Flush prepares the pending buffer, submits it and starts a new one. If
// submission fails the prepared header is unprepared before the error is returned.
func (s *OutputStream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return contracts.ErrDisposed
	}
	if len(s.events) == 0 {
		return nil
	}

	h := &Header{Data: s.events}
	s.events = nil

	if err := s.driver.PrepareHeader(h); err != nil {
		s.logger.Error("Failed to prepare stream buffer", s.logger.Field().Error("error", err))
		return err
	}
	if err := s.driver.Out(h); err != nil {
		s.logger.Error("Failed to submit stream buffer", s.logger.Field().Error("error", err))
		if uerr := s.driver.UnprepareHeader(h); uerr != nil {
			s.logger.Warn("Failed to unprepare rejected buffer", s.logger.Field().Error("error", uerr))
		}
		return err
	}

	s.pending++
	s.logger.Debug("Stream buffer submitted", s.logger.Field().Int("bytes", len(h.Data)), s.logger.Field().Int("pending", s.pending))
	return nil
}

// StartPlaying starts or resumes playback.
func (s *OutputStream) StartPlaying() error {
	return s.transport("restart", Driver.Restart)
}

// PausePlaying pauses playback; StartPlaying resumes from the same position.
func (s *OutputStream) PausePlaying() error {
	return s.transport("pause", Driver.Pause)
}

// StopPlaying stops playback and returns all submitted buffers.
func (s *OutputStream) StopPlaying() error {
	return s.transport("stop", Driver.Stop)
}

func (s *OutputStream) transport(name string, call func(Driver) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return contracts.ErrDisposed
	}
	if err := call(s.driver); err != nil {
		s.logger.Error("Transport call failed", s.logger.Field().String("op", name), s.logger.Field().Error("error", err))
		return err
	}
	s.logger.Debug("Transport call", s.logger.Field().String("op", name))
	return nil
}

// GetTime returns the playback position. The device may answer in another unit;
// the returned Time.Type says which.
func (s *OutputStream) GetTime(timeType contracts.TimeType) (contracts.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return contracts.Time{}, contracts.ErrDisposed
	}
	t := contracts.Time{Type: timeType}
	if err := s.driver.Position(&t); err != nil {
		return contracts.Time{}, err
	}
	return t, nil
}

// Reset drops unflushed events and silences the device.
func (s *OutputStream) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return contracts.ErrDisposed
	}
	s.events = nil
	s.offsetTicks = 0
	return s.driver.Reset()
}

// PendingBuffers returns the number of submitted buffers the device still holds.
func (s *OutputStream) PendingBuffers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Notify replaces the channel receiving NoOpEvents. Sends never block: when ch
// is full the notification is dropped and a warning logged.
func (s *OutputStream) Notify(ch chan<- contracts.NoOpEvent) {
	if ch == nil {
		s.notify.Store(nil)
		return
	}
	s.notify.Store(&notifyTarget{ch: ch})
}

// Close resets the device, releases every buffer and closes the driver. When the
// driver refuses to close, typically because buffers are still being returned,
// the stream stays open and Close may be called again.
func (s *OutputStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.events = nil
	s.offsetTicks = 0
	err := s.driver.Reset()
	s.releaseDoneLocked()
	if cerr := s.driver.Close(); cerr != nil {
		pending := s.pending
		s.mu.Unlock()
		s.logger.Error("Failed to close output device", s.logger.Field().Int("pending", pending), s.logger.Field().Error("error", cerr))
		return cerr
	}
	s.closed = true
	close(s.quit)
	s.mu.Unlock()

	s.wg.Wait()
	s.notify.Store(nil)

	if err != nil {
		s.logger.Error("Output stream closed with error", s.logger.Field().Error("error", err))
		return err
	}
	s.logger.Info("Output stream closed")
	return nil
}

// positionReached runs on the driver thread.
func (s *OutputStream) positionReached(record []byte) {
	r, _, err := ReadRecord(record)
	if err != nil {
		return
	}
	ev, ok := r.NoOp(s.metaNoOps)
	if !ok {
		return
	}
	target := s.notify.Load()
	if target == nil {
		return
	}
	select {
	case target.ch <- ev:
	default:
		s.logger.Warn("NoOp channel is full, notification dropped", s.logger.Field().Uint32("data", ev.Data))
	}
}

// bufferDone runs on the driver thread and only queues the header.
func (s *OutputStream) bufferDone(h *Header) {
	s.doneMu.Lock()
	s.doneQueue = append(s.doneQueue, h)
	s.doneMu.Unlock()

	select {
	case s.doneSignal <- struct{}{}:
	default:
	}
}

func (s *OutputStream) releaseLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case <-s.doneSignal:
			s.mu.Lock()
			if !s.closed {
				s.releaseDoneLocked()
			}
			s.mu.Unlock()
		}
	}
}

func (s *OutputStream) releaseDoneLocked() {
	s.doneMu.Lock()
	queue := s.doneQueue
	s.doneQueue = nil
	s.doneMu.Unlock()

	for _, h := range queue {
		if err := s.driver.UnprepareHeader(h); err != nil {
			s.logger.Warn("Failed to unprepare played buffer", s.logger.Field().Error("error", err))
		}
		if s.pending > 0 {
			s.pending--
		}
	}
}
