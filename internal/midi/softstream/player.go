// Package softstream plays stream buffers in software for devices that only accept
// raw MIDI messages. It implements stream.Driver: buffers are parsed record by
// record, delayed according to the current tempo and division, and handed to a Sink.
package softstream

import (
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/midistream/internal/stream"
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// Defaults applied when a player is created, matching stream-capable devices.
const (
	DefaultDivision = 96
	DefaultTempo    = 500000
)

// Sink receives the messages a Player emits at their scheduled time.
type Sink interface {
	Send(msg []byte) error
	Close() error
}

// SinkOpener opens the sink for an output device.
type SinkOpener func(deviceID int) (Sink, error)

// NewOpener returns a stream.Opener whose drivers play into sinks from open.
func NewOpener(open SinkOpener, logger contracts.Logger) stream.Opener {
	return func(deviceID int, callbacks stream.Callbacks) (stream.Driver, error) {
		sink, err := open(deviceID)
		if err != nil {
			return nil, err
		}
		return NewPlayer(sink, callbacks, logger), nil
	}
}

// Player is a software stream.Driver.
type Player struct {
	sink      Sink
	callbacks stream.Callbacks
	logger    contracts.Logger

	mu       sync.Mutex
	division uint32
	tempo    uint32
	prepared map[*stream.Header]bool
	queue    []*stream.Header
	offset   int           // read position in queue[0]
	loaded   bool          // the record at offset has its wait computed
	wait     time.Duration // remaining delay before the record at offset
	running  bool
	closed   bool
	ticks    uint64
	elapsed  time.Duration
	gen      uint64 // bumped by Stop and Reset; steps of older generations are not emitted

	// sendMu orders emitted steps against the all-notes-off sent by Stop and Reset.
	sendMu sync.Mutex

	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup
}

var _ stream.Driver = (*Player)(nil)

// NewPlayer starts a paused player. Call Restart to begin playback.
func NewPlayer(sink Sink, callbacks stream.Callbacks, logger contracts.Logger) *Player {
	p := &Player{
		sink:      sink,
		callbacks: callbacks,
		logger:    logger,
		division:  DefaultDivision,
		tempo:     DefaultTempo,
		prepared:  map[*stream.Header]bool{},
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Player) Property(flags uint32, value *uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return contracts.CheckResult("property", contracts.MMSysErrInvalHandle)
	}

	var target *uint32
	switch flags &^ (stream.PropGet | stream.PropSet) {
	case stream.PropTimeDiv:
		target = &p.division
	case stream.PropTempo:
		target = &p.tempo
	default:
		return contracts.CheckResult("property", contracts.MMSysErrInvalParam)
	}

	switch {
	case flags&stream.PropSet != 0 && flags&stream.PropGet != 0:
		return contracts.CheckResult("property", contracts.MMSysErrInvalFlag)
	case flags&stream.PropSet != 0:
		if target == &p.division && *value == 0 {
			return contracts.CheckResult("property", contracts.MMSysErrInvalParam)
		}
		*target = *value
	case flags&stream.PropGet != 0:
		*value = *target
	default:
		return contracts.CheckResult("property", contracts.MMSysErrInvalFlag)
	}
	return nil
}

func (p *Player) PrepareHeader(h *stream.Header) error {
	if h == nil {
		return contracts.CheckResult("prepare", contracts.MMSysErrInvalParam)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prepared[h] = true
	return nil
}

func (p *Player) UnprepareHeader(h *stream.Header) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, q := range p.queue {
		if q == h {
			return contracts.CheckResult("unprepare", contracts.MIDIErrStillPlaying)
		}
	}
	delete(p.prepared, h)
	return nil
}

func (p *Player) Out(h *stream.Header) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return contracts.CheckResult("out", contracts.MMSysErrInvalHandle)
	}
	if !p.prepared[h] {
		return contracts.CheckResult("out", contracts.MIDIErrUnprepared)
	}
	p.queue = append(p.queue, h)
	p.signal()
	return nil
}

func (p *Player) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
	p.signal()
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.signal()
	return nil
}

// Stop silences the output, rewinds and returns every queued buffer.
func (p *Player) Stop() error {
	p.returnAll()
	return nil
}

// Reset behaves like Stop; both turn all notes off.
func (p *Player) Reset() error {
	p.returnAll()
	return nil
}

// Position answers in ticks unless milliseconds are requested.
func (p *Player) Position(t *contracts.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.Type == contracts.TimeMilliseconds {
		t.Value = uint32(p.elapsed / time.Millisecond)
		return nil
	}
	t.Type = contracts.TimeTicks
	t.Value = uint32(p.ticks)
	return nil
}

// Close fails while buffers are queued, like a stream device does.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	if len(p.queue) > 0 {
		p.mu.Unlock()
		return contracts.CheckResult("close", contracts.MIDIErrStillPlaying)
	}
	p.closed = true
	p.running = false
	close(p.quit)
	p.mu.Unlock()

	p.wg.Wait()
	return p.sink.Close()
}

func (p *Player) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Player) returnAll() {
	p.mu.Lock()
	returned := p.queue
	p.queue = nil
	p.offset, p.loaded, p.wait = 0, false, 0
	p.running = false
	p.ticks, p.elapsed = 0, 0
	p.gen++
	p.signal()
	p.mu.Unlock()

	p.sendMu.Lock()
	p.allNotesOff()
	p.sendMu.Unlock()
	for _, h := range returned {
		p.bufferDone(h)
	}
}

func (p *Player) allNotesOff() {
	for ch := byte(0); ch < 16; ch++ {
		if err := p.sink.Send([]byte{0xB0 | ch, 123, 0}); err != nil {
			p.logger.Warn("Failed to send all notes off", p.logger.Field().Uint8("channel", ch), p.logger.Field().Error("error", err))
			return
		}
	}
}

func (p *Player) bufferDone(h *stream.Header) {
	if p.callbacks.BufferDone != nil {
		p.callbacks.BufferDone(h)
	}
}

// step is the unit of work of the playback loop.
type step struct {
	gen      uint64
	idle     bool
	wait     time.Duration
	done     *stream.Header
	message  []byte
	callback []byte
}

func (p *Player) run() {
	defer p.wg.Done()
	for {
		s := p.next()
		switch {
		case s.idle:
			select {
			case <-p.wake:
			case <-p.quit:
				return
			}
		case s.wait > 0:
			if !p.sleep(s.wait) {
				return
			}
		default:
			p.emit(s)
		}
	}
}

// sleep waits for d or until woken, crediting the time actually waited.
func (p *Player) sleep(d time.Duration) bool {
	start := time.Now()
	timer := time.NewTimer(d)
	defer timer.Stop()

	var quit bool
	select {
	case <-timer.C:
	case <-p.wake:
	case <-p.quit:
		quit = true
	}

	waited := time.Since(start)
	p.mu.Lock()
	if p.loaded {
		p.wait -= waited
		p.elapsed += waited
	}
	p.mu.Unlock()
	return !quit
}

func (p *Player) next() step {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running || len(p.queue) == 0 {
		return step{idle: true}
	}

	h := p.queue[0]
	if p.offset >= len(h.Data) {
		return p.finishLocked()
	}

	r, n, err := stream.ReadRecord(h.Data[p.offset:])
	if err != nil {
		p.logger.Error("Dropping malformed stream buffer", p.logger.Field().Int("offset", p.offset), p.logger.Field().Error("error", err))
		return p.finishLocked()
	}

	if !p.loaded {
		p.loaded = true
		p.wait = p.durationLocked(r.Delta)
	}
	if p.wait > 0 {
		return step{wait: p.wait}
	}

	s := step{gen: p.gen}
	if r.Callback {
		s.callback = append([]byte(nil), h.Data[p.offset:p.offset+stream.RecordSize]...)
	}
	switch r.Type {
	case stream.EventShortMsg:
		s.message = shortMessage(r.Parameter)
	case stream.EventTempo:
		p.tempo = r.Parameter
	case stream.EventLongMsg:
		s.message = append([]byte(nil), r.Payload...)
	}

	p.ticks += uint64(r.Delta)
	p.offset += n
	p.loaded, p.wait = false, 0
	return s
}

func (p *Player) finishLocked() step {
	h := p.queue[0]
	p.queue = p.queue[1:]
	p.offset, p.loaded, p.wait = 0, false, 0
	return step{gen: p.gen, done: h}
}

func (p *Player) durationLocked(delta uint32) time.Duration {
	if delta == 0 || p.division == 0 {
		return 0
	}
	micros := uint64(delta) * uint64(p.tempo) / uint64(p.division)
	return time.Duration(micros) * time.Microsecond
}

// emit drops the message and position callback of a step built before the last
// Stop or Reset. A finished buffer is still returned: it already left the queue.
func (p *Player) emit(s step) {
	p.sendMu.Lock()
	p.mu.Lock()
	current := s.gen == p.gen
	p.mu.Unlock()

	if current {
		if s.message != nil {
			if err := p.sink.Send(s.message); err != nil {
				p.logger.Error("Failed to send message", p.logger.Field().String("message", fmt.Sprintf("% X", s.message)), p.logger.Field().Error("error", err))
			}
		}
		if s.callback != nil && p.callbacks.PositionReached != nil {
			p.callbacks.PositionReached(s.callback)
		}
	}
	p.sendMu.Unlock()

	if s.done != nil {
		p.bufferDone(s.done)
	}
}

// shortMessage unpacks a short message word into its status and data bytes.
func shortMessage(word uint32) []byte {
	b := []byte{byte(word), byte(word >> 8), byte(word >> 16)}
	return b[:shortLength(b[0])]
}

func shortLength(status byte) int {
	switch {
	case status >= 0xF8, status == 0xF6:
		return 1
	case status == 0xF1, status == 0xF3:
		return 2
	case status == 0xF2:
		return 3
	case status >= 0xF0:
		return 1
	case status&0xF0 == 0xC0, status&0xF0 == 0xD0:
		return 2
	}
	return 3
}
