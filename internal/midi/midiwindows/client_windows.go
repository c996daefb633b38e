//go:build windows
// +build windows

package midiwindows

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/leandrodaf/midistream/internal/stream"
	"github.com/leandrodaf/midistream/sdk/contracts"
	"golang.org/x/sys/windows"
)

// HMIDISTRM is a winmm stream handle.
type HMIDISTRM windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
)

// Constants for MIDI output message types
const (
	MOM_OPEN       = 0x3C7 // Stream opened
	MOM_CLOSE      = 0x3C8 // Stream closed
	MOM_DONE       = 0x3C9 // Buffer played and returned
	MOM_POSITIONCB = 0x3CA // Record with the callback flag reached
)

// midiHdr mirrors MIDIHDR.
type midiHdr struct {
	lpData          uintptr
	dwBufferLength  uint32
	dwBytesRecorded uint32
	dwUser          uintptr
	dwFlags         uint32
	lpNext          uintptr
	reserved        uintptr
	dwOffset        uint32
	dwReserved      [8]uintptr
}

// midiProp mirrors MIDIPROPTIMEDIV and MIDIPROPTEMPO, which share a layout.
type midiProp struct {
	cbStruct uint32
	value    uint32
}

// mmTime mirrors MMTIME.
type mmTime struct {
	wType uint32
	u     [8]byte
}

// Struct representing MIDI output device capabilities
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// Load the winmm.dll library and required functions
var (
	winmm                      = windows.NewLazySystemDLL("winmm.dll")
	procMidiOutGetNumDevs      = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps      = winmm.NewProc("midiOutGetDevCapsW")
	procMidiStreamOpen         = winmm.NewProc("midiStreamOpen")
	procMidiStreamClose        = winmm.NewProc("midiStreamClose")
	procMidiStreamOut          = winmm.NewProc("midiStreamOut")
	procMidiStreamPause        = winmm.NewProc("midiStreamPause")
	procMidiStreamRestart      = winmm.NewProc("midiStreamRestart")
	procMidiStreamStop         = winmm.NewProc("midiStreamStop")
	procMidiStreamPosition     = winmm.NewProc("midiStreamPosition")
	procMidiStreamProperty     = winmm.NewProc("midiStreamProperty")
	procMidiOutPrepareHeader   = winmm.NewProc("midiOutPrepareHeader")
	procMidiOutUnprepareHeader = winmm.NewProc("midiOutUnprepareHeader")
	procMidiOutReset           = winmm.NewProc("midiOutReset")
)

// Callback state shared by every open stream. winmm only carries an integer
// instance value, so drivers are looked up by id.
var (
	midiOutCallbackPtr  uintptr
	midiOutCallbackOnce sync.Once
	openDrivers         sync.Map
	nextInstance        atomic.Uintptr
)

// streamDriver drives a winmm MIDI stream. It implements stream.Driver.
type streamDriver struct {
	logger    contracts.Logger
	handle    HMIDISTRM
	instance  uintptr
	callbacks stream.Callbacks

	mu      sync.Mutex
	headers map[uintptr]preparedHeader // keyed by native MIDIHDR address
}

type preparedHeader struct {
	header *stream.Header
	native *midiHdr
}

// Opener returns a stream.Opener backed by winmm.
func Opener(logger contracts.Logger) stream.Opener {
	return func(deviceID int, callbacks stream.Callbacks) (stream.Driver, error) {
		return openStream(deviceID, callbacks, logger)
	}
}

// NewOutputStream opens a winmm stream on the device selected in options.
func NewOutputStream(options *contracts.StreamOptions) (contracts.OutputStream, error) {
	options.Logger.Info("Opening winmm MIDI stream")
	return stream.Open(Opener(options.Logger), options)
}

func openStream(deviceID int, callbacks stream.Callbacks, logger contracts.Logger) (*streamDriver, error) {
	midiOutCallbackOnce.Do(func() {
		midiOutCallbackPtr = windows.NewCallback(midiOutCallback)
	})

	d := &streamDriver{
		logger:    logger,
		instance:  nextInstance.Add(1),
		callbacks: callbacks,
		headers:   map[uintptr]preparedHeader{},
	}
	openDrivers.Store(d.instance, d)

	device := uint32(deviceID)
	r1, _, _ := procMidiStreamOpen.Call(
		uintptr(unsafe.Pointer(&d.handle)),
		uintptr(unsafe.Pointer(&device)),
		1,
		midiOutCallbackPtr,
		d.instance,
		CALLBACK_FUNCTION,
	)
	if err := contracts.CheckResult("midiStreamOpen", uint32(r1)); err != nil {
		openDrivers.Delete(d.instance)
		logger.Error(fmt.Sprintf("Failed to open MIDI stream on device %d", deviceID), logger.Field().Error("error", err))
		return nil, err
	}

	logger.Info("MIDI stream opened", logger.Field().Int("deviceID", deviceID))
	return d, nil
}

// ListDevices lists the available MIDI output devices
func ListDevices(options *contracts.StreamOptions) ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		options.Logger.Warn("No MIDI output devices found")
		return nil, nil
	}

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			options.Logger.Warn(fmt.Sprintf("Failed to get information for MIDI device %d", i))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices = append(devices, contracts.DeviceInfo{
			ID:           int(i),
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
	}
	return devices, nil
}

func (d *streamDriver) call(op string, proc *windows.LazyProc, args ...uintptr) error {
	r1, _, _ := proc.Call(args...)
	return contracts.CheckResult(op, uint32(r1))
}

func (d *streamDriver) Property(flags uint32, value *uint32) error {
	prop := midiProp{value: *value}
	prop.cbStruct = uint32(unsafe.Sizeof(prop))
	if err := d.call("midiStreamProperty", procMidiStreamProperty, uintptr(d.handle), uintptr(unsafe.Pointer(&prop)), uintptr(flags)); err != nil {
		return err
	}
	*value = prop.value
	return nil
}

func (d *streamDriver) PrepareHeader(h *stream.Header) error {
	if len(h.Data) == 0 {
		return contracts.CheckResult("midiOutPrepareHeader", contracts.MMSysErrInvalParam)
	}
	hdr := &midiHdr{
		lpData:          uintptr(unsafe.Pointer(&h.Data[0])),
		dwBufferLength:  uint32(len(h.Data)),
		dwBytesRecorded: uint32(len(h.Data)),
	}
	if err := d.call("midiOutPrepareHeader", procMidiOutPrepareHeader, uintptr(d.handle), uintptr(unsafe.Pointer(hdr)), unsafe.Sizeof(*hdr)); err != nil {
		return err
	}

	h.Native = hdr
	d.mu.Lock()
	d.headers[uintptr(unsafe.Pointer(hdr))] = preparedHeader{header: h, native: hdr}
	d.mu.Unlock()
	return nil
}

func (d *streamDriver) UnprepareHeader(h *stream.Header) error {
	hdr, ok := h.Native.(*midiHdr)
	if !ok {
		return contracts.CheckResult("midiOutUnprepareHeader", contracts.MIDIErrUnprepared)
	}
	if err := d.call("midiOutUnprepareHeader", procMidiOutUnprepareHeader, uintptr(d.handle), uintptr(unsafe.Pointer(hdr)), unsafe.Sizeof(*hdr)); err != nil {
		return err
	}

	d.mu.Lock()
	delete(d.headers, uintptr(unsafe.Pointer(hdr)))
	d.mu.Unlock()
	h.Native = nil
	return nil
}

func (d *streamDriver) Out(h *stream.Header) error {
	hdr, ok := h.Native.(*midiHdr)
	if !ok {
		return contracts.CheckResult("midiStreamOut", contracts.MIDIErrUnprepared)
	}
	return d.call("midiStreamOut", procMidiStreamOut, uintptr(d.handle), uintptr(unsafe.Pointer(hdr)), unsafe.Sizeof(*hdr))
}

func (d *streamDriver) Restart() error {
	return d.call("midiStreamRestart", procMidiStreamRestart, uintptr(d.handle))
}

func (d *streamDriver) Pause() error {
	return d.call("midiStreamPause", procMidiStreamPause, uintptr(d.handle))
}

func (d *streamDriver) Stop() error {
	return d.call("midiStreamStop", procMidiStreamStop, uintptr(d.handle))
}

func (d *streamDriver) Reset() error {
	return d.call("midiOutReset", procMidiOutReset, uintptr(d.handle))
}

func (d *streamDriver) Position(t *contracts.Time) error {
	mmt := mmTime{wType: uint32(t.Type)}
	if err := d.call("midiStreamPosition", procMidiStreamPosition, uintptr(d.handle), uintptr(unsafe.Pointer(&mmt)), unsafe.Sizeof(mmt)); err != nil {
		return err
	}

	t.Type = contracts.TimeType(mmt.wType)
	if t.Type == contracts.TimeSMPTE {
		t.SMPTE = contracts.SMPTE{Hour: mmt.u[0], Minute: mmt.u[1], Second: mmt.u[2], Frame: mmt.u[3], FPS: mmt.u[4]}
		t.Value = 0
		return nil
	}
	t.Value = binary.LittleEndian.Uint32(mmt.u[:4])
	return nil
}

func (d *streamDriver) Close() error {
	if err := d.call("midiStreamClose", procMidiStreamClose, uintptr(d.handle)); err != nil {
		d.logger.Error("Failed to close MIDI stream", d.logger.Field().Error("error", err))
		return err
	}
	openDrivers.Delete(d.instance)
	d.handle = 0
	return nil
}

func (d *streamDriver) lookup(hdrAddr uintptr) (preparedHeader, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.headers[hdrAddr]
	return p, ok
}

// midiOutCallback receives stream notifications on a winmm thread
func midiOutCallback(hmo, wMsg, dwInstance, dwParam1, dwParam2 uintptr) uintptr {
	v, ok := openDrivers.Load(dwInstance)
	if !ok {
		return 0
	}
	d := v.(*streamDriver)

	switch wMsg {
	case MOM_OPEN:
		d.logger.Debug("MIDI stream device opened")
	case MOM_CLOSE:
		d.logger.Debug("MIDI stream device closed")
	case MOM_DONE:
		p, ok := d.lookup(dwParam1)
		if !ok {
			d.logger.Warn("Buffer returned for an unknown header")
			return 0
		}
		if d.callbacks.BufferDone != nil {
			d.callbacks.BufferDone(p.header)
		}
	case MOM_POSITIONCB:
		p, ok := d.lookup(dwParam1)
		if !ok || d.callbacks.PositionReached == nil {
			return 0
		}
		data := p.header.Data
		offset := int(p.native.dwOffset)
		if offset+stream.RecordSize > len(data) {
			d.logger.Warn(fmt.Sprintf("Position callback offset %d outside buffer", offset))
			return 0
		}
		d.callbacks.PositionReached(data[offset : offset+stream.RecordSize])
	default:
		d.logger.Warn(fmt.Sprintf("Unknown MIDI message: 0x%X", wMsg))
	}

	return 0
}
