package contracts

import (
	"errors"
	"fmt"
)

// Error definitions shared by streams and drivers.
var (
	// ErrDisposed is returned by every stream operation after Close.
	ErrDisposed = errors.New("output stream is closed")
	// ErrInvalidArgument is returned for out-of-range property values and malformed messages.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Native result codes (MMRESULT) reported by output devices.
const (
	MMSysErrNoError      uint32 = 0
	MMSysErrError        uint32 = 1
	MMSysErrBadDeviceID  uint32 = 2
	MMSysErrAllocated    uint32 = 4
	MMSysErrInvalHandle  uint32 = 5
	MMSysErrNoDriver     uint32 = 6
	MMSysErrNoMem        uint32 = 7
	MMSysErrNotSupported uint32 = 8
	MMSysErrInvalFlag    uint32 = 10
	MMSysErrInvalParam   uint32 = 11
	MIDIErrUnprepared    uint32 = 64
	MIDIErrStillPlaying  uint32 = 65
	MIDIErrNotReady      uint32 = 67
)

var resultNames = map[uint32]string{
	MMSysErrError:        "unspecified error",
	MMSysErrBadDeviceID:  "bad device id",
	MMSysErrAllocated:    "device already allocated",
	MMSysErrInvalHandle:  "invalid handle",
	MMSysErrNoDriver:     "no driver",
	MMSysErrNoMem:        "out of memory",
	MMSysErrNotSupported: "not supported",
	MMSysErrInvalFlag:    "invalid flag",
	MMSysErrInvalParam:   "invalid parameter",
	MIDIErrUnprepared:    "header not prepared",
	MIDIErrStillPlaying:  "still playing",
	MIDIErrNotReady:      "device not ready",
}

// DeviceError carries the non-success result code of a native device call verbatim.
type DeviceError struct {
	Op   string
	Code uint32
}

func (e *DeviceError) Error() string {
	name, ok := resultNames[e.Code]
	if !ok {
		name = "unknown result"
	}
	return fmt.Sprintf("%s: device error %d (%s)", e.Op, e.Code, name)
}

// CheckResult converts a native result code into a *DeviceError, or nil on success.
func CheckResult(op string, code uint32) error {
	if code == MMSysErrNoError {
		return nil
	}
	return &DeviceError{Op: op, Code: code}
}
