package contracts

// DeviceInfo describes a MIDI output device that a stream can be opened on.
type DeviceInfo struct {
	ID           int    // Index passed to WithDeviceID.
	Name         string // Device name.
	Manufacturer string // Device manufacturer, or vendor/product ids when no name is reported.
	EntityName   string // Name of the entity the device belongs to.
}
