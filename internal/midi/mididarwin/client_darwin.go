//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/midistream/internal/midi/softstream"
	"github.com/leandrodaf/midistream/internal/stream"
	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for CoreMIDI output issues.
var (
	ErrNoMIDIDevices     = errors.New("no MIDI destinations found")
	ErrInvalidMIDIDevice = errors.New("invalid MIDI device")
	ErrCreateOutputPort  = errors.New("error creating output port")
	ErrMIDISendError     = errors.New("error sending MIDI packet")
	ErrDestinationClosed = errors.New("MIDI destination closed")
)

// destinationSink sends the messages of a softstream.Player to one CoreMIDI
// destination. CoreMIDI has no stream API, so timing is done by the player.
type destinationSink struct {
	logger      contracts.Logger
	port        coremidi.OutputPort
	destination coremidi.Destination
	mu          sync.Mutex
	closed      bool
}

// Opener returns a stream.Opener that plays through CoreMIDI destinations.
func Opener(options *contracts.StreamOptions) (stream.Opener, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI client successfully created")

	return softstream.NewOpener(func(deviceID int) (softstream.Sink, error) {
		return openDestination(client, deviceID, options.Logger)
	}, options.Logger), nil
}

// NewOutputStream opens a software-timed stream on the CoreMIDI destination
// selected in options.
func NewOutputStream(options *contracts.StreamOptions) (contracts.OutputStream, error) {
	opener, err := Opener(options)
	if err != nil {
		return nil, err
	}
	return stream.Open(opener, options)
}

func openDestination(client coremidi.Client, deviceID int, logger contracts.Logger) (*destinationSink, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	if deviceID < 0 || deviceID >= len(destinations) {
		logger.Error(ErrInvalidMIDIDevice.Error(), logger.Field().Int("deviceID", deviceID))
		return nil, ErrInvalidMIDIDevice
	}

	destination := destinations[deviceID]
	logger.Info("MIDI device selected",
		logger.Field().Int("deviceID", deviceID),
		logger.Field().String("deviceName", destination.Name()))

	port, err := coremidi.NewOutputPort(client, "Output Port")
	if err != nil {
		logger.Error(ErrCreateOutputPort.Error())
		return nil, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
	}

	return &destinationSink{logger: logger, port: port, destination: destination}, nil
}

// ListDevices retrieves the available MIDI destinations.
func ListDevices(options *contracts.StreamOptions) ([]contracts.DeviceInfo, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	if len(destinations) == 0 {
		options.Logger.Warn(ErrNoMIDIDevices.Error())
		return nil, nil
	}

	entities := destinationEntities(options.Logger)
	devices := make([]contracts.DeviceInfo, len(destinations))
	for i, destination := range destinations {
		devices[i] = contracts.DeviceInfo{
			ID:           i,
			Name:         destination.Name(),
			EntityName:   entities.name(*destination.Object),
			Manufacturer: destination.Manufacturer(),
		}
	}
	return devices, nil
}

// destinationEntities walks devices down to their destinations, the only
// direction in which CoreMIDI exposes the entity of a destination.
func destinationEntities(logger contracts.Logger) entityIndex[coremidi.Object] {
	index := entityIndex[coremidi.Object]{}
	devices, err := coremidi.AllDevices()
	if err != nil {
		logger.Warn("error listing MIDI devices", logger.Field().Error("error", err))
		return index
	}
	for _, device := range devices {
		entities, err := device.Entities()
		if err != nil {
			logger.Warn("error listing MIDI entities",
				logger.Field().String("device", device.Name()),
				logger.Field().Error("error", err))
			continue
		}
		for _, entity := range entities {
			destinations, err := entity.Destinations()
			if err != nil {
				logger.Warn("error listing entity destinations",
					logger.Field().String("entity", entity.Name()),
					logger.Field().Error("error", err))
				continue
			}
			for _, destination := range destinations {
				index.add(entity.Name(), *destination.Object)
			}
		}
	}
	return index
}

func (s *destinationSink) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrDestinationClosed
	}

	packet := coremidi.NewPacket(msg, 0)
	if err := packet.Send(&s.port, &s.destination); err != nil {
		return fmt.Errorf("%w: %v", ErrMIDISendError, err)
	}
	return nil
}

func (s *destinationSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.logger.Info("MIDI destination released")
	return nil
}
