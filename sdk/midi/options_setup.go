package midi

import (
	"fmt"

	"github.com/leandrodaf/midistream/internal/logger"
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// applyDefaultOptions sets default values for StreamOptions if not explicitly provided.
func applyDefaultOptions(opts ...contracts.Option) (contracts.StreamOptions, error) {
	options := &contracts.StreamOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.DeviceID < 0 {
		return contracts.StreamOptions{}, fmt.Errorf("%w: device id %d", contracts.ErrInvalidArgument, options.DeviceID)
	}
	if options.Division < 0 || options.Tempo < 0 {
		return contracts.StreamOptions{}, fmt.Errorf("%w: division %d, tempo %d", contracts.ErrInvalidArgument, options.Division, options.Tempo)
	}

	// Set defaults if options are not provided
	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: "GO MIDI Stream"}
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
