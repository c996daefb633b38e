package main

import (
	"context"
	"fmt"
	"time"

	"github.com/leandrodaf/midistream/internal/logger"
	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/leandrodaf/midistream/sdk/midi"
)

func main() {
	log := logger.NewDevelopmentLogger()

	devices, err := midi.ListDevices(contracts.WithLogger(log))
	if err != nil || len(devices) == 0 {
		log.Error("No MIDI devices found or error listing devices", log.Field().Error("error", err))
		return
	}
	fmt.Println("Available MIDI devices:", devices)

	noOps := make(chan contracts.NoOpEvent, 16)
	out, err := midi.NewOutputStream(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.DebugLevel),
		contracts.WithDeviceID(devices[0].ID),
		contracts.WithDivision(96),
		contracts.WithTempo(500000),
		contracts.WithNoOpChannel(noOps),
		contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{
			Commands: []contracts.MIDICommand{contracts.PitchBend},
		}),
	)
	if err != nil {
		log.Error("Failed to open MIDI stream", log.Field().Error("error", err))
		return
	}
	defer out.Close()

	// One quarter note per key, with a marker no-op after each.
	for i, key := range []byte{60, 62, 64, 65} {
		events := []contracts.MidiEvent{
			{DeltaTicks: 0, Message: contracts.ShortMessage{Status: 0x90, Data1: key, Data2: 100}},
			{DeltaTicks: 96, Message: contracts.ShortMessage{Status: 0x80, Data1: key}},
		}
		for _, ev := range events {
			if err := out.Write(ev); err != nil {
				log.Error("Failed to write event", log.Field().Error("error", err))
				return
			}
		}
		if err := out.WriteNoOp(0, uint32(i)); err != nil {
			log.Error("Failed to write no-op", log.Field().Error("error", err))
			return
		}
	}

	if err := out.Flush(); err != nil {
		log.Error("Failed to submit buffer", log.Field().Error("error", err))
		return
	}
	if err := out.StartPlaying(); err != nil {
		log.Error("Failed to start playback", log.Field().Error("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = midi.DispatchNoOps(ctx, noOps, func(ev contracts.NoOpEvent) error {
		if now, err := out.GetTime(contracts.TimeMilliseconds); err == nil {
			log.Info("Note played",
				log.Field().Uint32("index", ev.Data),
				log.Field().Uint32("position", now.Value),
				log.Field().Uint32("unit", uint32(now.Type)))
		}
		if ev.Data == 3 {
			return midi.ErrStopDispatch
		}
		return nil
	})
}
