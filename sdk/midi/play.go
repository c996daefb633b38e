package midi

import (
	"fmt"

	"github.com/leandrodaf/midistream/sdk/contracts"
)

// EndOfSong is a conventional end marker for Play. It fits the no-op limit of
// every stream; callers whose own no-ops may carry it pick another value.
const EndOfSong uint32 = 1<<23 - 1

// eventsPerBuffer bounds the size of each submitted buffer.
const eventsPerBuffer = 4096

// Play sets the stream division to the song resolution, writes every event
// followed by a no-op carrying endMarker, and starts playback. It returns once
// the buffers are queued; wait for the endMarker notification to know playback
// ended. Song events never produce user no-ops, so endMarker only has to differ
// from the no-ops the caller writes itself.
func Play(out contracts.OutputStream, song *Song, endMarker uint32) error {
	if out == nil || song == nil {
		return fmt.Errorf("%w: stream and song are required", contracts.ErrInvalidArgument)
	}
	if err := out.SetDivision(int(song.Resolution)); err != nil {
		return fmt.Errorf("failed to set division: %w", err)
	}

	for i, ev := range song.Events {
		if err := out.Write(ev); err != nil {
			return fmt.Errorf("failed to write event %d: %w", i, err)
		}
		if (i+1)%eventsPerBuffer == 0 {
			if err := out.Flush(); err != nil {
				return err
			}
		}
	}

	if err := out.WriteNoOp(0, endMarker); err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return err
	}
	return out.StartPlaying()
}
