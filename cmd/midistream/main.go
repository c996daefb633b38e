// Package main is the entry point for the midistream CLI
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/leandrodaf/midistream/internal/api"
	"github.com/leandrodaf/midistream/internal/config"
	"github.com/leandrodaf/midistream/internal/logger"
	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/leandrodaf/midistream/sdk/midi"
	"github.com/leandrodaf/midistream/sdk/timespan"
	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"
)

var (
	configPath string
	deviceID   int
	toKind     string
	atSpan     string
	songFile   string
	tpq        int64
	demo       bool
	serverPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "midistream",
	Short: "Stream MIDI events to an output device and convert musical time",
	Long: `midistream queues timed MIDI events on a stream output device and
converts time spans between ticks, wall-clock time, bars and beats, and
note fractions.

Examples:
  midistream convert 1/4 --to metric
  midistream convert 0:0:2:0 --to barbeat --file song.mid
  midistream devices
  midistream play song.mid --device 1
  midistream serve --port 8080`,
	SilenceUsage: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert <span>",
	Short: "Convert a time span to another representation",
	Long:  `Converts a span given in any notation (480, 1.2.120, 0:1:30:250, 3/8) into the kind selected with --to. The tempo map comes from --file or defaults to 120 BPM in 4/4.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var parseCmd = &cobra.Command{
	Use:   "parse <span>",
	Short: "Check the notation of a time span",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List MIDI output devices",
	RunE:  runDevices,
}

var playCmd = &cobra.Command{
	Use:   "play [file.mid]",
	Short: "Play a Standard MIDI File through a stream",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlay,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write the current settings to the config file",
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/midistream/config.json)")
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", -1, "Output device index (overrides the config file)")

	convertCmd.Flags().StringVarP(&toKind, "to", "t", "metric", "Target kind: midi, metric, barbeat or musical")
	convertCmd.Flags().StringVar(&atSpan, "at", "", "Start position of the span (default 0)")
	convertCmd.Flags().StringVarP(&songFile, "file", "f", "", "MIDI file providing the tempo map")
	convertCmd.Flags().Int64Var(&tpq, "tpq", api.DefaultTicksPerQuarterNote, "Ticks per quarter note when no file is given")

	playCmd.Flags().BoolVar(&demo, "demo", false, "Play a short built-in phrase instead of a file")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides the config file)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if deviceID >= 0 {
		cfg.DeviceID = deviceID
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) contracts.Logger {
	log := logger.NewZapLogger()
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	log.SetLevel(level)
	if cfg.LogFile != "" {
		log.SetDestination(contracts.FileLog, cfg.LogFile)
	}
	return log
}

func runConvert(cmd *cobra.Command, args []string) error {
	kind, err := timespan.ParseKind(toKind)
	if err != nil {
		return err
	}
	span, err := timespan.Parse(args[0])
	if err != nil {
		return err
	}

	var tm *timespan.TempoMap
	if songFile != "" {
		song, err := midi.LoadFile(songFile)
		if err != nil {
			return err
		}
		tm = song.TempoMap
	} else if tm, err = timespan.NewTempoMap(tpq, nil, nil); err != nil {
		return err
	}

	var at int64
	if atSpan != "" {
		start, err := timespan.Parse(atSpan)
		if err != nil {
			return err
		}
		if at, err = timespan.ConvertTimeFrom(start, tm); err != nil {
			return err
		}
	}

	result, err := timespan.ConvertSpan(span, kind, at, tm)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	ts, res := timespan.TryParse(args[0])
	if res.Status != timespan.Parsed {
		return res.Err
	}
	fmt.Printf("%s (%s)\n", ts, ts.Kind())
	return nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	devices, err := midi.ListDevices(contracts.WithLogger(newLogger(cfg)))
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No MIDI output devices found")
		return nil
	}
	for _, d := range devices {
		fmt.Printf("%d: %s (%s, %s)\n", d.ID, d.Name, d.EntityName, d.Manufacturer)
	}
	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	var song *midi.Song
	switch {
	case demo:
		song, err = demoSong()
	case len(args) == 1:
		song, err = midi.LoadFile(args[0])
	default:
		return errors.New("a MIDI file or --demo is required")
	}
	if err != nil {
		return err
	}

	duration, err := song.Duration()
	if err != nil {
		return err
	}

	notify := make(chan contracts.NoOpEvent, cfg.NoOpBuffer)
	opts := append(cfg.StreamOptions(), contracts.WithLogger(log), contracts.WithNoOpChannel(notify))
	out, err := midi.NewOutputStream(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	fmt.Printf("Playing %d events (%s)\n", len(song.Events), duration)
	if err := midi.Play(out, song, midi.EndOfSong); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = midi.DispatchNoOps(ctx, notify, func(ev contracts.NoOpEvent) error {
		if ev.Meta {
			log.Info("Meta event reached", log.Field().Uint8("type", uint8(ev.MetaType)))
			return nil
		}
		if ev.Data == midi.EndOfSong {
			return midi.ErrStopDispatch
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		fmt.Println("Interrupted")
		return out.Reset()
	}
	return err
}

// demoSong is a one-bar C major arpeggio at the default tempo.
func demoSong() (*midi.Song, error) {
	const division = 96
	tm, err := timespan.NewTempoMap(division, nil, nil)
	if err != nil {
		return nil, err
	}

	song := &midi.Song{Resolution: division, TempoMap: tm}
	for _, key := range []uint8{60, 64, 67, 72} {
		on, err := midi.EventFromBytes(0, gomidi.NoteOn(0, key, 100))
		if err != nil {
			return nil, err
		}
		off, err := midi.EventFromBytes(division, gomidi.NoteOff(0, key))
		if err != nil {
			return nil, err
		}
		song.Events = append(song.Events, on, off)
		song.Length += division
	}
	return song, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	port := cfg.APIPort
	if serverPort > 0 {
		port = serverPort
	}
	return api.StartServer(port, newLogger(cfg))
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	path := configPath
	if path == "" {
		path, _ = config.ConfigPath()
	}
	fmt.Printf("Settings written to %s\n", path)
	return nil
}
