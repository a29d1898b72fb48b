// Command voxgraphd is a PortAudio demo host for the voxgraph engine
// (component I). It plays the part spec.md §1 carves out as the
// out-of-scope "plugin host adapter": open a real audio device, drive
// Engine.Process once per buffer, and feed it MIDI-like note/CC/pitch-bend
// traffic, all from ordinary (non-realtime-path) goroutines. Grounded on
// the teacher pack's gordonklaus/portaudio stream-callback idiom
// (rayboyd/audio-engine's Engine.processInputStream) and charmbracelet/log
// for structured, leveled logging (component H).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"github.com/vosim/voxgraph/pkg/circuit"
	"github.com/vosim/voxgraph/pkg/engine"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/preset"
	"github.com/vosim/voxgraph/pkg/units"
)

const (
	defaultSampleRate = 44100.0
	defaultBufferSize = 512
)

func main() {
	flags := parseFlags(os.Args[1:])

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
	if flags.verbose {
		logger.SetLevel(log.DebugLevel)
	}

	fc, err := loadFileConfig(flags.configPath)
	if err != nil {
		logger.Fatal("failed to load config file", "path", flags.configPath, "err", err)
	}

	cfg := engine.Config{
		MaxVoices:          firstNonZeroInt(flags.maxVoices, fc.MaxVoices, engine.DefaultMaxVoices),
		SampleRate:         firstNonZeroFloat(flags.sampleRate, fc.SampleRate, defaultSampleRate),
		BufferSize:         firstNonZeroInt(flags.bufferSize, fc.BufferSize, defaultBufferSize),
		BendRangeSemitones: firstNonZeroFloat(flags.bendRange, fc.BendRangeSemitones, engine.DefaultBendRangeSemitones),
	}

	presetPath := flags.preset
	if presetPath == "" {
		presetPath = fc.Preset
	}

	f := factory.New()
	if err := units.RegisterBuiltins(f); err != nil {
		logger.Fatal("failed to register built-in units", "err", err)
	}
	f.Freeze()
	logger.Info("unit factory registered", "groups", len(f.Groups()))

	proto, err := loadPrototype(presetPath, f, logger)
	if err != nil {
		logger.Fatal("failed to load prototype circuit", "preset", presetPath, "err", err)
	}

	stopProfile := maybeProfile(flags.cpuProfile, logger)
	defer stopProfile()

	e := engine.New(proto, f, cfg)
	e.SetLogger(logger)
	logger.Info("engine initialized",
		"max_voices", cfg.MaxVoices,
		"sample_rate", cfg.SampleRate,
		"buffer_size", cfg.BufferSize,
		"bend_range_semitones", cfg.BendRangeSemitones,
	)

	if err := portaudio.Initialize(); err != nil {
		logger.Fatal("portaudio init failed", "err", err)
	}
	defer portaudio.Terminate()

	outputDevice, err := selectOutputDevice(flags.device)
	if err != nil {
		logger.Fatal("failed to select output device", "err", err)
	}
	logger.Info("output device selected", "name", outputDevice.Name)

	stream, err := openOutputStream(e, outputDevice, cfg)
	if err != nil {
		logger.Fatal("failed to open audio stream", "err", err)
	}
	if err := stream.Start(); err != nil {
		logger.Fatal("failed to start audio stream", "err", err)
	}
	logger.Info("audio stream started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	sched := newScheduler(e, cfg.SampleRate, logger)
	go sched.run(stop)

	<-stop
	logger.Info("shutting down")

	if err := stream.Stop(); err != nil {
		logger.Error("error stopping audio stream", "err", err)
	}
	if err := stream.Close(); err != nil {
		logger.Error("error closing audio stream", "err", err)
	}
}

// loadPrototype loads a saved patch (pkg/preset) from path, or falls back
// to a small built-in demo voice (pitch -> p2f -> oscillator -> envelope ->
// gain -> output) when path is empty.
func loadPrototype(path string, f *factory.Factory, logger *log.Logger) (*circuit.Circuit, error) {
	if path == "" {
		logger.Info("no preset given, building default demo voice")
		return defaultVoice(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	proto, _, err := preset.Load(data, f)
	if err != nil {
		return nil, err
	}
	logger.Info("preset loaded", "path", path)
	return proto, nil
}

// defaultVoice builds the demo patch played when no --preset is given:
// a pitch-tracked oscillator through an ADSR-gated amp stage.
func defaultVoice() *circuit.Circuit {
	proto := circuit.New("voxgraphd_demo")

	pitchID := proto.AddUnit(units.NewPitch("pitch"))
	oscID := proto.AddUnit(units.NewBasicOscillator("osc"))
	envID := proto.AddUnit(units.NewADSREnvelope("env"))
	gainID := proto.AddUnit(units.NewGain("amp"))
	outID := proto.AddUnit(units.NewOutputUnit("out"))

	must(proto.Connect(pitchID, 0, oscID, 0, false))
	must(proto.Connect(oscID, 0, gainID, 0, false))
	must(proto.Connect(envID, 0, gainID, 1, false))
	must(proto.Connect(gainID, 0, outID, 0, false))
	must(proto.SetSink(outID))

	return proto
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func firstNonZeroInt(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonZeroFloat(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func selectOutputDevice(nameSubstring string) (*portaudio.DeviceInfo, error) {
	if nameSubstring == "" {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.MaxOutputChannels > 0 && contains(d.Name, nameSubstring) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no output device matching %q", nameSubstring)
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// openOutputStream wires Engine.Process as the stream's callback. Runs on
// PortAudio's dedicated audio thread; StartProcess/EndProcess (pkg/performance)
// bracket every call so Engine.Metrics() reflects real device-driven timing.
func openOutputStream(e *engine.Engine, device *portaudio.DeviceInfo, cfg engine.Config) (*portaudio.Stream, error) {
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Channels: 2,
			Device:   device,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: cfg.BufferSize,
	}

	// Pre-allocated per-callback scratch; Process fills these in place so the
	// audio thread never allocates (spec.md §8 invariant 6).
	left := make([]float64, cfg.BufferSize)
	right := make([]float64, cfg.BufferSize)

	callback := func(out [][]float32) {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		n := len(out[0])
		e.Process(nil, nil, left[:n], right[:n], n)
		for i := 0; i < n; i++ {
			out[0][i] = float32(left[i])
			out[1][i] = float32(right[i])
		}
	}

	return portaudio.OpenStream(params, callback)
}

// scheduler is the "virtual MIDI-like note scheduler" component I names: a
// free-running arpeggio driven off wall-clock time, submitted through
// Engine.NoteOn/NoteOff exactly as a real MIDI input thread would.
type scheduler struct {
	engine     *engine.Engine
	sampleRate float64
	logger     *log.Logger
	notes      []int
}

func newScheduler(e *engine.Engine, sampleRate float64, logger *log.Logger) *scheduler {
	return &scheduler{
		engine:     e,
		sampleRate: sampleRate,
		logger:     logger,
		notes:      []int{60, 64, 67, 72, 67, 64},
	}
}

func (s *scheduler) run(stop <-chan os.Signal) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			note := s.notes[i%len(s.notes)]
			if err := s.engine.NoteOn(note, 100); err != nil {
				s.logger.Warn("note-on dropped, command queue full", "note", note, "err", err)
			}
			prev := s.notes[(i+len(s.notes)-1)%len(s.notes)]
			if err := s.engine.NoteOff(prev, 0); err != nil {
				s.logger.Warn("note-off dropped, command queue full", "note", prev, "err", err)
			}
			i++
		}
	}
}
