// Package engine assembles the top-level audio callback (spec.md §6):
// VoiceManager, CommandQueue, UnitFactory and the prototype Circuit wired
// together into the single entry point a plugin host (or the demo CLI,
// component I) drives once per buffer. Grounded on the teacher's
// audio.SynthVoiceProcessor/PolyphonicOscillator composition of a voice
// manager plus a filter stage into one Process call, generalized from a
// closed oscillator+filter chain to an arbitrary user-built Circuit.
package engine

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/vosim/voxgraph/pkg/circuit"
	"github.com/vosim/voxgraph/pkg/command"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/performance"
	"github.com/vosim/voxgraph/pkg/scope"
	"github.com/vosim/voxgraph/pkg/voice"
)

// DefaultMaxVoices is spec.md §6's config default for max_voices.
const DefaultMaxVoices = 8

// DefaultBendRangeSemitones is the pitch bend range applied when Config
// doesn't override it — the conventional MIDI default.
const DefaultBendRangeSemitones = 2.0

// Config carries the runtime options spec.md §6 exposes as host
// parameters/env: max_voices, sample_rate, buffer_size are host/config
// provided; oversampling_factor is compile-time (only 1 is implemented —
// see DESIGN.md for why 2x oversampling is not wired).
type Config struct {
	MaxVoices  int
	SampleRate float64
	BufferSize int

	// BendRangeSemitones scales an incoming pitch_bend value in [-1, 1] to
	// semitones before it is fanned to pitch-producing units. Defaults to
	// DefaultBendRangeSemitones when zero.
	BendRangeSemitones float64
}

// Engine owns every real-time-path component and exposes exactly the
// audio callback and command-submission surface spec.md §6 specifies; it
// is the object a plugin host (or cmd/voxgraphd) holds.
type Engine struct {
	factory *factory.Factory
	voices  *voice.Manager
	queue   *command.Queue
	scope   *scope.Tap
	metrics *performance.PerformanceMetrics
	allocs  *performance.AllocationTracker

	bendRange float64 // semitones
	pitchBend float64 // last resolved bend, semitones
	tempo     float64

	// scopeVoice/scopeUnit designate the tapped unit (spec.md §4.G); the
	// zero value (voice 0, unit 0) is meaningless until scopeConfigured, so
	// Process falls back to the mixed output until SetScopeTarget is called.
	scopeVoice      int
	scopeUnit       uint32
	scopeConfigured bool
	scopeLastSample float64 // audio-thread-only zero-crossing trigger state
}

// New builds an Engine around proto (never ticked directly; cloned by the
// voice pool) and f (already Register'd and Freeze'd by the caller).
func New(proto *circuit.Circuit, f *factory.Factory, cfg Config) *Engine {
	if cfg.MaxVoices <= 0 {
		cfg.MaxVoices = DefaultMaxVoices
	}
	if cfg.BendRangeSemitones == 0 {
		cfg.BendRangeSemitones = DefaultBendRangeSemitones
	}
	e := &Engine{
		factory:   f,
		queue:     command.New(),
		scope:     scope.NewTap(),
		metrics:   performance.NewPerformanceMetrics(uint32(cfg.SampleRate), uint32(cfg.BufferSize)),
		allocs:    performance.NewAllocationTracker(),
		bendRange: cfg.BendRangeSemitones,
		tempo:     120,
	}
	e.voices = voice.NewManager(proto, f, cfg.MaxVoices, cfg.SampleRate, e.tempo, cfg.BufferSize)
	e.voices.Metrics = e.metrics
	return e
}

// SubmitCommand enqueues a control->audio command. Safe to call from any
// non-audio thread; never called from inside Process.
func (e *Engine) SubmitCommand(c command.Command) error {
	return e.queue.Submit(c)
}

// SetLogger wires a logger for diagnostics that don't belong on the
// PerformanceStats surface, chiefly the VoiceManager's rate-limited
// recovered-panic report. Optional; nil-safe if never called.
func (e *Engine) SetLogger(logger *log.Logger) {
	e.voices.Logger = logger
}

// Scope exposes the oscilloscope tap for GUI-side polling.
func (e *Engine) Scope() *scope.Tap { return e.scope }

// SetScopeTarget designates which unit's output the oscilloscope tap
// observes, per spec.md §4.G: a specific unit inside a specific pooled
// voice, not the final mixed stereo sum. voiceIndex is a stable voice pool
// index (pkg/voice.Manager.Voice); unitID is a unit id inside that voice's
// circuit. Takes effect on the next Process call; an unknown voice index
// is rejected, an unknown unit id is tolerated (Process then falls back to
// the mixed output for that buffer, since a unit can be deleted after the
// tap is configured).
func (e *Engine) SetScopeTarget(voiceIndex int, unitID uint32) error {
	if _, err := e.voices.Voice(voiceIndex); err != nil {
		return err
	}
	e.scopeVoice = voiceIndex
	e.scopeUnit = unitID
	e.scopeConfigured = true
	return nil
}

// ClearScopeTarget reverts the tap to observing the final mixed output.
func (e *Engine) ClearScopeTarget() {
	e.scopeConfigured = false
}

// Voices exposes the voice manager, chiefly for tests and introspection.
func (e *Engine) Voices() *voice.Manager { return e.voices }

// Metrics exposes the per-buffer performance tracker (process timing,
// buffer underruns, voice-steal counts) for a host's diagnostics surface.
func (e *Engine) Metrics() performance.PerformanceStats { return e.metrics.GetStats() }

// AllocationStats exposes the audio-thread allocation tracker's counters, so
// a host can watch for the steady-state zero-allocation invariant breaking
// under a live patch rather than only under a synthetic benchmark.
func (e *Engine) AllocationStats() performance.AllocationStats { return e.allocs.GetStats() }

// Process is the audio callback contract of spec.md §6:
// process(in_left[n], in_right[n], out_left[n], out_right[n], n). Inputs
// are accepted but unused by the synth path unless the prototype wires an
// InputUnit; out_left/out_right are zeroed then filled in place.
func (e *Engine) Process(inLeft, inRight, outLeft, outRight []float64, n int) {
	start := e.metrics.StartProcess()
	defer e.metrics.EndProcess(start)
	e.allocs.StartBuffer()
	defer e.allocs.EndBuffer()

	for i := 0; i < n; i++ {
		outLeft[i] = 0
		outRight[i] = 0
	}
	_ = inLeft
	_ = inRight

	e.voices.Tick(e.queue, outLeft, outRight, n)

	e.writeScope(outLeft, n)
}

// writeScope feeds the oscilloscope tap from the designated unit's output
// (or the mixed output, if no target is configured or the target has since
// been deleted), and fires Sync() on every rising zero-crossing of the
// observed signal — a self-triggering display period estimate, grounded
// on the same rising/falling edge detection the teacher pack's 9600-baud
// demodulator (doismellburning-samoyed's nudge_pll_9600) uses to track
// period from a noisy signal rather than a dedicated clock.
func (e *Engine) writeScope(outLeft []float64, n int) {
	samples := outLeft
	if e.scopeConfigured {
		if v, err := e.voices.Voice(e.scopeVoice); err == nil {
			if u, ok := v.Circuit.Unit(e.scopeUnit); ok {
				if outs := u.Outputs(); len(outs) > 0 {
					samples = outs[0].Buffer()
				}
			}
		}
	}
	for i := 0; i < n && i < len(samples); i++ {
		y := samples[i]
		e.scope.Write(y)
		if e.scopeLastSample < 0 && y >= 0 {
			e.scope.Sync()
		}
		e.scopeLastSample = y
	}
}

// NoteOn delivers a MIDI note-on, per spec.md §6's note_on(note, vel).
func (e *Engine) NoteOn(note, velocity int) error {
	return e.queue.Submit(command.Command{Kind: command.NoteOn, Note: note, Velocity: velocity})
}

// NoteOff delivers a MIDI note-off.
func (e *Engine) NoteOff(note, velocity int) error {
	return e.queue.Submit(command.Command{Kind: command.NoteOff, Note: note, Velocity: velocity})
}

// CC delivers a MIDI CC message, per spec.md §6's cc(controller, value).
// Routing to a specific controller is the receiving units.CC unit's job
// (including learn mode); the engine only fans the raw message out.
func (e *Engine) CC(controller int, value float64) error {
	return e.queue.Submit(command.Command{Kind: command.CC, Controller: controller, Value: value})
}

// PitchBend applies a pitch bend in [-1, 1] (spec.md §6's pitch_bend(value)),
// scaled to semitones by the engine's configured bend range and fanned out
// to every pitch-producing unit (units.Pitch).
func (e *Engine) PitchBend(value float64) error {
	e.pitchBend = math.Max(-1, math.Min(1, value)) * e.bendRange
	return e.queue.Submit(command.Command{Kind: command.PitchBend, Value: e.pitchBend})
}

// PitchBendSemitones returns the last applied pitch bend in semitones.
func (e *Engine) PitchBendSemitones() float64 { return e.pitchBend }

// SetTempo submits a tempo change, applied at the next buffer boundary.
func (e *Engine) SetTempo(bpm float64) error {
	e.tempo = bpm
	return e.queue.Submit(command.Command{Kind: command.SetTempo, Value: bpm})
}

// SetSampleRate submits a sample-rate change.
func (e *Engine) SetSampleRate(fs float64) error {
	return e.queue.Submit(command.Command{Kind: command.SetFs, Value: fs})
}

// SetMaxVoices submits a voice-pool rebuild, queued since it is heavy and
// must not run on the audio thread mid-tick (spec.md §4.D).
func (e *Engine) SetMaxVoices(n int) error {
	return e.queue.Submit(command.Command{Kind: command.SetMaxVoices, MaxVoices: n})
}
