package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vosim/voxgraph/pkg/circuit"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/units"
)

func newTestFactory(t *testing.T) *factory.Factory {
	t.Helper()
	f := factory.New()
	require.NoError(t, units.RegisterBuiltins(f))
	f.Freeze()
	return f
}

// buildVoiceProto wires pitch -> p2f -> gain -> output, with the envelope on
// the gain's second (inverting) input and an unwired CC unit, the smallest
// circuit that exercises note, CC, and pitch-bend fan-out together.
func buildVoiceProto(t *testing.T) *circuit.Circuit {
	t.Helper()
	proto := circuit.New("proto")

	pitchID := proto.AddUnit(units.NewPitch("pitch"))
	p2fID := proto.AddUnit(units.NewP2F("p2f"))
	envID := proto.AddUnit(units.NewADSREnvelope("env"))
	gainID := proto.AddUnit(units.NewGain("gain"))
	ccID := proto.AddUnit(units.NewCC("cutoff_cc"))
	outID := proto.AddUnit(units.NewOutputUnit("out"))

	require.NoError(t, proto.Connect(pitchID, 0, p2fID, 0, false))
	require.NoError(t, proto.Connect(p2fID, 0, gainID, 0, false))
	require.NoError(t, proto.Connect(envID, 0, gainID, 1, false))
	require.NoError(t, proto.Connect(gainID, 0, outID, 0, false))
	require.NoError(t, proto.SetSink(outID))
	_ = ccID

	return proto
}

func TestEngineProcessZeroedBeforeSum(t *testing.T) {
	f := newTestFactory(t)
	proto := buildVoiceProto(t)

	e := New(proto, f, Config{MaxVoices: 2, SampleRate: 44100, BufferSize: 32})

	left := make([]float64, 32)
	right := make([]float64, 32)
	for i := range left {
		left[i] = 99
		right[i] = 99
	}
	e.Process(nil, nil, left, right, 32)

	for i := range left {
		require.Zero(t, left[i])
		require.Zero(t, right[i])
	}
}

func TestEngineNoteOnProducesActiveVoice(t *testing.T) {
	f := newTestFactory(t)
	proto := buildVoiceProto(t)
	e := New(proto, f, Config{MaxVoices: 4, SampleRate: 44100, BufferSize: 64})

	require.NoError(t, e.NoteOn(69, 100))

	left := make([]float64, 64)
	right := make([]float64, 64)
	e.Process(nil, nil, left, right, 64)

	require.Equal(t, 1, e.Voices().NumActiveVoices())
}

func TestEnginePitchBendClampsAndScales(t *testing.T) {
	f := newTestFactory(t)
	proto := buildVoiceProto(t)
	e := New(proto, f, Config{MaxVoices: 1, SampleRate: 44100, BufferSize: 16, BendRangeSemitones: 2})

	require.NoError(t, e.PitchBend(2.0)) // out of range, clamps to 1.0
	require.Equal(t, 2.0, e.PitchBendSemitones())

	left := make([]float64, 16)
	right := make([]float64, 16)
	e.Process(nil, nil, left, right, 16) // drains the queued PitchBend command

	require.Equal(t, 2.0, e.PitchBendSemitones())
}

// TestEngineProcessIsDeterministic is spec.md §8 invariant 7: an identical
// prototype, MIDI stream, sample rate and voice count produce bitwise
// identical audio across two independent engine instances.
func TestEngineProcessIsDeterministic(t *testing.T) {
	run := func() []float64 {
		f := newTestFactory(t)
		proto := buildVoiceProto(t)
		e := New(proto, f, Config{MaxVoices: 2, SampleRate: 44100, BufferSize: 32})

		require.NoError(t, e.NoteOn(60, 100))
		require.NoError(t, e.PitchBend(0.25))

		var out []float64
		left := make([]float64, 32)
		right := make([]float64, 32)
		for buf := 0; buf < 8; buf++ {
			if buf == 3 {
				require.NoError(t, e.NoteOn(64, 90))
			}
			if buf == 5 {
				require.NoError(t, e.NoteOff(60, 0))
			}
			e.Process(nil, nil, left, right, 32)
			out = append(out, left...)
			out = append(out, right...)
		}
		return out
	}

	first := run()
	second := run()
	require.Equal(t, first, second)
}

// TestEngineScopeTapsDesignatedUnitNotMixedOutput is spec.md §4.G: the
// oscilloscope tap must observe a specific designated unit, not whatever
// the circuit mixes to its final stereo output.
func TestEngineScopeTapsDesignatedUnitNotMixedOutput(t *testing.T) {
	f := newTestFactory(t)
	proto := buildVoiceProto(t)
	e := New(proto, f, Config{MaxVoices: 1, SampleRate: 44100, BufferSize: 8})

	require.NoError(t, e.NoteOn(60, 100))

	// pitchID (unit 0 in buildVoiceProto) always outputs the held note
	// number (60), which never equals the mixed (p2f - envelope) * gain output.
	require.NoError(t, e.SetScopeTarget(0, 0))
	e.Scope().SetActive(true)

	left := make([]float64, 8)
	right := make([]float64, 8)
	e.Process(nil, nil, left, right, 8)

	var scopeBuf [8]float64
	n := e.Scope().Snapshot(scopeBuf[:])
	require.Equal(t, 8, n)
	for i := 0; i < n; i++ {
		require.Equal(t, 60.0, scopeBuf[i])
		require.NotEqual(t, left[i], scopeBuf[i])
	}
}

// TestEngineScopeSyncAdvancesPeriodEstimateOnZeroCrossing confirms Sync()
// is actually reachable from a real Process call: a designated unit whose
// output crosses zero mid-buffer must move the tap's period estimate off
// its zero initial value.
func TestEngineScopeSyncAdvancesPeriodEstimateOnZeroCrossing(t *testing.T) {
	f := newTestFactory(t)
	proto := circuit.New("proto")
	oscID := proto.AddUnit(units.NewBasicOscillator("osc"))
	outID := proto.AddUnit(units.NewOutputUnit("out"))
	require.NoError(t, proto.Connect(oscID, 0, outID, 0, false))
	require.NoError(t, proto.SetSink(outID))

	e := New(proto, f, Config{MaxVoices: 1, SampleRate: 44100, BufferSize: 256})
	require.NoError(t, e.SetScopeTarget(0, oscID))
	e.Scope().SetActive(true)

	require.NoError(t, e.NoteOn(60, 100))

	left := make([]float64, 256)
	right := make([]float64, 256)
	for i := 0; i < 20; i++ { // several buffers, enough periods of a ~262Hz tone at 44.1kHz
		e.Process(nil, nil, left, right, 256)
	}

	require.Greater(t, e.Scope().PeriodEstimate(), 0.0)
}

func TestEngineCCReachesLearningUnitInEveryVoice(t *testing.T) {
	f := newTestFactory(t)
	proto := buildVoiceProto(t)
	e := New(proto, f, Config{MaxVoices: 2, SampleRate: 44100, BufferSize: 16})

	cc, ok := proto.Unit(4) // cutoff_cc was the 5th unit added (index 4)
	require.True(t, ok)
	ccUnit, ok := cc.(*units.CC)
	require.True(t, ok)
	ccUnit.Learning = true
	for i := 0; i < e.Voices().NumVoices(); i++ {
		v, err := e.Voices().Voice(i)
		require.NoError(t, err)
		u, ok := v.Circuit.Unit(4)
		require.True(t, ok)
		u.(*units.CC).Learning = true
	}

	require.NoError(t, e.NoteOn(60, 100))
	require.NoError(t, e.CC(74, 0.5))

	left := make([]float64, 16)
	right := make([]float64, 16)
	e.Process(nil, nil, left, right, 16)

	require.False(t, ccUnit.Learning)
	for i := 0; i < e.Voices().NumVoices(); i++ {
		v, err := e.Voices().Voice(i)
		require.NoError(t, err)
		u, ok := v.Circuit.Unit(4)
		require.True(t, ok)
		voiceCC, ok := u.(*units.CC)
		require.True(t, ok)
		require.False(t, voiceCC.Learning)
	}
}
