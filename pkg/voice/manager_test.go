package voice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vosim/voxgraph/pkg/circuit"
	"github.com/vosim/voxgraph/pkg/command"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/unit"
	"github.com/vosim/voxgraph/pkg/units"
)

// fakeEnvelope is a minimal doneProvider unit (see circuit.go's doneProvider
// interface) whose "done" state is set directly by the test rather than
// derived from real envelope timing, so reap behavior can be tested
// deterministically.
type fakeEnvelope struct {
	unit.Base
	done bool
}

func newFakeEnvelope(name string) *fakeEnvelope {
	u := &fakeEnvelope{}
	u.Base.Init(u, "test.fakeenvelope", factory.ClassID("test.fakeenvelope"))
	u.SetName(name)
	u.AddOutput("out")
	return u
}

func (u *fakeEnvelope) Process(n int) {
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, 1)
	}
}

func (u *fakeEnvelope) Done() bool { return u.done }

func (u *fakeEnvelope) Clone() unit.Unit {
	dst := &fakeEnvelope{done: u.done}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// panicUnit always panics via unit.Failuref, standing in for a real
// programmer-error condition (e.g. circuit.go's ErrNoSink path).
type panicUnit struct {
	unit.Base
}

func newPanicUnit(name string) *panicUnit {
	u := &panicUnit{}
	u.Base.Init(u, "test.panicunit", factory.ClassID("test.panicunit"))
	u.SetName(name)
	u.AddOutput("out")
	return u
}

func (u *panicUnit) Process(n int) {
	unit.Failuref("panicUnit: intentional test failure")
}

func (u *panicUnit) Clone() unit.Unit {
	dst := &panicUnit{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// buildSilentProto wires a Constant straight into the Output pseudo-unit,
// matching the "silent default" scenario of spec.md §8.
func buildSilentProto(t *testing.T, value float64) (*circuit.Circuit, uint32, uint32) {
	t.Helper()
	proto := circuit.New("proto")
	constID := proto.AddUnit(units.NewConstant("const", value))
	outID := proto.AddUnit(units.NewOutputUnit("out"))
	require.NoError(t, proto.Connect(constID, 0, outID, 0, false))
	require.NoError(t, proto.SetSink(outID))
	return proto, constID, outID
}

func TestManagerSilentDefault(t *testing.T) {
	proto, _, _ := buildSilentProto(t, 0)
	proto.SetAudioConfig(44100, 120, 128)
	m := NewManager(proto, nil, 1, 44100, 120, 128)

	left := make([]float64, 128)
	right := make([]float64, 128)
	m.Tick(nil, left, right, 128)

	for i := range left {
		require.Zero(t, left[i])
		require.Zero(t, right[i])
	}
}

func TestManagerVoiceStealingOldestFirst(t *testing.T) {
	proto, _, _ := buildSilentProto(t, 1)
	proto.SetAudioConfig(44100, 120, 64)
	m := NewManager(proto, nil, 2, 44100, 120, 64)

	q := command.New()
	require.NoError(t, q.Submit(command.Command{Kind: command.NoteOn, Note: 60, Velocity: 127}))
	require.NoError(t, q.Submit(command.Command{Kind: command.NoteOn, Note: 62, Velocity: 127}))
	require.NoError(t, q.Submit(command.Command{Kind: command.NoteOn, Note: 64, Velocity: 127}))

	left := make([]float64, 64)
	right := make([]float64, 64)
	m.Tick(q, left, right, 64)

	require.Equal(t, 2, m.NumActiveVoices())
	require.Empty(t, m.idle)

	var notes []int
	for _, idx := range m.active {
		notes = append(notes, m.voices[idx].Note)
	}
	require.ElementsMatch(t, []int{62, 64}, notes)
	require.Empty(t, m.noteMap[60])
}

func TestManagerParameterFanOut(t *testing.T) {
	proto, constID, _ := buildSilentProto(t, 0)
	proto.SetAudioConfig(44100, 120, 32)
	m := NewManager(proto, nil, 3, 44100, 120, 32)

	q := command.New()
	require.NoError(t, q.Submit(command.Command{Kind: command.NoteOn, Note: 60, Velocity: 100}))
	require.NoError(t, q.Submit(command.Command{
		Kind: command.ModifyParam, UnitID: constID, ParamID: 0, Value: 0.75,
	}))

	left := make([]float64, 32)
	right := make([]float64, 32)
	m.Tick(q, left, right, 32)

	checkValue := func(c *circuit.Circuit) float64 {
		u, ok := c.Unit(constID)
		require.True(t, ok)
		p, err := u.Params().Get(0)
		require.NoError(t, err)
		return p.Base()
	}

	require.Equal(t, 0.75, checkValue(m.proto))
	for _, v := range m.voices {
		require.Equal(t, 0.75, checkValue(v.Circuit))
	}
}

// TestManagerSteadyStateTickAllocatesNothing is spec.md §8 invariant 6: once
// a voice is active and holding a note, ticking it must not allocate. The
// command queue is nil here so the test isolates per-voice ticking from the
// Drain path's own allocation behavior, which this test does not measure.
func TestManagerSteadyStateTickAllocatesNothing(t *testing.T) {
	proto, _, _ := buildSilentProto(t, 1)
	proto.SetAudioConfig(44100, 120, 64)
	m := NewManager(proto, nil, 1, 44100, 120, 64)

	q := command.New()
	require.NoError(t, q.Submit(command.Command{Kind: command.NoteOn, Note: 60, Velocity: 100}))
	left := make([]float64, 64)
	right := make([]float64, 64)
	m.Tick(q, left, right, 64) // drain the note-on and warm up the voice pool

	allocs := testing.AllocsPerRun(100, func() {
		for i := range left {
			left[i] = 0
			right[i] = 0
		}
		m.Tick(nil, left, right, 64)
	})
	require.Zero(t, allocs)
}

func TestManagerNoteOffReleasesToIdleOnlyWhenEnvelopeDone(t *testing.T) {
	proto, _, _ := buildSilentProto(t, 0)
	proto.SetAudioConfig(44100, 120, 32)
	m := NewManager(proto, nil, 1, 44100, 120, 32)

	q := command.New()
	require.NoError(t, q.Submit(command.Command{Kind: command.NoteOn, Note: 60, Velocity: 100}))
	left := make([]float64, 32)
	right := make([]float64, 32)
	m.Tick(q, left, right, 32)
	require.Equal(t, 1, m.NumActiveVoices())

	// No envelope-bearing unit in this minimal circuit, so IsDone() never
	// reports true; note-off alone must not reap the voice.
	require.NoError(t, q.Submit(command.Command{Kind: command.NoteOff, Note: 60, Velocity: 0}))
	m.Tick(q, left, right, 32)
	require.Equal(t, 1, m.NumActiveVoices())
}

// TestManagerMidBufferReapDoesNotSkipOrDoubleTickSurvivors guards against
// the slice-aliasing bug in the reap loop: with four voices active and the
// second one (not the first, not the last) reaping mid-loop, every
// surviving voice must be ticked exactly once.
func TestManagerMidBufferReapDoesNotSkipOrDoubleTickSurvivors(t *testing.T) {
	proto := circuit.New("proto")
	envID := proto.AddUnit(newFakeEnvelope("env"))
	constID := proto.AddUnit(units.NewConstant("const", 0))
	outID := proto.AddUnit(units.NewOutputUnit("out"))
	require.NoError(t, proto.Connect(constID, 0, outID, 0, false))
	require.NoError(t, proto.SetSink(outID))
	proto.SetAudioConfig(44100, 120, 4)

	m := NewManager(proto, nil, 4, 44100, 120, 4)

	q := command.New()
	notes := []int{60, 61, 62, 63}
	for _, note := range notes {
		require.NoError(t, q.Submit(command.Command{Kind: command.NoteOn, Note: note, Velocity: 100}))
	}
	left := make([]float64, 4)
	right := make([]float64, 4)
	m.Tick(q, left, right, 4) // drains the note-ons, warms up four voices
	require.Equal(t, 4, m.NumActiveVoices())

	// Give each voice a distinct, identifiable constant output, and mark
	// the second-activated voice (active[1], a non-edge position) done.
	values := []float64{5, 10, 15, 20}
	for i, idx := range m.active {
		u, ok := m.voices[idx].Circuit.Unit(constID)
		require.True(t, ok)
		p, err := u.Params().Get(0)
		require.NoError(t, err)
		require.NoError(t, p.SetBase(values[i]))
	}
	doneIdx := m.active[1]
	envUnit, ok := m.voices[doneIdx].Circuit.Unit(envID)
	require.True(t, ok)
	envUnit.(*fakeEnvelope).done = true

	for i := range left {
		left[i] = 0
		right[i] = 0
	}
	m.Tick(nil, left, right, 4)

	require.Equal(t, 3, m.NumActiveVoices())
	// Surviving voices (5, 15, 20) each ticked exactly once: sum/4 = 10.
	// The aliasing bug instead skips 15 and double-ticks 20, giving
	// (5+20+20)/4 = 11.25.
	for i := range left {
		require.Equal(t, 10.0, left[i])
		require.Equal(t, 10.0, right[i])
	}
}

// TestManagerRecoversVoicePanicAndDropsBuffer is the VoiceManager side of
// the audio-thread panic contract (unit.Failuref / unit.FatalError):
// a panic from one voice's Tick must not crash the caller, must leave that
// voice contributing silence for the buffer, and must not stop surviving
// voices from being ticked.
func TestManagerRecoversVoicePanicAndDropsBuffer(t *testing.T) {
	proto := circuit.New("proto")
	constID := proto.AddUnit(units.NewConstant("const", 3))
	proto.AddUnit(newPanicUnit("boom"))
	outID := proto.AddUnit(units.NewOutputUnit("out"))
	require.NoError(t, proto.Connect(constID, 0, outID, 0, false))
	require.NoError(t, proto.SetSink(outID))
	proto.SetAudioConfig(44100, 120, 4)

	m := NewManager(proto, nil, 2, 44100, 120, 4)

	q := command.New()
	require.NoError(t, q.Submit(command.Command{Kind: command.NoteOn, Note: 60, Velocity: 100}))
	require.NoError(t, q.Submit(command.Command{Kind: command.NoteOn, Note: 61, Velocity: 100}))

	left := make([]float64, 4)
	right := make([]float64, 4)
	require.NotPanics(t, func() {
		m.Tick(q, left, right, 4)
	})

	require.Equal(t, uint64(2), m.PanicCount())
	require.Equal(t, 2, m.NumActiveVoices())
	// Both voices panic every tick (panicUnit always fails), so both
	// contribute silence; the constant's 3 never reaches the mix.
	for i := range left {
		require.Zero(t, left[i])
		require.Zero(t, right[i])
	}
}
