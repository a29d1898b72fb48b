package unit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vosim/voxgraph/pkg/paramtable"
	"github.com/vosim/voxgraph/pkg/unit"
)

// passthrough is the smallest possible concrete Unit: one input, one
// output, out[i] = in[i] * gain. Used to exercise Base without depending on
// package units (which is built on top of this package).
type passthrough struct {
	unit.Base
	fsChanges int
}

func newPassthrough(name string) *passthrough {
	u := &passthrough{}
	u.Base.Init(u, "test.passthrough", 0xABCD)
	u.SetName(name)
	u.AddInput("in", 0)
	u.AddOutput("out")
	_, err := u.Params().Register(paramtable.NewBuilder(0, "gain").Range(-10, 10, 1).MustBuild())
	if err != nil {
		panic(err)
	}
	return u
}

func (u *passthrough) OnFsChange(sampleRate float64) { u.fsChanges++ }

func (u *passthrough) Process(n int) {
	gain, _ := u.Params().Get(0)
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	g := gain.Current()
	for i := 0; i < n; i++ {
		out.Write(i, in.Read(i)*g)
	}
}

func (u *passthrough) Clone() unit.Unit {
	dst := &passthrough{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

func TestAddInputAddOutputAssignDenseIDs(t *testing.T) {
	u := newPassthrough("p")
	second := u.AddInput("in2", 1)
	require.Equal(t, uint32(1), second.ID)

	secondOut := u.AddOutput("out2")
	require.Equal(t, uint32(1), secondOut.ID)
}

func TestSetAudioConfigOnlyFiresOnFsChangeOnActualChange(t *testing.T) {
	u := newPassthrough("p")
	u.SetAudioConfig(44100, 120, 64) // Init already set 44100
	require.Equal(t, 0, u.fsChanges)

	u.SetAudioConfig(44100, 130, 64) // same sample rate, different tempo
	require.Equal(t, 0, u.fsChanges)

	u.SetAudioConfig(48000, 130, 64)
	require.Equal(t, 1, u.fsChanges)
}

func TestSetAudioConfigOnlyGrowsBuffersNeverShrinks(t *testing.T) {
	u := newPassthrough("p")
	u.SetAudioConfig(44100, 120, 128)
	require.Len(t, u.Outputs()[0].Buffer(), 128)

	u.SetAudioConfig(44100, 120, 32)
	require.Len(t, u.Outputs()[0].Buffer(), 128, "buffer must not shrink below the high-water mark")
}

func TestTickResetsModulationBeforeProcess(t *testing.T) {
	u := newPassthrough("p")
	u.SetAudioConfig(44100, 120, 4)

	gain, _ := u.Params().Get(0)
	gain.AddModulation(5) // this tick only

	u.Tick(4)
	require.Equal(t, 1.0, gain.Current(), "Tick must reset modulation before calling Process again next time")
}

func TestOnNoteOnOnNoteOffTrackLastState(t *testing.T) {
	u := newPassthrough("p")
	require.False(t, u.IsNoteOn())

	u.OnNoteOn(60, 100)
	require.True(t, u.IsNoteOn())
	require.Equal(t, 60, u.LastNote())
	require.Equal(t, 100, u.LastVelocity())

	u.OnNoteOff(60, 0)
	require.False(t, u.IsNoteOn())
}

func TestCloneIntoCopiesParamsAndPortShapeIndependently(t *testing.T) {
	u := newPassthrough("p")
	u.SetAudioConfig(44100, 120, 8)
	gain, _ := u.Params().Get(0)
	require.NoError(t, gain.SetBase(3))

	clone := u.Clone().(*passthrough)
	cloneGain, _ := clone.Params().Get(0)
	require.Equal(t, 3.0, cloneGain.Base())

	require.NoError(t, gain.SetBase(9))
	require.Equal(t, 3.0, cloneGain.Base(), "clone's parameter table must be independent")

	require.Len(t, clone.Outputs()[0].Buffer(), 8)
}

func TestTickWithBuffersRestoresOriginalBuffersEvenOnPanic(t *testing.T) {
	u := newPassthrough("p")
	u.SetAudioConfig(44100, 120, 4)
	originalOut := u.Outputs()[0].Buffer()

	scratchIn := [][]float64{{1, 2, 3, 4}}
	scratchOut := [][]float64{make([]float64, 4)}
	u.TickWithBuffers(scratchIn, scratchOut)

	require.Same(t, &originalOut[0], &u.Outputs()[0].Buffer()[0])

	// An output longer than the input makes Process read past the input's
	// end and panic; the original buffers must still be restored.
	require.Panics(t, func() {
		u.TickWithBuffers(scratchIn, [][]float64{make([]float64, 8)})
	})
	require.Same(t, &originalOut[0], &u.Outputs()[0].Buffer()[0])
}
