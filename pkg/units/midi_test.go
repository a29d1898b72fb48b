package units_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vosim/voxgraph/pkg/units"
)

func TestGateOutputsOneWhileHeld(t *testing.T) {
	u := units.NewGate("g")
	u.SetAudioConfig(44100, 120, 4)

	u.Tick(4)
	require.Equal(t, []float64{0, 0, 0, 0}, u.Outputs()[0].Buffer())

	u.OnNoteOn(60, 100)
	u.Tick(4)
	require.Equal(t, []float64{1, 1, 1, 1}, u.Outputs()[0].Buffer())

	u.OnNoteOff(60, 0)
	u.Tick(4)
	require.Equal(t, []float64{0, 0, 0, 0}, u.Outputs()[0].Buffer())
}

func TestVelocityNormalizesTo0To1(t *testing.T) {
	u := units.NewVelocity("v")
	u.SetAudioConfig(44100, 120, 1)

	u.OnNoteOn(60, 127)
	u.Tick(1)
	require.InDelta(t, 1.0, u.Outputs()[0].Buffer()[0], 1e-9)

	u.OnNoteOn(60, 0)
	u.Tick(1)
	require.Equal(t, 0.0, u.Outputs()[0].Buffer()[0])
}

func TestPitchOutputsNotePlusResolvedBend(t *testing.T) {
	u := units.NewPitch("p")
	u.SetAudioConfig(44100, 120, 1)

	u.OnNoteOn(60, 100)
	u.Tick(1)
	require.Equal(t, 60.0, u.Outputs()[0].Buffer()[0])

	u.ReceivePitchBend(2.0)
	u.Tick(1)
	require.Equal(t, 62.0, u.Outputs()[0].Buffer()[0])

	u.ReceivePitchBend(-1.5)
	u.Tick(1)
	require.Equal(t, 58.5, u.Outputs()[0].Buffer()[0])
}

func TestPitchCloneCopiesNoteAndBendIndependently(t *testing.T) {
	u := units.NewPitch("p")
	u.OnNoteOn(64, 100)
	u.ReceivePitchBend(1.0)

	clone := u.Clone().(*units.Pitch)
	clone.SetAudioConfig(44100, 120, 1)
	clone.Tick(1)
	require.Equal(t, 65.0, clone.Outputs()[0].Buffer()[0])

	// Mutating the original afterward must not affect the clone.
	u.ReceivePitchBend(5.0)
	clone.Tick(1)
	require.Equal(t, 65.0, clone.Outputs()[0].Buffer()[0])
}

func TestCCLearnModeRebindsControllerOnNextMessage(t *testing.T) {
	u := units.NewCC("cc")
	u.Learning = true

	u.ReceiveCC(74, 0.5)
	require.False(t, u.Learning)

	controllerParam, err := u.Params().Get(0)
	require.NoError(t, err)
	require.Equal(t, 74.0, controllerParam.Current())

	u.SetAudioConfig(44100, 120, 1)
	u.Tick(1)
	require.Equal(t, 0.5, u.Outputs()[0].Buffer()[0])
}

func TestCCIgnoresMessagesForOtherControllersOnceBound(t *testing.T) {
	u := units.NewCC("cc")
	u.Learning = true
	u.ReceiveCC(74, 0.5)

	u.ReceiveCC(1, 0.9) // different controller, should be ignored
	u.SetAudioConfig(44100, 120, 1)
	u.Tick(1)
	require.Equal(t, 0.5, u.Outputs()[0].Buffer()[0])

	u.ReceiveCC(74, 0.9) // bound controller, should update
	u.Tick(1)
	require.Equal(t, 0.9, u.Outputs()[0].Buffer()[0])
}
