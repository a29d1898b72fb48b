package preset

import (
	"fmt"
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

func TestSaveLoadRoundTrip(t *testing.T) {
	f := newTestFactory(t)

	c := circuit.New("proto")
	oscID := c.AddUnit(units.NewBasicOscillator("osc"))
	envID := c.AddUnit(units.NewADSREnvelope("env"))
	gainID := c.AddUnit(units.NewGain("gain"))
	outID := c.AddUnit(units.NewOutputUnit("out"))

	require.NoError(t, c.Connect(oscID, 0, gainID, 0, false))
	require.NoError(t, c.Connect(envID, 0, gainID, 1, false))
	require.NoError(t, c.Connect(gainID, 0, outID, 0, false))
	require.NoError(t, c.SetSink(outID))

	oscUnit, _ := c.Unit(oscID)
	freqParam, err := oscUnit.Params().Get(0)
	require.NoError(t, err)
	require.NoError(t, freqParam.SetBase(880))

	data, err := Save(c, nil)
	require.NoError(t, err)

	reloaded, gui, err := Load(data, f)
	require.NoError(t, err)
	require.Nil(t, gui)

	require.Len(t, reloaded.Units(), 4)
	require.Len(t, reloaded.Connections(), 3)

	reloadedOsc, ok := reloaded.Unit(oscID)
	require.True(t, ok)
	reloadedFreq, err := reloadedOsc.Params().Get(0)
	require.NoError(t, err)
	require.Equal(t, 880.0, reloadedFreq.Base())

	sinkID, ok := reloaded.SinkID()
	require.True(t, ok)
	require.Equal(t, outID, sinkID)

	data2, err := Save(reloaded, nil)
	require.NoError(t, err)
	require.JSONEq(t, string(data), string(data2))
}

func TestLoadUnknownClassIDAborts(t *testing.T) {
	f := newTestFactory(t)
	data := []byte(`{"synth":{"circuit":{"name":"x","units":[{"class_id":999999,"id":0,"name":"u","parameters":{}}],"connections":[],"sink_id":0,"has_sink":false}}}`)

	_, _, err := Load(data, f)
	require.ErrorIs(t, err, ErrUnknownClassID)
}

func TestLoadExtraParamIDIsIgnoredAndMissingKeepsDefault(t *testing.T) {
	f := newTestFactory(t)
	classID := factory.ClassIDForName("math", "gain")

	// param id 0 ("gain") is intentionally omitted; param id 999 does not
	// exist on this unit kind at all.
	raw := []byte(fmt.Sprintf(
		`{"synth":{"circuit":{"name":"proto","units":[`+
			`{"class_id":%d,"id":0,"name":"gain","parameters":{"999":5}}`+
			`],"connections":[],"sink_id":0,"has_sink":true}}}`,
		uint32(classID)))

	reloaded, _, err := Load(raw, f)
	require.NoError(t, err)

	u, ok := reloaded.Unit(0)
	require.True(t, ok)
	p, err := u.Params().Get(0)
	require.NoError(t, err)
	require.Equal(t, p.Info.DefaultValue, p.Base())
}
