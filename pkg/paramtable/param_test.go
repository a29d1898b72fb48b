package paramtable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParamCurrentAppliesSetAddScale(t *testing.T) {
	info := NewBuilder(1, "Cutoff").Range(20, 20000, 1000).Modulatable().MustBuild()
	p := newParam(info)

	require.Equal(t, 1000.0, p.Current())

	p.AddModulation(500)
	require.Equal(t, 1500.0, p.Current())

	p.ScaleModulation(2.0)
	require.Equal(t, 3000.0, p.Current())

	p.SetOverride(100)
	require.Equal(t, 200.0, p.Current(), "override still scaled, but bypasses base+add")

	p.ResetModulation()
	require.Equal(t, 1000.0, p.Current())
}

func TestParamSetBaseRejectsOutOfRange(t *testing.T) {
	info := NewBuilder(1, "Gain").Range(0, 1, 0.5).MustBuild()
	p := newParam(info)

	require.ErrorIs(t, p.SetBase(-1), ErrValueBelowMinimum)
	require.ErrorIs(t, p.SetBase(2), ErrValueAboveMaximum)
	require.NoError(t, p.SetBase(0.75))
	require.Equal(t, 0.75, p.Base())
}

func TestParamNormalized(t *testing.T) {
	info := NewBuilder(1, "Pan").Range(-1, 1, 0).MustBuild()
	p := newParam(info)

	require.Equal(t, 0.5, p.Normalized())
	require.NoError(t, p.SetBaseNormalized(1.0))
	require.Equal(t, 1.0, p.Base())
}

func TestTableRegisterAndDuplicateID(t *testing.T) {
	table := NewTable()
	info := NewBuilder(1, "Cutoff").Range(20, 20000, 1000).MustBuild()

	_, err := table.Register(info)
	require.NoError(t, err)

	_, err = table.Register(info)
	require.ErrorIs(t, err, ErrParamExists)
	require.Equal(t, 1, table.Count())
}

func TestTableResetAllModulationClearsEveryParam(t *testing.T) {
	table := NewTable()
	info1 := NewBuilder(1, "A").Range(0, 1, 0).MustBuild()
	info2 := NewBuilder(2, "B").Range(0, 1, 0).MustBuild()
	require.NoError(t, table.RegisterAll(info1, info2))

	p1, _ := table.Get(1)
	p2, _ := table.Get(2)
	p1.AddModulation(0.5)
	p2.ScaleModulation(3.0)

	table.ResetAllModulation()

	require.Equal(t, 0.0, p1.Current())
	require.Equal(t, 0.0, p2.Current())
}

func TestTableSnapshotRoundTrip(t *testing.T) {
	table := NewTable()
	info := NewBuilder(1, "Cutoff").Range(20, 20000, 1000).MustBuild()
	require.NoError(t, table.RegisterAll(info))

	p, _ := table.Get(1)
	require.NoError(t, p.SetBase(440))

	snapshot := table.Snapshot()
	require.Equal(t, 440.0, snapshot[1])

	table.ResetToDefaults()
	require.Equal(t, 1000.0, p.Base())

	table.ApplySnapshot(snapshot)
	require.Equal(t, 440.0, p.Base())

	// Unknown ids in a snapshot are ignored rather than erroring.
	table.ApplySnapshot(map[uint32]float64{99: 1.0})
}
