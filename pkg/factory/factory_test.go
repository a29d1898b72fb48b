package factory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/units"
)

func TestRegisterRejectsDuplicateCanonicalName(t *testing.T) {
	f := factory.New()
	require.NoError(t, f.Register("math", "gain", units.NewGain("p")))
	require.ErrorIs(t, f.Register("math", "gain", units.NewGain("p2")), factory.ErrAlreadyRegistered)
}

func TestRegisterAfterFreezeFails(t *testing.T) {
	f := factory.New()
	f.Freeze()
	err := f.Register("math", "gain", units.NewGain("p"))
	require.Error(t, err)
}

func TestCreateByClassIDAssignsSequentialDefaultNames(t *testing.T) {
	f := factory.New()
	require.NoError(t, f.Register("math", "gain", units.NewGain("proto")))
	f.Freeze()

	id := factory.ClassIDForName("math", "gain")

	a, err := f.CreateByClassID(id)
	require.NoError(t, err)
	require.Equal(t, "math_1", a.Name())

	b, err := f.CreateByClassID(id)
	require.NoError(t, err)
	require.Equal(t, "math_2", b.Name())
}

func TestCreateByClassIDUnknownErrors(t *testing.T) {
	f := factory.New()
	f.Freeze()
	_, err := f.CreateByClassID(factory.ClassIDForName("nonexistent", "kind"))
	require.ErrorIs(t, err, factory.ErrUnknownClassID)
}

func TestCreateByNameAndByIndexAgree(t *testing.T) {
	f := factory.New()
	require.NoError(t, f.Register("math", "gain", units.NewGain("proto")))
	require.NoError(t, f.Register("math", "summer", units.NewSummer("proto")))
	f.Freeze()

	byName, err := f.CreateByName("math.summer")
	require.NoError(t, err)

	byIndex, err := f.CreateByIndex(1)
	require.NoError(t, err)

	require.Equal(t, byName.ClassID(), byIndex.ClassID())
}

func TestCreateByIndexOutOfRangeErrors(t *testing.T) {
	f := factory.New()
	f.Freeze()
	_, err := f.CreateByIndex(0)
	require.ErrorIs(t, err, factory.ErrIndexOutOfRange)
}

func TestClassIDIsStableAcrossCalls(t *testing.T) {
	require.Equal(t, factory.ClassID("math.gain"), factory.ClassID("math.gain"))
	require.NotEqual(t, factory.ClassID("math.gain"), factory.ClassID("math.summer"))
}

func TestGroupsAndPrototypesInGroup(t *testing.T) {
	f := factory.New()
	require.NoError(t, f.Register("math", "gain", units.NewGain("proto")))
	require.NoError(t, f.Register("math", "summer", units.NewSummer("proto")))
	require.NoError(t, f.Register("filter", "svf", units.NewSVF("proto")))
	f.Freeze()

	require.ElementsMatch(t, []string{"math", "filter"}, f.Groups())
	require.Equal(t, []string{"gain", "summer"}, f.PrototypesInGroup("math"))
}
