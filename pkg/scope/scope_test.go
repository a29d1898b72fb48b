package scope

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTapInactiveDropsWrites(t *testing.T) {
	tap := NewTap()
	tap.Write(1.0)

	dst := make([]float64, 4)
	n := tap.Snapshot(dst)
	require.Zero(t, n)
}

func TestTapSnapshotReturnsMostRecentSamplesInOrder(t *testing.T) {
	tap := NewTap()
	tap.SetActive(true)
	for i := 0; i < 5; i++ {
		tap.Write(float64(i))
	}

	dst := make([]float64, 3)
	n := tap.Snapshot(dst)
	require.Equal(t, 3, n)
	require.Equal(t, []float64{2, 3, 4}, dst)
}

func TestTapSyncUpdatesEWMAPeriodEstimate(t *testing.T) {
	tap := NewTap()
	tap.SetActive(true)

	for i := 0; i < 100; i++ {
		tap.Write(0)
	}
	tap.Sync()
	require.InDelta(t, 90.0, tap.PeriodEstimate(), 1e-9)

	for i := 0; i < 100; i++ {
		tap.Write(0)
	}
	tap.Sync()
	require.InDelta(t, 99.0, tap.PeriodEstimate(), 1e-9)
}
