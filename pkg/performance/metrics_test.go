package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPerformanceMetricsTracksMaxProcessTimeAndVoiceSteal(t *testing.T) {
	pm := NewPerformanceMetrics(44100, 128)

	start := pm.StartProcess()
	time.Sleep(time.Millisecond)
	pm.EndProcess(start)

	pm.UpdateVoiceCount(4)
	pm.UpdateVoiceCount(2)
	pm.RecordVoiceSteal()
	pm.RecordVoiceSteal()

	stats := pm.GetStats()
	require.Equal(t, uint64(1), stats.ProcessCallCount)
	require.Greater(t, stats.MaxProcessTime, time.Duration(0))
	require.Equal(t, int32(4), stats.MaxVoicesUsed)
	require.Equal(t, int32(2), stats.CurrentVoicesUsed)
	require.Equal(t, uint64(2), stats.VoiceStealEvents)

	pm.Reset()
	stats = pm.GetStats()
	require.Zero(t, stats.ProcessCallCount)
	require.Zero(t, stats.VoiceStealEvents)
}

func TestPerformanceMetricsTracksCommandsDrainedAndRecoveredPanics(t *testing.T) {
	pm := NewPerformanceMetrics(44100, 128)

	start := pm.StartProcess()
	pm.RecordCommandsDrained(3)
	pm.EndProcess(start)

	start = pm.StartProcess()
	pm.RecordCommandsDrained(7)
	pm.EndProcess(start)

	pm.RecordRecoveredPanic()
	pm.RecordRecoveredPanic()

	stats := pm.GetStats()
	require.Equal(t, uint64(10), stats.CommandsDrained)
	require.Equal(t, uint64(7), stats.MaxCommandsPerBuffer)
	require.Equal(t, uint64(2), stats.RecoveredPanics)

	pm.Reset()
	stats = pm.GetStats()
	require.Zero(t, stats.CommandsDrained)
	require.Zero(t, stats.MaxCommandsPerBuffer)
	require.Zero(t, stats.RecoveredPanics)
}

func TestAllocationTrackerTracksMaxPerBuffer(t *testing.T) {
	at := NewAllocationTracker()

	at.StartBuffer()
	at.TrackAllocation(64)
	at.TrackAllocation(128)
	at.EndBuffer()

	at.StartBuffer()
	at.TrackAllocation(32)
	at.EndBuffer()

	stats := at.GetStats()
	require.Equal(t, uint64(3), stats.TotalAllocations)
	require.Equal(t, uint64(2), stats.MaxAllocsPerBuffer)

	at.Disable()
	at.TrackAllocation(999)
	require.Equal(t, uint64(3), at.GetStats().TotalAllocations)
}
