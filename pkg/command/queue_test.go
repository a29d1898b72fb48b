package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueSubmitDrainPreservesOrder(t *testing.T) {
	q := New()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Submit(Command{Kind: NoteOn, Note: i}))
	}

	var seen []int
	n := q.Drain(func(c Command) { seen = append(seen, c.Note) })

	require.Equal(t, 5, n)
	require.Equal(t, []int{0, 1, 2, 3, 4}, seen)
	require.Zero(t, q.PendingToAudio())
}

func TestQueueSubmitReturnsFullAtCapacity(t *testing.T) {
	q := New()
	for i := 0; i < capacity; i++ {
		require.NoError(t, q.Submit(Command{Kind: NoteOn}))
	}
	require.ErrorIs(t, q.Submit(Command{Kind: NoteOn}), ErrQueueFull)
}

func TestQueueDrainRespectsLimit(t *testing.T) {
	q := New()
	for i := 0; i < capacity; i++ {
		require.NoError(t, q.Submit(Command{Kind: NoteOn, Note: i}))
	}

	n := q.Drain(func(Command) {})
	require.Equal(t, drainLimit, n)
	require.Equal(t, capacity-drainLimit, q.PendingToAudio())
}

func TestQueueNotifyDrainNotifications(t *testing.T) {
	q := New()
	require.True(t, q.Notify(Notification{Kind: ModifyParam, UnitID: 3, ParamID: 1, Value: 0.5}))

	var got []Notification
	n := q.DrainNotifications(func(nf Notification) { got = append(got, nf) })

	require.Equal(t, 1, n)
	require.Equal(t, uint32(3), got[0].UnitID)
	require.Equal(t, 0.5, got[0].Value)
}
