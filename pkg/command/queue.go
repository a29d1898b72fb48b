package command

// Queue holds the two SPSC ring buffers described by spec.md 4.E: one
// carrying control->audio commands, the other audio->control
// notifications. A Queue has exactly one producer and one consumer per
// direction; using it from more than one goroutine on either the
// producer or consumer side of a single ring is not supported.
type Queue struct {
	toAudio   ring
	toControl ring
}

// New returns an empty command queue.
func New() *Queue {
	return &Queue{}
}

// Submit enqueues a control->audio command. Called from the control
// thread (GUI/host). Returns ErrQueueFull if the ring has no capacity;
// the caller may retry on its next tick.
func (q *Queue) Submit(c Command) error {
	if !q.toAudio.push(c) {
		return ErrQueueFull
	}
	return nil
}

// Drain removes up to drainLimit pending control->audio commands and
// invokes fn for each, in enqueue order. Called once per audio buffer
// from the audio thread. Returns the number of commands drained.
func (q *Queue) Drain(fn func(Command)) int {
	n := 0
	for n < drainLimit {
		c, ok := q.toAudio.pop()
		if !ok {
			break
		}
		fn(c)
		n++
	}
	return n
}

// Notify enqueues an audio->control notification. Called from the
// audio thread; must not block or allocate.
func (q *Queue) Notify(n Notification) bool {
	return q.toControl.push(Command{
		Kind:    n.Kind,
		UnitID:  n.UnitID,
		ParamID: n.ParamID,
		Value:   n.Value,
	})
}

// DrainNotifications removes all pending audio->control notifications
// and invokes fn for each. Called from the GUI thread at its own pace;
// unbounded since it never runs on the audio thread.
func (q *Queue) DrainNotifications(fn func(Notification)) int {
	n := 0
	for {
		c, ok := q.toControl.pop()
		if !ok {
			break
		}
		fn(Notification{Kind: c.Kind, UnitID: c.UnitID, ParamID: c.ParamID, Value: c.Value})
		n++
	}
	return n
}

// PendingToAudio reports how many control->audio commands await drain.
func (q *Queue) PendingToAudio() int {
	return q.toAudio.len()
}
