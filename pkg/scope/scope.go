// Package scope implements the Oscilloscope tap (component G, spec.md
// §4.G): a passive observer that samples a designated unit's output into
// an SPSC ring buffer, written by the audio thread and polled by the GUI
// thread, plus an EWMA period estimate driven by a trigger source's
// sync signal. Grounded on original_source/Oscilloscope.cpp's
// input()/sync() pair, re-architected per spec.md §9 so the GUI thread is
// never invoked from the audio path: Oscilloscope.cpp calls IControl
// dirty-marking directly from sync(), which this package never does.
package scope

import (
	"math"
	"sync/atomic"
)

// ringCapacity bounds the tap's backing store; large enough to hold
// several display periods at typical audio sample rates and buffer sizes.
const ringCapacity = 1 << 14

// Tap observes one designated unit's output. Write is called once per
// sample from the audio thread; Read/Snapshot are called from the GUI
// thread. The two sides share only the atomic head/tail cursors below, the
// same SPSC discipline as command.ring.
type Tap struct {
	head uint64
	_    [64 - 8]byte
	tail uint64
	_    [64 - 8]byte
	buf  [ringCapacity]float64

	active     atomic.Bool
	periodEst  atomic.Uint64 // bits of a float64 EWMA estimate, samples
	sinceSync  int           // audio-thread-only, mirrors m_currSyncDelay
}

// NewTap returns an inactive tap. SetActive(true) begins accepting writes.
func NewTap() *Tap {
	return &Tap{}
}

// SetActive toggles whether Write/Sync have any effect, mirroring
// Oscilloscope's m_isActive guard so a disconnected tap costs nothing on
// the audio thread beyond one atomic load per call.
func (t *Tap) SetActive(active bool) {
	t.active.Store(active)
}

// Write appends one observed sample. Called from the audio thread, once
// per sample of the designated unit's output, after the unit has produced
// it this tick. Never blocks; on a full ring the oldest unread sample is
// silently overwritten, since the display only cares about recent history.
func (t *Tap) Write(y float64) {
	if !t.active.Load() {
		return
	}
	head := atomic.LoadUint64(&t.head)
	t.buf[head%ringCapacity] = y
	head++
	atomic.StoreUint64(&t.head, head)
	if head-atomic.LoadUint64(&t.tail) > ringCapacity {
		atomic.StoreUint64(&t.tail, head-ringCapacity)
	}
	t.sinceSync++
}

// Sync marks one trigger period boundary, updating the EWMA period
// estimate exactly as spec.md §4.G and Oscilloscope.cpp's sync() do:
// est += 0.9*(observed - est). Called from the audio thread once per
// detected trigger edge from the designated trigger source.
func (t *Tap) Sync() {
	if !t.active.Load() {
		return
	}
	observed := float64(t.sinceSync)
	est := math.Float64frombits(t.periodEst.Load())
	est += 0.9 * (observed - est)
	t.periodEst.Store(math.Float64bits(est))
	t.sinceSync = 0
}

// PeriodEstimate returns the current EWMA period estimate in samples.
// Safe to call from the GUI thread at any time.
func (t *Tap) PeriodEstimate() float64 {
	return math.Float64frombits(t.periodEst.Load())
}

// Snapshot copies up to len(dst) of the most recently written samples,
// oldest first, into dst, returning the number copied. Called from the
// GUI thread; never touches audio-thread-only state beyond the atomic
// cursors.
func (t *Tap) Snapshot(dst []float64) int {
	head := atomic.LoadUint64(&t.head)
	tail := atomic.LoadUint64(&t.tail)
	available := int(head - tail)
	if available > ringCapacity {
		available = ringCapacity
	}
	n := len(dst)
	if n > available {
		n = available
	}
	start := head - uint64(n)
	for i := 0; i < n; i++ {
		dst[i] = t.buf[(start+uint64(i))%ringCapacity]
	}
	return n
}
