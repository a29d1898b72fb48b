// Package voice implements the VoiceManager component (spec.md §4.D): it
// owns the prototype circuit and a pool of cloned voice circuits, routes
// MIDI note/CC traffic, allocates and steals voices, and sums their output
// into a stereo accumulator each buffer.
package voice

import (
	"github.com/vosim/voxgraph/pkg/circuit"
)

// Voice is a cloned Circuit plus the MIDI/age bookkeeping spec.md §3
// assigns it. Age increases monotonically at note-on and drives the
// oldest-first stealing policy.
type Voice struct {
	Circuit  *circuit.Circuit
	Note     int
	Velocity int
	NoteOn   bool
	Age      uint64
}
