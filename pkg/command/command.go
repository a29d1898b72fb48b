// Package command implements the lock-free control channel between a
// non-realtime control thread (GUI/host) and the audio thread, per
// the CommandQueue component (component E). Commands are plain structs
// rather than closures: closures would force a heap allocation per
// enqueue, which the audio thread's SPSC consumer side must avoid just
// as much as the producer side must avoid locking.
package command

import "errors"

// ErrQueueFull is returned by Queue.Submit when the ring buffer has no
// free slot. Callers may retry on the next control-thread tick or coalesce.
var ErrQueueFull = errors.New("command: queue full")

// Kind tags the taxonomy of control->audio actions from spec.md 4.E.
type Kind int

const (
	ModifyParam Kind = iota
	ModifyParamNorm
	Connect
	Disconnect
	AddUnit
	DeleteUnit
	SetMaxVoices
	NoteOn
	NoteOff
	SetTempo
	SetFs

	// CC and PitchBend are not part of spec.md §4.E's enumerated
	// control->audio taxonomy, but carrying MIDI CC/bend traffic (spec.md
	// §6) through the same SPSC channel as NoteOn/NoteOff is the same
	// real-time-safe path the spec already requires for notes, so they are
	// added here rather than given a second, parallel channel.
	CC
	PitchBend
)

// Command is the argument payload for one queued action. Only the fields
// relevant to Kind are meaningful; unused fields are left zero.
type Command struct {
	Kind Kind

	UnitID    uint32
	ParamID   uint32
	Value     float64
	SrcUnit   uint32
	SrcOutput uint32
	DstUnit   uint32
	DstInput  uint32
	IsFeedback bool
	ClassID   uint32
	Note       int
	Velocity   int
	MaxVoices  int
	Controller int
}

// Notification is the audio->control direction: events the audio thread
// reports back (e.g. a voice was stolen, a parameter changed under
// modulation). The GUI thread drains these at its own pace.
type Notification struct {
	Kind    Kind
	UnitID  uint32
	ParamID uint32
	Value   float64
}
