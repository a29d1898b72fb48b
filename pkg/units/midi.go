package units

import (
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/paramtable"
	"github.com/vosim/voxgraph/pkg/unit"
)

// Gate outputs 1.0 while a note is held, 0.0 otherwise — the simplest MIDI
// source unit, driven purely by OnNoteOn/OnNoteOff.
type Gate struct {
	unit.Base
	level float64
}

func NewGate(name string) *Gate {
	u := &Gate{}
	u.Base.Init(u, "midi.gate", factory.ClassID("midi.gate"))
	u.SetName(name)
	u.AddOutput("out")
	return u
}

func (u *Gate) OnNoteOn(note, velocity int) {
	u.Base.OnNoteOn(note, velocity)
	u.level = 1.0
}

func (u *Gate) OnNoteOff(note, velocity int) {
	u.Base.OnNoteOff(note, velocity)
	u.level = 0.0
}

func (u *Gate) Process(n int) {
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, u.level)
	}
}

func (u *Gate) Clone() unit.Unit {
	dst := &Gate{level: u.level}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Pitch outputs the current note number (0-127) as a constant signal,
// updated on note-on and offset by the last received pitch bend (already
// resolved to semitones by the engine), typically feeding a Converter.P2F.
type Pitch struct {
	unit.Base
	note float64
	bend float64
}

func NewPitch(name string) *Pitch {
	u := &Pitch{}
	u.Base.Init(u, "midi.pitch", factory.ClassID("midi.pitch"))
	u.SetName(name)
	u.AddOutput("out")
	return u
}

func (u *Pitch) OnNoteOn(note, velocity int) {
	u.Base.OnNoteOn(note, velocity)
	u.note = float64(note)
}

// ReceivePitchBend stores the current bend, in semitones, applied on top of
// the held note until the next bend update.
func (u *Pitch) ReceivePitchBend(semitones float64) {
	u.bend = semitones
}

func (u *Pitch) Process(n int) {
	out := u.Outputs()[0]
	value := u.note + u.bend
	for i := 0; i < n; i++ {
		out.Write(i, value)
	}
}

func (u *Pitch) Clone() unit.Unit {
	dst := &Pitch{note: u.note, bend: u.bend}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Velocity outputs the note-on velocity normalized to [0, 1].
type Velocity struct {
	unit.Base
	velocity float64
}

func NewVelocity(name string) *Velocity {
	u := &Velocity{}
	u.Base.Init(u, "midi.velocity", factory.ClassID("midi.velocity"))
	u.SetName(name)
	u.AddOutput("out")
	return u
}

func (u *Velocity) OnNoteOn(note, velocity int) {
	u.Base.OnNoteOn(note, velocity)
	u.velocity = float64(velocity) / 127.0
}

func (u *Velocity) Process(n int) {
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, u.velocity)
	}
}

func (u *Velocity) Clone() unit.Unit {
	dst := &Velocity{velocity: u.velocity}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

const ccParamController uint32 = 0

// CC outputs the most recently received value of a specific MIDI
// controller, in [0, 1]. When Learning is true, the next call to
// ReceiveCC rebinds Controller to whatever controller number arrives,
// implementing the spec's §6 "learn mode captures the next CC received".
type CC struct {
	unit.Base
	value    float64
	Learning bool
}

func NewCC(name string) *CC {
	u := &CC{}
	u.Base.Init(u, "midi.cc", factory.ClassID("midi.cc"))
	u.SetName(name)
	u.Params().RegisterAll(
		paramtable.NewBuilder(ccParamController, "controller").Range(0, 127, 1).Stepped().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

// ReceiveCC is called by the engine's MIDI dispatch for every incoming CC
// message. If Learning is set, it rebinds this unit's controller parameter
// to the received controller number and clears Learning; otherwise it only
// updates value when controller matches the bound controller.
func (u *CC) ReceiveCC(controller int, value float64) {
	controllerParam, _ := u.Params().Get(ccParamController)
	if u.Learning {
		controllerParam.SetBase(float64(controller))
		u.Learning = false
		u.value = value
		return
	}
	if int(controllerParam.Current()) == controller {
		u.value = value
	}
}

func (u *CC) Process(n int) {
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, u.value)
	}
}

func (u *CC) Clone() unit.Unit {
	dst := &CC{value: u.value, Learning: u.Learning}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// VoiceIndex outputs this voice's stable small-integer pool index, set by
// the VoiceManager at clone time — useful for per-voice detuning or pseudo
// stereo-spread patches.
type VoiceIndex struct {
	unit.Base
	index float64
}

func NewVoiceIndex(name string) *VoiceIndex {
	u := &VoiceIndex{}
	u.Base.Init(u, "midi.voice_index", factory.ClassID("midi.voice_index"))
	u.SetName(name)
	u.AddOutput("out")
	return u
}

// SetIndex is called by the VoiceManager once, right after cloning the
// prototype circuit into a pool slot.
func (u *VoiceIndex) SetIndex(index int) {
	u.index = float64(index)
}

func (u *VoiceIndex) Process(n int) {
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, u.index)
	}
}

func (u *VoiceIndex) Clone() unit.Unit {
	dst := &VoiceIndex{index: u.index}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}
