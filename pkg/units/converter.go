package units

import (
	"github.com/vosim/voxgraph/pkg/dsp"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/unit"
)

// P2F converts a pitch (MIDI note number, possibly fractional) input into a
// frequency in Hz, wrapping dsp.NoteToFrequency.
type P2F struct {
	unit.Base
}

func NewP2F(name string) *P2F {
	u := &P2F{}
	u.Base.Init(u, "converter.p2f", factory.ClassID("converter.p2f"))
	u.SetName(name)
	u.AddInput("pitch", 69)
	u.AddOutput("freq")
	return u
}

func (u *P2F) Process(n int) {
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, dsp.NoteToFrequency(in.Read(i)))
	}
}

func (u *P2F) Clone() unit.Unit {
	dst := &P2F{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// F2P converts a frequency in Hz into a MIDI pitch value, the inverse of P2F.
type F2P struct {
	unit.Base
}

func NewF2P(name string) *F2P {
	u := &F2P{}
	u.Base.Init(u, "converter.f2p", factory.ClassID("converter.f2p"))
	u.SetName(name)
	u.AddInput("freq", 440)
	u.AddOutput("pitch")
	return u
}

func (u *F2P) Process(n int) {
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, dsp.FrequencyToNote(in.Read(i)))
	}
}

func (u *F2P) Clone() unit.Unit {
	dst := &F2P{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}
