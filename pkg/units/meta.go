package units

import (
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/unit"
)

// InputUnit is the externally-visible input pseudo-unit a Circuit exposes
// so circuits compose: its single output mirrors a value the Circuit's
// owner (typically the audio callback's in_left/in_right, or a parent
// circuit's internal wiring) pushes in before each tick via SetExternalBuffer.
type InputUnit struct {
	unit.Base
	external []float64
}

func NewInputUnit(name string) *InputUnit {
	u := &InputUnit{}
	u.Base.Init(u, "meta.input", factory.ClassID("meta.input"))
	u.SetName(name)
	u.AddOutput("out")
	return u
}

// SetExternalBuffer sets the externally-owned buffer (e.g. the host's
// in_left slice) that Process copies into this pseudo-unit's output; samples
// past its end, or all samples when it is nil, are written as zero.
func (u *InputUnit) SetExternalBuffer(buf []float64) {
	u.external = buf
}

func (u *InputUnit) Process(n int) {
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		if u.external != nil && i < len(u.external) {
			out.Write(i, u.external[i])
		} else {
			out.Write(i, 0)
		}
	}
}

func (u *InputUnit) Clone() unit.Unit {
	dst := &InputUnit{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// OutputUnit is the sink pseudo-unit: a Circuit designates one unit's
// output as its sink (see circuit.Circuit.SetSink), and by convention the
// sink is typically an OutputUnit whose single input is the circuit's
// audio-rate result, read back by the owner after Tick.
type OutputUnit struct {
	unit.Base
}

func NewOutputUnit(name string) *OutputUnit {
	u := &OutputUnit{}
	u.Base.Init(u, "meta.output", factory.ClassID("meta.output"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.AddOutput("out")
	return u
}

func (u *OutputUnit) Process(n int) {
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, in.Read(i))
	}
}

func (u *OutputUnit) Clone() unit.Unit {
	dst := &OutputUnit{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}
