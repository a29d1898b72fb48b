package units

import (
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/paramtable"
	"github.com/vosim/voxgraph/pkg/unit"
)

// OneSampleDelay emits the previous sample it received, with a zero output
// for the very first sample after construction (a Clone carries over the
// original's held sample) — the explicit
// single-sample delay the spec calls out as necessary for feedback finer
// than one buffer.
type OneSampleDelay struct {
	unit.Base
	last float64
}

func NewOneSampleDelay(name string) *OneSampleDelay {
	u := &OneSampleDelay{}
	u.Base.Init(u, "delay.one_sample", factory.ClassID("delay.one_sample"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.AddOutput("out")
	return u
}

func (u *OneSampleDelay) Process(n int) {
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, u.last)
		u.last = in.Read(i)
	}
}

func (u *OneSampleDelay) Clone() unit.Unit {
	dst := &OneSampleDelay{last: u.last}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

const (
	varDelayParamTime uint32 = 0
	varDelayMaxSeconds       = 2.0
)

// VariableDelay is a fractional-delay line read with linear interpolation,
// grounded on original_source VOSIMLib/units/include/MemoryUnit.h's
// variable-length delay buffer.
type VariableDelay struct {
	unit.Base
	buf   []float64
	write int
}

func NewVariableDelay(name string) *VariableDelay {
	u := &VariableDelay{}
	u.Base.Init(u, "delay.variable", factory.ClassID("delay.variable"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(varDelayParamTime, "time").Range(0, varDelayMaxSeconds, 0.1).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *VariableDelay) OnFsChange(sampleRate float64) {
	size := int(sampleRate*varDelayMaxSeconds) + 1
	u.buf = make([]float64, size)
	u.write = 0
}

func (u *VariableDelay) Process(n int) {
	if u.buf == nil {
		u.OnFsChange(u.SampleRate())
	}
	timeParam, _ := u.Params().Get(varDelayParamTime)
	in := u.Inputs()[0]
	out := u.Outputs()[0]

	delaySamples := timeParam.Current() * u.SampleRate()
	bufLen := len(u.buf)

	for i := 0; i < n; i++ {
		readPos := float64(u.write) - delaySamples
		for readPos < 0 {
			readPos += float64(bufLen)
		}
		i0 := int(readPos) % bufLen
		i1 := (i0 + 1) % bufLen
		frac := readPos - float64(int(readPos))
		sample := u.buf[i0]*(1-frac) + u.buf[i1]*frac
		out.Write(i, sample)

		u.buf[u.write] = in.Read(i)
		u.write = (u.write + 1) % bufLen
	}
}

func (u *VariableDelay) Clone() unit.Unit {
	dst := &VariableDelay{write: u.write}
	if u.buf != nil {
		dst.buf = make([]float64, len(u.buf))
		copy(dst.buf, u.buf)
	}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}
