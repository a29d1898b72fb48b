package units

import (
	"math"

	"github.com/vosim/voxgraph/pkg/dsp"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/paramtable"
	"github.com/vosim/voxgraph/pkg/unit"
)

// Parameter and port ids shared by the math unit family.
const (
	mathParamBias  uint32 = 0
	mathParamScale uint32 = 1
	mathParamGain  uint32 = 0

	mathInputA uint32 = 0
	mathInputB uint32 = 1

	mathOutput uint32 = 0
)

// Summer sums any number of connected inputs, then applies bias + scale:
// out = (Σ inputs + bias) * scale. Grounded on original_source
// VOSIMLib/units/include/MathUnits.h SummerUnit.
type Summer struct {
	unit.Base
}

// NewSummer returns a Summer with two inputs (fan-in is achieved by
// connecting a Connection's source to a shared buffer fanning out, so two
// explicit inputs cover the common binary-sum case; additional operands
// chain through multiple Summers).
func NewSummer(name string) *Summer {
	u := &Summer{}
	u.Base.Init(u, "math.summer", factory.ClassID("math.summer"))
	u.SetName(name)
	u.AddInput("a", 0)
	u.AddInput("b", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(mathParamBias, "bias").Range(-10, 10, 0).Modulatable().MustBuild(),
		paramtable.NewBuilder(mathParamScale, "scale").Range(-10, 10, 1).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *Summer) Process(n int) {
	bias, _ := u.Params().Get(mathParamBias)
	scale, _ := u.Params().Get(mathParamScale)
	ins := u.Inputs()
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, in := range ins {
			sum += in.Read(i)
		}
		out.Write(i, (sum+bias.Current())*scale.Current())
	}
}

func (u *Summer) Clone() unit.Unit {
	dst := &Summer{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Gain applies gain to the difference between its two inputs, modeled on
// MathUnits.h GainUnit ("applies gain to the difference between the two
// inputs, like an op amp"). A unary gain stage simply leaves input b
// unconnected (reads its default of 0).
type Gain struct {
	unit.Base
}

func NewGain(name string) *Gain {
	u := &Gain{}
	u.Base.Init(u, "math.gain", factory.ClassID("math.gain"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.AddInput("inv", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(mathParamGain, "gain").Range(-10, 10, 1).Modulatable().Display(paramtable.DisplayDB).MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *Gain) Process(n int) {
	gain, _ := u.Params().Get(mathParamGain)
	in := u.Inputs()[0]
	inv := u.Inputs()[1]
	out := u.Outputs()[0]
	g := gain.Current()
	for i := 0; i < n; i++ {
		out.Write(i, (in.Read(i)-inv.Read(i))*g)
	}
}

func (u *Gain) Clone() unit.Unit {
	dst := &Gain{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Lerp performs an affine transform mapping an input range onto an output
// range: out = minOutput + (in - inMin)/(inMax - inMin) * (maxOutput - minOutput).
// Grounded on MathUnits.h LerpUnit.
type Lerp struct {
	unit.Base
}

const (
	lerpParamInMin  uint32 = 0
	lerpParamInMax  uint32 = 1
	lerpParamOutMin uint32 = 2
	lerpParamOutMax uint32 = 3
)

func NewLerp(name string) *Lerp {
	u := &Lerp{}
	u.Base.Init(u, "math.lerp", factory.ClassID("math.lerp"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(lerpParamInMin, "in_min").Range(-10, 10, -1).MustBuild(),
		paramtable.NewBuilder(lerpParamInMax, "in_max").Range(-10, 10, 1).MustBuild(),
		paramtable.NewBuilder(lerpParamOutMin, "out_min").Range(-10, 10, 0).Modulatable().MustBuild(),
		paramtable.NewBuilder(lerpParamOutMax, "out_max").Range(-10, 10, 1).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *Lerp) Process(n int) {
	inMin, _ := u.Params().Get(lerpParamInMin)
	inMax, _ := u.Params().Get(lerpParamInMax)
	outMin, _ := u.Params().Get(lerpParamOutMin)
	outMax, _ := u.Params().Get(lerpParamOutMax)
	in := u.Inputs()[0]
	out := u.Outputs()[0]

	imin, imax := inMin.Current(), inMax.Current()
	omin, omax := outMin.Current(), outMax.Current()
	span := imax - imin
	for i := 0; i < n; i++ {
		t := 0.0
		if span != 0 {
			t = (in.Read(i) - imin) / span
		}
		out.Write(i, dsp.Lerp(omin, omax, t))
	}
}

func (u *Lerp) Clone() unit.Unit {
	dst := &Lerp{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Tanh is a soft-clip saturator: out = tanh(drive * in).
type Tanh struct {
	unit.Base
}

const tanhParamDrive uint32 = 0

func NewTanh(name string) *Tanh {
	u := &Tanh{}
	u.Base.Init(u, "math.tanh", factory.ClassID("math.tanh"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(tanhParamDrive, "drive").Range(0.1, 20, 1).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *Tanh) Process(n int) {
	drive, _ := u.Params().Get(tanhParamDrive)
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	d := drive.Current()
	for i := 0; i < n; i++ {
		out.Write(i, math.Tanh(in.Read(i)*d))
	}
}

func (u *Tanh) Clone() unit.Unit {
	dst := &Tanh{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Rectifier is a full-wave rectifier: out = |in|. Grounded on
// MathUnits.h RectifierUnit / audio.Follower-adjacent idea in the teacher.
type Rectifier struct {
	unit.Base
}

func NewRectifier(name string) *Rectifier {
	u := &Rectifier{}
	u.Base.Init(u, "math.rectifier", factory.ClassID("math.rectifier"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.AddOutput("out")
	return u
}

func (u *Rectifier) Process(n int) {
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, math.Abs(in.Read(i)))
	}
}

func (u *Rectifier) Clone() unit.Unit {
	dst := &Rectifier{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Quantizer snaps the input to the nearest multiple of 1/steps, for
// bitcrush-style or stepped-CV effects.
type Quantizer struct {
	unit.Base
}

const quantParamSteps uint32 = 0

func NewQuantizer(name string) *Quantizer {
	u := &Quantizer{}
	u.Base.Init(u, "math.quantizer", factory.ClassID("math.quantizer"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(quantParamSteps, "steps").Range(1, 256, 16).Stepped().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *Quantizer) Process(n int) {
	steps, _ := u.Params().Get(quantParamSteps)
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	s := steps.Current()
	if s < 1 {
		s = 1
	}
	for i := 0; i < n; i++ {
		v := in.Read(i)
		out.Write(i, math.Round(v*s)/s)
	}
}

func (u *Quantizer) Clone() unit.Unit {
	dst := &Quantizer{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Pan splits a single input into left/right outputs using constant-power
// panning (dsp.Pan), grounded on the teacher's audio/dsp.go ApplyPan.
type Pan struct {
	unit.Base
}

const panParamPosition uint32 = 0

func NewPan(name string) *Pan {
	u := &Pan{}
	u.Base.Init(u, "math.pan", factory.ClassID("math.pan"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(panParamPosition, "pan").Range(-1, 1, 0).Modulatable().MustBuild(),
	)
	u.AddOutput("left")
	u.AddOutput("right")
	return u
}

func (u *Pan) Process(n int) {
	pos, _ := u.Params().Get(panParamPosition)
	in := u.Inputs()[0]
	left := u.Outputs()[0]
	right := u.Outputs()[1]
	l, r := dsp.Pan(pos.Current())
	for i := 0; i < n; i++ {
		v := in.Read(i)
		left.Write(i, v*l)
		right.Write(i, v*r)
	}
}

func (u *Pan) Clone() unit.Unit {
	dst := &Pan{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Switch passes through input a when its select input is below 0.5,
// input b otherwise.
type Switch struct {
	unit.Base
}

func NewSwitch(name string) *Switch {
	u := &Switch{}
	u.Base.Init(u, "math.switch", factory.ClassID("math.switch"))
	u.SetName(name)
	u.AddInput("a", 0)
	u.AddInput("b", 0)
	u.AddInput("select", 0)
	u.AddOutput("out")
	return u
}

func (u *Switch) Process(n int) {
	a := u.Inputs()[0]
	b := u.Inputs()[1]
	sel := u.Inputs()[2]
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		if sel.Read(i) < 0.5 {
			out.Write(i, a.Read(i))
		} else {
			out.Write(i, b.Read(i))
		}
	}
}

func (u *Switch) Clone() unit.Unit {
	dst := &Switch{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Constant outputs a fixed value every sample, settable as a parameter so
// it can itself be modulated (e.g. a modulatable DC offset source).
// Grounded on MathUnits.h ConstantUnit.
type Constant struct {
	unit.Base
}

const constParamValue uint32 = 0

func NewConstant(name string, value float64) *Constant {
	u := &Constant{}
	u.Base.Init(u, "math.constant", factory.ClassID("math.constant"))
	u.SetName(name)
	u.Params().RegisterAll(
		paramtable.NewBuilder(constParamValue, "value").Range(-1e6, 1e6, value).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *Constant) Process(n int) {
	value, _ := u.Params().Get(constParamValue)
	out := u.Outputs()[0]
	v := value.Current()
	for i := 0; i < n; i++ {
		out.Write(i, v)
	}
}

func (u *Constant) Clone() unit.Unit {
	dst := &Constant{}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}
