package units

import (
	"github.com/vosim/voxgraph/pkg/dsp"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/paramtable"
	"github.com/vosim/voxgraph/pkg/unit"
)

const (
	svfParamFreq      uint32 = 0
	svfParamResonance uint32 = 1

	svfOutputLowpass  uint32 = 0
	svfOutputHighpass uint32 = 1
	svfOutputBandpass uint32 = 2
	svfOutputNotch    uint32 = 3
)

// SVF exposes all four simultaneous state-variable filter outputs as a
// Unit, wrapping dsp.SVF (itself lifted from the teacher's
// audio.StateVariableFilter).
type SVF struct {
	unit.Base
	core *dsp.SVF
}

func NewSVF(name string) *SVF {
	u := &SVF{core: dsp.NewSVF(44100)}
	u.Base.Init(u, "filter.svf", factory.ClassID("filter.svf"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(svfParamFreq, "cutoff").Range(20, 20000, 1000).Modulatable().MustBuild(),
		paramtable.NewBuilder(svfParamResonance, "resonance").Range(0.5, 20, 1).Modulatable().MustBuild(),
	)
	u.AddOutput("lowpass")
	u.AddOutput("highpass")
	u.AddOutput("bandpass")
	u.AddOutput("notch")
	return u
}

func (u *SVF) OnFsChange(sampleRate float64) {
	u.core.SampleRate = sampleRate
}

func (u *SVF) Process(n int) {
	freq, _ := u.Params().Get(svfParamFreq)
	res, _ := u.Params().Get(svfParamResonance)
	in := u.Inputs()[0]
	outs := u.Outputs()

	u.core.SetFrequency(freq.Current())
	u.core.SetResonance(res.Current())

	for i := 0; i < n; i++ {
		lp, hp, bp, notch := u.core.Process(in.Read(i))
		outs[svfOutputLowpass].Write(i, lp)
		outs[svfOutputHighpass].Write(i, hp)
		outs[svfOutputBandpass].Write(i, bp)
		outs[svfOutputNotch].Write(i, notch)
	}
}

func (u *SVF) Clone() unit.Unit {
	dst := &SVF{core: dsp.NewSVF(u.core.SampleRate)}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// ladderUnit backs both LadderA and LadderB — the two classic ladder
// feedback topologies the spec names, differing only in where resonance
// feedback is tapped (dsp.Ladder.Process's topologyB argument).
type ladderUnit struct {
	unit.Base
	core      *dsp.Ladder
	topologyB bool
}

const (
	ladderParamFreq      uint32 = 0
	ladderParamResonance uint32 = 1
)

func newLadderUnit(name, className string, topologyB bool) *ladderUnit {
	u := &ladderUnit{core: dsp.NewLadder(44100), topologyB: topologyB}
	u.Base.Init(u, className, factory.ClassID(className))
	u.SetName(name)
	u.AddInput("in", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(ladderParamFreq, "cutoff").Range(20, 20000, 1000).Modulatable().MustBuild(),
		paramtable.NewBuilder(ladderParamResonance, "resonance").Range(0, 4, 0.1).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *ladderUnit) OnFsChange(sampleRate float64) {
	u.core.SampleRate = sampleRate
}

func (u *ladderUnit) Process(n int) {
	freq, _ := u.Params().Get(ladderParamFreq)
	res, _ := u.Params().Get(ladderParamResonance)
	in := u.Inputs()[0]
	out := u.Outputs()[0]

	u.core.Frequency = freq.Current()
	u.core.Resonance = res.Current()

	for i := 0; i < n; i++ {
		out.Write(i, u.core.Process(in.Read(i), u.topologyB))
	}
}

func (u *ladderUnit) Clone() unit.Unit {
	dst := &ladderUnit{core: dsp.NewLadder(u.core.SampleRate), topologyB: u.topologyB}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// LadderA is the ladder filter with feedback tapped before the first stage.
type LadderA struct{ *ladderUnit }

func NewLadderA(name string) *LadderA {
	return &LadderA{newLadderUnit(name, "filter.ladder_a", false)}
}

// LadderB is the ladder filter with feedback tapped after the third stage.
type LadderB struct{ *ladderUnit }

func NewLadderB(name string) *LadderB {
	return &LadderB{newLadderUnit(name, "filter.ladder_b", true)}
}

const onePoleParamCutoff uint32 = 0

// OnePoleLP is a one-pole lowpass filter, wrapping dsp.OnePole (lifted from
// the teacher's audio.SimpleLowPassFilter).
type OnePoleLP struct {
	unit.Base
	core *dsp.OnePole
}

func NewOnePoleLP(name string) *OnePoleLP {
	u := &OnePoleLP{core: dsp.NewOnePole(44100)}
	u.Base.Init(u, "filter.onepole_lp", factory.ClassID("filter.onepole_lp"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(onePoleParamCutoff, "cutoff").Range(20, 20000, 1000).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *OnePoleLP) OnFsChange(sampleRate float64) {
	u.core.SampleRate = sampleRate
}

func (u *OnePoleLP) Process(n int) {
	cutoff, _ := u.Params().Get(onePoleParamCutoff)
	u.core.SetCutoff(cutoff.Current())
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, u.core.ProcessLowpass(in.Read(i)))
	}
}

func (u *OnePoleLP) Clone() unit.Unit {
	dst := &OnePoleLP{core: dsp.NewOnePole(u.core.SampleRate)}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// DCRemover is a fixed one-pole highpass at ~5Hz, grounded on
// original_source MathUnits.h DCRemoverUnit.
type DCRemover struct {
	unit.Base
	core *dsp.OnePole
}

func NewDCRemover(name string) *DCRemover {
	u := &DCRemover{core: dsp.NewOnePole(44100)}
	u.core.SetCutoff(5.0)
	u.Base.Init(u, "filter.dc_remover", factory.ClassID("filter.dc_remover"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.AddOutput("out")
	return u
}

func (u *DCRemover) OnFsChange(sampleRate float64) {
	u.core.SampleRate = sampleRate
	u.core.SetCutoff(5.0)
}

func (u *DCRemover) Process(n int) {
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, u.core.ProcessHighpass(in.Read(i)))
	}
}

func (u *DCRemover) Clone() unit.Unit {
	dst := &DCRemover{core: dsp.NewOnePole(u.core.SampleRate)}
	dst.core.SetCutoff(5.0)
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

const followerParamTime uint32 = 0

// Follower is an envelope follower (full-wave rectify + one-pole smooth),
// grounded on original_source Follower.h.
type Follower struct {
	unit.Base
	core *dsp.Follower
}

func NewFollower(name string) *Follower {
	u := &Follower{core: dsp.NewFollower(44100)}
	u.Base.Init(u, "filter.follower", factory.ClassID("filter.follower"))
	u.SetName(name)
	u.AddInput("in", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(followerParamTime, "time_constant").Range(0.0001, 2, 0.01).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *Follower) OnFsChange(sampleRate float64) {
	u.core.SampleRate = sampleRate
}

func (u *Follower) Process(n int) {
	timeConst, _ := u.Params().Get(followerParamTime)
	u.core.SetTimeConstant(timeConst.Current())
	in := u.Inputs()[0]
	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, u.core.Process(in.Read(i)))
	}
}

func (u *Follower) Clone() unit.Unit {
	dst := &Follower{core: dsp.NewFollower(u.core.SampleRate)}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}
