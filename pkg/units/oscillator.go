package units

import (
	"math"

	"github.com/vosim/voxgraph/pkg/dsp"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/paramtable"
	"github.com/vosim/voxgraph/pkg/unit"
)

const (
	oscParamFreq      uint32 = 0
	oscParamWaveform  uint32 = 1
	oscParamPitchBend uint32 = 2

	oscInputFreqMod uint32 = 0
	oscInputSync    uint32 = 1

	oscOutputMain uint32 = 0
)

var waveformNames = []string{"sine", "saw", "square", "triangle", "noise"}

// BasicOscillator generates one of the standard waveforms
// (sine/saw/square/triangle/noise; only saw and square are PolyBLEP
// antialiased) at a frequency derived from its `freq`
// parameter plus an optional freq-mod input, wrapping dsp.GenerateSample /
// dsp.PolyBLEPSaw / dsp.PolyBLEPSquare. Grounded on the teacher's
// audio/oscillator.go GenerateWaveformSample + AdvancePhase.
type BasicOscillator struct {
	unit.Base
	phase float64
}

// NewBasicOscillator returns an oscillator unit named name.
func NewBasicOscillator(name string) *BasicOscillator {
	u := &BasicOscillator{}
	u.Base.Init(u, "oscillator.basic", factory.ClassID("oscillator.basic"))
	u.SetName(name)
	u.AddInput("freq_mod", 0)
	u.AddInput("sync", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(oscParamFreq, "freq").Range(0.01, 20000, 440).Modulatable().Display(paramtable.DisplayHz).MustBuild(),
		paramtable.NewBuilder(oscParamWaveform, "waveform").Enum(waveformNames...).MustBuild(),
		paramtable.NewBuilder(oscParamPitchBend, "pitch_bend").Range(-2, 2, 0).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *BasicOscillator) OnNoteOn(note, velocity int) {
	u.Base.OnNoteOn(note, velocity)
	freqParam, _ := u.Params().Get(oscParamFreq)
	freqParam.SetBase(dsp.NoteToFrequency(float64(note)))
	u.phase = 0
}

func (u *BasicOscillator) Process(n int) {
	freq, _ := u.Params().Get(oscParamFreq)
	waveform, _ := u.Params().Get(oscParamWaveform)
	bend, _ := u.Params().Get(oscParamPitchBend)

	freqMod := u.Inputs()[oscInputFreqMod]
	sync := u.Inputs()[oscInputSync]
	out := u.Outputs()[oscOutputMain]

	fs := u.SampleRate()
	wf := dsp.Waveform(int(waveform.Current()))
	bendRatio := math.Pow(2.0, bend.Current())

	var lastSync float64
	for i := 0; i < n; i++ {
		s := sync.Read(i)
		if s > 0.5 && lastSync <= 0.5 {
			u.phase = 0
		}
		lastSync = s

		f := (freq.Current() + freqMod.Read(i)) * bendRatio
		increment := f / fs

		var sample float64
		switch wf {
		case dsp.WaveformSaw:
			sample = dsp.PolyBLEPSaw(u.phase, increment)
		case dsp.WaveformSquare:
			sample = dsp.PolyBLEPSquare(u.phase, increment)
		default:
			sample = dsp.GenerateSample(u.phase, wf)
		}
		out.Write(i, sample)
		u.phase = dsp.AdvancePhase(u.phase, f, fs)
	}
}

func (u *BasicOscillator) Clone() unit.Unit {
	dst := &BasicOscillator{phase: u.phase}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

const (
	vosimParamFreq         uint32 = 0
	vosimParamFormantRatio uint32 = 1
	vosimParamDecay        uint32 = 2
)

// VosimOscillator generates a formant-style pulse train: a carrier at the
// base frequency whose raised-cosine pulses are shaped by a per-cycle decay
// envelope, approximating the two-oscillator VOSIM synthesis technique from
// original_source/VOSIMLib/units/include/Oscillator.h. The formant ratio
// and decay are exposed as parameters rather than the original's internal
// fixed topology, since the spec's ParameterModel makes them natural
// modulation targets.
type VosimOscillator struct {
	unit.Base
	phase float64
}

func NewVosimOscillator(name string) *VosimOscillator {
	u := &VosimOscillator{}
	u.Base.Init(u, "oscillator.vosim", factory.ClassID("oscillator.vosim"))
	u.SetName(name)
	u.AddInput("freq_mod", 0)
	u.Params().RegisterAll(
		paramtable.NewBuilder(vosimParamFreq, "freq").Range(0.01, 2000, 110).Modulatable().Display(paramtable.DisplayHz).MustBuild(),
		paramtable.NewBuilder(vosimParamFormantRatio, "formant_ratio").Range(1, 32, 4).Modulatable().MustBuild(),
		paramtable.NewBuilder(vosimParamDecay, "decay").Range(0.1, 16, 2).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *VosimOscillator) OnNoteOn(note, velocity int) {
	u.Base.OnNoteOn(note, velocity)
	freqParam, _ := u.Params().Get(vosimParamFreq)
	freqParam.SetBase(dsp.NoteToFrequency(float64(note)))
	u.phase = 0
}

func (u *VosimOscillator) Process(n int) {
	freq, _ := u.Params().Get(vosimParamFreq)
	ratio, _ := u.Params().Get(vosimParamFormantRatio)
	decay, _ := u.Params().Get(vosimParamDecay)
	freqMod := u.Inputs()[0]
	out := u.Outputs()[0]
	fs := u.SampleRate()

	for i := 0; i < n; i++ {
		f := freq.Current() + freqMod.Read(i)
		out.Write(i, dsp.VosimPulse(u.phase, ratio.Current(), decay.Current()))
		u.phase = dsp.AdvancePhase(u.phase, f, fs)
	}
}

func (u *VosimOscillator) Clone() unit.Unit {
	dst := &VosimOscillator{phase: u.phase}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}

// Noise emits white noise scaled by an amplitude parameter.
type Noise struct {
	unit.Base
	seed uint64
}

const noiseParamAmplitude uint32 = 0

func NewNoise(name string) *Noise {
	u := &Noise{seed: 0x9e3779b97f4a7c15}
	u.Base.Init(u, "oscillator.noise", factory.ClassID("oscillator.noise"))
	u.SetName(name)
	u.Params().RegisterAll(
		paramtable.NewBuilder(noiseParamAmplitude, "amplitude").Range(0, 1, 1).Modulatable().MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *Noise) Process(n int) {
	amp, _ := u.Params().Get(noiseParamAmplitude)
	out := u.Outputs()[0]
	a := amp.Current()
	for i := 0; i < n; i++ {
		u.seed ^= u.seed << 13
		u.seed ^= u.seed >> 7
		u.seed ^= u.seed << 17
		v := float64(u.seed>>11) / float64(1<<53)
		out.Write(i, (2*v-1)*a)
	}
}

func (u *Noise) Clone() unit.Unit {
	dst := &Noise{seed: u.seed}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}
