package units

import (
	"github.com/vosim/voxgraph/pkg/dsp"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/paramtable"
	"github.com/vosim/voxgraph/pkg/unit"
)

const (
	envParamAttack  uint32 = 0
	envParamDecay   uint32 = 1
	envParamSustain uint32 = 2
	envParamRelease uint32 = 3
)

// ADSREnvelope wraps dsp.ADSR as a Unit: attack/decay/sustain/release
// staged amplitude envelope, triggered by note-on/note-off. Grounded on the
// teacher's pkg/util ADSREnvelope, generalized to run per-sample against
// the unit port/parameter model instead of being driven directly by voice
// code.
type ADSREnvelope struct {
	unit.Base
	env *dsp.ADSR
}

func NewADSREnvelope(name string) *ADSREnvelope {
	u := &ADSREnvelope{env: dsp.NewADSR(44100)}
	u.Base.Init(u, "envelope.adsr", factory.ClassID("envelope.adsr"))
	u.SetName(name)
	u.Params().RegisterAll(
		paramtable.NewBuilder(envParamAttack, "attack").Range(0.0001, 20, 0.01).Modulatable().Display(paramtable.DisplayTime).MustBuild(),
		paramtable.NewBuilder(envParamDecay, "decay").Range(0.0001, 20, 0.1).Modulatable().Display(paramtable.DisplayTime).MustBuild(),
		paramtable.NewBuilder(envParamSustain, "sustain").Range(0, 1, 0.7).Modulatable().Display(paramtable.DisplayPercent).MustBuild(),
		paramtable.NewBuilder(envParamRelease, "release").Range(0.0001, 20, 0.3).Modulatable().Display(paramtable.DisplayTime).MustBuild(),
	)
	u.AddOutput("out")
	return u
}

func (u *ADSREnvelope) OnFsChange(sampleRate float64) {
	u.env.SampleRate = sampleRate
}

func (u *ADSREnvelope) OnNoteOn(note, velocity int) {
	u.Base.OnNoteOn(note, velocity)
	u.env.Trigger()
}

func (u *ADSREnvelope) OnNoteOff(note, velocity int) {
	u.Base.OnNoteOff(note, velocity)
	u.env.NoteOff()
}

func (u *ADSREnvelope) Process(n int) {
	attack, _ := u.Params().Get(envParamAttack)
	decay, _ := u.Params().Get(envParamDecay)
	sustain, _ := u.Params().Get(envParamSustain)
	release, _ := u.Params().Get(envParamRelease)
	u.env.SetParams(attack.Current(), decay.Current(), sustain.Current(), release.Current())

	out := u.Outputs()[0]
	for i := 0; i < n; i++ {
		out.Write(i, u.env.Process())
	}
}

// Reset immediately silences the envelope, used when a circuit is rebuilt
// from a preset so a reloaded voice never starts mid-envelope.
func (u *ADSREnvelope) Reset() {
	u.env.Reset()
}

// Done reports whether the envelope has released fully to idle — this is
// the per-voice "amplitude envelope reports done" signal the VoiceManager
// polls to decide when a releasing voice becomes reapable.
func (u *ADSREnvelope) Done() bool {
	return u.env.Done()
}

func (u *ADSREnvelope) Clone() unit.Unit {
	dst := &ADSREnvelope{env: dsp.NewADSR(u.env.SampleRate)}
	u.Base.CloneInto(&dst.Base, dst)
	return dst
}
