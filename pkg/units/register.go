package units

import (
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/unit"
)

// RegisterBuiltins registers every built-in unit kind's prototype with f,
// under the groups SPEC_FULL.md's unit catalogue names. Call once at
// process initialization, before f.Freeze().
func RegisterBuiltins(f *factory.Factory) error {
	builtins := []struct {
		group, name string
		prototype   unit.Unit
	}{
		{"oscillator", "basic", NewBasicOscillator("oscillator_proto")},
		{"oscillator", "vosim", NewVosimOscillator("oscillator_proto")},
		{"oscillator", "noise", NewNoise("oscillator_proto")},
		{"envelope", "adsr", NewADSREnvelope("envelope_proto")},
		{"filter", "svf", NewSVF("filter_proto")},
		{"filter", "ladder_a", NewLadderA("filter_proto")},
		{"filter", "ladder_b", NewLadderB("filter_proto")},
		{"filter", "onepole_lp", NewOnePoleLP("filter_proto")},
		{"filter", "dc_remover", NewDCRemover("filter_proto")},
		{"filter", "follower", NewFollower("filter_proto")},
		{"math", "summer", NewSummer("math_proto")},
		{"math", "gain", NewGain("math_proto")},
		{"math", "lerp", NewLerp("math_proto")},
		{"math", "tanh", NewTanh("math_proto")},
		{"math", "rectifier", NewRectifier("math_proto")},
		{"math", "quantizer", NewQuantizer("math_proto")},
		{"math", "pan", NewPan("math_proto")},
		{"math", "switch", NewSwitch("math_proto")},
		{"math", "constant", NewConstant("math_proto", 0)},
		{"delay", "one_sample", NewOneSampleDelay("delay_proto")},
		{"delay", "variable", NewVariableDelay("delay_proto")},
		{"midi", "gate", NewGate("midi_proto")},
		{"midi", "pitch", NewPitch("midi_proto")},
		{"midi", "velocity", NewVelocity("midi_proto")},
		{"midi", "cc", NewCC("midi_proto")},
		{"midi", "voice_index", NewVoiceIndex("midi_proto")},
		{"converter", "p2f", NewP2F("converter_proto")},
		{"converter", "f2p", NewF2P("converter_proto")},
		{"meta", "input", NewInputUnit("meta_proto")},
		{"meta", "output", NewOutputUnit("meta_proto")},
	}

	for _, b := range builtins {
		if err := f.Register(b.group, b.name, b.prototype); err != nil {
			return err
		}
	}
	return nil
}
