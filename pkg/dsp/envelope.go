package dsp

import "math"

// EnvelopeStage is the current phase of an ADSR envelope.
type EnvelopeStage int

const (
	EnvelopeIdle EnvelopeStage = iota
	EnvelopeAttack
	EnvelopeDecay
	EnvelopeSustain
	EnvelopeRelease
)

// ADSR is an attack/decay/sustain/release envelope generator. It is a plain
// value-shaping state machine, not a Unit — units.ADSREnvelope wraps it with
// parameter/port plumbing.
type ADSR struct {
	Attack  float64 // seconds
	Decay   float64 // seconds
	Sustain float64 // level, 0-1
	Release float64 // seconds

	Stage        EnvelopeStage
	CurrentValue float64
	timeInStage  float64
	releaseLevel float64
	SampleRate   float64
}

// NewADSR returns an envelope with VOSIM-like default timings.
func NewADSR(sampleRate float64) *ADSR {
	return &ADSR{
		Attack:     0.01,
		Decay:      0.1,
		Sustain:    0.7,
		Release:    0.3,
		SampleRate: sampleRate,
		Stage:      EnvelopeIdle,
	}
}

// Trigger starts the envelope from the attack stage.
func (e *ADSR) Trigger() {
	e.Stage = EnvelopeAttack
	e.timeInStage = 0
	e.CurrentValue = 0
}

// NoteOff moves the envelope into its release stage, unless already idle.
func (e *ADSR) NoteOff() {
	if e.Stage != EnvelopeIdle && e.Stage != EnvelopeRelease {
		e.releaseLevel = e.CurrentValue
		e.Stage = EnvelopeRelease
		e.timeInStage = 0
	}
}

// Process advances the envelope by one sample and returns its value.
func (e *ADSR) Process() float64 {
	sampleDuration := 1.0 / e.SampleRate

	switch e.Stage {
	case EnvelopeIdle:
		e.CurrentValue = 0

	case EnvelopeAttack:
		if e.Attack > 0 {
			e.CurrentValue = e.timeInStage / e.Attack
			if e.CurrentValue >= 1.0 {
				e.CurrentValue = 1.0
				e.Stage = EnvelopeDecay
				e.timeInStage = 0
			} else {
				e.timeInStage += sampleDuration
			}
		} else {
			e.CurrentValue = 1.0
			e.Stage = EnvelopeDecay
			e.timeInStage = 0
		}

	case EnvelopeDecay:
		if e.Decay > 0 {
			progress := e.timeInStage / e.Decay
			e.CurrentValue = 1.0 - progress*(1.0-e.Sustain)
			if progress >= 1.0 {
				e.CurrentValue = e.Sustain
				e.Stage = EnvelopeSustain
				e.timeInStage = 0
			} else {
				e.timeInStage += sampleDuration
			}
		} else {
			e.CurrentValue = e.Sustain
			e.Stage = EnvelopeSustain
			e.timeInStage = 0
		}

	case EnvelopeSustain:
		e.CurrentValue = e.Sustain

	case EnvelopeRelease:
		if e.Release > 0 {
			progress := e.timeInStage / e.Release
			if progress >= 1.0 {
				e.CurrentValue = 0
				e.Stage = EnvelopeIdle
				e.timeInStage = 0
			} else {
				e.CurrentValue = e.releaseLevel * math.Pow(1.0-progress, 2.0)
				e.timeInStage += sampleDuration
			}
		} else {
			e.CurrentValue = 0
			e.Stage = EnvelopeIdle
			e.timeInStage = 0
		}
	}

	return e.CurrentValue
}

// Done reports whether the envelope has fully released to idle — this is
// the per-voice signal the VoiceManager uses to reap a releasing voice.
func (e *ADSR) Done() bool {
	return e.Stage == EnvelopeIdle
}

// Reset immediately silences the envelope.
func (e *ADSR) Reset() {
	e.Stage = EnvelopeIdle
	e.CurrentValue = 0
	e.timeInStage = 0
}

// SetParams sets all four ADSR parameters at once, clamped to sane ranges.
func (e *ADSR) SetParams(attack, decay, sustain, release float64) {
	e.Attack = Clamp(attack, 0, 20.0)
	e.Decay = Clamp(decay, 0, 20.0)
	e.Sustain = Clamp(sustain, 0, 1.0)
	e.Release = Clamp(release, 0, 20.0)
}
