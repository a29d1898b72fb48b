package dsp

import "math"

// SVF is a state-variable filter producing all four simultaneous outputs
// in one Process call, lifted directly from the teacher's
// audio.StateVariableFilter (same coefficient formula and soft-clip
// stability guards), generalized to live under pkg/dsp so every SVF-based
// unit kind (SVF, LadderA/B) can share it.
type SVF struct {
	SampleRate float64
	Frequency  float64
	Resonance  float64

	lowpass, highpass, bandpass, notch float64
	prevLowpass, prevBandpass          float64
}

// NewSVF returns a state-variable filter core at the given sample rate.
func NewSVF(sampleRate float64) *SVF {
	return &SVF{SampleRate: sampleRate, Frequency: 1000.0, Resonance: 1.0}
}

// SetFrequency clamps and stores the cutoff frequency, limited to 0.45 of
// Nyquist for stability.
func (f *SVF) SetFrequency(freq float64) {
	f.Frequency = Clamp(freq, 20.0, f.SampleRate*0.45)
}

// SetResonance clamps and stores the Q factor.
func (f *SVF) SetResonance(q float64) {
	f.Resonance = Clamp(q, 0.5, 20.0)
}

// Process runs one sample through the filter, returning all four outputs.
func (f *SVF) Process(input float64) (lowpass, highpass, bandpass, notch float64) {
	w := f.Frequency / f.SampleRate
	freq := 2.0 * math.Sin(math.Pi*w)
	if freq > 1.5 {
		freq = 1.5
	}

	damp := 2.0 / f.Resonance

	f.highpass = input - f.prevLowpass - damp*f.prevBandpass
	f.bandpass = freq*f.highpass + f.prevBandpass
	f.lowpass = freq*f.bandpass + f.prevLowpass
	f.notch = f.highpass + f.lowpass

	if math.Abs(f.lowpass) > 10.0 {
		f.lowpass = 10.0 * math.Tanh(f.lowpass/10.0)
	}
	if math.Abs(f.bandpass) > 10.0 {
		f.bandpass = 10.0 * math.Tanh(f.bandpass/10.0)
	}

	f.prevBandpass = f.bandpass
	f.prevLowpass = f.lowpass

	return f.lowpass, f.highpass, f.bandpass, f.notch
}

// Reset clears filter state.
func (f *SVF) Reset() {
	f.lowpass, f.highpass, f.bandpass, f.notch = 0, 0, 0, 0
	f.prevLowpass, f.prevBandpass = 0, 0
}

// OnePole is a one-pole lowpass (or, inverted, highpass/DC-block) filter,
// lifted from the teacher's audio.SimpleLowPassFilter coefficient formula.
type OnePole struct {
	SampleRate float64
	cutoff     float64
	a0, b1     float64
	state      float64
}

// NewOnePole returns a one-pole filter at the given sample rate.
func NewOnePole(sampleRate float64) *OnePole {
	f := &OnePole{SampleRate: sampleRate}
	f.SetCutoff(1000.0)
	return f
}

// SetCutoff sets the -3dB point and recomputes coefficients.
func (f *OnePole) SetCutoff(cutoff float64) {
	f.cutoff = Clamp(cutoff, 1.0, f.SampleRate*0.49)
	omega := 2.0 * math.Pi * f.cutoff / f.SampleRate
	f.a0 = omega / (omega + 1.0)
	f.b1 = (omega - 1.0) / (omega + 1.0)
}

// ProcessLowpass filters one sample, lowpass response.
func (f *OnePole) ProcessLowpass(input float64) float64 {
	output := f.a0*input - f.b1*f.state
	f.state = output
	return output
}

// ProcessHighpass filters one sample by subtracting the lowpass response
// from the input — used by DCRemover.
func (f *OnePole) ProcessHighpass(input float64) float64 {
	return input - f.ProcessLowpass(input)
}

// Reset clears filter state.
func (f *OnePole) Reset() {
	f.state = 0
}

// Ladder is a four-pole ladder filter (Moog-style), grounded on the same
// tanh soft-saturation idiom the teacher's SVF uses for stability,
// generalized to per-stage nonlinear feedback.
type Ladder struct {
	SampleRate float64
	Frequency  float64
	Resonance  float64

	stage [4]float64
	delay [4]float64
}

// NewLadder returns a four-pole ladder filter core.
func NewLadder(sampleRate float64) *Ladder {
	return &Ladder{SampleRate: sampleRate, Frequency: 1000.0, Resonance: 0.1}
}

// Process runs one sample through the ladder, returning the lowpass output.
// topologyB selects between two classic topologies: false feeds the fourth
// stage's output back before the first stage (steeper self-oscillation),
// true feeds back the third stage's output instead (gentler, less prone to
// runaway).
func (f *Ladder) Process(input float64, topologyB bool) float64 {
	wc := 2.0 * math.Pi * Clamp(f.Frequency, 20.0, f.SampleRate*0.45) / f.SampleRate
	g := wc / (1.0 + wc)
	res := Clamp(f.Resonance, 0, 4.0)

	var feedback float64
	if topologyB {
		feedback = res * f.stage[2]
	} else {
		feedback = res * f.delay[3]
	}

	x := input - feedback
	for i := 0; i < 4; i++ {
		in := x
		if i > 0 {
			in = f.stage[i-1]
		}
		f.stage[i] = f.delay[i] + g*(math.Tanh(in)-math.Tanh(f.delay[i]))
		f.delay[i] = f.stage[i]
	}
	return f.stage[3]
}

// Reset clears ladder state.
func (f *Ladder) Reset() {
	for i := range f.stage {
		f.stage[i] = 0
		f.delay[i] = 0
	}
}

// Follower is an envelope follower: full-wave rectify then one-pole
// smooth, grounded on original_source VOSIMLib/units/include/Follower.h
// ("full-wave rectifier" feeding a one-pole lag, per its m_w/m_output pair).
type Follower struct {
	SampleRate float64
	alpha      float64
	output     float64
}

// NewFollower returns an envelope follower with a default ~10ms time constant.
func NewFollower(sampleRate float64) *Follower {
	f := &Follower{SampleRate: sampleRate}
	f.SetTimeConstant(0.01)
	return f
}

// SetTimeConstant sets the smoothing time constant in seconds.
func (f *Follower) SetTimeConstant(seconds float64) {
	if seconds <= 0 {
		f.alpha = 1.0
		return
	}
	f.alpha = 1.0 - math.Exp(-1.0/(seconds*f.SampleRate))
}

// Process rectifies and smooths one sample.
func (f *Follower) Process(input float64) float64 {
	rectified := math.Abs(input)
	f.output += f.alpha * (rectified - f.output)
	return f.output
}

// Reset clears follower state.
func (f *Follower) Reset() {
	f.output = 0
}
