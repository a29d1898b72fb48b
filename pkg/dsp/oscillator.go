package dsp

import "math"

// Waveform selects the shape generated by GenerateSample.
type Waveform int

const (
	WaveformSine Waveform = iota
	WaveformSaw
	WaveformSquare
	WaveformTriangle
	WaveformNoise
)

// GenerateSample returns a single sample for phase in [0, 1).
func GenerateSample(phase float64, waveform Waveform) float64 {
	switch waveform {
	case WaveformSine:
		return math.Sin(2.0 * math.Pi * phase)
	case WaveformSaw:
		return 2.0*phase - 1.0
	case WaveformSquare:
		if phase < 0.5 {
			return 1.0
		}
		return -1.0
	case WaveformTriangle:
		if phase < 0.5 {
			return 4.0*phase - 1.0
		}
		return -4.0*phase + 3.0
	case WaveformNoise:
		x := math.Sin(phase*12.9898+78.233) * 43758.5453
		return 2.0*(x-math.Floor(x)) - 1.0
	default:
		return 0.0
	}
}

// AdvancePhase advances an oscillator phase by one sample and wraps to [0, 1).
func AdvancePhase(phase, frequency, sampleRate float64) float64 {
	phase += frequency / sampleRate
	if phase >= 1.0 {
		phase -= math.Floor(phase)
	}
	if phase < 0 {
		phase -= math.Floor(phase)
	}
	return phase
}

// PolyBLEPSaw generates an anti-aliased sawtooth using PolyBLEP correction
// at the phase-wrap discontinuity.
func PolyBLEPSaw(phase, phaseIncrement float64) float64 {
	value := 2.0*phase - 1.0
	if phase < phaseIncrement {
		t := phase / phaseIncrement
		value -= 2.0 * t * t * (1.0 - 0.5*t)
	} else if phase > 1.0-phaseIncrement {
		t := (phase - 1.0) / phaseIncrement
		value -= 2.0 * t * t * (1.0 + 0.5*t)
	}
	return value
}

// PolyBLEPSquare generates an anti-aliased square wave using PolyBLEP
// correction at both discontinuities.
func PolyBLEPSquare(phase, phaseIncrement float64) float64 {
	value := 1.0
	if phase >= 0.5 {
		value = -1.0
	}
	if phase < phaseIncrement {
		t := phase / phaseIncrement
		value += 2.0 * t * t * (1.0 - 0.5*t)
	} else if phase > 1.0-phaseIncrement {
		t := (phase - 1.0) / phaseIncrement
		value += 2.0 * t * t * (1.0 + 0.5*t)
	}
	if phase > 0.5-phaseIncrement && phase < 0.5+phaseIncrement {
		t := (phase - 0.5) / phaseIncrement
		if t < 0 {
			value -= 2.0 * t * t * (1.0 + 0.5*t)
		} else {
			value -= 2.0 * t * t * (1.0 - 0.5*t)
		}
	}
	return value
}

// VosimPulse generates one sample of a VOSIM-style formant pulse train:
// formantRatio squared-sine pulses per oscillator cycle, shaped by a decay envelope,
// approximating the original VOSIMLib oscillator's carrier/formant pairing.
func VosimPulse(phase, formantRatio, decay float64) float64 {
	formantPhase := phase * formantRatio
	formantPhase -= math.Floor(formantPhase)
	carrier := math.Sin(2.0 * math.Pi * formantPhase)
	if carrier < 0 {
		carrier = 0
	}
	env := math.Pow(1.0-phase, decay)
	return carrier * carrier * env
}
