// Package unit defines the Unit contract: a single processing node that
// owns parameters, typed input/output ports, and a per-buffer process
// routine. Concrete kinds live in package units; Circuit (package circuit)
// composes Units into a graph.
package unit

import (
	"fmt"

	"github.com/vosim/voxgraph/pkg/paramtable"
)

// ClassID is the stable, portable identifier for a concrete unit kind,
// computed by the factory as an FNV-1a 32-bit hash of the kind's canonical
// class name. It is NOT the platform default string hash the original
// source used — that choice does not survive across builds, so presets
// would desync after a recompile on a different toolchain.
type ClassID uint32

// Unit is the polymorphic contract every concrete node kind satisfies.
// Built-in kinds (package units) implement it directly; user-pluggable
// kinds registered through the factory satisfy it the same way — there is
// no separate "external unit" type.
type Unit interface {
	ID() uint32
	SetID(id uint32)
	Name() string
	SetName(name string)

	ClassID() ClassID
	ClassName() string

	Params() *paramtable.Table
	Inputs() []*InputPort
	Outputs() []*OutputPort
	InputByID(id uint32) (*InputPort, bool)
	OutputByID(id uint32) (*OutputPort, bool)

	SampleRate() float64
	Tempo() float64
	BufferSize() int

	// SetAudioConfig applies sample rate, tempo and buffer size together,
	// invoking OnFsChange/OnTempoChange and resizing output ports as
	// needed. Buffer growth beyond the previously seen maximum is the only
	// path that reallocates output buffers; never called from the audio
	// thread mid-tick.
	SetAudioConfig(sampleRate, tempo float64, bufferSize int)

	OnFsChange(sampleRate float64)
	OnTempoChange(tempo float64)
	OnNoteOn(note, velocity int)
	OnNoteOff(note, velocity int)
	OnParamChange(paramID uint32)
	OnInputConnect(portID uint32)
	OnInputDisconnect(portID uint32)

	// Process reads connected inputs and parameters and writes n samples
	// starting at offset 0 of every output port. Called once per tick, in
	// topological order, by the owning Circuit.
	Process(n int)

	// Clone returns a value-equal Unit of the same concrete kind with its
	// own independent parameter table and port buffers — required for
	// voice replication. Connections are not part of Clone's contract;
	// the Circuit re-wires the clone's ports itself.
	Clone() Unit

	// Tick resets this tick's parameter modulation accumulators, then
	// calls Process(n). The owning Circuit does not call Tick: it performs
	// the reset and Process itself so it can apply parameter modulation in
	// between.
	Tick(n int)

	// TickWithBuffers is the offset-free override for off-audio-thread use
	// (oscilloscope rendering, tests). It temporarily swaps each port's
	// buffer for the ones given, runs Process, and restores the original
	// buffers on every exit path, including panics.
	TickWithBuffers(inputs, outputs [][]float64)
}

// Failuref is called by concrete units to report the fatal, non-recoverable
// conditions the spec assigns to out-of-range parameter/port access: bad
// port ids, mismatched buffer lengths. It panics; the VoiceManager recovers
// at the per-buffer tick boundary and drops that buffer rather than
// crashing the host process.
func Failuref(format string, args ...any) {
	panic(&FatalError{Message: fmt.Sprintf(format, args...)})
}

// FatalError marks a programmer-error panic raised from inside a Unit's
// Process method, distinguishing it from an unexpected runtime panic so the
// VoiceManager's recover point can log a clear message.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string { return e.Message }
