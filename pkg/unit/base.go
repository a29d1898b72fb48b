package unit

import "github.com/vosim/voxgraph/pkg/paramtable"

// Base provides the field storage and default lifecycle hooks every
// concrete unit kind shares: id/name, parameter table, port tables, audio
// config, last MIDI state. Concrete kinds embed Base and override OnFsChange,
// OnNoteOn etc. where they need to react; Process and Clone are never
// provided by Base and must be implemented by the concrete kind.
//
// Go has no virtual dispatch through embedding, so Base.Tick needs a way to
// reach the concrete kind's Process override. It holds a "self" Unit
// reference, set once by the concrete constructor immediately after
// embedding Base — the same trick the teacher's plugin.BasePlugin expects
// callers to replicate by re-implementing each method on the outer type,
// made explicit here instead of left to convention.
type Base struct {
	self Unit

	id        uint32
	name      string
	className string
	classID   ClassID

	params  *paramtable.Table
	inputs  []*InputPort
	outputs []*OutputPort

	sampleRate float64
	tempo      float64
	bufferSize int
	highWater  int

	lastNote     int
	lastVelocity int
	noteOn       bool
}

// Init must be called exactly once, from the concrete constructor, right
// after the struct literal is built: `u := &Basic{}; u.Base.Init(u, ...)`.
func (b *Base) Init(self Unit, className string, classID ClassID) {
	b.self = self
	b.className = className
	b.classID = classID
	b.params = paramtable.NewTable()
	b.sampleRate = 44100.0
	b.bufferSize = 0
}

func (b *Base) ID() uint32     { return b.id }
func (b *Base) SetID(id uint32) { b.id = id }
func (b *Base) Name() string   { return b.name }
func (b *Base) SetName(name string) { b.name = name }

func (b *Base) ClassID() ClassID   { return b.classID }
func (b *Base) ClassName() string { return b.className }

func (b *Base) Params() *paramtable.Table { return b.params }
func (b *Base) Inputs() []*InputPort      { return b.inputs }
func (b *Base) Outputs() []*OutputPort    { return b.outputs }

func (b *Base) InputByID(id uint32) (*InputPort, bool) {
	for _, p := range b.inputs {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (b *Base) OutputByID(id uint32) (*OutputPort, bool) {
	for _, p := range b.outputs {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// AddInput appends a new input port, assigning it the next dense id.
func (b *Base) AddInput(name string, def float64) *InputPort {
	p := &InputPort{ID: uint32(len(b.inputs)), Name: name, Default: def}
	b.inputs = append(b.inputs, p)
	return p
}

// AddOutput appends a new output port, assigning it the next dense id.
func (b *Base) AddOutput(name string) *OutputPort {
	p := &OutputPort{ID: uint32(len(b.outputs))}
	p.Name = name
	if b.bufferSize > 0 {
		p.Resize(b.bufferSize)
	}
	b.outputs = append(b.outputs, p)
	return p
}

func (b *Base) SampleRate() float64 { return b.sampleRate }
func (b *Base) Tempo() float64      { return b.tempo }
func (b *Base) BufferSize() int     { return b.bufferSize }

// SetAudioConfig applies sample rate, tempo and buffer size, resizing
// output ports only if the new size exceeds the high-water mark.
func (b *Base) SetAudioConfig(sampleRate, tempo float64, bufferSize int) {
	if sampleRate != b.sampleRate {
		b.sampleRate = sampleRate
		b.self.OnFsChange(sampleRate)
	}
	if tempo != b.tempo {
		b.tempo = tempo
		b.self.OnTempoChange(tempo)
	}
	if bufferSize > b.highWater {
		b.highWater = bufferSize
		for _, p := range b.outputs {
			p.Resize(bufferSize)
		}
	}
	b.bufferSize = bufferSize
}

// Default no-op lifecycle hooks. Concrete kinds override the ones they
// care about by defining a method of the same name on the outer type.
func (b *Base) OnFsChange(sampleRate float64)    {}
func (b *Base) OnTempoChange(tempo float64)      {}
func (b *Base) OnParamChange(paramID uint32)     {}
func (b *Base) OnInputConnect(portID uint32)     {}
func (b *Base) OnInputDisconnect(portID uint32)  {}

func (b *Base) OnNoteOn(note, velocity int) {
	b.lastNote = note
	b.lastVelocity = velocity
	b.noteOn = true
}

func (b *Base) OnNoteOff(note, velocity int) {
	b.lastVelocity = velocity
	b.noteOn = false
}

// LastNote, LastVelocity and IsNoteOn expose the last MIDI state recorded
// by the default OnNoteOn/OnNoteOff hooks, per the spec's "last MIDI note
// state" Unit attribute.
func (b *Base) LastNote() int      { return b.lastNote }
func (b *Base) LastVelocity() int  { return b.lastVelocity }
func (b *Base) IsNoteOn() bool     { return b.noteOn }

// Tick resets this tick's modulation accumulators then dispatches to the
// concrete kind's Process via the stored self reference.
func (b *Base) Tick(n int) {
	b.params.ResetAllModulation()
	b.self.Process(n)
}

// TickWithBuffers temporarily swaps every port's backing buffer for the
// ones given, runs Process, and restores the originals on every exit path
// — including a panic, which is re-raised after restoration so a caller
// using this for oscilloscope rendering never corrupts the live ports.
func (b *Base) TickWithBuffers(inputs, outputs [][]float64) {
	savedInputs := make([][]float64, len(b.inputs))
	for i, p := range b.inputs {
		savedInputs[i] = p.source
		if i < len(inputs) {
			p.source = inputs[i]
		}
	}
	savedOutputs := make([][]float64, len(b.outputs))
	for i, p := range b.outputs {
		savedOutputs[i] = p.buffer
		if i < len(outputs) {
			p.buffer = outputs[i]
		}
	}
	defer func() {
		for i, p := range b.inputs {
			p.source = savedInputs[i]
		}
		for i, p := range b.outputs {
			p.buffer = savedOutputs[i]
		}
	}()

	n := 0
	if len(outputs) > 0 {
		n = len(outputs[0])
	}
	b.self.Process(n)
}

// CloneInto copies id/name/className/classID/audio-config and a fresh
// parameter table (values copied, modulation reset) from b into dst, and
// rebuilds dst's port slices with the same names/defaults as b's — used by
// every concrete kind's Clone to avoid repeating this boilerplate.
func (b *Base) CloneInto(dst *Base, self Unit) {
	dst.Init(self, b.className, b.classID)
	dst.id = b.id
	dst.name = b.name
	dst.sampleRate = b.sampleRate
	dst.tempo = b.tempo
	dst.bufferSize = b.bufferSize
	dst.highWater = b.highWater

	b.params.ForEach(func(p *paramtable.Param) {
		info := p.Info
		np, _ := dst.params.Register(info)
		np.SetBase(p.Base())
	})

	for _, in := range b.inputs {
		dst.AddInput(in.Name, in.Default)
	}
	for _, out := range b.outputs {
		np := dst.AddOutput(out.Name)
		if b.bufferSize > 0 {
			np.Resize(b.bufferSize)
		}
	}
}
