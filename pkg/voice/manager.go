package voice

import (
	"errors"

	"github.com/charmbracelet/log"

	"github.com/vosim/voxgraph/pkg/circuit"
	"github.com/vosim/voxgraph/pkg/command"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/performance"
	"github.com/vosim/voxgraph/pkg/unit"
)

// Sentinel errors surfaced by non-audio-thread Manager APIs.
var (
	ErrPoolExhausted = errors.New("voice: pool exhausted")
	ErrUnknownVoice  = errors.New("voice: unknown voice index")
)

// panicLogInterval bounds how often a recovered audio-thread panic is
// logged: the first occurrence, then every panicLogInterval-th one after,
// so a patch that faults every buffer doesn't flood the log.
const panicLogInterval = 1000

// Manager owns the prototype circuit and the voice pool, per spec.md §4.D.
// The prototype is never ticked for audio; every voice is an independent
// clone of it. All mutation entry points below except Tick are intended to
// be called only between buffers, either directly (tests, single-threaded
// callers) or via a drained command.Queue.
type Manager struct {
	factory *factory.Factory
	proto   *circuit.Circuit

	voices []*Voice // fixed-size pool, index is the stable voice id
	idle   []int    // LIFO stack of free indices
	active []int    // insertion order, oldest first, newest last

	// tickScratch is a reused snapshot buffer for Tick's reap loop (see
	// Tick): it must not alias m.active's backing array, but it also must
	// not allocate every buffer once warmed up to capacity (spec.md §8
	// invariant 6).
	tickScratch []int

	noteMap map[int][]int // note -> voice indices currently playing it

	maxVoices  int
	ageCounter uint64
	tickCount  uint64
	panicCount uint64

	sampleRate float64
	tempo      float64
	bufferSize int

	// Metrics is nil-safe and optional; Engine wires it so voice steals and
	// active-voice counts are visible to the performance package's stats.
	Metrics *performance.PerformanceMetrics

	// Logger is nil-safe and optional; Engine wires it so a recovered
	// audio-thread panic (see tickVoiceRecovered) gets a rate-limited log
	// line instead of silently vanishing.
	Logger *log.Logger
}

// NewManager builds a voice pool of maxVoices clones of proto.
func NewManager(proto *circuit.Circuit, f *factory.Factory, maxVoices int, sampleRate, tempo float64, bufferSize int) *Manager {
	m := &Manager{
		factory:    f,
		proto:      proto,
		maxVoices:  maxVoices,
		noteMap:    make(map[int][]int),
		sampleRate: sampleRate,
		tempo:      tempo,
		bufferSize: bufferSize,
	}
	m.rebuildPool()
	return m
}

func (m *Manager) rebuildPool() {
	m.voices = make([]*Voice, m.maxVoices)
	m.idle = m.idle[:0]
	m.active = m.active[:0]
	m.noteMap = make(map[int][]int)

	for i := 0; i < m.maxVoices; i++ {
		cloned := m.proto.Clone().(*circuit.Circuit)
		if m.bufferSize > 0 {
			cloned.SetAudioConfig(m.sampleRate, m.tempo, m.bufferSize)
		}
		for _, u := range cloned.Units() {
			if vi, ok := u.(interface{ SetIndex(int) }); ok {
				vi.SetIndex(i)
			}
		}
		m.voices[i] = &Voice{Circuit: cloned}
		m.idle = append(m.idle, i)
	}
}

// NumVoices returns the pool size (spec.md §4.D getNumVoices).
func (m *Manager) NumVoices() int { return m.maxVoices }

// NumActiveVoices returns the current length of the active stack.
func (m *Manager) NumActiveVoices() int { return len(m.active) }

// Voice exposes a pooled voice by its stable index, for tests and the
// oscilloscope tap.
func (m *Manager) Voice(index int) (*Voice, error) {
	if index < 0 || index >= len(m.voices) {
		return nil, ErrUnknownVoice
	}
	return m.voices[index], nil
}

// Prototype returns the never-ticked template circuit.
func (m *Manager) Prototype() *circuit.Circuit { return m.proto }

// removeFromActive removes idx from the active slice, preserving order.
func (m *Manager) removeFromActive(idx int) {
	for i, v := range m.active {
		if v == idx {
			m.active = append(m.active[:i], m.active[i+1:]...)
			return
		}
	}
}

// removeFromNoteBucket removes idx from the note bucket it last occupied.
func (m *Manager) removeFromNoteBucket(note, idx int) {
	bucket := m.noteMap[note]
	for i, v := range bucket {
		if v == idx {
			m.noteMap[note] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// noteOn implements spec.md §4.D's allocation algorithm.
func (m *Manager) noteOn(note, velocity int) {
	var idx int
	if len(m.idle) > 0 {
		idx = m.idle[len(m.idle)-1]
		m.idle = m.idle[:len(m.idle)-1]
	} else if len(m.active) > 0 {
		// Pool full: steal the oldest active voice (active[0], since the
		// active stack is insertion-ordered with newest last).
		idx = m.active[0]
		m.removeFromActive(idx)
		victim := m.voices[idx]
		m.removeFromNoteBucket(victim.Note, idx)
		if m.Metrics != nil {
			m.Metrics.RecordVoiceSteal()
		}
	} else {
		return // maxVoices == 0; nothing to allocate
	}

	v := m.voices[idx]
	v.Note = note
	v.Velocity = velocity
	v.NoteOn = true
	m.ageCounter++
	v.Age = m.ageCounter
	v.Circuit.OnNoteOn(note, velocity)

	m.active = append(m.active, idx)
	m.noteMap[note] = append(m.noteMap[note], idx)
}

// noteOff delivers note_off to every voice currently bucketed under note.
// The voice stays active (and keeps its note bucket membership) until its
// envelope reports done, at which point Tick reaps it into the idle stack.
func (m *Manager) noteOff(note, velocity int) {
	for _, idx := range m.noteMap[note] {
		v := m.voices[idx]
		v.NoteOn = false
		v.Circuit.OnNoteOff(note, velocity)
	}
}

// setMaxVoices rebuilds the pool per spec.md §4.D: drop the idle stack,
// terminate active voices, re-clone the prototype maxVoices times. Heavy;
// must only be invoked between buffers (a queued command), never from the
// audio thread mid-tick.
func (m *Manager) setMaxVoices(n int) {
	m.maxVoices = n
	m.rebuildPool()
}

// modifyParam fans a parameter edit out to the prototype and every voice's
// corresponding unit, per spec.md §4.D: this keeps every voice structurally
// and parametrically identical, differing only in MIDI/envelope state.
func (m *Manager) modifyParam(unitID, paramID uint32, value float64, normalized bool) {
	apply := func(c *circuit.Circuit) {
		u, ok := c.Unit(unitID)
		if !ok {
			return
		}
		p, err := u.Params().Get(paramID)
		if err != nil {
			return
		}
		if normalized {
			_ = p.SetBaseNormalized(value)
		} else {
			_ = p.SetBase(value)
		}
		u.OnParamChange(paramID)
	}

	apply(m.proto)
	for _, v := range m.voices {
		apply(v.Circuit)
	}
}

// addUnit fans unit creation out to the prototype and every voice, per
// spec.md §4.D's "topology edits that fan out to all voices plus the
// prototype." The prototype gets the originally cloned unit; every voice
// gets an independent clone of it, mirroring the original's addUnit<T>.
func (m *Manager) addUnit(classID uint32) {
	protoUnit, err := m.factory.CreateByClassID(unit.ClassID(classID))
	if err != nil {
		return
	}
	m.proto.AddUnit(protoUnit)
	for _, v := range m.voices {
		v.Circuit.AddUnit(protoUnit.Clone())
	}
}

// deleteUnit fans unit removal out to the prototype and every voice.
func (m *Manager) deleteUnit(unitID uint32) {
	_ = m.proto.RemoveUnit(unitID)
	for _, v := range m.voices {
		_ = v.Circuit.RemoveUnit(unitID)
	}
}

// connect fans a new internal wire out to the prototype and every voice.
func (m *Manager) connect(src, srcOut, dst, dstIn uint32, isFeedback bool) {
	_ = m.proto.Connect(src, srcOut, dst, dstIn, isFeedback)
	for _, v := range m.voices {
		_ = v.Circuit.Connect(src, srcOut, dst, dstIn, isFeedback)
	}
}

// disconnect fans a wire removal out to the prototype and every voice.
func (m *Manager) disconnect(dst, dstIn uint32) {
	m.proto.Disconnect(dst, dstIn)
	for _, v := range m.voices {
		v.Circuit.Disconnect(dst, dstIn)
	}
}

// receiveCC fans a MIDI CC message out to the prototype and every voice, so
// a CC unit added after voices already exist still reacts immediately and a
// learn-mode unit inside an active voice still completes its learn.
func (m *Manager) receiveCC(controller int, value float64) {
	m.proto.ReceiveCC(controller, value)
	for _, v := range m.voices {
		v.Circuit.ReceiveCC(controller, value)
	}
}

// receivePitchBend fans a resolved pitch bend (semitones) out to the
// prototype and every voice, mirroring the other MIDI fan-outs.
func (m *Manager) receivePitchBend(semitones float64) {
	m.proto.ReceivePitchBend(semitones)
	for _, v := range m.voices {
		v.Circuit.ReceivePitchBend(semitones)
	}
}

// setFs / setTempo propagate audio config changes to the prototype and
// every voice circuit, tracking the high-water buffer size (spec.md §5).
func (m *Manager) setFs(fs float64) {
	m.sampleRate = fs
	m.proto.SetAudioConfig(fs, m.tempo, m.bufferSize)
	for _, v := range m.voices {
		v.Circuit.SetAudioConfig(fs, m.tempo, m.bufferSize)
	}
}

func (m *Manager) setTempo(tempo float64) {
	m.tempo = tempo
	m.proto.SetAudioConfig(m.sampleRate, tempo, m.bufferSize)
	for _, v := range m.voices {
		v.Circuit.SetAudioConfig(m.sampleRate, tempo, m.bufferSize)
	}
}

// SetBufferSize preallocates output storage up to n for the prototype and
// every voice. Must be called between buffers, not from the audio thread,
// unless n is within the previously seen high-water mark.
func (m *Manager) SetBufferSize(n int) {
	m.bufferSize = n
	m.proto.SetAudioConfig(m.sampleRate, m.tempo, n)
	for _, v := range m.voices {
		v.Circuit.SetAudioConfig(m.sampleRate, m.tempo, n)
	}
}

// Drain applies one command from the control->audio queue. Exposed so
// Tick's drain loop and tests can both dispatch a single Command the same
// way.
func (m *Manager) Drain(c command.Command) {
	switch c.Kind {
	case command.ModifyParam:
		m.modifyParam(c.UnitID, c.ParamID, c.Value, false)
	case command.ModifyParamNorm:
		m.modifyParam(c.UnitID, c.ParamID, c.Value, true)
	case command.Connect:
		m.connect(c.SrcUnit, c.SrcOutput, c.DstUnit, c.DstInput, c.IsFeedback)
	case command.Disconnect:
		m.disconnect(c.DstUnit, c.DstInput)
	case command.AddUnit:
		m.addUnit(c.ClassID)
	case command.DeleteUnit:
		m.deleteUnit(c.UnitID)
	case command.SetMaxVoices:
		m.setMaxVoices(c.MaxVoices)
	case command.NoteOn:
		m.noteOn(c.Note, c.Velocity)
	case command.NoteOff:
		m.noteOff(c.Note, c.Velocity)
	case command.SetTempo:
		m.setTempo(c.Value)
	case command.SetFs:
		m.setFs(c.Value)
	case command.CC:
		m.receiveCC(c.Controller, c.Value)
	case command.PitchBend:
		m.receivePitchBend(c.Value)
	}
}

// Tick runs one buffer: drains up to the queue's bound, then ticks every
// active voice and sums its output into outLeft/outRight, scaled by
// 1/max_voices, reaping any voice whose envelope has finished releasing
// before ticking it. outLeft and outRight must already be zeroed by the
// caller; n is the frame count and must equal the configured buffer size.
func (m *Manager) Tick(q *command.Queue, outLeft, outRight []float64, n int) {
	if q != nil {
		n := q.Drain(m.Drain)
		if m.Metrics != nil {
			m.Metrics.RecordCommandsDrained(n)
		}
	}

	scale := 1.0
	if m.maxVoices > 0 {
		scale = 1.0 / float64(m.maxVoices)
	}

	// Snapshot into a reused scratch buffer with its own backing array:
	// removeFromActive below mutates m.active in place (a shift-left
	// append), so iterating m.active's own backing array while reaping
	// mid-loop would silently skip or double-visit voices after the reaped
	// index. Reusing m.tickScratch rather than allocating a fresh slice
	// keeps the steady-state tick allocation-free once warmed up.
	m.tickScratch = append(m.tickScratch[:0], m.active...)
	current := m.tickScratch
	for _, idx := range current {
		v := m.voices[idx]
		if v.Circuit.IsDone() {
			m.removeFromActive(idx)
			m.removeFromNoteBucket(v.Note, idx)
			m.idle = append(m.idle, idx)
			continue
		}

		if !m.tickVoiceRecovered(v, n) {
			continue // panic recovered; voice contributes silence this buffer
		}
		out := v.Circuit.Outputs()[0].Buffer()
		for i := 0; i < n; i++ {
			outLeft[i] += out[i] * scale
			outRight[i] += out[i] * scale
		}
	}

	if m.Metrics != nil {
		m.Metrics.UpdateVoiceCount(int32(len(m.active)))
	}
	m.tickCount++
}

// tickVoiceRecovered runs one voice's Tick, recovering any panic raised
// from inside it (chiefly unit.Failuref's *unit.FatalError, but any
// runtime panic is caught the same way) so one misbehaving voice's
// programmer error cannot crash the host process. On a recovered panic the
// voice contributes nothing to this buffer; its internal state is left
// exactly where the panic left it, so a structurally broken patch will
// likely fault the same way next buffer until fixed.
func (m *Manager) tickVoiceRecovered(v *Voice, n int) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.reportPanic(r)
		}
	}()
	v.Circuit.Tick(n)
	return true
}

// reportPanic counts every recovered audio-thread panic but only logs the
// first occurrence and every panicLogInterval-th one after, mirroring the
// teacher's catch-and-count-without-spamming shape for per-sample fault
// conditions (pkg/audio/selectablefilter.go's NaN/Inf counters).
func (m *Manager) reportPanic(r any) {
	m.panicCount++
	if m.Metrics != nil {
		m.Metrics.RecordRecoveredPanic()
	}
	if m.Logger == nil {
		return
	}
	if m.panicCount == 1 || m.panicCount%panicLogInterval == 0 {
		m.Logger.Error("recovered panic ticking voice, dropping buffer", "panic", r, "count", m.panicCount)
	}
}

// PanicCount returns the number of recovered audio-thread panics so far,
// for diagnostics surfaces and tests.
func (m *Manager) PanicCount() uint64 { return m.panicCount }

// TickCount returns the number of buffers processed so far.
func (m *Manager) TickCount() uint64 { return m.tickCount }
