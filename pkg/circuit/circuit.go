// Package circuit implements the Circuit component: a Unit that owns child
// Units plus an internal wire set, schedules its children in topological
// order, and is itself a Unit so circuits compose (spec.md §4.B).
package circuit

import (
	"errors"

	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/paramtable"
	"github.com/vosim/voxgraph/pkg/unit"
)

// Sentinel errors returned by the mutation API.
var (
	ErrCycleWouldForm   = errors.New("circuit: connection would form a cycle")
	ErrAlreadyConnected = errors.New("circuit: target input already has a source")
	ErrPortTypeMismatch = errors.New("circuit: buffer sizes do not agree")
	ErrUnknownUnit      = errors.New("circuit: unknown unit id")
	ErrUnknownPort      = errors.New("circuit: unknown port id")
	ErrNoSink           = errors.New("circuit: no sink unit designated")
)

// Connection is the 4-tuple (source_unit, source_output, target_unit,
// target_input), with an explicit feedback flag resolving the spec's open
// question (b): feedback edges are never implicit, never inferred from
// traversal order.
type Connection struct {
	SourceUnit   uint32
	SourceOutput uint32
	TargetUnit   uint32
	TargetInput  uint32
	IsFeedback   bool
}

// ModAction mirrors original_source/Circuit.cpp's MOD_ACTION: how a
// parameter connection's source value combines with the target parameter's
// base value, evaluated through paramtable.Param's accumulators.
type ModAction int

const (
	ModAdd ModAction = iota
	ModScale
	ModSet
)

// ParamConnection wires one unit's output to modulate another unit's
// parameter once per tick (spec.md §3/§4.F), generalizing
// original_source/Circuit.cpp's addConnection(srcname, targetname, pname,
// MOD_ACTION) from string names to arena ids. Unlike an audio Connection,
// a ParamConnection never participates in topological ordering: like a
// feedback edge, it reads the source's previous-tick output.
type ParamConnection struct {
	SourceUnit   uint32
	SourceOutput uint32
	TargetUnit   uint32
	TargetParam  uint32
	Action       ModAction
}

// Circuit owns child Units in a dense arena indexed by a stable small
// integer id (the index itself), per the re-architecture in spec.md §9:
// no raw pointer ownership, Unit's back-reference to its Circuit is just an
// index the Circuit manages, and Clone() is a straight arena copy.
type Circuit struct {
	unit.Base

	units           []unit.Unit // index == unit id; nil slot == removed
	connections     []Connection
	paramConnections []ParamConnection
	sinkID          uint32
	hasSink         bool

	order      []uint32 // cached reverse topological order, leaves->sink
	dirty      bool

	// Feedback and param-modulation reads never touch the producer's live
	// OutputPort.Buffer(); they read the copy Process snapshots at the end of
	// each tick, so the reader sees last tick's values even after the
	// producer has run again this tick.
	prevOutputs map[uint32][]float64 // per (unit,port) snapshot for feedback and param-modulation sources, keyed by unit id*1000 + output port id
}

// New returns an empty circuit named name.
func New(name string) *Circuit {
	c := &Circuit{dirty: true}
	c.Base.Init(c, "meta.circuit", factory.ClassID("meta.circuit"))
	c.SetName(name)
	c.AddOutput("out")
	c.prevOutputs = make(map[uint32][]float64)
	return c
}

// AddUnit takes ownership of u, assigning it the next free arena id.
func (c *Circuit) AddUnit(u unit.Unit) uint32 {
	id := uint32(len(c.units))
	for i, slot := range c.units {
		if slot == nil {
			id = uint32(i)
			u.SetID(id)
			c.units[i] = u
			c.dirty = true
			return id
		}
	}
	u.SetID(id)
	c.units = append(c.units, u)
	c.dirty = true
	return id
}

// RemoveUnit detaches the unit at id, and drops every connection touching
// it. The slot is left nil (tombstoned) so other ids remain stable.
func (c *Circuit) RemoveUnit(id uint32) error {
	if int(id) >= len(c.units) || c.units[id] == nil {
		return ErrUnknownUnit
	}
	c.units[id] = nil

	kept := c.connections[:0]
	for _, conn := range c.connections {
		if conn.SourceUnit == id || conn.TargetUnit == id {
			continue
		}
		kept = append(kept, conn)
	}
	c.connections = kept

	keptParams := c.paramConnections[:0]
	for _, pc := range c.paramConnections {
		if pc.SourceUnit == id || pc.TargetUnit == id {
			continue
		}
		keptParams = append(keptParams, pc)
	}
	c.paramConnections = keptParams

	if c.hasSink && c.sinkID == id {
		c.hasSink = false
	}
	c.dirty = true
	return nil
}

// Unit returns the unit at id, or false if absent/removed.
func (c *Circuit) Unit(id uint32) (unit.Unit, bool) {
	if int(id) >= len(c.units) || c.units[id] == nil {
		return nil, false
	}
	return c.units[id], true
}

// Units returns every live unit, in arena order.
func (c *Circuit) Units() []unit.Unit {
	var out []unit.Unit
	for _, u := range c.units {
		if u != nil {
			out = append(out, u)
		}
	}
	return out
}

// Connections returns the current wire set.
func (c *Circuit) Connections() []Connection {
	return c.connections
}

// SinkID returns the designated sink unit's id, or false if none is set —
// used by preset serialization to record the sink explicitly rather than
// inferring it from processing order.
func (c *Circuit) SinkID() (uint32, bool) {
	return c.sinkID, c.hasSink
}

// SetSink designates the unit whose output is this circuit's result.
func (c *Circuit) SetSink(id uint32) error {
	if int(id) >= len(c.units) || c.units[id] == nil {
		return ErrUnknownUnit
	}
	c.sinkID = id
	c.hasSink = true
	c.dirty = true
	return nil
}

// Connect wires src's output srcOut to dst's input dstIn. isFeedback marks
// the edge as an intentional cycle carrying a one-buffer implicit delay
// (spec.md §4.B / §9(b)); feedback edges are excluded from topological
// ordering.
func (c *Circuit) Connect(src, srcOut, dst, dstIn uint32, isFeedback bool) error {
	srcUnit, ok := c.Unit(src)
	if !ok {
		return ErrUnknownUnit
	}
	dstUnit, ok := c.Unit(dst)
	if !ok {
		return ErrUnknownUnit
	}
	srcPort, ok := srcUnit.OutputByID(srcOut)
	if !ok {
		return ErrUnknownPort
	}
	dstPort, ok := dstUnit.InputByID(dstIn)
	if !ok {
		return ErrUnknownPort
	}

	for _, conn := range c.connections {
		if conn.TargetUnit == dst && conn.TargetInput == dstIn {
			return ErrAlreadyConnected
		}
	}

	if !isFeedback && c.wouldFormCycle(src, dst) {
		return ErrCycleWouldForm
	}

	if c.BufferSize() > 0 && len(srcPort.Buffer()) != c.BufferSize() {
		return ErrPortTypeMismatch
	}
	_ = dstPort

	c.connections = append(c.connections, Connection{
		SourceUnit: src, SourceOutput: srcOut,
		TargetUnit: dst, TargetInput: dstIn,
		IsFeedback: isFeedback,
	})
	dstUnit.OnInputConnect(dstIn)
	c.dirty = true
	return nil
}

// Disconnect removes the connection targeting (dst, dstIn), a no-op if
// none exists.
func (c *Circuit) Disconnect(dst, dstIn uint32) {
	for i, conn := range c.connections {
		if conn.TargetUnit == dst && conn.TargetInput == dstIn {
			c.connections = append(c.connections[:i], c.connections[i+1:]...)
			if dstUnit, ok := c.Unit(dst); ok {
				if port, ok := dstUnit.InputByID(dstIn); ok {
					port.Disconnect()
				}
				dstUnit.OnInputDisconnect(dstIn)
			}
			c.dirty = true
			return
		}
	}
}

// ConnectParam wires srcUnit's output srcOutput to modulate targetUnit's
// parameter targetParam once per tick, per spec.md §3/§4.F and
// original_source/Circuit.cpp's addConnection(..., MOD_ACTION). Like a
// feedback Connection, a ParamConnection reads the source's previous-tick
// output, so it never participates in topological ordering and source/target
// may appear in either order (or be the same unit).
func (c *Circuit) ConnectParam(srcUnit, srcOutput, targetUnit, targetParam uint32, action ModAction) error {
	src, ok := c.Unit(srcUnit)
	if !ok {
		return ErrUnknownUnit
	}
	if _, ok := src.OutputByID(srcOutput); !ok {
		return ErrUnknownPort
	}
	target, ok := c.Unit(targetUnit)
	if !ok {
		return ErrUnknownUnit
	}
	if _, err := target.Params().Get(targetParam); err != nil {
		return err
	}

	c.paramConnections = append(c.paramConnections, ParamConnection{
		SourceUnit: srcUnit, SourceOutput: srcOutput,
		TargetUnit: targetUnit, TargetParam: targetParam,
		Action: action,
	})
	return nil
}

// DisconnectParam removes every modulation connection targeting
// (targetUnit, targetParam), a no-op if none exists.
func (c *Circuit) DisconnectParam(targetUnit, targetParam uint32) {
	kept := c.paramConnections[:0]
	for _, pc := range c.paramConnections {
		if pc.TargetUnit == targetUnit && pc.TargetParam == targetParam {
			continue
		}
		kept = append(kept, pc)
	}
	c.paramConnections = kept
}

// ParamConnections returns the circuit's current parameter-modulation wires.
func (c *Circuit) ParamConnections() []ParamConnection {
	return c.paramConnections
}

// applyParamModulations applies every modulation connection targeting
// targetID, using each source's previous-tick output snapshot (populated by
// snapshotFeedbackSources) since the source may not have produced this
// tick's output yet in topological order.
func (c *Circuit) applyParamModulations(targetID uint32) {
	if len(c.paramConnections) == 0 {
		return
	}
	target, ok := c.Unit(targetID)
	if !ok {
		return
	}
	for _, pc := range c.paramConnections {
		if pc.TargetUnit != targetID {
			continue
		}
		snap, exists := c.prevOutputs[pc.SourceUnit*1000+pc.SourceOutput]
		if !exists || len(snap) == 0 {
			continue
		}
		p, err := target.Params().Get(pc.TargetParam)
		if err != nil {
			continue
		}
		value := snap[len(snap)-1]
		switch pc.Action {
		case ModAdd:
			p.AddModulation(value)
		case ModScale:
			p.ScaleModulation(value)
		case ModSet:
			p.SetOverride(value)
		}
	}
}

// wouldFormCycle reports whether adding a non-feedback edge src->dst would
// create a cycle among existing non-feedback edges, by checking whether dst
// can already reach src.
func (c *Circuit) wouldFormCycle(src, dst uint32) bool {
	if src == dst {
		return true
	}
	visited := make(map[uint32]bool)
	var canReach func(from, target uint32) bool
	canReach = func(from, target uint32) bool {
		if from == target {
			return true
		}
		if visited[from] {
			return false
		}
		visited[from] = true
		for _, conn := range c.connections {
			if conn.IsFeedback {
				continue
			}
			if conn.SourceUnit == from {
				if canReach(conn.TargetUnit, target) {
					return true
				}
			}
		}
		return false
	}
	return canReach(dst, src)
}

// recomputeOrder runs the reverse-DFS-from-sink scheduling algorithm of
// spec.md §4.B: starting at the sink, walk backwards along non-feedback
// connections (target -> source), appending each unit the first time it is
// visited, producing a valid reverse topological order (sources before
// consumers).
func (c *Circuit) recomputeOrder() error {
	if !c.hasSink {
		return ErrNoSink
	}

	visited := make(map[uint32]bool)
	var order []uint32

	var visit func(id uint32)
	visit = func(id uint32) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, conn := range c.connections {
			if conn.IsFeedback {
				continue
			}
			if conn.TargetUnit == id {
				visit(conn.SourceUnit)
			}
		}
		order = append(order, id)
	}

	visit(c.sinkID)

	// Units not (transitively) reachable from the sink are still ticked,
	// per spec.md §3 ("permitted but still ticked; the spec does not
	// require pruning"), appended after the sink-rooted order in arena id
	// order for determinism.
	for i, u := range c.units {
		if u == nil {
			continue
		}
		if !visited[uint32(i)] {
			order = append(order, uint32(i))
		}
	}

	c.order = order
	c.dirty = false
	return nil
}

// Order returns the current processing order, recomputing it first if
// dirty. Exposed for invariant tests (spec.md §8 invariant 1).
func (c *Circuit) Order() ([]uint32, error) {
	if c.dirty {
		if err := c.recomputeOrder(); err != nil {
			return nil, err
		}
	}
	return c.order, nil
}

// applyFeedbackInputs points every feedback target input at its source's
// snapshot from the *previous* tick (one-buffer delay). Non-feedback
// inputs are left alone here; they are wired to the source's live buffer
// as each source runs.
func (c *Circuit) applyFeedbackInputs() {
	for _, conn := range c.connections {
		if !conn.IsFeedback {
			continue
		}
		dstUnit, ok := c.Unit(conn.TargetUnit)
		if !ok {
			continue
		}
		dstPort, ok := dstUnit.InputByID(conn.TargetInput)
		if !ok {
			continue
		}
		if prev, exists := c.prevOutputs[conn.SourceUnit*1000+conn.SourceOutput]; exists {
			dstPort.Connect(prev)
		}
	}
}

func (c *Circuit) wireLiveInputs(producedUnit uint32) {
	srcUnit, ok := c.Unit(producedUnit)
	if !ok {
		return
	}
	for _, conn := range c.connections {
		if conn.IsFeedback || conn.SourceUnit != producedUnit {
			continue
		}
		dstUnit, ok := c.Unit(conn.TargetUnit)
		if !ok {
			continue
		}
		dstPort, ok := dstUnit.InputByID(conn.TargetInput)
		if !ok {
			continue
		}
		srcPort, ok := srcUnit.OutputByID(conn.SourceOutput)
		if !ok {
			continue
		}
		dstPort.Connect(srcPort.Buffer())
	}
}

// snapshotFeedbackSources records this tick's output for every unit/port
// that feeds a feedback Connection or a ParamConnection, so the next tick's
// applyFeedbackInputs/applyParamModulations can read it before the producer
// runs again.
func (c *Circuit) snapshotFeedbackSources() {
	for _, conn := range c.connections {
		if conn.IsFeedback {
			c.snapshotSource(conn.SourceUnit, conn.SourceOutput)
		}
	}
	for _, pc := range c.paramConnections {
		c.snapshotSource(pc.SourceUnit, pc.SourceOutput)
	}
}

func (c *Circuit) snapshotSource(srcUnitID, srcOutput uint32) {
	srcUnit, ok := c.Unit(srcUnitID)
	if !ok {
		return
	}
	srcPort, ok := srcUnit.OutputByID(srcOutput)
	if !ok {
		return
	}
	key := srcUnitID*1000 + srcOutput
	buf := srcPort.Buffer()
	snap := c.prevOutputs[key]
	if cap(snap) < len(buf) {
		snap = make([]float64, len(buf))
	}
	snap = snap[:len(buf)]
	copy(snap, buf)
	c.prevOutputs[key] = snap
}

// Process runs one buffer through every child unit in topological order —
// this is the Circuit's own Unit.Process implementation, which is what
// makes a Circuit composable as a Unit inside a parent Circuit.
func (c *Circuit) Process(n int) {
	order, err := c.Order()
	if err != nil {
		unit.Failuref("circuit %q: %v", c.Name(), err)
	}

	c.applyFeedbackInputs()

	for _, id := range order {
		u, ok := c.Unit(id)
		if !ok {
			continue
		}
		c.wireLiveInputs(id)

		// Reset and apply parameter modulation manually (rather than calling
		// u.Tick, which would reset-then-Process back to back with no gap) so
		// applyParamModulations's writes land after the reset but before
		// Process reads them this tick.
		u.Params().ResetAllModulation()
		c.applyParamModulations(id)
		u.Process(n)
	}

	c.snapshotFeedbackSources()

	if c.hasSink {
		if sinkUnit, ok := c.Unit(c.sinkID); ok {
			outs := sinkUnit.Outputs()
			if len(outs) > 0 {
				myOut := c.Outputs()
				if len(myOut) > 0 {
					copy(myOut[0].Buffer(), outs[0].Buffer()[:n])
				}
			}
		}
	}
}

// Clone returns an independent copy of the circuit: every child unit is
// cloned, connections are copied verbatim (they reference arena ids, which
// Clone preserves 1:1), and ports are rewired fresh on the next tick.
// Required for voice replication (spec.md §3 "Voice: a cloned Circuit").
func (c *Circuit) Clone() unit.Unit {
	dst := &Circuit{dirty: true, prevOutputs: make(map[uint32][]float64)}
	c.Base.CloneInto(&dst.Base, dst)

	dst.units = make([]unit.Unit, len(c.units))
	for i, u := range c.units {
		if u != nil {
			dst.units[i] = u.Clone()
		}
	}
	dst.connections = append([]Connection(nil), c.connections...)
	dst.paramConnections = append([]ParamConnection(nil), c.paramConnections...)
	dst.sinkID = c.sinkID
	dst.hasSink = c.hasSink
	dst.dirty = true

	if c.BufferSize() > 0 {
		dst.SetAudioConfig(c.SampleRate(), c.Tempo(), c.BufferSize())
		for _, u := range dst.units {
			if u != nil {
				u.SetAudioConfig(c.SampleRate(), c.Tempo(), c.BufferSize())
			}
		}
	}
	return dst
}

// SetAudioConfig propagates sample rate / tempo / buffer size to every
// child unit, in addition to the Base bookkeeping and own output resize.
func (c *Circuit) SetAudioConfig(sampleRate, tempo float64, bufferSize int) {
	c.Base.SetAudioConfig(sampleRate, tempo, bufferSize)
	for _, u := range c.units {
		if u != nil {
			u.SetAudioConfig(sampleRate, tempo, bufferSize)
		}
	}
}

// OnNoteOn delivers note-on to every child unit — used directly by voices;
// VoiceManager calls this on a voice's root Circuit.
func (c *Circuit) OnNoteOn(note, velocity int) {
	c.Base.OnNoteOn(note, velocity)
	for _, u := range c.units {
		if u != nil {
			u.OnNoteOn(note, velocity)
		}
	}
}

// OnNoteOff delivers note-off to every child unit.
func (c *Circuit) OnNoteOff(note, velocity int) {
	c.Base.OnNoteOff(note, velocity)
	for _, u := range c.units {
		if u != nil {
			u.OnNoteOff(note, velocity)
		}
	}
}

// ccReceiver is satisfied by units that react to MIDI CC traffic
// (units.CC). ReceiveCC fans every incoming controller message to each one.
type ccReceiver interface {
	ReceiveCC(controller int, value float64)
}

// ReceiveCC delivers a MIDI CC message to every child unit that accepts one.
func (c *Circuit) ReceiveCC(controller int, value float64) {
	for _, u := range c.units {
		if u == nil {
			continue
		}
		if r, ok := u.(ccReceiver); ok {
			r.ReceiveCC(controller, value)
		}
	}
}

// pbReceiver is satisfied by units that react to pitch bend (units.Pitch).
type pbReceiver interface {
	ReceivePitchBend(semitones float64)
}

// ReceivePitchBend delivers a pitch bend, already resolved to semitones, to
// every child unit that accepts one.
func (c *Circuit) ReceivePitchBend(semitones float64) {
	for _, u := range c.units {
		if u == nil {
			continue
		}
		if r, ok := u.(pbReceiver); ok {
			r.ReceivePitchBend(semitones)
		}
	}
}

// doneProvider is satisfied by units that can report envelope completion
// (units.ADSREnvelope). A voice's circuit is "done" once every such unit in
// it reports done; a circuit that contains none is never done.
type doneProvider interface {
	Done() bool
}

// IsDone reports whether every envelope-bearing unit in the circuit has
// finished releasing — the VoiceManager's "envelope reports done" signal.
func (c *Circuit) IsDone() bool {
	found := false
	for _, u := range c.units {
		if u == nil {
			continue
		}
		if dp, ok := u.(doneProvider); ok {
			found = true
			if !dp.Done() {
				return false
			}
		}
	}
	return found
}

// resettable is satisfied by units that hold internal state needing a
// clean slate after a structural rebuild (units.ADSREnvelope).
type resettable interface {
	Reset()
}

// Reset clears every child unit's internal state that Reset exposes,
// recursing into nested circuits. Called after loading a preset per
// spec.md §6 ("...install connections in the order given, then call
// Reset"), so a freshly deserialized circuit never starts mid-envelope.
func (c *Circuit) Reset() {
	for _, u := range c.units {
		if u == nil {
			continue
		}
		if r, ok := u.(resettable); ok {
			r.Reset()
		}
	}
}

// AddParam exposes paramtable registration on the circuit's own Base
// parameter table, for circuits that want circuit-level (rather than
// per-child) parameters.
func (c *Circuit) AddParam(info paramtable.Info) (*paramtable.Param, error) {
	return c.Params().Register(info)
}
