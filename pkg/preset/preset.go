// Package preset implements the JSON persistence format of spec.md §6:
// a document with two top-level objects, synth.circuit (the prototype
// Circuit) and an opaque gui blob, generalized from the teacher's
// pkg/state Manager/SaveToJSON/LoadFromJSON pattern to the circuit-of-units
// shape this engine actually serializes.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vosim/voxgraph/pkg/circuit"
	"github.com/vosim/voxgraph/pkg/factory"
	"github.com/vosim/voxgraph/pkg/unit"
)

// Errors surfaced to the UI per spec.md §7's persistence taxonomy.
var (
	ErrUnknownClassID = errors.New("preset: unknown class id")
	ErrMalformedJSON  = errors.New("preset: malformed json")
	ErrBadPreset      = errors.New("preset: structurally invalid")
)

// Unit is one serialized child unit: its class, assigned id/name, and its
// parameter base values keyed by parameter id.
type Unit struct {
	ClassID    uint32             `json:"class_id"`
	ID         uint32             `json:"id"`
	Name       string             `json:"name"`
	Parameters map[uint32]float64 `json:"parameters"`
}

// Connection is one serialized wire, matching circuit.Connection's fields.
type Connection struct {
	SourceUnit   uint32 `json:"src"`
	SourceOutput uint32 `json:"src_out"`
	TargetUnit   uint32 `json:"dst"`
	TargetInput  uint32 `json:"dst_in"`
	IsFeedback   bool   `json:"is_feedback,omitempty"`
}

// Synth is the "synth.circuit" object: the prototype Circuit flattened to
// its units, connections and sink.
type Synth struct {
	Circuit struct {
		Name        string       `json:"name"`
		Units       []Unit       `json:"units"`
		Connections []Connection `json:"connections"`
		SinkID      uint32       `json:"sink_id"`
		HasSink     bool         `json:"has_sink"`
	} `json:"circuit"`
}

// Document is the complete on-disk preset: synth.circuit plus an opaque
// gui blob. The gui object is round-tripped untouched — the engine never
// interprets it (spec.md §1 "GUI... out of scope"), including the
// VOSIMSynth CircuitPanel.cpp per-unit (x, y) layout it supplements.
type Document struct {
	Synth Synth           `json:"synth"`
	GUI   json.RawMessage `json:"gui,omitempty"`
}

// Save flattens c into a Document and marshals it indented, matching the
// teacher's SaveToJSON readability convention.
func Save(c *circuit.Circuit, gui json.RawMessage) ([]byte, error) {
	doc := Document{GUI: gui}
	doc.Synth.Circuit.Name = c.Name()

	for _, u := range c.Units() {
		params := make(map[uint32]float64)
		for i := 0; i < u.Params().Count(); i++ {
			p, err := u.Params().ByIndex(i)
			if err != nil {
				continue
			}
			params[p.Info.ID] = p.Base()
		}
		doc.Synth.Circuit.Units = append(doc.Synth.Circuit.Units, Unit{
			ClassID:    uint32(u.ClassID()),
			ID:         u.ID(),
			Name:       u.Name(),
			Parameters: params,
		})
	}

	for _, conn := range c.Connections() {
		doc.Synth.Circuit.Connections = append(doc.Synth.Circuit.Connections, Connection{
			SourceUnit:   conn.SourceUnit,
			SourceOutput: conn.SourceOutput,
			TargetUnit:   conn.TargetUnit,
			TargetInput:  conn.TargetInput,
			IsFeedback:   conn.IsFeedback,
		})
	}

	if sinkID, ok := c.SinkID(); ok {
		doc.Synth.Circuit.SinkID = sinkID
		doc.Synth.Circuit.HasSink = true
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Load reconstructs a Circuit from data, resolving units via f. Per
// spec.md §6: unknown/missing class_id aborts the load with a
// user-visible error and leaves no partially-built circuit behind;
// missing parameter ids are skipped; extra parameters are ignored
// (paramtable.ApplySnapshot already implements that skip/ignore policy).
func Load(data []byte, f *factory.Factory) (*circuit.Circuit, json.RawMessage, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	c := circuit.New(doc.Synth.Circuit.Name)

	idRemap := make(map[uint32]uint32, len(doc.Synth.Circuit.Units))
	for _, su := range doc.Synth.Circuit.Units {
		u, err := f.CreateByClassID(unit.ClassID(su.ClassID))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %d", ErrUnknownClassID, su.ClassID)
		}
		u.SetName(su.Name)
		newID := c.AddUnit(u)
		idRemap[su.ID] = newID
		u.Params().ApplySnapshot(su.Parameters)
	}

	for _, sc := range doc.Synth.Circuit.Connections {
		src, srcOK := idRemap[sc.SourceUnit]
		dst, dstOK := idRemap[sc.TargetUnit]
		if !srcOK || !dstOK {
			return nil, nil, fmt.Errorf("%w: connection references unknown unit", ErrBadPreset)
		}
		if err := c.Connect(src, sc.SourceOutput, dst, sc.TargetInput, sc.IsFeedback); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrBadPreset, err)
		}
	}

	if doc.Synth.Circuit.HasSink {
		sinkID, ok := idRemap[doc.Synth.Circuit.SinkID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: sink references unknown unit", ErrBadPreset)
		}
		if err := c.SetSink(sinkID); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrBadPreset, err)
		}
	}

	c.Reset()
	return c, doc.GUI, nil
}
