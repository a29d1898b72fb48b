package paramtable

import "sync"

// Table is a unit's ordered collection of parameters, generalized from the
// teacher's param.Manager: a map keyed by stable id plus an insertion-order
// slice so UI/preset code can enumerate parameters deterministically.
type Table struct {
	mu         sync.RWMutex
	params     map[uint32]*Param
	paramOrder []uint32
}

// NewTable returns an empty parameter table.
func NewTable() *Table {
	return &Table{
		params: make(map[uint32]*Param),
	}
}

// Register adds a parameter described by info, returning ErrParamExists if
// its id is already registered.
func (t *Table) Register(info Info) (*Param, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.params[info.ID]; exists {
		return nil, ErrParamExists
	}

	p := newParam(info)
	t.params[info.ID] = p
	t.paramOrder = append(t.paramOrder, info.ID)
	return p, nil
}

// RegisterAll registers every info in order, stopping at the first error.
func (t *Table) RegisterAll(infos ...Info) error {
	for _, info := range infos {
		if _, err := t.Register(info); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the parameter with the given id.
func (t *Table) Get(id uint32) (*Param, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, exists := t.params[id]
	if !exists {
		return nil, ErrInvalidParam
	}
	return p, nil
}

// Count returns the number of registered parameters.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.paramOrder)
}

// ByIndex returns the parameter at a given insertion-order index.
func (t *Table) ByIndex(index int) (*Param, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index < 0 || index >= len(t.paramOrder) {
		return nil, ErrInvalidParam
	}
	return t.params[t.paramOrder[index]], nil
}

// ForEach calls fn for every parameter in registration order.
func (t *Table) ForEach(fn func(*Param)) {
	t.mu.RLock()
	ids := make([]uint32, len(t.paramOrder))
	copy(ids, t.paramOrder)
	t.mu.RUnlock()

	for _, id := range ids {
		t.mu.RLock()
		p := t.params[id]
		t.mu.RUnlock()
		fn(p)
	}
}

// ResetAllModulation resets every parameter's per-tick accumulators. Called
// once per unit per tick from the audio thread, before the unit's
// modulation inputs are applied — unlike ForEach, it never copies
// paramOrder, since Register (the only mutator of paramOrder) only ever
// runs off the audio thread, between ticks.
func (t *Table) ResetAllModulation() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range t.paramOrder {
		t.params[id].ResetModulation()
	}
}

// ResetToDefaults sets every parameter's base value back to its default and
// clears modulation, used when a unit is reconstructed from a preset or
// reset explicitly.
func (t *Table) ResetToDefaults() {
	t.ForEach(func(p *Param) {
		p.SetBase(p.Info.DefaultValue)
		p.ResetModulation()
	})
}

// Snapshot returns the current base value of every parameter, keyed by id —
// used by preset serialization.
func (t *Table) Snapshot() map[uint32]float64 {
	out := make(map[uint32]float64)
	t.ForEach(func(p *Param) {
		out[p.Info.ID] = p.Base()
	})
	return out
}

// ApplySnapshot restores base values from a preset. Unknown parameter ids in
// the snapshot are ignored (forward-compatible presets); parameters absent
// from the snapshot keep their current (default) value.
func (t *Table) ApplySnapshot(values map[uint32]float64) {
	for id, value := range values {
		if p, err := t.Get(id); err == nil {
			p.SetBase(value)
		}
	}
}
