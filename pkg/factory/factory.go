// Package factory implements the UnitFactory: a process-wide registry of
// prototype Units keyed by a stable class identifier, generalized from the
// teacher's internal/registry singleton (plugin id -> creator) to the
// spec's "register<T>(group, name) / create(class_id|name|index)" contract.
package factory

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/vosim/voxgraph/pkg/unit"
)

// Sentinel errors for factory operations.
var (
	ErrUnknownClassID = errors.New("factory: unknown class id")
	ErrUnknownName    = errors.New("factory: unknown class name")
	ErrIndexOutOfRange = errors.New("factory: index out of range")
	ErrAlreadyRegistered = errors.New("factory: class name already registered")
)

// ClassID computes the stable, portable identifier for a canonical class
// name. FNV-1a 32-bit, per the spec's open question about the original's
// non-portable platform string hash: presets reference this value, so it
// must be reproducible across builds and platforms.
func ClassID(canonicalName string) unit.ClassID {
	h := fnv.New32a()
	_, _ = h.Write([]byte(canonicalName))
	return unit.ClassID(h.Sum32())
}

type entry struct {
	group     string
	name      string
	classID   unit.ClassID
	prototype unit.Unit
}

// Factory is a registry of prototype Units. The zero value is not usable;
// construct with New. A Factory instance is meant to be held by dependency
// injection (one per engine instance) rather than accessed as a global
// singleton, per the spec's design notes preferring DI for testability.
type Factory struct {
	mu         sync.RWMutex
	byClassID  map[unit.ClassID]*entry
	byName     map[string]*entry
	order      []*entry
	groupCount map[string]int
	frozen     bool
}

// New returns an empty, unfrozen Factory.
func New() *Factory {
	return &Factory{
		byClassID:  make(map[unit.ClassID]*entry),
		byName:     make(map[string]*entry),
		groupCount: make(map[string]int),
	}
}

// Register adds a prototype under (group, name). The canonical class name
// used to compute ClassID is "group.name". Register is intended to run
// during process initialization only; call Freeze afterward to make the
// registry read-only-safe for concurrent audio-thread reads (the audio
// thread itself never registers units, only UnitFactory.Create does, and
// only from a command handler between buffers).
func (f *Factory) Register(group, name string, prototype unit.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.frozen {
		return errors.New("factory: cannot register after Freeze")
	}

	canonical := group + "." + name
	if _, exists := f.byName[canonical]; exists {
		return ErrAlreadyRegistered
	}

	id := ClassID(canonical)
	e := &entry{group: group, name: name, classID: id, prototype: prototype}
	f.byClassID[id] = e
	f.byName[canonical] = e
	f.order = append(f.order, e)
	return nil
}

// Freeze marks the registry read-only. Safe to call multiple times.
func (f *Factory) Freeze() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frozen = true
}

// CreateByClassID clones the prototype registered under id and assigns it
// a fresh default name "<group>_<count>".
func (f *Factory) CreateByClassID(id unit.ClassID) (unit.Unit, error) {
	f.mu.RLock()
	e, exists := f.byClassID[id]
	f.mu.RUnlock()
	if !exists {
		return nil, ErrUnknownClassID
	}
	return f.instantiate(e), nil
}

// CreateByName clones the prototype registered under "group.name".
func (f *Factory) CreateByName(canonicalName string) (unit.Unit, error) {
	f.mu.RLock()
	e, exists := f.byName[canonicalName]
	f.mu.RUnlock()
	if !exists {
		return nil, ErrUnknownName
	}
	return f.instantiate(e), nil
}

// CreateByIndex clones the prototype registered at the given registration
// index (registration order).
func (f *Factory) CreateByIndex(index int) (unit.Unit, error) {
	f.mu.RLock()
	if index < 0 || index >= len(f.order) {
		f.mu.RUnlock()
		return nil, ErrIndexOutOfRange
	}
	e := f.order[index]
	f.mu.RUnlock()
	return f.instantiate(e), nil
}

func (f *Factory) instantiate(e *entry) unit.Unit {
	f.mu.Lock()
	f.groupCount[e.group]++
	count := f.groupCount[e.group]
	f.mu.Unlock()

	u := e.prototype.Clone()
	u.SetName(fmt.Sprintf("%s_%d", e.group, count))
	return u
}

// Groups returns the set of registered group names.
func (f *Factory) Groups() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	seen := make(map[string]bool)
	var groups []string
	for _, e := range f.order {
		if !seen[e.group] {
			seen[e.group] = true
			groups = append(groups, e.group)
		}
	}
	return groups
}

// PrototypesInGroup returns the short names (without the group prefix) of every prototype
// registered under the given group, in registration order.
func (f *Factory) PrototypesInGroup(group string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var names []string
	for _, e := range f.order {
		if e.group == group {
			names = append(names, e.name)
		}
	}
	return names
}

// ClassIDForName returns the ClassID a canonical "group.name" would resolve
// to, without requiring it to be registered — used by preset migration
// tooling and tests.
func ClassIDForName(group, name string) unit.ClassID {
	return ClassID(group + "." + name)
}
