package model

import "sync"

// Key identifies a model by construction parameters. Two requests with the
// same key share one model.
type Key struct {
	Kind     Kind
	Unit     string
	Module   string
	Profiles string
}

// Arena owns every model of a project context. Models are never removed;
// recomputation happens inside them.
type Arena struct {
	mu    sync.RWMutex
	slots []Model
	byKey map[Key]ID
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{byKey: make(map[Key]ID)}
}

// Get returns the model with id. Reserved slots that were never filled
// report false.
func (a *Arena) Get(id ID) (Model, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if id < 0 || int(id) >= len(a.slots) || a.slots[id] == nil {
		return nil, false
	}
	return a.slots[id], true
}

// Lookup returns the id registered for k.
func (a *Arena) Lookup(k Key) (ID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.byKey[k]
	return id, ok
}

// Reserve returns the id for k, allocating an empty slot if k is new.
func (a *Arena) Reserve(k Key) ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reserveLocked(k)
}

func (a *Arena) reserveLocked(k Key) ID {
	if id, ok := a.byKey[k]; ok {
		return id
	}
	id := ID(len(a.slots))
	a.slots = append(a.slots, nil)
	a.byKey[k] = id
	return id
}

// Intern returns the model for k, building it on first use. build runs under
// the arena lock and must not call back into the arena.
func (a *Arena) Intern(k Key, build func(id ID) Model) Model {
	a.mu.RLock()
	if id, ok := a.byKey[k]; ok && a.slots[id] != nil {
		m := a.slots[id]
		a.mu.RUnlock()
		return m
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.reserveLocked(k)
	if a.slots[id] == nil {
		a.slots[id] = build(id)
	}
	return a.slots[id]
}

// Len returns the number of slots, filled or reserved.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots)
}
