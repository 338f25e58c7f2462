package status

import "sync"

// Registry maps entity names to status items. Names are unique:
// adding an existing name replaces the prior item. All methods are
// safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		items: make(map[string]*Item),
	}
}

// Add creates a status item for the named entity and registers it,
// replacing any prior item with the same name. An empty phase
// defaults to pending.
func (r *Registry) Add(name string, phase Phase, value any) *Item {
	it := NewItem(name, phase, value)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[name] = it
	return it
}

// Put registers an existing item under its own name, replacing any
// prior entry. The registry and the component mutating the item then
// observe the same status.
func (r *Registry) Put(it *Item) {
	if it == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.Name()] = it
}

// Get retrieves the item for the named entity.
func (r *Registry) Get(name string) (*Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[name]
	return it, ok
}

// Remove deletes the named entry. Removing an absent name is a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, name)
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]*Item)
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Names returns the registered entity names, in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	return names
}

// Set records a new phase and value on the named entry. Returns the
// rendered status and false if the name is not registered.
func (r *Registry) Set(name string, phase Phase, value any) (Rendered, bool) {
	r.mu.RLock()
	it, ok := r.items[name]
	r.mu.RUnlock()
	if !ok {
		return Rendered{}, false
	}
	return it.Set(phase, value), true
}

// SetIdle marks the named entry idle.
func (r *Registry) SetIdle(name string) {
	r.Set(name, PhaseIdle, nil)
}

// SetSuccess marks the named entry successful.
func (r *Registry) SetSuccess(name string) {
	r.Set(name, PhaseSuccess, nil)
}

// SetError marks the named entry failed with the error message.
func (r *Registry) SetError(name string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.Set(name, PhaseError, msg)
}
