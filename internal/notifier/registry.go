package notifier

import (
	"context"
	"sort"
	"sync"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
)

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return core.Errorf(core.ErrConfigInvalid, "notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, core.Errorf(core.ErrNotFound, "notifier %s", name)
	}
	return n, nil
}

// Len returns the number of registered notifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// GetAll returns all registered notifiers sorted by name.
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// NotifyAll sends e to every notifier and returns failures by name.
func (r *Registry) NotifyAll(ctx context.Context, e Event) map[string]error {
	errs := make(map[string]error)
	for _, n := range r.GetAll() {
		if err := n.Send(ctx, e); err != nil {
			errs[n.Name()] = err
		}
	}
	return errs
}

// NotifyAllBatch sends events to every notifier and returns failures by name.
func (r *Registry) NotifyAllBatch(ctx context.Context, events []Event) map[string]error {
	errs := make(map[string]error)
	for _, n := range r.GetAll() {
		if err := n.SendBatch(ctx, events); err != nil {
			errs[n.Name()] = err
		}
	}
	return errs
}
