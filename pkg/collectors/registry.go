package collectors

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages a set of named probes. It is safe for concurrent use; the
// loop writes statuses while the IPC server reads them.
type Registry struct {
	mu       sync.RWMutex
	probes   map[string]Probe
	order    []string
	statuses map[string]*ProbeStatus
}

// NewRegistry returns an empty registry ready for probe registration.
func NewRegistry() *Registry {
	return &Registry{
		probes:   make(map[string]Probe),
		statuses: make(map[string]*ProbeStatus),
	}
}

// Register adds a probe to the registry. It returns an error if a probe with
// the same name is already registered.
func (r *Registry) Register(p Probe) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.probes[name]; exists {
		return fmt.Errorf("probe %q already registered", name)
	}

	r.probes[name] = p
	r.order = append(r.order, name)
	r.statuses[name] = &ProbeStatus{
		Name:    name,
		Healthy: true,
	}
	return nil
}

// Get returns the probe with the given name, or false if not found.
func (r *Registry) Get(name string) (Probe, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.probes[name]
	return p, ok
}

// List returns probe names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Status returns a copy of the runtime status for the named probe, or false
// if the probe is not registered.
func (r *Registry) Status(name string) (ProbeStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.statuses[name]
	if !ok {
		return ProbeStatus{}, false
	}
	return *s, true
}

// AllStatus returns a copy of all probe statuses, sorted by name.
func (r *Registry) AllStatus() []ProbeStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ProbeStatus, 0, len(r.statuses))
	for _, s := range r.statuses {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Healthy reports whether every registered probe succeeded on its last run.
func (r *Registry) Healthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// Record folds a probe result into the status entry for its source. Results
// for unknown sources are ignored.
func (r *Registry) Record(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.statuses[res.Source]
	if !ok {
		return
	}
	s.LastRun = res.Timestamp
	s.LastLatency = res.Latency
	s.LastValue = res.Value
	s.RunCount++
	if res.Err != nil {
		s.Healthy = false
		s.ErrorCount++
		s.LastError = res.Err.Error()
		return
	}
	s.Healthy = true
	s.LastError = ""
}
