package transform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// Func transforms a dataset into a new one.
type Func func(ds *pgload.Dataset) (*pgload.Dataset, error)

// Operation is a named, parameterized dataset transformation.
// Build validates params and returns the function to apply.
type Operation struct {
	Name  string
	Build func(p Params) (Func, error)
}

// Registry maps operation names to operations.
//
// Thread-Safety: safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// NewDefaultRegistry returns a registry holding the built-in operations.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, op := range builtins() {
		if err := r.Register(op); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds op. Names must be unique and non-empty.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" || op.Build == nil {
		return fmt.Errorf("operation needs a name and a Build function: %w", pgload.ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[op.Name]; exists {
		return fmt.Errorf("operation %q already registered: %w", op.Name, pgload.ErrInvalidConfig)
	}
	r.ops[op.Name] = op
	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves names into a pipeline. Unknown names and invalid parameters
// are reported before anything runs.
func (r *Registry) Build(names []string, params Params) (*Pipeline, error) {
	if params == nil {
		params = Params{}
	}

	p := &Pipeline{}
	for _, name := range names {
		op, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%q (available: %v): %w", name, r.Names(), pgload.ErrUnknownOperation)
		}
		fn, err := op.Build(params)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", name, err)
		}
		p.steps = append(p.steps, step{name: name, fn: fn})
	}
	return p, nil
}

type step struct {
	name string
	fn   Func
}

// Pipeline is an ordered list of built operations.
type Pipeline struct {
	steps []step
}

// Names returns the step names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.name
	}
	return names
}

// Len returns the number of steps.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.steps)
}

// Apply validates ds and runs every step in order. An empty pipeline
// returns ds unchanged.
func (p *Pipeline) Apply(ds *pgload.Dataset) (*pgload.Dataset, error) {
	if p.Len() == 0 {
		return ds, nil
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	current := ds
	if current == nil {
		current = &pgload.Dataset{}
	}
	for _, s := range p.steps {
		next, err := s.fn(current)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", s.name, err)
		}
		current = next
	}
	return current, nil
}
