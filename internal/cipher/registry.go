package cipher

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry maps operation names to operations. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// DefaultRegistry holds every operation registered from package init
// functions, including those of packages layered on top of cipher.
var DefaultRegistry = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds op to the registry. Names must be unique.
func (r *Registry) Register(op Operation) error {
	if op == nil {
		return errors.New("cannot register nil operation")
	}

	name := op.Name()
	if name == "" {
		return errors.New("operation name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("operation %s is already registered", name)
	}

	r.ops[name] = op
	return nil
}

// Get looks up an operation by name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, exists := r.ops[name]
	return op, exists
}

// List returns all operations sorted by name.
func (r *Registry) List() []Operation {
	return r.filter(func(Operation) bool { return true })
}

// ListByType returns the operations of one category sorted by name.
func (r *Registry) ListByType(opType OperationType) []Operation {
	return r.filter(func(op Operation) bool { return op.Type() == opType })
}

func (r *Registry) filter(keep func(Operation) bool) []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		if keep(op) {
			ops = append(ops, op)
		}
	}

	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Name() < ops[j].Name()
	})

	return ops
}

// Unregister removes an operation by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.ops, name)
}

// RegisterOperation adds op to the default registry
func RegisterOperation(op Operation) error {
	return DefaultRegistry.Register(op)
}

// MustRegisterOperation is RegisterOperation for init functions; it panics on
// a duplicate or invalid operation.
func MustRegisterOperation(op Operation) {
	if err := RegisterOperation(op); err != nil {
		panic(err)
	}
}

// GetOperation looks up an operation in the default registry
func GetOperation(name string) (Operation, bool) {
	return DefaultRegistry.Get(name)
}

// ListOperations returns all operations in the default registry
func ListOperations() []Operation {
	return DefaultRegistry.List()
}

// ListOperationsByType returns default-registry operations of one category
func ListOperationsByType(opType OperationType) []Operation {
	return DefaultRegistry.ListByType(opType)
}
