package cipher

import (
	"context"
	"fmt"
)

// OperationType defines the category of a transformation operation
type OperationType string

const (
	OperationTypeEncode  OperationType = "encode"
	OperationTypeDecode  OperationType = "decode"
	OperationTypeXOR     OperationType = "xor"
	OperationTypeAnalyze OperationType = "analyze"
)

// Operation is a single transformation that can be applied to a byte sequence
type Operation interface {
	// Name returns the unique identifier for this operation
	Name() string

	// Type returns the category of this operation
	Type() OperationType

	// Description returns a human-readable description
	Description() string

	// Execute applies the operation to the input data
	Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error)

	// Reverse returns the inverse operation if available
	Reverse() (Operation, bool)
}

// OperationConfig names an operation in a pipeline together with its parameters
type OperationConfig struct {
	Name       string                 `json:"name" yaml:"name"`
	Parameters map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Pipeline is a chain of operations applied sequentially
type Pipeline struct {
	Operations []OperationConfig `json:"operations" yaml:"operations"`
	Reversible bool              `json:"reversible" yaml:"reversible"`

	// Registry resolves operation names. Nil means the default registry.
	Registry *Registry `json:"-" yaml:"-"`
}

func (p *Pipeline) registry() *Registry {
	if p.Registry != nil {
		return p.Registry
	}
	return DefaultRegistry
}

// Execute runs the pipeline on the input data
func (p *Pipeline) Execute(ctx context.Context, input []byte) ([]byte, error) {
	result := input
	var err error

	for i, opConfig := range p.Operations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, exists := p.registry().Get(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("step %d: %w: %s", i, ErrUnknownOperation, opConfig.Name)
		}

		result, err = op.Execute(ctx, result, opConfig.Parameters)
		if err != nil {
			return nil, fmt.Errorf("operation %s failed at step %d: %w", opConfig.Name, i, err)
		}
	}

	return result, nil
}

// Reverse builds the inverse pipeline. Every operation must have a reverse
// and parameters are carried over to the inverse step.
func (p *Pipeline) Reverse() (*Pipeline, error) {
	if !p.Reversible {
		return nil, fmt.Errorf("pipeline: %w", ErrNotReversible)
	}

	reversed := &Pipeline{
		Operations: make([]OperationConfig, len(p.Operations)),
		Reversible: true,
		Registry:   p.Registry,
	}

	for i, opConfig := range p.Operations {
		op, exists := p.registry().Get(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, opConfig.Name)
		}

		reverseOp, ok := op.Reverse()
		if !ok {
			return nil, fmt.Errorf("operation %s: %w", opConfig.Name, ErrNotReversible)
		}

		reversed.Operations[len(p.Operations)-1-i] = OperationConfig{
			Name:       reverseOp.Name(),
			Parameters: opConfig.Parameters,
		}
	}

	return reversed, nil
}

// Recipe is a named, reusable pipeline
type Recipe struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Pipeline    Pipeline `json:"pipeline" yaml:"pipeline"`
	CreatedAt   string   `json:"created_at" yaml:"created_at"`
	UpdatedAt   string   `json:"updated_at" yaml:"updated_at"`
}

// DetectionResult is one suggestion produced by a Detector
type DetectionResult struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
	Reasoning  string  `json:"reasoning"`
	Operation  string  `json:"operation"` // operation that undoes the encoding
}

// Detector identifies the encoding of input data
type Detector interface {
	Detect(ctx context.Context, input []byte) ([]DetectionResult, error)
	SupportedEncodings() []string
}

// BaseOperation carries the descriptive fields shared by all operations
type BaseOperation struct {
	NameValue        string
	TypeValue        OperationType
	DescriptionValue string
	ReverseOp        Operation
}

func (b *BaseOperation) Name() string {
	return b.NameValue
}

func (b *BaseOperation) Type() OperationType {
	return b.TypeValue
}

func (b *BaseOperation) Description() string {
	return b.DescriptionValue
}

func (b *BaseOperation) Reverse() (Operation, bool) {
	if b.ReverseOp == nil {
		return nil, false
	}
	return b.ReverseOp, true
}
