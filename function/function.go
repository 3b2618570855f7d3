// Package function implements the typed call layer: named, signature-typed
// callables exchanged between the host and plugins.
package function

import (
	"context"

	"github.com/GoCodeAlone/pluginrt/variable"
)

// Param is one named, typed input or output slot of a Function's signature.
type Param struct {
	Name string
	Type variable.Type
}

// Function is a named, typed callable. Equality between two Functions is by
// (name, inputs, output), not by identity.
type Function interface {
	Name() string
	Inputs() []Param
	Output() (Param, bool)
	Call(ctx context.Context, args []variable.Variable) (*variable.Variable, error)
}

// Equal reports whether two Functions share the same name and signature.
func Equal(a, b Function) bool {
	if a.Name() != b.Name() {
		return false
	}
	if !paramsEqual(a.Inputs(), b.Inputs()) {
		return false
	}
	ao, aok := a.Output()
	bo, bok := b.Output()
	if aok != bok {
		return false
	}
	if aok && ao != bo {
		return false
	}
	return true
}

func paramsEqual(a, b []Param) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DynamicFunction wraps a closure meeting the Function call contract. It is
// the standard bridge managers use to expose plugin-internal callables as
// engine-visible Functions.
type DynamicFunction struct {
	name   string
	inputs []Param
	output *Param
	fn     func(ctx context.Context, args []variable.Variable) (*variable.Variable, error)
}

// NewDynamicFunction builds a DynamicFunction. output may be nil for a
// function that returns no value.
func NewDynamicFunction(name string, inputs []Param, output *Param, fn func(ctx context.Context, args []variable.Variable) (*variable.Variable, error)) *DynamicFunction {
	return &DynamicFunction{name: name, inputs: inputs, output: output, fn: fn}
}

func (f *DynamicFunction) Name() string { return f.name }

func (f *DynamicFunction) Inputs() []Param { return f.inputs }

func (f *DynamicFunction) Output() (Param, bool) {
	if f.output == nil {
		return Param{}, false
	}
	return *f.output, true
}

func (f *DynamicFunction) Call(ctx context.Context, args []variable.Variable) (*variable.Variable, error) {
	return f.fn(ctx, args)
}
