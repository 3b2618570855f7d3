package function

import (
	"context"
	"testing"

	"github.com/GoCodeAlone/pluginrt/variable"
)

func echoFn() *DynamicFunction {
	out := Param{Name: "out", Type: variable.TypeString}
	return NewDynamicFunction("echo", []Param{{Name: "in", Type: variable.TypeString}}, &out,
		func(ctx context.Context, args []variable.Variable) (*variable.Variable, error) {
			v := args[0]
			return &v, nil
		})
}

func TestDynamicFunctionCall(t *testing.T) {
	fn := echoFn()
	in := variable.NewString("hi")
	out, err := fn.Call(context.Background(), []variable.Variable{in})
	if err != nil {
		t.Fatalf("Call error = %v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("Call result = %v, want %v", out, in)
	}
}

func TestEqual(t *testing.T) {
	a := echoFn()
	b := echoFn()
	if !Equal(a, b) {
		t.Fatal("expected two functions with the same signature to be Equal")
	}

	noOut := NewDynamicFunction("echo", a.Inputs(), nil, a.fn)
	if Equal(a, noOut) {
		t.Fatal("expected functions with different output presence to differ")
	}
}

func TestOutputAbsent(t *testing.T) {
	fn := NewDynamicFunction("noop", nil, nil, func(ctx context.Context, args []variable.Variable) (*variable.Variable, error) {
		return nil, nil
	})
	if _, ok := fn.Output(); ok {
		t.Fatal("expected Output() to report absent")
	}
}
