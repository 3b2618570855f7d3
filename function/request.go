package function

import "github.com/GoCodeAlone/pluginrt/variable"

// Request is a named expectation the host declares once; every loaded
// plugin is expected to supply a matching Function for it.
type Request struct {
	Name   string
	Inputs []variable.Type
	Output *variable.Type
}

// SatisfiedBy reports whether fn is an acceptable implementation of r: for
// every declared input type, fn must have at least one input of that type
// present somewhere in its signature (position is not required); output
// types must match exactly (including both being absent).
func (r Request) SatisfiedBy(fn Function) bool {
	if fn.Name() != r.Name {
		return false
	}

	fnInputs := fn.Inputs()
	for _, want := range r.Inputs {
		found := false
		for _, have := range fnInputs {
			if want.Matches(have.Type) || have.Type.Matches(want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	fnOut, fnHasOut := fn.Output()
	if r.Output == nil {
		return !fnHasOut
	}
	if !fnHasOut {
		return false
	}
	return *r.Output == fnOut.Type
}
