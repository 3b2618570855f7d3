package variable

import "fmt"

// ParseVariableError is returned by every typed accessor on Variable when the
// concrete variant does not match the type the caller asked for.
type ParseVariableError struct {
	Expected Type
	Actual   Type
}

func (e *ParseVariableError) Error() string {
	return fmt.Sprintf("parse variable: expected %s, got %s", e.Expected, e.Actual)
}
