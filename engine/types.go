package engine

import "github.com/GoCodeAlone/pluginrt/variable"

// Variable aliases the shared tagged-value type so engine-level signatures
// read naturally without every caller importing the variable package
// directly.
type Variable = variable.Variable
