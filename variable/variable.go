package variable

import (
	"fmt"
	"strconv"
	"strings"
)

// Variable is a tagged value exchanged between the host and plugins. The
// zero value is the null variant.
type Variable struct {
	kind Type
	i    int64
	u    uint64
	f    float64
	b    bool
	c    rune
	s    string
	list []Variable
}

// Null returns the null variant.
func Null() Variable { return Variable{kind: TypeAny} }

// IsNull reports whether v is the null variant.
func (v Variable) IsNull() bool { return v.kind == TypeAny }

func NewI8(n int8) Variable   { return Variable{kind: TypeI8, i: int64(n)} }
func NewI16(n int16) Variable { return Variable{kind: TypeI16, i: int64(n)} }
func NewI32(n int32) Variable { return Variable{kind: TypeI32, i: int64(n)} }
func NewI64(n int64) Variable { return Variable{kind: TypeI64, i: n} }

func NewU8(n uint8) Variable   { return Variable{kind: TypeU8, u: uint64(n)} }
func NewU16(n uint16) Variable { return Variable{kind: TypeU16, u: uint64(n)} }
func NewU32(n uint32) Variable { return Variable{kind: TypeU32, u: uint64(n)} }
func NewU64(n uint64) Variable { return Variable{kind: TypeU64, u: n} }

func NewF32(n float32) Variable { return Variable{kind: TypeF32, f: float64(n)} }
func NewF64(n float64) Variable { return Variable{kind: TypeF64, f: n} }

func NewBool(b bool) Variable     { return Variable{kind: TypeBool, b: b} }
func NewChar(c rune) Variable     { return Variable{kind: TypeChar, c: c} }
func NewString(s string) Variable { return Variable{kind: TypeString, s: s} }

// NewList builds a List variant from an ordered sequence of Variables. The
// slice is copied so the caller's backing array can be reused safely.
func NewList(items []Variable) Variable {
	cp := make([]Variable, len(items))
	copy(cp, items)
	return Variable{kind: TypeList, list: cp}
}

// Kind returns the concrete type code of v. It is never TypeAny for a
// constructed Variable other than the null variant.
func (v Variable) Kind() Type { return v.kind }

// Equal reports structural equality between v and other.
func (v Variable) Equal(other Variable) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case TypeAny:
		return true // both null
	case TypeI8, TypeI16, TypeI32, TypeI64:
		return v.i == other.i
	case TypeU8, TypeU16, TypeU32, TypeU64:
		return v.u == other.u
	case TypeF32, TypeF64:
		return v.f == other.f
	case TypeBool:
		return v.b == other.b
	case TypeChar:
		return v.c == other.c
	case TypeString:
		return v.s == other.s
	case TypeList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two Variables of the same variant. ok is false when the
// variants differ or the variant has no sensible total order (null, list).
func (v Variable) Compare(other Variable) (cmp int, ok bool) {
	if v.kind != other.kind {
		return 0, false
	}
	switch v.kind {
	case TypeI8, TypeI16, TypeI32, TypeI64:
		return compareInt(v.i, other.i), true
	case TypeU8, TypeU16, TypeU32, TypeU64:
		return compareUint(v.u, other.u), true
	case TypeF32, TypeF64:
		return compareFloat(v.f, other.f), true
	case TypeBool:
		return compareBool(v.b, other.b), true
	case TypeChar:
		return compareInt(int64(v.c), int64(other.c)), true
	case TypeString:
		return strings.Compare(v.s, other.s), true
	default:
		return 0, false
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

// String renders a textual form of v, primarily useful for logging.
func (v Variable) String() string {
	switch v.kind {
	case TypeAny:
		return "null"
	case TypeI8, TypeI16, TypeI32, TypeI64:
		return strconv.FormatInt(v.i, 10)
	case TypeU8, TypeU16, TypeU32, TypeU64:
		return strconv.FormatUint(v.u, 10)
	case TypeF32, TypeF64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeChar:
		return string(v.c)
	case TypeString:
		return v.s
	case TypeList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("<unknown:%d>", v.kind)
	}
}

// --- typed accessors (the "by value" parse form) ---

func (v Variable) Int64() (int64, error) {
	if v.kind != TypeI8 && v.kind != TypeI16 && v.kind != TypeI32 && v.kind != TypeI64 {
		return 0, &ParseVariableError{Expected: TypeI64, Actual: v.kind}
	}
	return v.i, nil
}

func (v Variable) Uint64() (uint64, error) {
	if v.kind != TypeU8 && v.kind != TypeU16 && v.kind != TypeU32 && v.kind != TypeU64 {
		return 0, &ParseVariableError{Expected: TypeU64, Actual: v.kind}
	}
	return v.u, nil
}

func (v Variable) Float64() (float64, error) {
	if v.kind != TypeF32 && v.kind != TypeF64 {
		return 0, &ParseVariableError{Expected: TypeF64, Actual: v.kind}
	}
	return v.f, nil
}

func (v Variable) Bool() (bool, error) {
	if v.kind != TypeBool {
		return false, &ParseVariableError{Expected: TypeBool, Actual: v.kind}
	}
	return v.b, nil
}

func (v Variable) Char() (rune, error) {
	if v.kind != TypeChar {
		return 0, &ParseVariableError{Expected: TypeChar, Actual: v.kind}
	}
	return v.c, nil
}

func (v Variable) Str() (string, error) {
	if v.kind != TypeString {
		return "", &ParseVariableError{Expected: TypeString, Actual: v.kind}
	}
	return v.s, nil
}

// List is the "by value" parse form for the List variant: it returns a copy
// of the underlying sequence.
func (v Variable) List() ([]Variable, error) {
	if v.kind != TypeList {
		return nil, &ParseVariableError{Expected: TypeList, Actual: v.kind}
	}
	cp := make([]Variable, len(v.list))
	copy(cp, v.list)
	return cp, nil
}

// ListRef is the "by shared reference" parse form: it returns a pointer to
// the internal sequence for read-only iteration without copying. Callers
// must not mutate the returned slice's elements.
func (v *Variable) ListRef() (*[]Variable, error) {
	if v.kind != TypeList {
		return nil, &ParseVariableError{Expected: TypeList, Actual: v.kind}
	}
	return &v.list, nil
}

// ListMut is the "by exclusive reference" parse form: it returns a pointer
// to the internal sequence for in-place mutation (append, replace, sort).
func (v *Variable) ListMut() (*[]Variable, error) {
	if v.kind != TypeList {
		return nil, &ParseVariableError{Expected: TypeList, Actual: v.kind}
	}
	return &v.list, nil
}
