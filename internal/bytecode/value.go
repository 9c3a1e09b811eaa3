package bytecode

import "strconv"

// ValueKind tags the variant held by a Value. Values are a small tagged
// union rather than a Go interface: dispatch on a value's kind is a plain
// switch, never a virtual call.
type ValueKind byte

const (
	ValBool ValueKind = iota
	ValNone
	ValNumber
	ValObj
)

// Value is lumen's dynamically-typed runtime value: a bool, the none
// singleton, an IEEE-754 double, or a handle to a heap Object. Exactly one
// of the fields below is meaningful, selected by Kind.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number float64
	Obj    Object
}

// Bool, None, Number, and Obj value constructors.

func BoolVal(b bool) Value    { return Value{Kind: ValBool, Bool: b} }
func NoneVal() Value          { return Value{Kind: ValNone} }
func NumberVal(n float64) Value { return Value{Kind: ValNumber, Number: n} }
func ObjVal(o Object) Value   { return Value{Kind: ValObj, Obj: o} }

func (v Value) IsBool() bool   { return v.Kind == ValBool }
func (v Value) IsNone() bool   { return v.Kind == ValNone }
func (v Value) IsNumber() bool { return v.Kind == ValNumber }
func (v Value) IsObj() bool    { return v.Kind == ValObj }

// IsObjType reports whether v holds a heap object of the given kind.
func (v Value) IsObjType(kind ObjType) bool {
	return v.Kind == ValObj && v.Obj.Kind() == kind
}

// IsFalsey implements lumen's truthiness rule: none and false are falsey,
// everything else (including 0 and the empty string) is truthy.
func (v Value) IsFalsey() bool {
	return v.Kind == ValNone || (v.Kind == ValBool && !v.Bool)
}

// ValuesEqual implements Value equality: same variant, and for Obj values,
// handle identity (which, because strings are interned, is equivalent to
// content equality for strings).
func ValuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ValBool:
		return a.Bool == b.Bool
	case ValNone:
		return true
	case ValNumber:
		return a.Number == b.Number
	case ValObj:
		return a.Obj == b.Obj
	default:
		return false
	}
}

// String renders v the way `print` does: none as "none", booleans as
// "true"/"false", numbers via the shortest round-tripping decimal, and
// objects by delegating to their own representation.
func (v Value) String() string {
	switch v.Kind {
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValNone:
		return "none"
	case ValNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case ValObj:
		return v.Obj.String()
	default:
		return "<invalid value>"
	}
}
