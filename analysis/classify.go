package analysis

import (
	"fmt"

	"github.com/rlch/entcheck"
)

// Class is the classification of a field type. It is one of Scalar,
// Temporal, Relation or Unsupported.
type Class interface {
	isClass()
}

// ScalarKind is a primitive persisted kind.
type ScalarKind int

// Scalar kinds.
const (
	KindInt ScalarKind = iota + 1
	KindString
	KindBoolean
	KindDecimal
	KindFloat
	KindBytes
)

var scalarNames = map[string]ScalarKind{
	"int":     KindInt,
	"string":  KindString,
	"boolean": KindBoolean,
	"decimal": KindDecimal,
	"float":   KindFloat,
}

// ScalarTypeNames are the bare type names accepted as scalars, in the order
// fixes offer them.
var ScalarTypeNames = []string{"int", "string", "boolean", "decimal", "float"}

func (k ScalarKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindDecimal:
		return "decimal"
	case KindFloat:
		return "float"
	case KindBytes:
		return "byte[]"
	default:
		return "unknown"
	}
}

// TemporalKind is a time-like persisted kind from the time module.
type TemporalKind int

// Temporal kinds.
const (
	TemporalDate TemporalKind = iota + 1
	TemporalTimeOfDay
	TemporalUtc
	TemporalCivil
)

// temporalModule is the only module whose qualified names are accepted.
const temporalModule = "time"

var temporalNames = map[string]TemporalKind{
	"Date":      TemporalDate,
	"TimeOfDay": TemporalTimeOfDay,
	"Utc":       TemporalUtc,
	"Civil":     TemporalCivil,
}

func (k TemporalKind) String() string {
	switch k {
	case TemporalDate:
		return "time:Date"
	case TemporalTimeOfDay:
		return "time:TimeOfDay"
	case TemporalUtc:
		return "time:Utc"
	case TemporalCivil:
		return "time:Civil"
	default:
		return "unknown"
	}
}

// Scalar is a primitive field.
type Scalar struct{ Kind ScalarKind }

// Temporal is a time-like field.
type Temporal struct{ Kind TemporalKind }

// Relation references another record by bare name.
type Relation struct {
	Target string
	// Known is set when the target names a record of the compilation unit.
	Known bool
}

// Unsupported is any type an entity cannot persist.
type Unsupported struct{ Reason string }

func (Scalar) isClass()      {}
func (Temporal) isClass()    {}
func (Relation) isClass()    {}
func (Unsupported) isClass() {}

// TypeName renders a scalar or temporal class as written in source.
func TypeName(c Class) string {
	switch c := c.(type) {
	case Scalar:
		return c.Kind.String()
	case Temporal:
		return c.Kind.String()
	case Relation:
		return c.Target
	default:
		return ""
	}
}

// Classification is the result of Classify.
type Classification struct {
	Class    Class
	Optional bool
	Array    bool
}

// Classify decides the class and modifiers of a field type. The outermost
// '?' is unwrapped first, then the outermost '[]'; any further suffix makes
// the type unsupported.
func Classify(t *entcheck.TypeExpr, types *TypeIndex) Classification {
	if t == nil || len(t.Terms) == 0 {
		return Classification{Class: Unsupported{Reason: "missing type"}}
	}

	if len(t.Terms) > 1 {
		return Classification{Class: Unsupported{Reason: "union types are not supported"}}
	}

	term := t.Terms[0]
	if term.Record != nil {
		return Classification{Class: Unsupported{Reason: "inline record types are not supported"}}
	}

	var c Classification

	suffixes := term.Suffixes
	if n := len(suffixes); n > 0 && suffixes[n-1].Kind == entcheck.SuffixOptional {
		c.Optional = true
		suffixes = suffixes[:n-1]
	}

	if n := len(suffixes); n > 0 && suffixes[n-1].Kind == entcheck.SuffixArray {
		c.Array = true
		suffixes = suffixes[:n-1]
	}

	if len(suffixes) > 0 {
		reason := "nested arrays are not supported"
		if suffixes[len(suffixes)-1].Kind == entcheck.SuffixOptional {
			reason = "arrays of optional values are not supported"
		}

		c.Class = Unsupported{Reason: reason}

		return c
	}

	if term.Module != nil {
		if term.Module.Name == temporalModule {
			if kind, ok := temporalNames[term.Name.Name]; ok {
				c.Class = Temporal{Kind: kind}

				return c
			}
		}

		c.Class = Unsupported{Reason: fmt.Sprintf("unknown qualified type %s:%s", term.Module.Name, term.Name.Name)}

		return c
	}

	name := term.Name.Name

	if kind, ok := scalarNames[name]; ok {
		c.Class = Scalar{Kind: kind}

		return c
	}

	if name == "byte" {
		switch {
		case c.Array && !c.Optional:
			c.Array = false
			c.Class = Scalar{Kind: KindBytes}
		case c.Array:
			c.Class = Unsupported{Reason: "optional byte arrays are not supported"}
		default:
			c.Class = Unsupported{Reason: "byte is only supported as byte[]"}
		}

		return c
	}

	if c.Array && c.Optional {
		c.Class = Unsupported{Reason: "optional relation arrays are not supported"}

		return c
	}

	c.Class = Relation{Target: name, Known: types.Has(name)}

	return c
}
