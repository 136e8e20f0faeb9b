package analysis

import (
	"slices"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/diag"
)

// Entity is a validated @entity record.
//
// Once handed to a Session an Entity is immutable except for Diagnostics
// and the resolution state of its relation fields.
type Entity struct {
	Name   string
	Module string
	Path   string

	Span     entcheck.Span
	NameSpan entcheck.Span

	// DeclaredFieldNames lists every field name of the record, including
	// rejected and included fields.
	DeclaredFieldNames []string
	Fields             []*Field

	PrimaryKeys  []KeyRef
	UniqueGroups [][]KeyRef

	Diagnostics []diag.Diagnostic

	// body holds what fixes need to add members before the closing brace.
	body bodyInfo
	// rejectedRefs counts rejected relation-shaped fields per target name.
	rejectedRefs map[string]int
	declared     map[string]bool
}

// KeyRef is a field name listed in a key or unique directive.
type KeyRef struct {
	Name string
	Span entcheck.Span
}

type bodyInfo struct {
	insertOffset int
	indent       string
}

// Declares reports whether the record declares a field with this name.
func (e *Entity) Declares(name string) bool {
	if e.declared == nil {
		return slices.Contains(e.DeclaredFieldNames, name)
	}

	return e.declared[name]
}

// Field returns the validated field with the given name.
func (e *Entity) Field(name string) *Field {
	for _, f := range e.Fields {
		if f.Name == name {
			return f
		}
	}

	return nil
}

// IsKey reports whether name is part of the primary key.
func (e *Entity) IsKey(name string) bool {
	return slices.ContainsFunc(e.PrimaryKeys, func(k KeyRef) bool { return k.Name == name })
}

// IsUnique reports whether name is part of a unique group.
func (e *Entity) IsUnique(name string) bool {
	for _, g := range e.UniqueGroups {
		if slices.ContainsFunc(g, func(k KeyRef) bool { return k.Name == name }) {
			return true
		}
	}

	return false
}

// KeyNames returns the primary key names in declaration order.
func (e *Entity) KeyNames() []string {
	names := make([]string, len(e.PrimaryKeys))
	for i, k := range e.PrimaryKeys {
		names[i] = k.Name
	}

	return names
}

func (e *Entity) report(d diag.Diagnostic) {
	d.Entity = e.Name
	e.Diagnostics = append(e.Diagnostics, d)
}

// Field is a validated entity field.
type Field struct {
	Name string
	// Entity is the containing entity's name.
	Entity string
	Path   string

	Span     entcheck.Span
	NameSpan entcheck.Span
	TypeSpan entcheck.Span

	Class    Class
	Optional bool
	Array    bool
	ReadOnly bool

	AutoIncrement *AutoIncrement
	Relation      *RelationDirective

	// AttachPoint is set when the type names a known record.
	AttachPoint bool
	// AttachedToEntity is set once the field is paired with a field of a
	// validated entity.
	AttachedToEntity bool
	Link             *Link

	// target locates the referenced record for fixes that edit it.
	target *recordRef
	// Precomputed removals of the field's directives.
	relationRemoval      *diag.Removal
	autoIncrementRemoval *diag.Removal
	// relationText is the @relation annotation as written.
	relationText string
}

type recordRef struct {
	path   string
	offset int
	entity bool
}

// Target returns the relation target name, or "" for non-relation fields.
func (f *Field) Target() string {
	if r, ok := f.Class.(Relation); ok {
		return r.Target
	}

	return ""
}

// before orders fields by source position.
func (f *Field) before(g *Field) bool {
	if f.Path != g.Path {
		return f.Path < g.Path
	}

	return f.Span.Start.Offset < g.Span.Start.Offset
}

// AutoIncrement is a parsed @autoincrement directive.
type AutoIncrement struct {
	Start *int64
	Span  entcheck.Span
}

// ReferentialAction is an onDelete/onUpdate action.
type ReferentialAction string

// Referential actions.
const (
	ActionNone       ReferentialAction = ""
	ActionCascade    ReferentialAction = "cascade"
	ActionRestrict   ReferentialAction = "restrict"
	ActionSetNull    ReferentialAction = "setNull"
	ActionSetDefault ReferentialAction = "setDefault"
	ActionNoAction   ReferentialAction = "noAction"
)

func validAction(s string) bool {
	switch ReferentialAction(s) {
	case ActionCascade, ActionRestrict, ActionSetNull, ActionSetDefault, ActionNoAction:
		return true
	default:
		return false
	}
}

// RelationDirective is a parsed @relation directive.
type RelationDirective struct {
	Keys       []KeyRef
	References []KeyRef
	OnDelete   ReferentialAction
	OnUpdate   ReferentialAction

	// Explicit is set when keys or references were written.
	Explicit bool
	Span     entcheck.Span
}

// Balanced reports whether keys and references pair up one to one.
func (d *RelationDirective) Balanced() bool {
	return len(d.Keys) == len(d.References)
}

// KeyNames returns the key column names.
func (d *RelationDirective) KeyNames() []string {
	return refNames(d.Keys)
}

// ReferenceNames returns the referenced column names.
func (d *RelationDirective) ReferenceNames() []string {
	return refNames(d.References)
}

func refNames(refs []KeyRef) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}

	return names
}

// Cardinality of a relation, from the point of view of one field.
type Cardinality int

// Cardinalities.
const (
	OneToOne Cardinality = iota + 1
	// OneToMany is the array side.
	OneToMany
	// ManyToOne is the scalar side of a one-to-many relation.
	ManyToOne
	ManyToMany
)

func (c Cardinality) String() string {
	switch c {
	case OneToOne:
		return "one-to-one"
	case OneToMany:
		return "one-to-many"
	case ManyToOne:
		return "many-to-one"
	case ManyToMany:
		return "many-to-many"
	default:
		return "unknown"
	}
}

// FieldRef names a field of an entity.
type FieldRef struct {
	Entity string
	Field  string
}

// Link is the resolved pairing of a relation field.
type Link struct {
	Partner     FieldRef
	Cardinality Cardinality
	// Owner is set on the side that carries the foreign key.
	Owner bool
}
