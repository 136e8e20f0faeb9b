// Package entcheck provides the lexer, parser and formatter for .ent entity declarations.
package entcheck

import "strings"

// File is a parsed .ent source file.
type File struct {
	Path string
	// Source is the raw file content the spans index into.
	Source []byte

	Module  *Ident // nil when the file has no module declaration
	Records []*Record

	LeadingComments []string
}

// Ident is a name with its source span.
type Ident struct {
	Name string
	Span Span
}

// Record is a top-level record declaration.
type Record struct {
	Annotations []*Annotation
	Keyword     Span
	Name        Ident
	// Closed is true for the {| |} shape.
	Closed  bool
	Open    Span
	Close   Span // zero when the record is broken
	Members []*Member
	// Broken is set when a syntax error interrupted the record body.
	Broken bool

	LeadingComments []string
	TrailingComment string
	// DanglingComments follow the last member, before the closing brace.
	DanglingComments []string

	span Span
}

// Span returns the record's source span, including its annotations.
func (r *Record) Span() Span { return r.span }

// Annotation returns the first annotation with the given name.
func (r *Record) Annotation(name string) *Annotation {
	return findAnnotation(r.Annotations, name)
}

// Member is one entry of a record body. Exactly one field is set.
type Member struct {
	Field   *Field
	Include *Include
	Rest    *Rest

	LeadingComments []string
	TrailingComment string
}

// Span returns the span of whichever member variant is set.
func (m *Member) Span() Span {
	switch {
	case m.Field != nil:
		return m.Field.Span
	case m.Include != nil:
		return m.Include.Span
	case m.Rest != nil:
		return m.Rest.Span
	default:
		return Span{}
	}
}

// Include is an inclusion member, *Other;
type Include struct {
	Name Ident
	Span Span
}

// Rest is a rest descriptor, ...; or ...: T;
type Rest struct {
	Type *TypeExpr // nil for a bare rest descriptor
	Span Span
}

// Field is a named member declaration.
type Field struct {
	Readonly *Span // nil when the field is not readonly
	Name     Ident
	Type     *TypeExpr
	// Default is the value after '='; DefaultSpan covers '=' through the value.
	Default     *Value
	DefaultSpan Span
	Annotations []*Annotation
	Span        Span
}

// Annotation returns the first annotation with the given name.
func (f *Field) Annotation(name string) *Annotation {
	return findAnnotation(f.Annotations, name)
}

// TypeExpr is a type, possibly a union of several terms.
type TypeExpr struct {
	Terms []*TypeTerm
	Span  Span
}

// String renders the type in canonical form.
func (t *TypeExpr) String() string {
	if t == nil {
		return ""
	}

	parts := make([]string, len(t.Terms))
	for i, term := range t.Terms {
		parts[i] = term.String()
	}

	return strings.Join(parts, " | ")
}

// TypeTerm is one alternative of a type: a base with suffixes applied innermost first.
type TypeTerm struct {
	Module *Ident // set for qualified names, module:Name
	Name   *Ident // nil for inline records
	Record *InlineRecord

	Suffixes []Suffix
	Span     Span
}

// String renders the term in canonical form.
func (t *TypeTerm) String() string {
	var b strings.Builder

	switch {
	case t.Record != nil:
		open, closer := "{ ", "}"
		if t.Record.Closed {
			open, closer = "{| ", "|}"
		}

		b.WriteString("record " + open)

		for _, m := range t.Record.Members {
			b.WriteString(memberString(m))
			b.WriteString(" ")
		}

		b.WriteString(closer)
	case t.Module != nil && t.Name != nil:
		b.WriteString(t.Module.Name + ":" + t.Name.Name)
	case t.Name != nil:
		b.WriteString(t.Name.Name)
	}

	for _, s := range t.Suffixes {
		b.WriteString(s.Kind.String())
	}

	return b.String()
}

// SuffixKind is a type suffix.
type SuffixKind int

// Type suffixes.
const (
	SuffixArray SuffixKind = iota + 1
	SuffixOptional
)

func (k SuffixKind) String() string {
	switch k {
	case SuffixArray:
		return "[]"
	case SuffixOptional:
		return "?"
	default:
		return ""
	}
}

// Suffix is an array or optional marker.
type Suffix struct {
	Kind SuffixKind
	Span Span
}

// InlineRecord is an anonymous record type, record { ... }.
type InlineRecord struct {
	Closed  bool
	Members []*Member
	Span    Span
}

// Annotation is an @name(args) directive.
type Annotation struct {
	Name Ident
	Args []*Arg
	// Parens is true when an argument list was written, even an empty one.
	Parens bool
	Span   Span
}

// Arg returns the named argument or nil.
func (a *Annotation) Arg(name string) *Arg {
	for _, arg := range a.Args {
		if arg.Name.Name == name {
			return arg
		}
	}

	return nil
}

// Arg is one name: value argument of an annotation.
type Arg struct {
	Name  Ident
	Value *Value
	Span  Span
}

// ValueKind discriminates Value.
type ValueKind int

// Value kinds.
const (
	ValueIdent ValueKind = iota + 1
	ValueInt
	ValueFloat
	ValueString
	ValueList
)

// Value is a literal in an annotation argument or a field default.
type Value struct {
	Kind ValueKind
	// Text is the literal as written, including quotes and a leading minus.
	Text  string
	Items []*Value // for ValueList
	Span  Span
}

// String renders the value in canonical form.
func (v *Value) String() string {
	if v == nil {
		return ""
	}

	if v.Kind != ValueList {
		return v.Text
	}

	parts := make([]string, len(v.Items))
	for i, item := range v.Items {
		parts[i] = item.String()
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func findAnnotation(annotations []*Annotation, name string) *Annotation {
	for _, a := range annotations {
		if a.Name.Name == name {
			return a
		}
	}

	return nil
}
