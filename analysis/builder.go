package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/diag"
)

// Annotation names.
const (
	annotationEntity        = "entity"
	annotationRelation      = "relation"
	annotationAutoIncrement = "autoincrement"
)

// Annotation argument names.
const (
	argKey        = "key"
	argUnique     = "unique"
	argStart      = "start"
	argKeys       = "keys"
	argReferences = "references"
	argOnDelete   = "onDelete"
	argOnUpdate   = "onUpdate"
)

// builder holds the state of one Build call.
type builder struct {
	file  *entcheck.File
	rec   *entcheck.Record
	types *TypeIndex
	e     *Entity

	entityAnn *entcheck.Annotation
	keyArg    *entcheck.Arg
	uniqueArg *entcheck.Arg
}

// Build validates an @entity record and returns its Entity. Problems are
// recorded in Entity.Diagnostics; Build never fails.
func Build(rec *entcheck.Record, file *entcheck.File, types *TypeIndex) *Entity {
	e := &Entity{
		Name:         rec.Name.Name,
		Path:         file.Path,
		Span:         rec.Span(),
		NameSpan:     rec.Name.Span,
		body:         bodyInsertion(file, rec),
		rejectedRefs: make(map[string]int),
		declared:     make(map[string]bool),
	}

	if file.Module != nil {
		e.Module = file.Module.Name
	}

	b := &builder{file: file, rec: rec, types: types, e: e}

	b.checkShape()
	b.checkRecordAnnotations()
	b.collectMembers()

	for _, rule := range DefaultRules() {
		rule.Run(b)
	}

	return e
}

func (b *builder) loc(span entcheck.Span) diag.Location {
	return location(b.file.Path, span)
}

func (b *builder) report(code diag.Code, span entcheck.Span, payload diag.Payload, format string, args ...any) {
	b.e.report(diag.New(code, b.loc(span), payload, format, args...))
}

func (b *builder) checkShape() {
	if b.rec.Closed {
		return
	}

	var payload diag.Payload
	if !b.rec.Close.IsZero() {
		payload = &diag.Closure{
			Path:        b.file.Path,
			OpenOffset:  b.rec.Open.Start.Offset,
			OpenLength:  b.rec.Open.Len(),
			CloseOffset: b.rec.Close.Start.Offset,
			CloseLength: b.rec.Close.Len(),
		}
	}

	b.report(diag.CodeEntityNotClosed, b.rec.Name.Span, payload,
		"entity %s must be a closed record, use {| |}", b.e.Name)
}

func (b *builder) checkRecordAnnotations() {
	for _, a := range b.rec.Annotations {
		switch a.Name.Name {
		case annotationEntity:
			if b.entityAnn != nil {
				b.report(diag.CodeDuplicateAnnotation, a.Span, inlineRemoval(b.file, a.Span, "@entity"),
					"duplicate @entity annotation")

				continue
			}

			b.entityAnn = a
			b.checkEntityArgs(a)
		case annotationRelation, annotationAutoIncrement:
			b.report(diag.CodeMisplacedAnnotation, a.Span, inlineRemoval(b.file, a.Span, "@"+a.Name.Name),
				"@%s is not allowed on a record", a.Name.Name)
		default:
			b.report(diag.CodeUnknownAnnotation, a.Span, inlineRemoval(b.file, a.Span, "@"+a.Name.Name),
				"unknown annotation @%s", a.Name.Name)
		}
	}
}

func argSpans(a *entcheck.Annotation) []entcheck.Span {
	spans := make([]entcheck.Span, len(a.Args))
	for i, arg := range a.Args {
		spans[i] = arg.Span
	}

	return spans
}

func (b *builder) invalidArg(a *entcheck.Annotation, idx int, format string, args ...any) {
	arg := a.Args[idx]
	b.report(diag.CodeInvalidAnnotationArgument, arg.Span,
		listItemRemoval(b.file, argSpans(a), idx, arg.Name.Name),
		format, args...)
}

func (b *builder) checkEntityArgs(a *entcheck.Annotation) {
	for i, arg := range a.Args {
		switch arg.Name.Name {
		case argKey:
			switch {
			case b.keyArg != nil:
				b.invalidArg(a, i, "duplicate argument %s", arg.Name.Name)
			case arg.Value.Kind != entcheck.ValueList:
				b.invalidArg(a, i, "key must be a list of field names")
			default:
				b.keyArg = arg
			}
		case argUnique:
			switch {
			case b.uniqueArg != nil:
				b.invalidArg(a, i, "duplicate argument %s", arg.Name.Name)
			case arg.Value.Kind != entcheck.ValueList:
				b.invalidArg(a, i, "unique must be a list of field name lists")
			default:
				b.uniqueArg = arg
			}
		default:
			b.invalidArg(a, i, "unknown argument %s for @entity", arg.Name.Name)
		}
	}
}

func (b *builder) declare(name string) {
	if b.e.declared[name] {
		return
	}

	b.e.declared[name] = true
	b.e.DeclaredFieldNames = append(b.e.DeclaredFieldNames, name)
}

func (b *builder) collectMembers() {
	seen := make(map[string]bool)

	for _, m := range b.rec.Members {
		switch {
		case m.Include != nil:
			for _, name := range b.includedFields(m.Include.Name.Name, map[string]bool{b.e.Name: true}) {
				b.declare(name)
			}

			b.report(diag.CodeInheritedField, m.Include.Span, lineRemoval(b.file, m.Include.Span, "*"+m.Include.Name.Name),
				"entity %s cannot include fields from %s", b.e.Name, m.Include.Name.Name)

		case m.Rest != nil:
			b.report(diag.CodeRestField, m.Rest.Span, lineRemoval(b.file, m.Rest.Span, "rest descriptor"),
				"entity %s cannot declare a rest descriptor", b.e.Name)

		case m.Field != nil:
			fd := m.Field
			if seen[fd.Name.Name] {
				b.reject(fd)
				b.report(diag.CodeDuplicateField, fd.Name.Span, lineRemoval(b.file, fd.Span, "field "+fd.Name.Name),
					"field %s is already declared", fd.Name.Name)

				continue
			}

			seen[fd.Name.Name] = true
			b.declare(fd.Name.Name)

			if f := b.buildField(fd); f != nil {
				b.e.Fields = append(b.e.Fields, f)
			}
		}
	}
}

// includedFields resolves the field names an inclusion brings in.
func (b *builder) includedFields(name string, visiting map[string]bool) []string {
	sym, ok := b.types.Lookup(name)
	if !ok || visiting[name] {
		return nil
	}

	visiting[name] = true

	var names []string

	for _, m := range sym.Record.Members {
		switch {
		case m.Field != nil:
			names = append(names, m.Field.Name.Name)
		case m.Include != nil:
			names = append(names, b.includedFields(m.Include.Name.Name, visiting)...)
		}
	}

	return names
}

// reject remembers excluded fields whose type names a record, so their
// counterparts are not reported as missing a back-reference.
func (b *builder) reject(fd *entcheck.Field) {
	if fd.Type == nil || len(fd.Type.Terms) != 1 {
		return
	}

	term := fd.Type.Terms[0]
	if term.Module != nil || term.Name == nil {
		return
	}

	if sym, ok := b.types.Lookup(term.Name.Name); ok && sym.Entity {
		b.e.rejectedRefs[term.Name.Name]++
	}
}

func outerSuffix(t *entcheck.TypeExpr, kind entcheck.SuffixKind) (entcheck.Span, bool) {
	if t == nil || len(t.Terms) != 1 {
		return entcheck.Span{}, false
	}

	suffixes := t.Terms[0].Suffixes
	for i := len(suffixes) - 1; i >= 0; i-- {
		if suffixes[i].Kind == kind {
			return suffixes[i].Span, true
		}
	}

	return entcheck.Span{}, false
}

func (b *builder) buildField(fd *entcheck.Field) *Field {
	name := fd.Name.Name

	if fd.Default != nil {
		b.reject(fd)
		b.report(diag.CodeDefaultValue, fd.DefaultSpan, inlineRemoval(b.file, fd.DefaultSpan, "default value"),
			"field %s cannot have a default value", name)

		return nil
	}

	c := Classify(fd.Type, b.types)

	f := &Field{
		Name:     name,
		Entity:   b.e.Name,
		Path:     b.file.Path,
		Span:     fd.Span,
		NameSpan: fd.Name.Span,
		TypeSpan: fd.Type.Span,
		Class:    c.Class,
		Optional: c.Optional,
		Array:    c.Array,
		ReadOnly: fd.Readonly != nil,
	}

	switch class := c.Class.(type) {
	case Unsupported:
		b.reject(fd)
		b.report(diag.CodeUnsupportedType, fd.Type.Span, b.typeReplacement(fd),
			"unsupported type %s for field %s: %s", fd.Type, name, class.Reason)

		return nil

	case Scalar, Temporal:
		if c.Optional {
			span, _ := outerSuffix(fd.Type, entcheck.SuffixOptional)
			b.report(diag.CodeOptionalField, fd.Type.Span, inlineRemoval(b.file, span, "?"),
				"field %s cannot be optional", name)

			return nil
		}

		if c.Array {
			span, _ := outerSuffix(fd.Type, entcheck.SuffixArray)
			b.report(diag.CodeArrayField, fd.Type.Span, inlineRemoval(b.file, span, "[]"),
				"field %s cannot be an array", name)

			return nil
		}

	case Relation:
		if !class.Known {
			b.report(diag.CodeReferencedTypeNotFound, fd.Type.Span, b.typeNotFoundReplacement(fd, class.Target),
				"referenced type %s not found", class.Target)
		} else if sym, _ := b.types.Lookup(class.Target); !sym.Broken {
			f.AttachPoint = true
			f.target = &recordRef{path: sym.Path, offset: sym.Record.Span().Start.Offset, entity: sym.Entity}
		}
	}

	b.fieldAnnotations(fd, f)

	return f
}

// typeReplacement offers the scalar types, or for an optional relation
// array the two supported relation shapes.
func (b *builder) typeReplacement(fd *entcheck.Field) *diag.TypeReplacement {
	candidates := ScalarTypeNames

	if term := fd.Type.Terms[0]; len(fd.Type.Terms) == 1 && term.Name != nil && term.Module == nil &&
		b.types.Has(term.Name.Name) {
		candidates = []string{term.Name.Name + "[]", term.Name.Name}
	}

	return &diag.TypeReplacement{
		Path:       b.file.Path,
		Offset:     fd.Type.Span.Start.Offset,
		Length:     fd.Type.Span.Len(),
		Current:    fd.Type.String(),
		Candidates: candidates,
	}
}

// typeNotFoundReplacement replaces the unknown name, keeping suffixes, with
// records whose names resemble it followed by the scalar types.
func (b *builder) typeNotFoundReplacement(fd *entcheck.Field, target string) *diag.TypeReplacement {
	name := fd.Type.Terms[0].Name
	lower := strings.ToLower(target)

	var candidates []string

	for _, n := range b.types.Names() {
		l := strings.ToLower(n)
		if l == lower || strings.HasPrefix(l, lower) || strings.HasPrefix(lower, l) {
			candidates = append(candidates, n)
		}
	}

	candidates = append(candidates, ScalarTypeNames...)

	return &diag.TypeReplacement{
		Path:       b.file.Path,
		Offset:     name.Span.Start.Offset,
		Length:     name.Span.Len(),
		Current:    target,
		Candidates: candidates,
	}
}

func (b *builder) fieldAnnotations(fd *entcheck.Field, f *Field) {
	_, isRelation := f.Class.(Relation)

	for _, a := range fd.Annotations {
		removal := inlineRemoval(b.file, a.Span, "@"+a.Name.Name)

		switch a.Name.Name {
		case annotationRelation:
			switch {
			case !isRelation:
				b.report(diag.CodeMisplacedAnnotation, a.Span, removal,
					"@relation is only allowed on relation fields, %s is %s", f.Name, fd.Type)
			case f.Relation != nil:
				b.report(diag.CodeDuplicateAnnotation, a.Span, removal, "duplicate @relation annotation")
			default:
				f.Relation = b.relationDirective(a)
				f.relationRemoval = removal

				if valid(b.file.Source, a.Span.Start.Offset, a.Span.End.Offset) {
					f.relationText = string(b.file.Source[a.Span.Start.Offset:a.Span.End.Offset])
				}
			}

		case annotationAutoIncrement:
			switch {
			case isRelation:
				b.report(diag.CodeMisplacedAnnotation, a.Span, removal,
					"@autoincrement is not allowed on relation field %s", f.Name)
			case f.AutoIncrement != nil:
				b.report(diag.CodeDuplicateAnnotation, a.Span, removal, "duplicate @autoincrement annotation")
			default:
				f.AutoIncrement = b.autoIncrement(a)
				f.autoIncrementRemoval = removal
			}

		case annotationEntity:
			b.report(diag.CodeMisplacedAnnotation, a.Span, removal, "@entity is only allowed on records")

		default:
			b.report(diag.CodeUnknownAnnotation, a.Span, removal, "unknown annotation @%s", a.Name.Name)
		}
	}
}

func parseInt(text string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 10, 64)
}

func (b *builder) autoIncrement(a *entcheck.Annotation) *AutoIncrement {
	ai := &AutoIncrement{Span: a.Span}
	seen := make(map[string]bool)

	for i, arg := range a.Args {
		if arg.Name.Name != argStart || seen[argStart] {
			b.invalidArg(a, i, "unknown argument %s for @autoincrement", arg.Name.Name)

			continue
		}

		seen[argStart] = true

		if arg.Value.Kind != entcheck.ValueInt {
			b.invalidArg(a, i, "start must be an integer")

			continue
		}

		n, err := parseInt(arg.Value.Text)
		if err != nil {
			b.invalidArg(a, i, "start %s is out of range", arg.Value.Text)

			continue
		}

		ai.Start = &n
	}

	return ai
}

func identList(v *entcheck.Value) ([]KeyRef, bool) {
	if v.Kind != entcheck.ValueList {
		return nil, false
	}

	refs := make([]KeyRef, 0, len(v.Items))

	for _, item := range v.Items {
		if item.Kind != entcheck.ValueIdent {
			return nil, false
		}

		refs = append(refs, KeyRef{Name: item.Text, Span: item.Span})
	}

	return refs, true
}

func (b *builder) relationDirective(a *entcheck.Annotation) *RelationDirective {
	d := &RelationDirective{Span: a.Span}
	seen := make(map[string]bool)

	for i, arg := range a.Args {
		name := arg.Name.Name
		if seen[name] {
			b.invalidArg(a, i, "duplicate argument %s", name)

			continue
		}

		switch name {
		case argKeys, argReferences:
			refs, ok := identList(arg.Value)
			if !ok {
				b.invalidArg(a, i, "%s must be a list of field names", name)

				continue
			}

			if name == argKeys {
				d.Keys = refs
			} else {
				d.References = refs
			}

			d.Explicit = true

		case argOnDelete, argOnUpdate:
			if arg.Value.Kind != entcheck.ValueIdent || !validAction(arg.Value.Text) {
				b.invalidArg(a, i, "%s must be one of cascade, restrict, setNull, setDefault, noAction", name)

				continue
			}

			if name == argOnDelete {
				d.OnDelete = ReferentialAction(arg.Value.Text)
			} else {
				d.OnUpdate = ReferentialAction(arg.Value.Text)
			}

		default:
			b.invalidArg(a, i, "unknown argument %s for @relation", name)

			continue
		}

		seen[name] = true
	}

	return d
}

// validated returns the validated field with this name, if any.
func (b *builder) validated(name string) *Field {
	return b.e.Field(name)
}

func describeClass(c Class) string {
	switch c := c.(type) {
	case Scalar:
		return c.Kind.String()
	case Temporal:
		return c.Kind.String()
	case Relation:
		return fmt.Sprintf("relation to %s", c.Target)
	case Unsupported:
		return c.Reason
	default:
		return "unknown"
	}
}
