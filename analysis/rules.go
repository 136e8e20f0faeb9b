package analysis

import (
	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/diag"
)

// Rule is an entity-local check run by Build once the record's members
// have been collected and classified.
// Inspired by go/analysis.Analyzer pattern.
type Rule struct {
	// Name is a short identifier for the rule.
	Name string

	// Doc is a brief description of what the rule checks.
	Doc string

	// Codes lists the diagnostic codes the rule may report.
	Codes []diag.Code

	// Run executes the rule against the entity being built.
	Run func(b *builder)
}

// DefaultRules returns the entity-local rules in the order Build runs them.
// Key rules run first: auto-increment checks depend on the primary key.
func DefaultRules() []*Rule {
	return []*Rule{
		primaryKeyRule,
		uniqueGroupRule,
		autoIncrementRule,
	}
}

// ----------------------------------------------------------------------------
// Rule: primary-key
// ----------------------------------------------------------------------------

var primaryKeyRule = &Rule{
	Name: "primary-key",
	Doc:  "Validates the key list of @entity against the declared fields.",
	Codes: []diag.Code{
		diag.CodeEmptyKey,
		diag.CodeKeyFieldNotFound,
		diag.CodeDuplicateKeyField,
		diag.CodeInvalidKeyField,
		diag.CodeKeyFieldNotReadonly,
	},
	Run: checkPrimaryKey,
}

func itemSpans(v *entcheck.Value) []entcheck.Span {
	spans := make([]entcheck.Span, len(v.Items))
	for i, item := range v.Items {
		spans[i] = item.Span
	}

	return spans
}

func checkPrimaryKey(b *builder) {
	if b.keyArg == nil || len(b.keyArg.Value.Items) == 0 {
		span := b.rec.Name.Span
		if b.entityAnn != nil {
			span = b.entityAnn.Span
		}

		b.report(diag.CodeEmptyKey, span, b.keyInsertion(), "entity %s has no primary key", b.e.Name)

		return
	}

	list := b.keyArg.Value
	spans := itemSpans(list)
	seen := make(map[string]bool)

	for i, item := range list.Items {
		if item.Kind != entcheck.ValueIdent {
			b.report(diag.CodeInvalidAnnotationArgument, item.Span, listItemRemoval(b.file, spans, i, item.Text),
				"key entries must be field names, found %s", item.Text)

			continue
		}

		name := item.Text
		removal := listItemRemoval(b.file, spans, i, name)

		if seen[name] {
			b.report(diag.CodeDuplicateKeyField, item.Span, removal, "field %s is already part of the key", name)

			continue
		}

		seen[name] = true

		if !b.e.Declares(name) {
			b.report(diag.CodeKeyFieldNotFound, item.Span, removal,
				"key field %s is not declared on entity %s", name, b.e.Name)

			continue
		}

		f := b.validated(name)
		if f != nil {
			if _, ok := f.Class.(Relation); ok {
				b.report(diag.CodeInvalidKeyField, item.Span, removal,
					"key field %s must be a scalar field, not a relation", name)

				continue
			}

			if !f.ReadOnly {
				b.report(diag.CodeKeyFieldNotReadonly, f.NameSpan,
					&diag.Insertion{Path: b.file.Path, Offset: f.Span.Start.Offset, Text: "readonly ", What: "readonly"},
					"key field %s must be readonly", name)
			}
		}

		b.e.PrimaryKeys = append(b.e.PrimaryKeys, KeyRef{Name: name, Span: item.Span})
	}
}

// keyCandidate picks the field a key fix proposes: the first readonly
// scalar, else the first scalar.
func (b *builder) keyCandidate() string {
	var first string

	for _, f := range b.e.Fields {
		switch f.Class.(type) {
		case Scalar, Temporal:
			if f.ReadOnly {
				return f.Name
			}

			if first == "" {
				first = f.Name
			}
		}
	}

	return first
}

func (b *builder) keyInsertion() diag.Payload {
	name := b.keyCandidate()
	if name == "" || b.entityAnn == nil {
		return nil
	}

	a := b.entityAnn
	end := a.Span.End.Offset

	switch {
	case b.keyArg != nil:
		return &diag.Insertion{Path: b.file.Path, Offset: b.keyArg.Value.Span.Start.Offset + 1, Text: name, What: "key " + name}
	case !a.Parens:
		return &diag.Insertion{Path: b.file.Path, Offset: end, Text: "(key: [" + name + "])", What: "key " + name}
	case len(a.Args) == 0:
		return &diag.Insertion{Path: b.file.Path, Offset: end - 1, Text: "key: [" + name + "]", What: "key " + name}
	default:
		last := a.Args[len(a.Args)-1]

		return &diag.Insertion{Path: b.file.Path, Offset: last.Span.End.Offset, Text: ", key: [" + name + "]", What: "key " + name}
	}
}

// ----------------------------------------------------------------------------
// Rule: unique-groups
// ----------------------------------------------------------------------------

var uniqueGroupRule = &Rule{
	Name: "unique-groups",
	Doc:  "Validates each unique group of @entity independently.",
	Codes: []diag.Code{
		diag.CodeEmptyUniqueGroup,
		diag.CodeUniqueFieldNotFound,
		diag.CodeDuplicateUniqueField,
	},
	Run: checkUniqueGroups,
}

func checkUniqueGroups(b *builder) {
	if b.uniqueArg == nil {
		return
	}

	groups := b.uniqueArg.Value
	groupSpans := itemSpans(groups)

	for gi, group := range groups.Items {
		if group.Kind != entcheck.ValueList {
			b.report(diag.CodeInvalidAnnotationArgument, group.Span, listItemRemoval(b.file, groupSpans, gi, group.Text),
				"unique groups must be lists of field names, found %s", group.Text)

			continue
		}

		if len(group.Items) == 0 {
			b.report(diag.CodeEmptyUniqueGroup, group.Span, listItemRemoval(b.file, groupSpans, gi, "empty group"),
				"unique group %d of entity %s is empty", gi+1, b.e.Name)

			continue
		}

		spans := itemSpans(group)
		seen := make(map[string]bool)

		var refs []KeyRef

		for i, item := range group.Items {
			removal := listItemRemoval(b.file, spans, i, item.Text)

			switch {
			case item.Kind != entcheck.ValueIdent:
				b.report(diag.CodeInvalidAnnotationArgument, item.Span, removal,
					"unique entries must be field names, found %s", item.Text)
			case seen[item.Text]:
				b.report(diag.CodeDuplicateUniqueField, item.Span, removal,
					"field %s is already part of this unique group", item.Text)
			case !b.e.Declares(item.Text):
				seen[item.Text] = true
				b.report(diag.CodeUniqueFieldNotFound, item.Span, removal,
					"unique field %s is not declared on entity %s", item.Text, b.e.Name)
			default:
				seen[item.Text] = true
				refs = append(refs, KeyRef{Name: item.Text, Span: item.Span})
			}
		}

		if len(refs) > 0 {
			b.e.UniqueGroups = append(b.e.UniqueGroups, refs)
		}
	}
}

// ----------------------------------------------------------------------------
// Rule: auto-increment
// ----------------------------------------------------------------------------

var autoIncrementRule = &Rule{
	Name:  "auto-increment",
	Doc:   "Auto-increment fields must be int primary key fields.",
	Codes: []diag.Code{diag.CodeAutoIncrementNotKey, diag.CodeAutoIncrementType},
	Run:   checkAutoIncrement,
}

func checkAutoIncrement(b *builder) {
	for _, f := range b.e.Fields {
		if f.AutoIncrement == nil {
			continue
		}

		if !b.e.IsKey(f.Name) {
			b.report(diag.CodeAutoIncrementNotKey, f.AutoIncrement.Span, f.autoIncrementRemoval,
				"auto-increment field %s must be part of the primary key", f.Name)

			continue
		}

		if s, ok := f.Class.(Scalar); !ok || s.Kind != KindInt {
			b.report(diag.CodeAutoIncrementType, f.TypeSpan,
				&diag.TypeReplacement{
					Path:       f.Path,
					Offset:     f.TypeSpan.Start.Offset,
					Length:     f.TypeSpan.Len(),
					Current:    TypeName(f.Class),
					Candidates: []string{"int"},
				},
				"auto-increment field %s must be int, not %s", f.Name, describeClass(f.Class))
		}
	}
}
