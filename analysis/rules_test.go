package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/entcheck/analysis"
	"github.com/rlch/entcheck/diag"
)

func TestRule_PrimaryKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		entity string
		id     string
		want   []diag.Code
	}{
		{name: "valid", entity: "@entity(key: [id])", id: "readonly id: int;"},
		{name: "missing key", entity: "@entity", id: "readonly id: int;", want: []diag.Code{diag.CodeEmptyKey}},
		{name: "empty key", entity: "@entity(key: [])", id: "readonly id: int;", want: []diag.Code{diag.CodeEmptyKey}},
		{name: "unknown key", entity: "@entity(key: [id, uid])", id: "readonly id: int;", want: []diag.Code{diag.CodeKeyFieldNotFound}},
		{name: "duplicate key", entity: "@entity(key: [id, id])", id: "readonly id: int;", want: []diag.Code{diag.CodeDuplicateKeyField}},
		{name: "not readonly", entity: "@entity(key: [id])", id: "id: int;", want: []diag.Code{diag.CodeKeyFieldNotReadonly}},
		{name: "not an ident", entity: `@entity(key: [id, "x"])`, id: "readonly id: int;", want: []diag.Code{diag.CodeInvalidAnnotationArgument}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := analyze(t, tt.entity+"\nrecord User {|\n\t"+tt.id+"\n|}\n")

			assert.Equal(t, tt.want, codesOf(res.Diagnostics))
		})
	}
}

func TestRule_KeySubsetReportedOnce(t *testing.T) {
	t.Parallel()

	res := analyze(t, `
@entity(key: [id, uid, uid, gid])
record User {|
	readonly id: int;
|}
`)

	var notFound []string

	for _, d := range res.Diagnostics {
		if d.Code == diag.CodeKeyFieldNotFound {
			notFound = append(notFound, d.Message)
		}
	}

	assert.Len(t, notFound, 2)
	assert.Equal(t, []string{"id"}, res.Entity("User").KeyNames())
}

func TestRule_RelationKey(t *testing.T) {
	t.Parallel()

	res := analyze(t, `
@entity(key: [id, owner])
record User {|
	readonly id: int;
	readonly owner: Owner;
|}

record Owner {|
	readonly id: int;
|}
`)

	assert.Equal(t, []diag.Code{diag.CodeInvalidKeyField, diag.CodeUnresolvedRelation}, codesOf(res.Diagnostics))
}

func TestRule_KeyInsertion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		entity string
		want   string
	}{
		{name: "bare annotation", entity: "@entity", want: "@entity(key: [id])"},
		{name: "empty parens", entity: "@entity()", want: "@entity(key: [id])"},
		{name: "other arguments", entity: "@entity(unique: [[name]])", want: "@entity(unique: [[name]], key: [id])"},
		{name: "empty list", entity: "@entity(key: [])", want: "@entity(key: [id])"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body := "\nrecord User {|\n\tname: string;\n\treadonly id: int;\n|}\n"
			src := tt.entity + body

			res := analyze(t, src)
			d := findDiagnostic(t, res.Diagnostics, diag.CodeEmptyKey)

			insertion, ok := d.Payload.(*diag.Insertion)
			require.True(t, ok)

			fixed := src[:insertion.Offset] + insertion.Text + src[insertion.Offset:]
			assert.Equal(t, tt.want+body, fixed)
			assert.Empty(t, analyze(t, fixed).Diagnostics)
		})
	}
}

func TestRule_NotReadonlyInsertion(t *testing.T) {
	t.Parallel()

	src := "@entity(key: [id])\nrecord User {|\n\tid: int;\n|}\n"
	res := analyze(t, src)
	d := findDiagnostic(t, res.Diagnostics, diag.CodeKeyFieldNotReadonly)

	insertion, ok := d.Payload.(*diag.Insertion)
	require.True(t, ok)

	fixed := src[:insertion.Offset] + insertion.Text + src[insertion.Offset:]
	assert.Equal(t, "@entity(key: [id])\nrecord User {|\n\treadonly id: int;\n|}\n", fixed)
}

func TestRule_UniqueGroups(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		unique     string
		want       []diag.Code
		wantGroups [][]string
	}{
		{name: "valid", unique: "[[email], [first, last]]", wantGroups: [][]string{{"email"}, {"first", "last"}}},
		{name: "empty group", unique: "[[email], []]", want: []diag.Code{diag.CodeEmptyUniqueGroup}, wantGroups: [][]string{{"email"}}},
		{name: "duplicate in group", unique: "[[email, email]]", want: []diag.Code{diag.CodeDuplicateUniqueField}, wantGroups: [][]string{{"email"}}},
		{name: "unknown field", unique: "[[email, phone]]", want: []diag.Code{diag.CodeUniqueFieldNotFound}, wantGroups: [][]string{{"email"}}},
		{name: "same field in two groups", unique: "[[email], [email, first]]", wantGroups: [][]string{{"email"}, {"email", "first"}}},
		{name: "group not a list", unique: "[email]", want: []diag.Code{diag.CodeInvalidAnnotationArgument}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := analyze(t, `
@entity(key: [id], unique: `+tt.unique+`)
record User {|
	readonly id: int;
	email: string;
	first: string;
	last: string;
|}
`)

			assert.Equal(t, tt.want, codesOf(res.Diagnostics))

			var groups [][]string

			for _, g := range res.Entity("User").UniqueGroups {
				var names []string
				for _, k := range g {
					names = append(names, k.Name)
				}

				groups = append(groups, names)
			}

			assert.Equal(t, tt.wantGroups, groups)
		})
	}
}

func TestRule_AutoIncrement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entity  string
		members string
		want    []diag.Code
	}{
		{
			name:    "int key",
			entity:  "@entity(key: [id])",
			members: "readonly id: int @autoincrement;",
		},
		{
			name:    "not a key",
			entity:  "@entity(key: [id])",
			members: "readonly id: int;\n\tseq: int @autoincrement;",
			want:    []diag.Code{diag.CodeAutoIncrementNotKey},
		},
		{
			name:    "string key",
			entity:  "@entity(key: [code])",
			members: "readonly code: string @autoincrement;",
			want:    []diag.Code{diag.CodeAutoIncrementType},
		},
		{
			name:    "bad start",
			entity:  "@entity(key: [id])",
			members: `readonly id: int @autoincrement(start: "one");`,
			want:    []diag.Code{diag.CodeInvalidAnnotationArgument},
		},
		{
			name:    "on relation",
			entity:  "@entity(key: [id])",
			members: "readonly id: int;\n\tself: User @autoincrement;\n\tother: User @relation;",
			want:    []diag.Code{diag.CodeMisplacedAnnotation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := analyze(t, tt.entity+"\nrecord User {|\n\t"+tt.members+"\n|}\n")

			assert.Equal(t, tt.want, codesOf(res.Diagnostics))
		})
	}
}

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	seen := make(map[diag.Code]string)

	for _, rule := range analysis.DefaultRules() {
		assert.NotEmpty(t, rule.Name)
		assert.NotEmpty(t, rule.Doc)
		require.NotNil(t, rule.Run)

		for _, code := range rule.Codes {
			_, ok := diag.Lookup(code)
			assert.True(t, ok, "rule %s reports unregistered code %s", rule.Name, code)
			assert.NotContains(t, seen, code, "code %s reported by %s and %s", code, seen[code], rule.Name)

			seen[code] = rule.Name
		}
	}
}
