package entcheck_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/entcheck"
)

// astOpts compares the shape of a parsed file, ignoring positions.
var astOpts = cmp.Options{
	cmpopts.IgnoreTypes(entcheck.Span{}, &entcheck.Span{}),
	cmpopts.IgnoreUnexported(entcheck.Record{}),
	cmpopts.IgnoreFields(entcheck.File{}, "Path", "Source"),
	cmpopts.EquateEmpty(),
}

func ident(name string) entcheck.Ident {
	return entcheck.Ident{Name: name}
}

func identPtr(name string) *entcheck.Ident {
	id := ident(name)

	return &id
}

func named(name string, suffixes ...entcheck.SuffixKind) *entcheck.TypeTerm {
	term := &entcheck.TypeTerm{Name: identPtr(name)}
	for _, s := range suffixes {
		term.Suffixes = append(term.Suffixes, entcheck.Suffix{Kind: s})
	}

	return term
}

func typeOf(terms ...*entcheck.TypeTerm) *entcheck.TypeExpr {
	return &entcheck.TypeExpr{Terms: terms}
}

func field(name string, typ *entcheck.TypeExpr) *entcheck.Member {
	return &entcheck.Member{Field: &entcheck.Field{Name: ident(name), Type: typ}}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected *entcheck.File
	}{
		{
			name:     "empty file",
			input:    "",
			expected: &entcheck.File{},
		},
		{
			name:  "open record",
			input: "record A { x: int; }",
			expected: &entcheck.File{
				Records: []*entcheck.Record{{
					Name:    ident("A"),
					Members: []*entcheck.Member{field("x", typeOf(named("int")))},
				}},
			},
		},
		{
			name:  "closed record with suffixes",
			input: "record A {| tags: string[]; nick: string?; all: A[]?; |}",
			expected: &entcheck.File{
				Records: []*entcheck.Record{{
					Name:   ident("A"),
					Closed: true,
					Members: []*entcheck.Member{
						field("tags", typeOf(named("string", entcheck.SuffixArray))),
						field("nick", typeOf(named("string", entcheck.SuffixOptional))),
						field("all", typeOf(named("A", entcheck.SuffixArray, entcheck.SuffixOptional))),
					},
				}},
			},
		},
		{
			name:  "module declaration and qualified type",
			input: "module shop;\nrecord Order {| at: time:Utc; |}",
			expected: &entcheck.File{
				Module: identPtr("shop"),
				Records: []*entcheck.Record{{
					Name:   ident("Order"),
					Closed: true,
					Members: []*entcheck.Member{
						field("at", typeOf(&entcheck.TypeTerm{Module: identPtr("time"), Name: identPtr("Utc")})),
					},
				}},
			},
		},
		{
			name:  "union",
			input: "record A { v: int | string; }",
			expected: &entcheck.File{
				Records: []*entcheck.Record{{
					Name:    ident("A"),
					Members: []*entcheck.Member{field("v", typeOf(named("int"), named("string")))},
				}},
			},
		},
		{
			name:  "include and rest",
			input: "record A { *Base; ...; }\nrecord B { ...: string; }",
			expected: &entcheck.File{
				Records: []*entcheck.Record{
					{
						Name: ident("A"),
						Members: []*entcheck.Member{
							{Include: &entcheck.Include{Name: ident("Base")}},
							{Rest: &entcheck.Rest{}},
						},
					},
					{
						Name:    ident("B"),
						Members: []*entcheck.Member{{Rest: &entcheck.Rest{Type: typeOf(named("string"))}}},
					},
				},
			},
		},
		{
			name:  "inline record",
			input: "record A { addr: record {| city: string; |}; }",
			expected: &entcheck.File{
				Records: []*entcheck.Record{{
					Name: ident("A"),
					Members: []*entcheck.Member{
						field("addr", typeOf(&entcheck.TypeTerm{Record: &entcheck.InlineRecord{
							Closed:  true,
							Members: []*entcheck.Member{field("city", typeOf(named("string")))},
						}})),
					},
				}},
			},
		},
		{
			name:  "annotations",
			input: "@entity(key: [id], unique: [[a, b]])\nrecord A {| id: int @autoincrement(start: -1); |}",
			expected: &entcheck.File{
				Records: []*entcheck.Record{{
					Annotations: []*entcheck.Annotation{{
						Name:   ident("entity"),
						Parens: true,
						Args: []*entcheck.Arg{
							{
								Name: ident("key"),
								Value: &entcheck.Value{Kind: entcheck.ValueList, Text: "[id]", Items: []*entcheck.Value{
									{Kind: entcheck.ValueIdent, Text: "id"},
								}},
							},
							{
								Name: ident("unique"),
								Value: &entcheck.Value{Kind: entcheck.ValueList, Text: "[[a, b]]", Items: []*entcheck.Value{
									{Kind: entcheck.ValueList, Text: "[a, b]", Items: []*entcheck.Value{
										{Kind: entcheck.ValueIdent, Text: "a"},
										{Kind: entcheck.ValueIdent, Text: "b"},
									}},
								}},
							},
						},
					}},
					Name:   ident("A"),
					Closed: true,
					Members: []*entcheck.Member{{Field: &entcheck.Field{
						Name: ident("id"),
						Type: typeOf(named("int")),
						Annotations: []*entcheck.Annotation{{
							Name:   ident("autoincrement"),
							Parens: true,
							Args: []*entcheck.Arg{{
								Name:  ident("start"),
								Value: &entcheck.Value{Kind: entcheck.ValueInt, Text: "-1"},
							}},
						}},
					}}},
				}},
			},
		},
		{
			name:  "defaults",
			input: `record A { n: float = 1.5; s: string = "x"; b: bool = true; }`,
			expected: &entcheck.File{
				Records: []*entcheck.Record{{
					Name: ident("A"),
					Members: []*entcheck.Member{
						{Field: &entcheck.Field{Name: ident("n"), Type: typeOf(named("float")),
							Default: &entcheck.Value{Kind: entcheck.ValueFloat, Text: "1.5"}}},
						{Field: &entcheck.Field{Name: ident("s"), Type: typeOf(named("string")),
							Default: &entcheck.Value{Kind: entcheck.ValueString, Text: `"x"`}}},
						{Field: &entcheck.Field{Name: ident("b"), Type: typeOf(named("bool")),
							Default: &entcheck.Value{Kind: entcheck.ValueIdent, Text: "true"}}},
					},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := entcheck.Parse("test.ent", []byte(tt.input))
			require.NoError(t, err)

			if diff := cmp.Diff(tt.expected, got, astOpts); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Readonly(t *testing.T) {
	t.Parallel()

	f, err := entcheck.Parse("test.ent", []byte("record A {\n\treadonly id: int;\n\tname: string;\n}"))
	require.NoError(t, err)
	require.Len(t, f.Records[0].Members, 2)

	id := f.Records[0].Members[0].Field
	require.NotNil(t, id.Readonly)
	assert.Equal(t, 2, id.Readonly.Start.Line)
	assert.Equal(t, 2, id.Readonly.Start.Column)
	assert.Nil(t, f.Records[0].Members[1].Field.Readonly)
}

func TestParse_Spans(t *testing.T) {
	t.Parallel()

	src := "@entity(key: [id])\nrecord User {|\n\tnick: string? = \"x\";\n|}\n"

	f, err := entcheck.Parse("user.ent", []byte(src))
	require.NoError(t, err)

	rec := f.Records[0]
	slice := func(s entcheck.Span) string { return src[s.Start.Offset:s.End.Offset] }

	assert.Equal(t, src[:len(src)-1], slice(rec.Span()))
	assert.Equal(t, "record", slice(rec.Keyword))
	assert.Equal(t, "User", slice(rec.Name.Span))
	assert.Equal(t, "{|", slice(rec.Open))
	assert.Equal(t, "|}", slice(rec.Close))
	assert.Equal(t, "@entity(key: [id])", slice(rec.Annotations[0].Span))
	assert.Equal(t, "key: [id]", slice(rec.Annotations[0].Args[0].Span))

	nick := rec.Members[0].Field
	assert.Equal(t, `nick: string? = "x";`, slice(nick.Span))
	assert.Equal(t, "string?", slice(nick.Type.Span))
	assert.Equal(t, "?", slice(nick.Type.Terms[0].Suffixes[0].Span))
	assert.Equal(t, `= "x"`, slice(nick.DefaultSpan))
	assert.Equal(t, 1, nick.Type.Terms[0].Suffixes[0].Span.Len())

	assert.Equal(t, "user.ent", nick.Name.Span.Start.Filename)
	assert.Equal(t, 3, nick.Name.Span.Start.Line)
	assert.Equal(t, 2, nick.Name.Span.Start.Column)
	assert.False(t, nick.Name.Span.IsZero())
	assert.True(t, entcheck.Span{}.IsZero())
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		line    int
		column  int
		message string
	}{
		{"missing semicolon", "record A { x: int }", 1, 19, `unexpected "}", expected ";"`},
		{"missing type", "record A { x: ; }", 1, 15, `unexpected ";", expected type`},
		{"missing brace", "record A x", 1, 10, `unexpected "x", expected "{|" or "{"`},
		{"unclosed record", "record A {| x: int;", 1, 20, `unexpected end of file, expected "|}" or "}"`},
		{"illegal character", "record A { #x: int; }", 1, 12, `unexpected illegal character "#", expected "|}" or "}"`},
		{"unterminated string", "record A { s: string = \"abc\n}", 1, 24, "unexpected unterminated string, expected value"},
		{"stray token", "x", 1, 1, `unexpected "x", expected "record"`},
		{"missing module name", "module ;", 1, 8, `unexpected ";", expected name`},
		{"bad negative", "record A { n: int = -x; }", 1, 22, `unexpected "x", expected integer or float`},
		{"missing colon", "record A { x int; }", 1, 14, `unexpected "int", expected ":"`},
		{"mismatched brace", "record A {| x: int; }", 1, 21, `unexpected "}", expected "|}"`},
		{"mismatched inline brace", "record A { a: record { x: int; |}; }", 1, 32, `unexpected "|}", expected "}"`},
		{"next record inside body", "record A { x: int;\nrecord B {}", 2, 1, `unexpected "record", expected "|}" or "}"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := entcheck.Parse("test.ent", []byte(tt.input))
			require.Error(t, err)

			var list entcheck.ErrorList
			require.ErrorAs(t, err, &list)
			require.NotEmpty(t, list)

			first := list[0]
			assert.Equal(t, tt.line, first.Pos.Line)
			assert.Equal(t, tt.column, first.Pos.Column)
			assert.Equal(t, tt.message, first.Message())
		})
	}
}

func TestParse_Recovery(t *testing.T) {
	t.Parallel()

	src := `record A {| x: int |}

@entity(key: [id])
record B {|
	id: int;
|}

record C { y }

record D { z: string; }
`

	f, err := entcheck.Parse("test.ent", []byte(src))
	require.Error(t, err)

	var list entcheck.ErrorList
	require.ErrorAs(t, err, &list)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Pos.Line)
	assert.Equal(t, 8, list[1].Pos.Line)

	assert.True(t, strings.HasPrefix(err.Error(), "test.ent:1:20: "))
	assert.True(t, strings.HasSuffix(err.Error(), "(and 1 more errors)"))

	var syntax *entcheck.SyntaxError
	require.True(t, errors.As(err, &syntax))
	assert.Equal(t, list[0], syntax)

	names := make([]string, len(f.Records))
	broken := make([]bool, len(f.Records))

	for i, r := range f.Records {
		names[i] = r.Name.Name
		broken[i] = r.Broken
	}

	assert.Equal(t, []string{"A", "B", "C", "D"}, names)
	assert.Equal(t, []bool{true, false, true, false}, broken)

	// The annotation before B survives the resync.
	require.NotNil(t, f.Records[1].Annotation("entity"))
	assert.True(t, f.Records[1].Close.End.Line > 0)
	assert.True(t, f.Records[0].Close.IsZero())
}

func TestParse_BrokenRecordKeepsCompleteMembers(t *testing.T) {
	t.Parallel()

	src := "record A { x: int; y: ; z: int; }\nrecord B { }"

	f, err := entcheck.Parse("test.ent", []byte(src))

	var list entcheck.ErrorList
	require.ErrorAs(t, err, &list)
	require.Len(t, list, 1)
	assert.Equal(t, `unexpected ";", expected type`, list[0].Message())

	require.Len(t, f.Records, 2)

	a := f.Records[0]
	assert.True(t, a.Broken)
	assert.True(t, a.Close.IsZero())
	require.Len(t, a.Members, 1)
	assert.Equal(t, "x", a.Members[0].Field.Name.Name)
	assert.Equal(t, "record A { x: int; y:", src[a.Span().Start.Offset:a.Span().End.Offset])

	assert.False(t, f.Records[1].Broken)
}

func TestParse_TrailingTokensAfterRecord(t *testing.T) {
	t.Parallel()

	f, err := entcheck.Parse("test.ent", []byte("record A { x: int; } y"))

	var list entcheck.ErrorList
	require.ErrorAs(t, err, &list)
	require.Len(t, list, 1)
	assert.Equal(t, `unexpected "y"`, list[0].Message())
	assert.Equal(t, 22, list[0].Pos.Column)

	require.Len(t, f.Records, 1)
	assert.False(t, f.Records[0].Broken)
	assert.Equal(t, "}", string(f.Source[f.Records[0].Close.Start.Offset:f.Records[0].Close.End.Offset]))
}

func TestParse_Comments(t *testing.T) {
	t.Parallel()

	src := `// file header

// user accounts
record User {| // closed
	// primary key
	id: int; // generated
	// more to come
|} // end
`

	f, err := entcheck.Parse("test.ent", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"// file header"}, f.LeadingComments)

	rec := f.Records[0]
	assert.Equal(t, []string{"// user accounts"}, rec.LeadingComments)
	assert.Equal(t, "// end", rec.TrailingComment)
	assert.Equal(t, []string{"// more to come"}, rec.DanglingComments)

	id := rec.Members[0]
	assert.Equal(t, []string{"// closed", "// primary key"}, id.LeadingComments)
	assert.Equal(t, "// generated", id.TrailingComment)
}

func TestTypeExpr_String(t *testing.T) {
	t.Parallel()

	src := `record A {
	a: time:Utc[]?;
	b: int | string;
	c: record { x: int; *B; ...; };
	d: record {| ...: string; |}[];
}`

	f, err := entcheck.Parse("test.ent", []byte(src))
	require.NoError(t, err)

	want := []string{
		"time:Utc[]?",
		"int | string",
		"record { x: int; *B; ...; }",
		"record {| ...: string; |}[]",
	}

	for i, m := range f.Records[0].Members {
		assert.Equal(t, want[i], m.Field.Type.String())
	}

	var nilType *entcheck.TypeExpr
	assert.Empty(t, nilType.String())
}

func TestAnnotation_Arg(t *testing.T) {
	t.Parallel()

	f, err := entcheck.Parse("test.ent", []byte("record A { b: B @relation(keys: [b_id], references: [id]) @x; }"))
	require.NoError(t, err)

	fld := f.Records[0].Members[0].Field
	rel := fld.Annotation("relation")
	require.NotNil(t, rel)
	assert.Equal(t, "[b_id]", rel.Arg("keys").Value.String())
	assert.Equal(t, "[id]", rel.Arg("references").Value.String())
	assert.Nil(t, rel.Arg("missing"))

	x := fld.Annotation("x")
	require.NotNil(t, x)
	assert.False(t, x.Parens)
	assert.Nil(t, fld.Annotation("y"))
}
