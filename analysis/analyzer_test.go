package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/analysis"
	"github.com/rlch/entcheck/diag"
)

func analyze(t *testing.T, src string) *analysis.Result {
	t.Helper()

	return analysis.NewAnalyzer(nil, nil).Analyze([]analysis.Source{{Path: "test.ent", Data: []byte(src)}})
}

func analyzeFiles(t *testing.T, files map[string]string) *analysis.Result {
	t.Helper()

	sources := make([]analysis.Source, 0, len(files))
	for path, src := range files {
		sources = append(sources, analysis.Source{Path: path, Data: []byte(src)})
	}

	return analysis.NewAnalyzer(nil, nil).Analyze(sources)
}

func TestAnalyzer_Analyze(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		input        string
		wantEntities []string
		wantCodes    []diag.Code
	}{
		{
			name: "single entity",
			input: `
@entity(key: [id])
record User {|
	readonly id: int;
	name: string;
|}
`,
			wantEntities: []string{"User"},
		},
		{
			name: "plain records are not entities",
			input: `
record Address {|
	street: string;
|}

@entity(key: [id])
record User {|
	readonly id: int;
|}
`,
			wantEntities: []string{"User"},
		},
		{
			name: "related entities",
			input: `
@entity(key: [id])
record Author {|
	readonly id: int;
	books: Book[];
|}

@entity(key: [isbn])
record Book {|
	readonly isbn: string;
	author: Author @relation;
|}
`,
			wantEntities: []string{"Author", "Book"},
		},
		{
			name: "parse error keeps the next record",
			input: `
@entity(key: [id])
record Broken {|
	readonly id: ;
|}

@entity(key: [id])
record User {|
	readonly id: int;
|}
`,
			wantEntities: []string{"User"},
			wantCodes:    []diag.Code{diag.CodeParseError},
		},
		{
			name: "duplicate record",
			input: `
@entity(key: [id])
record User {|
	readonly id: int;
|}

@entity(key: [id])
record User {|
	readonly id: int;
|}
`,
			wantEntities: []string{"User"},
			wantCodes:    []diag.Code{diag.CodeDuplicateEntity},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := analyze(t, tt.input)

			assert.Equal(t, tt.wantEntities, res.EntityNames())
			assert.Equal(t, tt.wantCodes, codesOf(res.Diagnostics))
		})
	}
}

func TestAnalyzer_RelationToBrokenRecord(t *testing.T) {
	t.Parallel()

	res := analyze(t, `
@entity(key: [id])
record Order {|
	readonly id: int;
	customer: Customer @relation;
|}

@entity(key: [id])
record Customer {|
	readonly id: int
	orders: Order[];
|}
`)

	require.Equal(t, []diag.Code{diag.CodeParseError}, codesOf(res.Diagnostics))

	customer := res.Entity("Order").Field("customer")
	require.NotNil(t, customer)
	assert.False(t, customer.AttachPoint)
}

func TestAnalyzer_Files(t *testing.T) {
	t.Parallel()

	res := analyzeFiles(t, map[string]string{
		"b.ent": "@entity(key: [id])\nrecord B {|\n\treadonly id: int;\n\ta: A;\n|}\n",
		"a.ent": "@entity(key: [id])\nrecord A {|\n\treadonly id: int;\n\tb: B @relation;\n|}\n",
	})

	require.Len(t, res.Files, 2)
	assert.Equal(t, "a.ent", res.Files[0].Path)
	assert.Equal(t, "b.ent", res.Files[1].Path)
	assert.NotNil(t, res.File("b.ent").File)
	assert.True(t, res.Types.Has("A"))
	assert.Empty(t, res.Diagnostics)

	link := res.Entity("B").Field("a").Link
	require.NotNil(t, link)
	assert.Equal(t, analysis.FieldRef{Entity: "A", Field: "b"}, link.Partner)
}

func TestAnalyzer_DuplicateAcrossFiles(t *testing.T) {
	t.Parallel()

	res := analyzeFiles(t, map[string]string{
		"a.ent": "@entity(key: [id])\nrecord User {|\n\treadonly id: int;\n|}\n",
		"b.ent": "@entity(key: [id])\nrecord User {|\n\treadonly id: int;\n|}\n",
	})

	require.Equal(t, []diag.Code{diag.CodeDuplicateEntity}, codesOf(res.Diagnostics))
	assert.Equal(t, "b.ent", res.Diagnostics[0].Location.Path)
	assert.Contains(t, res.Diagnostics[0].Message, "a.ent")
	assert.Equal(t, "a.ent", res.Entity("User").Path)
}

func TestAnalyzer_Config(t *testing.T) {
	t.Parallel()

	src := `
@entity(key: [id])
record User {|
	readonly id: int;
	nick: string?;
	name: string @display;
|}
`

	tests := []struct {
		name  string
		cfg   *entcheck.Config
		want  []diag.Code
		check func(t *testing.T, ds []diag.Diagnostic)
	}{
		{
			name: "defaults",
			want: []diag.Code{diag.CodeOptionalField, diag.CodeUnknownAnnotation},
		},
		{
			name: "disabled code",
			cfg:  &entcheck.Config{Disable: []string{"unknown-annotation"}},
			want: []diag.Code{diag.CodeOptionalField},
		},
		{
			name: "severity override",
			cfg:  &entcheck.Config{Severity: map[string]string{"unknown-annotation": "hint"}},
			want: []diag.Code{diag.CodeOptionalField, diag.CodeUnknownAnnotation},
			check: func(t *testing.T, ds []diag.Diagnostic) {
				t.Helper()
				assert.Equal(t, diag.SeverityError, ds[0].Severity)
				assert.Equal(t, diag.SeverityHint, ds[1].Severity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := analysis.NewAnalyzer(nil, tt.cfg).Analyze([]analysis.Source{{Path: "user.ent", Data: []byte(src)}})

			assert.Equal(t, tt.want, codesOf(res.Diagnostics))

			if tt.check != nil {
				tt.check(t, res.Diagnostics)
			}
		})
	}
}
