package analysis_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/analysis"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  string
		want analysis.Classification
	}{
		{typ: "int", want: analysis.Classification{Class: analysis.Scalar{Kind: analysis.KindInt}}},
		{typ: "string", want: analysis.Classification{Class: analysis.Scalar{Kind: analysis.KindString}}},
		{typ: "boolean", want: analysis.Classification{Class: analysis.Scalar{Kind: analysis.KindBoolean}}},
		{typ: "decimal", want: analysis.Classification{Class: analysis.Scalar{Kind: analysis.KindDecimal}}},
		{typ: "float", want: analysis.Classification{Class: analysis.Scalar{Kind: analysis.KindFloat}}},
		{typ: "byte[]", want: analysis.Classification{Class: analysis.Scalar{Kind: analysis.KindBytes}}},
		{typ: "int?", want: analysis.Classification{Class: analysis.Scalar{Kind: analysis.KindInt}, Optional: true}},
		{typ: "int[]", want: analysis.Classification{Class: analysis.Scalar{Kind: analysis.KindInt}, Array: true}},
		{typ: "int[]?", want: analysis.Classification{Class: analysis.Scalar{Kind: analysis.KindInt}, Optional: true, Array: true}},
		{typ: "time:Date", want: analysis.Classification{Class: analysis.Temporal{Kind: analysis.TemporalDate}}},
		{typ: "time:TimeOfDay", want: analysis.Classification{Class: analysis.Temporal{Kind: analysis.TemporalTimeOfDay}}},
		{typ: "time:Utc", want: analysis.Classification{Class: analysis.Temporal{Kind: analysis.TemporalUtc}}},
		{typ: "time:Civil", want: analysis.Classification{Class: analysis.Temporal{Kind: analysis.TemporalCivil}}},
		{typ: "Other", want: analysis.Classification{Class: analysis.Relation{Target: "Other", Known: true}}},
		{typ: "Other?", want: analysis.Classification{Class: analysis.Relation{Target: "Other", Known: true}, Optional: true}},
		{typ: "Other[]", want: analysis.Classification{Class: analysis.Relation{Target: "Other", Known: true}, Array: true}},
		{typ: "Missing", want: analysis.Classification{Class: analysis.Relation{Target: "Missing"}}},
		{
			typ: "Other[]?",
			want: analysis.Classification{
				Class:    analysis.Unsupported{Reason: "optional relation arrays are not supported"},
				Optional: true,
				Array:    true,
			},
		},
		{
			typ: "byte[]?",
			want: analysis.Classification{
				Class:    analysis.Unsupported{Reason: "optional byte arrays are not supported"},
				Optional: true,
				Array:    true,
			},
		},
		{typ: "byte", want: analysis.Classification{Class: analysis.Unsupported{Reason: "byte is only supported as byte[]"}}},
		{typ: "int | string", want: analysis.Classification{Class: analysis.Unsupported{Reason: "union types are not supported"}}},
		{
			typ:  "record { a: int; }",
			want: analysis.Classification{Class: analysis.Unsupported{Reason: "inline record types are not supported"}},
		},
		{
			typ:  "time:Instant",
			want: analysis.Classification{Class: analysis.Unsupported{Reason: "unknown qualified type time:Instant"}},
		},
		{
			typ:  "int[][]",
			want: analysis.Classification{Class: analysis.Unsupported{Reason: "nested arrays are not supported"}, Array: true},
		},
		{
			typ: "int?[]",
			want: analysis.Classification{
				Class: analysis.Unsupported{Reason: "arrays of optional values are not supported"},
				Array: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			t.Parallel()

			file, err := entcheck.Parse("test.ent", []byte("record T {|\n\tf: "+tt.typ+";\n|}\n\nrecord Other {|\n|}\n"))
			require.NoError(t, err)

			field := file.Records[0].Members[0].Field
			require.NotNil(t, field)

			got := analysis.Classify(field.Type, analysis.NewTypeIndex(file))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify(%s) mismatch (-want +got):\n%s", tt.typ, diff)
			}
		})
	}
}

func TestTypeName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "int", analysis.TypeName(analysis.Scalar{Kind: analysis.KindInt}))
	require.Equal(t, "byte[]", analysis.TypeName(analysis.Scalar{Kind: analysis.KindBytes}))
	require.Equal(t, "time:Utc", analysis.TypeName(analysis.Temporal{Kind: analysis.TemporalUtc}))
	require.Equal(t, "User", analysis.TypeName(analysis.Relation{Target: "User"}))
	require.Empty(t, analysis.TypeName(analysis.Unsupported{Reason: "x"}))
}
