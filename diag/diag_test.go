package diag_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rlch/entcheck/diag"
)

func loc(path string, offset int) diag.Location {
	return diag.Location{
		Path:  path,
		Start: diag.Position{Offset: offset, Line: 1, Column: offset + 1},
		End:   diag.Position{Offset: offset + 1, Line: 1, Column: offset + 2},
	}
}

func TestSeverity(t *testing.T) {
	t.Parallel()

	for _, sev := range []diag.Severity{diag.SeverityError, diag.SeverityWarning, diag.SeverityInformation, diag.SeverityHint} {
		got, ok := diag.ParseSeverity(sev.String())
		require.True(t, ok, sev.String())
		assert.Equal(t, sev, got)
	}

	got, ok := diag.ParseSeverity("INFO")
	assert.True(t, ok)
	assert.Equal(t, diag.SeverityInformation, got)

	_, ok = diag.ParseSeverity("fatal")
	assert.False(t, ok)
	assert.Equal(t, "unknown", diag.Severity(0).String())
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	codes := diag.Codes()
	require.NotEmpty(t, codes)

	for _, code := range codes {
		info, ok := diag.Lookup(code)
		require.True(t, ok, code)

		assert.NotEqual(t, "unknown", info.Category.String(), code)
		assert.NotEmpty(t, info.Doc, code)
		assert.Equal(t, info.Severity, code.DefaultSeverity(), code)
		assert.Equal(t, info.Payload != diag.PayloadNone, code.Fixable(), code)

		p := diag.NewPayload(diag.PayloadFor(code))
		if info.Payload == diag.PayloadNone {
			assert.Nil(t, p, code)
		} else {
			require.NotNil(t, p, code)
			assert.Equal(t, info.Payload, p.Kind(), code)
		}
	}

	_, ok := diag.Lookup("no-such-code")
	assert.False(t, ok)
	assert.Equal(t, diag.SeverityError, diag.Code("no-such-code").DefaultSeverity())
	assert.Equal(t, diag.SeverityWarning, diag.CodeRelationReferenceNotKey.DefaultSeverity())
}

func TestSort(t *testing.T) {
	t.Parallel()

	ds := []diag.Diagnostic{
		diag.New(diag.CodeOptionalField, loc("b.ent", 3), nil, "b"),
		diag.New(diag.CodeRestField, loc("a.ent", 9), nil, "a9"),
		diag.New(diag.CodeDefaultValue, loc("a.ent", 2), nil, "a2 default"),
		diag.New(diag.CodeArrayField, loc("a.ent", 2), nil, "a2 array"),
	}

	diag.Sort(ds)

	var got []string
	for _, d := range ds {
		got = append(got, d.Message)
	}

	want := []string{"a2 array", "a2 default", "a9", "b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sort() mismatch (-want +got):\n%s", diff)
	}

	groups := diag.ByPath(ds)
	assert.Len(t, groups["a.ent"], 3)
	assert.Len(t, groups["b.ent"], 1)
}

func TestHasErrors(t *testing.T) {
	t.Parallel()

	warn := diag.New(diag.CodeRelationReferenceNotKey, loc("a.ent", 0), nil, "w")
	assert.False(t, diag.HasErrors([]diag.Diagnostic{warn}))
	assert.False(t, diag.HasErrors(nil))

	err := diag.New(diag.CodeOptionalField, loc("a.ent", 0), nil, "e")
	assert.True(t, diag.HasErrors([]diag.Diagnostic{warn, err}))
}

func TestDiagnostic_String(t *testing.T) {
	t.Parallel()

	d := diag.New(diag.CodeOptionalField, loc("user.ent", 4), nil, "field %s is optional", "nick")
	assert.Equal(t, "user.ent:1:5: error: field nick is optional [optional-field]", d.String())
}

func TestMissingRelation_Stub(t *testing.T) {
	t.Parallel()

	m := &diag.MissingRelation{Indent: "\t", FieldName: "posts", FieldType: "Post[]"}
	assert.Equal(t, "\tposts: Post[];\n", m.Stub())
}

func TestSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()

	ds := []diag.Diagnostic{
		diag.New(diag.CodeParseError, loc("a.ent", 0), nil, "unexpected"),
		diag.New(diag.CodeOptionalField, loc("a.ent", 1), &diag.Removal{Path: "a.ent", Offset: 10, Length: 1, What: "?"}, "optional"),
		diag.New(diag.CodeKeyFieldNotReadonly, loc("a.ent", 2), &diag.Insertion{Path: "a.ent", Offset: 4, Text: "readonly "}, "readonly"),
		diag.New(diag.CodeReferencedTypeNotFound, loc("a.ent", 3),
			&diag.TypeReplacement{Path: "a.ent", Offset: 5, Length: 4, Current: "Usr", Candidates: []string{"User"}}, "not found"),
		diag.New(diag.CodeEntityNotClosed, loc("a.ent", 4),
			&diag.Closure{Path: "a.ent", OpenOffset: 1, OpenLength: 1, CloseOffset: 9, CloseLength: 1}, "open"),
		diag.New(diag.CodeMissingRelationField, loc("a.ent", 5),
			&diag.MissingRelation{Path: "b.ent", Offset: 7, Target: "B", FieldName: "a", FieldType: "A", Indent: "\t"}, "missing"),
		diag.New(diag.CodeArraySideOwner, loc("a.ent", 6),
			&diag.AnnotationMove{FromPath: "a.ent", FromOffset: 1, FromLength: 2, ToPath: "b.ent", ToOffset: 3, Annotation: "@relation", ToField: "a"}, "move"),
		diag.New(diag.CodeForeignKeyConflict, loc("a.ent", 7), &diag.Rewrite{Path: "a.ent", Offset: 1, Length: 2, Text: "x"}, "rewrite"),
	}
	ds[1].Entity = "A"

	var buf bytes.Buffer
	require.NoError(t, diag.WriteSnapshot(&buf, ds))

	got, err := diag.ReadSnapshot(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(ds, got); diff != "" {
		t.Errorf("ReadSnapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshot_Errors(t *testing.T) {
	t.Parallel()

	t.Run("version", func(t *testing.T) {
		t.Parallel()

		raw, err := msgpack.Marshal(map[string]any{"schema": 99, "diagnostics": []any{}})
		require.NoError(t, err)

		_, err = diag.ReadSnapshot(bytes.NewReader(raw))
		require.ErrorIs(t, err, diag.ErrSnapshotVersion)
	})

	t.Run("payload on explanation-only code", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		d := diag.New(diag.CodeParseError, loc("a.ent", 0), &diag.Removal{Path: "a.ent"}, "x")
		require.NoError(t, diag.WriteSnapshot(&buf, []diag.Diagnostic{d}))

		_, err := diag.ReadSnapshot(&buf)
		require.ErrorIs(t, err, diag.ErrPayloadMismatch)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()

		_, err := diag.ReadSnapshot(bytes.NewReader([]byte{0xc1}))
		require.Error(t, err)
	})
}

func TestDiagnostic_MarshalJSON(t *testing.T) {
	t.Parallel()

	d := diag.New(diag.CodeOptionalField, loc("a.ent", 1), &diag.Removal{Path: "a.ent", Offset: 10, Length: 1, What: "?"}, "optional")
	d.Entity = "User"

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "optional-field", got["code"])
	assert.Equal(t, "error", got["severity"])
	assert.Equal(t, "structural", got["category"])
	assert.Equal(t, "User", got["entity"])
	assert.Equal(t, "removal", got["payloadKind"])

	payload, ok := got["payload"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 10, payload["offset"], 0)

	plain := diag.New(diag.CodeParseError, loc("a.ent", 0), nil, "x")
	raw, err = json.Marshal(plain)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "payloadKind")
	assert.NotContains(t, string(raw), `"entity"`)
}
