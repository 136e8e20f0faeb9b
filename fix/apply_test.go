package fix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/entcheck/diag"
	"github.com/rlch/entcheck/fix"
)

func TestApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		edits   []fix.TextEdit
		want    string
		wantErr error
	}{
		{
			name:    "insert",
			content: "ab",
			edits:   []fix.TextEdit{{Offset: 1, NewText: "X"}},
			want:    "aXb",
		},
		{
			name:    "remove",
			content: "abc",
			edits:   []fix.TextEdit{{Offset: 1, Length: 1}},
			want:    "ac",
		},
		{
			name:    "offsets refer to the original",
			content: "abcdef",
			edits:   []fix.TextEdit{{Offset: 0, Length: 1, NewText: "AA"}, {Offset: 4, Length: 2, NewText: "Z"}},
			want:    "AAbcdZ",
		},
		{
			name:    "removal and insertion at one offset",
			content: "abcd",
			edits:   []fix.TextEdit{{Offset: 1, NewText: "X"}, {Offset: 1, Length: 2}},
			want:    "aXd",
		},
		{
			name:    "insertions at one offset keep order",
			content: "ab",
			edits:   []fix.TextEdit{{Offset: 1, NewText: "1"}, {Offset: 1, NewText: "2"}},
			want:    "a12b",
		},
		{
			name:    "out of range",
			content: "ab",
			edits:   []fix.TextEdit{{Offset: 1, Length: 5}},
			wantErr: fix.ErrEditOutOfRange,
		},
		{
			name:    "negative offset",
			content: "ab",
			edits:   []fix.TextEdit{{Offset: -1, NewText: "x"}},
			wantErr: fix.ErrEditOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := fix.Apply([]byte(tt.content), tt.edits)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestApplyAll(t *testing.T) {
	t.Parallel()

	src := user("nick: string?;", "tags: string[];", "name: string @display;")
	files := map[string][]byte{path: []byte(src)}

	out, report, err := fix.ApplyAll(files, analyze(t, src))
	require.NoError(t, err)

	assert.Len(t, report.Applied, 3)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, []string{path}, report.Changed)
	assert.Equal(t, user("nick: string;", "tags: string;", "name: string;"), string(out[path]))
	assert.Empty(t, analyze(t, string(out[path])))
	assert.Equal(t, src, string(files[path]), "input is not modified")
}

func TestApplyAll_SkipsOverlaps(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{path: []byte("abcdef")}
	ds := []diag.Diagnostic{
		{Code: diag.CodeRestField, Payload: &diag.Removal{Path: path, Offset: 1, Length: 3}},
		{Code: diag.CodeDefaultValue, Payload: &diag.Removal{Path: path, Offset: 2, Length: 3}},
		{Code: diag.CodeUnknownAnnotation, Payload: &diag.Removal{Path: "other.ent", Offset: 0, Length: 1}},
		{Code: diag.CodeManyToMany},
	}

	out, report, err := fix.ApplyAll(files, ds)
	require.NoError(t, err)

	assert.Equal(t, "aef", string(out[path]))
	require.Len(t, report.Applied, 1)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, diag.CodeDefaultValue, report.Skipped[0].Code)
	assert.Contains(t, report.Skipped[1].Reason, "not loaded")
}
