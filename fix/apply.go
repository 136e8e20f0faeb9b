package fix

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/rlch/entcheck/diag"
)

// ErrEditOutOfRange is returned when an edit does not fit the content.
var ErrEditOutOfRange = errors.New("edit out of range")

// Apply applies edits to content. Offsets refer to the original content;
// edits are applied from the end of the file backwards so earlier offsets
// stay valid. Edits are applied verbatim and must not overlap.
func Apply(content []byte, edits []TextEdit) ([]byte, error) {
	sorted := slices.Clone(edits)
	slices.Reverse(sorted)
	sortEdits(sorted)

	out := slices.Clone(content)

	for _, e := range sorted {
		if e.Offset < 0 || e.Length < 0 || e.End() > len(content) {
			return nil, fmt.Errorf("%w: %s:%d+%d (size %d)", ErrEditOutOfRange, e.Path, e.Offset, e.Length, len(content))
		}

		suffix := slices.Clone(out[e.End():])
		out = append(append(out[:e.Offset], e.NewText...), suffix...)
	}

	return out, nil
}

// sortEdits orders edits by descending offset. At equal offsets the
// longer edit goes first, so a removal runs before an insertion at its
// start and the insertion survives. Apply reverses the input first so
// insertions at one offset keep their given order in the output.
func sortEdits(edits []TextEdit) {
	slices.SortStableFunc(edits, func(a, b TextEdit) int {
		return cmp.Or(cmp.Compare(b.Offset, a.Offset), cmp.Compare(b.Length, a.Length))
	})
}

// Applied records a fix ApplyAll applied.
type Applied struct {
	Code  diag.Code
	Title string
	Paths []string
}

// Skipped records a diagnostic whose fix ApplyAll did not apply.
type Skipped struct {
	Code   diag.Code
	Title  string
	Reason string
}

// Report summarizes an ApplyAll run.
type Report struct {
	Applied []Applied
	Skipped []Skipped
	// Changed lists the modified paths, sorted.
	Changed []string
}

// ApplyAll applies the preferred fix of every diagnostic to files, which
// maps paths to content. Diagnostics are visited in order; a fix whose
// edits overlap edits already taken, or that touches a file not in files,
// is skipped. Only changed files are returned.
func ApplyAll(files map[string][]byte, ds []diag.Diagnostic) (map[string][]byte, *Report, error) {
	report := &Report{}
	taken := make(map[string][]TextEdit)

	for _, d := range ds {
		fixes := For(d)
		if len(fixes) == 0 {
			continue
		}

		f := fixes[0]

		if reason := rejectFix(files, taken, f); reason != "" {
			report.Skipped = append(report.Skipped, Skipped{Code: d.Code, Title: f.Title, Reason: reason})

			continue
		}

		for _, e := range f.Edits {
			taken[e.Path] = append(taken[e.Path], e)
		}

		report.Applied = append(report.Applied, Applied{Code: d.Code, Title: f.Title, Paths: f.Paths()})
	}

	out := make(map[string][]byte, len(taken))

	for path, edits := range taken {
		content, err := Apply(files[path], edits)
		if err != nil {
			return nil, report, err
		}

		out[path] = content
		report.Changed = append(report.Changed, path)
	}

	slices.Sort(report.Changed)

	return out, report, nil
}

func rejectFix(files map[string][]byte, taken map[string][]TextEdit, f Fix) string {
	for _, e := range f.Edits {
		content, ok := files[e.Path]
		if !ok {
			return fmt.Sprintf("%s is not loaded", e.Path)
		}

		if e.Offset < 0 || e.Length < 0 || e.End() > len(content) {
			return "edit out of range"
		}

		for _, prev := range taken[e.Path] {
			if conflict(prev, e) {
				return "overlaps a previously applied fix"
			}
		}
	}

	return ""
}

// conflict reports whether two edits overlap. Ranges are half-open; two
// insertions never conflict, an insertion conflicts with a range strictly
// containing its offset.
func conflict(a, b TextEdit) bool {
	switch {
	case a.Length == 0 && b.Length == 0:
		return false
	case a.Length == 0:
		return b.Offset < a.Offset && a.Offset < b.End()
	case b.Length == 0:
		return a.Offset < b.Offset && b.Offset < a.End()
	default:
		return a.Offset < b.End() && b.Offset < a.End()
	}
}
