// Package fix derives text edits from diagnostics.
//
// Fixes are computed from the diagnostic payload alone. The layer never
// looks at the entity model and never checks whether the source changed
// since the diagnostic was produced.
package fix

import (
	"fmt"

	"github.com/rlch/entcheck/diag"
)

// TextEdit replaces Length bytes at Offset of the file at Path with NewText.
// A zero Length inserts; an empty NewText removes.
type TextEdit struct {
	Path    string `json:"path"`
	Offset  int    `json:"offset"`
	Length  int    `json:"length"`
	NewText string `json:"newText"`
}

// End returns the offset just past the replaced range.
func (e TextEdit) End() int { return e.Offset + e.Length }

// Fix is one way of resolving a diagnostic.
type Fix struct {
	Title string     `json:"title"`
	Code  diag.Code  `json:"code"`
	Edits []TextEdit `json:"edits"`
}

// Paths returns the files the fix edits, in edit order.
func (f Fix) Paths() []string {
	var paths []string

	seen := make(map[string]bool)

	for _, e := range f.Edits {
		if !seen[e.Path] {
			seen[e.Path] = true
			paths = append(paths, e.Path)
		}
	}

	return paths
}

// For returns the fixes of a diagnostic, preferred first. Diagnostics
// without a payload, or whose payload does not have the shape their code
// expects, have none.
func For(d diag.Diagnostic) []Fix {
	if d.Payload == nil || d.Payload.Kind() != diag.PayloadFor(d.Code) {
		return nil
	}

	var fixes []Fix

	switch p := d.Payload.(type) {
	case *diag.Removal:
		fixes = []Fix{{
			Title: removalTitle(d.Code, p),
			Edits: []TextEdit{remove(p.Path, p.Offset, p.Length)},
		}}

	case *diag.Insertion:
		fixes = []Fix{{
			Title: insertionTitle(d.Code, p),
			Edits: []TextEdit{insert(p.Path, p.Offset, p.Text)},
		}}

	case *diag.TypeReplacement:
		for _, c := range p.Candidates {
			fixes = append(fixes, Fix{
				Title: fmt.Sprintf("Change type to %s", c),
				Edits: []TextEdit{{Path: p.Path, Offset: p.Offset, Length: p.Length, NewText: c}},
			})
		}

	case *diag.Closure:
		fixes = []Fix{{
			Title: "Make record closed",
			Edits: []TextEdit{
				{Path: p.Path, Offset: p.OpenOffset, Length: p.OpenLength, NewText: "{|"},
				{Path: p.Path, Offset: p.CloseOffset, Length: p.CloseLength, NewText: "|}"},
			},
		}}

	case *diag.MissingRelation:
		fixes = []Fix{{
			Title: fmt.Sprintf("Add field %s: %s to %s", p.FieldName, p.FieldType, p.Target),
			Edits: []TextEdit{insert(p.Path, p.Offset, p.Stub())},
		}}

	case *diag.AnnotationMove:
		fixes = []Fix{moveFix(p)}

	case *diag.Rewrite:
		fixes = []Fix{{
			Title: fmt.Sprintf("Replace with %s", p.What),
			Edits: []TextEdit{{Path: p.Path, Offset: p.Offset, Length: p.Length, NewText: p.Text}},
		}}
	}

	for i := range fixes {
		fixes[i].Code = d.Code
	}

	return fixes
}

func remove(path string, offset, length int) TextEdit {
	return TextEdit{Path: path, Offset: offset, Length: length}
}

func insert(path string, offset int, text string) TextEdit {
	return TextEdit{Path: path, Offset: offset, NewText: text}
}

func moveFix(p *diag.AnnotationMove) Fix {
	if p.Annotation == "" {
		return Fix{
			Title: "Remove @relation",
			Edits: []TextEdit{remove(p.FromPath, p.FromOffset, p.FromLength)},
		}
	}

	return Fix{
		Title: fmt.Sprintf("Move @relation to %s", p.ToField),
		Edits: []TextEdit{
			remove(p.FromPath, p.FromOffset, p.FromLength),
			insert(p.ToPath, p.ToOffset, p.Annotation),
		},
	}
}

func removalTitle(code diag.Code, p *diag.Removal) string {
	switch code {
	case diag.CodeKeyFieldNotFound, diag.CodeDuplicateKeyField, diag.CodeInvalidKeyField:
		return fmt.Sprintf("Remove %s from key", p.What)
	case diag.CodeUniqueFieldNotFound, diag.CodeDuplicateUniqueField:
		return fmt.Sprintf("Remove %s from unique group", p.What)
	case diag.CodeOptionalField:
		return "Make field required"
	case diag.CodeArrayField:
		return "Make field a single value"
	default:
		return fmt.Sprintf("Remove %s", p.What)
	}
}

func insertionTitle(code diag.Code, p *diag.Insertion) string {
	switch code {
	case diag.CodeKeyFieldNotReadonly:
		return "Make field readonly"
	case diag.CodeEmptyKey:
		return fmt.Sprintf("Use %s", p.What)
	case diag.CodeRelationKeyNotFound:
		return fmt.Sprintf("Declare %s", p.What)
	case diag.CodeUnresolvedRelation:
		return fmt.Sprintf("Add %s", p.What)
	default:
		return fmt.Sprintf("Insert %s", p.What)
	}
}
