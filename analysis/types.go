// Package analysis provides semantic analysis for .ent entity declarations.
package analysis

import (
	"slices"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/diag"
)

// RecordSymbol is a record declared somewhere in the compilation unit.
type RecordSymbol struct {
	Name string
	Path string
	// Entity is set when the record carries @entity.
	Entity bool
	// Broken is set when the record failed to parse completely.
	Broken bool

	Record *entcheck.Record
	File   *entcheck.File
}

// TypeIndex knows every record name of a compilation unit. The first
// declaration of a name wins.
type TypeIndex struct {
	records map[string]*RecordSymbol
}

// NewTypeIndex indexes the records of the given files, in order.
func NewTypeIndex(files ...*entcheck.File) *TypeIndex {
	ix := &TypeIndex{records: make(map[string]*RecordSymbol)}

	for _, f := range files {
		if f == nil {
			continue
		}

		for _, r := range f.Records {
			if _, exists := ix.records[r.Name.Name]; exists {
				continue
			}

			ix.records[r.Name.Name] = &RecordSymbol{
				Name:   r.Name.Name,
				Path:   f.Path,
				Entity: r.Annotation(annotationEntity) != nil,
				Broken: r.Broken,
				Record: r,
				File:   f,
			}
		}
	}

	return ix
}

// Has reports whether a record with this name exists.
func (ix *TypeIndex) Has(name string) bool {
	if ix == nil {
		return false
	}

	_, ok := ix.records[name]

	return ok
}

// Lookup returns the record with this name.
func (ix *TypeIndex) Lookup(name string) (*RecordSymbol, bool) {
	if ix == nil {
		return nil, false
	}

	r, ok := ix.records[name]

	return r, ok
}

// Names returns every record name, sorted.
func (ix *TypeIndex) Names() []string {
	if ix == nil {
		return nil
	}

	names := make([]string, 0, len(ix.records))
	for n := range ix.records {
		names = append(names, n)
	}

	slices.Sort(names)

	return names
}

// AnalyzedFile holds the parse result of one file of a pass.
type AnalyzedFile struct {
	// Path is the file path (URI in LSP terms).
	Path string

	// File is the parsed AST, partial when ParseError is set.
	File *entcheck.File

	// ParseError holds the parse error if parsing failed.
	ParseError error
}

// Result is the outcome of a resolution pass.
type Result struct {
	// Entities is the validated entity table. Treat as read-only.
	Entities map[string]*Entity

	// Diagnostics holds every diagnostic of the pass, sorted.
	Diagnostics []diag.Diagnostic

	// Files holds the parsed files when the result came from an Analyzer.
	Files []*AnalyzedFile

	// Types is the known type index of the pass, when it came from an Analyzer.
	Types *TypeIndex
}

// Entity returns the entity with the given name.
func (r *Result) Entity(name string) *Entity {
	return r.Entities[name]
}

// EntityNames returns the entity names, sorted.
func (r *Result) EntityNames() []string {
	names := make([]string, 0, len(r.Entities))
	for n := range r.Entities {
		names = append(names, n)
	}

	slices.Sort(names)

	return names
}

// DiagnosticsFor returns the diagnostics located in path.
func (r *Result) DiagnosticsFor(path string) []diag.Diagnostic {
	var out []diag.Diagnostic

	for _, d := range r.Diagnostics {
		if d.Location.Path == path {
			out = append(out, d)
		}
	}

	return out
}

// File returns the analyzed file for path.
func (r *Result) File(path string) *AnalyzedFile {
	for _, f := range r.Files {
		if f.Path == path {
			return f
		}
	}

	return nil
}

// HasErrors reports whether any diagnostic is an error.
func (r *Result) HasErrors() bool {
	return diag.HasErrors(r.Diagnostics)
}
