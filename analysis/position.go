package analysis

import (
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/rlch/entcheck"
)

// Cursor describes the AST nodes under a position, outermost first.
type Cursor struct {
	Record     *entcheck.Record
	Field      *entcheck.Field
	Annotation *entcheck.Annotation
	// TypeName is set when the position is on a named type of a field.
	TypeName *entcheck.Ident
	// Include is set when the position is on an inclusion.
	Include *entcheck.Include
}

// NodeAtPosition finds the most specific AST nodes at a given position.
// Returns nil if no record contains the position.
func NodeAtPosition(f *AnalyzedFile, pos lexer.Position) *Cursor {
	if f == nil || f.File == nil {
		return nil
	}

	for _, rec := range f.File.Records {
		if !containsPosition(rec.Span(), pos) {
			continue
		}

		c := &Cursor{Record: rec}

		for _, a := range rec.Annotations {
			if containsPosition(a.Span, pos) {
				c.Annotation = a
			}
		}

		for _, m := range rec.Members {
			if !containsPosition(m.Span(), pos) {
				continue
			}

			switch {
			case m.Field != nil:
				nodeInField(c, m.Field, pos)
			case m.Include != nil:
				c.Include = m.Include
			}
		}

		return c
	}

	return nil
}

func nodeInField(c *Cursor, fd *entcheck.Field, pos lexer.Position) {
	c.Field = fd

	for _, a := range fd.Annotations {
		if containsPosition(a.Span, pos) {
			c.Annotation = a
		}
	}

	if fd.Type == nil {
		return
	}

	for _, term := range fd.Type.Terms {
		if term.Name != nil && term.Module == nil && containsPosition(term.Name.Span, pos) {
			c.TypeName = term.Name
		}
	}
}

// containsPosition checks if a span contains a position. The end column is
// inclusive so a cursor just after a name still hits it.
func containsPosition(span entcheck.Span, pos lexer.Position) bool {
	if pos.Line < span.Start.Line || pos.Line > span.End.Line {
		return false
	}

	if pos.Line == span.Start.Line && pos.Column < span.Start.Column {
		return false
	}

	if pos.Line == span.End.Line && pos.Column > span.End.Column {
		return false
	}

	return true
}

// PositionToLexer converts LSP 0-based line/character to participle's 1-based line/column.
func PositionToLexer(line, character uint32) lexer.Position {
	return lexer.Position{
		Line:   int(line) + 1, // LSP is 0-based, participle is 1-based
		Column: int(character) + 1,
	}
}

// DefinitionAt returns the record referenced at pos: a field type, an
// inclusion or the record name itself.
func DefinitionAt(res *Result, path string, pos lexer.Position) *RecordSymbol {
	c := NodeAtPosition(res.File(path), pos)
	if c == nil {
		return nil
	}

	var name string

	switch {
	case c.TypeName != nil:
		name = c.TypeName.Name
	case c.Include != nil:
		name = c.Include.Name.Name
	case containsPosition(c.Record.Name.Span, pos):
		name = c.Record.Name.Name
	default:
		return nil
	}

	sym, ok := res.Types.Lookup(name)
	if !ok {
		return nil
	}

	return sym
}

// FieldAt returns the validated field declared at pos.
func FieldAt(res *Result, path string, pos lexer.Position) *Field {
	c := NodeAtPosition(res.File(path), pos)
	if c == nil || c.Field == nil {
		return nil
	}

	e := res.Entity(c.Record.Name.Name)
	if e == nil || e.Path != path {
		return nil
	}

	return e.Field(c.Field.Name.Name)
}
