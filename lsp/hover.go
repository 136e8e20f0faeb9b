package lsp

import (
	"context"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck/analysis"
)

// Hover handles textDocument/hover requests.
func (s *Server) Hover(_ context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.logger.Debug("Hover",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	res, _ := s.snapshot()
	path := URIToPath(params.TextDocument.URI)
	pos := analysis.PositionToLexer(params.Position.Line, params.Position.Character)

	c := analysis.NodeAtPosition(res.File(path), pos)
	if c == nil {
		return nil, nil //nolint:nilnil
	}

	var (
		content string
		rng     protocol.Range
	)

	sym := analysis.DefinitionAt(res, path, pos)

	switch {
	case sym != nil && c.TypeName != nil:
		content, rng = hoverRecord(res, sym), spanToRange(c.TypeName.Span)
	case sym != nil && c.Include != nil:
		content, rng = hoverRecord(res, sym), spanToRange(c.Include.Span)
	case c.Field != nil:
		f := analysis.FieldAt(res, path, pos)
		if f == nil {
			return nil, nil //nolint:nilnil
		}

		content, rng = hoverField(f), spanToRange(c.Field.Name.Span)
	case sym != nil:
		content, rng = hoverRecord(res, sym), spanToRange(c.Record.Name.Span)
	default:
		return nil, nil //nolint:nilnil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: content,
		},
		Range: &rng,
	}, nil
}

func hoverRecord(res *analysis.Result, sym *analysis.RecordSymbol) string {
	var b strings.Builder

	b.WriteString("```ent\nrecord " + sym.Name + "\n```\n")

	e := res.Entity(sym.Name)
	if e == nil || e.Path != sym.Path {
		fmt.Fprintf(&b, "\nRecord declared in `%s`.", sym.Path)

		return b.String()
	}

	fmt.Fprintf(&b, "\nEntity declared in `%s`.", sym.Path)

	if keys := e.KeyNames(); len(keys) > 0 {
		fmt.Fprintf(&b, "\n\nKey: `%s`", strings.Join(keys, ", "))
	}

	for _, g := range e.UniqueGroups {
		names := make([]string, len(g))
		for i, k := range g {
			names[i] = k.Name
		}

		fmt.Fprintf(&b, "\n\nUnique: `%s`", strings.Join(names, ", "))
	}

	return b.String()
}

func hoverField(f *analysis.Field) string {
	var b strings.Builder

	typ := analysis.TypeName(f.Class)
	if f.Array {
		typ += "[]"
	}

	if f.Optional {
		typ += "?"
	}

	readonly := ""
	if f.ReadOnly {
		readonly = "readonly "
	}

	fmt.Fprintf(&b, "```ent\n%s%s: %s\n```\n", readonly, f.Name, typ)

	if f.Link != nil {
		fmt.Fprintf(&b, "\n%s relation with `%s.%s`", f.Link.Cardinality, f.Link.Partner.Entity, f.Link.Partner.Field)

		if f.Link.Owner {
			b.WriteString(", owns the foreign key")
		}

		b.WriteString(".")
	}

	if f.AutoIncrement != nil {
		b.WriteString("\n\nAuto-incremented.")
	}

	return b.String()
}
