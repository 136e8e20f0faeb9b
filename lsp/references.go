package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/analysis"
)

// References handles textDocument/references requests.
// Finds every field type and inclusion naming the record under the cursor.
func (s *Server) References(_ context.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	s.logger.Debug("References",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Bool("includeDeclaration", params.Context.IncludeDeclaration))

	res, _ := s.snapshot()
	pos := analysis.PositionToLexer(params.Position.Line, params.Position.Character)

	sym := analysis.DefinitionAt(res, URIToPath(params.TextDocument.URI), pos)
	if sym == nil {
		return nil, nil
	}

	var locations []protocol.Location

	if params.Context.IncludeDeclaration {
		locations = append(locations, protocol.Location{
			URI:   PathToURI(sym.Path),
			Range: spanToRange(sym.Record.Name.Span),
		})
	}

	for _, f := range res.Files {
		if f.File == nil {
			continue
		}

		uri := PathToURI(f.Path)

		for _, span := range recordUses(f.File, sym.Name) {
			locations = append(locations, protocol.Location{URI: uri, Range: spanToRange(span)})
		}
	}

	return locations, nil
}

// recordUses returns the spans of every bare type name and inclusion in
// file naming the record.
func recordUses(file *entcheck.File, name string) []entcheck.Span {
	var spans []entcheck.Span

	for _, rec := range file.Records {
		for _, m := range rec.Members {
			switch {
			case m.Include != nil && m.Include.Name.Name == name:
				spans = append(spans, m.Include.Name.Span)
			case m.Field != nil && m.Field.Type != nil:
				for _, term := range m.Field.Type.Terms {
					if term.Module == nil && term.Name != nil && term.Name.Name == name {
						spans = append(spans, term.Name.Span)
					}
				}
			}
		}
	}

	return spans
}
