package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck/analysis"
)

// Definition handles textDocument/definition requests.
// Named types and inclusions go to their record; a resolved relation field
// goes to its counterpart.
func (s *Server) Definition(_ context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	s.logger.Debug("Definition",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	res, _ := s.snapshot()
	path := URIToPath(params.TextDocument.URI)
	pos := analysis.PositionToLexer(params.Position.Line, params.Position.Character)

	if sym := analysis.DefinitionAt(res, path, pos); sym != nil {
		return []protocol.Location{{
			URI:   PathToURI(sym.Path),
			Range: spanToRange(sym.Record.Name.Span),
		}}, nil
	}

	f := analysis.FieldAt(res, path, pos)
	if f == nil || f.Link == nil {
		return nil, nil
	}

	partner := res.Entity(f.Link.Partner.Entity)
	if partner == nil {
		return nil, nil
	}

	pf := partner.Field(f.Link.Partner.Field)
	if pf == nil {
		return nil, nil
	}

	return []protocol.Location{{
		URI:   PathToURI(pf.Path),
		Range: spanToRange(pf.NameSpan),
	}}, nil
}
