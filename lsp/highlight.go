package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck/analysis"
)

// DocumentHighlight handles textDocument/documentHighlight requests.
// Highlights the record under the cursor and its uses within the same document.
func (s *Server) DocumentHighlight(_ context.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	s.logger.Debug("DocumentHighlight",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	res, _ := s.snapshot()
	path := URIToPath(params.TextDocument.URI)
	pos := analysis.PositionToLexer(params.Position.Line, params.Position.Character)

	sym := analysis.DefinitionAt(res, path, pos)
	if sym == nil {
		return nil, nil
	}

	f := res.File(path)
	if f == nil || f.File == nil {
		return nil, nil
	}

	var highlights []protocol.DocumentHighlight

	if sym.Path == path {
		highlights = append(highlights, protocol.DocumentHighlight{
			Range: spanToRange(sym.Record.Name.Span),
			Kind:  protocol.DocumentHighlightKindWrite,
		})
	}

	for _, span := range recordUses(f.File, sym.Name) {
		highlights = append(highlights, protocol.DocumentHighlight{
			Range: spanToRange(span),
			Kind:  protocol.DocumentHighlightKindRead,
		})
	}

	return highlights, nil
}
