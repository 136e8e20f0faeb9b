package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck"
)

// Formatting handles textDocument/formatting requests.
func (s *Server) Formatting(_ context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	s.logger.Debug("Formatting", zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	// Need a valid parse to format (no parse errors)
	file, err := entcheck.Parse(URIToPath(doc.URI), []byte(doc.Content))
	if err != nil {
		return nil, nil //nolint:nilerr // unparsable documents are left alone
	}

	formatted := entcheck.Format(file)

	// If no change, return empty edits
	if formatted == doc.Content {
		return []protocol.TextEdit{}, nil
	}

	// Return a single edit that replaces the entire document
	content := []byte(doc.Content)

	return []protocol.TextEdit{
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   offsetToPosition(content, len(content)),
			},
			NewText: formatted,
		},
	}, nil
}
