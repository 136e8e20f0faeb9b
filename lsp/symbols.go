package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck"
)

// DocumentSymbol handles textDocument/documentSymbol requests.
// Returns one symbol per record with its fields as children.
func (s *Server) DocumentSymbol(_ context.Context, params *protocol.DocumentSymbolParams) ([]any, error) {
	s.logger.Debug("DocumentSymbol",
		zap.String("uri", string(params.TextDocument.URI)))

	res, _ := s.snapshot()

	f := res.File(URIToPath(params.TextDocument.URI))
	if f == nil || f.File == nil {
		return nil, nil
	}

	result := make([]any, 0, len(f.File.Records))
	for _, rec := range f.File.Records {
		result = append(result, recordSymbol(rec))
	}

	return result, nil
}

func recordDetail(rec *entcheck.Record) string {
	if rec.Annotation("entity") != nil {
		return "entity"
	}

	return "record"
}

func recordKind(rec *entcheck.Record) protocol.SymbolKind {
	if rec.Annotation("entity") != nil {
		return protocol.SymbolKindClass
	}

	return protocol.SymbolKindStruct
}

// recordSymbol creates a symbol for a record with nested fields.
func recordSymbol(rec *entcheck.Record) protocol.DocumentSymbol {
	sym := protocol.DocumentSymbol{
		Name:           rec.Name.Name,
		Detail:         recordDetail(rec),
		Kind:           recordKind(rec),
		Range:          spanToRange(rec.Span()),
		SelectionRange: spanToRange(rec.Name.Span),
	}

	for _, m := range rec.Members {
		if m.Field == nil {
			continue
		}

		sym.Children = append(sym.Children, protocol.DocumentSymbol{
			Name:           m.Field.Name.Name,
			Detail:         m.Field.Type.String(),
			Kind:           protocol.SymbolKindField,
			Range:          spanToRange(m.Field.Span),
			SelectionRange: spanToRange(m.Field.Name.Span),
		})
	}

	return sym
}
