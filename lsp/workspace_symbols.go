package lsp

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// Symbols handles workspace/symbol requests.
// Searches the records and entity fields of the last analysis.
func (s *Server) Symbols(_ context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	s.logger.Debug("Symbols",
		zap.String("query", params.Query))

	res, _ := s.snapshot()
	query := strings.ToLower(params.Query)

	var symbols []protocol.SymbolInformation

	for _, f := range res.Files {
		if f.File == nil {
			continue
		}

		uri := PathToURI(f.Path)

		for _, rec := range f.File.Records {
			if matches(rec.Name.Name, query) {
				symbols = append(symbols, protocol.SymbolInformation{
					Name:     rec.Name.Name,
					Kind:     recordKind(rec),
					Location: protocol.Location{URI: uri, Range: spanToRange(rec.Name.Span)},
				})
			}

			for _, m := range rec.Members {
				if m.Field == nil || !matches(m.Field.Name.Name, query) {
					continue
				}

				symbols = append(symbols, protocol.SymbolInformation{
					Name:          m.Field.Name.Name,
					Kind:          protocol.SymbolKindField,
					Location:      protocol.Location{URI: uri, Range: spanToRange(m.Field.Name.Span)},
					ContainerName: rec.Name.Name,
				})
			}
		}
	}

	return symbols, nil
}

func matches(name, query string) bool {
	return query == "" || strings.Contains(strings.ToLower(name), query)
}
