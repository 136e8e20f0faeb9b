package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// FoldingRanges handles textDocument/foldingRange requests.
// Returns one region per multi-line record.
func (s *Server) FoldingRanges(_ context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	s.logger.Debug("FoldingRanges",
		zap.String("uri", string(params.TextDocument.URI)))

	res, _ := s.snapshot()

	f := res.File(URIToPath(params.TextDocument.URI))
	if f == nil || f.File == nil {
		return nil, nil
	}

	var ranges []protocol.FoldingRange

	for _, rec := range f.File.Records {
		span := rec.Span()
		if span.End.Line <= span.Start.Line {
			continue
		}

		ranges = append(ranges, protocol.FoldingRange{
			StartLine: uint32(span.Start.Line - 1), //nolint:gosec
			EndLine:   uint32(span.End.Line - 1),   //nolint:gosec
			Kind:      protocol.RegionFoldingRange,
		})
	}

	return ranges, nil
}
