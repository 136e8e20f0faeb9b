package lsp

import (
	"context"
	"slices"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck/analysis"
	"github.com/rlch/entcheck/diag"
)

// diagnosticSource is reported as the Source of every diagnostic.
const diagnosticSource = "entcheck"

// publishDiagnostics publishes the diagnostics of every file of res, and
// clears files that had diagnostics published before but left the unit.
// Callers hold analyzeMu.
func (s *Server) publishDiagnostics(ctx context.Context, res *analysis.Result) {
	current := make(map[string]bool, len(res.Files))

	for _, f := range res.Files {
		current[f.Path] = true
	}

	for path := range s.published {
		if !current[path] {
			s.publish(ctx, path, nil)
			delete(s.published, path)
		}
	}

	byPath := diag.ByPath(res.Diagnostics)

	for _, f := range res.Files {
		s.publish(ctx, f.Path, byPath[f.Path])
		s.published[f.Path] = true
	}
}

func (s *Server) publish(ctx context.Context, path string, ds []diag.Diagnostic) {
	uri := PathToURI(path)

	diagnostics := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		diagnostics = append(diagnostics, convertDiagnostic(d))
	}

	var version uint32
	if doc, ok := s.getDocument(uri); ok {
		version = uint32(doc.Version) //nolint:gosec // LSP version numbers are always non-negative
	}

	s.logger.Debug("Publishing diagnostics", zap.String("path", path), zap.Int("count", len(diagnostics)))

	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: diagnostics,
	})
	if err != nil {
		s.logger.Error("Failed to publish diagnostics", zap.Error(err))
	}
}

// convertDiagnostic converts a diag.Diagnostic to an LSP protocol.Diagnostic.
func convertDiagnostic(d diag.Diagnostic) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    locationToRange(d.Location),
		Severity: convertSeverity(d.Severity),
		Code:     string(d.Code),
		Source:   diagnosticSource,
		Message:  d.Message,
	}
}

// convertSeverity converts diag severity to LSP severity.
func convertSeverity(sev diag.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case diag.SeverityError:
		return protocol.DiagnosticSeverityError
	case diag.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case diag.SeverityInformation:
		return protocol.DiagnosticSeverityInformation
	case diag.SeverityHint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}

// diagnosticsInRange returns the diagnostics of path overlapping rng.
func diagnosticsInRange(res *analysis.Result, path string, rng protocol.Range) []diag.Diagnostic {
	return slices.DeleteFunc(res.DiagnosticsFor(path), func(d diag.Diagnostic) bool {
		return !rangesOverlap(locationToRange(d.Location), rng)
	})
}
