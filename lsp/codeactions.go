package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck/diag"
	"github.com/rlch/entcheck/fix"
)

// CodeAction handles textDocument/codeAction requests.
// Returns the quick fixes of every diagnostic overlapping the requested range.
func (s *Server) CodeAction(_ context.Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	s.logger.Debug("CodeAction",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int("diagnosticCount", len(params.Context.Diagnostics)))

	res, sources := s.snapshot()

	var actions []protocol.CodeAction

	for _, d := range diagnosticsInRange(res, URIToPath(params.TextDocument.URI), params.Range) {
		actions = append(actions, codeActionsForDiagnostic(d, sources)...)
	}

	return actions, nil
}

// codeActionsForDiagnostic turns the fixes of d into code actions. Fixes
// touching files whose content is unknown are dropped.
func codeActionsForDiagnostic(d diag.Diagnostic, sources map[string][]byte) []protocol.CodeAction {
	var actions []protocol.CodeAction

	for i, f := range fix.For(d) {
		edit, ok := workspaceEdit(f, sources)
		if !ok {
			continue
		}

		actions = append(actions, protocol.CodeAction{
			Title:       f.Title,
			Kind:        protocol.QuickFix,
			Diagnostics: []protocol.Diagnostic{convertDiagnostic(d)},
			IsPreferred: i == 0,
			Edit:        edit,
		})
	}

	return actions
}

func workspaceEdit(f fix.Fix, sources map[string][]byte) (*protocol.WorkspaceEdit, bool) {
	changes := make(map[protocol.DocumentURI][]protocol.TextEdit)

	for _, e := range f.Edits {
		content, ok := sources[e.Path]
		if !ok || e.Offset < 0 || e.End() > len(content) {
			return nil, false
		}

		uri := PathToURI(e.Path)
		changes[uri] = append(changes[uri], protocol.TextEdit{
			Range: protocol.Range{
				Start: offsetToPosition(content, e.Offset),
				End:   offsetToPosition(content, e.End()),
			},
			NewText: e.NewText,
		})
	}

	return &protocol.WorkspaceEdit{Changes: changes}, true
}
