package lsp

import (
	"context"
	"fmt"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck/analysis"
)

// PrepareRename handles textDocument/prepareRename requests.
// Only record names can be renamed; returns the range of the name under the cursor.
func (s *Server) PrepareRename(_ context.Context, params *protocol.PrepareRenameParams) (*protocol.Range, error) {
	s.logger.Debug("PrepareRename",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	res, _ := s.snapshot()
	path := URIToPath(params.TextDocument.URI)
	pos := analysis.PositionToLexer(params.Position.Line, params.Position.Character)

	if analysis.DefinitionAt(res, path, pos) == nil {
		return nil, nil //nolint:nilnil
	}

	c := analysis.NodeAtPosition(res.File(path), pos)

	var rng protocol.Range

	switch {
	case c.TypeName != nil:
		rng = spanToRange(c.TypeName.Span)
	case c.Include != nil:
		rng = spanToRange(c.Include.Name.Span)
	default:
		rng = spanToRange(c.Record.Name.Span)
	}

	return &rng, nil
}

// Rename handles textDocument/rename requests.
// Renames the record under the cursor, its field types and its inclusions.
func (s *Server) Rename(_ context.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	s.logger.Debug("Rename",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character),
		zap.String("newName", params.NewName))

	res, _ := s.snapshot()
	pos := analysis.PositionToLexer(params.Position.Line, params.Position.Character)

	sym := analysis.DefinitionAt(res, URIToPath(params.TextDocument.URI), pos)
	if sym == nil {
		return nil, nil //nolint:nilnil
	}

	if err := validateNewName(params.NewName); err != nil {
		return nil, err
	}

	if params.NewName == sym.Name {
		return nil, nil //nolint:nilnil
	}

	if res.Types.Has(params.NewName) {
		return nil, fmt.Errorf("record %s already exists", params.NewName)
	}

	changes := make(map[protocol.DocumentURI][]protocol.TextEdit)

	declURI := PathToURI(sym.Path)
	changes[declURI] = append(changes[declURI], protocol.TextEdit{
		Range:   spanToRange(sym.Record.Name.Span),
		NewText: params.NewName,
	})

	for _, f := range res.Files {
		if f.File == nil {
			continue
		}

		uri := PathToURI(f.Path)

		for _, span := range recordUses(f.File, sym.Name) {
			changes[uri] = append(changes[uri], protocol.TextEdit{
				Range:   spanToRange(span),
				NewText: params.NewName,
			})
		}
	}

	return &protocol.WorkspaceEdit{
		Changes: changes,
	}, nil
}

// validateNewName checks that the name is a valid record identifier.
func validateNewName(name string) error {
	if name == "" {
		return fmt.Errorf("new name cannot be empty")
	}

	for i, r := range name {
		if i == 0 && !isLetter(r) && r != '_' {
			return fmt.Errorf("name must start with a letter or underscore")
		}

		if !isLetter(r) && !isDigit(r) && r != '_' {
			return fmt.Errorf("name can only contain letters, digits and underscores")
		}
	}

	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
