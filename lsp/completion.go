package lsp

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck/analysis"
)

// Completion handles textDocument/completion requests.
func (s *Server) Completion(_ context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	s.logger.Debug("Completion",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	// The last analysis still knows the records while the file is broken
	// mid-edit.
	res, _ := s.snapshot()

	cc := getCompletionContext(doc.Content, params.Position)
	s.logger.Debug("Completion context", zap.String("kind", string(cc.Kind)))

	var items []protocol.CompletionItem

	switch cc.Kind {
	case CompletionKindNone:
	case CompletionKindKeyword:
		items = completeKeywords()
	case CompletionKindType:
		items = completeTypes(res)
	case CompletionKindAnnotation:
		items = completeAnnotations(cc.Field)
	}

	if cc.Prefix != "" {
		items = filterByPrefix(items, cc.Prefix)
	}

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

// CompletionKind indicates what kind of completion is expected at a position.
type CompletionKind string

const (
	// CompletionKindNone - no completions.
	CompletionKindNone CompletionKind = "none"
	// CompletionKindKeyword - declaration keywords.
	CompletionKindKeyword CompletionKind = "keyword"
	// CompletionKindType - the type of a field, after ':'.
	CompletionKindType CompletionKind = "type"
	// CompletionKindAnnotation - an annotation name, after '@'.
	CompletionKindAnnotation CompletionKind = "annotation"
)

// CompletionContext describes the position being completed.
type CompletionContext struct {
	Kind CompletionKind
	// Prefix is the partial word before the cursor.
	Prefix string
	// Field is set when the cursor sits in a field declaration.
	Field bool
}

// getCompletionContext looks at the current line up to the cursor. The
// grammar keeps one member per line in practice, so the line is enough.
func getCompletionContext(content string, pos protocol.Position) CompletionContext {
	lines := strings.Split(content, "\n")
	if int(pos.Line) >= len(lines) {
		return CompletionContext{Kind: CompletionKindNone}
	}

	line := lines[pos.Line]
	if int(pos.Character) < len(line) {
		line = line[:pos.Character]
	}

	// Only the member being typed matters.
	if i := strings.LastIndexAny(line, ";{}"); i >= 0 {
		line = line[i+1:]
	}

	start := len(line)
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}

	prefix := line[start:]
	before := strings.TrimRight(line[:start], " \t")
	field := strings.Contains(before, ":")

	switch {
	case strings.HasSuffix(before, "@"):
		return CompletionContext{Kind: CompletionKindAnnotation, Prefix: prefix, Field: field}
	case strings.Contains(before, "@") || strings.Contains(before, "("):
		return CompletionContext{Kind: CompletionKindNone}
	case strings.HasSuffix(before, ":") || field && strings.HasSuffix(before, "|"):
		return CompletionContext{Kind: CompletionKindType, Prefix: prefix, Field: true}
	case strings.TrimSpace(before) == "" || strings.TrimSpace(before) == "readonly":
		return CompletionContext{Kind: CompletionKindKeyword, Prefix: prefix}
	default:
		return CompletionContext{Kind: CompletionKindNone}
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || isLetter(rune(b)) || isDigit(rune(b))
}

func completeKeywords() []protocol.CompletionItem {
	keywords := []string{"record", "readonly", "module"}

	items := make([]protocol.CompletionItem, 0, len(keywords)+1)
	for _, kw := range keywords {
		items = append(items, protocol.CompletionItem{
			Label:  kw,
			Kind:   protocol.CompletionItemKindKeyword,
			Detail: "keyword",
		})
	}

	items = append(items, protocol.CompletionItem{
		Label:            "@entity",
		Kind:             protocol.CompletionItemKindKeyword,
		Detail:           "entity declaration",
		InsertText:       "@entity(key: [${1:id}])\nrecord ${2:Name} {|\n\t${1:id}: int;\n\t$0\n|}",
		InsertTextFormat: protocol.InsertTextFormatSnippet,
	})

	return items
}

func completeTypes(res *analysis.Result) []protocol.CompletionItem {
	var items []protocol.CompletionItem

	for _, name := range analysis.ScalarTypeNames {
		items = append(items, protocol.CompletionItem{
			Label:  name,
			Kind:   protocol.CompletionItemKindKeyword,
			Detail: "scalar",
		})
	}

	for k := analysis.TemporalDate; k <= analysis.TemporalCivil; k++ {
		items = append(items, protocol.CompletionItem{
			Label:  k.String(),
			Kind:   protocol.CompletionItemKindModule,
			Detail: "temporal",
		})
	}

	for _, name := range res.Types.Names() {
		detail := "record"
		if res.Entity(name) != nil {
			detail = "entity"
		}

		items = append(items, protocol.CompletionItem{
			Label:  name,
			Kind:   protocol.CompletionItemKindClass,
			Detail: detail,
		})
	}

	return items
}

func completeAnnotations(field bool) []protocol.CompletionItem {
	if !field {
		return []protocol.CompletionItem{{
			Label:            "entity",
			Kind:             protocol.CompletionItemKindFunction,
			Detail:           "@entity(key: [...], unique: [[...]])",
			InsertText:       "entity(key: [$1])",
			InsertTextFormat: protocol.InsertTextFormatSnippet,
		}}
	}

	return []protocol.CompletionItem{
		{
			Label:            "relation",
			Kind:             protocol.CompletionItemKindFunction,
			Detail:           "@relation(keys: [...], references: [...])",
			InsertText:       "relation($1)",
			InsertTextFormat: protocol.InsertTextFormatSnippet,
		},
		{
			Label:  "autoincrement",
			Kind:   protocol.CompletionItemKindFunction,
			Detail: "@autoincrement",
		},
	}
}

func filterByPrefix(items []protocol.CompletionItem, prefix string) []protocol.CompletionItem {
	prefix = strings.ToLower(prefix)

	var filtered []protocol.CompletionItem

	for _, item := range items {
		label := strings.ToLower(strings.TrimPrefix(item.Label, "@"))
		// Qualified names also match on the name alone.
		name := label[strings.LastIndex(label, ":")+1:]

		if strings.HasPrefix(label, prefix) || strings.HasPrefix(name, prefix) {
			filtered = append(filtered, item)
		}
	}

	return filtered
}
