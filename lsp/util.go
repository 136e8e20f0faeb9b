package lsp

import (
	"bytes"
	"net/url"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/diag"
)

// spanToRange converts an entcheck.Span to an LSP protocol.Range.
// entcheck uses 1-based line/column, LSP uses 0-based.
func spanToRange(span entcheck.Span) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{
			Line:      uint32(max(0, span.Start.Line-1)),   //nolint:gosec // G115: values are small line numbers
			Character: uint32(max(0, span.Start.Column-1)), //nolint:gosec // G115: values are small column numbers
		},
		End: protocol.Position{
			Line:      uint32(max(0, span.End.Line-1)),   //nolint:gosec // G115: values are small line numbers
			Character: uint32(max(0, span.End.Column-1)), //nolint:gosec // G115: values are small column numbers
		},
	}
}

// locationToRange converts a diagnostic location to an LSP range.
func locationToRange(loc diag.Location) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{
			Line:      uint32(max(0, loc.Start.Line-1)),   //nolint:gosec
			Character: uint32(max(0, loc.Start.Column-1)), //nolint:gosec
		},
		End: protocol.Position{
			Line:      uint32(max(0, loc.End.Line-1)),   //nolint:gosec
			Character: uint32(max(0, loc.End.Column-1)), //nolint:gosec
		},
	}
}

// offsetToPosition converts a byte offset of content to an LSP position.
func offsetToPosition(content []byte, offset int) protocol.Position {
	offset = min(max(offset, 0), len(content))
	before := content[:offset]
	lineStart := bytes.LastIndexByte(before, '\n') + 1

	return protocol.Position{
		Line:      uint32(bytes.Count(before, []byte{'\n'})), //nolint:gosec
		Character: uint32(offset - lineStart),                //nolint:gosec
	}
}

// rangesOverlap checks if two ranges overlap. Touching ranges overlap.
func rangesOverlap(a, b protocol.Range) bool {
	// a ends before b starts
	if a.End.Line < b.Start.Line || (a.End.Line == b.Start.Line && a.End.Character < b.Start.Character) {
		return false
	}
	// b ends before a starts
	if b.End.Line < a.Start.Line || (b.End.Line == a.Start.Line && b.End.Character < a.Start.Character) {
		return false
	}

	return true
}

// URIToPath converts a document URI to a file system path.
func URIToPath(uri protocol.DocumentURI) string {
	u, err := url.Parse(string(uri))
	if err != nil {
		// Fallback: strip file:// prefix
		return strings.TrimPrefix(string(uri), "file://")
	}

	if u.Scheme == "file" {
		return u.Path
	}

	return string(uri)
}

// PathToURI converts a file system path to a document URI.
func PathToURI(path string) protocol.DocumentURI {
	return protocol.DocumentURI("file://" + path)
}
