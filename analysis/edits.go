package analysis

import (
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/diag"
)

// This file computes the ranges diagnostic payloads carry. Every helper
// works on the raw source so fixes can be applied without the model.

func toPosition(p lexer.Position) diag.Position {
	return diag.Position{Offset: p.Offset, Line: p.Line, Column: p.Column}
}

func location(path string, span entcheck.Span) diag.Location {
	return diag.Location{Path: path, Start: toPosition(span.Start), End: toPosition(span.End)}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

func lineStart(src []byte, offset int) int {
	for offset > 0 && src[offset-1] != '\n' {
		offset--
	}

	return offset
}

// lineEnd returns the offset just past the newline ending the line, or len(src).
func lineEnd(src []byte, offset int) int {
	for offset < len(src) && src[offset] != '\n' {
		offset++
	}

	if offset < len(src) {
		offset++
	}

	return offset
}

// aloneOnLine reports whether only blanks surround [start, end) on its line.
// Text after end that starts a line comment counts as blank.
func aloneOnLine(src []byte, start, end int) bool {
	for i := lineStart(src, start); i < start; i++ {
		if !isBlank(src[i]) {
			return false
		}
	}

	for i := end; i < len(src) && src[i] != '\n' && src[i] != '\r'; i++ {
		if src[i] == '/' && i+1 < len(src) && src[i+1] == '/' {
			return true
		}

		if !isBlank(src[i]) {
			return false
		}
	}

	return true
}

func lineIndent(src []byte, offset int) string {
	start := lineStart(src, offset)
	end := start

	for end < len(src) && isBlank(src[end]) {
		end++
	}

	return string(src[start:end])
}

// lineRemoval removes span, widened to its whole line when nothing else
// is written on that line.
func lineRemoval(file *entcheck.File, span entcheck.Span, what string) *diag.Removal {
	start, end := span.Start.Offset, span.End.Offset

	if valid(file.Source, start, end) && aloneOnLine(file.Source, start, end) {
		start = lineStart(file.Source, start)
		end = lineEnd(file.Source, end)
	}

	return &diag.Removal{Path: file.Path, Offset: start, Length: end - start, What: what}
}

// inlineRemoval removes span together with the blanks before it, so
// "a: int @x;" becomes "a: int;". Spans alone on their line go whole.
func inlineRemoval(file *entcheck.File, span entcheck.Span, what string) *diag.Removal {
	start, end := span.Start.Offset, span.End.Offset
	if !valid(file.Source, start, end) {
		return &diag.Removal{Path: file.Path, Offset: start, Length: end - start, What: what}
	}

	if aloneOnLine(file.Source, start, end) {
		return lineRemoval(file, span, what)
	}

	for start > 0 && isBlank(file.Source[start-1]) {
		start--
	}

	return &diag.Removal{Path: file.Path, Offset: start, Length: end - start, What: what}
}

// listItemRemoval removes item idx of a comma separated list together
// with one adjoining separator.
func listItemRemoval(file *entcheck.File, items []entcheck.Span, idx int, what string) *diag.Removal {
	var start, end int

	switch {
	case idx+1 < len(items):
		start, end = items[idx].Start.Offset, items[idx+1].Start.Offset
	case idx > 0:
		start, end = items[idx-1].End.Offset, items[idx].End.Offset
	default:
		start, end = items[idx].Start.Offset, items[idx].End.Offset
	}

	return &diag.Removal{Path: file.Path, Offset: start, Length: end - start, What: what}
}

func valid(src []byte, start, end int) bool {
	return start >= 0 && start <= end && end <= len(src)
}

// bodyInsertion locates where members are appended to a record: the start
// of the closing brace's line when the brace opens that line, else the
// brace itself.
func bodyInsertion(file *entcheck.File, rec *entcheck.Record) bodyInfo {
	src := file.Source
	closeAt := rec.Close.Start.Offset

	if rec.Close.IsZero() || !valid(src, closeAt, closeAt) {
		return bodyInfo{insertOffset: -1}
	}

	indent := "\t"
	if n := len(rec.Members); n > 0 {
		indent = lineIndent(src, rec.Members[n-1].Span().Start.Offset)
	}

	if lineStartsWith(src, closeAt) {
		return bodyInfo{insertOffset: lineStart(src, closeAt), indent: indent}
	}

	return bodyInfo{insertOffset: closeAt, indent: " "}
}

func lineStartsWith(src []byte, offset int) bool {
	for i := lineStart(src, offset); i < offset; i++ {
		if !isBlank(src[i]) {
			return false
		}
	}

	return true
}
