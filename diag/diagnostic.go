// Package diag defines the diagnostics entcheck reports and the typed
// payloads that let fixes be computed without the entity model.
package diag

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Severity indicates the severity of a diagnostic.
type Severity int

// Severity levels for diagnostics.
const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// ParseSeverity parses the names printed by Severity.String.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "information", "info":
		return SeverityInformation, true
	case "hint":
		return SeverityHint, true
	default:
		return 0, false
	}
}

// Position is a point in a source file. Line and Column are 1-based;
// Offset is a byte offset.
type Position struct {
	Offset int `json:"offset" msgpack:"o"`
	Line   int `json:"line"   msgpack:"l"`
	Column int `json:"column" msgpack:"c"`
}

// Location is a source range. End is exclusive.
type Location struct {
	Path  string   `json:"path"  msgpack:"p"`
	Start Position `json:"start" msgpack:"s"`
	End   Position `json:"end"   msgpack:"e"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Start.Line, l.Start.Column)
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Location Location
	// Entity is the entity the diagnostic was attached to, if any.
	Entity string
	// Payload carries the data a fix needs; nil for explanation-only diagnostics.
	Payload Payload
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Location, d.Severity, d.Message, d.Code)
}

// New creates a diagnostic with the code's default severity.
func New(code Code, loc Location, payload Payload, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: code.DefaultSeverity(),
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
		Payload:  payload,
	}
}

// Compare orders diagnostics by path, start, end, code and message.
func Compare(a, b Diagnostic) int {
	return cmp.Or(
		cmp.Compare(a.Location.Path, b.Location.Path),
		cmp.Compare(a.Location.Start.Offset, b.Location.Start.Offset),
		cmp.Compare(a.Location.End.Offset, b.Location.End.Offset),
		cmp.Compare(a.Code, b.Code),
		cmp.Compare(a.Message, b.Message),
	)
}

// Sort orders diagnostics deterministically, see Compare.
func Sort(ds []Diagnostic) {
	slices.SortStableFunc(ds, Compare)
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(ds []Diagnostic) bool {
	return slices.ContainsFunc(ds, func(d Diagnostic) bool {
		return d.Severity == SeverityError
	})
}

// ByPath groups diagnostics by file path, keeping their order.
func ByPath(ds []Diagnostic) map[string][]Diagnostic {
	out := make(map[string][]Diagnostic)
	for _, d := range ds {
		out[d.Location.Path] = append(out[d.Location.Path], d)
	}

	return out
}
