// Package report renders diagnostics for the command line: styled text for
// people, JSON lines for tools and msgpack snapshots for `entcheck fix`.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/rlch/entcheck/diag"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Output format names.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Formats lists the accepted format names.
var Formats = []string{FormatText, FormatJSON, FormatMsgpack}

// Formatter writes diagnostics as they are reported and a summary at the end.
type Formatter interface {
	Format(d diag.Diagnostic) error
	Summary(s Summary) error
}

// Summary counts the outcome of a check.
type Summary struct {
	Files    int
	Errors   int
	Warnings int
	Other    int
}

// Summarize counts ds by severity.
func Summarize(files int, ds []diag.Diagnostic) Summary {
	s := Summary{Files: files}

	for _, d := range ds {
		switch d.Severity {
		case diag.SeverityError:
			s.Errors++
		case diag.SeverityWarning:
			s.Warnings++
		default:
			s.Other++
		}
	}

	return s
}

// OK reports whether the check found no errors.
func (s Summary) OK() bool { return s.Errors == 0 }

// New returns the formatter for format. Text output is styled only when w
// is a terminal. sources, keyed by path, adds source excerpts to text output.
func New(format string, w io.Writer, sources map[string][]byte) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		styles := PlainStyles()
		if IsTerminal(w) {
			styles = DefaultStyles()
		}

		return NewTextFormatter(w, styles, sources), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	case FormatMsgpack:
		return NewSnapshotFormatter(w), nil
	default:
		return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
	}
}

// IsTerminal reports whether w writes to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TextFormatter prints one block per diagnostic:
//
//	path:line:col: severity: message [code]
//	    source line
//	    ^
type TextFormatter struct {
	w       io.Writer
	styles  *Styles
	sources map[string][]byte
}

// NewTextFormatter creates a text formatter.
func NewTextFormatter(w io.Writer, styles *Styles, sources map[string][]byte) *TextFormatter {
	if styles == nil {
		styles = PlainStyles()
	}

	return &TextFormatter{w: w, styles: styles, sources: sources}
}

// Format implements Formatter.
func (f *TextFormatter) Format(d diag.Diagnostic) error {
	_, err := fmt.Fprintf(f.w, "%s: %s: %s %s\n",
		f.styles.Path.Render(d.Location.String()),
		f.severity(d.Severity),
		d.Message,
		f.styles.Code.Render("["+string(d.Code)+"]"))
	if err != nil {
		return err
	}

	line, ok := sourceLine(f.sources[d.Location.Path], d.Location.Start.Line)
	if !ok {
		return nil
	}

	// The caret lines up under tabs by repeating them.
	var pad strings.Builder

	for i := 0; i < d.Location.Start.Column-1 && i < len(line); i++ {
		if line[i] == '\t' {
			pad.WriteByte('\t')
		} else {
			pad.WriteByte(' ')
		}
	}

	_, err = fmt.Fprintf(f.w, "    %s\n    %s%s\n", line, pad.String(), f.styles.Pointer.Render("^"))

	return err
}

func (f *TextFormatter) severity(s diag.Severity) string {
	switch s {
	case diag.SeverityError:
		return f.styles.Error.Render(s.String())
	case diag.SeverityWarning:
		return f.styles.Warning.Render(s.String())
	case diag.SeverityInformation:
		return f.styles.Info.Render(s.String())
	default:
		return f.styles.Hint.Render(s.String())
	}
}

// Summary implements Formatter.
func (f *TextFormatter) Summary(s Summary) error {
	if s.Errors == 0 && s.Warnings == 0 && s.Other == 0 {
		_, err := fmt.Fprintf(f.w, "%s %s checked, no problems\n",
			f.styles.OK.Render(f.styles.SymbolOK), plural(s.Files, "file"))

		return err
	}

	symbol := f.styles.OK.Render(f.styles.SymbolOK)
	if !s.OK() {
		symbol = f.styles.Error.Render(f.styles.SymbolFail)
	}

	parts := []string{plural(s.Errors, "error"), plural(s.Warnings, "warning")}
	if s.Other > 0 {
		parts = append(parts, plural(s.Other, "note"))
	}

	_, err := fmt.Fprintf(f.w, "\n%s %s in %s\n",
		symbol, f.styles.Bold.Render(strings.Join(parts, ", ")), plural(s.Files, "file"))

	return err
}

func sourceLine(content []byte, line int) (string, bool) {
	if content == nil || line < 1 {
		return "", false
	}

	lines := bytes.Split(content, []byte("\n"))
	if line > len(lines) {
		return "", false
	}

	return strings.TrimRight(string(lines[line-1]), "\r"), true
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}

	return fmt.Sprintf("%d %ss", n, word)
}

// JSONFormatter writes one JSON object per line: each diagnostic, then a
// summary object with "summary": true.
type JSONFormatter struct {
	enc *json.Encoder
}

// NewJSONFormatter creates a JSON lines formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

// Format implements Formatter.
func (f *JSONFormatter) Format(d diag.Diagnostic) error {
	return f.enc.Encode(d)
}

type jsonSummary struct {
	Summary  bool `json:"summary"`
	Files    int  `json:"files"`
	Errors   int  `json:"errors"`
	Warnings int  `json:"warnings"`
	Other    int  `json:"other"`
	OK       bool `json:"ok"`
}

// Summary implements Formatter.
func (f *JSONFormatter) Summary(s Summary) error {
	return f.enc.Encode(jsonSummary{
		Summary:  true,
		Files:    s.Files,
		Errors:   s.Errors,
		Warnings: s.Warnings,
		Other:    s.Other,
		OK:       s.OK(),
	})
}

// SnapshotFormatter collects diagnostics and writes them as one msgpack
// snapshot when the summary arrives.
type SnapshotFormatter struct {
	w  io.Writer
	ds []diag.Diagnostic
}

// NewSnapshotFormatter creates a snapshot formatter.
func NewSnapshotFormatter(w io.Writer) *SnapshotFormatter {
	return &SnapshotFormatter{w: w}
}

// Format implements Formatter.
func (f *SnapshotFormatter) Format(d diag.Diagnostic) error {
	f.ds = append(f.ds, d)

	return nil
}

// Summary implements Formatter.
func (f *SnapshotFormatter) Summary(Summary) error {
	return diag.WriteSnapshot(f.w, f.ds)
}
