package report

import "github.com/charmbracelet/lipgloss"

// Semantic colors following compiler-diagnostic conventions.
var (
	colorError   = lipgloss.Color("#ef4444") // red-500
	colorWarning = lipgloss.Color("#eab308") // yellow-500
	colorInfo    = lipgloss.Color("#06b6d4") // cyan-500
	colorHint    = lipgloss.Color("#d946ef") // fuchsia-500
	colorOK      = lipgloss.Color("#10b981") // green-500

	colorDim    = lipgloss.Color("#6b7280") // gray-500
	colorAccent = lipgloss.Color("#3b82f6") // blue-500
)

// Styles holds the lipgloss styles of the text output.
type Styles struct {
	// Severity labels
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Hint    lipgloss.Style
	OK      lipgloss.Style

	// Text styles
	Dim     lipgloss.Style
	Bold    lipgloss.Style
	Path    lipgloss.Style
	Code    lipgloss.Style
	Pointer lipgloss.Style

	// Symbols
	SymbolOK   string
	SymbolFail string
	SymbolFix  string
}

// DefaultStyles returns the colored styles used on a terminal.
func DefaultStyles() *Styles {
	return &Styles{
		Error:   lipgloss.NewStyle().Foreground(colorError).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(colorWarning).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(colorInfo).Bold(true),
		Hint:    lipgloss.NewStyle().Foreground(colorHint),
		OK:      lipgloss.NewStyle().Foreground(colorOK).Bold(true),

		Dim:     lipgloss.NewStyle().Foreground(colorDim),
		Bold:    lipgloss.NewStyle().Bold(true),
		Path:    lipgloss.NewStyle().Foreground(colorAccent),
		Code:    lipgloss.NewStyle().Foreground(colorDim),
		Pointer: lipgloss.NewStyle().Foreground(colorError).Bold(true),

		SymbolOK:   "✓",
		SymbolFail: "✗",
		SymbolFix:  "❯",
	}
}

// PlainStyles returns styles that render text unchanged, for pipes and files.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()

	return &Styles{
		Error:   plain,
		Warning: plain,
		Info:    plain,
		Hint:    plain,
		OK:      plain,

		Dim:     plain,
		Bold:    plain,
		Path:    plain,
		Code:    plain,
		Pointer: plain,

		SymbolOK:   "ok",
		SymbolFail: "FAIL",
		SymbolFix:  "fix",
	}
}
