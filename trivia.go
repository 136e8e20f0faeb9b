package entcheck

import "github.com/alecthomas/participle/v2/lexer"

// Span represents a range in source code. End is exclusive.
type Span struct {
	Start lexer.Position
	End   lexer.Position
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// IsZero reports whether the span was never set.
func (s Span) IsZero() bool {
	return s.Start.Line == 0 && s.End.Line == 0
}

// Trivia represents a comment collected during lexing.
type Trivia struct {
	Text string
	Span Span
}

// TriviaList holds all trivia collected while parsing a file.
// Trivia "attaches" to the next node as a leading comment, except trailing
// comments (same line) which attach to the node that ends on that line.
type TriviaList struct {
	items []Trivia
}

// Add appends trivia to the list.
func (t *TriviaList) Add(trivia Trivia) {
	t.items = append(t.items, trivia)
}

// All returns all collected trivia.
func (t *TriviaList) All() []Trivia {
	return t.items
}

// commentTarget is an AST node that can carry comments.
type commentTarget struct {
	span     Span
	leading  *[]string
	trailing *string
}

// attachComments associates collected trivia with records and members.
// Comments before the first record that are separated from it by a blank
// line belong to the file.
func attachComments(file *File, trivia *TriviaList) {
	if file == nil || trivia == nil || len(trivia.items) == 0 {
		return
	}

	targets := collectTargets(file)

	for i, t := range trivia.items {
		if target := trailingTarget(t, targets); target != nil {
			if *target.trailing == "" {
				*target.trailing = t.Text

				continue
			}
		}

		target := leadingTarget(t, targets)
		if r := enclosingRecord(file, t); r != nil && (target == nil || target.span.Start.Offset >= r.span.End.Offset) {
			r.DanglingComments = append(r.DanglingComments, t.Text)

			continue
		}

		if target == nil || (len(file.Records) > 0 && target.span == file.Records[0].span &&
			detached(trivia.items[i:], target.span)) {
			file.LeadingComments = append(file.LeadingComments, t.Text)

			continue
		}

		*target.leading = append(*target.leading, t.Text)
	}
}

func collectTargets(file *File) []commentTarget {
	var targets []commentTarget

	for _, r := range file.Records {
		targets = append(targets, commentTarget{span: r.span, leading: &r.LeadingComments, trailing: &r.TrailingComment})

		for _, m := range r.Members {
			targets = append(targets, commentTarget{span: m.Span(), leading: &m.LeadingComments, trailing: &m.TrailingComment})
		}
	}

	return targets
}

// trailingTarget finds the node that ends on the comment's line, before it.
// Members win over their record since they end later.
func trailingTarget(t Trivia, targets []commentTarget) *commentTarget {
	var best *commentTarget

	for i := range targets {
		span := targets[i].span
		if span.End.Line == t.Span.Start.Line && span.End.Offset <= t.Span.Start.Offset {
			if best == nil || span.End.Offset > best.span.End.Offset {
				best = &targets[i]
			}
		}
	}

	return best
}

// leadingTarget finds the closest node starting after the comment.
func leadingTarget(t Trivia, targets []commentTarget) *commentTarget {
	var best *commentTarget

	for i := range targets {
		span := targets[i].span
		if span.Start.Offset < t.Span.End.Offset {
			continue
		}

		if best == nil || span.Start.Offset < best.span.Start.Offset {
			best = &targets[i]
		}
	}

	return best
}

func enclosingRecord(file *File, t Trivia) *Record {
	for _, r := range file.Records {
		if r.span.Start.Offset < t.Span.Start.Offset && t.Span.End.Offset <= r.span.End.Offset {
			return r
		}
	}

	return nil
}

// detached reports whether a blank line separates the comment run starting
// at trivia[0] from the node at span.
func detached(trivia []Trivia, span Span) bool {
	line := trivia[0].Span.Start.Line

	for _, t := range trivia {
		if t.Span.Start.Offset >= span.Start.Offset {
			break
		}

		if t.Span.Start.Line > line+1 {
			return true
		}

		line = t.Span.Start.Line
	}

	return span.Start.Line > line+1
}
