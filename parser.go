package entcheck

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// dslLexer is the custom lexer for .ent files.
var dslLexer = newDSLLexer()

// SyntaxError is a single parse failure.
type SyntaxError struct {
	Pos lexer.Position
	End lexer.Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Msg)
}

// Position returns where the error starts.
func (e *SyntaxError) Position() lexer.Position { return e.Pos }

// Message returns the error text without position.
func (e *SyntaxError) Message() string { return e.Msg }

// ErrorList collects every syntax error of a file, in source order.
type ErrorList []*SyntaxError

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", l[0], len(l)-1)
	}
}

// Unwrap exposes the individual errors to errors.As.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}

	return errs
}

// Parse parses a .ent file and returns the AST with comments attached to nodes.
// This function is safe for concurrent use.
//
// The file is split at each top-level record declaration and every part is
// parsed on its own, so a syntax error costs at most the record holding it.
// That record is still returned, marked Broken. The error is an ErrorList.
func Parse(path string, data []byte) (*File, error) {
	lex := newLexerState(path, string(data))

	var (
		toks   []lexer.Token
		trivia TriviaList
	)

	for {
		tok, _ := lex.Next()

		if tok.Type == TokenWhitespace {
			continue
		}

		if tok.Type == TokenComment {
			trivia.Add(Trivia{Text: tok.Value, Span: tokenSpan(tok)})

			continue
		}

		toks = append(toks, tok)

		if tok.EOF() {
			break
		}
	}

	b := &builder{file: &File{Path: path, Source: data}}
	b.parseFile(toks)
	attachComments(b.file, &trivia)

	if len(b.errs) > 0 {
		slices.SortStableFunc(b.errs, func(x, y *SyntaxError) int {
			return x.Pos.Offset - y.Pos.Offset
		})

		return b.file, b.errs
	}

	return b.file, nil
}

// ExportedLexer returns the lexer definition for testing purposes.
//
//nolint:revive // unexported-return: intentionally returns unexported type for internal test use
func ExportedLexer() *dslDefinition {
	return dslLexer
}

func tokenSpan(tok lexer.Token) Span {
	end := tok.Pos
	end.Offset += len(tok.Value)
	end.Column += utf8.RuneCountInString(tok.Value)

	return Span{Start: tok.Pos, End: end}
}

func spanOf(from, to lexer.Token) Span {
	return Span{Start: from.Pos, End: tokenSpan(to).End}
}

// captured reports whether the grammar filled in tok.
func captured(tok lexer.Token) bool {
	return tok.Type != 0
}

func describe(tok lexer.Token) string {
	switch {
	case tok.EOF():
		return "end of file"
	case tok.Type == TokenIllegal && strings.HasPrefix(tok.Value, `"`):
		return "unterminated string"
	case tok.Type == TokenIllegal:
		return fmt.Sprintf("illegal character %q", tok.Value)
	default:
		return fmt.Sprintf("%q", tok.Value)
	}
}

// expectation shortens the grammar fragment participle reports as expected
// to its first element.
func expectation(ebnf string) string {
	depth, quoted := 0, false
	end := len(ebnf)

scan:
	for i, r := range ebnf {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ' ' && depth == 0:
			end = i

			break scan
		}
	}

	first := ebnf[:end]
	if strings.HasPrefix(first, "(") && strings.HasSuffix(first, ")") {
		first = first[1 : len(first)-1]
	}

	return expectations.Replace(first)
}

// chunk is the token range of one top-level declaration.
type chunk struct {
	toks []lexer.Token
	// next is the token after the chunk: the next declaration or EOF.
	next lexer.Token
}

// lexer replays the chunk, then reports end of input where the next
// declaration starts.
func (c chunk) lexer() (*lexer.PeekingLexer, error) {
	return lexer.Upgrade(&tokenStream{toks: c.toks, eof: lexer.EOFToken(c.next.Pos)})
}

// end returns the end of the last token before pos.
func (c chunk) end(pos lexer.Position) lexer.Position {
	end := c.toks[0].Pos

	for _, tok := range c.toks {
		if tok.Pos.Offset >= pos.Offset {
			break
		}

		end = tokenSpan(tok).End
	}

	return end
}

// tokenStream is a lexer.Lexer over tokens that were already scanned.
type tokenStream struct {
	toks []lexer.Token
	eof  lexer.Token
}

func (s *tokenStream) Next() (lexer.Token, error) {
	if len(s.toks) == 0 {
		return s.eof, nil
	}

	tok := s.toks[0]
	s.toks = s.toks[1:]

	return tok, nil
}

// builder turns grammar nodes into the AST and collects syntax errors.
type builder struct {
	file *File
	errs ErrorList
	// mismatched is set when a record body closes with the wrong brace.
	mismatched bool
}

func (b *builder) errorAt(tok lexer.Token, format string, args ...any) {
	span := tokenSpan(tok)
	b.errs = append(b.errs, &SyntaxError{Pos: span.Start, End: span.End, Msg: fmt.Sprintf(format, args...)})
}

// fail records a participle error and returns where it happened.
func (b *builder) fail(c chunk, err error) lexer.Position {
	var unexpected *participle.UnexpectedTokenError
	if errors.As(err, &unexpected) {
		tok := unexpected.Unexpected
		if tok.EOF() {
			tok = c.next
		}

		msg := "unexpected " + describe(tok)

		rest := strings.TrimPrefix(unexpected.Message(), fmt.Sprintf("unexpected token %q", unexpected.Unexpected))
		if expected, ok := strings.CutPrefix(rest, " (expected "); ok {
			msg += ", expected " + expectation(strings.TrimSuffix(expected, ")"))
		}

		b.errorAt(tok, "%s", msg)

		return tok.Pos
	}

	pos := c.toks[0].Pos

	var perr participle.Error
	if errors.As(err, &perr) {
		pos = perr.Position()
		b.errs = append(b.errs, &SyntaxError{Pos: pos, End: pos, Msg: perr.Message()})

		return pos
	}

	b.errs = append(b.errs, &SyntaxError{Pos: pos, End: pos, Msg: err.Error()})

	return pos
}

func (b *builder) parseFile(toks []lexer.Token) {
	eof := len(toks) - 1
	starts := recordStarts(toks)

	first := eof
	if len(starts) > 0 {
		first = starts[0]
	}

	if first > 0 {
		prelude := chunk{toks: toks[:first], next: toks[first]}
		if toks[0].Type == TokenModule {
			b.parseModule(prelude)
		} else {
			b.parseRecord(prelude)
		}
	}

	for i, start := range starts {
		end := eof
		if i+1 < len(starts) {
			end = starts[i+1]
		}

		b.parseRecord(chunk{toks: toks[start:end], next: toks[end]})
	}
}

// recordStarts returns the index where each top-level record declaration
// starts, including the annotations written before it.
func recordStarts(toks []lexer.Token) []int {
	var starts []int

	lower := 0

	for k := 0; k < len(toks)-1; k++ {
		if toks[k].Type == TokenRecord && toks[k+1].Type == TokenIdent {
			starts = append(starts, annotationsBefore(toks, k, lower))
			lower = k + 2
		}
	}

	return starts
}

func isPunct(tok lexer.Token, s string) bool {
	return tok.Type == TokenPunct && tok.Value == s
}

// annotationsBefore walks backwards from the record keyword at k over
// complete annotations that start at or after lower.
func annotationsBefore(toks []lexer.Token, k, lower int) int {
	j := k

	for {
		end := j - 1
		if end < lower {
			return j
		}

		if isPunct(toks[end], ")") {
			depth := 0

			for ; end >= lower; end-- {
				if isPunct(toks[end], ")") {
					depth++
				} else if isPunct(toks[end], "(") {
					depth--
					if depth == 0 {
						break
					}
				}
			}

			end--
		}

		if end-1 < lower || toks[end].Type != TokenIdent || !isPunct(toks[end-1], "@") {
			return j
		}

		j = end - 1
	}
}

func (b *builder) parseModule(c chunk) {
	lex, err := c.lexer()
	if err == nil {
		var node *moduleNode

		node, err = moduleParser.ParseFromLexer(lex)
		if node != nil && captured(node.Name) {
			b.file.Module = &Ident{Name: node.Name.Value, Span: tokenSpan(node.Name)}
		}
	}

	if err != nil {
		b.fail(c, err)
	}
}

func (b *builder) parseRecord(c chunk) {
	b.mismatched = false

	lex, err := c.lexer()
	if err != nil {
		b.fail(c, err)

		return
	}

	node, err := recordParser.ParseFromLexer(lex)
	if node == nil || !captured(node.Name) {
		if err != nil {
			b.fail(c, err)
		}

		return
	}

	rec := &Record{
		Annotations: b.annotations(node.Annotations),
		Keyword:     tokenSpan(node.Keyword),
		Name:        Ident{Name: node.Name.Value, Span: tokenSpan(node.Name)},
		span:        Span{Start: c.toks[0].Pos},
	}

	if body := node.Body; body != nil && captured(body.Open) {
		rec.Closed = body.Open.Value == "{|"
		rec.Open = tokenSpan(body.Open)
		rec.Members = b.members(body)

		if captured(body.Close) && b.closes(body) && !b.mismatched {
			rec.Close = tokenSpan(body.Close)
			rec.span.End = rec.Close.End
		}
	}

	b.file.Records = append(b.file.Records, rec)

	switch {
	case err != nil:
		pos := b.fail(c, err)
		if rec.Close.IsZero() {
			rec.Broken = true
			rec.span.End = c.end(pos)
		}
	case rec.Close.IsZero():
		// Parsed to the end, but a closing brace did not match its opening one.
		rec.Broken = true
		rec.span.End = tokenSpan(node.Body.Close).End
	}
}

// closes reports whether body ends with the brace matching its opening one,
// reporting the mismatch otherwise.
func (b *builder) closes(body *bodyNode) bool {
	want := "}"
	if body.Open.Value == "{|" {
		want = "|}"
	}

	if body.Close.Value == want {
		return true
	}

	b.errorAt(body.Close, "unexpected %s, expected %q", describe(body.Close), want)
	b.mismatched = true

	return false
}

// members converts the complete members of body. A member cut short by a
// syntax error has no closing semicolon and is left out.
func (b *builder) members(body *bodyNode) []*Member {
	var members []*Member

	for _, m := range body.Members {
		switch {
		case m.Include != nil && captured(m.Include.Semi):
			inc := m.Include
			members = append(members, &Member{Include: &Include{
				Name: Ident{Name: inc.Name.Value, Span: tokenSpan(inc.Name)},
				Span: spanOf(inc.Star, inc.Semi),
			}})
		case m.Rest != nil && captured(m.Rest.Semi):
			rest := &Rest{Span: spanOf(m.Rest.Dots, m.Rest.Semi)}
			if m.Rest.Type != nil {
				rest.Type = b.typeExpr(m.Rest.Type)
			}

			members = append(members, &Member{Rest: rest})
		case m.Field != nil && captured(m.Field.Semi):
			members = append(members, &Member{Field: b.field(m.Field)})
		}
	}

	return members
}

func (b *builder) field(n *fieldNode) *Field {
	f := &Field{
		Name:        Ident{Name: n.Name.Value, Span: tokenSpan(n.Name)},
		Type:        b.typeExpr(n.Type),
		Annotations: b.annotations(n.Annotations),
		Span:        spanOf(n.Name, n.Semi),
	}

	if n.Readonly != nil {
		span := tokenSpan(*n.Readonly)
		f.Readonly = &span
		f.Span.Start = span.Start
	}

	if n.Eq != nil && n.Default != nil {
		f.Default = b.value(n.Default)
		f.DefaultSpan = Span{Start: n.Eq.Pos, End: f.Default.Span.End}
	}

	return f
}

func (b *builder) typeExpr(n *typeNode) *TypeExpr {
	typ := &TypeExpr{}
	for _, t := range n.Terms {
		typ.Terms = append(typ.Terms, b.term(t))
	}

	typ.Span = Span{Start: typ.Terms[0].Span.Start, End: typ.Terms[len(typ.Terms)-1].Span.End}

	return typ
}

func (b *builder) term(n *termNode) *TypeTerm {
	term := &TypeTerm{}

	switch {
	case n.Inline != nil:
		body := n.Inline.Body
		b.closes(body)

		term.Record = &InlineRecord{
			Closed:  body.Open.Value == "{|",
			Members: b.members(body),
			Span:    spanOf(n.Inline.Keyword, body.Close),
		}
		term.Span = term.Record.Span
	case n.Qualified != nil:
		term.Module = &Ident{Name: n.Name.Value, Span: tokenSpan(*n.Name)}
		term.Name = &Ident{Name: n.Qualified.Value, Span: tokenSpan(*n.Qualified)}
		term.Span = spanOf(*n.Name, *n.Qualified)
	default:
		term.Name = &Ident{Name: n.Name.Value, Span: tokenSpan(*n.Name)}
		term.Span = tokenSpan(*n.Name)
	}

	for i := 0; i < len(n.Suffixes); i++ {
		tok := n.Suffixes[i]

		suffix := Suffix{Kind: SuffixOptional, Span: tokenSpan(tok)}
		if tok.Value == "[" {
			i++
			suffix = Suffix{Kind: SuffixArray, Span: spanOf(tok, n.Suffixes[i])}
		}

		term.Suffixes = append(term.Suffixes, suffix)
		term.Span.End = suffix.Span.End
	}

	return term
}

func (b *builder) annotations(nodes []*annotationNode) []*Annotation {
	var annotations []*Annotation

	for _, n := range nodes {
		a := &Annotation{
			Name: Ident{Name: n.Name.Value, Span: tokenSpan(n.Name)},
			Span: spanOf(n.At, n.Name),
		}

		if n.Close != nil {
			a.Parens = true
			a.Span.End = tokenSpan(*n.Close).End

			for _, arg := range n.Args {
				value := b.value(arg.Value)
				a.Args = append(a.Args, &Arg{
					Name:  Ident{Name: arg.Name.Value, Span: tokenSpan(arg.Name)},
					Value: value,
					Span:  Span{Start: arg.Name.Pos, End: value.Span.End},
				})
			}
		}

		annotations = append(annotations, a)
	}

	return annotations
}

var valueKinds = map[lexer.TokenType]ValueKind{
	TokenIdent:  ValueIdent,
	TokenInt:    ValueInt,
	TokenFloat:  ValueFloat,
	TokenString: ValueString,
}

func (b *builder) value(n *valueNode) *Value {
	switch {
	case n.List != nil:
		list := &Value{Kind: ValueList, Span: spanOf(n.List.Open, n.List.Close)}
		for _, item := range n.List.Items {
			list.Items = append(list.Items, b.value(item))
		}

		list.Text = list.String()

		return list
	case n.Negative != nil:
		num := n.Negative.Number

		return &Value{Kind: valueKinds[num.Type], Text: "-" + num.Value, Span: spanOf(n.Negative.Minus, num)}
	default:
		tok := *n.Scalar

		return &Value{Kind: valueKinds[tok.Type], Text: tok.Value, Span: tokenSpan(tok)}
	}
}
