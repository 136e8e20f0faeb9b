package entcheck

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token type constants - negative values as per participle convention.
const (
	TokenEOF        lexer.TokenType = lexer.EOF
	TokenComment    lexer.TokenType = -(iota + 2) //nolint:mnd // participle convention
	TokenWhitespace                               // spaces, tabs, newlines
	TokenIdent                                    // identifiers
	TokenInt                                      // integer literals
	TokenFloat                                    // decimal literals
	TokenString                                   // double-quoted strings
	TokenPunct                                    // punctuation, including {| |} and ...
	TokenIllegal                                  // anything the lexer cannot classify
	// Structural keywords - distinct token types so the parser can tell them from identifiers.
	TokenModule   // module
	TokenRecord   // record
	TokenReadonly // readonly
)

// keywords maps keyword strings to their token types.
var keywords = map[string]lexer.TokenType{
	"module":   TokenModule,
	"record":   TokenRecord,
	"readonly": TokenReadonly,
}

// multiPunct lists punctuation made of more than one character, longest first.
var multiPunct = []string{"...", "{|", "|}"}

// dslDefinition implements lexer.Definition for the entity DSL.
type dslDefinition struct {
	symbols map[string]lexer.TokenType
}

func newDSLLexer() *dslDefinition {
	return &dslDefinition{
		symbols: map[string]lexer.TokenType{
			"EOF":        TokenEOF,
			"Comment":    TokenComment,
			"Whitespace": TokenWhitespace,
			"Ident":      TokenIdent,
			"Int":        TokenInt,
			"Float":      TokenFloat,
			"String":     TokenString,
			"Punct":      TokenPunct,
			"Illegal":    TokenIllegal,
			"module":     TokenModule,
			"record":     TokenRecord,
			"readonly":   TokenReadonly,
		},
	}
}

// Symbols returns the mapping of symbol names to token types.
func (d *dslDefinition) Symbols() map[string]lexer.TokenType {
	return d.symbols
}

// Lex creates a new Lexer for the given reader.
//
//nolint:ireturn // Required by participle's lexer.Definition interface.
func (d *dslDefinition) Lex(filename string, r io.Reader) (lexer.Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return d.LexBytes(filename, data)
}

// LexBytes implements lexer.BytesDefinition.
//
//nolint:ireturn // Required by participle's lexer.BytesDefinition interface.
func (d *dslDefinition) LexBytes(filename string, data []byte) (lexer.Lexer, error) {
	return newLexerState(filename, string(data)), nil
}

// LexString implements lexer.StringDefinition.
//
//nolint:ireturn // Required by participle's lexer.StringDefinition interface.
func (d *dslDefinition) LexString(filename string, input string) (lexer.Lexer, error) {
	return newLexerState(filename, input), nil
}

// lexerState holds the state for lexing.
type lexerState struct {
	filename string
	input    string
	offset   int
	line     int
	col      int
}

func newLexerState(filename, input string) *lexerState {
	return &lexerState{
		filename: filename,
		input:    input,
		line:     1,
		col:      1,
	}
}

// Next returns the next token. It never fails: characters the DSL does not
// know are returned as TokenIllegal so the parser can report them in place.
func (l *lexerState) Next() (lexer.Token, error) {
	if l.eof() {
		return lexer.EOFToken(l.pos()), nil
	}

	start := l.pos()
	r := l.peek()

	if isSpace(r) {
		for !l.eof() && isSpace(l.peek()) {
			l.advance()
		}

		return l.token(TokenWhitespace, start), nil
	}

	if r == '/' && l.peekAt(1) == '/' {
		for !l.eof() && l.peek() != '\n' {
			l.advance()
		}

		return l.token(TokenComment, start), nil
	}

	if r == '"' {
		return l.scanString(start), nil
	}

	if isDigit(r) {
		return l.scanNumber(start), nil
	}

	if isIdentStart(r) {
		l.advance()

		for !l.eof() && isIdentContinue(l.peek()) {
			l.advance()
		}

		tok := l.token(TokenIdent, start)
		if kwType, isKeyword := keywords[tok.Value]; isKeyword {
			tok.Type = kwType
		}

		return tok, nil
	}

	for _, p := range multiPunct {
		if strings.HasPrefix(l.input[l.offset:], p) {
			for range len(p) {
				l.advance()
			}

			return l.token(TokenPunct, start), nil
		}
	}

	l.advance()

	if strings.ContainsRune("{}[]():;,|?=@*-", r) {
		return l.token(TokenPunct, start), nil
	}

	return l.token(TokenIllegal, start), nil
}

func (l *lexerState) pos() lexer.Position {
	return lexer.Position{
		Filename: l.filename,
		Offset:   l.offset,
		Line:     l.line,
		Column:   l.col,
	}
}

func (l *lexerState) eof() bool {
	return l.offset >= len(l.input)
}

func (l *lexerState) peek() rune {
	if l.eof() {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])

	return r
}

func (l *lexerState) peekAt(n int) rune {
	off := l.offset + n
	if off >= len(l.input) {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[off:])

	return r
}

func (l *lexerState) advance() {
	if l.eof() {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.offset:])
	l.offset += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *lexerState) token(typ lexer.TokenType, start lexer.Position) lexer.Token {
	return lexer.Token{
		Type:  typ,
		Value: l.input[start.Offset:l.offset],
		Pos:   start,
	}
}

// scanString scans a double-quoted string. An unterminated string is
// returned as TokenIllegal covering the rest of the line.
func (l *lexerState) scanString(start lexer.Position) lexer.Token {
	l.advance() // opening quote

	for !l.eof() {
		ch := l.peek()
		if ch == '\\' && l.peekAt(1) != 0 && l.peekAt(1) != '\n' {
			l.advance()
			l.advance()

			continue
		}

		if ch == '"' {
			l.advance()

			return l.token(TokenString, start)
		}

		if ch == '\n' {
			break
		}

		l.advance()
	}

	return l.token(TokenIllegal, start)
}

func (l *lexerState) scanNumber(start lexer.Position) lexer.Token {
	for !l.eof() && (isDigit(l.peek()) || l.peek() == '_') {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance() // .

		for !l.eof() && (isDigit(l.peek()) || l.peek() == '_') {
			l.advance()
		}

		return l.token(TokenFloat, start)
	}

	return l.token(TokenInt, start)
}

// IsKeywordToken returns true if the token type is a structural keyword.
func IsKeywordToken(typ lexer.TokenType) bool {
	return typ == TokenModule || typ == TokenRecord || typ == TokenReadonly
}

// Character helpers.

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
