package entcheck

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Grammar productions. Captures are whole tokens so every AST node can be
// given an exact span; parser.go turns these into the public AST.
//
// Lookahead is zero: once a production has consumed a token it is committed,
// and a failure is reported at the token that broke it.
var (
	recordParser = participle.MustBuild[recordNode](
		participle.Lexer(dslLexer),
		participle.UseLookahead(0),
	)
	moduleParser = participle.MustBuild[moduleNode](
		participle.Lexer(dslLexer),
		participle.UseLookahead(0),
	)
)

type moduleNode struct {
	Keyword lexer.Token  `parser:"@'module'"`
	Name    lexer.Token  `parser:"@Ident"`
	Semi    *lexer.Token `parser:"@';'?"`
}

type recordNode struct {
	Annotations []*annotationNode `parser:"@@*"`
	Keyword     lexer.Token       `parser:"@'record'"`
	Name        lexer.Token       `parser:"@Ident"`
	Body        *bodyNode         `parser:"@@"`
}

// bodyNode accepts either closing brace; the pairing with the opening one
// is checked when the AST is built.
type bodyNode struct {
	Open    lexer.Token   `parser:"@('{|' | '{')"`
	Members []*memberNode `parser:"@@*"`
	Close   lexer.Token   `parser:"@('|}' | '}')"`
}

type memberNode struct {
	Include *includeNode `parser:"  @@"`
	Rest    *restNode    `parser:"| @@"`
	Field   *fieldNode   `parser:"| @@"`
}

type includeNode struct {
	Star lexer.Token `parser:"@'*'"`
	Name lexer.Token `parser:"@Ident"`
	Semi lexer.Token `parser:"@';'"`
}

type restNode struct {
	Dots lexer.Token `parser:"@'...'"`
	Type *typeNode   `parser:"(':' @@)?"`
	Semi lexer.Token `parser:"@';'"`
}

type fieldNode struct {
	Readonly    *lexer.Token      `parser:"@'readonly'?"`
	Name        lexer.Token       `parser:"@Ident ':'"`
	Type        *typeNode         `parser:"@@"`
	Eq          *lexer.Token      `parser:"(@'='"`
	Default     *valueNode        `parser:" @@)?"`
	Annotations []*annotationNode `parser:"@@*"`
	Semi        lexer.Token       `parser:"@';'"`
}

type typeNode struct {
	Terms []*termNode `parser:"@@ ('|' @@)*"`
}

// termNode is a type name or inline record. For module:Name, Name holds the
// module and Qualified the name.
type termNode struct {
	Inline    *inlineNode   `parser:"(  @@"`
	Name      *lexer.Token  `parser:" | @Ident"`
	Qualified *lexer.Token  `parser:"   (':' @Ident)? )"`
	Suffixes  []lexer.Token `parser:"@(('[' ']' | '?')*)"`
}

type inlineNode struct {
	Keyword lexer.Token `parser:"@'record'"`
	Body    *bodyNode   `parser:"@@"`
}

type annotationNode struct {
	At    lexer.Token  `parser:"@'@'"`
	Name  lexer.Token  `parser:"@Ident"`
	Open  *lexer.Token `parser:"(@'('"`
	Args  []*argNode   `parser:" (@@ (',' @@)*)?"`
	Close *lexer.Token `parser:" @')')?"`
}

type argNode struct {
	Name  lexer.Token `parser:"@Ident ':'"`
	Value *valueNode  `parser:"@@"`
}

type valueNode struct {
	List     *listNode     `parser:"  @@"`
	Scalar   *lexer.Token  `parser:"| @(Ident | String | Int | Float)"`
	Negative *negativeNode `parser:"| @@"`
}

type negativeNode struct {
	Minus  lexer.Token `parser:"@'-'"`
	Number lexer.Token `parser:"@(Int | Float)"`
}

type listNode struct {
	Open  lexer.Token  `parser:"@'['"`
	Items []*valueNode `parser:"(@@ (',' @@)*)?"`
	Close lexer.Token  `parser:"@']'"`
}

// expectations gives grammar productions and token types readable names in
// error messages.
var expectations = strings.NewReplacer(
	"BodyNode", `"{|" or "{"`,
	"MemberNode", "member",
	"TypeNode", "type",
	"TermNode", "type",
	"InlineNode", "inline record",
	"AnnotationNode", "annotation",
	"ArgNode", "argument",
	"ValueNode", "value",
	"ListNode", "list",
	"NegativeNode", "number",
	"<ident>", "name",
	"<int>", "integer",
	"<float>", "float",
	"<string>", "string",
	" | ", " or ",
)
