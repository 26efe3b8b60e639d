package cyphergrammar

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/jakewins/cyphercore/cerr"
)

// Parser is the Cypher parser instance.
var Parser = participle.MustBuild[Script](
	participle.Lexer(CypherLexer),
	participle.Elide("Whitespace", "BlockComment", "LineComment"),
	participle.UseLookahead(10),         // Higher lookahead for nested property access + function calls
	participle.CaseInsensitive("Ident"), // Cypher keywords are case-insensitive
	participle.Map(unquoteString, "String"),
)

// unquoteString strips the delimiting quote (single or double, matched
// per spec.md §4.1: "quote-style matching the delimiter") and resolves the
// escape set spec.md §4.1 names (`\" \\ \/ \b \f \n \r \t`), so every
// *string field participle captures from a String token already holds the
// decoded text rather than the raw quoted lexeme.
func unquoteString(t lexer.Token) (lexer.Token, error) {
	raw := t.Value
	if len(raw) < 2 {
		return t, nil
	}
	body := raw[1 : len(raw)-1]
	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case '"':
			sb.WriteByte('"')
		case '\'':
			sb.WriteByte('\'')
		case '\\':
			sb.WriteByte('\\')
		case '/':
			sb.WriteByte('/')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(body[i])
		}
	}
	t.Value = sb.String()
	return t, nil
}

// Parse parses a Cypher query string into an AST. On failure it returns a
// *cerr.SyntaxError carrying participle's error as Cause and, where that
// error implements participle.Error, its offset, line and column. The
// SyntaxError's Expected field is not filled in.
func Parse(query string) (*Script, error) {
	script, err := Parser.ParseString("", query)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return script, nil
}

// ParseBytes parses a Cypher query from bytes into an AST.
func ParseBytes(query []byte) (*Script, error) {
	script, err := Parser.ParseBytes("", query)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return script, nil
}

func wrapParseError(err error) error {
	if pe, ok := err.(participle.Error); ok {
		pos := pe.Position()
		return &cerr.SyntaxError{
			Offset: pos.Offset,
			Line:   pos.Line,
			Column: pos.Column,
			Cause:  err,
		}
	}
	return &cerr.SyntaxError{Cause: err}
}

// String returns the full name of an InvocationName (e.g., "apoc.text.join").
func (n *InvocationName) String() string {
	if n == nil {
		return ""
	}
	return strings.Join(n.Parts, ".")
}

// IsFloat returns true if this literal is a floating-point number.
func (l *Literal) IsFloat() bool {
	return l != nil && l.Float != nil
}

// IsInt returns true if this literal is an integer.
func (l *Literal) IsInt() bool {
	return l != nil && (l.Int != nil || l.HexInt != nil || l.OctInt != nil)
}

// IsString returns true if this literal is a string.
func (l *Literal) IsString() bool {
	return l != nil && l.String != nil
}

// IsBool returns true if this literal is a boolean.
func (l *Literal) IsBool() bool {
	return l != nil && (l.True || l.False)
}

// IsNull returns true if this literal is NULL.
func (l *Literal) IsNull() bool {
	return l != nil && l.Null
}

// HasOR returns true if this expression uses OR.
func (e *Expression) HasOR() bool {
	return e != nil && len(e.Right) > 0
}

// HasXOR returns true if the XorExpr uses XOR.
func (x *XorExpr) HasXOR() bool {
	return x != nil && len(x.Right) > 0
}

// HasAND returns true if the AndExpr uses AND.
func (a *AndExpr) HasAND() bool {
	return a != nil && len(a.Right) > 0
}

// HasComparison returns true if this is a comparison expression.
func (c *ComparisonExpr) HasComparison() bool {
	return c != nil && len(c.Right) > 0
}
