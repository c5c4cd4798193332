package dbc

import (
	"fmt"
	"strings"

	"github.com/candb-tools/candb-go/pkg/descriptor"
)

// tokenKind classifies a lexical token.
type tokenKind uint8

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenColon
	tokenSemicolon
	tokenPipe
	tokenAt
	tokenPlus
	tokenMinus
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

// String returns the name used in error messages.
func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return "identifier"
	case tokenNumber:
		return "number"
	case tokenString:
		return "string"
	case tokenColon:
		return "':'"
	case tokenSemicolon:
		return "';'"
	case tokenPipe:
		return "'|'"
	case tokenAt:
		return "'@'"
	case tokenPlus:
		return "'+'"
	case tokenMinus:
		return "'-'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	case tokenComma:
		return "','"
	default:
		return "unknown"
	}
}

// token is one lexical unit with its 1-based source position. For
// strings the text is the decoded content without quotes; for numbers
// it is the literal spelling, sign included.
type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

// lexer produces tokens from DBC text on demand. Skipping works on the
// raw input, so tolerated but unsupported sections never have to
// tokenize.
type lexer struct {
	input string
	off   int
	line  int
	col   int
}

func newLexer(input string) *lexer {
	return &lexer{input: strings.TrimPrefix(input, "\uFEFF"), line: 1, col: 1}
}

// advance consumes one byte, maintaining the line and column counters.
func (l *lexer) advance() byte {
	c := l.input[l.off]
	l.off++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) byteAt(off int) (byte, bool) {
	if off >= len(l.input) {
		return 0, false
	}
	return l.input[off], true
}

// next returns the next token.
func (l *lexer) next() (token, error) {
	for l.off < len(l.input) && isSpace(l.input[l.off]) {
		l.advance()
	}
	if l.off >= len(l.input) {
		return token{kind: tokenEOF, line: l.line, col: l.col}, nil
	}

	tok := token{line: l.line, col: l.col}
	c := l.input[l.off]
	switch {
	case c == '"':
		return l.scanString(tok)
	case isIdentStart(c):
		return l.scanIdent(tok), nil
	case isDigit(c) || c == '.':
		return l.scanNumber(tok), nil
	case c == '-' || c == '+':
		// A sign directly followed by a digit belongs to the number,
		// as in (0.1,-40). Standalone it is the SG_ sign marker.
		if next, ok := l.byteAt(l.off + 1); ok && (isDigit(next) || next == '.') {
			return l.scanNumber(tok), nil
		}
		l.advance()
		tok.text = string(c)
		tok.kind = tokenPlus
		if c == '-' {
			tok.kind = tokenMinus
		}
		return tok, nil
	}

	switch c {
	case ':':
		tok.kind = tokenColon
	case ';':
		tok.kind = tokenSemicolon
	case '|':
		tok.kind = tokenPipe
	case '@':
		tok.kind = tokenAt
	case '(':
		tok.kind = tokenLParen
	case ')':
		tok.kind = tokenRParen
	case '[':
		tok.kind = tokenLBracket
	case ']':
		tok.kind = tokenRBracket
	case ',':
		tok.kind = tokenComma
	default:
		return token{}, &descriptor.SyntaxError{
			Line:    l.line,
			Column:  l.col,
			Message: fmt.Sprintf("unexpected character %q", c),
		}
	}
	l.advance()
	tok.text = string(c)
	return tok, nil
}

func (l *lexer) scanIdent(tok token) token {
	start := l.off
	for l.off < len(l.input) && isIdentChar(l.input[l.off]) {
		l.advance()
	}
	tok.kind = tokenIdent
	tok.text = l.input[start:l.off]
	return tok
}

func (l *lexer) scanNumber(tok token) token {
	start := l.off
	if c := l.input[l.off]; c == '-' || c == '+' {
		l.advance()
	}
	for l.off < len(l.input) && (isDigit(l.input[l.off]) || l.input[l.off] == '.') {
		l.advance()
	}
	// Exponent, as in 1e-05. Only consumed when digits follow, so a
	// stray trailing letter stays outside the token.
	if c, ok := l.byteAt(l.off); ok && (c == 'e' || c == 'E') {
		rest := l.input[l.off+1:]
		hasExponent := len(rest) > 0 && isDigit(rest[0]) ||
			len(rest) > 1 && (rest[0] == '-' || rest[0] == '+') && isDigit(rest[1])
		if hasExponent {
			l.advance()
			if c, ok := l.byteAt(l.off); ok && (c == '-' || c == '+') {
				l.advance()
			}
			for l.off < len(l.input) && isDigit(l.input[l.off]) {
				l.advance()
			}
		}
	}
	tok.kind = tokenNumber
	tok.text = l.input[start:l.off]
	return tok
}

func (l *lexer) scanString(tok token) (token, error) {
	l.advance()
	var b strings.Builder
	for {
		if l.off >= len(l.input) {
			return token{}, &descriptor.SyntaxError{
				Line:    tok.line,
				Column:  tok.col,
				Message: "unterminated string",
			}
		}
		switch c := l.advance(); c {
		case '"':
			tok.kind = tokenString
			tok.text = b.String()
			return tok, nil
		case '\\':
			if l.off >= len(l.input) {
				return token{}, &descriptor.SyntaxError{
					Line:    tok.line,
					Column:  tok.col,
					Message: "unterminated string",
				}
			}
			switch esc := l.advance(); esc {
			case '"', '\\':
				b.WriteByte(esc)
			default:
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(c)
		}
	}
}

// restOfLine consumes input through the next line break outside a
// quoted string and returns the consumed text without the break.
func (l *lexer) restOfLine() string {
	start := l.off
	inQuote := false
	escaped := false
	for l.off < len(l.input) {
		c := l.input[l.off]
		if c == '\n' && !inQuote {
			break
		}
		l.advance()
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inQuote:
			escaped = true
		case c == '"':
			inQuote = !inQuote
		}
	}
	text := l.input[start:l.off]
	if l.off < len(l.input) {
		l.advance()
	}
	return strings.TrimSuffix(text, "\r")
}

// skipIndented consumes whitespace-prefixed lines, the body shape of an
// NS_ block. The lexer must be at the start of a line.
func (l *lexer) skipIndented() {
	for l.off < len(l.input) {
		if c := l.input[l.off]; c != ' ' && c != '\t' {
			return
		}
		l.restOfLine()
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
