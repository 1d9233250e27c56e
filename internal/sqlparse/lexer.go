package sqlparse

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// lexer produces tokens from SQL text on demand.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (lx *lexer) peek() rune {
	if lx.pos >= len(lx.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
	return r
}

func (lx *lexer) next() rune {
	if lx.pos >= len(lx.src) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	lx.pos += size
	return r
}

func (lx *lexer) skipSpaceAndComments() error {
	for lx.pos < len(lx.src) {
		r := lx.peek()
		switch {
		case unicode.IsSpace(r):
			lx.next()
		case r == '-' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '-':
			// Line comment runs to end of line.
			for lx.pos < len(lx.src) && lx.peek() != '\n' {
				lx.next()
			}
		case r == '/' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '*':
			start := lx.pos
			lx.pos += 2
			for {
				if lx.pos+1 >= len(lx.src) {
					return &ParseError{Pos: start, Message: "unterminated block comment"}
				}
				if lx.src[lx.pos] == '*' && lx.src[lx.pos+1] == '/' {
					lx.pos += 2
					break
				}
				lx.next()
			}
		default:
			return nil
		}
	}
	return nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// nextToken scans one token. Returns TokenEOF at end of input.
func (lx *lexer) nextToken() (Token, error) {
	if err := lx.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}
	start := lx.pos
	if lx.pos >= len(lx.src) {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	r := lx.peek()
	switch {
	case isIdentStart(r):
		for lx.pos < len(lx.src) && isIdentPart(lx.peek()) {
			lx.next()
		}
		word := lx.src[start:lx.pos]
		if up := upper(word); isKeyword(up) {
			return Token{Type: TokenKeyword, Val: up, Pos: start}, nil
		}
		return Token{Type: TokenIdent, Val: word, Pos: start}, nil

	case r == '`' || r == '"':
		// Quoted identifier; quote style is dialect sugar, both accepted.
		quote := lx.next()
		for {
			if lx.pos >= len(lx.src) {
				return Token{}, &ParseError{Pos: start, Message: "unterminated quoted identifier"}
			}
			if lx.next() == quote {
				break
			}
		}
		return Token{Type: TokenIdent, Val: lx.src[start+1 : lx.pos-1], Pos: start}, nil

	case r == '\'':
		lx.next()
		var out []rune
		for {
			if lx.pos >= len(lx.src) {
				return Token{}, &ParseError{Pos: start, Message: "unterminated string literal"}
			}
			c := lx.next()
			if c == '\'' {
				// '' escapes a single quote inside the literal.
				if lx.peek() == '\'' {
					lx.next()
					out = append(out, '\'')
					continue
				}
				break
			}
			out = append(out, c)
		}
		return Token{Type: TokenString, Val: string(out), Pos: start}, nil

	case unicode.IsDigit(r) || (r == '.' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] >= '0' && lx.src[lx.pos+1] <= '9'):
		sawDot := false
		for lx.pos < len(lx.src) {
			c := lx.peek()
			if unicode.IsDigit(c) {
				lx.next()
				continue
			}
			if c == '.' && !sawDot {
				sawDot = true
				lx.next()
				continue
			}
			break
		}
		return Token{Type: TokenNumber, Val: lx.src[start:lx.pos], Pos: start}, nil

	default:
		// Multi-char operators first.
		two := ""
		if lx.pos+1 < len(lx.src) {
			two = lx.src[lx.pos : lx.pos+2]
		}
		switch two {
		case "<=", ">=", "<>", "!=", "||":
			lx.pos += 2
			return Token{Type: TokenSymbol, Val: two, Pos: start}, nil
		}
		switch r {
		case '(', ')', ',', '+', '-', '*', '/', '%', '=', '<', '>', '.', ';':
			lx.next()
			return Token{Type: TokenSymbol, Val: string(r), Pos: start}, nil
		}
		return Token{}, &ParseError{Pos: start, Message: fmt.Sprintf("unexpected character %q", r)}
	}
}

// tokenize scans the whole input. The parser works over the full slice
// so it can look ahead cheaply.
func tokenize(src string) ([]Token, error) {
	lx := newLexer(src)
	var toks []Token
	for {
		tok, err := lx.nextToken()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks, nil
		}
	}
}
