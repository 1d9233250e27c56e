package sqlparse

import "strings"

// TokenType classifies lexer output.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenKeyword
	TokenNumber
	TokenString
	TokenSymbol
)

// Token is one lexical unit with its byte offset in the input.
type Token struct {
	Type TokenType
	// Val holds the token text. Keywords are uppercased; identifiers,
	// numbers and symbols are verbatim; strings are unquoted.
	Val string
	Pos int
}

// keywords recognized by the lexer. Identifiers matching these
// (case-insensitively) are emitted as TokenKeyword.
var keywords = map[string]bool{
	"SELECT": true, "DISTINCT": true, "ALL": true, "FROM": true,
	"WHERE": true, "GROUP": true, "BY": true, "HAVING": true,
	"ORDER": true, "ASC": true, "DESC": true, "LIMIT": true,
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true,
	"FULL": true, "OUTER": true, "CROSS": true, "NATURAL": true,
	"ON": true, "USING": true, "AS": true,
	"UNION": true, "INTERSECT": true, "EXCEPT": true,
	"AND": true, "OR": true, "NOT": true,
	"IN": true, "EXISTS": true, "BETWEEN": true, "IS": true,
	"NULL": true, "TRUE": true, "FALSE": true,
	"CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true,
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,

	// Recognized so we can reject them with a precise UnsupportedError
	// instead of a generic parse failure.
	"WITH": true, "OVER": true, "PARTITION": true, "RECURSIVE": true,
	"INSERT": true, "UPDATE": true, "DELETE": true, "CREATE": true,
	"DROP": true, "WINDOW": true, "OFFSET": true, "FETCH": true,
	"LIKE": true, "DISTINCTROW": true,
}

// aggregateNames are function names translated as SQL aggregates.
var aggregateNames = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

// isKeyword reports whether up (already uppercased) is a keyword.
func isKeyword(up string) bool {
	return keywords[up]
}

// upper uppercases ASCII identifiers; the SQL subset has ASCII keywords.
func upper(s string) string {
	return strings.ToUpper(s)
}
