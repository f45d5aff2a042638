package formula

import (
	"strings"

	"github.com/witanlabs/jsheet/internal/sheeterr"
)

type TokenType int

const (
	TokenNumber TokenType = iota
	TokenString
	TokenIdent
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenLParen
	TokenRParen
)

// Token is one lexical unit. Text holds the literal source for numbers, the
// unescaped contents for strings and the column name for identifiers.
type Token struct {
	Type TokenType
	Text string
	Pos  int
}

func (t TokenType) String() string {
	switch t {
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenIdent:
		return "identifier"
	case TokenPlus:
		return "'+'"
	case TokenMinus:
		return "'-'"
	case TokenStar:
		return "'*'"
	case TokenSlash:
		return "'/'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	default:
		return "token"
	}
}

// Tokenize splits a formula body (without the leading '=') into tokens.
func Tokenize(src string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case isDigit(ch) || ch == '.':
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			text := src[start:i]
			if strings.Count(text, ".") > 1 || text == "." {
				return nil, sheeterr.New(sheeterr.KindFormula, "invalid number literal %q at %d", text, start)
			}
			tokens = append(tokens, Token{Type: TokenNumber, Text: text, Pos: start})
		case ch == '"':
			text, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Type: TokenString, Text: text, Pos: i})
			i = next
		case ch == '[':
			end := strings.IndexByte(src[i+1:], ']')
			if end < 0 {
				return nil, sheeterr.New(sheeterr.KindFormula, "unterminated bracket identifier at %d", i)
			}
			name := src[i+1 : i+1+end]
			if strings.TrimSpace(name) == "" {
				return nil, sheeterr.New(sheeterr.KindFormula, "empty bracket identifier at %d", i)
			}
			tokens = append(tokens, Token{Type: TokenIdent, Text: name, Pos: i})
			i += end + 2
		case isIdentStart(ch):
			start := i
			for i < len(src) && (isIdentStart(src[i]) || isDigit(src[i])) {
				i++
			}
			tokens = append(tokens, Token{Type: TokenIdent, Text: src[start:i], Pos: start})
		default:
			typ, ok := operators[ch]
			if !ok {
				return nil, sheeterr.New(sheeterr.KindFormula, "unexpected character %q at %d", string(rune(ch)), i)
			}
			tokens = append(tokens, Token{Type: typ, Text: string(ch), Pos: i})
			i++
		}
	}
	return tokens, nil
}

var operators = map[byte]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'(': TokenLParen,
	')': TokenRParen,
}

// lexString reads a double-quoted literal starting at src[start] and returns
// the unescaped text plus the offset just past the closing quote.
func lexString(src string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		ch := src[i]
		switch ch {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(src) {
				return "", 0, sheeterr.New(sheeterr.KindFormula, "unterminated string literal at %d", start)
			}
			switch esc := src[i+1]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"', '\\':
				b.WriteByte(esc)
			default:
				b.WriteByte(esc)
			}
			i += 2
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return "", 0, sheeterr.New(sheeterr.KindFormula, "unterminated string literal at %d", start)
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
