package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/value"
)

// Resolver maps a column name to its value on the row being evaluated.
type Resolver func(column string) value.Value

// Expr is a parsed formula node. Eval never fails; anything that cannot be
// computed degrades to Null.
type Expr interface {
	Eval(resolve Resolver) value.Value
	String() string
}

type NumberExpr struct {
	Value value.Value
}

func (n *NumberExpr) Eval(Resolver) value.Value { return n.Value }
func (n *NumberExpr) String() string          { return n.Value.Display() }

type StringExpr struct {
	Value string
}

func (n *StringExpr) Eval(Resolver) value.Value { return value.String(n.Value) }
func (n *StringExpr) String() string          { return strconv.Quote(n.Value) }

type RefExpr struct {
	Column string
}

func (n *RefExpr) Eval(resolve Resolver) value.Value {
	if resolve == nil {
		return value.Null()
	}
	return resolve(n.Column)
}

func (n *RefExpr) String() string {
	if isBareIdent(n.Column) {
		return n.Column
	}
	return "[" + n.Column + "]"
}

type NegExpr struct {
	Inner Expr
}

func (n *NegExpr) Eval(resolve Resolver) value.Value {
	f, ok := n.Inner.Eval(resolve).ToFloat()
	if !ok {
		return value.Null()
	}
	return value.Float(-f)
}

func (n *NegExpr) String() string { return "(-" + n.Inner.String() + ")" }

type Op byte

const (
	OpAdd Op = '+'
	OpSub Op = '-'
	OpMul Op = '*'
	OpDiv Op = '/'
)

type BinaryExpr struct {
	Op          Op
	Left, Right Expr
}

func (n *BinaryExpr) Eval(resolve Resolver) value.Value {
	return Apply(n.Op, n.Left.Eval(resolve), n.Right.Eval(resolve))
}

func (n *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %c %s)", n.Left, n.Op, n.Right)
}

// Parse parses a formula. A leading '=' and surrounding whitespace are
// ignored.
func Parse(src string) (Expr, error) {
	body := Normalize(src)
	if body == "" {
		return nil, sheeterr.New(sheeterr.KindFormula, "formula is empty")
	}
	tokens, err := Tokenize(body)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, sheeterr.New(sheeterr.KindFormula, "formula is empty")
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		tok := p.tokens[p.pos]
		return nil, sheeterr.New(sheeterr.KindFormula, "unexpected trailing %s at %d", tok.Type, tok.Pos)
	}
	return expr, nil
}

// Normalize returns the stored form of a formula: trimmed, without the
// leading '='.
func Normalize(src string) string {
	s := strings.TrimSpace(src)
	s = strings.TrimPrefix(s, "=")
	return strings.TrimSpace(s)
}

// Validate reports whether src parses.
func Validate(src string) error {
	_, err := Parse(src)
	return err
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || (tok.Type != TokenPlus && tok.Type != TokenMinus) {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		op := OpAdd
		if tok.Type == TokenMinus {
			op = OpSub
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || (tok.Type != TokenStar && tok.Type != TokenSlash) {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		op := OpMul
		if tok.Type == TokenSlash {
			op = OpDiv
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseFactor() (Expr, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, sheeterr.New(sheeterr.KindFormula, "expected expression at end of formula")
	}
	p.pos++
	switch tok.Type {
	case TokenMinus:
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &NegExpr{Inner: inner}, nil
	case TokenNumber:
		n, ok := value.ParseNumber(tok.Text)
		if !ok {
			return nil, sheeterr.New(sheeterr.KindFormula, "invalid number literal %q at %d", tok.Text, tok.Pos)
		}
		return &NumberExpr{Value: n}, nil
	case TokenString:
		return &StringExpr{Value: tok.Text}, nil
	case TokenIdent:
		return &RefExpr{Column: tok.Text}, nil
	case TokenLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.Type != TokenRParen {
			return nil, sheeterr.New(sheeterr.KindFormula, "missing closing ')' for '(' at %d", tok.Pos)
		}
		p.pos++
		return inner, nil
	default:
		return nil, sheeterr.New(sheeterr.KindFormula, "expected expression, found %s at %d", tok.Type, tok.Pos)
	}
}

func isBareIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentStart(s[i]) && !isDigit(s[i]) {
			return false
		}
	}
	return true
}
