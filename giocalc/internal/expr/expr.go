// Package expr evaluates parenthesised arithmetic expressions.
//
// The grammar is
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("-" | "+") unary | power
//	power   = primary [ "^" unary ]
//	primary = number | "π" | "e" | "φ" | "(" expr ")"
//	number  = digits [ "." digits ] [ "E" [ "+" | "-" ] digits ]
//
// so ^ binds tighter than unary minus and is right associative.
package expr

import (
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/fjl/gio-scicalc/giocalc/internal/calcerr"
)

const (
	// MaxLen is the longest accepted input in bytes.
	MaxLen = 1024
	// MaxDepth limits nesting of parentheses and unary operators.
	MaxDepth = 64
)

const golden = 1.618033988749894848204586834365638117720309179805762862135

// Evaluate computes the value of src.
func Evaluate(src string) (float64, error) {
	if len(src) > MaxLen {
		return 0, calcerr.NewSyntax("expression longer than %d bytes", MaxLen)
	}
	p := &parser{src: src}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if !p.eof() {
		if p.peek() == ')' {
			return 0, calcerr.NewSyntax("unbalanced )")
		}
		return 0, calcerr.NewSyntax("unexpected %q at offset %d", p.peek(), p.pos)
	}
	return v, nil
}

type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

func (p *parser) accept(r rune) bool {
	if p.eof() || p.peek() != r {
		return false
	}
	p.pos += utf8.RuneLen(r)
	return true
}

func (p *parser) skipSpaces() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.accept('+'):
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			if v, err = apply('+', v, rhs); err != nil {
				return 0, err
			}
		case p.accept('-'):
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			if v, err = apply('-', v, rhs); err != nil {
				return 0, err
			}
		default:
			return v, nil
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.accept('*'):
			rhs, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if v, err = apply('*', v, rhs); err != nil {
				return 0, err
			}
		case p.accept('/'):
			rhs, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if v, err = apply('/', v, rhs); err != nil {
				return 0, err
			}
		default:
			return v, nil
		}
	}
}

func (p *parser) parseUnary() (float64, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		return 0, calcerr.NewSyntax("expression nested deeper than %d", MaxDepth)
	}

	p.skipSpaces()
	switch {
	case p.accept('-'):
		v, err := p.parseUnary()
		return -v, err
	case p.accept('+'):
		return p.parseUnary()
	default:
		return p.parsePower()
	}
}

func (p *parser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if !p.accept('^') {
		return base, nil
	}
	exp, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	return apply('^', base, exp)
}

func (p *parser) parsePrimary() (float64, error) {
	p.skipSpaces()
	if p.eof() {
		return 0, calcerr.NewSyntax("unexpected end of expression")
	}
	switch c := p.peek(); {
	case p.accept('('):
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if !p.accept(')') {
			return 0, calcerr.NewSyntax("missing )")
		}
		return v, nil
	case p.accept('π'):
		return math.Pi, nil
	case p.accept('e'):
		return math.E, nil
	case p.accept('φ'):
		return golden, nil
	case isDigit(c) || c == '.':
		return p.readNumber()
	default:
		return 0, calcerr.NewSyntax("unexpected %q at offset %d", c, p.pos)
	}
}

// readNumber reads a decimal literal with optional E exponent.
func (p *parser) readNumber() (float64, error) {
	start := p.pos
	digits := p.skipDigits()
	if p.accept('.') {
		digits += p.skipDigits()
	}
	if digits == 0 {
		return 0, calcerr.NewSyntax("malformed number at offset %d", start)
	}
	if p.accept('E') {
		if !p.accept('-') {
			p.accept('+')
		}
		if p.skipDigits() == 0 {
			return 0, calcerr.NewSyntax("missing exponent at offset %d", p.pos)
		}
	}
	lit := p.src[start:p.pos]
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil && !math.IsInf(v, 0) {
		return 0, calcerr.NewSyntax("malformed number %q", lit)
	}
	if math.IsInf(v, 0) {
		return 0, calcerr.NewOverflow("", "%s is out of range", lit)
	}
	return v, nil
}

func (p *parser) skipDigits() int {
	n := 0
	for !p.eof() && isDigit(rune(p.src[p.pos])) {
		p.pos++
		n++
	}
	return n
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// apply computes a binary operation.
func apply(op byte, x, y float64) (float64, error) {
	var v float64
	switch op {
	case '+':
		v = x + y
	case '-':
		v = x - y
	case '*':
		v = x * y
	case '/':
		if y == 0 {
			return 0, calcerr.NewDomain("/", "division by zero")
		}
		v = x / y
	case '^':
		v = math.Pow(x, y)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, calcerr.NewOverflow(string(op), "result of %g %c %g is not finite", x, op, y)
	}
	return v, nil
}
