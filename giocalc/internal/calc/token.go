package calc

import (
	"fmt"
	"strings"

	"github.com/fjl/gio-scicalc/giocalc/internal/funcs"
)

// Kind is the type of a Token.
type Kind uint8

const (
	KindDigit Kind = iota + 1
	KindDecimal
	KindOperator
	KindFunction
	KindKey
	KindEquals
	KindClearAll
	KindClearEntry
	KindBackspace
	KindMemory
)

// Op is a binary operator.
type Op uint8

const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
)

func (op Op) String() string {
	switch op {
	case OpNone:
		return ""
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

// Key is a function key that is not backed by the function table.
type Key uint8

const (
	KeyOpenParen Key = iota + 1
	KeyCloseParen
	KeyPercent
	KeyRad
	KeyDeg
	KeyInv
	KeyAns
	KeyExp // scientific-notation marker
)

var keyNames = map[Key]string{
	KeyOpenParen:  "(",
	KeyCloseParen: ")",
	KeyPercent:    "%",
	KeyRad:        "rad",
	KeyDeg:        "deg",
	KeyInv:        "inv",
	KeyAns:        "ans",
	KeyExp:        "exp",
}

func (k Key) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Key(%d)", uint8(k))
}

// MemOp is a memory key.
type MemOp uint8

const (
	MemStore MemOp = iota + 1
	MemRecall
	MemClear
	MemAdd
	MemSub
)

var memNames = map[MemOp]string{
	MemStore:  "MS",
	MemRecall: "MR",
	MemClear:  "MC",
	MemAdd:    "M+",
	MemSub:    "M-",
}

func (m MemOp) String() string {
	if s, ok := memNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MemOp(%d)", uint8(m))
}

// Token is a single key press.
type Token struct {
	Kind  Kind
	Digit byte     // KindDigit
	Op    Op       // KindOperator
	Func  funcs.ID // KindFunction
	Key   Key      // KindKey
	Mem   MemOp    // KindMemory
}

// Tokens without arguments.
var (
	DecimalPoint = Token{Kind: KindDecimal}
	Equals       = Token{Kind: KindEquals}
	ClearAll     = Token{Kind: KindClearAll}
	ClearEntry   = Token{Kind: KindClearEntry}
	Backspace    = Token{Kind: KindBackspace}
)

// Digit returns the token for digit d ('0'..'9').
func Digit(d byte) Token { return Token{Kind: KindDigit, Digit: d} }

// Operator returns the token for a binary operator key.
func Operator(op Op) Token { return Token{Kind: KindOperator, Op: op} }

// Function returns the token for a function-table key.
func Function(id funcs.ID) Token { return Token{Kind: KindFunction, Func: id} }

// Special returns the token for a non-table function key.
func Special(k Key) Token { return Token{Kind: KindKey, Key: k} }

// Memory returns the token for a memory key.
func Memory(m MemOp) Token { return Token{Kind: KindMemory, Mem: m} }

func (t Token) String() string {
	switch t.Kind {
	case KindDigit:
		return string(t.Digit)
	case KindDecimal:
		return "."
	case KindOperator:
		return t.Op.String()
	case KindFunction:
		return t.Func.String()
	case KindKey:
		return t.Key.String()
	case KindEquals:
		return "="
	case KindClearAll:
		return "AC"
	case KindClearEntry:
		return "CE"
	case KindBackspace:
		return "DEL"
	case KindMemory:
		return t.Mem.String()
	default:
		return "?"
	}
}

var words = map[string]Token{
	".":   DecimalPoint,
	"+":   Operator(OpAdd),
	"-":   Operator(OpSub),
	"*":   Operator(OpMul),
	"×":   Operator(OpMul),
	"/":   Operator(OpDiv),
	"÷":   Operator(OpDiv),
	"^":   Operator(OpPow),
	"x^y": Operator(OpPow),
	"=":   Equals,
	"AC":  ClearAll,
	"CE":  ClearEntry,
	"DEL": Backspace,
	"⌫":   Backspace,
}

func init() {
	for k, name := range keyNames {
		words[name] = Special(k)
	}
	for m, name := range memNames {
		words[name] = Memory(m)
	}
}

// ParseToken maps a key name to its token. Accepted names are the digits,
// ".", the operators + - * / ^, "=", "AC", "CE", "DEL", the memory keys
// MS MR MC M+ M-, the keys ( ) % rad deg inv ans exp and every function
// table name.
func ParseToken(s string) (Token, error) {
	if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
		return Digit(s[0]), nil
	}
	if tok, ok := words[s]; ok {
		return tok, nil
	}
	if tok, ok := words[strings.ToUpper(s)]; ok {
		return tok, nil
	}
	if id, ok := funcs.Lookup(s); ok {
		return Function(id), nil
	}
	return Token{}, fmt.Errorf("unknown key %q", s)
}

// ParseTokens splits line into whitespace-separated key names. A word made
// only of digits and '.' is typed one character at a time, so "12.5" is
// four key presses.
func ParseTokens(line string) ([]Token, error) {
	var toks []Token
	for _, w := range strings.Fields(line) {
		if isNumberWord(w) {
			for i := 0; i < len(w); i++ {
				if w[i] == '.' {
					toks = append(toks, DecimalPoint)
				} else {
					toks = append(toks, Digit(w[i]))
				}
			}
			continue
		}
		tok, err := ParseToken(w)
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

var chars = map[rune]Token{
	'.': DecimalPoint,
	'+': Operator(OpAdd),
	'-': Operator(OpSub),
	'*': Operator(OpMul),
	'×': Operator(OpMul),
	'/': Operator(OpDiv),
	'÷': Operator(OpDiv),
	'^': Operator(OpPow),
	'(': Special(KeyOpenParen),
	')': Special(KeyCloseParen),
	'%': Special(KeyPercent),
	'=': Equals,
	'π': Function(funcs.Pi),
	'e': Function(funcs.E),
	'φ': Function(funcs.Phi),
}

// ParseChars maps typed or pasted text to key presses, one per character.
// An 'e' or 'E' directly after a digit is the exponent key, so displayed
// results like "1.5e-8" can be typed back. Spaces are ignored.
func ParseChars(s string) ([]Token, error) {
	var (
		toks []Token
		prev rune
	)
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t':
		case r >= '0' && r <= '9':
			toks = append(toks, Digit(byte(r)))
		case (r == 'e' || r == 'E') && ((prev >= '0' && prev <= '9') || prev == '.'):
			toks = append(toks, Special(KeyExp))
		default:
			tok, ok := chars[r]
			if !ok {
				return nil, fmt.Errorf("can't type %q", r)
			}
			toks = append(toks, tok)
		}
		prev = r
	}
	return toks, nil
}

func isNumberWord(w string) bool {
	for i := 0; i < len(w); i++ {
		if (w[i] < '0' || w[i] > '9') && w[i] != '.' {
			return false
		}
	}
	return len(w) > 1
}
