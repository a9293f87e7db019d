package calc

import (
	"testing"

	"github.com/fjl/gio-scicalc/giocalc/internal/funcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		name string
		want Token
	}{
		{"7", Digit('7')},
		{".", DecimalPoint},
		{"+", Operator(OpAdd)},
		{"×", Operator(OpMul)},
		{"÷", Operator(OpDiv)},
		{"x^y", Operator(OpPow)},
		{"=", Equals},
		{"AC", ClearAll},
		{"ac", ClearAll},
		{"ce", ClearEntry},
		{"⌫", Backspace},
		{"(", Special(KeyOpenParen)},
		{"%", Special(KeyPercent)},
		{"deg", Special(KeyDeg)},
		{"inv", Special(KeyInv)},
		{"exp", Special(KeyExp)},
		{"M+", Memory(MemAdd)},
		{"mr", Memory(MemRecall)},
		{"sin", Function(funcs.Sin)},
		{"e", Function(funcs.E)},
		{"pi", Function(funcs.Pi)},
		{"√", Function(funcs.Sqrt)},
		{"!", Function(funcs.Factorial)},
	}
	for _, tt := range tests {
		tok, err := ParseToken(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, tok, tt.name)
	}

	for _, name := range []string{"", "foo", "12", "sin(", "**"} {
		_, err := ParseToken(name)
		assert.Error(t, err, "%q", name)
	}
}

func TestParseTokens(t *testing.T) {
	toks, err := ParseTokens("  12.5 +\t3 sqrt = ")
	require.NoError(t, err)
	want := []Token{
		Digit('1'), Digit('2'), DecimalPoint, Digit('5'),
		Operator(OpAdd), Digit('3'), Function(funcs.Sqrt), Equals,
	}
	assert.Equal(t, want, toks)

	_, err = ParseTokens("1 + bogus")
	assert.EqualError(t, err, `unknown key "bogus"`)
}

func TestTokenString(t *testing.T) {
	for _, name := range []string{"7", ".", "+", "=", "AC", "CE", "DEL", "(", "rad", "MS", "M-", "cos", "x^2"} {
		tok, err := ParseToken(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, tok.String())
	}
}

func TestParseChars(t *testing.T) {
	toks, err := ParseChars("1.5e-8")
	require.NoError(t, err)
	want := []Token{Digit('1'), DecimalPoint, Digit('5'), Special(KeyExp), Operator(OpSub), Digit('8')}
	assert.Equal(t, want, toks)

	toks, err = ParseChars("2 × e")
	require.NoError(t, err)
	assert.Equal(t, []Token{Digit('2'), Operator(OpMul), Function(funcs.E)}, toks)

	_, err = ParseChars("2+x")
	assert.EqualError(t, err, `can't type 'x'`)
	_, err = ParseChars("E5")
	assert.Error(t, err)
}

func TestParseCharsTyping(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"1.5e-8", "1.5E-8"},
		{"2(3+4)=", "14"},
		{"(-5)=", "-5"},
		{"2^10=", "1024"},
		{"1e+21", "1E+21"},
		{"π", "3.14159265359"},
	}
	for _, tt := range tests {
		toks, err := ParseChars(tt.input)
		require.NoError(t, err, tt.input)
		e := New()
		for _, tok := range toks {
			e.Apply(tok)
		}
		assert.Equal(t, tt.want, e.Snapshot().Text, tt.input)
	}
}
