package calc

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/fjl/gio-scicalc/giocalc/internal/calcerr"
	"github.com/fjl/gio-scicalc/giocalc/internal/funcs"
)

func TestCalcInput(t *testing.T) {
	c := New()
	// input integer
	press(t, c, "1 2 3")
	check(t, c, "123")
	// redo last digit
	press(t, c, "DEL 4")
	check(t, c, "124")
	// decimal point
	press(t, c, ".")
	check(t, c, "124.")
	press(t, c, "6 7")
	check(t, c, "124.67")
	// rubout decimals
	press(t, c, "DEL")
	check(t, c, "124.6")
	press(t, c, "DEL")
	check(t, c, "124.")
	press(t, c, "DEL")
	check(t, c, "124")
}

func TestCalcBadInput(t *testing.T) {
	c := New()
	press(t, c, "1 2 3")
	check(t, c, "123")
	c.Apply(Digit('a'))
	check(t, c, "123")
	press(t, c, ".")
	check(t, c, "123.")
	press(t, c, "2")
	check(t, c, "123.2")
	press(t, c, ".")
	check(t, c, "123.2")
}

func TestCalcDigits(t *testing.T) {
	for _, s := range []string{"0", "7", "007", "12.5", ".5", "3.", "."} {
		c := New()
		press(t, c, strings.Join(strings.Split(s, ""), " "))
		check(t, c, s)
	}

	// A shown result is replaced by the next number.
	c := New()
	press(t, c, "2 + 3 = 4 5")
	check(t, c, "45")
}

func TestCalcBackspace(t *testing.T) {
	c := New()
	press(t, c, "DEL DEL")
	check(t, c, "0")
	press(t, c, "1 2 3 DEL")
	check(t, c, "12")
	press(t, c, "DEL DEL")
	check(t, c, "0")
	press(t, c, "DEL")
	check(t, c, "0")
}

func TestCalcArithmetic(t *testing.T) {
	tests := []struct {
		keys, want string
	}{
		{"2 + 3 =", "5"},
		{"10 - 4 =", "6"},
		{"5 * 4 =", "20"},
		{"20 / 4 =", "5"},
		{"2 ^ 3 =", "8"},
		{"134.2 / 2 =", "67.1"},
		{"0.1 + 0.2 =", "0.3"},
		// chained operators are evaluated left to right
		{"2 + 3 * 2 =", "10"},
		{"1 + 2 + 3 + 4 =", "10"},
		// operator replacement
		{"2 + - 3 =", "-1"},
		// percent
		{"50 + 10 % =", "55"},
		{"10 %", "0.1"},
		{"200 * 5 % =", "2000"},
		// result chaining
		{"2 + 3 = * 4 =", "20"},
		{"2 + 9 sqrt =", "5"},
		// equals without operation
		{"7 =", "7"},
		{"+", "0"},
		{"2 + =", "2"},
	}
	for _, tt := range tests {
		c := New()
		press(t, c, tt.keys)
		checkf(t, c, tt.want, "keys %q", tt.keys)
	}
}

func TestCalcOpTwice(t *testing.T) {
	c := New()
	press(t, c, "1 3 3 4")
	s := c.Apply(Operator(OpDiv))
	if s.Pending != OpDiv {
		t.Fatalf("wrong pending op %v", s.Pending)
	}
	c.Apply(Operator(OpDiv))
	check(t, c, "1334")
	press(t, c, "=")
	check(t, c, "1334")
	press(t, c, "2 =")
	check(t, c, "667")
}

func TestCalcReplaceOperator(t *testing.T) {
	c := New()
	s := press(t, c, "8 + *")
	if s.Pending != OpMul {
		t.Fatalf("wrong pending op %v", s.Pending)
	}
	check(t, c, "8")
	press(t, c, "3 =")
	check(t, c, "24")
}

func TestCalcDivideByZero(t *testing.T) {
	c := New()
	s := press(t, c, "1 / 0 =")
	check(t, c, "Error")
	if !errors.Is(s.Err, calcerr.ErrDomain) {
		t.Fatalf("wrong error %v", s.Err)
	}
	if s.Numeric {
		t.Fatal("error display reported as numeric")
	}
	// operators don't apply to the error
	press(t, c, "+")
	check(t, c, "Error")
	// the next digit recovers
	press(t, c, "7")
	check(t, c, "7")
	if c.State().Err != nil || c.State().Pending != OpNone {
		t.Fatalf("state not recovered: %s", spew.Sdump(c.State()))
	}
}

func TestCalcErrorRecovery(t *testing.T) {
	for _, keys := range []string{"AC", "CE", "DEL", "π", "MR", "("} {
		c := New()
		press(t, c, "0 ln")
		check(t, c, "Error")
		s := press(t, c, keys)
		if s.Err != nil {
			t.Fatalf("%s did not recover from error: %s", keys, spew.Sdump(c.State()))
		}
	}
}

func TestCalcFunctions(t *testing.T) {
	tests := []struct {
		keys, want string
	}{
		{"2 5 sqrt", "5"},
		{"5 x^2", "25"},
		{"2 x^3", "8"},
		{"4 1/x", "0.25"},
		{"1 0 0 log", "2"},
		{"e ln", "1"},
		{"8 log2", "3"},
		{"3 10^x", "1000"},
		{"1 0 2^x", "1024"},
		{"5 !", "120"},
		{"0 - 1 0 = abs", "10"},
		{"3.14 round", "3"},
		{"3.99 floor", "3"},
		{"3.01 ceil", "4"},
		{"π", "3.14159265359"},
		{"e", "2.71828182846"},
		{"phi", "1.61803398875"},
		{"9 π", "3.14159265359"},
		{"5 x^2 x^2", "625"},
	}
	for _, tt := range tests {
		c := New()
		s := press(t, c, tt.keys)
		checkf(t, c, tt.want, "keys %q", tt.keys)
		if s.Err != nil {
			t.Fatalf("keys %q: unexpected error %v", tt.keys, s.Err)
		}
	}
}

func TestCalcFunctionWithoutEntry(t *testing.T) {
	c := New()
	press(t, c, "sqrt")
	check(t, c, "0")
	press(t, c, "4 + sin")
	check(t, c, "4")
	press(t, c, "9 =")
	check(t, c, "13")
}

func TestCalcDomainErrors(t *testing.T) {
	tests := []struct {
		keys string
		want error
		text string
	}{
		{"0 1/x", calcerr.ErrDomain, "Error"},
		{"0 ln", calcerr.ErrDomain, "Error"},
		{"0 - 1 = log", calcerr.ErrDomain, "Error"},
		{"0 - 4 = sqrt", calcerr.ErrDomain, "Error"},
		{"2 inv sin", calcerr.ErrDomain, "Error"},
		{"inv 0 cosh", calcerr.ErrDomain, "Error"},
		{"inv 1 tanh", calcerr.ErrDomain, "Error"},
		{"2.5 !", calcerr.ErrDomain, "Error"},
		{"1 7 1 !", calcerr.ErrOverflow, "Overflow"},
		{"1 0 ^ 4 0 0 =", calcerr.ErrOverflow, "Overflow"},
	}
	for _, tt := range tests {
		c := New()
		s := press(t, c, tt.keys)
		checkf(t, c, tt.text, "keys %q", tt.keys)
		if !errors.Is(s.Err, tt.want) {
			t.Fatalf("keys %q: wrong error %v, want %v", tt.keys, s.Err, tt.want)
		}
	}
}

func TestCalcAngleMode(t *testing.T) {
	tests := []struct {
		keys, want string
	}{
		{"deg 9 0 sin", "1"},
		{"deg 0 cos", "1"},
		{"deg 4 5 tan", "1"},
		{"deg 9 0 cos", "0"},
		{"rad π / 2 = sin", "1"},
		{"deg inv 1 sin", "90"},
		{"deg inv 0.5 cos", "60"},
	}
	for _, tt := range tests {
		c := New()
		press(t, c, tt.keys)
		checkf(t, c, tt.want, "keys %q", tt.keys)
	}

	// Switching the mode does not change a shown result.
	c := New()
	press(t, c, "deg 9 0 sin")
	s := press(t, c, "rad")
	check(t, c, "1")
	if s.Angle != funcs.Rad {
		t.Fatalf("wrong angle mode %v", s.Angle)
	}
}

func TestCalcInverse(t *testing.T) {
	c := New()
	s := press(t, c, "inv 1 sin")
	if !s.Inverse {
		t.Fatal("inverse mode not active")
	}
	if math.Abs(s.Value-math.Pi/2) > 1e-8 {
		t.Fatalf("asin(1) = %v", s.Value)
	}
	if st := c.State(); math.Abs(st.Answer-math.Pi/2) > 1e-15 {
		t.Fatalf("answer %v not at full precision", st.Answer)
	}

	c = New()
	press(t, c, "inv 1 ln")
	check(t, c, "2.71828182846")

	c = New()
	press(t, c, "inv 5 sqrt")
	check(t, c, "25")

	// toggling twice restores the direct functions
	c = New()
	s = press(t, c, "inv inv 2 5 sqrt")
	check(t, c, "5")
	if s.Inverse {
		t.Fatal("inverse mode still active")
	}
}

func TestCalcMemory(t *testing.T) {
	tests := []struct {
		keys, want string
	}{
		{"1 2 MS AC MR", "12"},
		{"5 MS MC AC MR", "0"},
		{"1 0 MS 5 M+ AC MR", "15"},
		{"2 0 MS 5 M- AC MR", "15"},
		// operand falls back to the display
		{"7 + MS AC MR", "7"},
		{"2 + 3 = MS AC MR", "5"},
		// invalid operand is ignored
		{"4 MS . M+ AC MR", "4"},
		{"4 MS 0 ln M+ AC MR", "4"},
		// storing an expression doesn't end it
		{"( 2 + 3 ) MS * 4 =", "20"},
		{"( 2 + 3 ) MS * 4 = AC MR", "5"},
		{"( 1 + 1 ) M+ - 1 =", "1"},
	}
	for _, tt := range tests {
		c := New()
		press(t, c, tt.keys)
		checkf(t, c, tt.want, "keys %q", tt.keys)
	}

	c := New()
	s := press(t, c, "5 MS")
	if !s.MemorySet {
		t.Fatal("memory indicator not set")
	}
	s = press(t, c, "MC")
	if s.MemorySet {
		t.Fatal("memory indicator still set")
	}
	press(t, c, "AC MR AC MR")
	check(t, c, "0")
	press(t, c, "3 MS AC MR")
	check(t, c, "3")
}

func TestCalcClear(t *testing.T) {
	c := New()
	s := press(t, c, "deg inv 5 MS 2 + 3 = AC")
	check(t, c, "0")
	if s.Angle != funcs.Deg {
		t.Fatal("AC reset the angle mode")
	}
	if s.Inverse {
		t.Fatal("AC did not reset inverse mode")
	}
	if !s.MemorySet {
		t.Fatal("AC cleared memory")
	}
	if c.State().HasAnswer {
		t.Fatal("AC did not clear the last answer")
	}

	c = New(WithClearResetsAngle(true))
	s = press(t, c, "deg AC")
	if s.Angle != funcs.Rad {
		t.Fatal("AC did not reset the angle mode")
	}

	c = New()
	press(t, c, "1 2 3 CE")
	check(t, c, "0")
	press(t, c, "4")
	check(t, c, "4")

	c = New()
	press(t, c, "2 + 3 CE 4 =")
	check(t, c, "6")
}

func TestCalcExpression(t *testing.T) {
	tests := []struct {
		keys, want string
	}{
		{"( 2 + 3 ) * 4 =", "20"},
		{"( 2 + 3 * 4 ) =", "14"},
		{"2 ( 3 ) =", "6"},
		{"2 * ( 3 + 4 ) =", "14"},
		{"( 2 + 3 ) 4 =", "20"},
		{"( π * 2 ) =", "6.28318530718"},
		{"( 2 ^ ( 3 ) ) =", "8"},
		{"( 1.5 + 2.5 ) =", "4"},
		{"( 2 + 3 ) sqrt", "2.2360679775"},
		{"( 2 + 3", "(2+3"},
		{"( 2 + 3 sqrt", "(2+3"},
		{") )", "0"},
		{"( 2 + 3 ) ) =", "5"},
		{"2 + 3 = ( 1 ) =", "1"},
	}
	for _, tt := range tests {
		c := New()
		press(t, c, tt.keys)
		checkf(t, c, tt.want, "keys %q", tt.keys)
	}

	c := New()
	s := press(t, c, "( 2 + 3 =")
	check(t, c, "Syntax Error")
	if !errors.Is(s.Err, calcerr.ErrSyntax) {
		t.Fatalf("wrong error %v", s.Err)
	}

	c = New()
	s = press(t, c, "( 1 / 0 ) =")
	check(t, c, "Error")
	if !errors.Is(s.Err, calcerr.ErrDomain) {
		t.Fatalf("wrong error %v", s.Err)
	}
}

func TestCalcExponent(t *testing.T) {
	c := New()
	press(t, c, "1.2 exp 3")
	check(t, c, "1.2E3")
	press(t, c, "+ 1 =")
	check(t, c, "1201")

	c = New()
	press(t, c, "2 exp - 3 * 1 0 0 0 =")
	check(t, c, "2")

	c = New()
	press(t, c, "2 exp exp .")
	check(t, c, "2E")

	c = New()
	press(t, c, "exp")
	check(t, c, "0")
}

func TestCalcAnswer(t *testing.T) {
	c := New()
	press(t, c, "ans")
	check(t, c, "0")
	press(t, c, "2 + 3 = CE ans")
	check(t, c, "5")
	press(t, c, "* 2 =")
	check(t, c, "10")
	press(t, c, "( ans + 1 ) =")
	check(t, c, "11")
	press(t, c, "AC ans")
	check(t, c, "0")

	// scientific results keep their exponent inside expressions
	c = New()
	press(t, c, "1 0 ^ 2 1 = CE ( ans * 2 ) =")
	check(t, c, "2e+21")
}

func TestCalcResult(t *testing.T) {
	c := New()
	s := press(t, c, "2 + 3")
	if s.Result != nil {
		t.Fatalf("unexpected result %v", s.Result)
	}
	s = press(t, c, "=")
	if s.Result == nil || s.Result.Expr != "2 + 3" || s.Result.Text != "5" || s.Result.Value != 5 {
		t.Fatalf("wrong result %s", spew.Sdump(s.Result))
	}
	s = press(t, c, "sqrt")
	if s.Result == nil || s.Result.Expr != "sqrt(5)" {
		t.Fatalf("wrong result %s", spew.Sdump(s.Result))
	}
	s = press(t, c, "=")
	if s.Result != nil {
		t.Fatalf("unexpected result %v", s.Result)
	}
}

func TestCalcOptions(t *testing.T) {
	c := New(WithPrecision(4))
	press(t, c, "1 / 3 =")
	check(t, c, "0.3333")

	c = New(WithRand(func() float64 { return 0.5 }))
	press(t, c, "rand")
	check(t, c, "0.5")

	c = New(WithAngleMode(funcs.Deg))
	press(t, c, "3 0 sin")
	check(t, c, "0.5")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c = New(WithLogger(logger))
	press(t, c, "1 / 0 =")
	if !strings.Contains(buf.String(), "Calculation failed") {
		t.Fatalf("error not logged: %q", buf.String())
	}
}

func press(t *testing.T, c *Engine, keys string) Snapshot {
	t.Helper()
	toks, err := ParseTokens(keys)
	if err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	for _, tok := range toks {
		snap = c.Apply(tok)
	}
	return snap
}

func check(t *testing.T, c *Engine, text string) {
	t.Helper()
	checkf(t, c, text, "")
}

func checkf(t *testing.T, c *Engine, text string, format string, args ...interface{}) {
	t.Helper()
	if got := c.Snapshot().Text; got != text {
		t.Fatalf("wrong text %s\n  got: %q\n want: %q\nstate: %s", fmt.Sprintf(format, args...), got, text, spew.Sdump(c.State()))
	}
}
