// Package numfmt converts between display strings and float64 values.
package numfmt

import (
	"math"
	"strconv"
	"strings"

	"github.com/fjl/gio-scicalc/giocalc/internal/calcerr"
	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of significant digits shown for results.
const DefaultPrecision = 12

// MaxPrecision is the most significant digits a float64 carries.
const MaxPrecision = 17

// Results with a decimal exponent outside [minFixedExp, maxFixedExp) are
// shown in scientific notation.
const (
	minFixedExp = -6
	maxFixedExp = 21
)

// Formatter renders results for the display.
type Formatter struct {
	Precision int // significant digits, 1..17
}

func (f Formatter) precision() int {
	switch {
	case f.Precision <= 0:
		return DefaultPrecision
	case f.Precision > MaxPrecision:
		return MaxPrecision
	default:
		return f.Precision
	}
}

// Format renders x rounded to the formatter's precision. Non-finite values
// have no display form and render as the empty string.
func (f Formatter) Format(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ""
	}
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'g', f.precision(), 64), 64)
	if rounded == 0 {
		return "0"
	}
	sci := strconv.FormatFloat(rounded, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < minFixedExp || exp >= maxFixedExp {
		return trimExponent(sci)
	}
	// The shortest round-trip digits; NewFromFloat would cut them to 16.
	return decimal.RequireFromString(strconv.FormatFloat(rounded, 'f', -1, 64)).String()
}

// trimExponent turns "1e-08" into "1e-8".
func trimExponent(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 || i+2 >= len(s) {
		return s
	}
	mant, sign, digits := s[:i], s[i+1], strings.TrimLeft(s[i+2:], "0")
	if digits == "" {
		digits = "0"
	}
	return mant + "e" + string(sign) + digits
}

// Parse reads a number as typed on the keypad: digits, at most one '.', an
// optional leading sign and an optional E exponent.
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, calcerr.NewSyntax("empty number")
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '.', c == '+', c == '-', c == 'E', c == 'e':
		default:
			return 0, calcerr.NewSyntax("invalid character %q in number %q", c, s)
		}
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			if x == 0 {
				return 0, nil // underflow
			}
			return 0, calcerr.NewOverflow("", "%s is out of range", s)
		}
		return 0, calcerr.NewSyntax("invalid number %q", s)
	}
	return x, nil
}

// Check converts a non-finite result of op into an overflow error.
func Check(op string, x float64) (float64, error) {
	if math.IsNaN(x) {
		return 0, calcerr.NewOverflow(op, "result is not a number")
	}
	if math.IsInf(x, 0) {
		return 0, calcerr.NewOverflow(op, "result is infinite")
	}
	return x, nil
}

// Text is the display sentinel shown for err.
func Text(err error) string {
	switch calcerr.KindOf(err) {
	case calcerr.Syntax:
		return "Syntax Error"
	case calcerr.Overflow:
		return "Overflow"
	default:
		return "Error"
	}
}
