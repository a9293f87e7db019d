// Package funcs implements the calculator's unary function keys.
package funcs

import (
	"math"
	"math/rand"

	"github.com/fjl/gio-scicalc/giocalc/internal/calcerr"
)

// ID identifies a function key.
type ID uint8

const (
	Sin ID = iota
	Cos
	Tan
	Asin
	Acos
	Atan
	Sinh
	Cosh
	Tanh
	Asinh
	Acosh
	Atanh
	Log
	Ln
	Log2
	Sqrt
	Pow10
	Pow2
	Exp
	Square
	Cube
	Reciprocal
	Abs
	Round
	Floor
	Ceil
	Pi
	E
	Phi
	Rand
	Factorial

	numIDs
)

// AngleMode selects the unit of trigonometric arguments and results.
type AngleMode uint8

const (
	Rad AngleMode = iota
	Deg
)

func (m AngleMode) String() string {
	if m == Deg {
		return "DEG"
	}
	return "RAD"
}

// ParseAngleMode parses "rad" or "deg" in any case.
func ParseAngleMode(s string) (AngleMode, bool) {
	switch s {
	case "rad", "RAD", "Rad":
		return Rad, true
	case "deg", "DEG", "Deg":
		return Deg, true
	}
	return Rad, false
}

// golden is the golden ratio (1+√5)/2.
const golden = 1.618033988749894848204586834365638117720309179805762862135

// angle conversion applied around an entry's transform.
type conversion uint8

const (
	convNone conversion = iota
	convArg             // argument is converted from degrees
	convResult          // result is converted to degrees
	convNullary         // argument is ignored
)

type entry struct {
	name  string
	label string
	conv  conversion
	fn    func(x float64) (float64, error)
}

func pure(f func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) { return f(x), nil }
}

func constant(c float64) func(float64) (float64, error) {
	return func(float64) (float64, error) { return c, nil }
}

var table = [numIDs]entry{
	Sin:        {"sin", "sin", convArg, pure(math.Sin)},
	Cos:        {"cos", "cos", convArg, pure(math.Cos)},
	Tan:        {"tan", "tan", convArg, pure(math.Tan)},
	Asin:       {"asin", "sin⁻¹", convResult, unitInterval("asin", math.Asin)},
	Acos:       {"acos", "cos⁻¹", convResult, unitInterval("acos", math.Acos)},
	Atan:       {"atan", "tan⁻¹", convResult, pure(math.Atan)},
	Sinh:       {"sinh", "sinh", convArg, pure(math.Sinh)},
	Cosh:       {"cosh", "cosh", convArg, pure(math.Cosh)},
	Tanh:       {"tanh", "tanh", convArg, pure(math.Tanh)},
	Asinh:      {"asinh", "sinh⁻¹", convResult, pure(math.Asinh)},
	Acosh:      {"acosh", "cosh⁻¹", convResult, acosh},
	Atanh:      {"atanh", "tanh⁻¹", convResult, atanh},
	Log:        {"log", "log", convNone, positive("log", math.Log10)},
	Ln:         {"ln", "ln", convNone, positive("ln", math.Log)},
	Log2:       {"log2", "log₂", convNone, positive("log2", math.Log2)},
	Sqrt:       {"sqrt", "√", convNone, sqrt},
	Pow10:      {"10^x", "10ˣ", convNone, pure(func(x float64) float64 { return math.Pow(10, x) })},
	Pow2:       {"2^x", "2ˣ", convNone, pure(math.Exp2)},
	Exp:        {"e^x", "eˣ", convNone, pure(math.Exp)},
	Square:     {"x^2", "x²", convNone, pure(func(x float64) float64 { return x * x })},
	Cube:       {"x^3", "x³", convNone, pure(func(x float64) float64 { return x * x * x })},
	Reciprocal: {"1/x", "1/x", convNone, reciprocal},
	Abs:        {"abs", "|x|", convNone, pure(math.Abs)},
	Round:      {"round", "round", convNone, pure(roundHalfUp)},
	Floor:      {"floor", "floor", convNone, pure(math.Floor)},
	Ceil:       {"ceil", "ceil", convNone, pure(math.Ceil)},
	Pi:         {"π", "π", convNullary, constant(math.Pi)},
	E:          {"e", "e", convNullary, constant(math.E)},
	Phi:        {"phi", "φ", convNullary, constant(golden)},
	Rand:       {"rand", "rand", convNullary, nil}, // see Table.Invoke
	Factorial:  {"!", "x!", convNone, factorial},
}

var aliases = map[string]ID{
	"pi":  Pi,
	"PI":  Pi,
	"φ":   Phi,
	"x²":  Square,
	"x³":  Cube,
	"√":   Sqrt,
}

var byName = func() map[string]ID {
	m := make(map[string]ID, numIDs)
	for id := ID(0); id < numIDs; id++ {
		m[table[id].name] = id
	}
	return m
}()

// String returns the token name of the function.
func (id ID) String() string {
	if id >= numIDs {
		return "unknown"
	}
	return table[id].name
}

// Lookup resolves a token name.
func Lookup(name string) (ID, bool) {
	if id, ok := byName[name]; ok {
		return id, true
	}
	id, ok := aliases[name]
	return id, ok
}

// Nullary reports whether the function ignores its argument.
func Nullary(id ID) bool {
	return id < numIDs && table[id].conv == convNullary
}

// Table evaluates functions. The zero value is ready to use.
type Table struct {
	// Rand returns a uniform value in [0,1). If nil, math/rand is used.
	Rand func() float64
}

// Invoke applies the function to x. Trigonometric and hyperbolic arguments
// are taken in degrees and inverse results returned in degrees when mode
// is Deg.
func (t *Table) Invoke(id ID, x float64, mode AngleMode) (float64, error) {
	if id >= numIDs {
		return 0, calcerr.NewDomain("", "unknown function %d", id)
	}
	e := &table[id]
	var (
		y   float64
		err error
	)
	switch {
	case id == Rand:
		y = t.random()
	case e.conv == convArg && mode == Deg:
		if v, ok, err := exactDegrees(id, x); ok || err != nil {
			return v, err
		}
		y, err = e.fn(x * math.Pi / 180)
	default:
		y, err = e.fn(x)
		if err == nil && e.conv == convResult && mode == Deg {
			y = y * 180 / math.Pi
		}
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, calcerr.NewOverflow(e.name, "result of %s(%g) is not finite", e.name, x)
	}
	return y, nil
}

func (t *Table) random() float64 {
	if t.Rand != nil {
		return t.Rand()
	}
	return rand.Float64()
}

// exactDegrees handles sin, cos and tan of multiples of 90 degrees, where
// the radian round trip would leave residues like cos(90°) = 6e-17.
func exactDegrees(id ID, x float64) (float64, bool, error) {
	if id != Sin && id != Cos && id != Tan {
		return 0, false, nil
	}
	if math.IsInf(x, 0) || math.Mod(x, 90) != 0 {
		return 0, false, nil
	}
	quadrant := int(math.Mod(x/90, 4))
	if quadrant < 0 {
		quadrant += 4
	}
	sin := [4]float64{0, 1, 0, -1}
	switch id {
	case Sin:
		return sin[quadrant], true, nil
	case Cos:
		return sin[(quadrant+1)%4], true, nil
	default:
		if quadrant%2 == 1 {
			return 0, true, calcerr.NewDomain("tan", "tan(%g°) is undefined", x)
		}
		return 0, true, nil
	}
}

func unitInterval(name string, f func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		if x < -1 || x > 1 {
			return 0, calcerr.NewDomain(name, "argument %g outside [-1, 1]", x)
		}
		return f(x), nil
	}
}

func positive(name string, f func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		if !(x > 0) {
			return 0, calcerr.NewDomain(name, "argument %g must be positive", x)
		}
		return f(x), nil
	}
}

func acosh(x float64) (float64, error) {
	if !(x >= 1) {
		return 0, calcerr.NewDomain("acosh", "argument %g must be at least 1", x)
	}
	return math.Acosh(x), nil
}

func atanh(x float64) (float64, error) {
	if !(x > -1 && x < 1) {
		return 0, calcerr.NewDomain("atanh", "argument %g outside (-1, 1)", x)
	}
	return math.Atanh(x), nil
}

func sqrt(x float64) (float64, error) {
	if !(x >= 0) {
		return 0, calcerr.NewDomain("sqrt", "argument %g is negative", x)
	}
	return math.Sqrt(x), nil
}

func reciprocal(x float64) (float64, error) {
	if x == 0 {
		return 0, calcerr.NewDomain("1/x", "division by zero")
	}
	return 1 / x, nil
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// maxFactorial is the largest n with n! representable as a float64.
const maxFactorial = 170

func factorial(x float64) (float64, error) {
	if x < 0 || x != math.Trunc(x) {
		return 0, calcerr.NewDomain("!", "argument %g is not a non-negative integer", x)
	}
	if x > maxFactorial {
		return 0, calcerr.NewOverflow("!", "%g! exceeds the float64 range", x)
	}
	fact := 1.0
	for i := 2; i <= int(x); i++ {
		fact *= float64(i)
	}
	return fact, nil
}
