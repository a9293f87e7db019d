package funcs

// inversePair is one row of the inverse toggle map.
type inversePair struct {
	inverse      ID
	label        string
	inverseLabel string
}

// inverses maps a key's direct function to the function it dispatches to
// while inverse mode is active.
var inverses = map[ID]inversePair{
	Sin:  {Asin, "sin", "sin⁻¹"},
	Cos:  {Acos, "cos", "cos⁻¹"},
	Tan:  {Atan, "tan", "tan⁻¹"},
	Sinh: {Asinh, "sinh", "sinh⁻¹"},
	Cosh: {Acosh, "cosh", "cosh⁻¹"},
	Tanh: {Atanh, "tanh", "tanh⁻¹"},
	Log:  {Pow10, "log", "10ˣ"},
	Ln:   {Exp, "ln", "eˣ"},
	Sqrt: {Square, "√", "x²"},
	Log2: {Pow2, "log₂", "2ˣ"},
}

// Toggled lists the functions that have an inverse, in keypad order.
var Toggled = []ID{Sin, Cos, Tan, Sinh, Cosh, Tanh, Log, Ln, Sqrt, Log2}

// Inverse returns the inverse of id, if the inverse key changes it.
func Inverse(id ID) (ID, bool) {
	p, ok := inverses[id]
	return p.inverse, ok
}

// Resolve returns the function a key labelled id dispatches to.
func Resolve(id ID, inverse bool) ID {
	if !inverse {
		return id
	}
	if p, ok := inverses[id]; ok {
		return p.inverse
	}
	return id
}

// Label returns the text shown on the key whose direct function is id.
func Label(id ID, inverse bool) string {
	if p, ok := inverses[id]; ok {
		if inverse {
			return p.inverseLabel
		}
		return p.label
	}
	if id >= numIDs {
		return "?"
	}
	return table[id].label
}
