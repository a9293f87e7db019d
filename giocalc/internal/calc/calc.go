// Package calc implements the calculator's key-press state machine.
//
// An Engine folds tokens into an entry string, a pending binary operation
// and a memory register. Binary operators are resolved eagerly from left to
// right without precedence, so 2 + 3 * 2 = 10. Precedence only applies
// inside parenthesised entries, which are evaluated by package expr.
package calc

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/fjl/gio-scicalc/giocalc/internal/calcerr"
	"github.com/fjl/gio-scicalc/giocalc/internal/expr"
	"github.com/fjl/gio-scicalc/giocalc/internal/funcs"
	"github.com/fjl/gio-scicalc/giocalc/internal/numfmt"
)

// apply computes the operation.
func (op Op) apply(x, y float64) (float64, error) {
	var v float64
	switch op {
	case OpAdd:
		v = x + y
	case OpSub:
		v = x - y
	case OpMul:
		v = x * y
	case OpDiv:
		if y == 0 {
			return 0, calcerr.NewDomain("/", "division by zero")
		}
		v = x / y
	case OpPow:
		v = math.Pow(x, y)
	default:
		return y, nil
	}
	return numfmt.Check(op.String(), v)
}

// State is the complete calculator state.
type State struct {
	Entry     string // entry being typed, or the last result
	Previous  string // left operand of Pending
	Pending   Op
	Memory    float64
	Answer    float64 // last completed result, valid if HasAnswer
	HasAnswer bool
	Angle     funcs.AngleMode
	Inverse   bool
	Fresh     bool  // next digit starts a new entry
	Err       error // error shown instead of the entry
}

// Result describes a completed evaluation.
type Result struct {
	Expr  string
	Value float64
	Text  string
}

// Snapshot is what the presentation layer reads after each token.
type Snapshot struct {
	Text      string  // display text
	Value     float64 // numeric value of Text, valid if Numeric
	Numeric   bool
	Err       error // typed error if the display shows an error
	Angle     funcs.AngleMode
	Inverse   bool
	Pending   Op
	MemorySet bool
	Result    *Result // non-nil if the last token completed an evaluation
}

// Engine is the calculator. It is not safe for concurrent use.
type Engine struct {
	state  State
	table  funcs.Table
	format numfmt.Formatter
	log    *slog.Logger

	defaultAngle     funcs.AngleMode
	clearResetsAngle bool

	result *Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithPrecision sets the number of significant digits of results.
func WithPrecision(digits int) Option {
	return func(e *Engine) { e.format.Precision = digits }
}

// WithAngleMode sets the initial angle mode.
func WithAngleMode(m funcs.AngleMode) Option {
	return func(e *Engine) { e.defaultAngle = m }
}

// WithClearResetsAngle makes ClearAll restore the initial angle mode.
func WithClearResetsAngle(reset bool) Option {
	return func(e *Engine) { e.clearResetsAngle = reset }
}

// WithRand sets the source of the rand key.
func WithRand(fn func() float64) Option {
	return func(e *Engine) { e.table.Rand = fn }
}

// WithLogger sets the logger for recovered errors.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates a calculator.
func New(opts ...Option) *Engine {
	e := &Engine{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(e)
	}
	e.state.Angle = e.defaultAngle
	return e
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.state
}

// Apply processes one key press.
func (e *Engine) Apply(tok Token) Snapshot {
	e.result = nil
	switch tok.Kind {
	case KindDigit:
		if tok.Digit >= '0' && tok.Digit <= '9' {
			e.digit(tok.Digit)
		}
	case KindDecimal:
		e.decimal()
	case KindOperator:
		e.operator(tok.Op)
	case KindFunction:
		e.function(tok.Func)
	case KindKey:
		e.key(tok.Key)
	case KindEquals:
		e.equals()
	case KindClearAll:
		e.clearAll()
	case KindClearEntry:
		e.clearEntry()
	case KindBackspace:
		e.rubout()
	case KindMemory:
		e.memory(tok.Mem)
	}
	return e.Snapshot()
}

// Snapshot returns the current display.
func (e *Engine) Snapshot() Snapshot {
	s := &e.state
	snap := Snapshot{
		Text:      e.text(),
		Err:       s.Err,
		Angle:     s.Angle,
		Inverse:   s.Inverse,
		Pending:   s.Pending,
		MemorySet: s.Memory != 0,
		Result:    e.result,
	}
	if s.Err == nil && !isExpression(snap.Text) {
		if v, err := numfmt.Parse(snap.Text); err == nil {
			snap.Value, snap.Numeric = v, true
		}
	}
	return snap
}

// text gives the current output of the calculator.
func (e *Engine) text() string {
	s := &e.state
	switch {
	case s.Err != nil:
		return numfmt.Text(s.Err)
	case s.Entry != "":
		return s.Entry
	case s.Previous != "":
		return s.Previous
	default:
		return "0"
	}
}

// startEntry clears a shown result or error before new input.
func (e *Engine) startEntry() {
	s := &e.state
	if s.Fresh || s.Err != nil {
		s.Entry = ""
		s.Fresh = false
		s.Err = nil
	}
}

// digit processes an input digit.
func (e *Engine) digit(d byte) {
	e.startEntry()
	s := &e.state
	if endsWithClose(s.Entry) || endsWithConstant(s.Entry) {
		s.Entry += "*"
	}
	s.Entry += string(d)
}

// decimal adds a decimal point to the number being typed.
func (e *Engine) decimal() {
	e.startEntry()
	s := &e.state
	lit := lastLiteral(s.Entry)
	if strings.ContainsAny(lit, ".E") {
		return
	}
	if endsWithClose(s.Entry) || endsWithConstant(s.Entry) {
		s.Entry += "*"
	}
	s.Entry += "."
}

// operator handles a binary operator key.
func (e *Engine) operator(op Op) {
	s := &e.state
	switch {
	case s.Err != nil:
		return
	case isExpression(s.Entry):
		s.Entry += op.String()
		s.Fresh = false
		return
	case strings.HasSuffix(s.Entry, "E") && (op == OpAdd || op == OpSub):
		s.Entry += op.String() // exponent sign
		return
	case s.Entry == "" && s.Previous == "":
		return // nothing to operate on
	case s.Entry == "" && s.Pending != OpNone:
		s.Pending = op // changed their mind
		return
	case s.Entry != "" && s.Previous != "" && s.Pending != OpNone:
		if !e.resolve() {
			return
		}
	}
	if s.Entry != "" {
		s.Previous = s.Entry
	}
	s.Entry = ""
	s.Pending = op
	s.Fresh = false
}

// resolve computes the pending binary operation into the entry.
func (e *Engine) resolve() bool {
	s := &e.state
	x, err := e.value(s.Previous)
	if err != nil {
		e.fail(err)
		return false
	}
	y, err := e.value(s.Entry)
	if err != nil {
		e.fail(err)
		return false
	}
	v, err := s.Pending.apply(x, y)
	if err != nil {
		e.fail(err)
		return false
	}
	e.finish(v, fmt.Sprintf("%s %s %s", s.Previous, s.Pending, s.Entry))
	s.Previous = ""
	s.Pending = OpNone
	return true
}

// equals handles the = key.
func (e *Engine) equals() {
	s := &e.state
	switch {
	case s.Err != nil:
		return
	case s.Entry != "" && s.Previous != "" && s.Pending != OpNone:
		e.resolve()
	case isExpression(s.Entry):
		v, err := expr.Evaluate(s.Entry)
		if err != nil {
			e.fail(err)
			return
		}
		e.finish(v, s.Entry)
		s.Previous = ""
		s.Pending = OpNone
	}
	s.Fresh = true
}

// function applies a function-table key to the entry.
func (e *Engine) function(id funcs.ID) {
	s := &e.state
	id = funcs.Resolve(id, s.Inverse)
	if funcs.Nullary(id) {
		e.constant(id)
		return
	}
	if s.Err != nil || s.Entry == "" {
		return
	}
	x, ok := e.operand(s.Entry)
	if !ok {
		return
	}
	v, err := e.table.Invoke(id, x, s.Angle)
	if err != nil {
		e.fail(err)
		return
	}
	e.finish(v, fmt.Sprintf("%s(%s)", id, s.Entry))
	s.Fresh = true
}

// constant handles π, e, phi and rand.
func (e *Engine) constant(id funcs.ID) {
	s := &e.state
	if isExpression(s.Entry) && !s.Fresh && s.Err == nil {
		switch id {
		case funcs.Pi:
			e.appendValue("π")
			return
		case funcs.E:
			e.appendValue("e")
			return
		case funcs.Phi:
			e.appendValue("φ")
			return
		}
	}
	v, err := e.table.Invoke(id, 0, s.Angle)
	if err != nil {
		e.fail(err)
		return
	}
	e.insertValue(v)
}

// percent divides the entry by 100, or takes that percentage of the
// pending left operand.
func (e *Engine) percent() {
	s := &e.state
	if s.Err != nil || s.Entry == "" {
		return
	}
	y, ok := e.operand(s.Entry)
	if !ok {
		return
	}
	v := y / 100
	if s.Previous != "" && s.Pending != OpNone {
		x, ok := e.operand(s.Previous)
		if !ok {
			return
		}
		v = x * v
	}
	if _, err := numfmt.Check("%", v); err != nil {
		e.fail(err)
		return
	}
	s.Entry = e.format.Format(v)
	s.Fresh = true
}

// key handles the keys that are not in the function table.
func (e *Engine) key(k Key) {
	s := &e.state
	switch k {
	case KeyOpenParen:
		e.startEntry()
		if endsWithValue(s.Entry) {
			s.Entry += "*"
		}
		s.Entry += "("
	case KeyCloseParen:
		if s.Err == nil && !s.Fresh && openParens(s.Entry) > 0 {
			s.Entry += ")"
		}
	case KeyPercent:
		e.percent()
	case KeyRad:
		s.Angle = funcs.Rad
	case KeyDeg:
		s.Angle = funcs.Deg
	case KeyInv:
		s.Inverse = !s.Inverse
	case KeyAns:
		if s.HasAnswer {
			e.insertValue(s.Answer)
		}
	case KeyExp:
		lit := lastLiteral(s.Entry)
		if s.Err != nil || lit == "" || lit == "." || strings.Contains(lit, "E") {
			return
		}
		if !isExpression(s.Entry) && strings.Contains(s.Entry, "e") {
			return // result already in scientific notation
		}
		s.Entry += "E"
		s.Fresh = false
	}
}

// memory handles the memory keys.
func (e *Engine) memory(op MemOp) {
	s := &e.state
	switch op {
	case MemClear:
		s.Memory = 0
		return
	case MemRecall:
		e.insertValue(s.Memory)
		return
	}
	if s.Err != nil {
		return
	}
	text := s.Entry
	if text == "" {
		text = e.text()
	}
	v, err := e.value(text)
	if err != nil {
		return
	}
	switch op {
	case MemStore:
		s.Memory = v
	case MemAdd:
		s.Memory += v
	case MemSub:
		s.Memory -= v
	}
	s.Fresh = true
}

// clearAll resets the calculator. Memory survives, and so does the angle
// mode unless the engine was created WithClearResetsAngle.
func (e *Engine) clearAll() {
	s := &e.state
	*s = State{
		Memory: s.Memory,
		Angle:  s.Angle,
	}
	if e.clearResetsAngle {
		s.Angle = e.defaultAngle
	}
}

// clearEntry clears the entry only.
func (e *Engine) clearEntry() {
	s := &e.state
	s.Entry = ""
	s.Fresh = false
	s.Err = nil
}

// rubout undoes the last input.
func (e *Engine) rubout() {
	s := &e.state
	if s.Err != nil {
		s.Err = nil
		s.Fresh = false
		return
	}
	if len(s.Entry) > 0 {
		_, size := utf8.DecodeLastRuneInString(s.Entry)
		s.Entry = s.Entry[:len(s.Entry)-size]
	}
}

// insertValue puts v into the entry. Inside an expression the value is
// appended, otherwise it replaces the entry like a result.
func (e *Engine) insertValue(v float64) {
	s := &e.state
	text := e.format.Format(v)
	if isExpression(s.Entry) && !s.Fresh && s.Err == nil {
		// expressions write the exponent marker as E, e is the constant
		e.appendValue(strings.Replace(text, "e", "E", 1))
		return
	}
	e.startEntry()
	s.Entry = text
	s.Fresh = true
}

// appendValue appends an operand to an expression entry.
func (e *Engine) appendValue(text string) {
	s := &e.state
	if endsWithValue(s.Entry) {
		s.Entry += "*"
	}
	s.Entry += text
}

// finish shows a completed result.
func (e *Engine) finish(v float64, desc string) {
	s := &e.state
	text := e.format.Format(v)
	s.Entry = text
	s.Answer = v
	s.HasAnswer = true
	s.Err = nil
	e.result = &Result{Expr: desc, Value: v, Text: text}
}

// fail switches to the error display.
func (e *Engine) fail(err error) {
	s := &e.state
	e.log.Debug("Calculation failed", "entry", s.Entry, "previous", s.Previous, "op", s.Pending.String(), "err", err)
	s.Err = err
	s.Entry = ""
	s.Previous = ""
	s.Pending = OpNone
	s.Fresh = true
}

// value parses an operand, evaluating it if it is an expression.
func (e *Engine) value(text string) (float64, error) {
	if isExpression(text) {
		return expr.Evaluate(text)
	}
	return numfmt.Parse(text)
}

// operand is value for function keys: an entry that does not parse is
// ignored, while an expression that fails to evaluate shows the error.
func (e *Engine) operand(text string) (float64, bool) {
	v, err := e.value(text)
	switch {
	case err == nil:
		return v, true
	case calcerr.KindOf(err) != calcerr.Syntax:
		e.fail(err)
	}
	return 0, false
}

func isExpression(s string) bool {
	return strings.ContainsAny(s, "()")
}

func openParens(s string) int {
	return strings.Count(s, "(") - strings.Count(s, ")")
}

// lastLiteral returns the number at the end of s, including an exponent.
func lastLiteral(s string) string {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		switch {
		case c >= '0' && c <= '9', c == '.', c == 'E':
			i--
		case (c == '+' || c == '-') && i >= 2 && s[i-2] == 'E':
			i--
		default:
			return s[i:]
		}
	}
	return s[i:]
}

func endsWithClose(s string) bool {
	return strings.HasSuffix(s, ")")
}

func endsWithConstant(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == 'π' || r == 'e' || r == 'φ'
}

// endsWithValue reports whether an operand ends s, so that another operand
// needs an implicit multiplication.
func endsWithValue(s string) bool {
	if s == "" {
		return false
	}
	c := s[len(s)-1]
	return (c >= '0' && c <= '9') || c == '.' || endsWithClose(s) || endsWithConstant(s)
}
