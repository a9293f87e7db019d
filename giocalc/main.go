package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gioui.org/app"
	"gioui.org/font/gofont"
	"gioui.org/io/clipboard"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/fjl/gio-scicalc/giocalc/internal/calc"
	"github.com/fjl/gio-scicalc/giocalc/internal/config"
	"github.com/fjl/gio-scicalc/giocalc/internal/funcs"
	"github.com/fjl/gio-scicalc/giocalc/internal/tape"
	"github.com/spf13/afero"
)

var (
	digitColor       = color.NRGBA{90, 90, 90, 255}
	specialColor     = color.NRGBA{70, 70, 70, 255}
	funcColor        = color.NRGBA{62, 72, 84, 255}
	memColor         = color.NRGBA{66, 80, 70, 255}
	opColor          = color.NRGBA{122, 90, 90, 255}
	activeOpColor    = color.NRGBA{160, 90, 90, 255}
	activeModeColor  = color.NRGBA{80, 110, 150, 255}
	backgroundColor  = color.NRGBA{50, 50, 50, 255}
	resultColor      = color.NRGBA{255, 255, 255, 255}
	errorColor       = color.NRGBA{240, 120, 110, 255}
	statusColor      = color.NRGBA{150, 150, 150, 255}
	resultBackground = color.NRGBA{35, 35, 35, 255}

	designWidth  = unit.Dp(540)
	designHeight = unit.Dp(420)
	controlInset = unit.Dp(6)
	cornerRadius = unit.Dp(3.5)
)

// calcUI is the user interface of the calculator.
type calcUI struct {
	calc    *calc.Engine
	snap    calc.Snapshot
	store   *tape.Store // nil if the tape is disabled
	history string

	theme   *material.Theme
	buttons [6][10]*button

	cornerRadius int
	gridSpacing  int
}

func newUI(theme *material.Theme, engine *calc.Engine, store *tape.Store) *calcUI {
	ui := &calcUI{calc: engine, snap: engine.Snapshot(), store: store, theme: theme}
	var (
		rad = ui.mode("RAD", calc.KeyRad, func(s calc.Snapshot) bool { return s.Angle == funcs.Rad })
		deg = ui.mode("DEG", calc.KeyDeg, func(s calc.Snapshot) bool { return s.Angle == funcs.Deg })
		inv = ui.mode("INV", calc.KeyInv, func(s calc.Snapshot) bool { return s.Inverse })
		mr  = ui.mem(calc.MemRecall)
	)
	mr.active = func(s calc.Snapshot) bool { return s.MemorySet }
	ui.buttons = [6][10]*button{
		{rad, deg, inv, ui.key("(", calc.KeyOpenParen), ui.key(")", calc.KeyCloseParen), ui.key("%", calc.KeyPercent),
			ui.mem(calc.MemClear), mr, ui.mem(calc.MemStore), ui.special("AC", calc.ClearAll)},
		{ui.fn(funcs.Sin), ui.fn(funcs.Cos), ui.fn(funcs.Tan), ui.fn(funcs.Pi), ui.fn(funcs.E), ui.fn(funcs.Phi),
			ui.mem(calc.MemAdd), ui.mem(calc.MemSub), ui.special("⌫", calc.Backspace), ui.special("CE", calc.ClearEntry)},
		{ui.fn(funcs.Sinh), ui.fn(funcs.Cosh), ui.fn(funcs.Tanh), ui.fn(funcs.Log), ui.fn(funcs.Ln), ui.fn(funcs.Log2),
			ui.digit('7'), ui.digit('8'), ui.digit('9'), ui.op(calc.OpDiv, "÷")},
		{ui.fn(funcs.Sqrt), ui.fn(funcs.Cube), ui.op(calc.OpPow, "xʸ"), ui.fn(funcs.Reciprocal), ui.fn(funcs.Factorial), ui.fn(funcs.Abs),
			ui.digit('4'), ui.digit('5'), ui.digit('6'), ui.op(calc.OpMul, "×")},
		{ui.fn(funcs.Round), ui.fn(funcs.Floor), ui.fn(funcs.Ceil), ui.fn(funcs.Rand), ui.key("EXP", calc.KeyExp), ui.key("ans", calc.KeyAns),
			ui.digit('1'), ui.digit('2'), ui.digit('3'), ui.op(calc.OpSub, "−")},
		{ui.fn(funcs.Square), ui.fn(funcs.Exp), ui.fn(funcs.Pow10), ui.fn(funcs.Pow2), nil, nil,
			ui.digit('0'), ui.special(".", calc.DecimalPoint), ui.special("=", calc.Equals), ui.op(calc.OpAdd, "+")},
	}
	return ui
}

// digit creates a digit button.
func (ui *calcUI) digit(d byte) *button {
	return newButton(string(d), calc.Digit(d), digitColor)
}

// op creates an operation button.
func (ui *calcUI) op(op calc.Op, label string) *button {
	b := newButton(label, calc.Operator(op), opColor)
	b.active = func(s calc.Snapshot) bool { return s.Pending == op }
	b.activeColor = activeOpColor
	return b
}

// fn creates a function button. Its label follows the inverse mode.
func (ui *calcUI) fn(id funcs.ID) *button {
	b := newButton("", calc.Function(id), funcColor)
	b.label = func(s calc.Snapshot) string { return funcs.Label(id, s.Inverse) }
	return b
}

// mode creates a button for a calculator mode, highlighted while the mode
// is active.
func (ui *calcUI) mode(label string, k calc.Key, active func(calc.Snapshot) bool) *button {
	b := newButton(label, calc.Special(k), specialColor)
	b.active = active
	b.activeColor = activeModeColor
	return b
}

func (ui *calcUI) key(label string, k calc.Key) *button {
	return newButton(label, calc.Special(k), specialColor)
}

func (ui *calcUI) mem(m calc.MemOp) *button {
	b := newButton(m.String(), calc.Memory(m), memColor)
	b.activeColor = activeModeColor
	return b
}

// special creates a special operation button.
func (ui *calcUI) special(label string, tok calc.Token) *button {
	return newButton(label, tok, specialColor)
}

// press applies a key to the calculator and records completed results.
func (ui *calcUI) press(tok calc.Token) {
	ui.snap = ui.calc.Apply(tok)
	r := ui.snap.Result
	if r == nil {
		return
	}
	if ui.store != nil {
		ui.store.Add(r.Expr, r.Text, r.Value)
	} else {
		ui.history = historyLine(r.Expr, r.Text)
	}
}

// handleTapeEvent applies a tape event to the history line.
func (ui *calcUI) handleTapeEvent(e tape.Event) {
	switch e := e.(type) {
	case *tape.RecordAdded:
		ui.history = historyLine(e.Record.Expr, e.Record.Text)
	case *tape.Cleared:
		ui.history = ""
	case *tape.IOError:
		slog.Warn("Tape unavailable", "err", e.Err)
	}
}

func historyLine(expr, result string) string {
	return expr + " = " + result
}

// Layout draws the UI.
func (ui *calcUI) Layout(gtx layout.Context) layout.Dimensions {
	// Adapt design for screen size.
	scaleFactor := float32(gtx.Constraints.Max.X) / float32(gtx.Dp(designWidth))
	ui.cornerRadius = gtx.Dp(cornerRadius * unit.Dp(scaleFactor))
	ui.gridSpacing = gtx.Dp(controlInset * unit.Dp(scaleFactor))

	// Handle key events.
	ui.layoutInput(gtx)

	inset := layout.UniformInset(controlInset)
	return inset.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		flex := layout.Flex{Axis: layout.Vertical, Spacing: layout.SpaceStart}
		return flex.Layout(gtx,
			layout.Flexed(25, func(gtx layout.Context) layout.Dimensions {
				return inset.Layout(gtx, ui.layoutResult)
			}),
			layout.Flexed(75, func(gtx layout.Context) layout.Dimensions {
				return inset.Layout(gtx, ui.layoutButtons)
			}),
		)
	})
}

func (ui *calcUI) layoutResult(gtx layout.Context) layout.Dimensions {
	rect := image.Rectangle{Max: gtx.Constraints.Max}
	rr := clip.UniformRRect(rect, ui.cornerRadius)
	paint.FillShape(gtx.Ops, resultBackground, rr.Op(gtx.Ops))

	inset := layout.UniformInset(controlInset)
	return inset.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		flex := layout.Flex{Axis: layout.Vertical}
		return flex.Layout(gtx,
			layout.Flexed(22, ui.layoutStatus),
			layout.Flexed(78, ui.layoutResultText),
		)
	})
}

// layoutStatus draws the mode flags and the latest history entry.
func (ui *calcUI) layoutStatus(gtx layout.Context) layout.Dimensions {
	sizeSp := unit.Sp(float32(gtx.Constraints.Max.Y) / 1.4 / gtx.Metric.PxPerSp)
	flags := []string{ui.snap.Angle.String()}
	if ui.snap.Inverse {
		flags = append(flags, "INV")
	}
	if ui.snap.MemorySet {
		flags = append(flags, "M")
	}
	if ui.snap.Pending != calc.OpNone {
		flags = append(flags, ui.snap.Pending.String())
	}

	return layout.Flex{}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			l := material.Label(ui.theme, sizeSp, strings.Join(flags, "  "))
			l.Color = statusColor
			l.MaxLines = 1
			return l.Layout(gtx)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			l := material.Label(ui.theme, sizeSp, ui.history)
			l.Color = statusColor
			l.Alignment = text.End
			l.MaxLines = 1
			return l.Layout(gtx)
		}),
	)
}

func (ui *calcUI) layoutResultText(gtx layout.Context) layout.Dimensions {
	// Scale font based on height.
	fontSizePx := float32(gtx.Constraints.Max.Y) / 1.1
	fontSizeSp := unit.Sp(fontSizePx / gtx.Metric.PxPerSp)

	l := material.Label(ui.theme, fontSizeSp, ui.snap.Text)
	l.Color = resultColor
	if ui.snap.Err != nil {
		l.Color = errorColor
	}
	l.MaxLines = 1
	return shrinkToFit(gtx, l.Layout)
}

func (ui *calcUI) layoutButtons(gtx layout.Context) layout.Dimensions {
	g := grid{
		rows:    len(ui.buttons),
		cols:    len(ui.buttons[0]),
		spacing: ui.gridSpacing,
	}
	return g.layout(gtx, func(row, col int, gtx layout.Context) layout.Dimensions {
		if b := ui.buttons[row][col]; b != nil {
			return ui.layoutButton(gtx, b)
		}
		return layout.Dimensions{}
	})
}

func (ui *calcUI) layoutButton(gtx layout.Context, b *button) layout.Dimensions {
	for b.clicker.Clicked(gtx) {
		ui.press(b.tok)
	}

	return b.clicker.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		label := b.text(ui.snap)
		textSizePx := float32(gtx.Constraints.Max.Y) / 2.2
		if w := float32(gtx.Constraints.Max.X) / (0.6*float32(len([]rune(label))) + 0.6); w < textSizePx {
			textSizePx = w
		}
		textSizeSp := unit.Sp(textSizePx / gtx.Metric.PxPerSp)

		style := material.Button(ui.theme, &b.clicker, label)
		style.Background = b.color
		style.Inset = layout.Inset{}
		style.TextSize = textSizeSp
		style.CornerRadius = unit.Dp(float32(ui.cornerRadius) / gtx.Metric.PxPerDp)
		if b.active != nil && b.active(ui.snap) {
			style.Background = b.activeColor
		}
		return style.Layout(gtx)
	})
}

// layoutInput registers the global key handler.
func (ui *calcUI) layoutInput(gtx layout.Context) {
	// Register handler for key events.
	input := key.InputOp{
		Tag:  ui,
		Hint: key.HintNumeric,
		Keys: "Short-[C,V,K]|(Shift)-[0,1,2,3,4,5,6,7,8,9,.,+,-,*,/,^,%,(,),=,⌤,⏎,⌫,⌦,⎋]",
	}
	input.Add(gtx.Ops)

	// Request keyboard focus. This is required to make the Return key work.
	key.FocusOp{Tag: ui}.Add(gtx.Ops)

	for _, ev := range gtx.Queue.Events(ui) {
		switch ev := ev.(type) {
		case key.Event:
			switch {
			case isShortcut(ev, "C"):
				op := clipboard.WriteOp{Text: ui.snap.Text}
				op.Add(gtx.Ops)
			case isShortcut(ev, "V"):
				op := clipboard.ReadOp{Tag: ui}
				op.Add(gtx.Ops)
			case isShortcut(ev, "K"):
				if ui.store != nil {
					ui.store.Clear()
				}
				ui.history = ""
			default:
				ui.handleKey(ev)
			}

		case clipboard.Event:
			ui.paste(ev.Text)
		}
	}
}

func isShortcut(e key.Event, name string) bool {
	return e.Name == name && e.Modifiers.Contain(key.ModShortcut) && e.State == key.Press
}

// paste types a number or expression from the clipboard.
func (ui *calcUI) paste(s string) {
	toks, err := pasteTokens(s)
	if err != nil {
		slog.Debug("Ignoring clipboard content", "err", err)
		return
	}
	for _, tok := range toks {
		ui.press(tok)
	}
}

// pasteTokens converts clipboard text to key presses. A leading minus sign
// can't be typed on the keypad, so negative input is entered as an
// expression.
func pasteTokens(s string) ([]calc.Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty clipboard")
	}
	if strings.HasPrefix(s, "-") {
		s = "(" + s + ")"
	}
	return calc.ParseChars(s)
}

// handleKey handles a key event.
func (ui *calcUI) handleKey(e key.Event) {
	if e.State == key.Release {
		return
	}
	if tok, ok := keyToken(e.Name); ok {
		ui.press(tok)
	}
}

// keyToken maps a key name to the calculator key it presses.
func keyToken(name string) (calc.Token, bool) {
	switch name {
	case "=", key.NameEnter, key.NameReturn:
		return calc.Equals, true
	case key.NameDeleteBackward, key.NameDeleteForward:
		return calc.Backspace, true
	case key.NameEscape:
		return calc.ClearAll, true
	}
	toks, err := calc.ParseChars(name)
	if err != nil || len(toks) != 1 {
		return calc.Token{}, false
	}
	return toks[0], true
}

// button is a clickable button.
type button struct {
	tok   calc.Token
	label func(calc.Snapshot) string // nil for static labels
	title string

	active      func(calc.Snapshot) bool // highlight condition
	color       color.NRGBA
	activeColor color.NRGBA
	clicker     widget.Clickable
}

func newButton(title string, tok calc.Token, color color.NRGBA) *button {
	return &button{title: title, tok: tok, color: color}
}

func (b *button) text(s calc.Snapshot) string {
	if b.label != nil {
		return b.label(s)
	}
	return b.title
}

func main() {
	var (
		configFlag   = flag.String("config", "", "settings file (default: giocalc.yaml in the user config directory)")
		replFlag     = flag.Bool("repl", false, "read keys from standard input instead of opening a window")
		logLevelFlag = flag.String("log-level", "", "log level: debug, info, warn or error")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fatal(err)
	}
	level := cfg.Level()
	if *logLevelFlag != "" {
		if level, err = config.ParseLevel(*logLevelFlag); err != nil {
			fatal(err)
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	opts := append(cfg.EngineOptions(), calc.WithLogger(logger))

	if *replFlag {
		if err := runREPL(os.Stdin, os.Stdout, calc.New(opts...)); err != nil {
			fatal(err)
		}
		return
	}

	var (
		size     = app.Size(designWidth, designHeight)
		statusBg = app.StatusColor(backgroundColor)
		sysBg    = app.NavigationColor(backgroundColor)
		title    = app.Title("GioCalc")
	)
	go func() {
		w := app.NewWindow(statusBg, sysBg, size, title)
		w.Option(app.MinSize(designWidth, designHeight))

		if err := loop(w, cfg, calc.New(opts...)); err != nil {
			fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// loadConfig reads the settings file. Without an explicit path, the file
// in the user config directory is used if there is one.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Default(), nil
		}
		path = p
	}
	return config.Load(afero.NewOsFs(), path)
}

// loop is the main loop of the app.
func loop(w *app.Window, cfg *config.Config, engine *calc.Engine) error {
	var (
		store       *tape.Store
		storeEvents <-chan tape.Event
	)
	if cfg.Tape.Enabled {
		datadir, err := app.DataDir()
		if err != nil {
			return err
		}
		store = tape.NewStore(cfg.TapeDir(filepath.Join(datadir, "giocalc")))
		defer store.Close()
		storeEvents = store.Events()
	}

	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	var (
		ui  = newUI(th, engine, store)
		ops op.Ops
	)
	events, acks := windowEvents(w)
	for {
		select {
		case e := <-storeEvents:
			ui.handleTapeEvent(e)
			w.Invalidate()
		case e := <-events:
			switch e := e.(type) {
			case system.StageEvent:
				if e.Stage == system.StagePaused && store != nil {
					store.Persist()
				}
			case system.DestroyEvent:
				return e.Err
			case system.FrameEvent:
				gtx := layout.NewContext(&ops, e)
				paint.Fill(gtx.Ops, backgroundColor)
				ui.Layout(gtx)
				e.Frame(gtx.Ops)
			}
			acks <- struct{}{}
		}
	}
}

// windowEvents reads window events in the background. The window must not
// be asked for the next event until the previous one is handled, so every
// event has to be acknowledged on acks. The reader stops after DestroyEvent.
func windowEvents(w *app.Window) (events <-chan event.Event, acks chan<- struct{}) {
	evCh := make(chan event.Event)
	ackCh := make(chan struct{})
	go func() {
		for {
			e := w.NextEvent()
			evCh <- e
			if _, ok := e.(system.DestroyEvent); ok {
				return
			}
			<-ackCh
		}
	}()
	return evCh, ackCh
}
