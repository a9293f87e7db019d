package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/fjl/gio-scicalc/giocalc/internal/calc"
	"golang.org/x/term"
)

const replHelp = `Type key names separated by spaces, e.g. "2 + 3 * 4 =" or "deg 30 sin".
Keys: digits . + - * / ^ = ( ) % AC CE DEL MS MR MC M+ M- rad deg inv ans exp
Functions: sin cos tan sinh cosh tanh log ln log2 sqrt 10^x 2^x e^x x^2 x^3
           1/x abs round floor ceil π e phi rand !
Commands: help, quit`

// repl runs the calculator on lines of key names.
type repl struct {
	calc *calc.Engine
	out  io.Writer

	resultStyle lipgloss.Style
	errorStyle  lipgloss.Style
	flagStyle   lipgloss.Style
}

func newREPL(engine *calc.Engine, out io.Writer) *repl {
	r := lipgloss.NewRenderer(out)
	return &repl{
		calc:        engine,
		out:         out,
		resultStyle: r.NewStyle().Foreground(lipgloss.Color("86")),
		errorStyle:  r.NewStyle().Foreground(lipgloss.Color("203")),
		flagStyle:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// runREPL reads from in until EOF or quit. Terminals get line editing.
func runREPL(in *os.File, out *os.File, engine *calc.Engine) error {
	r := newREPL(engine, out)
	if term.IsTerminal(int(in.Fd())) {
		return r.interactive()
	}
	return r.run(in)
}

func (r *repl) interactive() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(r.out, r.flagStyle.Render(`Type "help" for the list of keys.`))
	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		if !r.runLine(line) {
			return nil
		}
	}
}

func (r *repl) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !r.runLine(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

// runLine applies one line of key names and prints the display. It returns
// false when the user asked to quit.
func (r *repl) runLine(line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return true
	case "quit", "exit":
		return false
	case "help", "?":
		fmt.Fprintln(r.out, replHelp)
		return true
	}

	toks, err := calc.ParseTokens(line)
	if err != nil {
		fmt.Fprintln(r.out, r.errorStyle.Render(err.Error()))
		return true
	}
	snap := r.calc.Snapshot()
	for _, tok := range toks {
		snap = r.calc.Apply(tok)
	}
	fmt.Fprintln(r.out, r.display(snap))
	return true
}

// display renders the snapshot as the value followed by the mode flags.
func (r *repl) display(s calc.Snapshot) string {
	text := r.resultStyle.Render(s.Text)
	if s.Err != nil {
		text = r.errorStyle.Render(s.Text)
	}
	flags := []string{s.Angle.String()}
	if s.Inverse {
		flags = append(flags, "INV")
	}
	if s.MemorySet {
		flags = append(flags, "M")
	}
	if s.Pending != calc.OpNone {
		flags = append(flags, s.Pending.String())
	}
	return text + "  " + r.flagStyle.Render("["+strings.Join(flags, " ")+"]")
}
