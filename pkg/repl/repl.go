package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gofrs/flock"
	"github.com/oarkflow/log"
	"github.com/peterh/liner"

	"github.com/oarkflow/calc"
)

const helpText = `Enter one expression per line.
  a = 10            assign a variable, yields its value
  add x y => x + y  define a function, yields nothing
  add a 2           call a function with its arguments in order
Operators: + - * / %  grouping: ( )
Commands:
  :vars   list variables and functions
  :help   show this help
  :quit   leave
`

// Runner prints the outcome of each line of a session.
type Runner struct {
	Session      *calc.Session
	Out          io.Writer
	Prompt       string
	ResultPrefix string
	VoidText     string
	ErrorPrefix  string
	Logger       *log.Logger
}

func New(session *calc.Session, out io.Writer) *Runner {
	return &Runner{
		Session:      session,
		Out:          out,
		Prompt:       "calc> ",
		ResultPrefix: "= ",
		VoidText:     "()",
		ErrorPrefix:  "Error: ",
		Logger:       &log.DefaultLogger,
	}
}

// Handle runs one line, either a command or an expression, and reports
// whether the user asked to leave.
func (r *Runner) Handle(line string) (exit bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, ":") {
		return r.command(trimmed)
	}
	res, err := r.Session.Run(line)
	if err != nil {
		fmt.Fprintf(r.Out, "%s%v\n", r.ErrorPrefix, err)
		return false
	}
	if !res.HasValue {
		fmt.Fprintln(r.Out, r.VoidText)
		return false
	}
	fmt.Fprintf(r.Out, "%s%s\n", r.ResultPrefix, calc.FormatNumber(res.Value))
	return false
}

func (r *Runner) command(line string) bool {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case ":quit", ":exit":
		return true
	case ":help":
		fmt.Fprint(r.Out, helpText)
	case ":vars":
		r.printSymbols()
	default:
		fmt.Fprintln(r.Out, "unknown command. Type :help for help.")
	}
	return false
}

func (r *Runner) printSymbols() {
	symbols := r.Session.Context().Symbols()
	if len(symbols) == 0 {
		fmt.Fprintln(r.Out, "no symbols defined")
		return
	}
	for _, sym := range symbols {
		switch sym.Kind {
		case calc.VariableSymbol:
			fmt.Fprintf(r.Out, "%s = %s\n", sym.Name, calc.FormatNumber(sym.Value))
		case calc.FunctionSymbol:
			fmt.Fprintf(r.Out, "%s/%d\n", sym.Name, sym.Arity)
		}
	}
}

// RunLines evaluates every line of in independently until it is exhausted or
// a :quit line is read.
func (r *Runner) RunLines(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if r.Handle(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

// Interactive prompts on the terminal with line editing until Ctrl-D or
// :quit. History is shared through historyFile when it is not empty.
func (r *Runner) Interactive(historyFile string) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	history := newHistory(historyFile, r.Logger)
	history.load(ln)
	defer history.save(ln)

	for {
		line, err := ln.Prompt(r.Prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.Out)
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if r.Handle(line) {
			return nil
		}
	}
}

// history guards the history file with a lock file so that concurrent
// sessions do not interleave their writes.
type history struct {
	path   string
	lock   *flock.Flock
	logger *log.Logger
}

func newHistory(path string, logger *log.Logger) *history {
	if path == "" {
		return nil
	}
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &history{path: path, lock: flock.New(path + ".lock"), logger: logger}
}

// load is best effort: a missing file is the normal first run, anything else
// is logged and the session starts without history.
func (h *history) load(ln *liner.State) {
	if h == nil {
		return
	}
	if err := h.lock.RLock(); err != nil {
		h.warn(err, "Failed to lock history file")
		return
	}
	defer h.lock.Unlock()
	f, err := os.Open(h.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.warn(err, "Failed to open history file")
		}
		return
	}
	defer f.Close()
	if n, err := ln.ReadHistory(f); err != nil {
		h.logger.Warn().Err(err).Str("path", h.path).Int("entries", n).Msg("Failed to read history")
	}
}

func (h *history) save(ln *liner.State) {
	if h == nil {
		return
	}
	if err := h.lock.Lock(); err != nil {
		h.warn(err, "Failed to lock history file")
		return
	}
	defer h.lock.Unlock()
	f, err := os.Create(h.path)
	if err != nil {
		h.warn(err, "Failed to create history file")
		return
	}
	defer f.Close()
	if _, err := ln.WriteHistory(f); err != nil {
		h.warn(err, "Failed to write history")
	}
}

func (h *history) warn(err error, msg string) {
	h.logger.Warn().Err(err).Str("path", h.path).Msg(msg)
}
